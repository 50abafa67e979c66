package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rustyeddy/sentinel/journal"
	"github.com/spf13/cobra"
)

var (
	journalOrg   bool
	auditFormat  string
	journalSince string
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect the trade journal",
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List closed trades",
	RunE:  runJournalList,
}

var journalAuditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Summarise closed trades: win rate, reward-to-risk, strategy showdown",
	Long: `Print the performance audit of the trade journal.

Examples:
  sentinel journal audit
  sentinel journal audit --format json --since 2025-01-01`,
	RunE: runJournalAudit,
}

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalListCmd)
	journalCmd.AddCommand(journalAuditCmd)

	journalListCmd.Flags().BoolVar(&journalOrg, "org", false, "print org-mode entries")
	journalCmd.PersistentFlags().StringVar(&journalSince, "since", "", "only trades exited on or after YYYY-MM-DD")
	journalAuditCmd.Flags().StringVar(&auditFormat, "format", "org", "output format (org or json)")
}

// loadTrades reads the journal straight from the durable store.
func loadTrades(ctx context.Context) ([]journal.ClosedTrade, error) {
	st, err := newStore(cfg)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	j := journal.New(st)
	if err := j.Hydrate(ctx); err != nil {
		return nil, err
	}
	trades := j.All()
	if journalSince == "" {
		return trades, nil
	}
	out := trades[:0]
	for _, t := range trades {
		if t.ExitDate() >= journalSince {
			out = append(out, t)
		}
	}
	return out, nil
}

func runJournalList(cmd *cobra.Command, args []string) error {
	trades, err := loadTrades(cmd.Context())
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if journalOrg {
		fmt.Fprint(w, journal.FormatTradesOrg(trades))
		return nil
	}
	for _, t := range trades {
		fmt.Fprintf(w, "%s  %-12s %-9s %8.2f -> %8.2f  %+8.2f  %s\n",
			t.ExitDate(), t.Instrument.Symbol, t.Strategy, t.Entry, t.Exit, t.PnL, t.Result)
	}
	fmt.Fprintf(w, "%d trades\n", len(trades))
	return nil
}

func runJournalAudit(cmd *cobra.Command, args []string) error {
	trades, err := loadTrades(cmd.Context())
	if err != nil {
		return err
	}
	a := journal.Summarize(trades, time.Now())
	if auditFormat == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(a)
	}
	return journal.WriteAuditOrg(cmd.OutOrStdout(), a)
}
