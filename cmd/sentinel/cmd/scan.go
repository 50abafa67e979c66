package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rustyeddy/sentinel/engine"
	"github.com/rustyeddy/sentinel/signal"
	"github.com/spf13/cobra"
)

var scanAll bool

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one classification cycle and print the signal table",
	Long: `Fetch the market once, classify the universe and print the result.
Nothing is bought, sold or logged; confirmation timers come from today's
signal log.

Example:
  sentinel scan --all`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().BoolVar(&scanAll, "all", false, "include WAIT and NO-DATA rows")
}

func runScan(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	st := a.engine.Scan(cmd.Context())
	printStatus(cmd.OutOrStdout(), st, scanAll)
	return nil
}

func printStatus(w io.Writer, st *engine.Status, all bool) {
	for _, b := range st.Banners {
		fmt.Fprintf(w, "!! %s\n", b)
	}
	gate := "SAFE"
	if !st.Gate.Safe {
		gate = "UNSAFE (" + st.Gate.Reason + ")"
	}
	fmt.Fprintf(w, "%s  mode=%s  NIFTY50 %.2f (%+.2f%%)  gate=%s\n\n",
		st.Time.Format("2006-01-02 15:04:05"), st.Settings.Mode, st.Gate.Price, st.Gate.ChangePct, gate)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tPRICE\tTRIGGER\tSTATUS\tNOTE")
	for _, sn := range st.Signals {
		if !all && (sn.Status == signal.Wait || sn.Status == signal.NoData) {
			continue
		}
		price := fmt.Sprintf("%.2f", sn.Price)
		if sn.Stale {
			price += "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\t%s\n", sn.Instrument.Symbol, price, sn.Trigger, sn.Display(), sn.Note)
	}
	tw.Flush()

	counts := signal.Count(st.Signals)
	fmt.Fprintf(w, "\n%d confirmed, %d breakout, %d watching, %d unsafe\n",
		counts[signal.Confirmed]+counts[signal.StrongBuy]+counts[signal.LowVolume],
		counts[signal.Breakout], counts[signal.Watching], counts[signal.MarketUnsafe])
}
