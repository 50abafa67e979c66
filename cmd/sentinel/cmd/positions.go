package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var positionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "List or close open paper positions",
}

var positionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List open positions from the durable store",
	RunE:  runPositionsList,
}

var positionsCloseCmd = &cobra.Command{
	Use:   "close TICKER",
	Short: "Close a position at the current price",
	Long: `Close a position immediately at the latest price, bypassing the exit
rules. The trade is journaled and the instrument is blacklisted for the rest
of the day.

Example:
  sentinel positions close INFY`,
	Args: cobra.ExactArgs(1),
	RunE: runPositionsClose,
}

func init() {
	rootCmd.AddCommand(positionsCmd)
	positionsCmd.AddCommand(positionsListCmd)
	positionsCmd.AddCommand(positionsCloseCmd)
}

func runPositionsList(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	st := a.engine.Status()
	if len(st.Positions) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no open positions")
		return nil
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tQTY\tENTRY\tSTOP\tSTRATEGY\tOPENED")
	for _, p := range st.Positions {
		fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.2f\t%s\t%s\n", p.Instrument.Symbol, p.Qty, p.Entry, p.Stop,
			p.Strategy, p.EntryTime.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func runPositionsClose(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	tr, err := a.engine.ClosePosition(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "closed %s at %.2f: %s %.2f\n", tr.Instrument.Symbol, tr.Exit, tr.Result, tr.PnL)
	return nil
}
