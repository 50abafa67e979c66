package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print the version number",
	Annotations: map[string]string{"config": "skip"},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "sentinel version %s\n", version)
		fmt.Fprintln(cmd.OutOrStdout(), "Nifty 50 swing/momentum paper-trading assistant")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
