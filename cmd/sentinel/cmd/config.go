package cmd

import (
	"fmt"

	"github.com/rustyeddy/sentinel/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage sentinel configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  sentinel config init -o sentinel.yaml
  sentinel config validate -f sentinel.yaml`,
	Annotations: map[string]string{"config": "skip"},
}

var configInitCmd = &cobra.Command{
	Use:         "init",
	Short:       "Generate a default configuration file",
	RunE:        runConfigInit,
	Annotations: map[string]string{"config": "skip"},
}

var configValidateCmd = &cobra.Command{
	Use:         "validate",
	Short:       "Validate a configuration file",
	RunE:        runConfigValidate,
	Annotations: map[string]string{"config": "skip"},
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "sentinel.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	c := config.Default()
	if err := c.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "✓ Created default configuration: %s\n", configInitOutput)
	fmt.Fprintln(w, "\nEdit the file and run with:")
	fmt.Fprintf(w, "  sentinel run --config %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	c, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "✓ Configuration valid: %s\n", configValidatePath)
	fmt.Fprintf(w, "  Strategy: %s (confirm %s, risk %.1f%%, trail %.1f%%)\n",
		c.Strategy.Mode, c.Strategy.ConfirmWindow, c.Trading.RiskPercent, c.Trading.TrailPercent)
	fmt.Fprintf(w, "  Auto-Bot: buy=%t sell=%t\n", c.Trading.AutoBuy, c.Trading.AutoSell)
	fmt.Fprintf(w, "  Store: %s\n", c.Store.Type)
	return nil
}
