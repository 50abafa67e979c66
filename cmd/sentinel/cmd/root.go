package cmd

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rustyeddy/sentinel/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	envFile   string
	logLevel  string
	logFormat string

	// cfg is loaded once by the root pre-run and shared by every command.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "sentinel",
	Short: "Nifty 50 swing/momentum paper-trading assistant",
	Long: `Sentinel scans the Nifty 50 every cycle, confirms entry signals over a
debounce window, paper-trades them with a ratcheting stop and keeps a
trade journal.

It provides:
  - Sentinel (trend breakout) and Sniper (squeeze/spike) scanning modes
  - A market safety gate on the Nifty 50 index
  - Auto-Bot entries and exits with breakeven and trailing stops
  - A durable ledger, journal and signal log (CSV, SQLite or Postgres)
  - A dashboard API with Prometheus metrics`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "sentinel.yaml", "config file (defaults are used when it does not exist)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with secrets")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format (console or json)")
}

func setup(cmd *cobra.Command, args []string) error {
	if err := setupLogging(logLevel, logFormat); err != nil {
		return err
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Warn().Err(err).Str("file", envFile).Msg("env file not loaded")
		}
	}
	if cmd.Annotations["config"] == "skip" {
		return nil
	}

	c, err := loadConfig(cfgFile)
	if err != nil {
		return err
	}
	cfg = c
	return nil
}

func setupLogging(level, format string) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(lvl)
	if format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	var c *config.Config
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		log.Debug().Str("file", path).Msg("config file not found; using defaults")
		c = config.Default()
	} else {
		if c, err = config.LoadFromFile(path); err != nil {
			return nil, err
		}
	}
	c.ApplyEnv(os.Getenv)
	return c, c.Validate()
}
