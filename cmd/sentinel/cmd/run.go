package cmd

import (
	"context"
	"errors"
	"os"
	ossignal "os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/rustyeddy/sentinel/api"
	"github.com/rustyeddy/sentinel/pkg/clock"
	"github.com/spf13/cobra"
)

var runListen string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scan loop and the dashboard API",
	Long: `Start the polling loop: every cycle fetches the market, classifies the
universe, applies the Auto-Bot and exit rules and publishes a status for the
dashboard API. Stops on SIGINT or SIGTERM.

Example:
  sentinel run --config sentinel.yaml --listen 127.0.0.1:8080`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runListen, "listen", "", "dashboard API address (overrides api.listen)")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := ossignal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := cfg.API.Listen
	if runListen != "" {
		addr = runListen
	}
	srv := api.NewServer(a.engine, a.registry, clock.Real{})

	log.Info().
		Str("mode", cfg.Strategy.Mode).
		Bool("auto_buy", cfg.Trading.AutoBuy).
		Bool("auto_sell", cfg.Trading.AutoSell).
		Str("store", cfg.Store.Type).
		Msg("sentinel starting")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	errc := make(chan error, 2)
	go func() { errc <- a.engine.Run(ctx) }()
	go func() { errc <- srv.ListenAndServe(ctx, addr) }()

	// Either side stopping takes the other down.
	var first error
	for i := 0; i < 2; i++ {
		if err := <-errc; err != nil && !errors.Is(err, context.Canceled) && first == nil {
			first = err
		}
		cancel()
	}
	if first != nil {
		return first
	}
	log.Info().Msg("sentinel stopped")
	return nil
}
