package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sandevgo/datacom/internal/config"
	"github.com/sandevgo/datacom/pkg/log"
	"github.com/sandevgo/datacom/pkg/srv"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the enabled chat transports",
	Long:  `Opens the conversation store and serves DATACOM-7 over HTTP, plus Telegram when ENABLE_TELEGRAM is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// logger setup
		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		logger := log.FromCtx(ctx)
		logger.Info().Msg("starting datacom")

		p := newPipeline(ctx)
		services := NewServices(ctx, p)

		// Start services
		srv.StartServices(ctx, services)

		// Wait for shutdown signal
		httpCfg := config.NewHTTPConfig(ctx)
		srv.ShutdownServices(ctx, services, httpCfg.ShutdownTimeout)
		logger.Info().Msg("datacom has been shut down gracefully")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
