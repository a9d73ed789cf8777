package main

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/diirlab/xrlia/pkg/log"
	"github.com/diirlab/xrlia/pkg/srv"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the XRLiA services",
	Long:  `Initializes the checkpoint store, model providers and HTTP API, then serves until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		// logger setup
		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		logger := log.FromCtx(ctx)
		logger.Info().Msg("starting xrlia")

		services := NewServices(ctx)

		srv.StartServices(ctx, services)

		// Wait for shutdown signal
		srv.ShutdownServices(ctx, services)
		logger.Info().Msg("xrlia has been shut down gracefully")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}
