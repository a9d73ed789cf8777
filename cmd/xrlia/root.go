package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/diirlab/xrlia/internal/config"
	"github.com/diirlab/xrlia/pkg/log"
)

var (
	debug bool
)

var rootCmd = &cobra.Command{
	Use:   "xrlia",
	Short: "XRLiA — radiology case-simulation tutor",
	Long:  `XRLiA serves interactive radiology teaching cases backed by a retrieval-grounded tutor agent.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Global flags available to all subcommands
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", config.IsDebug(), "enable debug logging")
}

func setupLogger(ctx context.Context) (context.Context, func()) {
	isDebug := debug || config.IsDebug()
	return log.NewContextWithLogger(ctx, isDebug)
}
