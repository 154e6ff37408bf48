// Package cmd is the flappyjet-backend command line: the HTTP server plus the
// operator commands that drive tournaments and aggregation by hand.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/erezos/flappyjet-backend-sub006/config"
	"github.com/erezos/flappyjet-backend-sub006/logger"
)

var rootCmd = &cobra.Command{
	Use:           "flappyjet-backend",
	Short:         "FlappyJet competitive backend",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}

func init() {
	// bare invocation serves
	rootCmd.RunE = serveCmd.RunE
	rootCmd.AddCommand(serveCmd, aggregateCmd, tournamentCmd, prizesCmd)
}

// loadEnv reads configuration and builds the process logger.
func loadEnv() (*config.Config, *zap.SugaredLogger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	zl, err := logger.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		return nil, nil, fmt.Errorf("building logger: %w", err)
	}
	return cfg, zl.Sugar(), nil
}
