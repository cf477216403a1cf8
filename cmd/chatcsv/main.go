// Package main contains the chatcsv command line entrypoint.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/edgard/chatcsv/internal/config"
	"github.com/edgard/chatcsv/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:           "chatcsv",
	Short:         "Durable chat-history CSV logger",
	Long:          "chatcsv records chat messages into per-group CSV files, keeps a consolidated zip snapshot, and normalizes historical files offline.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads configuration and installs the logger; shared by every
// subcommand.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	return cfg, log, nil
}
