// Package cmd provides the CLI commands for pkla.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/openEuler-BaseService/polkit-pkla-compat/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "pkla",
	Short: "pkla - pklocalauthority policy interpreter",
	Long: `pkla interprets pklocalauthority(8) authorization and configuration files.

It computes implicit authorization verdicts from the local authorization
store directories and resolves the configured administrator identities.

Commands:
  check-authorization  Evaluate an action for a user
  admin-identities     Print the configured admin identities
  config               Print the effective configuration
  version              Print version information

Configuration:
  Tool settings are loaded from pkla.yaml in the current directory,
  $HOME/.pkla/, or /etc/pkla/. Environment variables with the PKLA_
  prefix override them, e.g. PKLA_STORE_PATHS.`,

	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./pkla.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}

// loadConfig reads the tool configuration and builds the CLI logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.FromViper()
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	return cfg, logger, nil
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
