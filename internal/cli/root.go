// Package cli wires the stockpredict commands.
package cli

import (
	"fmt"

	"llm-stock-prediction/internal/common/config"
	"llm-stock-prediction/internal/common/logger"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "stockpredict",
		Short: "LLM stock prediction web service",
		Long: `stockpredict serves a web app where signed-in users upload historical stock
prices, ask an LLM for predictions and download the predicted prices as CSV.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newExtractCmd())
	rootCmd.AddCommand(newUserCmd())
	rootCmd.AddCommand(newMigrateCmd())

	rootCmd.PersistentFlags().String("config", "", "Configuration file path (default: configs/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Override the configured log level")

	return rootCmd
}

// loadConfig reads --config, or the default search path when it is empty.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	config.LoadEnvFile()

	path, _ := cmd.Flags().GetString("config")
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) logger.Logger {
	return logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
}
