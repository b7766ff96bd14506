package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quoteflow/internal/config"
	"quoteflow/internal/metrics"
	"quoteflow/internal/provider"
	"quoteflow/internal/provider/builtin"
	"quoteflow/internal/service"
)

var (
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "quotectl",
	Short:         "Run supplier quote extractions from the command line",
	Long:          "Extracts line items from supplier quote documents with any configured provider and prints the canonical result as JSON.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		l, err := config.NewLogger(cfg.Log)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// buildExtractor wires the provider registry without the database or storage.
func buildExtractor(ctx context.Context, defaultProvider string) (service.ExtractionService, *provider.Registry, error) {
	registry := builtin.Registry(ctx, cfg, logger)
	if defaultProvider == "" {
		defaultProvider = cfg.Extraction.DefaultProvider
	}
	svc, err := service.NewExtractionService(registry, defaultProvider, metrics.NewRecorder(), logger)
	if err != nil {
		return nil, nil, err
	}
	return svc, registry, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
