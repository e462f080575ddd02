package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/tickerbrief/config"
	"github.com/mohammad-safakhou/tickerbrief/internal/cache"
	"github.com/mohammad-safakhou/tickerbrief/internal/report"
)

func reportCMD() *cobra.Command {
	var cfgPath string
	var timeout time.Duration
	var cmd = &cobra.Command{
		Use:   "report TICKER",
		Short: "Generate one report and print it as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			return runReport(cfg, args[0], timeout)
		},
	}
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./config)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "overall generation timeout")
	return cmd
}

func runReport(cfg *config.Config, ticker string, timeout time.Duration) error {
	// One-shot runs don't need redis; an in-process store keeps the
	// pipeline's cache semantics intact.
	factory, cleanup := newPipelineFactory(cfg, cache.NewMemoryStore())
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	rep, err := factory().Generate(ctx, ticker, report.NopSink{})
	if err != nil {
		return fmt.Errorf("report generation failed: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}
