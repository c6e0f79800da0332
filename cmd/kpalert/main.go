// Command kpalert evaluates the planetary Kp index and notifies subscribers
// whose alert threshold has been crossed.
//
// Usage:
//
//	kpalert worker                      # scheduled evaluation with health endpoints
//	kpalert check                       # one evaluation cycle, for managed schedulers
//	kpalert watch --threshold 6         # terminal toast on each upward crossing
//	kpalert status --latitude 52.2      # current conditions and forecast
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/kp-alert-service/internal/config"
	"github.com/couchcryptid/kp-alert-service/internal/observability"
)

func main() {
	config.LoadDotEnv()

	root := &cobra.Command{
		Use:           "kpalert",
		Short:         "Geomagnetic Kp alert service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(workerCmd())
	root.AddCommand(checkCmd())
	root.AddCommand(watchCmd())
	root.AddCommand(statusCmd())

	if err := root.Execute(); err != nil {
		slog.Error("kpalert failed", "error", err)
		os.Exit(1)
	}
}

// mustLoad reads configuration and builds the process logger. A
// configuration or log sink error aborts the process.
func mustLoad() (*config.Config, *slog.Logger) {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger, err := observability.NewLogger(cfg)
	if err != nil {
		slog.Error("failed to open log file", "error", err)
		os.Exit(1)
	}
	return cfg, logger
}
