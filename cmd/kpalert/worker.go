package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	httpadapter "github.com/couchcryptid/kp-alert-service/internal/adapter/http"
	"github.com/couchcryptid/kp-alert-service/internal/observability"
	"github.com/couchcryptid/kp-alert-service/internal/scheduler"
)

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run evaluation cycles on the configured schedule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger := mustLoad()
			metrics := observability.NewMetrics()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			eng, closers, err := buildEngine(ctx, cfg, clockwork.NewRealClock(), logger, metrics)
			defer closeAll(closers, logger)
			if err != nil {
				return err
			}

			sched, err := scheduler.New(eng, cfg.Schedule, cfg.RunOnStart, logger, metrics)
			if err != nil {
				return err
			}
			srv := httpadapter.NewServer(cfg.HTTPAddr, eng, eng, logger)

			var g errgroup.Group
			g.Go(func() error {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server error", "error", err)
					stop()
					return err
				}
				return nil
			})
			g.Go(func() error {
				return sched.Run(ctx)
			})

			<-ctx.Done()
			logger.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}

			err = g.Wait()
			logger.Info("shutdown complete")
			return err
		},
	}
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run a single evaluation cycle and print its report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger := mustLoad()
			metrics := observability.NewMetrics()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			eng, closers, err := buildEngine(ctx, cfg, clockwork.NewRealClock(), logger, metrics)
			defer closeAll(closers, logger)
			if err != nil {
				return err
			}

			report, cycleErr := eng.EvaluateCycle(ctx)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
			return cycleErr
		},
	}
}
