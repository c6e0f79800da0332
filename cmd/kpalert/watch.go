package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/kp-alert-service/internal/adapter/firestore"
	"github.com/couchcryptid/kp-alert-service/internal/adapter/memory"
	"github.com/couchcryptid/kp-alert-service/internal/adapter/noaa"
	"github.com/couchcryptid/kp-alert-service/internal/domain"
	"github.com/couchcryptid/kp-alert-service/internal/observability"
	"github.com/couchcryptid/kp-alert-service/internal/settings"
	"github.com/couchcryptid/kp-alert-service/internal/watch"
)

func watchCmd() *cobra.Command {
	var (
		threshold float64
		userID    string
		demo      bool
		interval  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll Kp and print a toast with a chime on each upward threshold crossing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger := mustLoad()
			metrics := observability.NewMetrics()
			clock := clockwork.NewRealClock()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			session := domain.Anonymous()
			switch {
			case userID != "":
				session = domain.Authenticated(userID)
			case demo:
				session = domain.Demo()
			}

			if !cmd.Flags().Changed("threshold") {
				var persistent settings.Store
				if session.Kind() == domain.SessionAuthenticated {
					fsClient, err := firestore.NewClient(ctx, cfg)
					if err != nil {
						return err
					}
					defer fsClient.Close()
					persistent = firestore.NewSettingsStore(fsClient, cfg.UsersCollection)
				}
				svc := settings.NewService(persistent, memory.NewSettingsStore(), logger, settings.WithDefaultThreshold(cfg.DefaultThreshold))
				s, err := svc.Get(ctx, session)
				if err != nil {
					return fmt.Errorf("resolve alert settings: %w", err)
				}
				threshold = s.KpThreshold
			}

			feed := noaa.NewCachedFeed(noaa.NewClient(cfg, logger, metrics), time.Minute, clock)
			w := watch.New(feed, threshold, interval, clock, cmd.OutOrStdout(), logger.With("session", session.String()), metrics)
			return w.Run(ctx)
		},
	}
	cmd.Flags().Float64Var(&threshold, "threshold", domain.DefaultKpThreshold, "Kp threshold; defaults to the session's stored setting")
	cmd.Flags().StringVar(&userID, "user", "", "Firestore user ID whose settings to watch with")
	cmd.Flags().BoolVar(&demo, "demo", false, "Use a demo session with ephemeral settings")
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Minute, "Polling interval")
	cmd.MarkFlagsMutuallyExclusive("user", "demo")
	return cmd
}
