package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/kp-alert-service/internal/adapter/noaa"
	"github.com/couchcryptid/kp-alert-service/internal/domain"
	"github.com/couchcryptid/kp-alert-service/internal/observability"
)

func statusCmd() *cobra.Command {
	var (
		latitude  float64
		maxAlerts int
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print current geomagnetic conditions, the 3-day forecast and recent SWPC alerts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger := mustLoad()
			client := noaa.NewClient(cfg, logger, observability.NewMetrics())

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			series, err := client.KpSeries(ctx)
			if err != nil {
				return err
			}
			if len(series) == 0 {
				return fmt.Errorf("%w: empty kp series", domain.ErrFetchFailure)
			}
			forecast, err := client.Forecast(ctx)
			if err != nil {
				logger.Warn("forecast unavailable", "error", err)
			}
			alerts, err := client.Alerts(ctx)
			if err != nil {
				logger.Warn("alerts unavailable", "error", err)
			}

			var lat *float64
			if cmd.Flags().Changed("latitude") {
				lat = &latitude
			}
			return printStatus(cmd.OutOrStdout(), series, forecast, alerts, lat, maxAlerts)
		},
	}
	cmd.Flags().Float64Var(&latitude, "latitude", 0, "Observer latitude for aurora visibility")
	cmd.Flags().IntVar(&maxAlerts, "alerts", 3, "Number of recent SWPC alerts to show")
	return cmd
}

func printStatus(out io.Writer, series []domain.KpSample, forecast []domain.KpForecast, alerts []domain.SpaceWeatherAlert, latitude *float64, maxAlerts int) error {
	current := series[len(series)-1]
	kp := current.Value

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Kp index:\t%s (observed %s)\n", domain.FormatKp(kp), current.ObservedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(tw, "Storm scale:\t%s, %s\n", domain.NOAAScale(kp), domain.StormDescription(kp))
	fmt.Fprintf(tw, "Color:\t%s\n", domain.ColorForKp(kp))
	fmt.Fprintf(tw, "Active storm:\t%t\n", domain.ActiveStorm(series))
	fmt.Fprintf(tw, "Aurora visible from:\t%.1f° latitude\n", domain.AuroraVisibilityLatitude(kp))
	if latitude != nil {
		_, msg := domain.AuroraVisibility(kp, *latitude)
		fmt.Fprintf(tw, "At %.1f°:\t%s\n", *latitude, msg)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(forecast) > 0 {
		fmt.Fprintln(out, "\nForecast (UTC):")
		tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "TIME\tKP\tSCALE\tSTATUS")
		for _, f := range forecast {
			scale := f.NOAAScale
			if scale == "" {
				scale = domain.NOAAScale(f.Kp)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.TimeTag.Format("Jan 02 15:04"), domain.FormatKp(f.Kp), scale, f.Status)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(alerts) > 0 && maxAlerts > 0 {
		fmt.Fprintln(out, "\nRecent SWPC alerts:")
		for i, a := range alerts {
			if i == maxAlerts {
				break
			}
			fmt.Fprintf(out, "  %s  %s  %s\n", a.IssueDatetime, a.ProductID, firstLine(a.Message))
		}
	}
	return nil
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' || r == '\r' {
			return s[:i]
		}
	}
	return s
}
