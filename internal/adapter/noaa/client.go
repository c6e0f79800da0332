package noaa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/kp-alert-service/internal/config"
	"github.com/couchcryptid/kp-alert-service/internal/domain"
	"github.com/couchcryptid/kp-alert-service/internal/observability"
)

// Feed names, used as the fetch metrics label.
const (
	feedKpIndex  = "kp_index"
	feedForecast = "kp_forecast"
	feedAlerts   = "alerts"
)

// Client reads the NOAA SWPC planetary K-index products.
type Client struct {
	httpClient  *http.Client
	kpURL       string
	forecastURL string
	alertsURL   string
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewClient creates a SWPC client for the configured feed URLs.
func NewClient(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.FetchTimeout,
		},
		kpURL:       cfg.KpIndexURL,
		forecastURL: cfg.KpForecastURL,
		alertsURL:   cfg.AlertsURL,
		logger:      logger,
		metrics:     metrics,
	}
}

// LatestKp returns the most recent row of the planetary K-index series.
// Malformed historical rows do not affect it.
func (c *Client) LatestKp(ctx context.Context) (domain.KpReading, error) {
	body, err := c.get(ctx, c.kpURL, feedKpIndex)
	if err != nil {
		return domain.KpReading{}, err
	}
	s, err := parseLatestKp(body)
	if err != nil {
		return domain.KpReading{}, fmt.Errorf("%w: kp index: %w", domain.ErrFetchFailure, err)
	}
	return s.KpReading, nil
}

// KpSeries returns the readable rows of the planetary K-index series, oldest
// first. Unreadable rows are logged and left out.
func (c *Client) KpSeries(ctx context.Context) ([]domain.KpSample, error) {
	body, err := c.get(ctx, c.kpURL, feedKpIndex)
	if err != nil {
		return nil, err
	}
	samples, skipped, err := parseKpSeries(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFetchFailure, err)
	}
	for _, err := range skipped {
		c.logger.Warn("skipping unreadable kp row", "error", err)
	}
	return samples, nil
}

// Forecast returns the estimated and predicted rows of the 3-day Kp forecast.
func (c *Client) Forecast(ctx context.Context) ([]domain.KpForecast, error) {
	body, err := c.get(ctx, c.forecastURL, feedForecast)
	if err != nil {
		return nil, err
	}
	rows, err := parseForecast(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFetchFailure, err)
	}
	return rows, nil
}

// Alerts returns the current SWPC alerts, watches and warnings.
func (c *Client) Alerts(ctx context.Context) ([]domain.SpaceWeatherAlert, error) {
	body, err := c.get(ctx, c.alertsURL, feedAlerts)
	if err != nil {
		return nil, err
	}
	var alerts []domain.SpaceWeatherAlert
	if err := json.Unmarshal(body, &alerts); err != nil {
		return nil, fmt.Errorf("%w: decode alerts: %w", domain.ErrFetchFailure, err)
	}
	return alerts, nil
}

func (c *Client) get(ctx context.Context, url, feed string) ([]byte, error) {
	start := time.Now()
	defer func() {
		c.metrics.FetchDuration.WithLabelValues(feed).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", domain.ErrFetchFailure, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s request: %w", domain.ErrFetchFailure, feed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: swpc %s: status %d: %s", domain.ErrFetchFailure, feed, resp.StatusCode, body)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s body: %w", domain.ErrFetchFailure, feed, err)
	}
	c.logger.Debug("swpc feed fetched", "feed", feed, "bytes", len(body))
	return body, nil
}
