package watch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/kp-alert-service/internal/domain"
	"github.com/couchcryptid/kp-alert-service/internal/engine"
	"github.com/couchcryptid/kp-alert-service/internal/observability"
)

// bell is the terminal chime written after each toast.
const bell = "\a"

// Watcher polls the Kp source for a single viewer and prints a toast each
// time the reading crosses upward through the viewer's threshold.
type Watcher struct {
	source   engine.KpSource
	latch    *domain.ThresholdLatch
	interval time.Duration
	clock    clockwork.Clock
	out      io.Writer
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// New creates a Watcher for threshold.
func New(source engine.KpSource, threshold float64, interval time.Duration, clock clockwork.Clock, out io.Writer, logger *slog.Logger, metrics *observability.Metrics) *Watcher {
	return &Watcher{
		source:   source,
		latch:    domain.NewThresholdLatch(threshold),
		interval: interval,
		clock:    clock,
		out:      out,
		logger:   logger,
		metrics:  metrics,
	}
}

// Run polls immediately and then on every interval until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("watching kp", "threshold", w.latch.Threshold(), "interval", w.interval)
	w.poll(ctx)

	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			w.poll(ctx)
		}
	}
}

// State reports the latch state.
func (w *Watcher) State() domain.LatchState { return w.latch.State() }

func (w *Watcher) poll(ctx context.Context) {
	if _, err := w.Poll(ctx); err != nil {
		w.logger.Warn("kp poll failed", "error", err)
	}
}

// Poll fetches one reading and feeds it to the latch. A failed or invalid
// fetch leaves the latch untouched.
func (w *Watcher) Poll(ctx context.Context) (bool, error) {
	reading, err := w.source.LatestKp(ctx)
	if err == nil {
		err = reading.Validate()
	}
	if err != nil {
		return false, err
	}

	if !w.latch.Observe(reading.Value) {
		return false, nil
	}

	w.metrics.WatcherNotifications.Inc()
	_, err = fmt.Fprintf(w.out, "[%s] Aurora alert: Kp %s reached your threshold of %s. %s.%s\n",
		w.clock.Now().UTC().Format("2006-01-02 15:04 MST"),
		domain.FormatKp(reading.Value),
		domain.FormatKp(w.latch.Threshold()),
		domain.StormDescription(reading.Value),
		bell,
	)
	return true, err
}
