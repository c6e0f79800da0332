package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "kp_alert"

// Metrics holds the Prometheus counters, histograms, and gauges for the alert engine.
type Metrics struct {
	CyclesTotal       *prometheus.CounterVec // labels: outcome={ok,fetch_error,directory_error}
	CycleDuration     prometheus.Histogram
	LatestKp          prometheus.Gauge
	SubscribersListed prometheus.Counter

	Decisions            *prometheus.CounterVec // labels: reason
	Dispatches           *prometheus.CounterVec // labels: outcome={sent,failed}
	StateWriteFailures   prometheus.Counter
	MailboxEnqueued      prometheus.Counter
	FetchDuration        *prometheus.HistogramVec // labels: feed
	SchedulerRunning     prometheus.Gauge
	WatcherNotifications prometheus.Counter
}

// NewMetrics creates and registers all engine metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.CyclesTotal,
		m.CycleDuration,
		m.LatestKp,
		m.SubscribersListed,
		m.Decisions,
		m.Dispatches,
		m.StateWriteFailures,
		m.MailboxEnqueued,
		m.FetchDuration,
		m.SchedulerRunning,
		m.WatcherNotifications,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Evaluation cycles by outcome.",
		}, []string{"outcome"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a complete fetch-evaluate-dispatch cycle.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		LatestKp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "latest_kp",
			Help:      "Most recent planetary Kp value observed.",
		}),
		SubscribersListed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscribers_listed_total",
			Help:      "Subscribers returned by the directory across all cycles.",
		}),
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Per-subscriber alert decisions by reason.",
		}, []string{"reason"}),
		Dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatches_total",
			Help:      "Notification dispatch attempts by outcome.",
		}, []string{"outcome"}),
		StateWriteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_write_failures_total",
			Help:      "Failed last-notified timestamp writes after a successful dispatch.",
		}),
		MailboxEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mailbox_enqueued_total",
			Help:      "Messages enqueued to the outbound mailbox by the digest policy.",
		}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "NOAA feed request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"feed"}),
		SchedulerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_running",
			Help:      "1 when the cycle scheduler is active, 0 when shut down.",
		}),
		WatcherNotifications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "watcher_notifications_total",
			Help:      "Threshold crossings reported by the live watcher.",
		}),
	}
}
