package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/kp-alert-service/internal/domain"
	"github.com/couchcryptid/kp-alert-service/internal/observability"
)

const defaultFetchTimeout = 10 * time.Second

// Engine runs evaluation cycles against a Kp source and a notification policy.
type Engine struct {
	source       KpSource
	policy       Policy
	clock        clockwork.Clock
	logger       *slog.Logger
	metrics      *observability.Metrics
	fetchTimeout time.Duration

	ready atomic.Bool
	mu    sync.RWMutex
	last  *CycleReport
}

// Option configures an Engine.
type Option func(*Engine)

// WithFetchTimeout bounds each Kp fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.fetchTimeout = d
		}
	}
}

// New creates an Engine. All collaborators are required.
func New(source KpSource, policy Policy, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Engine {
	e := &Engine{
		source:       source,
		policy:       policy,
		clock:        clock,
		logger:       logger,
		metrics:      metrics,
		fetchTimeout: defaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CheckReadiness returns nil once a cycle has completed successfully.
func (e *Engine) CheckReadiness(_ context.Context) error {
	if !e.ready.Load() {
		return errors.New("no evaluation cycle has completed yet")
	}
	return nil
}

// LastReport returns the most recent cycle report, if any.
func (e *Engine) LastReport() (CycleReport, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.last == nil {
		return CycleReport{}, false
	}
	return *e.last, true
}

// EvaluateCycle fetches the current reading and hands it to the policy. A
// fetch failure or invalid reading aborts the cycle before any subscriber is
// touched; the returned error wraps domain.ErrFetchFailure. Directory
// failures surface from the policy wrapping domain.ErrDirectoryFailure.
// Per-subscriber failures never fail the cycle.
func (e *Engine) EvaluateCycle(ctx context.Context) (CycleReport, error) {
	report := CycleReport{
		ID:           uuid.NewString(),
		StartedAt:    e.clock.Now(),
		PolicyReport: newPolicyReport(e.policy.Name()),
	}
	logger := e.logger.With("cycle_id", report.ID, "policy", e.policy.Name())

	reading, err := e.fetch(ctx)
	if err != nil {
		logger.Error("kp fetch failed, skipping cycle", "error", err)
		return e.finish(report, OutcomeFetchError, err), err
	}
	report.Reading = &reading
	e.metrics.LatestKp.Set(reading.Value)
	logger.Info("kp reading fetched", "kp", reading.Value, "observed_at", reading.ObservedAt)

	pr, err := e.policy.Notify(ctx, reading)
	if pr.Decisions != nil {
		report.PolicyReport = pr
	}
	if err != nil {
		outcome := OutcomePolicyError
		if errors.Is(err, domain.ErrDirectoryFailure) {
			outcome = OutcomeDirectoryError
		}
		logger.Error("evaluation cycle aborted", "error", err)
		return e.finish(report, outcome, err), err
	}

	report = e.finish(report, OutcomeOK, nil)
	e.ready.Store(true)
	logger.Info("evaluation cycle complete",
		"kp", reading.Value,
		"subscribers", report.Subscribers,
		"sent", report.Sent,
		"failed", report.Failed,
		"enqueued", report.Enqueued,
	)
	return report, nil
}

func (e *Engine) fetch(ctx context.Context) (domain.KpReading, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, e.fetchTimeout)
	defer cancel()

	reading, err := e.source.LatestKp(fetchCtx)
	if err == nil {
		err = reading.Validate()
	}
	if err != nil {
		if !errors.Is(err, domain.ErrFetchFailure) {
			err = fmt.Errorf("%w: %w", domain.ErrFetchFailure, err)
		}
		return domain.KpReading{}, err
	}
	return reading, nil
}

func (e *Engine) finish(report CycleReport, outcome string, err error) CycleReport {
	report.FinishedAt = e.clock.Now()
	report.Outcome = outcome
	if err != nil {
		report.Error = err.Error()
	}

	e.metrics.CyclesTotal.WithLabelValues(outcome).Inc()
	e.metrics.CycleDuration.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())

	e.mu.Lock()
	e.last = &report
	e.mu.Unlock()
	return report
}
