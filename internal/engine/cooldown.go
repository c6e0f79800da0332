package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/kp-alert-service/internal/domain"
	"github.com/couchcryptid/kp-alert-service/internal/observability"
)

// PolicyCooldown is the name of the cooldown policy.
const PolicyCooldown = "cooldown"

// CooldownConfig tunes a CooldownPolicy. Zero values take defaults.
// DefaultThreshold applies to subscribers without a usable stored threshold.
type CooldownConfig struct {
	Cooldown         time.Duration
	DefaultThreshold float64
	Concurrency      int
	ListTimeout      time.Duration
	DispatchTimeout  time.Duration
	WriteTimeout     time.Duration
	DashboardURL     string
}

func (c CooldownConfig) withDefaults() CooldownConfig {
	if c.Cooldown <= 0 {
		c.Cooldown = time.Hour
	}
	if c.DefaultThreshold <= 0 {
		c.DefaultThreshold = domain.DefaultKpThreshold
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 8
	}
	if c.ListTimeout <= 0 {
		c.ListTimeout = 10 * time.Second
	}
	if c.DispatchTimeout <= 0 {
		c.DispatchTimeout = 30 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	return c
}

// CooldownPolicy notifies every eligible subscriber directly and records the
// send time, suppressing repeats within the cooldown window.
type CooldownPolicy struct {
	directory  Directory
	dispatcher Dispatcher
	state      StateWriter
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics
	cfg        CooldownConfig
}

// NewCooldownPolicy creates a CooldownPolicy.
func NewCooldownPolicy(dir Directory, dispatcher Dispatcher, state StateWriter, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics, cfg CooldownConfig) *CooldownPolicy {
	return &CooldownPolicy{
		directory:  dir,
		dispatcher: dispatcher,
		state:      state,
		clock:      clock,
		logger:     logger,
		metrics:    metrics,
		cfg:        cfg.withDefaults(),
	}
}

func (p *CooldownPolicy) Name() string { return PolicyCooldown }

// Notify decides every enabled subscriber against reading and delivers to the
// eligible ones concurrently. A subscriber's lastNotifiedAt is written only
// after its dispatch succeeds. Only a directory failure returns an error.
func (p *CooldownPolicy) Notify(ctx context.Context, reading domain.KpReading) (PolicyReport, error) {
	report := newPolicyReport(p.Name())

	subs, err := p.list(ctx)
	if err != nil {
		return report, err
	}
	report.Subscribers = len(subs)
	p.metrics.SubscribersListed.Add(float64(len(subs)))

	now := p.clock.Now()
	eligible := make([]domain.Subscriber, 0, len(subs))
	for _, sub := range subs {
		sub = sub.WithDefaultThreshold(p.cfg.DefaultThreshold)
		d := domain.Decide(sub, reading, now, p.cfg.Cooldown)
		report.Decisions[d.Reason]++
		p.metrics.Decisions.WithLabelValues(string(d.Reason)).Inc()

		switch d.Reason {
		case domain.ReasonEligible:
			eligible = append(eligible, sub)
		case domain.ReasonNoContact:
			p.logger.Warn("subscriber has no contact address, skipping", "subscriber_id", sub.ID)
		case domain.ReasonCooldownActive:
			p.logger.Debug("subscriber in cooldown", "subscriber_id", sub.ID, "last_notified_at", sub.LastNotifiedAt)
		}
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(p.cfg.Concurrency)
	for _, sub := range eligible {
		g.Go(func() error {
			sent, wrote := p.deliver(ctx, sub, reading)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case !sent:
				report.Failed++
			case !wrote:
				report.Sent++
				report.StateWriteFailures++
			default:
				report.Sent++
			}
			return nil
		})
	}
	_ = g.Wait()

	return report, nil
}

func (p *CooldownPolicy) list(ctx context.Context) ([]domain.Subscriber, error) {
	listCtx, cancel := context.WithTimeout(ctx, p.cfg.ListTimeout)
	defer cancel()

	subs, err := p.directory.ListAlertSubscribers(listCtx)
	if err != nil {
		return nil, fmt.Errorf("%w: list alert subscribers: %w", domain.ErrDirectoryFailure, err)
	}
	return subs, nil
}

// deliver sends one notification and, only on success, records the send time.
func (p *CooldownPolicy) deliver(ctx context.Context, sub domain.Subscriber, reading domain.KpReading) (sent, wrote bool) {
	n := domain.NewKpNotification(sub, reading, p.cfg.DashboardURL)

	sendCtx, cancelSend := context.WithTimeout(ctx, p.cfg.DispatchTimeout)
	err := p.dispatcher.Send(sendCtx, n)
	cancelSend()
	if err != nil {
		p.metrics.Dispatches.WithLabelValues("failed").Inc()
		p.logger.Error("alert dispatch failed", "subscriber_id", sub.ID, "error", err)
		return false, false
	}
	p.metrics.Dispatches.WithLabelValues("sent").Inc()

	at := p.clock.Now()
	writeCtx, cancelWrite := context.WithTimeout(ctx, p.cfg.WriteTimeout)
	err = p.state.SetLastNotifiedAt(writeCtx, sub.ID, at)
	cancelWrite()
	if err != nil {
		p.metrics.StateWriteFailures.Inc()
		p.logger.Error("failed to record last notification time", "subscriber_id", sub.ID, "error", err)
		return true, false
	}

	p.logger.Info("alert dispatched", "subscriber_id", sub.ID, "kp", reading.Value, "threshold", sub.Threshold())
	return true, true
}
