package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/kp-alert-service/internal/domain"
	"github.com/couchcryptid/kp-alert-service/internal/observability"
)

// PolicyDigest is the name of the digest policy.
const PolicyDigest = "digest"

// DigestConfig tunes a DigestPolicy. Zero values take defaults.
type DigestConfig struct {
	ListTimeout      time.Duration
	WriteTimeout     time.Duration
	DashboardURL     string
	DefaultThreshold float64
}

// DigestPolicy enqueues one message per matching subscriber in a single
// batched mailbox write. It does not consult or update cooldown state, so a
// sustained storm re-notifies on every tick.
type DigestPolicy struct {
	directory DigestDirectory
	mailbox   Mailbox
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
	cfg       DigestConfig
}

// NewDigestPolicy creates a DigestPolicy.
func NewDigestPolicy(dir DigestDirectory, mailbox Mailbox, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics, cfg DigestConfig) *DigestPolicy {
	if cfg.ListTimeout <= 0 {
		cfg.ListTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.DefaultThreshold <= 0 {
		cfg.DefaultThreshold = domain.DefaultKpThreshold
	}
	return &DigestPolicy{
		directory: dir,
		mailbox:   mailbox,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
		cfg:       cfg,
	}
}

func (p *DigestPolicy) Name() string { return PolicyDigest }

// Notify enqueues messages for all subscribers whose threshold the reading
// meets. Messages the mailbox did not accept count as failed; a mailbox error
// never fails the cycle.
func (p *DigestPolicy) Notify(ctx context.Context, reading domain.KpReading) (PolicyReport, error) {
	report := newPolicyReport(p.Name())

	listCtx, cancel := context.WithTimeout(ctx, p.cfg.ListTimeout)
	subs, err := p.directory.ListSubscribersAtOrBelow(listCtx, reading.Value)
	cancel()
	if err != nil {
		return report, fmt.Errorf("%w: list subscribers at or below kp %s: %w",
			domain.ErrDirectoryFailure, domain.FormatKp(reading.Value), err)
	}
	report.Subscribers = len(subs)
	p.metrics.SubscribersListed.Add(float64(len(subs)))

	createdAt := p.clock.Now()
	msgs := make([]domain.MailboxMessage, 0, len(subs))
	for _, sub := range subs {
		sub = sub.WithDefaultThreshold(p.cfg.DefaultThreshold)
		// Cooldown is deliberately not part of this policy.
		d := domain.Decide(sub, reading, createdAt, 0)
		report.Decisions[d.Reason]++
		p.metrics.Decisions.WithLabelValues(string(d.Reason)).Inc()

		switch d.Reason {
		case domain.ReasonEligible:
			n := domain.NewKpNotification(sub, reading, p.cfg.DashboardURL)
			msgs = append(msgs, domain.NewMailboxMessage(n, createdAt))
		case domain.ReasonNoContact:
			p.logger.Warn("subscriber has no contact address, skipping", "subscriber_id", sub.ID)
		}
	}

	if len(msgs) == 0 {
		return report, nil
	}

	writeCtx, cancelWrite := context.WithTimeout(ctx, p.cfg.WriteTimeout)
	accepted, err := p.mailbox.Enqueue(writeCtx, msgs)
	cancelWrite()
	accepted = min(max(accepted, 0), len(msgs))

	report.Enqueued = accepted
	report.Failed = len(msgs) - accepted
	p.metrics.MailboxEnqueued.Add(float64(accepted))
	if err != nil {
		p.metrics.Dispatches.WithLabelValues("failed").Add(float64(report.Failed))
		p.logger.Error("mailbox batch write failed", "messages", len(msgs), "accepted", accepted, "error", err)
		return report, nil
	}

	p.logger.Info("alert emails queued", "messages", accepted, "kp", reading.Value)
	return report, nil
}
