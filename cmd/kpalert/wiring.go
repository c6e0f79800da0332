package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/kp-alert-service/internal/adapter/firestore"
	kafkaadapter "github.com/couchcryptid/kp-alert-service/internal/adapter/kafka"
	"github.com/couchcryptid/kp-alert-service/internal/adapter/noaa"
	"github.com/couchcryptid/kp-alert-service/internal/adapter/smtp"
	"github.com/couchcryptid/kp-alert-service/internal/config"
	"github.com/couchcryptid/kp-alert-service/internal/domain"
	"github.com/couchcryptid/kp-alert-service/internal/engine"
	"github.com/couchcryptid/kp-alert-service/internal/observability"
)

// subscriberStore is the subscriber directory as seen by both policies.
type subscriberStore interface {
	engine.Directory
	engine.DigestDirectory
	engine.StateWriter
}

type closingMailbox interface {
	engine.Mailbox
	io.Closer
}

// policyDeps builds policy collaborators on demand so only the selected
// backend is constructed.
type policyDeps struct {
	store            subscriberStore
	dispatcher       func() (engine.Dispatcher, error)
	firestoreMailbox func() engine.Mailbox
	kafkaMailbox     func() closingMailbox
}

// buildEngine wires the engine and the configured policy. The returned
// closers must be closed on shutdown.
func buildEngine(ctx context.Context, cfg *config.Config, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) (*engine.Engine, []io.Closer, error) {
	if err := cfg.ValidateWorker(); err != nil {
		return nil, nil, err
	}

	fsClient, err := firestore.NewClient(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	closers := []io.Closer{fsClient}

	deps := policyDeps{
		store: firestore.NewDirectory(fsClient, cfg.UsersCollection, logger),
		dispatcher: func() (engine.Dispatcher, error) {
			return smtp.NewDispatcher(cfg, logger)
		},
		firestoreMailbox: func() engine.Mailbox {
			return firestore.NewMailbox(fsClient, cfg.MailCollection)
		},
		kafkaMailbox: func() closingMailbox {
			return kafkaadapter.NewMailbox(cfg, logger)
		},
	}
	policy, policyClosers, err := newPolicy(cfg, deps, clock, logger, metrics)
	closers = append(closers, policyClosers...)
	if err != nil {
		return nil, closers, err
	}

	logger.Info("alert policy selected", "policy", policy.Name(), "cooldown", cfg.Cooldown, "default_threshold", cfg.DefaultThreshold)
	source := noaa.NewClient(cfg, logger, metrics)
	return engine.New(source, policy, clock, logger, metrics, engine.WithFetchTimeout(cfg.FetchTimeout)), closers, nil
}

// newPolicy selects the alert policy and, for the digest policy, its mailbox backend.
func newPolicy(cfg *config.Config, deps policyDeps, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) (engine.Policy, []io.Closer, error) {
	switch cfg.Policy {
	case config.PolicyCooldown:
		dispatcher, err := deps.dispatcher()
		if err != nil {
			return nil, nil, err
		}
		return engine.NewCooldownPolicy(deps.store, dispatcher, deps.store, clock, logger, metrics, cooldownConfig(cfg)), nil, nil

	case config.PolicyDigest:
		var (
			mailbox engine.Mailbox
			closers []io.Closer
		)
		switch cfg.MailboxBackend {
		case config.MailboxKafka:
			km := deps.kafkaMailbox()
			closers = append(closers, km)
			mailbox = km
		case config.MailboxFirestore, "":
			mailbox = deps.firestoreMailbox()
		default:
			return nil, nil, fmt.Errorf("%w: unknown mailbox backend %q", domain.ErrConfiguration, cfg.MailboxBackend)
		}
		return engine.NewDigestPolicy(deps.store, mailbox, clock, logger, metrics, digestConfig(cfg)), closers, nil

	default:
		return nil, nil, fmt.Errorf("%w: unknown policy %q", domain.ErrConfiguration, cfg.Policy)
	}
}

func cooldownConfig(cfg *config.Config) engine.CooldownConfig {
	return engine.CooldownConfig{
		Cooldown:         cfg.Cooldown,
		DefaultThreshold: cfg.DefaultThreshold,
		Concurrency:      cfg.DispatchConcurrency,
		ListTimeout:      cfg.FetchTimeout,
		DispatchTimeout:  cfg.DispatchTimeout,
		WriteTimeout:     cfg.WriteTimeout,
		DashboardURL:     cfg.DashboardURL,
	}
}

func digestConfig(cfg *config.Config) engine.DigestConfig {
	return engine.DigestConfig{
		ListTimeout:      cfg.FetchTimeout,
		WriteTimeout:     cfg.WriteTimeout,
		DashboardURL:     cfg.DashboardURL,
		DefaultThreshold: cfg.DefaultThreshold,
	}
}

func closeAll(closers []io.Closer, logger *slog.Logger) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			logger.Error("close error", "error", err)
		}
	}
}
