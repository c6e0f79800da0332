package settings

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/couchcryptid/kp-alert-service/internal/domain"
)

// demoKey is the single slot demo sessions share in the ephemeral store.
const demoKey = "demo"

// Store loads and saves alert settings for one key.
type Store interface {
	Load(ctx context.Context, key string) (domain.AlertSettings, bool, error)
	Save(ctx context.Context, key string, settings domain.AlertSettings) error
}

// Service resolves a viewer's alert settings, routing storage by session kind:
// authenticated users go to the persistent store, demo sessions to an
// ephemeral store, and anonymous viewers get read-only defaults.
type Service struct {
	persistent       Store
	ephemeral        Store
	logger           *slog.Logger
	defaultThreshold float64
}

// Option configures a Service.
type Option func(*Service)

// WithDefaultThreshold sets the Kp threshold stored in first-read defaults.
// Values outside (0, 9] are ignored.
func WithDefaultThreshold(kp float64) Option {
	return func(s *Service) {
		if !math.IsNaN(kp) && kp > domain.MinKp && kp <= domain.MaxKp {
			s.defaultThreshold = kp
		}
	}
}

// NewService creates a settings service.
func NewService(persistent, ephemeral Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		persistent:       persistent,
		ephemeral:        ephemeral,
		logger:           logger,
		defaultThreshold: domain.DefaultKpThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) defaults() domain.AlertSettings {
	d := domain.DefaultAlertSettings()
	d.KpThreshold = s.defaultThreshold
	return d
}

// Get returns the session's settings. First reads for authenticated and demo
// sessions store the defaults so later reads are stable.
func (s *Service) Get(ctx context.Context, session domain.Session) (domain.AlertSettings, error) {
	store, key, ok := s.route(session)
	if !ok {
		return s.defaults(), nil
	}

	settings, found, err := store.Load(ctx, key)
	if err != nil {
		return domain.AlertSettings{}, fmt.Errorf("load settings for %s: %w", session, err)
	}
	if found {
		return settings, nil
	}

	defaults := s.defaults()
	if err := store.Save(ctx, key, defaults); err != nil {
		return domain.AlertSettings{}, fmt.Errorf("create default settings for %s: %w", session, err)
	}
	s.logger.Info("created default alert settings", "session", session.String())
	return defaults, nil
}

// Update validates and stores settings. Anonymous sessions are rejected with
// domain.ErrReadOnlySession.
func (s *Service) Update(ctx context.Context, session domain.Session, settings domain.AlertSettings) error {
	store, key, ok := s.route(session)
	if !ok {
		return domain.ErrReadOnlySession
	}
	if err := Validate(settings); err != nil {
		return err
	}
	if settings.Locations == nil {
		settings.Locations = []string{}
	}
	if err := store.Save(ctx, key, settings); err != nil {
		return fmt.Errorf("save settings for %s: %w", session, err)
	}
	return nil
}

func (s *Service) route(session domain.Session) (Store, string, bool) {
	switch session.Kind() {
	case domain.SessionAuthenticated:
		return s.persistent, session.UserID(), true
	case domain.SessionDemo:
		return s.ephemeral, demoKey, true
	default:
		return nil, "", false
	}
}

// Validate checks user-supplied settings.
func Validate(settings domain.AlertSettings) error {
	t := settings.KpThreshold
	if math.IsNaN(t) || t <= domain.MinKp || t > domain.MaxKp {
		return fmt.Errorf("kp threshold %v must be in (0, 9]", t)
	}
	switch settings.AlertFrequency {
	case domain.FrequencyImmediately, domain.FrequencyDaily, domain.FrequencyWeekly:
	default:
		return fmt.Errorf("unknown alert frequency %q", settings.AlertFrequency)
	}
	return nil
}
