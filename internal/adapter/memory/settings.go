package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/couchcryptid/kp-alert-service/internal/domain"
)

// SettingsStore keeps alert settings in process memory. It backs demo
// sessions, whose settings never reach the persistent store.
type SettingsStore struct {
	mu       sync.RWMutex
	settings map[string]domain.AlertSettings
}

// NewSettingsStore creates an empty store.
func NewSettingsStore() *SettingsStore {
	return &SettingsStore{settings: make(map[string]domain.AlertSettings)}
}

func (s *SettingsStore) Load(_ context.Context, key string) (domain.AlertSettings, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.settings[key]
	if !ok {
		return domain.AlertSettings{}, false, nil
	}
	v.Locations = slices.Clone(v.Locations)
	return v, true, nil
}

func (s *SettingsStore) Save(_ context.Context, key string, settings domain.AlertSettings) error {
	settings.Locations = slices.Clone(settings.Locations)
	s.mu.Lock()
	s.settings[key] = settings
	s.mu.Unlock()
	return nil
}
