package firestore

import (
	"context"
	"fmt"

	gfirestore "cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/couchcryptid/kp-alert-service/internal/domain"
)

// SettingsStore persists alert settings on users/{uid}.alertSettings.
type SettingsStore struct {
	client *gfirestore.Client
	users  string
}

// NewSettingsStore creates a settings store over the given users collection.
func NewSettingsStore(client *gfirestore.Client, usersCollection string) *SettingsStore {
	return &SettingsStore{client: client, users: usersCollection}
}

// Load returns the stored settings. found is false when the user document or
// its alertSettings field does not exist.
func (s *SettingsStore) Load(ctx context.Context, userID string) (domain.AlertSettings, bool, error) {
	snap, err := s.client.Collection(s.users).Doc(userID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return domain.AlertSettings{}, false, nil
	}
	if err != nil {
		return domain.AlertSettings{}, false, fmt.Errorf("load settings for %s: %w", userID, err)
	}

	raw, err := snap.DataAt(fieldAlertSettings)
	if err != nil || raw == nil {
		return domain.AlertSettings{}, false, nil
	}

	var u userDocument
	if err := snap.DataTo(&u); err != nil {
		return domain.AlertSettings{}, false, fmt.Errorf("decode settings for %s: %w", userID, err)
	}
	return u.AlertSettings, true, nil
}

// Save merges settings into the user document without touching other fields.
func (s *SettingsStore) Save(ctx context.Context, userID string, settings domain.AlertSettings) error {
	_, err := s.client.Collection(s.users).Doc(userID).Set(ctx, map[string]any{
		fieldAlertSettings: settings,
	}, gfirestore.MergeAll)
	if err != nil {
		return fmt.Errorf("save settings for %s: %w", userID, err)
	}
	return nil
}
