package firestore

import (
	"context"
	"fmt"
	"strings"

	gfirestore "cloud.google.com/go/firestore"
	"google.golang.org/api/option"

	"github.com/couchcryptid/kp-alert-service/internal/config"
	"github.com/couchcryptid/kp-alert-service/internal/domain"
)

// NewClient opens a Firestore client for the configured project.
// FIREBASE_SERVICE_ACCOUNT may hold either a path to a service account key
// or the key JSON itself; when empty, application default credentials apply.
func NewClient(ctx context.Context, cfg *config.Config) (*gfirestore.Client, error) {
	var opts []option.ClientOption
	if creds := strings.TrimSpace(cfg.FirestoreCredentials); creds != "" {
		if strings.HasPrefix(creds, "{") {
			opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
		} else {
			opts = append(opts, option.WithCredentialsFile(creds))
		}
	}

	client, err := gfirestore.NewClient(ctx, cfg.FirestoreProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: firestore client: %w", domain.ErrConfiguration, err)
	}
	return client, nil
}
