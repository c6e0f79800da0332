package firestore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gfirestore "cloud.google.com/go/firestore"

	"github.com/couchcryptid/kp-alert-service/internal/domain"
)

// Directory reads alert subscribers from the users collection and records
// when each was last notified.
type Directory struct {
	client *gfirestore.Client
	users  string
	logger *slog.Logger
}

// NewDirectory creates a subscriber directory over the given users collection.
func NewDirectory(client *gfirestore.Client, usersCollection string, logger *slog.Logger) *Directory {
	return &Directory{client: client, users: usersCollection, logger: logger}
}

// ListAlertSubscribers returns every user with email alerts enabled.
func (d *Directory) ListAlertSubscribers(ctx context.Context) ([]domain.Subscriber, error) {
	q := d.client.Collection(d.users).Where(fieldEmailAlerts, "==", true)
	return d.collect(ctx, q)
}

// ListSubscribersAtOrBelow returns users with email alerts enabled whose
// stored threshold is at or below kp. Users without a stored threshold are
// not matched by the query.
func (d *Directory) ListSubscribersAtOrBelow(ctx context.Context, kp float64) ([]domain.Subscriber, error) {
	q := d.client.Collection(d.users).
		Where(fieldEmailAlerts, "==", true).
		Where(fieldKpThreshold, "<=", kp)
	return d.collect(ctx, q)
}

// SetLastNotifiedAt updates only lastAlertSent, leaving every other field intact.
func (d *Directory) SetLastNotifiedAt(ctx context.Context, subscriberID string, at time.Time) error {
	_, err := d.client.Collection(d.users).Doc(subscriberID).Update(ctx, []gfirestore.Update{
		{Path: fieldLastAlertSent, Value: at},
	})
	if err != nil {
		return fmt.Errorf("update %s for %s: %w", fieldLastAlertSent, subscriberID, err)
	}
	return nil
}

func (d *Directory) collect(ctx context.Context, q gfirestore.Query) ([]domain.Subscriber, error) {
	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", d.users, err)
	}

	subs := make([]domain.Subscriber, 0, len(docs))
	for _, doc := range docs {
		if raw, err := doc.DataAt(fieldKpThreshold); err == nil && raw != nil {
			if _, ok := numeric(raw); !ok {
				d.logger.Warn("non-numeric kp threshold, using default", "subscriber_id", doc.Ref.ID, "value", raw)
			}
		}
		subs = append(subs, subscriberFromData(doc.Ref.ID, doc.Data()))
	}
	return subs, nil
}
