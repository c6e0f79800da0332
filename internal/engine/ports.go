package engine

import (
	"context"
	"time"

	"github.com/couchcryptid/kp-alert-service/internal/domain"
)

// KpSource fetches the current planetary Kp reading.
type KpSource interface {
	LatestKp(ctx context.Context) (domain.KpReading, error)
}

// Directory lists subscribers with alerting enabled.
type Directory interface {
	ListAlertSubscribers(ctx context.Context) ([]domain.Subscriber, error)
}

// DigestDirectory lists subscribers with alerting enabled whose stored
// threshold is at or below kp.
type DigestDirectory interface {
	ListSubscribersAtOrBelow(ctx context.Context, kp float64) ([]domain.Subscriber, error)
}

// Dispatcher delivers a single notification.
type Dispatcher interface {
	Send(ctx context.Context, n domain.Notification) error
}

// StateWriter records when a subscriber was last notified. Implementations
// must update only that field.
type StateWriter interface {
	SetLastNotifiedAt(ctx context.Context, subscriberID string, at time.Time) error
}

// Mailbox enqueues messages for an external delivery pipeline in one batched
// write. The batch is not atomic: Enqueue returns how many messages were
// accepted, which may be non-zero alongside an error.
type Mailbox interface {
	Enqueue(ctx context.Context, msgs []domain.MailboxMessage) (int, error)
}

// Policy decides who to notify for a reading and performs the notification.
type Policy interface {
	Name() string
	Notify(ctx context.Context, reading domain.KpReading) (PolicyReport, error)
}
