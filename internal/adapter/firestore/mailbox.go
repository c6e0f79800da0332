package firestore

import (
	"context"
	"errors"
	"fmt"

	gfirestore "cloud.google.com/go/firestore"

	"github.com/couchcryptid/kp-alert-service/internal/domain"
)

// Mailbox writes outbound messages into a mail collection watched by the
// Trigger Email extension.
type Mailbox struct {
	client     *gfirestore.Client
	collection string
}

// NewMailbox creates a mailbox over the given collection.
func NewMailbox(client *gfirestore.Client, collection string) *Mailbox {
	return &Mailbox{client: client, collection: collection}
}

// Enqueue creates one auto-ID document per message through a single bulk
// writer and returns how many documents were created. Bulk writes are not
// atomic, so some documents may exist even when an error is returned.
func (m *Mailbox) Enqueue(ctx context.Context, msgs []domain.MailboxMessage) (int, error) {
	if len(msgs) == 0 {
		return 0, nil
	}

	bw := m.client.BulkWriter(ctx)
	jobs := make([]*gfirestore.BulkWriterJob, 0, len(msgs))
	for _, msg := range msgs {
		job, err := bw.Create(m.client.Collection(m.collection).NewDoc(), newMailDocument(msg))
		if err != nil {
			bw.End()
			// Jobs queued before the failure were still flushed by End.
			return countCreated(jobs), fmt.Errorf("%w: queue mail for %s: %w", domain.ErrDispatchFailure, msg.To, err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	var errs []error
	for i, job := range jobs {
		if _, err := job.Results(); err != nil {
			errs = append(errs, fmt.Errorf("mail for %s: %w", msgs[i].To, err))
		}
	}
	created := len(jobs) - len(errs)
	if len(errs) > 0 {
		return created, fmt.Errorf("%w: %d of %d mail documents failed: %w",
			domain.ErrDispatchFailure, len(errs), len(jobs), errors.Join(errs...))
	}
	return created, nil
}

func countCreated(jobs []*gfirestore.BulkWriterJob) int {
	n := 0
	for _, job := range jobs {
		if _, err := job.Results(); err == nil {
			n++
		}
	}
	return n
}
