package engine_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/couchcryptid/kp-alert-service/internal/domain"
)

var errBoom = errors.New("boom")

// --- mocks ---

type fakeSource struct {
	reading domain.KpReading
	err     error
	calls   int
}

func (f *fakeSource) LatestKp(_ context.Context) (domain.KpReading, error) {
	f.calls++
	return f.reading, f.err
}

// fakeStore is an in-memory subscriber directory that also records
// lastNotifiedAt writes, so subsequent cycles observe them.
type fakeStore struct {
	mu       sync.Mutex
	subs     []domain.Subscriber
	listErr  error
	writeErr map[string]error
	writes   map[string]time.Time
	lists    int
	kpQuery  float64
}

func newFakeStore(subs ...domain.Subscriber) *fakeStore {
	return &fakeStore{subs: subs, writes: make(map[string]time.Time), writeErr: make(map[string]error)}
}

func (s *fakeStore) ListAlertSubscribers(_ context.Context) ([]domain.Subscriber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists++
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]domain.Subscriber, 0, len(s.subs))
	for _, sub := range s.subs {
		if !sub.AlertsEnabled {
			continue
		}
		if at, ok := s.writes[sub.ID]; ok {
			sub.LastNotifiedAt = &at
		}
		out = append(out, sub)
	}
	return out, nil
}

func (s *fakeStore) ListSubscribersAtOrBelow(ctx context.Context, kp float64) ([]domain.Subscriber, error) {
	all, err := s.ListAlertSubscribers(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.kpQuery = kp
	s.mu.Unlock()
	out := all[:0]
	for _, sub := range all {
		if sub.KpThreshold <= kp {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (s *fakeStore) SetLastNotifiedAt(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeErr[id]; err != nil {
		return err
	}
	s.writes[id] = at
	return nil
}

func (s *fakeStore) written() map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]time.Time, len(s.writes))
	for k, v := range s.writes {
		out[k] = v
	}
	return out
}

type fakeDispatcher struct {
	mu     sync.Mutex
	failTo map[string]bool
	sent   []domain.Notification
	calls  int
}

func (d *fakeDispatcher) Send(_ context.Context, n domain.Notification) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.failTo[n.To] {
		return errBoom
	}
	d.sent = append(d.sent, n)
	return nil
}

func (d *fakeDispatcher) sentTo() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.sent))
	for _, n := range d.sent {
		out = append(out, n.To)
	}
	sort.Strings(out)
	return out
}

type fakeMailbox struct {
	err      error
	accepted int // messages accepted alongside err
	batches  [][]domain.MailboxMessage
}

func (m *fakeMailbox) Enqueue(_ context.Context, msgs []domain.MailboxMessage) (int, error) {
	m.batches = append(m.batches, msgs)
	if m.err != nil {
		return m.accepted, m.err
	}
	return len(msgs), nil
}

// --- helpers ---

var testNow = time.Date(2024, 5, 10, 21, 0, 0, 0, time.UTC)

func reading(v float64) domain.KpReading {
	return domain.KpReading{Value: v, ObservedAt: testNow.Add(-5 * time.Minute)}
}

func ago(d time.Duration) *time.Time {
	t := testNow.Add(-d)
	return &t
}

func sub(id, contact string, threshold float64, last *time.Time) domain.Subscriber {
	return domain.Subscriber{
		ID:             id,
		ContactAddress: contact,
		AlertsEnabled:  true,
		KpThreshold:    threshold,
		LastNotifiedAt: last,
	}
}
