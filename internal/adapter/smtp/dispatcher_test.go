package smtp

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"github.com/couchcryptid/kp-alert-service/internal/config"
	"github.com/couchcryptid/kp-alert-service/internal/domain"
)

type recordingSender struct {
	mu   sync.Mutex
	err  error
	msgs []*mail.Msg
}

func (r *recordingSender) DialAndSendWithContext(_ context.Context, msgs ...*mail.Msg) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msgs...)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testNotification() domain.Notification {
	return domain.Notification{
		SubscriberID: "u1",
		To:           "a@x.com",
		Subject:      "Aurora Alert: Kp Index reached 7!",
		Text:         "The current Kp index has reached 7.",
		HTML:         "<p>The current <b>Kp index has reached 7</b>.</p>",
	}
}

func TestDispatcher_Send_ComposesMultipartMessage(t *testing.T) {
	rec := &recordingSender{}
	d := newDispatcher(rec, "alerts@example.com", 10, discardLogger())

	require.NoError(t, d.Send(context.Background(), testNotification()))
	require.Len(t, rec.msgs, 1)

	var buf bytes.Buffer
	_, err := rec.msgs[0].WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()

	assert.Contains(t, raw, `"Solar Dash Alerts" <alerts@example.com>`)
	assert.Contains(t, raw, "<a@x.com>")
	assert.Contains(t, raw, "Subject: Aurora Alert: Kp Index reached 7!")
	assert.Contains(t, raw, "multipart/alternative")
	assert.Contains(t, raw, "text/plain")
	assert.Contains(t, raw, "text/html")
}

func TestDispatcher_Send_FailureWrapsDispatchError(t *testing.T) {
	rec := &recordingSender{err: errors.New("535 authentication failed")}
	d := newDispatcher(rec, "alerts@example.com", 10, discardLogger())

	err := d.Send(context.Background(), testNotification())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDispatchFailure)
	assert.Contains(t, err.Error(), "535")
}

func TestDispatcher_Send_InvalidRecipient(t *testing.T) {
	rec := &recordingSender{}
	d := newDispatcher(rec, "alerts@example.com", 10, discardLogger())

	n := testNotification()
	n.To = "not an address"
	err := d.Send(context.Background(), n)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDispatchFailure)
	assert.Empty(t, rec.msgs)
}

func TestDispatcher_Send_RateLimitHonorsContext(t *testing.T) {
	rec := &recordingSender{}
	d := newDispatcher(rec, "alerts@example.com", 0.01, discardLogger())

	require.NoError(t, d.Send(context.Background(), testNotification()), "burst of one")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := d.Send(ctx, testNotification())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDispatchFailure)
	assert.Len(t, rec.msgs, 1)
}

func TestNewDispatcher_BuildsClient(t *testing.T) {
	for _, port := range []int{465, 587} {
		cfg := &config.Config{
			SMTPHost:        "smtp.example.com",
			SMTPPort:        port,
			SMTPUser:        "alerts@example.com",
			SMTPPass:        "secret",
			SMTPFrom:        "alerts@example.com",
			SMTPRatePerSec:  5,
			DispatchTimeout: 10 * time.Second,
		}
		d, err := NewDispatcher(cfg, discardLogger())
		require.NoError(t, err)
		assert.NotNil(t, d)
	}
}

func TestNewDispatcher_EmptyHost(t *testing.T) {
	_, err := NewDispatcher(&config.Config{SMTPPort: 587, SMTPRatePerSec: 1, DispatchTimeout: time.Second}, discardLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
