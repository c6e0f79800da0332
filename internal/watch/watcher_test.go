package watch

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/kp-alert-service/internal/domain"
	"github.com/couchcryptid/kp-alert-service/internal/observability"
)

var testNow = time.Date(2024, 5, 10, 21, 0, 0, 0, time.UTC)

type sequenceSource struct {
	mu     sync.Mutex
	values []float64
	errAt  map[int]error
	i      int
}

func (s *sequenceSource) LatestKp(_ context.Context) (domain.KpReading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.i
	s.i++
	if err := s.errAt[i]; err != nil {
		return domain.KpReading{}, err
	}
	v := s.values[len(s.values)-1]
	if i < len(s.values) {
		v = s.values[i]
	}
	return domain.KpReading{Value: v, ObservedAt: testNow}, nil
}

// safeBuffer guards a bytes.Buffer shared with the Run goroutine.
type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestWatcher(src *sequenceSource, out io.Writer, clock clockwork.Clock) *Watcher {
	return New(src, 5, 15*time.Minute, clock, out, slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())
}

func TestWatcher_FiresOncePerUpwardCrossing(t *testing.T) {
	var out bytes.Buffer
	src := &sequenceSource{values: []float64{4, 5, 6, 5, 4, 6}}
	w := newTestWatcher(src, &out, clockwork.NewFakeClockAt(testNow))

	var fired []int
	for i := range src.values {
		ok, err := w.Poll(context.Background())
		require.NoError(t, err)
		if ok {
			fired = append(fired, i)
		}
	}

	assert.Equal(t, []int{1, 5}, fired)
	assert.Equal(t, 2, strings.Count(out.String(), bell))
	assert.Contains(t, out.String(), "[2024-05-10 21:00 UTC] Aurora alert: Kp 5 reached your threshold of 5. Minor geomagnetic storm (G1).")
	assert.Equal(t, domain.LatchNotified, w.State())
}

func TestWatcher_FetchFailureLeavesLatch(t *testing.T) {
	var out bytes.Buffer
	src := &sequenceSource{values: []float64{6, 6, math.NaN(), 6}, errAt: map[int]error{1: errors.New("swpc down")}}
	w := newTestWatcher(src, &out, clockwork.NewFakeClockAt(testNow))

	ok, err := w.Poll(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = w.Poll(context.Background())
	require.Error(t, err)
	_, err = w.Poll(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidReading)
	assert.Equal(t, domain.LatchNotified, w.State())

	ok, err = w.Poll(context.Background())
	require.NoError(t, err)
	assert.False(t, ok, "still the same excursion")
	assert.Equal(t, 1, strings.Count(out.String(), bell))
}

func TestWatcher_RunPollsOnInterval(t *testing.T) {
	out := &safeBuffer{}
	clock := clockwork.NewFakeClockAt(testNow)
	src := &sequenceSource{values: []float64{3, 7, 7}}
	w := newTestWatcher(src, out, clock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()
	require.NoError(t, clock.BlockUntilContext(waitCtx, 1), "ticker registered")

	clock.Advance(15 * time.Minute)
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "Kp 7") }, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
