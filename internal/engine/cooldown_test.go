package engine_test

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/kp-alert-service/internal/domain"
	"github.com/couchcryptid/kp-alert-service/internal/engine"
)

func TestCooldownPolicy_Name(t *testing.T) {
	h := newCooldownHarness(5)
	p := engine.NewCooldownPolicy(h.store, h.dispatcher, h.store, h.clock, slog.Default(), h.metrics, engine.CooldownConfig{})
	assert.Equal(t, "cooldown", p.Name())
}

func TestCooldownPolicy_DispatchFailureLeavesStateUntouched(t *testing.T) {
	h := newCooldownHarness(6, sub("u1", "a@x.com", 5, ago(2*time.Hour)))
	h.dispatcher.failTo["a@x.com"] = true

	report, err := h.engine.EvaluateCycle(context.Background())
	require.NoError(t, err, "dispatch failures never fail the cycle")

	assert.Equal(t, 1, h.dispatcher.calls)
	assert.Empty(t, h.store.written())
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 0, report.Sent)
	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.Dispatches.WithLabelValues("failed")), 0)

	// Still above threshold: the next tick retries.
	h.dispatcher.failTo["a@x.com"] = false
	h.clock.Advance(15 * time.Minute)
	_, err = h.engine.EvaluateCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com"}, h.dispatcher.sentTo())
	assert.Equal(t, testNow.Add(15*time.Minute), h.store.written()["u1"])
}

func TestCooldownPolicy_FailureIsolatedPerSubscriber(t *testing.T) {
	h := newCooldownHarness(6,
		sub("A", "a@x.com", 5, nil),
		sub("B", "b@x.com", 5, nil),
	)
	h.dispatcher.failTo["a@x.com"] = true

	report, err := h.engine.EvaluateCycle(context.Background())
	require.NoError(t, err)

	written := h.store.written()
	assert.NotContains(t, written, "A")
	assert.Equal(t, testNow, written["B"])
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 1, report.Failed)
}

func TestCooldownPolicy_NoContactNeverDispatched(t *testing.T) {
	tests := []struct {
		name string
		last *time.Time
	}{
		{"never notified", nil},
		{"cooldown elapsed", ago(5 * time.Hour)},
		{"cooldown active", ago(time.Minute)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newCooldownHarness(9, sub("u1", "", 5, tt.last), sub("u2", "   ", 5, tt.last))

			report, err := h.engine.EvaluateCycle(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 0, h.dispatcher.calls)
			assert.Empty(t, h.store.written())
			assert.Equal(t, 2, report.Decisions[domain.ReasonNoContact])
		})
	}
}

func TestCooldownPolicy_CooldownWindow(t *testing.T) {
	h := newCooldownHarness(6, sub("u1", "a@x.com", 5, nil))
	ctx := context.Background()

	_, err := h.engine.EvaluateCycle(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, h.dispatcher.calls)

	h.clock.Advance(30 * time.Minute)
	report, err := h.engine.EvaluateCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, h.dispatcher.calls, "half the window: no dispatch")
	assert.Equal(t, 1, report.Decisions[domain.ReasonCooldownActive])

	h.clock.Advance(60 * time.Minute)
	_, err = h.engine.EvaluateCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, h.dispatcher.calls, "one and a half windows: dispatch")
	assert.Equal(t, testNow.Add(90*time.Minute), h.store.written()["u1"])
}

func TestCooldownPolicy_DipDoesNotResetCooldown(t *testing.T) {
	h := newCooldownHarness(6, sub("u1", "a@x.com", 5, nil))
	ctx := context.Background()

	_, err := h.engine.EvaluateCycle(ctx)
	require.NoError(t, err)

	h.clock.Advance(15 * time.Minute)
	h.source.reading = reading(4)
	_, err = h.engine.EvaluateCycle(ctx)
	require.NoError(t, err)

	h.clock.Advance(15 * time.Minute)
	h.source.reading = reading(6)
	_, err = h.engine.EvaluateCycle(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, h.dispatcher.calls)
}

func TestCooldownPolicy_StateWriteFailureCountsAsSent(t *testing.T) {
	h := newCooldownHarness(6, sub("u1", "a@x.com", 5, nil))
	h.store.writeErr["u1"] = errBoom

	report, err := h.engine.EvaluateCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 1, report.StateWriteFailures)
	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.StateWriteFailures), 0)
}

func TestCooldownPolicy_DisabledSubscribersIgnored(t *testing.T) {
	disabled := sub("off", "off@x.com", 1, nil)
	disabled.AlertsEnabled = false
	h := newCooldownHarness(6, disabled)

	report, err := h.engine.EvaluateCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Subscribers)
	assert.Equal(t, 0, h.dispatcher.calls)
}

func TestCooldownPolicy_DefaultThresholdApplies(t *testing.T) {
	h := newCooldownHarness(4.67, sub("u1", "a@x.com", 0, nil))

	report, err := h.engine.EvaluateCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Decisions[domain.ReasonThresholdNotMet])
	assert.Equal(t, 0, h.dispatcher.calls)
}

func TestCooldownPolicy_ConfiguredDefaultThreshold(t *testing.T) {
	h := newCooldownHarness(4.33,
		sub("u1", "a@x.com", 0, nil),
		sub("u2", "b@x.com", 6, nil),
	)
	policy := engine.NewCooldownPolicy(h.store, h.dispatcher, h.store, h.clock, slog.Default(), h.metrics,
		engine.CooldownConfig{Cooldown: time.Hour, DefaultThreshold: 4})
	eng := engine.New(h.source, policy, h.clock, slog.Default(), h.metrics)

	report, err := eng.EvaluateCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"a@x.com"}, h.dispatcher.sentTo())
	assert.Equal(t, 1, report.Decisions[domain.ReasonEligible])
	assert.Equal(t, 1, report.Decisions[domain.ReasonThresholdNotMet])
	require.Len(t, h.dispatcher.sent, 1)
	assert.Contains(t, h.dispatcher.sent[0].Text, "alert threshold of Kp "+domain.FormatKp(4)+".")
}

func TestCooldownPolicy_ManySubscribersAllDelivered(t *testing.T) {
	subs := make([]domain.Subscriber, 0, 25)
	for i := range 25 {
		subs = append(subs, sub(fmt.Sprintf("u%02d", i), fmt.Sprintf("u%02d@x.com", i), 5, nil))
	}
	h := newCooldownHarness(7, subs...)

	report, err := h.engine.EvaluateCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 25, report.Sent)
	assert.Len(t, h.store.written(), 25)
}
