package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/kp-alert-service/internal/adapter/http"
	"github.com/couchcryptid/kp-alert-service/internal/domain"
	"github.com/couchcryptid/kp-alert-service/internal/engine"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockStatus struct {
	report *engine.CycleReport
}

func (m *mockStatus) LastReport() (engine.CycleReport, bool) {
	if m.report == nil {
		return engine.CycleReport{}, false
	}
	return *m.report, true
}

func newTestServer(readyErr error, report *engine.CycleReport) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, &mockStatus{report: report}, slog.Default())
}

func get(srv *httpadapter.Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := get(newTestServer(nil, nil), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := get(newTestServer(nil, nil), "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := get(newTestServer(fmt.Errorf("no evaluation cycle has completed yet"), nil), "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(newTestServer(nil, nil), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestStatusBeforeFirstCycle(t *testing.T) {
	rec := get(newTestServer(nil, nil), "/status")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatusReturnsLastReport(t *testing.T) {
	at := time.Date(2024, 5, 10, 21, 0, 0, 0, time.UTC)
	report := &engine.CycleReport{
		ID:         "c-1",
		StartedAt:  at,
		FinishedAt: at.Add(2 * time.Second),
		Reading:    &domain.KpReading{Value: 6.67, ObservedAt: at},
		Outcome:    engine.OutcomeOK,
		PolicyReport: engine.PolicyReport{
			Policy:      "cooldown",
			Subscribers: 3,
			Decisions:   map[domain.Reason]int{domain.ReasonEligible: 1, domain.ReasonCooldownActive: 2},
			Sent:        1,
		},
	}

	rec := get(newTestServer(nil, report), "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "c-1", body["id"])
	assert.Equal(t, "ok", body["outcome"])
	assert.Equal(t, "cooldown", body["policy"])
	assert.InDelta(t, 1, body["sent"], 0)
	assert.Equal(t, map[string]any{"ELIGIBLE": 1.0, "COOLDOWN_ACTIVE": 2.0}, body["decisions"])
	reading := body["reading"].(map[string]any)
	assert.InDelta(t, 6.67, reading["kp"], 1e-9)
}
