package engine

import (
	"time"

	"github.com/couchcryptid/kp-alert-service/internal/domain"
)

// Cycle outcomes, also used as the metrics label.
const (
	OutcomeOK             = "ok"
	OutcomeFetchError     = "fetch_error"
	OutcomeDirectoryError = "directory_error"
	OutcomePolicyError    = "policy_error"
)

// PolicyReport summarizes what a policy did with one reading.
type PolicyReport struct {
	Policy             string                `json:"policy"`
	Subscribers        int                   `json:"subscribers"`
	Decisions          map[domain.Reason]int `json:"decisions"`
	Sent               int                   `json:"sent"`
	Failed             int                   `json:"failed"`
	StateWriteFailures int                   `json:"state_write_failures"`
	Enqueued           int                   `json:"enqueued"`
}

func newPolicyReport(name string) PolicyReport {
	return PolicyReport{Policy: name, Decisions: make(map[domain.Reason]int)}
}

// CycleReport describes one evaluation cycle. Served as JSON on /status.
type CycleReport struct {
	ID         string            `json:"id"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Reading    *domain.KpReading `json:"reading,omitempty"`
	Outcome    string            `json:"outcome"`
	Error      string            `json:"error,omitempty"`
	PolicyReport
}
