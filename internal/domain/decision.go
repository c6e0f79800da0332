package domain

import "time"

// Reason explains a notification decision.
type Reason string

const (
	ReasonThresholdNotMet Reason = "THRESHOLD_NOT_MET"
	ReasonCooldownActive  Reason = "COOLDOWN_ACTIVE"
	ReasonNoContact       Reason = "NO_CONTACT"
	ReasonEligible        Reason = "ELIGIBLE"
)

// Decision is the per-cycle outcome for one subscriber. It is never persisted.
type Decision struct {
	SubscriberID string `json:"subscriber_id"`
	Eligible     bool   `json:"eligible"`
	Reason       Reason `json:"reason"`
}

// Decide evaluates one subscriber against the current reading. Checks run in
// order: threshold, contact, cooldown. A zero cooldown disables the cooldown check.
func Decide(sub Subscriber, reading KpReading, now time.Time, cooldown time.Duration) Decision {
	d := Decision{SubscriberID: sub.ID}

	switch {
	case reading.Value < sub.Threshold():
		d.Reason = ReasonThresholdNotMet
	case !sub.HasContact():
		d.Reason = ReasonNoContact
	case sub.LastNotifiedAt != nil && now.Sub(*sub.LastNotifiedAt) < cooldown:
		d.Reason = ReasonCooldownActive
	default:
		d.Reason = ReasonEligible
		d.Eligible = true
	}
	return d
}
