package domain

import (
	"math"
	"strings"
	"time"
)

// DefaultKpThreshold applies when a subscriber has no usable threshold.
const DefaultKpThreshold = 5.0

// Subscriber is a directory record for a user who may receive Kp alerts.
// LastNotifiedAt is nil when the subscriber has never been notified.
type Subscriber struct {
	ID             string
	ContactAddress string
	AlertsEnabled  bool
	KpThreshold    float64
	LastNotifiedAt *time.Time
}

// Threshold returns the subscriber's Kp threshold. Zero, negative, NaN and
// values above MaxKp fall back to DefaultKpThreshold; a stored zero is
// indistinguishable from an absent setting.
func (s Subscriber) Threshold() float64 {
	return s.ThresholdOr(DefaultKpThreshold)
}

// ThresholdOr is Threshold with a caller-supplied fallback. An unusable
// fallback is itself replaced by DefaultKpThreshold.
func (s Subscriber) ThresholdOr(fallback float64) float64 {
	if usableThreshold(s.KpThreshold) {
		return s.KpThreshold
	}
	if usableThreshold(fallback) {
		return fallback
	}
	return DefaultKpThreshold
}

// WithDefaultThreshold returns a copy whose KpThreshold is resolved against
// fallback, so later Threshold calls agree with it.
func (s Subscriber) WithDefaultThreshold(fallback float64) Subscriber {
	s.KpThreshold = s.ThresholdOr(fallback)
	return s
}

func usableThreshold(t float64) bool {
	return !math.IsNaN(t) && t > 0 && t <= MaxKp
}

// HasContact reports whether the subscriber has a non-blank contact address.
func (s Subscriber) HasContact() bool {
	return strings.TrimSpace(s.ContactAddress) != ""
}
