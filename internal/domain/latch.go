package domain

// LatchState is the state of a ThresholdLatch.
type LatchState int

const (
	LatchArmed LatchState = iota
	LatchNotified
)

func (s LatchState) String() string {
	if s == LatchNotified {
		return "notified"
	}
	return "armed"
}

// ThresholdLatch fires once per upward crossing of a threshold. It re-arms
// when a reading falls below the threshold. The zero value is not usable;
// construct with NewThresholdLatch.
type ThresholdLatch struct {
	threshold float64
	state     LatchState
}

// NewThresholdLatch returns an armed latch for threshold.
func NewThresholdLatch(threshold float64) *ThresholdLatch {
	return &ThresholdLatch{threshold: threshold, state: LatchArmed}
}

// Observe feeds the latest reading and reports whether the latch fired.
func (l *ThresholdLatch) Observe(kp float64) bool {
	if kp < l.threshold {
		l.state = LatchArmed
		return false
	}
	if l.state == LatchNotified {
		return false
	}
	l.state = LatchNotified
	return true
}

// State returns the current latch state.
func (l *ThresholdLatch) State() LatchState { return l.state }

// Threshold returns the configured threshold.
func (l *ThresholdLatch) Threshold() float64 { return l.threshold }
