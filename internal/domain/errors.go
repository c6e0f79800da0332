package domain

import "errors"

var (
	// ErrFetchFailure marks a cycle aborted because the Kp source was
	// unreachable or returned an unusable payload.
	ErrFetchFailure = errors.New("kp fetch failure")

	// ErrInvalidReading is returned for non-numeric or out-of-range Kp values.
	ErrInvalidReading = errors.New("invalid kp reading")

	// ErrDirectoryFailure marks a cycle aborted because subscribers could not be listed.
	ErrDirectoryFailure = errors.New("subscriber directory failure")

	// ErrDispatchFailure marks a single failed send or enqueue.
	ErrDispatchFailure = errors.New("notification dispatch failure")

	// ErrConfiguration marks a fatal startup misconfiguration.
	ErrConfiguration = errors.New("configuration error")
)
