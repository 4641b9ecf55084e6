package model

import "errors"

var (
	// ErrMalformedRecord marks an upstream record missing required fields.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrUpstreamUnavailable marks an upstream that could not be reached or
	// answered with something unusable.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrAuth marks rejected credentials.
	ErrAuth = errors.New("authentication failed")
	// ErrRateLimited marks an exhausted request budget.
	ErrRateLimited = errors.New("rate limited")
)

// SinkError is returned when the target calendar rejects an event.
type SinkError struct {
	EventID string
	Cause   string
	Err     error
}

func (e *SinkError) Error() string {
	if e.EventID == "" {
		return "event commit failed: " + e.Cause
	}
	return "event " + e.EventID + " commit failed: " + e.Cause
}

func (e *SinkError) Unwrap() error {
	return e.Err
}
