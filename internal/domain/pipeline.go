package domain

import (
	"context"
	"time"
)

// ProcessingState is a terminal state of the check-in pipeline.
type ProcessingState string

const (
	StateNotifySent     ProcessingState = "notify_sent"
	StateNoMatch        ProcessingState = "no_match"
	StateDuplicate      ProcessingState = "duplicate"
	StateInvalidMessage ProcessingState = "invalid_message"
	StateDirectoryError ProcessingState = "directory_error"
	StateContactMissing ProcessingState = "contact_missing"
	StateDispatchFailed ProcessingState = "dispatch_failed"
)

// Failed reports whether the state is a failure outcome.
func (s ProcessingState) Failed() bool {
	switch s {
	case StateNotifySent, StateNoMatch, StateDuplicate:
		return false
	default:
		return true
	}
}

// Outcome is the result of driving one check-in through the pipeline.
type Outcome struct {
	State    ProcessingState
	Decision MatchDecision
	Err      error
}

// Failed reports whether processing ended in a failure state.
func (o Outcome) Failed() bool { return o.State.Failed() }

// CheckinProcessor drives check-ins through lookup, match, contact and notify.
type CheckinProcessor interface {
	Process(ctx context.Context, event *CheckinEvent) Outcome
	HandleMessage(ctx context.Context, body []byte) Outcome
}

// ProcessedStore holds short-lived "already notified" markers keyed by
// CheckinEvent.DedupKey. Claim returns false when the key is already held.
type ProcessedStore interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}
