package domain

import "errors"

// Sentinel errors for the check-in pipeline. Adapters wrap these with
// fmt.Errorf("%w: ...") so callers can match them with errors.Is.
var (
	ErrValidation      = errors.New("invalid check-in")
	ErrEnqueue         = errors.New("enqueue failed")
	ErrInvalidMessage  = errors.New("invalid queue message")
	ErrDirectory       = errors.New("directory lookup failed")
	ErrContactNotFound = errors.New("contact not found")
	ErrDispatch        = errors.New("notification dispatch failed")
	ErrSourceClosed    = errors.New("queue source closed")
)
