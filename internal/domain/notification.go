package domain

import "context"

// NotificationMessage is a single outbound SMS. It is never persisted.
type NotificationMessage struct {
	To   string
	From string
	Body string
}

// SMSSender defines the contract for the SMS gateway (infrastructure port).
// It returns the gateway's message id on success.
type SMSSender interface {
	Send(ctx context.Context, msg NotificationMessage) (string, error)
}

// Notifier formats and dispatches the notification for a matched event.
type Notifier interface {
	Notify(ctx context.Context, phone string, event CandidateEvent) error
}
