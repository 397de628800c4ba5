package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"meetuphere/internal/domain"
)

type notifier struct {
	logger *slog.Logger
	sender domain.SMSSender
	from   string
}

// NewNotifier returns a Notifier that sends through the given SMS gateway,
// using from as the sender number or id.
func NewNotifier(logger *slog.Logger, sender domain.SMSSender, from string) domain.Notifier {
	return &notifier{logger: logger, sender: sender, from: from}
}

// Notify builds the message body for event and dispatches it to phone.
func (n *notifier) Notify(ctx context.Context, phone string, event domain.CandidateEvent) error {
	if phone == "" {
		return fmt.Errorf("%w: empty destination", domain.ErrDispatch)
	}
	msg := domain.NotificationMessage{
		To:   normalizePhone(phone),
		From: n.from,
		Body: MessageBody(event),
	}
	id, err := n.sender.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDispatch, err)
	}
	n.logger.Info("sms dispatched", "event", event.Name, "message_id", id)
	return nil
}

// MessageBody renders the SMS text for a matched event.
func MessageBody(event domain.CandidateEvent) string {
	if event.Status == domain.StatusUpcoming {
		return fmt.Sprintf("%s is hosting an upcoming Meetup here: %s\n%s", event.GroupName, event.Name, event.URL)
	}
	return fmt.Sprintf("%s recently had a Meetup here: %s\n%s", event.GroupName, event.Name, event.URL)
}

// normalizePhone adds the E.164 "+" prefix; older registrations were stored without it.
func normalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if strings.HasPrefix(phone, "+") {
		return phone
	}
	return "+" + phone
}
