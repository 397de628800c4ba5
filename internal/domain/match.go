package domain

import "context"

// DefaultMatchThreshold is the largest directory distance still considered
// "at" the check-in venue. The unit is whatever the directory reports.
const DefaultMatchThreshold = 0.05

// EventStatus is the directory's lifecycle status for an event.
type EventStatus string

const (
	StatusUpcoming EventStatus = "upcoming"
	StatusPast     EventStatus = "past"
	StatusOther    EventStatus = "other"
)

// ParseEventStatus maps a raw directory status onto EventStatus.
// Anything other than upcoming or past becomes StatusOther.
func ParseEventStatus(s string) EventStatus {
	switch EventStatus(s) {
	case StatusUpcoming, StatusPast:
		return EventStatus(s)
	default:
		return StatusOther
	}
}

// Notifiable reports whether events with this status may trigger an SMS.
func (s EventStatus) Notifiable() bool {
	return s == StatusUpcoming || s == StatusPast
}

// CandidateEvent is a nearby event returned by the directory.
type CandidateEvent struct {
	Name      string      `json:"name"`
	URL       string      `json:"url"`
	GroupName string      `json:"group_name"`
	Distance  float64     `json:"distance"`
	Status    EventStatus `json:"status"`
}

// MissingFields lists the message fields the notifier needs but the directory left empty.
func (c CandidateEvent) MissingFields() []string {
	var missing []string
	if c.Name == "" {
		missing = append(missing, "name")
	}
	if c.URL == "" {
		missing = append(missing, "event_url")
	}
	if c.GroupName == "" {
		missing = append(missing, "group.name")
	}
	return missing
}

// MatchDecision is the Geo-Match result for one check-in.
type MatchDecision struct {
	Matched bool            `json:"matched"`
	Event   *CandidateEvent `json:"event,omitempty"`
	Notify  bool            `json:"notify"`
}

// EventDirectory looks up events near a coordinate, nearest first.
type EventDirectory interface {
	Lookup(ctx context.Context, lat, lng float64) ([]CandidateEvent, error)
}
