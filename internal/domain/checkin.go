package domain

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/crypto/blake2b"
)

// CheckinEvent is the normalized check-in carried on the queue.
// The wire shape is {"fid","lat","lng"}; checkin_id and created_at are optional.
type CheckinEvent struct {
	OwnerID   string  `json:"fid"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
	CheckinID string  `json:"checkin_id,omitempty"`
	CreatedAt int64   `json:"created_at,omitempty"`
}

// CheckinPayload is an inbound check-in before validation. Coordinates are
// pointers so that absent and null values can be told apart from zero.
type CheckinPayload struct {
	OwnerID   string   `validate:"required"`
	Latitude  *float64 `validate:"required,latitude"`
	Longitude *float64 `validate:"required,longitude"`
	CheckinID string
	CreatedAt int64
}

// Event builds the queue event. Call only after the payload has been validated.
func (p *CheckinPayload) Event() *CheckinEvent {
	return &CheckinEvent{
		OwnerID:   p.OwnerID,
		Latitude:  *p.Latitude,
		Longitude: *p.Longitude,
		CheckinID: p.CheckinID,
		CreatedAt: p.CreatedAt,
	}
}

// checkinWire mirrors CheckinEvent with pointer coordinates for decoding.
type checkinWire struct {
	OwnerID   string   `json:"fid"`
	Latitude  *float64 `json:"lat"`
	Longitude *float64 `json:"lng"`
	CheckinID string   `json:"checkin_id"`
	CreatedAt int64    `json:"created_at"`
}

// DecodeCheckinEvent parses a queue message body. Bodies missing the owner
// or either coordinate are rejected with ErrInvalidMessage.
func DecodeCheckinEvent(body []byte) (*CheckinEvent, error) {
	var w checkinWire
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if w.OwnerID == "" {
		return nil, fmt.Errorf("%w: fid is required", ErrInvalidMessage)
	}
	if w.Latitude == nil || w.Longitude == nil {
		return nil, fmt.Errorf("%w: lat and lng are required", ErrInvalidMessage)
	}
	return &CheckinEvent{
		OwnerID:   w.OwnerID,
		Latitude:  *w.Latitude,
		Longitude: *w.Longitude,
		CheckinID: w.CheckinID,
		CreatedAt: w.CreatedAt,
	}, nil
}

// DedupKey identifies a check-in across redeliveries. It prefers the
// upstream check-in id and falls back to timestamp plus coordinates.
func (e *CheckinEvent) DedupKey() string {
	var src string
	if e.CheckinID != "" {
		src = e.OwnerID + "|" + e.CheckinID
	} else {
		src = e.OwnerID + "|" + strconv.FormatInt(e.CreatedAt, 10) + "|" +
			strconv.FormatFloat(e.Latitude, 'f', -1, 64) + "|" +
			strconv.FormatFloat(e.Longitude, 'f', -1, 64)
	}
	sum := blake2b.Sum256([]byte(src))
	return hex.EncodeToString(sum[:])
}

// CheckinQueue is the producer side of the durable check-in queue.
type CheckinQueue interface {
	Enqueue(ctx context.Context, event *CheckinEvent) error
}

// Delivery is one message received from the queue. Ack removes it for good;
// Nack hands it back to the transport (redelivery or dead-letter).
type Delivery interface {
	ID() string
	Body() []byte
	Ack(ctx context.Context) error
	Nack(ctx context.Context) error
}

// CheckinSource is the consumer side of the queue. Receive blocks until at
// least one message is available, the transport's wait time elapses, or ctx ends.
// An error wrapping ErrSourceClosed means the source cannot recover.
type CheckinSource interface {
	Receive(ctx context.Context) ([]Delivery, error)
}

// IngestService validates inbound check-ins and enqueues them.
type IngestService interface {
	Accept(ctx context.Context, payload *CheckinPayload) error
}
