package domain

import (
	"context"
	"time"
)

// ContactRecord maps a check-in owner to the phone number they registered.
// swagger:model ContactRecord
type ContactRecord struct {
	OwnerID     string    `json:"owner_id"`
	PhoneNumber string    `json:"phone_number"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewContactRecord returns a ContactRecord for the given owner and phone.
func NewContactRecord(ownerID, phone string, updatedAt time.Time) *ContactRecord {
	return &ContactRecord{OwnerID: ownerID, PhoneNumber: phone, UpdatedAt: updatedAt}
}

// ContactRepository defines the interface for phone registration storage.
// GetByOwnerID returns ErrContactNotFound when no record exists.
type ContactRepository interface {
	GetByOwnerID(ctx context.Context, ownerID string) (*ContactRecord, error)
	Save(ctx context.Context, record *ContactRecord) error
}

// ContactResolver resolves a check-in owner to a phone number. Read only.
type ContactResolver interface {
	Resolve(ctx context.Context, ownerID string) (string, error)
}

// TokenIssuer issues bearer tokens whose subject is the owner id.
type TokenIssuer interface {
	Issue(ownerID string, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a token and returns the authenticated owner id.
type TokenVerifier interface {
	Verify(token string) (ownerID string, err error)
}
