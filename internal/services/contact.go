package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"meetuphere/internal/domain"
)

type contactResolver struct {
	repo domain.ContactRepository
}

// NewContactResolver returns a read-only ContactResolver backed by repo.
func NewContactResolver(repo domain.ContactRepository) domain.ContactResolver {
	return &contactResolver{repo: repo}
}

func (r *contactResolver) Resolve(ctx context.Context, ownerID string) (string, error) {
	if ownerID == "" {
		return "", fmt.Errorf("%w: empty owner id", domain.ErrContactNotFound)
	}
	rec, err := r.repo.GetByOwnerID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, domain.ErrContactNotFound) {
			return "", err
		}
		return "", fmt.Errorf("failed to load contact for %s: %w", ownerID, err)
	}
	phone := strings.TrimSpace(rec.PhoneNumber)
	if phone == "" {
		return "", fmt.Errorf("%w: empty phone for %s", domain.ErrContactNotFound, ownerID)
	}
	return phone, nil
}
