package services

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"meetuphere/internal/domain"
)

type ingestService struct {
	queue    domain.CheckinQueue
	validate *validator.Validate
}

// NewIngestService returns an IngestService that validates payloads with v
// and writes accepted check-ins to queue.
func NewIngestService(queue domain.CheckinQueue, v *validator.Validate) domain.IngestService {
	if v == nil {
		v = validator.New()
	}
	return &ingestService{queue: queue, validate: v}
}

// Accept enqueues one check-in. Payloads without an owner or coordinates
// return ErrValidation and are never written to the queue.
func (s *ingestService) Accept(ctx context.Context, payload *domain.CheckinPayload) error {
	if payload == nil {
		return fmt.Errorf("%w: empty payload", domain.ErrValidation)
	}
	if err := s.validate.Struct(payload); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := s.queue.Enqueue(ctx, payload.Event()); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrEnqueue, err)
	}
	return nil
}
