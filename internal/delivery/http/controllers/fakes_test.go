package controllers

import (
	"context"
	"io"
	"log/slog"

	"meetuphere/internal/domain"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

// fakeIngestService implements domain.IngestService for handler tests.
type fakeIngestService struct {
	calls []*domain.CheckinPayload
	err   error
}

func (f *fakeIngestService) Accept(ctx context.Context, payload *domain.CheckinPayload) error {
	f.calls = append(f.calls, payload)
	return f.err
}

// fakeProcessor implements domain.CheckinProcessor for handler tests.
type fakeProcessor struct {
	lastBody []byte
	outcome  domain.Outcome
}

func (f *fakeProcessor) Process(ctx context.Context, event *domain.CheckinEvent) domain.Outcome {
	return f.outcome
}

func (f *fakeProcessor) HandleMessage(ctx context.Context, body []byte) domain.Outcome {
	f.lastBody = body
	return f.outcome
}

// fakeContactRepo implements domain.ContactRepository for handler tests.
type fakeContactRepo struct {
	records map[string]*domain.ContactRecord
	getErr  error
	saveErr error
	saved   *domain.ContactRecord
}

func (f *fakeContactRepo) GetByOwnerID(ctx context.Context, ownerID string) (*domain.ContactRecord, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	r, ok := f.records[ownerID]
	if !ok {
		return nil, domain.ErrContactNotFound
	}
	return r, nil
}

func (f *fakeContactRepo) Save(ctx context.Context, record *domain.ContactRecord) error {
	f.saved = record
	return f.saveErr
}
