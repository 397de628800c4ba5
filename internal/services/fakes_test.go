package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"meetuphere/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeDirectory implements domain.EventDirectory for tests.
type fakeDirectory struct {
	events []domain.CandidateEvent
	err    error
	calls  int
}

func (f *fakeDirectory) Lookup(ctx context.Context, lat, lng float64) ([]domain.CandidateEvent, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

// fakeResolver implements domain.ContactResolver for tests.
type fakeResolver struct {
	phones map[string]string
	err    error
	calls  int
}

func (f *fakeResolver) Resolve(ctx context.Context, ownerID string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	phone, ok := f.phones[ownerID]
	if !ok {
		return "", domain.ErrContactNotFound
	}
	return phone, nil
}

type sentNotification struct {
	phone string
	event domain.CandidateEvent
}

// fakeNotifier implements domain.Notifier for tests.
type fakeNotifier struct {
	sent []sentNotification
	err  error
}

func (f *fakeNotifier) Notify(ctx context.Context, phone string, event domain.CandidateEvent) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentNotification{phone: phone, event: event})
	return nil
}

// fakeSender implements domain.SMSSender for tests.
type fakeSender struct {
	msgs []domain.NotificationMessage
	err  error
}

func (f *fakeSender) Send(ctx context.Context, msg domain.NotificationMessage) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.msgs = append(f.msgs, msg)
	return "SM123", nil
}

// fakeProcessed implements domain.ProcessedStore for tests.
type fakeProcessed struct {
	mu       sync.Mutex
	keys     map[string]bool
	claimErr error
	released []string
}

func newFakeProcessed() *fakeProcessed {
	return &fakeProcessed{keys: make(map[string]bool)}
}

func (f *fakeProcessed) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimErr != nil {
		return false, f.claimErr
	}
	if f.keys[key] {
		return false, nil
	}
	f.keys[key] = true
	return true, nil
}

func (f *fakeProcessed) Release(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.keys, key)
	f.released = append(f.released, key)
	return nil
}

// fakeQueue implements domain.CheckinQueue for tests.
type fakeQueue struct {
	events []*domain.CheckinEvent
	err    error
}

func (f *fakeQueue) Enqueue(ctx context.Context, event *domain.CheckinEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

// fakeContactRepo implements domain.ContactRepository for tests.
type fakeContactRepo struct {
	records map[string]*domain.ContactRecord
	err     error
}

func (f *fakeContactRepo) GetByOwnerID(ctx context.Context, ownerID string) (*domain.ContactRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	rec, ok := f.records[ownerID]
	if !ok {
		return nil, domain.ErrContactNotFound
	}
	return rec, nil
}

func (f *fakeContactRepo) Save(ctx context.Context, record *domain.ContactRecord) error {
	if f.err != nil {
		return f.err
	}
	f.records[record.OwnerID] = record
	return nil
}
