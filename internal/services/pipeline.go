package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"meetuphere/internal/domain"
)

// PipelineConfig holds the tunables of the check-in pipeline.
type PipelineConfig struct {
	// Threshold is the match distance limit; zero means DefaultMatchThreshold.
	Threshold float64
	// StageTimeout bounds each outbound call; zero disables it.
	StageTimeout time.Duration
	// DedupTTL is how long a processed marker is kept.
	DedupTTL time.Duration
}

type checkinPipeline struct {
	logger    *slog.Logger
	directory domain.EventDirectory
	contacts  domain.ContactResolver
	notifier  domain.Notifier
	processed domain.ProcessedStore
	cfg       PipelineConfig
}

// NewCheckinPipeline wires the pipeline stages. processed may be nil, in
// which case redelivered messages are not deduplicated.
func NewCheckinPipeline(
	logger *slog.Logger,
	directory domain.EventDirectory,
	contacts domain.ContactResolver,
	notifier domain.Notifier,
	processed domain.ProcessedStore,
	cfg PipelineConfig,
) domain.CheckinProcessor {
	if cfg.Threshold <= 0 {
		cfg.Threshold = domain.DefaultMatchThreshold
	}
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = 24 * time.Hour
	}
	return &checkinPipeline{
		logger:    logger,
		directory: directory,
		contacts:  contacts,
		notifier:  notifier,
		processed: processed,
		cfg:       cfg,
	}
}

// HandleMessage decodes a raw queue body and processes it.
func (p *checkinPipeline) HandleMessage(ctx context.Context, body []byte) domain.Outcome {
	event, err := domain.DecodeCheckinEvent(body)
	if err != nil {
		p.logger.ErrorContext(ctx, "discarding queue message", "state", domain.StateInvalidMessage, "err", err)
		return domain.Outcome{State: domain.StateInvalidMessage, Err: err}
	}
	return p.Process(ctx, event)
}

// Process runs one check-in to a terminal state. Every failure is logged
// and returned in the Outcome; none is retried here.
func (p *checkinPipeline) Process(ctx context.Context, event *domain.CheckinEvent) domain.Outcome {
	log := p.logger.With("fid", event.OwnerID, "lat", event.Latitude, "lng", event.Longitude)

	candidates, err := p.lookup(ctx, event)
	if err != nil {
		log.ErrorContext(ctx, "directory lookup failed", "state", domain.StateDirectoryError, "err", err)
		return domain.Outcome{State: domain.StateDirectoryError, Err: err}
	}

	decision := Decide(candidates, p.cfg.Threshold)
	if !decision.Notify {
		log.DebugContext(ctx, "no notifiable event nearby", "state", domain.StateNoMatch, "matched", decision.Matched)
		return domain.Outcome{State: domain.StateNoMatch, Decision: decision}
	}
	if missing := decision.Event.MissingFields(); len(missing) > 0 {
		err := fmt.Errorf("%w: event missing %s", domain.ErrDirectory, strings.Join(missing, ", "))
		log.ErrorContext(ctx, "matched event is incomplete", "state", domain.StateDirectoryError, "err", err)
		return domain.Outcome{State: domain.StateDirectoryError, Decision: decision, Err: err}
	}

	phone, err := p.resolve(ctx, event.OwnerID)
	if err != nil {
		level := slog.LevelError
		if errors.Is(err, domain.ErrContactNotFound) {
			level = slog.LevelWarn
		}
		log.Log(ctx, level, "contact lookup failed", "state", domain.StateContactMissing, "err", err)
		return domain.Outcome{State: domain.StateContactMissing, Decision: decision, Err: err}
	}

	key := event.DedupKey()
	if p.processed != nil {
		claimed, err := p.processed.Claim(ctx, key, p.cfg.DedupTTL)
		switch {
		case err != nil:
			// Marker store down: prefer a possible duplicate over a lost notification.
			log.WarnContext(ctx, "dedup claim failed, sending anyway", "err", err)
		case !claimed:
			log.InfoContext(ctx, "check-in already notified", "state", domain.StateDuplicate)
			return domain.Outcome{State: domain.StateDuplicate, Decision: decision}
		}
	}

	if err := p.notify(ctx, phone, *decision.Event); err != nil {
		if p.processed != nil {
			if rerr := p.processed.Release(ctx, key); rerr != nil {
				log.WarnContext(ctx, "failed to release dedup marker", "err", rerr)
			}
		}
		log.ErrorContext(ctx, "notification dispatch failed", "state", domain.StateDispatchFailed, "err", err)
		return domain.Outcome{State: domain.StateDispatchFailed, Decision: decision, Err: err}
	}

	log.InfoContext(ctx, "notification sent", "state", domain.StateNotifySent,
		"event", decision.Event.Name, "status", decision.Event.Status, "distance", decision.Event.Distance)
	return domain.Outcome{State: domain.StateNotifySent, Decision: decision}
}

func (p *checkinPipeline) lookup(ctx context.Context, event *domain.CheckinEvent) ([]domain.CandidateEvent, error) {
	ctx, cancel := p.stageContext(ctx)
	defer cancel()
	candidates, err := p.directory.Lookup(ctx, event.Latitude, event.Longitude)
	if err != nil && !errors.Is(err, domain.ErrDirectory) {
		err = fmt.Errorf("%w: %v", domain.ErrDirectory, err)
	}
	return candidates, err
}

func (p *checkinPipeline) resolve(ctx context.Context, ownerID string) (string, error) {
	ctx, cancel := p.stageContext(ctx)
	defer cancel()
	return p.contacts.Resolve(ctx, ownerID)
}

func (p *checkinPipeline) notify(ctx context.Context, phone string, event domain.CandidateEvent) error {
	ctx, cancel := p.stageContext(ctx)
	defer cancel()
	err := p.notifier.Notify(ctx, phone, event)
	if err != nil && !errors.Is(err, domain.ErrDispatch) {
		err = fmt.Errorf("%w: %v", domain.ErrDispatch, err)
	}
	return err
}

func (p *checkinPipeline) stageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.cfg.StageTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.cfg.StageTimeout)
}
