package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"meetuphere/internal/domain"
)

// ConsumerConfig holds worker loop settings.
type ConsumerConfig struct {
	// Concurrency bounds in-flight messages; values below 1 mean 1.
	Concurrency int
	// DeadLetterFailures nacks failed outcomes instead of acking them, so the
	// transport's redrive policy can capture them.
	DeadLetterFailures bool
	// ReceiveBackoff is the pause after a failed receive.
	ReceiveBackoff time.Duration
}

// Consumer pulls check-ins from a source and runs each one through the processor.
type Consumer struct {
	logger    *slog.Logger
	source    domain.CheckinSource
	processor domain.CheckinProcessor
	cfg       ConsumerConfig
}

func NewConsumer(logger *slog.Logger, source domain.CheckinSource, processor domain.CheckinProcessor, cfg ConsumerConfig) *Consumer {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.ReceiveBackoff <= 0 {
		cfg.ReceiveBackoff = 5 * time.Second
	}
	return &Consumer{logger: logger, source: source, processor: processor, cfg: cfg}
}

// Run receives until ctx is cancelled, then waits for in-flight messages to
// settle. Messages already received are finished even after cancellation.
// It returns a non-nil error only when the source reports ErrSourceClosed.
func (c *Consumer) Run(ctx context.Context) error {
	g := new(errgroup.Group)
	g.SetLimit(c.cfg.Concurrency)
	c.logger.Info("consumer started", "concurrency", c.cfg.Concurrency, "dead_letter_failures", c.cfg.DeadLetterFailures)

	var runErr error
	for ctx.Err() == nil {
		deliveries, err := c.source.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if errors.Is(err, domain.ErrSourceClosed) {
				c.logger.Error("queue source closed, stopping consumer", "err", err)
				runErr = err
				break
			}
			c.logger.Error("receive failed", "err", err, "backoff", c.cfg.ReceiveBackoff)
			select {
			case <-ctx.Done():
			case <-time.After(c.cfg.ReceiveBackoff):
			}
			continue
		}
		for _, d := range deliveries {
			g.Go(func() error {
				c.handle(context.WithoutCancel(ctx), d)
				return nil
			})
		}
	}

	_ = g.Wait()
	c.logger.Info("consumer stopped")
	return runErr
}

func (c *Consumer) handle(ctx context.Context, d domain.Delivery) {
	outcome := c.process(ctx, d)
	log := c.logger.With("message_id", d.ID(), "state", outcome.State)

	var err error
	if outcome.Failed() && c.cfg.DeadLetterFailures {
		err = d.Nack(ctx)
	} else {
		err = d.Ack(ctx)
	}
	if err != nil {
		log.Error("failed to settle message", "err", err)
		return
	}
	log.Debug("message settled")
}

func (c *Consumer) process(ctx context.Context, d domain.Delivery) (outcome domain.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic processing message: %v", r)
			c.logger.Error("recovered from panic", "message_id", d.ID(), "err", err)
			outcome = domain.Outcome{State: domain.StateDispatchFailed, Err: errors.Join(domain.ErrDispatch, err)}
		}
	}()
	return c.processor.HandleMessage(ctx, d.Body())
}

// StatusFor maps an outcome to the HTTP status a push-style queue daemon
// expects: 500 asks for redelivery, anything else deletes the message.
func StatusFor(outcome domain.Outcome, deadLetterFailures bool) int {
	if outcome.Failed() && deadLetterFailures {
		return http.StatusInternalServerError
	}
	return http.StatusOK
}
