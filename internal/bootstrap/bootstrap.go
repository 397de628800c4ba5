// Package bootstrap builds the adapters and services shared by the binaries
// from a loaded config.Config.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	amqp "github.com/rabbitmq/amqp091-go"

	"meetuphere/config"
	"meetuphere/internal/adapters/awsclient"
	"meetuphere/internal/adapters/meetup"
	"meetuphere/internal/adapters/queue"
	"meetuphere/internal/adapters/sms"
	"meetuphere/internal/domain"
	"meetuphere/internal/repository/dynamodb"
	"meetuphere/internal/repository/memory"
	"meetuphere/internal/repository/postgres"
	"meetuphere/internal/services"
)

const (
	connectAttempts = 30
	memoryQueueSize = 1024
)

// Queue is a transport that can both publish and deliver check-ins.
type Queue interface {
	domain.CheckinQueue
	domain.CheckinSource
}

// Deps holds long-lived clients. Create with New and release with Close.
type Deps struct {
	Config *config.Config
	Logger *slog.Logger
	AWS    aws.Config
	DB     *sql.DB

	mu      sync.Mutex
	queue   Queue
	closers []func() error
	lost    chan error
}

// New loads AWS credentials and, when a Postgres-backed store is configured,
// connects to the database and applies migrations.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Deps, error) {
	awsCfg, err := awsclient.NewConfig(ctx, awsclient.Config{
		Region:          cfg.AWS.Region,
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
		Endpoint:        cfg.AWS.EndpointURL,
	})
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}
	d := &Deps{Config: cfg, Logger: logger, AWS: awsCfg, lost: make(chan error, 1)}

	if cfg.UsesPostgres() {
		db, err := postgres.Connect(cfg.DBUrl, connectAttempts)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		d.DB = db
		d.closers = append(d.closers, db.Close)
	}
	return d, nil
}

// Lost delivers an error wrapping domain.ErrSourceClosed when a broker
// connection drops. Binaries exit on it so their supervisor restarts them.
func (d *Deps) Lost() <-chan error {
	return d.lost
}

func (d *Deps) markLost(err error) {
	select {
	case d.lost <- err:
	default:
	}
}

// Close releases every client opened through d, last opened first.
func (d *Deps) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = append(errs, d.closers[i]())
	}
	d.closers = nil
	return errors.Join(errs...)
}

// Queue returns the configured check-in transport, creating it on first use.
func (d *Deps) Queue(ctx context.Context) (Queue, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.queue != nil {
		return d.queue, nil
	}
	qc := d.Config.Queue
	switch qc.Provider {
	case "sqs":
		q, err := queue.NewSQSQueue(ctx, d.AWS, queue.SQSConfig{
			QueueURL:  qc.SQSURL,
			QueueName: qc.SQSName,
			WaitTime:  qc.SQSWaitTime,
			BatchSize: qc.SQSBatchSize,
		})
		if err != nil {
			return nil, err
		}
		d.queue = q
	case "amqp":
		conn, err := queue.DialAMQP(qc.RabbitMQURL, connectAttempts)
		if err != nil {
			return nil, err
		}
		q, err := queue.NewAMQPQueue(conn, queue.AMQPConfig{
			QueueName: qc.AMQPQueue,
			DLQName:   qc.AMQPDLQ,
			Prefetch:  d.Config.Worker.Concurrency,
		})
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		d.closers = append(d.closers, conn.Close, q.Close)
		d.queue = q
		closed := conn.NotifyClose(make(chan *amqp.Error, 1))
		go func() {
			// A graceful Close closes the channel without an error.
			if amqpErr, ok := <-closed; ok && amqpErr != nil {
				d.Logger.Error("rabbitmq connection lost", "err", amqpErr)
				d.markLost(fmt.Errorf("%w: %v", domain.ErrSourceClosed, amqpErr))
			}
		}()
	case "memory":
		d.queue = queue.NewMemoryQueue(memoryQueueSize, qc.SQSWaitTime)
	default:
		return nil, fmt.Errorf("unknown queue provider %q", qc.Provider)
	}
	return d.queue, nil
}

// Contacts returns the phone number repository for the configured store.
func (d *Deps) Contacts() (domain.ContactRepository, error) {
	switch d.Config.Contacts.Store {
	case "dynamodb":
		return dynamodb.NewContactRepository(d.AWS, d.Config.Contacts.DynamoTable, d.Config.Contacts.DynamoHashKey), nil
	case "postgres":
		if d.DB == nil {
			return nil, errors.New("postgres contact store requires a database connection")
		}
		return postgres.NewContactRepository(d.DB), nil
	default:
		return nil, fmt.Errorf("unknown contact store %q", d.Config.Contacts.Store)
	}
}

// Directory returns the Meetup open events client.
func (d *Deps) Directory() domain.EventDirectory {
	client := &http.Client{Timeout: d.Config.Meetup.HTTPTimeout}
	return meetup.NewDirectoryClient(client, d.Config.Meetup.Host, d.Config.Meetup.APIKey)
}

// ProcessedStore returns the dedup marker store, or nil when dedup is off.
// Expired markers are swept in the background until ctx is done.
func (d *Deps) ProcessedStore(ctx context.Context) domain.ProcessedStore {
	interval := sweepInterval(d.Config.Worker.DedupTTL)
	switch d.Config.Worker.DedupStore {
	case "memory":
		return memory.NewProcessedStore(interval)
	case "postgres":
		if d.DB == nil {
			return nil
		}
		db := d.DB
		go runSweeper(ctx, d.Logger, interval, func(ctx context.Context) (int64, error) {
			return postgres.PurgeExpired(ctx, db, time.Now())
		})
		return postgres.NewProcessedRepository(db)
	default:
		return nil
	}
}

// Pipeline wires directory, contacts, notifier and dedup into the check-in processor.
func (d *Deps) Pipeline(ctx context.Context) (domain.CheckinProcessor, error) {
	contacts, err := d.Contacts()
	if err != nil {
		return nil, err
	}
	sender, err := sms.NewSender(sms.SenderConfig{
		Provider: d.Config.SMS.Provider,
		Twilio: sms.TwilioConfig{
			AccountSID: d.Config.SMS.TwilioAccountSID,
			AuthToken:  d.Config.SMS.TwilioAuthToken,
		},
		AWS: d.AWS,
	})
	if err != nil {
		return nil, err
	}
	return services.NewCheckinPipeline(
		d.Logger,
		d.Directory(),
		services.NewContactResolver(contacts),
		services.NewNotifier(d.Logger, sender, d.Config.SMS.Sender),
		d.ProcessedStore(ctx),
		services.PipelineConfig{
			Threshold:    d.Config.Meetup.MatchThreshold,
			StageTimeout: d.Config.Worker.StageTimeout,
			DedupTTL:     d.Config.Worker.DedupTTL,
		},
	), nil
}

func sweepInterval(ttl time.Duration) time.Duration {
	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	return interval
}

func runSweeper(ctx context.Context, logger *slog.Logger, interval time.Duration, sweep func(context.Context) (int64, error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sweep(ctx)
			if err != nil {
				logger.Warn("dedup sweep failed", "err", err)
				continue
			}
			if n > 0 {
				logger.Debug("dedup markers expired", "count", n)
			}
		}
	}
}
