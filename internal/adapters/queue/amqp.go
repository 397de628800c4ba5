package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"meetuphere/internal/domain"
)

// CheckinRoutingKey is the routing key check-ins are published under.
const CheckinRoutingKey = "checkin.created"

// AMQPConfig holds RabbitMQ topology settings.
type AMQPConfig struct {
	Exchange     string
	QueueName    string
	DLQName      string
	ConsumerName string
	Prefetch     int
}

// DialAMQP connects to RabbitMQ, retrying while the broker comes up.
func DialAMQP(url string, attempts int) (*amqp.Connection, error) {
	if attempts < 1 {
		attempts = 1
	}
	var conn *amqp.Connection
	var err error
	for i := 0; i < attempts; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			log.Println("[AMQP] Connected to RabbitMQ")
			return conn, nil
		}
		log.Printf("[AMQP] Failed to connect to RabbitMQ: %v, retrying in 2s...", err)
		time.Sleep(2 * time.Second)
	}
	return nil, fmt.Errorf("could not connect to RabbitMQ after %d attempts: %w", attempts, err)
}

// publishChannel is the subset of *amqp.Channel used for publishing.
type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

// AMQPQueue is the RabbitMQ-backed check-in queue. Publishing and consuming
// use separate channels; consuming starts on the first Receive. A channel
// closed by the broker is reopened on next use while the connection is up.
type AMQPQueue struct {
	cfg        AMQPConfig
	mu         sync.Mutex
	pub        publishChannel
	sub        *amqp.Channel
	deliveries <-chan amqp.Delivery

	connClosed func() bool
	openPub    func() (publishChannel, error)
	subscribe  func() (*amqp.Channel, <-chan amqp.Delivery, error)
}

// NewAMQPQueue declares the exchange, the main queue and its dead-letter
// queue, and returns a queue ready to publish.
func NewAMQPQueue(conn *amqp.Connection, cfg AMQPConfig) (*AMQPQueue, error) {
	if cfg.Exchange == "" {
		cfg.Exchange = "checkins"
	}
	if cfg.Prefetch < 1 {
		cfg.Prefetch = 1
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	if err := declareTopology(ch, cfg); err != nil {
		_ = ch.Close()
		return nil, err
	}
	q := &AMQPQueue{cfg: cfg, pub: ch, connClosed: conn.IsClosed}
	q.openPub = func() (publishChannel, error) { return conn.Channel() }
	q.subscribe = func() (*amqp.Channel, <-chan amqp.Delivery, error) { return openConsumer(conn, cfg) }
	return q, nil
}

func declareTopology(ch *amqp.Channel, cfg AMQPConfig) error {
	err := ch.ExchangeDeclare(
		cfg.Exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(cfg.DLQName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dlq: %w", err)
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": cfg.DLQName,
	}
	if _, err := ch.QueueDeclare(cfg.QueueName, true, false, false, false, args); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(cfg.QueueName, CheckinRoutingKey, cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// Enqueue publishes event as a persistent JSON message.
func (q *AMQPQueue) Enqueue(ctx context.Context, event *domain.CheckinEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode check-in: %w", err)
	}
	pub, err := q.publisher()
	if err != nil {
		return err
	}
	return pub.PublishWithContext(
		ctx,
		q.cfg.Exchange,
		CheckinRoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    uuid.NewString(),
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
}

func (q *AMQPQueue) publisher() (publishChannel, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pub != nil && !q.pub.IsClosed() {
		return q.pub, nil
	}
	if q.isConnClosed() {
		return nil, fmt.Errorf("%w: amqp connection closed", domain.ErrSourceClosed)
	}
	ch, err := q.openPub()
	if err != nil {
		return nil, fmt.Errorf("failed to reopen publish channel: %w", err)
	}
	log.Println("[AMQP] Publish channel reopened")
	q.pub = ch
	return ch, nil
}

func (q *AMQPQueue) isConnClosed() bool {
	return q.connClosed != nil && q.connClosed()
}

// Receive blocks for the next delivery or until ctx is done. When the broker
// closes the delivery channel the subscription is dropped so the next call
// subscribes again; once the connection itself is gone the error wraps
// domain.ErrSourceClosed.
func (q *AMQPQueue) Receive(ctx context.Context) ([]domain.Delivery, error) {
	deliveries, err := q.consume()
	if err != nil {
		return nil, err
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case d, ok := <-deliveries:
		if !ok {
			q.dropSubscription(deliveries)
			if q.isConnClosed() {
				return nil, fmt.Errorf("%w: amqp connection closed", domain.ErrSourceClosed)
			}
			return nil, errors.New("amqp delivery channel closed")
		}
		return []domain.Delivery{&amqpDelivery{d: d}}, nil
	}
}

func (q *AMQPQueue) consume() (<-chan amqp.Delivery, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.deliveries != nil {
		return q.deliveries, nil
	}
	if q.isConnClosed() {
		return nil, fmt.Errorf("%w: amqp connection closed", domain.ErrSourceClosed)
	}
	ch, msgs, err := q.subscribe()
	if err != nil {
		return nil, err
	}
	log.Printf("[AMQP] [%s] Consumer started, listening on queue: %s", q.cfg.ConsumerName, q.cfg.QueueName)
	q.sub = ch
	q.deliveries = msgs
	return msgs, nil
}

func (q *AMQPQueue) dropSubscription(closed <-chan amqp.Delivery) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.deliveries != closed {
		return
	}
	log.Printf("[AMQP] [%s] Delivery channel closed, resubscribing on next receive", q.cfg.ConsumerName)
	if q.sub != nil {
		_ = q.sub.Close()
	}
	q.sub = nil
	q.deliveries = nil
}

func openConsumer(conn *amqp.Connection, cfg AMQPConfig) (*amqp.Channel, <-chan amqp.Delivery, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, nil, err
	}
	if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
		_ = ch.Close()
		return nil, nil, err
	}
	msgs, err := ch.Consume(
		cfg.QueueName,
		cfg.ConsumerName,
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return nil, nil, err
	}
	return ch, msgs, nil
}

// Close closes the channels; the connection is owned by the caller.
func (q *AMQPQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.sub != nil {
		_ = q.sub.Close()
	}
	if q.pub != nil {
		return q.pub.Close()
	}
	return nil
}

type amqpDelivery struct {
	d amqp.Delivery
}

func (a *amqpDelivery) ID() string {
	if a.d.MessageId != "" {
		return a.d.MessageId
	}
	return fmt.Sprintf("tag-%d", a.d.DeliveryTag)
}

func (a *amqpDelivery) Body() []byte { return a.d.Body }

func (a *amqpDelivery) Ack(ctx context.Context) error { return a.d.Ack(false) }

// Nack rejects without requeue so the broker routes the message to the DLQ.
func (a *amqpDelivery) Nack(ctx context.Context) error { return a.d.Nack(false, false) }
