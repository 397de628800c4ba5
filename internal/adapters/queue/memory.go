package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"meetuphere/internal/domain"
)

// ErrQueueFull is returned by MemoryQueue.Enqueue when the buffer is full.
var ErrQueueFull = errors.New("memory queue is full")

// MemoryQueue is an in-process queue for local runs and tests. Nacked
// messages are put back at the end of the queue.
type MemoryQueue struct {
	ch       chan memoryMessage
	waitTime time.Duration
}

type memoryMessage struct {
	id   string
	body []byte
}

// NewMemoryQueue returns a MemoryQueue holding up to size messages.
// Receive returns an empty batch after waitTime with nothing queued.
func NewMemoryQueue(size int, waitTime time.Duration) *MemoryQueue {
	if size < 1 {
		size = 1
	}
	if waitTime <= 0 {
		waitTime = time.Second
	}
	return &MemoryQueue{ch: make(chan memoryMessage, size), waitTime: waitTime}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, event *domain.CheckinEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode check-in: %w", err)
	}
	return q.push(memoryMessage{id: uuid.NewString(), body: body})
}

func (q *MemoryQueue) push(m memoryMessage) error {
	select {
	case q.ch <- m:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *MemoryQueue) Receive(ctx context.Context) ([]domain.Delivery, error) {
	timer := time.NewTimer(q.waitTime)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, nil
	case m := <-q.ch:
		return []domain.Delivery{&memoryDelivery{queue: q, msg: m}}, nil
	}
}

// Len reports the number of queued messages.
func (q *MemoryQueue) Len() int { return len(q.ch) }

type memoryDelivery struct {
	queue *MemoryQueue
	msg   memoryMessage
}

func (d *memoryDelivery) ID() string                    { return d.msg.id }
func (d *memoryDelivery) Body() []byte                  { return d.msg.body }
func (d *memoryDelivery) Ack(ctx context.Context) error { return nil }
func (d *memoryDelivery) Nack(ctx context.Context) error {
	return d.queue.push(d.msg)
}
