package queue

import (
	"context"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetuphere/internal/domain"
)

// fakeAcknowledger implements amqp.Acknowledger for tests.
type fakeAcknowledger struct {
	acked   []uint64
	nacked  []uint64
	requeue []bool
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.acked = append(f.acked, tag)
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	f.nacked = append(f.nacked, tag)
	f.requeue = append(f.requeue, requeue)
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error { return nil }

func TestAMQPQueue_Receive(t *testing.T) {
	ack := &fakeAcknowledger{}
	ch := make(chan amqp.Delivery, 2)
	ch <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 7, MessageId: "m-7", Body: []byte(`{"fid":"u1","lat":1,"lng":2}`)}
	ch <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 8, Body: []byte(`{}`)}
	q := &AMQPQueue{deliveries: ch}

	got, err := q.Receive(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "m-7", got[0].ID())
	require.NoError(t, got[0].Ack(context.Background()))

	got, err = q.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tag-8", got[0].ID())
	require.NoError(t, got[0].Nack(context.Background()))

	assert.Equal(t, []uint64{7}, ack.acked)
	assert.Equal(t, []uint64{8}, ack.nacked)
	assert.Equal(t, []bool{false}, ack.requeue)
}

func TestAMQPQueue_ReceiveCancelled(t *testing.T) {
	q := &AMQPQueue{deliveries: make(chan amqp.Delivery)}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Receive(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAMQPQueue_ReceiveResubscribesAfterChannelClose(t *testing.T) {
	closed := make(chan amqp.Delivery)
	close(closed)
	fresh := make(chan amqp.Delivery, 1)
	fresh <- amqp.Delivery{Acknowledger: &fakeAcknowledger{}, MessageId: "m-9", Body: []byte(`{}`)}

	subscribes := 0
	q := &AMQPQueue{
		deliveries: closed,
		connClosed: func() bool { return false },
		subscribe: func() (*amqp.Channel, <-chan amqp.Delivery, error) {
			subscribes++
			return nil, fresh, nil
		},
	}

	_, err := q.Receive(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrSourceClosed)

	got, err := q.Receive(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "m-9", got[0].ID())
	assert.Equal(t, 1, subscribes)
}

func TestAMQPQueue_ReceiveConnectionClosed(t *testing.T) {
	closed := make(chan amqp.Delivery)
	close(closed)
	q := &AMQPQueue{
		deliveries: closed,
		connClosed: func() bool { return true },
		subscribe: func() (*amqp.Channel, <-chan amqp.Delivery, error) {
			t.Fatal("subscribe called on a closed connection")
			return nil, nil, nil
		},
	}

	_, err := q.Receive(context.Background())
	require.ErrorIs(t, err, domain.ErrSourceClosed)

	_, err = q.Receive(context.Background())
	require.ErrorIs(t, err, domain.ErrSourceClosed)
}

type fakePublishChannel struct {
	closed    bool
	published []amqp.Publishing
}

func (f *fakePublishChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if f.closed {
		return amqp.ErrClosed
	}
	f.published = append(f.published, msg)
	return nil
}

func (f *fakePublishChannel) IsClosed() bool { return f.closed }

func (f *fakePublishChannel) Close() error {
	f.closed = true
	return nil
}

func TestAMQPQueue_EnqueueReopensClosedChannel(t *testing.T) {
	stale := &fakePublishChannel{closed: true}
	fresh := &fakePublishChannel{}
	q := &AMQPQueue{
		cfg:        AMQPConfig{Exchange: "checkins"},
		pub:        stale,
		connClosed: func() bool { return false },
		openPub:    func() (publishChannel, error) { return fresh, nil },
	}

	require.NoError(t, q.Enqueue(context.Background(), &domain.CheckinEvent{OwnerID: "u1"}))
	assert.Empty(t, stale.published)
	require.Len(t, fresh.published, 1)
	assert.Equal(t, "application/json", fresh.published[0].ContentType)
	assert.Equal(t, amqp.Persistent, fresh.published[0].DeliveryMode)
}

func TestAMQPQueue_EnqueueConnectionClosed(t *testing.T) {
	q := &AMQPQueue{
		pub:        &fakePublishChannel{closed: true},
		connClosed: func() bool { return true },
		openPub: func() (publishChannel, error) {
			t.Fatal("channel reopened on a closed connection")
			return nil, nil
		},
	}

	err := q.Enqueue(context.Background(), &domain.CheckinEvent{OwnerID: "u1"})
	require.ErrorIs(t, err, domain.ErrSourceClosed)
}
