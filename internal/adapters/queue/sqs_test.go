package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetuphere/internal/domain"
)

// fakeSQS implements sqsAPI for tests.
type fakeSQS struct {
	sent       []*sqs.SendMessageInput
	received   []*sqs.ReceiveMessageInput
	deleted    []string
	released   []string
	messages   []types.Message
	sendErr    error
	resolveErr error
}

func (f *fakeSQS) GetQueueUrl(ctx context.Context, in *sqs.GetQueueUrlInput, _ ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error) {
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	return &sqs.GetQueueUrlOutput{QueueUrl: aws.String("https://sqs.local/000/" + aws.ToString(in.QueueName))}, nil
}

func (f *fakeSQS) SendMessage(ctx context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, in)
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.received = append(f.received, in)
	return &sqs.ReceiveMessageOutput{Messages: f.messages}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(in.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func (f *fakeSQS) ChangeMessageVisibility(ctx context.Context, in *sqs.ChangeMessageVisibilityInput, _ ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error) {
	f.released = append(f.released, aws.ToString(in.ReceiptHandle))
	return &sqs.ChangeMessageVisibilityOutput{}, nil
}

func TestSQSQueue_ResolvesURLByName(t *testing.T) {
	f := &fakeSQS{}
	q, err := newSQSQueue(context.Background(), f, SQSConfig{QueueName: "checkins", WaitTime: 20 * time.Second, BatchSize: 5})
	require.NoError(t, err)
	assert.Equal(t, "https://sqs.local/000/checkins", q.queueURL)
	assert.Equal(t, int32(20), q.waitTime)
	assert.Equal(t, int32(5), q.batchSize)

	f.resolveErr = errors.New("no such queue")
	_, err = newSQSQueue(context.Background(), f, SQSConfig{QueueName: "missing"})
	require.Error(t, err)
}

func TestSQSQueue_Enqueue(t *testing.T) {
	f := &fakeSQS{}
	q, err := newSQSQueue(context.Background(), f, SQSConfig{QueueURL: "https://sqs.local/000/checkins"})
	require.NoError(t, err)

	err = q.Enqueue(context.Background(), &domain.CheckinEvent{OwnerID: "u1", Latitude: 40, Longitude: -73})
	require.NoError(t, err)
	require.Len(t, f.sent, 1)
	assert.Equal(t, "https://sqs.local/000/checkins", aws.ToString(f.sent[0].QueueUrl))
	assert.JSONEq(t, `{"fid":"u1","lat":40,"lng":-73}`, aws.ToString(f.sent[0].MessageBody))

	f.sendErr = errors.New("throttled")
	require.Error(t, q.Enqueue(context.Background(), &domain.CheckinEvent{OwnerID: "u1"}))
}

func TestSQSQueue_ReceiveAckNack(t *testing.T) {
	f := &fakeSQS{messages: []types.Message{
		{MessageId: aws.String("a"), Body: aws.String(`{"fid":"u1","lat":1,"lng":2}`), ReceiptHandle: aws.String("r-a")},
		{MessageId: aws.String("b"), Body: aws.String(`{"fid":"u2","lat":3,"lng":4}`), ReceiptHandle: aws.String("r-b")},
	}}
	q, err := newSQSQueue(context.Background(), f, SQSConfig{QueueURL: "u", WaitTime: time.Minute, BatchSize: 50})
	require.NoError(t, err)

	deliveries, err := q.Receive(context.Background())
	require.NoError(t, err)
	require.Len(t, deliveries, 2)
	assert.Equal(t, int32(20), f.received[0].WaitTimeSeconds)
	assert.Equal(t, int32(10), f.received[0].MaxNumberOfMessages)
	assert.Equal(t, "a", deliveries[0].ID())
	assert.JSONEq(t, `{"fid":"u1","lat":1,"lng":2}`, string(deliveries[0].Body()))

	require.NoError(t, deliveries[0].Ack(context.Background()))
	require.NoError(t, deliveries[1].Nack(context.Background()))
	assert.Equal(t, []string{"r-a"}, f.deleted)
	assert.Equal(t, []string{"r-b"}, f.released)
}
