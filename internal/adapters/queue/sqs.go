package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"meetuphere/internal/domain"
)

// sqsAPI is the subset of *sqs.Client used here.
type sqsAPI interface {
	GetQueueUrl(ctx context.Context, in *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error)
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	ChangeMessageVisibility(ctx context.Context, in *sqs.ChangeMessageVisibilityInput, optFns ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error)
}

// SQSConfig holds the SQS queue settings.
type SQSConfig struct {
	QueueURL  string
	QueueName string // used to resolve QueueURL when it is empty
	WaitTime  time.Duration
	BatchSize int
}

// SQSQueue is the SQS-backed check-in queue. It implements both
// domain.CheckinQueue and domain.CheckinSource.
type SQSQueue struct {
	client    sqsAPI
	queueURL  string
	waitTime  int32
	batchSize int32
}

// NewSQSQueue returns an SQSQueue for the configured queue, resolving the
// queue URL by name when none is given.
func NewSQSQueue(ctx context.Context, awsCfg aws.Config, cfg SQSConfig) (*SQSQueue, error) {
	return newSQSQueue(ctx, sqs.NewFromConfig(awsCfg), cfg)
}

func newSQSQueue(ctx context.Context, client sqsAPI, cfg SQSConfig) (*SQSQueue, error) {
	queueURL := cfg.QueueURL
	if queueURL == "" {
		out, err := client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{QueueName: aws.String(cfg.QueueName)})
		if err != nil {
			return nil, fmt.Errorf("failed to resolve sqs queue %q: %w", cfg.QueueName, err)
		}
		queueURL = aws.ToString(out.QueueUrl)
	}
	wait := int32(cfg.WaitTime / time.Second)
	if wait < 0 || wait > 20 {
		wait = 20
	}
	batch := int32(cfg.BatchSize)
	if batch < 1 || batch > 10 {
		batch = 10
	}
	log.Printf("[SQS] Using queue %s", queueURL)
	return &SQSQueue{client: client, queueURL: queueURL, waitTime: wait, batchSize: batch}, nil
}

// Enqueue writes event as a JSON message body.
func (q *SQSQueue) Enqueue(ctx context.Context, event *domain.CheckinEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode check-in: %w", err)
	}
	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("failed to send sqs message: %w", err)
	}
	return nil
}

// Receive long-polls for up to batchSize messages.
func (q *SQSQueue) Receive(ctx context.Context) ([]domain.Delivery, error) {
	out, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueURL),
		MaxNumberOfMessages: q.batchSize,
		WaitTimeSeconds:     q.waitTime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to receive sqs messages: %w", err)
	}
	deliveries := make([]domain.Delivery, 0, len(out.Messages))
	for _, m := range out.Messages {
		deliveries = append(deliveries, &sqsDelivery{
			queue:   q,
			id:      aws.ToString(m.MessageId),
			body:    []byte(aws.ToString(m.Body)),
			receipt: aws.ToString(m.ReceiptHandle),
		})
	}
	return deliveries, nil
}

type sqsDelivery struct {
	queue   *SQSQueue
	id      string
	body    []byte
	receipt string
}

func (d *sqsDelivery) ID() string   { return d.id }
func (d *sqsDelivery) Body() []byte { return d.body }

// Ack deletes the message from the queue.
func (d *sqsDelivery) Ack(ctx context.Context) error {
	_, err := d.queue.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(d.queue.queueURL),
		ReceiptHandle: aws.String(d.receipt),
	})
	if err != nil {
		return fmt.Errorf("failed to delete sqs message %s: %w", d.id, err)
	}
	return nil
}

// Nack makes the message visible again right away; the queue's redrive
// policy decides when it moves to the dead-letter queue.
func (d *sqsDelivery) Nack(ctx context.Context) error {
	_, err := d.queue.client.ChangeMessageVisibility(ctx, &sqs.ChangeMessageVisibilityInput{
		QueueUrl:          aws.String(d.queue.queueURL),
		ReceiptHandle:     aws.String(d.receipt),
		VisibilityTimeout: 0,
	})
	if err != nil {
		return fmt.Errorf("failed to release sqs message %s: %w", d.id, err)
	}
	return nil
}
