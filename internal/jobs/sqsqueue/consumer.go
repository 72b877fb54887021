package sqsqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/rs/zerolog"

	"github.com/dvloznov/splitledger/internal/jobs"
)

const (
	waitTimeSeconds   = 20
	visibilityTimeout = 120
	batchSize         = 5
)

// Consumer long-polls an SQS queue and hands each ingestion job to a
// handler. A message is deleted only after the handler succeeds; failed
// messages return to the queue after the visibility timeout, which gives
// at-least-once delivery on top of idempotent ingestion.
type Consumer struct {
	client   *sqs.Client
	queueURL string
	log      zerolog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

var _ jobs.Consumer = (*Consumer)(nil)

// NewConsumer builds a consumer for the given queue URL.
func NewConsumer(ctx context.Context, queueURL string, log zerolog.Logger) (*Consumer, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqsqueue: load AWS config: %w", err)
	}
	return &Consumer{
		client:   sqs.NewFromConfig(cfg),
		queueURL: queueURL,
		log:      log,
	}, nil
}

// Start implements the Consumer interface. It blocks the calling
// goroutine until ctx is cancelled or Stop is called.
func (c *Consumer) Start(ctx context.Context, handler jobs.JobHandler) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return fmt.Errorf("sqsqueue: consumer already started")
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	c.started = true
	c.mu.Unlock()

	defer close(c.done)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.queueURL),
			MaxNumberOfMessages: batchSize,
			WaitTimeSeconds:     waitTimeSeconds,
			VisibilityTimeout:   visibilityTimeout,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Error().Err(err).Msg("Failed to receive messages, backing off")
			select {
			case <-time.After(5 * time.Second):
			case <-ctx.Done():
				return nil
			}
			continue
		}

		for _, msg := range out.Messages {
			var job jobs.IngestCSVJob
			if err := json.Unmarshal([]byte(aws.ToString(msg.Body)), &job); err != nil {
				c.log.Error().Err(err).Msg("Dropping malformed queue message")
				c.delete(ctx, msg.ReceiptHandle)
				continue
			}

			if err := handler(ctx, &job); err != nil {
				c.log.Error().Err(err).
					Str("job_id", job.JobID).
					Str("object", job.ObjectName).
					Msg("Job failed, leaving message for redelivery")
				continue
			}
			c.delete(ctx, msg.ReceiptHandle)
		}
	}
}

func (c *Consumer) delete(ctx context.Context, receiptHandle *string) {
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: receiptHandle,
	})
	if err != nil {
		c.log.Error().Err(err).Msg("Failed to delete processed message")
	}
}

// Stop implements the Consumer interface.
func (c *Consumer) Stop(ctx context.Context) error {
	c.mu.Lock()
	cancel, done, started := c.cancel, c.done, c.started
	c.mu.Unlock()

	if !started {
		return nil
	}
	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
