// Package sqsqueue publishes ingestion jobs to an SQS queue for
// multi-instance deployments. The matching consumer is the Lambda
// binary triggered by the queue.
package sqsqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/google/uuid"

	"github.com/dvloznov/splitledger/internal/jobs"
)

// Publisher sends ingestion jobs to an SQS queue as JSON messages.
type Publisher struct {
	client   *sqs.Client
	queueURL string
}

var _ jobs.Publisher = (*Publisher)(nil)

// NewPublisher builds a publisher for the given queue URL using the
// default AWS configuration chain.
func NewPublisher(ctx context.Context, queueURL string) (*Publisher, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqsqueue: load AWS config: %w", err)
	}
	return &Publisher{
		client:   sqs.NewFromConfig(cfg),
		queueURL: queueURL,
	}, nil
}

// PublishIngestCSV implements the Publisher interface. Delivery is
// at-least-once; the consumer relies on ingestion idempotence.
func (p *Publisher) PublishIngestCSV(ctx context.Context, job *jobs.IngestCSVJob) error {
	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = jobs.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}

	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("sqsqueue: marshal job %s: %w", job.JobID, err)
	}

	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("sqsqueue: send job %s: %w", job.JobID, err)
	}
	return nil
}

// Close implements the Publisher interface. The SQS client holds no
// resources that need releasing.
func (p *Publisher) Close() error {
	return nil
}
