// Lambda entry point for queue-triggered ingestion. Each SQS record
// carries one IngestCSVJob; partial batch failures are reported so only
// failed records are redelivered.
package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog"

	"github.com/dvloznov/splitledger/internal/app"
	"github.com/dvloznov/splitledger/internal/config"
	"github.com/dvloznov/splitledger/internal/jobs"
	"github.com/dvloznov/splitledger/internal/logger"
	"github.com/dvloznov/splitledger/internal/objectstore"
)

type ingestHandler struct {
	components *app.Components
	store      objectstore.ObjectStore
	log        zerolog.Logger
}

func (h *ingestHandler) handle(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	var failures []events.SQSBatchItemFailure

	for _, record := range event.Records {
		if err := h.processRecord(ctx, record); err != nil {
			h.log.Error().Err(err).Str("message_id", record.MessageId).Msg("Record failed")
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
	}

	return events.SQSEventResponse{BatchItemFailures: failures}, nil
}

func (h *ingestHandler) processRecord(ctx context.Context, record events.SQSMessage) error {
	var job jobs.IngestCSVJob
	if err := json.Unmarshal([]byte(record.Body), &job); err != nil {
		// Malformed messages would fail forever; log and drop.
		h.log.Error().Err(err).Str("message_id", record.MessageId).Msg("Dropping malformed message")
		return nil
	}

	h.log.Info().
		Str("job_id", job.JobID).
		Str("object", job.ObjectName).
		Msg("Processing ingestion job")

	data, err := h.store.Download(ctx, job.ObjectName)
	if err != nil {
		return fmt.Errorf("download %s: %w", job.ObjectName, err)
	}

	result, err := h.components.Ingestor.Run(ctx, string(data))
	if err != nil {
		return err
	}

	h.log.Info().
		Str("job_id", job.JobID).
		Int("newly_inserted", result.NewlyInserted).
		Msg("Ingestion job completed")
	return nil
}

func main() {
	log := logger.New("lambda")

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if cfg.Bucket == "" {
		log.Fatal().Msg("UPLOAD_BUCKET is required")
	}

	ctx := context.Background()

	components, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build collaborators")
	}

	store, err := objectstore.NewGCSStore(ctx, cfg.Bucket)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create object store")
	}

	h := &ingestHandler{components: components, store: store, log: log}
	lambda.Start(h.handle)
}
