package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/splitledger/internal/app"
	"github.com/dvloznov/splitledger/internal/config"
	"github.com/dvloznov/splitledger/internal/jobs"
	"github.com/dvloznov/splitledger/internal/jobs/sqsqueue"
	"github.com/dvloznov/splitledger/internal/logger"
	"github.com/dvloznov/splitledger/internal/objectstore"
)

func main() {
	log := logger.New("worker")

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if cfg.QueueURL == "" {
		log.Fatal().Msg("INGEST_QUEUE_URL is required for the worker")
	}
	if cfg.Bucket == "" {
		log.Fatal().Msg("UPLOAD_BUCKET is required for the worker")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	components, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build collaborators")
	}
	defer components.Close()

	store, err := objectstore.NewGCSStore(ctx, cfg.Bucket)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create object store")
	}
	defer store.Close()

	consumer, err := sqsqueue.NewConsumer(ctx, cfg.QueueURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create queue consumer")
	}

	handler := func(ctx context.Context, job jobs.Job) error {
		csvJob, ok := job.(*jobs.IngestCSVJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", csvJob.JobID).
			Str("object", csvJob.ObjectName).
			Msg("Processing ingestion job")

		data, err := store.Download(ctx, csvJob.ObjectName)
		if err != nil {
			return fmt.Errorf("download %s: %w", csvJob.ObjectName, err)
		}

		result, err := components.Ingestor.Run(ctx, string(data))
		if err != nil {
			return err
		}

		log.Info().
			Str("job_id", csvJob.JobID).
			Int("newly_inserted", result.NewlyInserted).
			Int("deduplicated", result.Deduplicated).
			Msg("Ingestion job completed")
		return nil
	}

	// Consume until interrupted.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info().Msg("Shutting down worker...")

		stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer stopCancel()
		if err := consumer.Stop(stopCtx); err != nil {
			log.Error().Err(err).Msg("Error stopping consumer")
		}
		cancel()
	}()

	log.Info().Str("queue", cfg.QueueURL).Msg("Starting worker service")
	if err := consumer.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("Consumer stopped with error")
	}
	log.Info().Msg("Worker exited")
}
