package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/dvloznov/splitledger/internal/api/handlers"
	"github.com/dvloznov/splitledger/internal/api/middleware"
	"github.com/dvloznov/splitledger/internal/app"
	"github.com/dvloznov/splitledger/internal/config"
	"github.com/dvloznov/splitledger/internal/jobs"
	"github.com/dvloznov/splitledger/internal/jobs/inmemory"
	"github.com/dvloznov/splitledger/internal/jobs/sqsqueue"
	"github.com/dvloznov/splitledger/internal/logger"
	"github.com/dvloznov/splitledger/internal/objectstore"
	"github.com/dvloznov/splitledger/internal/pipeline"
)

func main() {
	log := logger.New("api")

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx := context.Background()

	components, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build collaborators")
	}
	defer components.Close()

	// Object store for async uploads.
	var store objectstore.ObjectStore
	if cfg.Bucket != "" {
		gcs, err := objectstore.NewGCSStore(ctx, cfg.Bucket)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create object store")
		}
		defer gcs.Close()
		store = gcs
	} else {
		log.Warn().Msg("No upload bucket configured - async uploads will be disabled")
	}

	// Job infrastructure: SQS when configured, otherwise an in-process
	// queue with its own worker.
	var (
		publisher jobs.Publisher
		jobStore  jobs.JobStore
	)
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	var localQueue *inmemory.Queue
	if cfg.QueueURL != "" {
		sqsPublisher, err := sqsqueue.NewPublisher(ctx, cfg.QueueURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create queue publisher")
		}
		publisher = sqsPublisher
		jobStore = inmemory.NewStore() // local status tracking only
	} else if store != nil {
		memStore := inmemory.NewStore()
		localQueue = inmemory.NewQueue(100, memStore)
		publisher = localQueue
		jobStore = memStore

		handler := ingestJobHandler(store, components.Ingestor, log)
		go func() {
			log.Info().Msg("Starting in-process ingestion worker")
			if err := localQueue.Start(workerCtx, handler); err != nil {
				log.Error().Err(err).Msg("In-process worker stopped with error")
			}
		}()
	}

	// Initialize handlers
	uploadHandler := handlers.NewUploadHandler(components.Ingestor, store, publisher, cfg.MaxUploadBytes, log)
	savingsHandler := handlers.NewSavingsHandler(components.Savings, log)
	cardsHandler := handlers.NewCardsHandler(components.Cards, log)
	peopleHandler := handlers.NewPeopleHandler(components.People, log)
	syncHandler := handlers.NewSyncHandler(components.Accounts, components.Ledger, log)

	var jobsHandler *handlers.JobsHandler
	if jobStore != nil {
		jobsHandler = handlers.NewJobsHandler(jobStore, log)
	}

	var reportsHandler *handlers.ReportsHandler
	if components.Mirror != nil {
		reportsHandler = handlers.NewReportsHandler(components.Mirror, log)
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/api/upload", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			uploadHandler.Upload(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/upload/async", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			uploadHandler.UploadAsync(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/savings/", func(w http.ResponseWriter, r *http.Request) {
		month := strings.TrimPrefix(r.URL.Path, "/api/savings/")
		if month == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Month is required")
			return
		}
		switch r.Method {
		case http.MethodGet:
			savingsHandler.GetSavings(w, r, month)
		case http.MethodPost, http.MethodPut:
			savingsHandler.SaveSavings(w, r, month)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/cards", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			cardsHandler.ListCards(w, r)
		case http.MethodPost:
			cardsHandler.SaveCard(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/cards/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/cards/")
		cardID, action, _ := strings.Cut(rest, "/")
		if r.Method == http.MethodPost && action == "reconcile" && cardID != "" {
			cardsHandler.Reconcile(w, r, cardID)
			return
		}
		middleware.WriteError(w, http.StatusNotFound, "Not found")
	})

	mux.HandleFunc("/api/people", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			peopleHandler.ListPeople(w, r)
		case http.MethodPost:
			peopleHandler.SavePerson(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/sync", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			syncHandler.Sync(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/accounts", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			syncHandler.ListAccounts(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if jobsHandler == nil {
			middleware.WriteError(w, http.StatusServiceUnavailable, "Job tracking is not configured")
			return
		}
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if jobsHandler == nil {
			middleware.WriteError(w, http.StatusServiceUnavailable, "Job tracking is not configured")
			return
		}
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/reports/", func(w http.ResponseWriter, r *http.Request) {
		if reportsHandler == nil {
			middleware.WriteError(w, http.StatusServiceUnavailable, "Analytics is not configured")
			return
		}
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		month := strings.TrimPrefix(r.URL.Path, "/api/reports/")
		if month == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Month is required")
			return
		}
		reportsHandler.MonthlyReport(w, r, month)
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.Metrics(
					middleware.CORS(mux),
				),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	if localQueue != nil {
		if err := localQueue.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error stopping job queue")
		}
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close job publisher")
		}
	}

	log.Info().Msg("Server exited")
}

// ingestJobHandler downloads the uploaded object and runs the pipeline.
func ingestJobHandler(store objectstore.ObjectStore, ingestor *pipeline.Ingestor, log zerolog.Logger) jobs.JobHandler {
	return func(ctx context.Context, job jobs.Job) error {
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

		result, err := ingestor.Run(ctx, string(data))
		if err != nil {
			return err
		}

		log.Info().
			Str("job_id", csvJob.JobID).
			Int("newly_inserted", result.NewlyInserted).
			Msg("Ingestion job completed")
		return nil
	}
}
