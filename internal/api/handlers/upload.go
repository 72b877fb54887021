// Package handlers implements the HTTP endpoints of the API server.
package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/splitledger/internal/api/middleware"
	"github.com/dvloznov/splitledger/internal/jobs"
	"github.com/dvloznov/splitledger/internal/objectstore"
	"github.com/dvloznov/splitledger/internal/pipeline"
)

// IngestRunner runs one CSV ingestion end to end.
// This abstraction enables mocking in handler tests.
type IngestRunner interface {
	Run(ctx context.Context, csvContent string) (*pipeline.Result, error)
}

// UploadHandler handles statement upload endpoints.
type UploadHandler struct {
	ingestor  IngestRunner
	store     objectstore.ObjectStore
	publisher jobs.Publisher
	maxBytes  int64
	log       zerolog.Logger
}

// NewUploadHandler creates a new upload handler. store and publisher may
// be nil, which disables the async endpoint.
func NewUploadHandler(ingestor IngestRunner, store objectstore.ObjectStore, publisher jobs.Publisher, maxBytes int64, log zerolog.Logger) *UploadHandler {
	return &UploadHandler{
		ingestor:  ingestor,
		store:     store,
		publisher: publisher,
		maxBytes:  maxBytes,
		log:       log,
	}
}

func (h *UploadHandler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBytes))
	if err != nil {
		middleware.WriteError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("Upload exceeds the %d byte limit", h.maxBytes))
		return nil, false
	}
	if len(body) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "Request body is empty")
		return nil, false
	}
	return body, true
}

// Upload handles POST /api/upload: synchronous ingestion of a CSV body.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}

	result, err := h.ingestor.Run(r.Context(), string(body))
	if err != nil {
		if result != nil && result.Parsed == 0 && len(result.RowErrors) > 0 {
			middleware.WriteJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error":     "No valid rows in upload",
				"rowErrors": result.TruncatedErrors(),
			})
			return
		}
		h.log.Error().Err(err).Msg("Ingestion failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Ingestion failed")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"parsed":        result.Parsed,
		"newlyInserted": result.NewlyInserted,
		"deduplicated":  result.Deduplicated,
		"rowErrors":     result.TruncatedErrors(),
	})
}

// UploadAsync handles POST /api/upload/async: the CSV body is stored and
// an ingestion job is enqueued. Responds 202 with the job ID.
func (h *UploadHandler) UploadAsync(w http.ResponseWriter, r *http.Request) {
	if h.store == nil || h.publisher == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Async uploads are not configured")
		return
	}

	body, ok := h.readBody(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	objectName := fmt.Sprintf("uploads/%s/%s.csv", time.Now().Format("2006/01/02"), uuid.New().String())

	if err := h.store.Upload(ctx, objectName, body); err != nil {
		h.log.Error().Err(err).Str("object", objectName).Msg("Failed to store upload")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to store upload")
		return
	}

	job := &jobs.IngestCSVJob{
		ObjectName:  objectName,
		SubmittedBy: r.Header.Get("X-Forwarded-User"),
	}
	if err := h.publisher.PublishIngestCSV(ctx, job); err != nil {
		h.log.Error().Err(err).Str("object", objectName).Msg("Failed to enqueue ingestion job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue ingestion job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("object", objectName).Msg("Ingestion job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":      job.JobID,
		"object_name": objectName,
		"status":      string(job.Status),
	})
}
