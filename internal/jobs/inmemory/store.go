package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dvloznov/splitledger/internal/jobs"
)

// Store tracks ingestion job status in memory. State is lost on restart,
// which is acceptable: the jobs themselves are idempotent and the queue is
// the source of truth for pending work.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*jobs.IngestCSVJob
}

// NewStore creates an empty in-memory job store.
func NewStore() *Store {
	return &Store{jobs: make(map[string]*jobs.IngestCSVJob)}
}

var _ jobs.JobStore = (*Store)(nil)

// SaveJob upserts a job snapshot. The store keeps its own copy.
func (s *Store) SaveJob(ctx context.Context, job *jobs.IngestCSVJob) error {
	if job.JobID == "" {
		return fmt.Errorf("inmemory: job ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := *job
	s.jobs[job.JobID] = &snapshot
	return nil
}

// GetJob returns a copy of the job, or an error for an unknown ID.
func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.IngestCSVJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("inmemory: job not found: %s", jobID)
	}
	snapshot := *job
	return &snapshot, nil
}

// ListJobs returns matching jobs newest first.
func (s *Store) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.IngestCSVJob, error) {
	s.mu.RLock()
	matched := make([]*jobs.IngestCSVJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		if filter.ObjectName != "" && job.ObjectName != filter.ObjectName {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		snapshot := *job
		matched = append(matched, &snapshot)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

// UpdateJobStatus transitions a job and stamps the matching timestamp:
// running sets StartedAt, completed and failed set CompletedAt.
func (s *Store) UpdateJobStatus(ctx context.Context, jobID string, status jobs.JobStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("inmemory: job not found: %s", jobID)
	}

	now := time.Now().UTC()
	switch status {
	case jobs.JobStatusRunning:
		if job.StartedAt == nil {
			job.StartedAt = &now
		}
	case jobs.JobStatusCompleted, jobs.JobStatusFailed:
		job.CompletedAt = &now
	}

	job.Status = status
	if errorMsg != "" {
		job.Error = errorMsg
	}
	return nil
}
