package batch

import (
	"context"
	"fmt"

	"github.com/meghanaraju/insightq/internal/queue"
	"github.com/meghanaraju/insightq/internal/store"
	"github.com/meghanaraju/insightq/pkg/models"
)

// BatchStatus is the reconstructed view of one batch: its job records plus
// stats folded from them.
type BatchStatus struct {
	BatchID string            `json:"batch_id"`
	Jobs    []*models.Job     `json:"jobs"`
	Stats   models.BatchStats `json:"stats"`
}

// StatusService answers read-side queries about batches and the queue.
type StatusService struct {
	store store.Store
	queue queue.Queue
}

func NewStatusService(st store.Store, q queue.Queue) *StatusService {
	return &StatusService{store: st, queue: q}
}

// BatchStatus loads every job of the batch by id prefix and aggregates them.
// Returns store.ErrNotFound when the batch has no jobs.
func (s *StatusService) BatchStatus(ctx context.Context, batchID string) (*BatchStatus, error) {
	jobs, err := s.store.ListJobsByPrefix(ctx, batchID+"-")
	if err != nil {
		return nil, fmt.Errorf("listing jobs for batch %s: %w", batchID, err)
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("batch %s: %w", batchID, store.ErrNotFound)
	}

	return &BatchStatus{
		BatchID: batchID,
		Jobs:    jobs,
		Stats:   foldStats(jobs),
	}, nil
}

// QueueStats reports the work queue's approximate attributes.
func (s *StatusService) QueueStats(ctx context.Context) (models.QueueStats, error) {
	return s.queue.Stats(ctx)
}

func foldStats(jobs []*models.Job) models.BatchStats {
	stats := models.BatchStats{TotalJobs: len(jobs)}

	var processingSecs float64
	var timedJobs int

	for _, job := range jobs {
		switch job.Status {
		case models.JobStatusCompleted:
			stats.CompletedJobs++
		case models.JobStatusFailed:
			stats.FailedJobs++
		case models.JobStatusQueued:
			stats.QueuedJobs++
		case models.JobStatusProcessing:
			stats.ProcessingJobs++
		}
		stats.TotalCost += job.EstimatedCost

		if job.StartedAt != nil && job.CompletedAt != nil {
			processingSecs += job.CompletedAt.Sub(*job.StartedAt).Seconds()
			timedJobs++
		}
	}

	if timedJobs > 0 {
		stats.AverageProcessingSecs = processingSecs / float64(timedJobs)
	}
	if stats.TotalJobs > 0 {
		stats.SuccessRate = 100 * float64(stats.CompletedJobs) / float64(stats.TotalJobs)
	}

	return stats
}
