package store

import (
	"context"
	"errors"

	"github.com/meghanaraju/insightq/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")
var ErrTerminalJob = errors.New("job already in a terminal state")

// Store is the job store interface. All database operations go through here.
//
// Jobs are keyed by job id ("{batchID}-{customerID}"); a batch is not a
// persisted entity and is reconstructed via ListJobsByPrefix. The mutators
// update only the lifecycle fields — identity fields (job id, customer id,
// analysis types) never change after CreateJob.
type Store interface {
	Ping(ctx context.Context) error

	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
	ListJobsByPrefix(ctx context.Context, prefix string) ([]*models.Job, error)

	// MarkJobProcessing sets status=processing and started_at. It is an
	// unconditional claim: exclusivity against concurrent workers comes from
	// the queue's visibility timeout, not from the store.
	MarkJobProcessing(ctx context.Context, jobID string) error
	UpdateJobProgress(ctx context.Context, jobID string, progress float64) error
	CompleteJob(ctx context.Context, jobID string, results map[string]models.AnalysisResult) error
	FailJob(ctx context.Context, jobID string, errMsg string) error
}
