package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meghanaraju/insightq/pkg/models"
)

const jobColumns = `job_id, customer_id, analysis_types, status, priority, progress,
	 results, error_message, estimated_cost, created_at, started_at, completed_at, updated_at`

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) CreateJob(ctx context.Context, job *models.Job) error {
	results, err := marshalResults(job.Results)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO batch_jobs (`+jobColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		job.JobID, job.CustomerID, job.AnalysisTypes, job.Status, job.Priority, job.Progress,
		results, job.ErrorMessage, job.EstimatedCost, job.CreatedAt, job.StartedAt,
		job.CompletedAt, job.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM batch_jobs WHERE job_id = $1`, jobID)

	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

func (s *PostgresStore) ListJobsByPrefix(ctx context.Context, prefix string) ([]*models.Job, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM batch_jobs
		 WHERE job_id LIKE $1 || '%' ORDER BY created_at, job_id`, prefix)
	if err != nil {
		return nil, fmt.Errorf("list jobs by prefix: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (s *PostgresStore) MarkJobProcessing(ctx context.Context, jobID string) error {
	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE batch_jobs SET status = $2, started_at = $3, updated_at = $3
		 WHERE job_id = $1 AND status NOT IN ('completed', 'failed')`,
		jobID, models.JobStatusProcessing, now)
	if err != nil {
		return fmt.Errorf("mark job processing: %w", err)
	}
	return s.checkUpdated(ctx, tag, jobID)
}

func (s *PostgresStore) UpdateJobProgress(ctx context.Context, jobID string, progress float64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE batch_jobs SET progress = $2, updated_at = $3
		 WHERE job_id = $1 AND status NOT IN ('completed', 'failed')`,
		jobID, progress, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update job progress: %w", err)
	}
	return s.checkUpdated(ctx, tag, jobID)
}

func (s *PostgresStore) CompleteJob(ctx context.Context, jobID string, results map[string]models.AnalysisResult) error {
	payload, err := marshalResults(results)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE batch_jobs
		 SET status = $2, results = $3, progress = 100, completed_at = $4, updated_at = $4
		 WHERE job_id = $1 AND status NOT IN ('completed', 'failed')`,
		jobID, models.JobStatusCompleted, payload, now)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return s.checkUpdated(ctx, tag, jobID)
}

func (s *PostgresStore) FailJob(ctx context.Context, jobID string, errMsg string) error {
	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE batch_jobs SET status = $2, error_message = $3, completed_at = $4, updated_at = $4
		 WHERE job_id = $1 AND status NOT IN ('completed', 'failed')`,
		jobID, models.JobStatusFailed, errMsg, now)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return s.checkUpdated(ctx, tag, jobID)
}

// checkUpdated distinguishes a missing job from one already terminal when an
// update matched zero rows.
func (s *PostgresStore) checkUpdated(ctx context.Context, tag pgconn.CommandTag, jobID string) error {
	if tag.RowsAffected() > 0 {
		return nil
	}

	var status string
	err := s.pool.QueryRow(ctx, `SELECT status FROM batch_jobs WHERE job_id = $1`, jobID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get job status: %w", err)
	}
	return ErrTerminalJob
}

func scanJob(row pgx.Row) (*models.Job, error) {
	var j models.Job
	var results []byte
	if err := row.Scan(&j.JobID, &j.CustomerID, &j.AnalysisTypes, &j.Status, &j.Priority,
		&j.Progress, &results, &j.ErrorMessage, &j.EstimatedCost, &j.CreatedAt,
		&j.StartedAt, &j.CompletedAt, &j.UpdatedAt); err != nil {
		return nil, err
	}
	if len(results) > 0 {
		if err := json.Unmarshal(results, &j.Results); err != nil {
			return nil, fmt.Errorf("decode job results: %w", err)
		}
	}
	return &j, nil
}

func marshalResults(results map[string]models.AnalysisResult) ([]byte, error) {
	if results == nil {
		return nil, nil
	}
	payload, err := json.Marshal(results)
	if err != nil {
		return nil, fmt.Errorf("encode job results: %w", err)
	}
	return payload, nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
