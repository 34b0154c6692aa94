package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/meghanaraju/insightq/internal/queue"
	"github.com/meghanaraju/insightq/internal/store"
	"github.com/meghanaraju/insightq/pkg/models"
)

// Cost heuristic: each purchase contributes ~50 tokens per analysis step.
const (
	tokensPerPurchase = 50
	costPerToken      = 0.00025 / 1000
)

// Submitter fans a batch request out into one persisted, enqueued job per
// customer.
type Submitter struct {
	store  store.Store
	queue  queue.Queue
	logger *slog.Logger
}

func NewSubmitter(st store.Store, q queue.Queue, logger *slog.Logger) *Submitter {
	return &Submitter{store: st, queue: q, logger: logger}
}

// Submit validates the request, assigns a batch id, and creates one job per
// customer: the job record is written first, then the queue message. A
// failure partway through leaves the already-created jobs in place; they are
// queued and will be processed, but the batch is reported as failed to the
// caller.
func (s *Submitter) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	priority := req.Priority
	if priority == "" {
		priority = models.PriorityNormal
	}

	batchID := newBatchID()
	now := time.Now().UTC()
	totalCost := 0.0

	for _, customer := range req.Customers {
		jobID := fmt.Sprintf("%s-%s", batchID, customer.CustomerID)
		cost := estimateCost(req.AnalysisTypes, customer.Purchases)
		totalCost += cost

		job := &models.Job{
			JobID:         jobID,
			CustomerID:    customer.CustomerID,
			AnalysisTypes: req.AnalysisTypes,
			Status:        models.JobStatusQueued,
			Priority:      priority,
			EstimatedCost: cost,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.store.CreateJob(ctx, job); err != nil {
			return nil, fmt.Errorf("creating job %s: %w", jobID, err)
		}

		body, err := json.Marshal(jobPayload{
			JobID:         jobID,
			CustomerID:    customer.CustomerID,
			Purchases:     customer.Purchases,
			AnalysisTypes: req.AnalysisTypes,
			Priority:      priority,
		})
		if err != nil {
			return nil, fmt.Errorf("encoding payload for job %s: %w", jobID, err)
		}
		if err := s.queue.Enqueue(ctx, body, priority, jobID); err != nil {
			return nil, fmt.Errorf("enqueueing job %s: %w", jobID, err)
		}
	}

	s.logger.Info("batch submitted",
		"batch_id", batchID,
		"job_count", len(req.Customers),
		"priority", priority,
		"estimated_cost", totalCost)

	return &SubmitResult{
		BatchID:       batchID,
		JobCount:      len(req.Customers),
		EstimatedCost: totalCost,
		Status:        "submitted",
	}, nil
}

func validate(req SubmitRequest) error {
	if len(req.Customers) == 0 {
		return fmt.Errorf("%w: at least one customer is required", ErrInvalidRequest)
	}
	if len(req.AnalysisTypes) == 0 {
		return fmt.Errorf("%w: at least one analysis type is required", ErrInvalidRequest)
	}
	for _, t := range req.AnalysisTypes {
		if t == "" {
			return fmt.Errorf("%w: analysis types must be non-empty", ErrInvalidRequest)
		}
	}
	for i, c := range req.Customers {
		if c.CustomerID == "" {
			return fmt.Errorf("%w: customer %d is missing customer_id", ErrInvalidRequest, i)
		}
	}
	if req.Priority != "" && !models.ValidPriority(req.Priority) {
		return fmt.Errorf("%w: priority must be one of low, normal, high; got %q", ErrInvalidRequest, req.Priority)
	}
	return nil
}

// newBatchID keeps batch ids sortable by submission time; the uuid fragment
// guards against same-millisecond collisions.
func newBatchID() string {
	return fmt.Sprintf("batch-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

func estimateCost(analysisTypes []string, purchases []models.Purchase) float64 {
	tokens := len(purchases) * tokensPerPurchase
	return float64(len(analysisTypes)) * float64(tokens) * costPerToken
}
