package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/meghanaraju/insightq/internal/config"
	"github.com/meghanaraju/insightq/internal/queue"
	"github.com/meghanaraju/insightq/internal/store"
	"github.com/meghanaraju/insightq/pkg/models"
)

const defaultMaxRecommendations = 5

// Runner executes one queued job end to end: claim, ordered analysis steps,
// progress updates, terminal store write, queue delete. The queue message is
// deleted only after the job reaches a terminal state, so a crash mid-run
// redelivers the message and another worker retries the job.
type Runner struct {
	store    store.Store
	queue    queue.Queue
	provider models.AnalysisProvider
	cfg      config.WorkerConfig
	logger   *slog.Logger
}

func NewRunner(st store.Store, q queue.Queue, provider models.AnalysisProvider, cfg config.WorkerConfig, logger *slog.Logger) *Runner {
	return &Runner{store: st, queue: q, provider: provider, cfg: cfg, logger: logger}
}

// Run processes a single received message. It returns an error only for
// conditions the caller cannot act on beyond logging; job-level failures are
// recorded on the job itself.
func (r *Runner) Run(ctx context.Context, msg queue.Message) error {
	var payload jobPayload
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		// A payload we cannot decode will never decode; drop it.
		r.deleteMessage(ctx, msg.Receipt, "")
		return fmt.Errorf("decoding job payload: %w", err)
	}

	log := r.logger.With("job_id", payload.JobID, "customer_id", payload.CustomerID)

	if err := r.store.MarkJobProcessing(ctx, payload.JobID); err != nil {
		switch {
		case errors.Is(err, store.ErrTerminalJob):
			// Redelivery of an already-finished job; nothing left to do.
			log.Info("job already terminal, dropping redelivered message")
			r.deleteMessage(ctx, msg.Receipt, payload.JobID)
			return nil
		case errors.Is(err, store.ErrNotFound):
			log.Warn("job record missing for queued message, dropping")
			r.deleteMessage(ctx, msg.Receipt, payload.JobID)
			return nil
		default:
			// Leave the message in flight; it redelivers after the
			// visibility timeout.
			return fmt.Errorf("marking job %s processing: %w", payload.JobID, err)
		}
	}

	results := make(map[string]models.AnalysisResult, len(payload.AnalysisTypes))
	total := len(payload.AnalysisTypes)

	for i, analysisType := range payload.AnalysisTypes {
		resp, err := r.provider.Analyze(ctx, models.AnalysisRequest{
			CustomerID:         payload.CustomerID,
			Purchases:          payload.Purchases,
			AnalysisType:       analysisType,
			MaxRecommendations: defaultMaxRecommendations,
		})
		if err != nil {
			log.Error("analysis backend error, failing job", "analysis_type", analysisType, "error", err)
			if ferr := r.store.FailJob(ctx, payload.JobID, err.Error()); ferr != nil {
				log.Error("recording job failure", "error", ferr)
			}
			r.deleteMessage(ctx, msg.Receipt, payload.JobID)
			return nil
		}

		if resp.Success && resp.Data != nil {
			results[analysisType] = *resp.Data
		} else {
			// A failed step is omitted from results; the job keeps going.
			log.Warn("analysis step failed", "analysis_type", analysisType, "error", resp.Error)
		}

		progress := 100 * float64(i+1) / float64(total)
		if err := r.store.UpdateJobProgress(ctx, payload.JobID, progress); err != nil {
			log.Warn("updating job progress", "progress", progress, "error", err)
		}

		// Heartbeat so long jobs outlive the visibility timeout. Best effort:
		// a lost receipt just means eventual redelivery.
		if err := r.queue.ExtendVisibility(ctx, msg.Receipt, r.cfg.VisibilityTimeout); err != nil {
			log.Warn("extending message visibility", "error", err)
		}

		if err := sleepCtx(ctx, r.cfg.StepDelay); err != nil {
			return err
		}
	}

	if err := r.store.CompleteJob(ctx, payload.JobID, results); err != nil {
		log.Error("completing job", "error", err)
		return fmt.Errorf("completing job %s: %w", payload.JobID, err)
	}
	r.deleteMessage(ctx, msg.Receipt, payload.JobID)

	log.Info("job completed", "steps", total, "results", len(results))
	return nil
}

func (r *Runner) deleteMessage(ctx context.Context, receipt, jobID string) {
	if err := r.queue.Delete(ctx, receipt); err != nil {
		r.logger.Warn("deleting queue message", "job_id", jobID, "error", err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
