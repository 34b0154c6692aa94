package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/meghanaraju/insightq/internal/api/response"
	"github.com/meghanaraju/insightq/internal/batch"
	"github.com/meghanaraju/insightq/internal/store"
	"github.com/meghanaraju/insightq/pkg/models"
)

// BatchSubmitter defines the submit-side interface the handler depends on.
type BatchSubmitter interface {
	Submit(ctx context.Context, req batch.SubmitRequest) (*batch.SubmitResult, error)
}

// BatchReader defines the read-side interface the handlers depend on.
type BatchReader interface {
	BatchStatus(ctx context.Context, batchID string) (*batch.BatchStatus, error)
	QueueStats(ctx context.Context) (models.QueueStats, error)
}

// NewSubmitBatchHandler returns an http.HandlerFunc for POST /api/v1/batches.
// A valid batch is accepted with 202; processing happens asynchronously.
func NewSubmitBatchHandler(svc BatchSubmitter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req batch.SubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		result, err := svc.Submit(r.Context(), req)
		if err != nil {
			if errors.Is(err, batch.ErrInvalidRequest) {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Batch submission failed", nil)
			return
		}

		response.Accepted(w, result)
	}
}

// NewBatchStatusHandler returns an http.HandlerFunc for
// GET /api/v1/batches/{batchID}.
func NewBatchStatusHandler(svc BatchReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		batchID := chi.URLParam(r, "batchID")
		if batchID == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "batchID is required", nil)
			return
		}

		status, err := svc.BatchStatus(r.Context(), batchID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "BATCH_NOT_FOUND",
					"No jobs found for the given batch id", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		response.JSON(w, status)
	}
}

// NewQueueStatsHandler returns an http.HandlerFunc for GET /api/v1/queue/stats.
func NewQueueStatsHandler(svc BatchReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.QueueStats(r.Context())
		if err != nil {
			response.Error(w, http.StatusServiceUnavailable, "QUEUE_UNAVAILABLE",
				"Queue attributes are not available", nil)
			return
		}
		response.JSON(w, stats)
	}
}
