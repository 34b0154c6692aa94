// Package batch implements the batch analysis pipeline: submission fan-out,
// the worker pool that drains the work queue, the per-job runner, and the
// status aggregator that reconstructs a batch from its job records.
package batch

import (
	"errors"

	"github.com/meghanaraju/insightq/pkg/models"
)

var ErrInvalidRequest = errors.New("invalid batch request")

// CustomerData is one customer's purchase history as submitted.
type CustomerData struct {
	CustomerID string            `json:"customer_id"`
	Purchases  []models.Purchase `json:"purchases"`
}

// SubmitRequest is a request to analyze a set of customers. AnalysisTypes is
// ordered; the runner executes the steps of every job in exactly this order.
type SubmitRequest struct {
	Customers     []CustomerData `json:"customers"`
	AnalysisTypes []string       `json:"analysis_types"`
	Priority      string         `json:"priority,omitempty"`
}

// SubmitResult summarizes an accepted batch.
type SubmitResult struct {
	BatchID       string  `json:"batch_id"`
	JobCount      int     `json:"job_count"`
	EstimatedCost float64 `json:"estimated_cost"`
	Status        string  `json:"status"`
}

// jobPayload is the queue message body. It carries everything the runner
// needs so a worker never has to fetch purchase data separately.
type jobPayload struct {
	JobID         string            `json:"job_id"`
	CustomerID    string            `json:"customer_id"`
	Purchases     []models.Purchase `json:"purchases"`
	AnalysisTypes []string          `json:"analysis_types"`
	Priority      string            `json:"priority"`
}
