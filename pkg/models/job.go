// Package models contains shared data models used across the InsightQ codebase.
package models

import "time"

const (
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

// Job is one unit of batch work: one customer, one ordered list of analysis
// types. Jobs are created queued by the submitter and driven to a terminal
// state (completed or failed) by exactly one worker. JobID is derived as
// "{batchID}-{customerID}", so every job of a batch shares a lexical prefix;
// a batch has no record of its own and is reconstructed by prefix query.
type Job struct {
	JobID         string                    `db:"job_id"         json:"job_id"`
	CustomerID    string                    `db:"customer_id"    json:"customer_id"`
	AnalysisTypes []string                  `db:"analysis_types" json:"analysis_types"`
	Status        string                    `db:"status"         json:"status"`
	Priority      string                    `db:"priority"       json:"priority"`
	Progress      float64                   `db:"progress"       json:"progress"`
	Results       map[string]AnalysisResult `db:"results"        json:"results,omitempty"`
	ErrorMessage  *string                   `db:"error_message"  json:"error_message,omitempty"`
	EstimatedCost float64                   `db:"estimated_cost" json:"estimated_cost"`
	CreatedAt     time.Time                 `db:"created_at"     json:"created_at"`
	StartedAt     *time.Time                `db:"started_at"     json:"started_at,omitempty"`
	CompletedAt   *time.Time                `db:"completed_at"   json:"completed_at,omitempty"`
	UpdatedAt     time.Time                 `db:"updated_at"     json:"updated_at"`
}

// Terminal reports whether the job has reached a terminal status.
func (j *Job) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// ValidPriority reports whether p is one of the known priority tags.
func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityNormal || p == PriorityHigh
}

// BatchStats aggregates the jobs of one batch. Derived on demand from the
// job records, never persisted.
type BatchStats struct {
	TotalJobs             int     `json:"total_jobs"`
	CompletedJobs         int     `json:"completed_jobs"`
	FailedJobs            int     `json:"failed_jobs"`
	QueuedJobs            int     `json:"queued_jobs"`
	ProcessingJobs        int     `json:"processing_jobs"`
	AverageProcessingSecs float64 `json:"average_processing_secs"`
	TotalCost             float64 `json:"total_cost"`
	SuccessRate           float64 `json:"success_rate"`
}

// QueueStats is a pass-through of the work queue's approximate attributes.
type QueueStats struct {
	ApproxMessages      int `json:"approx_messages"`
	ApproxInFlight      int `json:"approx_in_flight"`
	ApproxOldestAgeSecs int `json:"approx_oldest_age_secs"`
}
