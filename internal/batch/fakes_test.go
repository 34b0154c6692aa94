package batch_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/meghanaraju/insightq/internal/queue"
	"github.com/meghanaraju/insightq/internal/store"
	"github.com/meghanaraju/insightq/pkg/models"
)

// memStore is an in-memory store.Store with the same terminal-state guard
// semantics as the postgres implementation.
type memStore struct {
	mu       sync.Mutex
	jobs     map[string]*models.Job
	progress map[string][]float64
}

func newMemStore() *memStore {
	return &memStore{
		jobs:     make(map[string]*models.Job),
		progress: make(map[string][]float64),
	}
}

func (s *memStore) Ping(context.Context) error { return nil }

func (s *memStore) CreateJob(_ context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.JobID]; ok {
		return store.ErrDuplicateKey
	}
	clone := *job
	s.jobs[job.JobID] = &clone
	return nil
}

func (s *memStore) GetJob(_ context.Context, jobID string) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *job
	return &clone, nil
}

func (s *memStore) ListJobsByPrefix(_ context.Context, prefix string) ([]*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Job
	for id, job := range s.jobs {
		if len(id) >= len(prefix) && id[:len(prefix)] == prefix {
			clone := *job
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (s *memStore) mutate(jobID string, fn func(*models.Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return store.ErrNotFound
	}
	if job.Terminal() {
		return store.ErrTerminalJob
	}
	fn(job)
	job.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *memStore) MarkJobProcessing(_ context.Context, jobID string) error {
	return s.mutate(jobID, func(j *models.Job) {
		now := time.Now().UTC()
		j.Status = models.JobStatusProcessing
		j.StartedAt = &now
	})
}

func (s *memStore) UpdateJobProgress(_ context.Context, jobID string, progress float64) error {
	return s.mutate(jobID, func(j *models.Job) {
		j.Progress = progress
		s.progress[jobID] = append(s.progress[jobID], progress)
	})
}

func (s *memStore) CompleteJob(_ context.Context, jobID string, results map[string]models.AnalysisResult) error {
	return s.mutate(jobID, func(j *models.Job) {
		now := time.Now().UTC()
		j.Status = models.JobStatusCompleted
		j.Progress = 100
		j.Results = results
		j.CompletedAt = &now
	})
}

func (s *memStore) FailJob(_ context.Context, jobID string, errMsg string) error {
	return s.mutate(jobID, func(j *models.Job) {
		now := time.Now().UTC()
		j.Status = models.JobStatusFailed
		j.ErrorMessage = &errMsg
		j.CompletedAt = &now
	})
}

func (s *memStore) progressHistory(jobID string) []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]float64(nil), s.progress[jobID]...)
}

// memQueue is an in-memory queue.Queue. Priority groups drain high first,
// then normal, then low. Visibility timeouts are not simulated; extensions
// are counted instead.
type memQueue struct {
	mu          sync.Mutex
	ready       map[string][]queue.Message
	inflight    map[string]queue.Message
	dedupe      map[string]bool
	nextReceipt int
	extensions  int
	stats       models.QueueStats
}

func newMemQueue() *memQueue {
	return &memQueue{
		ready:    make(map[string][]queue.Message),
		inflight: make(map[string]queue.Message),
		dedupe:   make(map[string]bool),
	}
}

func (q *memQueue) Ping(context.Context) error { return nil }

func (q *memQueue) Enqueue(_ context.Context, body []byte, group, dedupeID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if dedupeID != "" {
		if q.dedupe[dedupeID] {
			return nil
		}
		q.dedupe[dedupeID] = true
	}
	if !models.ValidPriority(group) {
		group = models.PriorityNormal
	}
	q.ready[group] = append(q.ready[group], queue.Message{
		Body:       body,
		Group:      group,
		EnqueuedAt: time.Now().UTC(),
	})
	return nil
}

func (q *memQueue) Receive(_ context.Context, max int, _, _ time.Duration) ([]queue.Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []queue.Message
	for _, group := range []string{models.PriorityHigh, models.PriorityNormal, models.PriorityLow} {
		for len(out) < max && len(q.ready[group]) > 0 {
			msg := q.ready[group][0]
			q.ready[group] = q.ready[group][1:]
			q.nextReceipt++
			msg.Receipt = fmt.Sprintf("receipt-%d", q.nextReceipt)
			q.inflight[msg.Receipt] = msg
			out = append(out, msg)
		}
	}
	return out, nil
}

func (q *memQueue) Delete(_ context.Context, receipt string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.inflight[receipt]; !ok {
		return queue.ErrReceiptNotFound
	}
	delete(q.inflight, receipt)
	return nil
}

func (q *memQueue) ExtendVisibility(_ context.Context, receipt string, _ time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.inflight[receipt]; !ok {
		return queue.ErrReceiptNotFound
	}
	q.extensions++
	return nil
}

func (q *memQueue) Stats(context.Context) (models.QueueStats, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stats, nil
}

func (q *memQueue) readyCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, msgs := range q.ready {
		n += len(msgs)
	}
	return n
}

func (q *memQueue) inflightCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.inflight)
}

func (q *memQueue) extensionCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.extensions
}

var (
	_ store.Store = (*memStore)(nil)
	_ queue.Queue = (*memQueue)(nil)
)
