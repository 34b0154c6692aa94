package batch

import (
	"context"
	"log/slog"
	"sync"

	"github.com/meghanaraju/insightq/internal/config"
	"github.com/meghanaraju/insightq/internal/queue"
)

// receiveBatchMax caps how many messages one poll may claim, independent of
// remaining pool capacity.
const receiveBatchMax = 10

// Pool drains the work queue with at most MaxConcurrent jobs running at once.
// Each received message runs on its own goroutine; a job failure never takes
// down the pool or its siblings.
type Pool struct {
	queue  queue.Queue
	runner *Runner
	cfg    config.WorkerConfig
	logger *slog.Logger

	mu       sync.Mutex
	inflight int
}

func NewPool(q queue.Queue, runner *Runner, cfg config.WorkerConfig, logger *slog.Logger) *Pool {
	return &Pool{queue: q, runner: runner, cfg: cfg, logger: logger}
}

// Run polls the queue until ctx is cancelled, then waits for in-flight jobs
// to finish before returning.
func (p *Pool) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	p.logger.Info("worker pool started", "max_concurrent", p.cfg.MaxConcurrent)

	for {
		if err := ctx.Err(); err != nil {
			p.logger.Info("worker pool stopping, draining in-flight jobs", "in_flight", p.inflightCount())
			return err
		}

		capacity := p.cfg.MaxConcurrent - p.inflightCount()
		if capacity <= 0 {
			if err := sleepCtx(ctx, p.cfg.PollInterval); err != nil {
				continue
			}
			continue
		}
		if capacity > receiveBatchMax {
			capacity = receiveBatchMax
		}

		msgs, err := p.queue.Receive(ctx, capacity, p.cfg.ReceiveWait, p.cfg.VisibilityTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Error("receiving from queue", "error", err)
			if err := sleepCtx(ctx, p.cfg.PollInterval); err != nil {
				continue
			}
			continue
		}

		for _, msg := range msgs {
			p.addInflight(1)
			wg.Add(1)
			go func(m queue.Message) {
				defer wg.Done()
				defer p.addInflight(-1)
				if err := p.runner.Run(ctx, m); err != nil {
					p.logger.Error("running job", "error", err)
				}
			}(msg)
		}
	}
}

func (p *Pool) addInflight(delta int) {
	p.mu.Lock()
	p.inflight += delta
	p.mu.Unlock()
}

func (p *Pool) inflightCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inflight
}
