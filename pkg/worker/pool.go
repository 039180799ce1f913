package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/truffle/expertise-miner/pkg/queue"
)

// defaultWorkerCount is the default pool size.
const defaultWorkerCount = 3

// PoolHealth reports the worker pool's aggregate state for the
// operational API.
type PoolHealth struct {
	TotalWorkers int      `json:"total_workers"`
	Workers      []Health `json:"workers"`
}

// Pool runs a fixed number of Workers against a shared queue.
type Pool struct {
	q         *queue.Queue
	processor Processor
	workers   []*Worker
	started   bool
}

// NewPool builds a pool of n workers (n <= 0 uses the spec default of 3).
func NewPool(q *queue.Queue, processor Processor, n int) *Pool {
	if n <= 0 {
		n = defaultWorkerCount
	}

	workers := make([]*Worker, n)
	for i := 0; i < n; i++ {
		workers[i] = newWorker(fmt.Sprintf("worker-%d", i), q, processor)
	}

	return &Pool{q: q, processor: processor, workers: workers}
}

// Start spawns every worker's polling goroutine. It is a no-op if already started.
func (p *Pool) Start(ctx context.Context) {
	if p.started {
		slog.Warn("worker pool already started, ignoring duplicate Start call")
		return
	}
	p.started = true

	slog.Info("starting worker pool", "worker_count", len(p.workers))
	for _, w := range p.workers {
		w.Start(ctx)
	}
}

// Stop signals every worker to stop and waits for them all to exit.
func (p *Pool) Stop() {
	slog.Info("stopping worker pool")
	for _, w := range p.workers {
		w.Stop()
	}
	slog.Info("worker pool stopped")
}

// Health reports the pool's and each worker's current status.
func (p *Pool) Health() PoolHealth {
	stats := make([]Health, len(p.workers))
	for i, w := range p.workers {
		stats[i] = w.Health()
	}
	return PoolHealth{TotalWorkers: len(p.workers), Workers: stats}
}
