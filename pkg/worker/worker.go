// Package worker runs the per-message pipeline against the in-memory task
// queue using a fixed-size pool of polling goroutines.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/truffle/expertise-miner/pkg/queue"
)

// pollInterval is how long a worker sleeps after finding pending empty.
const pollInterval = 500 * time.Millisecond

// Processor runs the per-message pipeline against one task.
type Processor interface {
	Process(ctx context.Context, task *queue.MessageTask) error
}

// Status is a worker's current activity state.
type Status string

// Worker activity states.
const (
	StatusIdle    Status = "idle"
	StatusWorking Status = "working"
)

// Health reports a single worker's current status for the operational API.
type Health struct {
	ID             string    `json:"id"`
	Status         Status    `json:"status"`
	CurrentTaskID  string    `json:"current_task_id,omitempty"`
	TasksProcessed int       `json:"tasks_processed"`
	LastActivity   time.Time `json:"last_activity"`
}

// Worker polls the queue and runs the pipeline on each dequeued task.
type Worker struct {
	id        string
	q         *queue.Queue
	processor Processor
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	logger    *slog.Logger

	mu             sync.RWMutex
	status         Status
	currentTaskID  string
	tasksProcessed int
	lastActivity   time.Time
}

func newWorker(id string, q *queue.Queue, processor Processor) *Worker {
	return &Worker{
		id:           id,
		q:            q,
		processor:    processor,
		stopCh:       make(chan struct{}),
		logger:       slog.Default().With("component", "worker", "worker_id", id),
		status:       StatusIdle,
		lastActivity: time.Now(),
	}
}

// Start begins the worker's polling loop in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop signals the worker to stop and waits for its loop to exit.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

// Health reports this worker's current status.
func (w *Worker) Health() Health {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return Health{
		ID:             w.id,
		Status:         w.status,
		CurrentTaskID:  w.currentTaskID,
		TasksProcessed: w.tasksProcessed,
		LastActivity:   w.lastActivity,
	}
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()
	w.logger.Info("worker started")

	for {
		select {
		case <-w.stopCh:
			w.logger.Info("worker shutting down")
			return
		case <-ctx.Done():
			w.logger.Info("context cancelled, worker shutting down")
			return
		default:
			if !w.pollAndProcess(ctx) {
				w.sleep(pollInterval)
			}
		}
	}
}

// pollAndProcess dequeues and processes a single task. It returns false
// when there was nothing to dequeue, so the caller backs off.
func (w *Worker) pollAndProcess(ctx context.Context) bool {
	task, ok := w.q.Dequeue()
	if !ok {
		return false
	}

	w.setWorking(task.TaskID)
	defer w.setIdle()

	if err := w.processor.Process(ctx, task); err != nil {
		w.logger.Error("pipeline error", "task_id", task.TaskID, "error", err)
		w.q.MarkFailed(task.TaskID, err.Error())
		return true
	}

	w.q.MarkCompleted(task.TaskID)
	return true
}

func (w *Worker) setWorking(taskID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = StatusWorking
	w.currentTaskID = taskID
	w.lastActivity = time.Now()
}

func (w *Worker) setIdle() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = StatusIdle
	w.currentTaskID = ""
	w.tasksProcessed++
	w.lastActivity = time.Now()
}

func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.stopCh:
	case <-time.After(d):
	}
}
