package queue

import (
	"container/list"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/truffle/expertise-miner/pkg/model"
)

// maxArchiveSize bounds the completed/failed archives so a long-running
// ingestor doesn't grow memory without bound; the oldest entry is evicted
// when a new one would exceed the cap.
const maxArchiveSize = 1000

// Queue is the in-memory message task queue. All operations are mutually
// exclusive under a single lock, matching the Python original's
// asyncio.Lock-guarded QueueService.
type Queue struct {
	mu sync.Mutex

	pending    *list.List // of *MessageTask, front = next to dequeue
	processing map[string]*MessageTask

	completed    map[string]*MessageTask
	completedSeq []string // insertion order, for bounded eviction
	failed       map[string]*MessageTask
	failedSeq    []string
}

// New builds an empty queue.
func New() *Queue {
	return &Queue{
		pending:    list.New(),
		processing: make(map[string]*MessageTask),
		completed:  make(map[string]*MessageTask),
		failed:     make(map[string]*MessageTask),
	}
}

// Enqueue appends a new task to the back of pending and returns its ID.
func (q *Queue) Enqueue(message model.Message, channel model.Channel, users map[string]model.ChatUser) string {
	task := &MessageTask{
		TaskID:    uuid.NewString(),
		Message:   message,
		Channel:   channel,
		Users:     users,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending.PushBack(task)
	return task.TaskID
}

// Dequeue pops the front of pending into processing and returns it. It
// returns ok=false when pending is empty.
func (q *Queue) Dequeue() (*MessageTask, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	front := q.pending.Front()
	if front == nil {
		return nil, false
	}
	q.pending.Remove(front)

	task := front.Value.(*MessageTask)
	task.Status = StatusProcessing
	task.StartedAt = time.Now()
	q.processing[task.TaskID] = task

	return task, true
}

// MarkCompleted moves a processing task into the bounded completed archive.
func (q *Queue) MarkCompleted(taskID string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	task, ok := q.processing[taskID]
	if !ok {
		return
	}
	delete(q.processing, taskID)

	task.Status = StatusCompleted
	task.CompletedAt = time.Now()
	q.archive(q.completed, &q.completedSeq, task)
}

// MarkFailed records error on a processing task. If it has retries
// remaining, it is pushed to the front of pending (retry-first policy,
// bypassing new arrivals) with its status set to retrying; otherwise it
// moves to the bounded failed archive.
func (q *Queue) MarkFailed(taskID, errorMessage string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	task, ok := q.processing[taskID]
	if !ok {
		return
	}
	delete(q.processing, taskID)

	task.ErrorMessage = errorMessage
	task.RetryCount++

	if task.RetryCount <= MaxRetries {
		task.Status = StatusRetrying
		q.pending.PushFront(task)
		return
	}

	task.Status = StatusFailed
	task.CompletedAt = time.Now()
	q.archive(q.failed, &q.failedSeq, task)
}

// archive inserts task into the given bounded map, evicting the oldest
// entry (by insertion order, tracked in seq) if the cap would be exceeded.
func (q *Queue) archive(m map[string]*MessageTask, seq *[]string, task *MessageTask) {
	if len(m) >= maxArchiveSize && len(*seq) > 0 {
		oldest := (*seq)[0]
		*seq = (*seq)[1:]
		delete(m, oldest)
	}
	m[task.TaskID] = task
	*seq = append(*seq, task.TaskID)
}

// GetStats reports the current size of each set.
func (q *Queue) GetStats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	return Stats{
		Pending:        q.pending.Len(),
		Processing:     len(q.processing),
		Completed:      len(q.completed),
		Failed:         len(q.failed),
		TotalProcessed: len(q.completed) + len(q.failed),
	}
}

// ClearCompleted drops all completed tasks and returns how many were removed.
func (q *Queue) ClearCompleted() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	count := len(q.completed)
	q.completed = make(map[string]*MessageTask)
	q.completedSeq = nil
	return count
}
