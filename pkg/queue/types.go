// Package queue implements the in-memory message task queue: FIFO
// dispatch with retry-to-front priority and bounded terminal-state
// archives.
package queue

import (
	"time"

	"github.com/truffle/expertise-miner/pkg/model"
)

// Status is a MessageTask's position in its lifecycle.
type Status string

// Task lifecycle states. Transitions are monotonic except retrying → pending.
const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusRetrying   Status = "retrying"
)

// MaxRetries bounds how many times a task may be retried before it is
// moved to the failed archive.
const MaxRetries = 3

// MessageTask is a unit of work: one chat message to run through the
// pipeline, together with the channel and user-map context it arrived with.
type MessageTask struct {
	TaskID       string
	Message      model.Message
	Channel      model.Channel
	Users        map[string]model.ChatUser
	Status       Status
	CreatedAt    time.Time
	StartedAt    time.Time
	CompletedAt  time.Time
	ErrorMessage string
	RetryCount   int
}

// Stats summarizes the current size of each queue set.
type Stats struct {
	Pending        int `json:"pending"`
	Processing     int `json:"processing"`
	Completed      int `json:"completed"`
	Failed         int `json:"failed"`
	TotalProcessed int `json:"total_processed"`
}
