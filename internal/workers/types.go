// Package workers provides the goroutine pool that executes fired jobs.
// Executors are registered per task type and results are published on a
// channel for asynchronous monitoring.
package workers

import (
	"context"
	"errors"
	"time"
)

// Task represents a unit of work to be executed by a worker.
type Task struct {
	ID      string          // Unique task identifier
	Type    string          // Task type, selects the registered executor
	Payload any             // Executor specific payload
	Context context.Context // Optional, defaults to the pool context

	// OnDone is called once the task has been processed or discarded.
	OnDone func()
}

// Result represents the outcome of a task execution.
type Result struct {
	TaskID   string
	Type     string
	Output   string
	Error    error
	Duration time.Duration
}

// PoolMetrics tracks execution metrics for the worker pool.
type PoolMetrics struct {
	TasksSubmitted uint64
	TasksCompleted uint64
	TasksFailed    uint64
	TasksRejected  uint64
	TotalDuration  time.Duration
}

// TaskExecutor runs the payload of one task type.
type TaskExecutor func(context.Context, Task) (string, error)

// TaskTypeJob is the task type of a scheduled job run.
const TaskTypeJob = "job"

// Constants for worker pool configuration
const (
	DefaultPoolSize  = 4
	DefaultQueueSize = 64
)

var (
	ErrQueueFull       = errors.New("task queue is full")
	ErrPoolStopped     = errors.New("worker pool is stopped")
	ErrUnknownTaskType = errors.New("unknown task type")
)
