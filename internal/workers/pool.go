package workers

import (
	"context"
	"fmt"
	"sync"

	"github.com/aatumaykin/friday/internal/logger"
)

// WorkerPool manages a pool of goroutine workers for concurrent task execution.
type WorkerPool struct {
	taskQueue chan Task
	resultCh  chan Result
	workers   int
	wg        *taskWaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	logger    *logger.Logger
	metrics   *PoolMetrics

	mu        sync.RWMutex
	executors map[string]TaskExecutor
	started   bool
	stopped   bool
	stopOnce  sync.Once
	quit      chan struct{}
}

// NewPool creates a new worker pool with the specified configuration.
func NewPool(workers int, bufferSize int, log *logger.Logger) *WorkerPool {
	if workers < 1 {
		workers = DefaultPoolSize
	}
	if bufferSize < 1 {
		bufferSize = DefaultQueueSize
	}
	if log == nil {
		log = logger.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		taskQueue: make(chan Task, bufferSize),
		resultCh:  make(chan Result, bufferSize),
		workers:   workers,
		wg:        newTaskWaitGroup(),
		ctx:       ctx,
		cancel:    cancel,
		logger:    log,
		metrics:   &PoolMetrics{},
		executors: make(map[string]TaskExecutor),
		quit:      make(chan struct{}),
	}
}

// Register installs the executor for a task type, replacing any previous one.
func (p *WorkerPool) Register(taskType string, exec TaskExecutor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.executors[taskType] = exec
}

func (p *WorkerPool) executor(taskType string) (TaskExecutor, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	exec, ok := p.executors[taskType]
	return exec, ok
}

// Start initializes and starts all worker goroutines.
func (p *WorkerPool) Start() {
	p.mu.Lock()
	if p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	p.logger.Info("starting worker pool",
		logger.Field{Key: "workers", Value: p.workers},
		logger.Field{Key: "buffer_size", Value: cap(p.taskQueue)})

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Submit sends a task to the worker pool for execution.
// It blocks while the task queue is full.
func (p *WorkerPool) Submit(task Task) error {
	return p.SubmitWithContext(context.Background(), task)
}

// SubmitWithContext waits for queue space until ctx is done.
func (p *WorkerPool) SubmitWithContext(ctx context.Context, task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if err := p.accept(task); err != nil {
		return err
	}

	select {
	case p.taskQueue <- task:
		p.incrementSubmitted()
		p.logger.DebugCtx(ctx, "task submitted",
			logger.Field{Key: "task_id", Value: task.ID},
			logger.Field{Key: "task_type", Value: task.Type})
		return nil
	case <-p.quit:
		p.incrementRejected()
		return ErrPoolStopped
	case <-ctx.Done():
		p.incrementRejected()
		return ctx.Err()
	}
}

// TrySubmit queues the task without blocking and fails with ErrQueueFull
// when there is no room.
func (p *WorkerPool) TrySubmit(task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if err := p.accept(task); err != nil {
		return err
	}

	select {
	case p.taskQueue <- task:
		p.incrementSubmitted()
		p.logger.Debug("task submitted",
			logger.Field{Key: "task_id", Value: task.ID},
			logger.Field{Key: "task_type", Value: task.Type})
		return nil
	default:
		p.incrementRejected()
		p.logger.Warn("task queue is full, task rejected",
			logger.Field{Key: "task_id", Value: task.ID},
			logger.Field{Key: "queue_size", Value: cap(p.taskQueue)})
		return ErrQueueFull
	}
}

// accept must be called with p.mu held.
func (p *WorkerPool) accept(task Task) error {
	if p.stopped {
		return ErrPoolStopped
	}
	if _, ok := p.executors[task.Type]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTaskType, task.Type)
	}
	return nil
}

// Results returns a read-only channel for receiving task results.
// Results are dropped when nobody drains the channel.
func (p *WorkerPool) Results() <-chan Result {
	return p.resultCh
}

// Stop cancels running tasks, waits for the workers to exit and discards
// whatever is still queued.
func (p *WorkerPool) Stop() {
	p.stopOnce.Do(func() {
		// quit first: blocked submitters hold the read lock
		close(p.quit)
		p.mu.Lock()
		p.stopped = true
		p.mu.Unlock()

		p.cancel()
		p.wg.Wait()

		discarded := p.drain()
		metrics := p.Metrics()

		p.logger.Info("worker pool stopped",
			logger.Field{Key: "tasks_submitted", Value: metrics.TasksSubmitted},
			logger.Field{Key: "tasks_completed", Value: metrics.TasksCompleted},
			logger.Field{Key: "tasks_failed", Value: metrics.TasksFailed},
			logger.Field{Key: "tasks_discarded", Value: discarded})

		close(p.resultCh)
	})
}

// drain empties the queue after the workers are gone.
func (p *WorkerPool) drain() int {
	n := 0
	for {
		select {
		case task := <-p.taskQueue:
			n++
			if task.OnDone != nil {
				task.OnDone()
			}
		default:
			return n
		}
	}
}

// WorkerCount returns the number of workers.
func (p *WorkerPool) WorkerCount() int {
	return p.workers
}

// QueueSize returns the current number of tasks waiting in the queue.
func (p *WorkerPool) QueueSize() int {
	return len(p.taskQueue)
}

// taskWaitGroup wraps sync.WaitGroup with thread-safe metrics access.
type taskWaitGroup struct {
	sync.RWMutex
	wg sync.WaitGroup
}

func newTaskWaitGroup() *taskWaitGroup {
	return &taskWaitGroup{}
}

func (twg *taskWaitGroup) Add(delta int) {
	twg.wg.Add(delta)
}

func (twg *taskWaitGroup) Done() {
	twg.wg.Done()
}

func (twg *taskWaitGroup) Wait() {
	twg.wg.Wait()
}
