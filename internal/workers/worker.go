package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/aatumaykin/friday/internal/logger"
)

// worker is the main worker goroutine that processes tasks from the queue.
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	p.logger.DebugCtx(p.ctx, "worker started",
		logger.Field{Key: "worker_id", Value: id})

	for {
		// stop wins over a non-empty queue
		select {
		case <-p.quit:
			p.logger.DebugCtx(p.ctx, "worker stopping",
				logger.Field{Key: "worker_id", Value: id})
			return
		default:
		}

		select {
		case task := <-p.taskQueue:
			p.processTask(id, task)

		case <-p.quit:
			p.logger.DebugCtx(p.ctx, "worker stopping",
				logger.Field{Key: "worker_id", Value: id})
			return
		}
	}
}

// processTask handles a single task execution with metrics and error handling.
func (p *WorkerPool) processTask(workerID int, task Task) {
	if task.OnDone != nil {
		defer task.OnDone()
	}

	startTime := time.Now()

	p.logger.DebugCtx(p.ctx, "processing task",
		logger.Field{Key: "worker_id", Value: workerID},
		logger.Field{Key: "task_id", Value: task.ID},
		logger.Field{Key: "task_type", Value: task.Type})

	execCtx := p.ctx
	if task.Context != nil {
		var cancel context.CancelFunc
		execCtx, cancel = mergeCancel(task.Context, p.ctx)
		defer cancel()
	}

	result := p.executeTask(execCtx, task)
	result.Duration = time.Since(startTime)

	if result.Error != nil {
		p.incrementFailed()
	} else {
		p.incrementCompleted()
	}
	p.recordDuration(result.Duration)

	select {
	case p.resultCh <- result:
	default:
		p.logger.DebugCtx(p.ctx, "result channel full, result dropped",
			logger.Field{Key: "task_id", Value: task.ID})
	}

	p.logger.DebugCtx(p.ctx, "task processed",
		logger.Field{Key: "worker_id", Value: workerID},
		logger.Field{Key: "task_id", Value: task.ID},
		logger.Field{Key: "duration_ms", Value: result.Duration.Milliseconds()},
		logger.Field{Key: "error", Value: result.Error})
}

// executeTask looks up the executor of the task type and runs it, turning a
// panic into an error.
func (p *WorkerPool) executeTask(ctx context.Context, task Task) (result Result) {
	result = Result{TaskID: task.ID, Type: task.Type}

	if err := ctx.Err(); err != nil {
		result.Error = err
		return result
	}

	exec, ok := p.executor(task.Type)
	if !ok {
		result.Error = fmt.Errorf("%w: %s", ErrUnknownTaskType, task.Type)
		return result
	}

	defer func() {
		if r := recover(); r != nil {
			result.Error = fmt.Errorf("panic during task execution: %v", r)
			p.logger.ErrorCtx(ctx, "task panic recovered", result.Error,
				logger.Field{Key: "task_id", Value: task.ID},
				logger.Field{Key: "task_type", Value: task.Type})
		}
	}()

	result.Output, result.Error = exec(ctx, task)
	return result
}

// mergeCancel derives a context from parent that is also cancelled with other.
func mergeCancel(parent, other context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(other, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
