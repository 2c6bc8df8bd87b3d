package workers

import (
	"context"
	"fmt"

	"github.com/aatumaykin/friday/internal/job"
	"github.com/aatumaykin/friday/internal/metrics"
	"github.com/aatumaykin/friday/internal/runner"
	"github.com/google/uuid"
)

// JobRunner executes one run of a job.
type JobRunner interface {
	Execute(ctx context.Context, def job.Definition) (*runner.Result, error)
}

// JobExecutor adapts a JobRunner to the "job" task type and records the
// outcome of every run.
func JobExecutor(r JobRunner, rec metrics.Recorder) TaskExecutor {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return func(ctx context.Context, task Task) (string, error) {
		def, ok := task.Payload.(job.Definition)
		if !ok {
			return "", fmt.Errorf("invalid job task payload: %T", task.Payload)
		}

		res, err := r.Execute(ctx, def)
		if res == nil {
			return "", err
		}

		rec.RecordRun(def.Name, res.Status(), res.Duration())
		for _, step := range res.Steps {
			if step.Failed() {
				rec.RecordStepFailure(def.Name, step.Name)
			}
		}
		rec.RecordArtifacts(def.Name, res.Artifacts.Copied)

		return res.RunDir, err
	}
}

// Dispatch queues a run of def without blocking. On success done is called
// once the run is over; on error it is not called at all.
func (p *WorkerPool) Dispatch(def job.Definition, done func()) error {
	return p.TrySubmit(Task{
		ID:      uuid.NewString(),
		Type:    TaskTypeJob,
		Payload: def,
		OnDone:  done,
	})
}
