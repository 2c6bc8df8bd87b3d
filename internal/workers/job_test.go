package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aatumaykin/friday/internal/artifacts"
	"github.com/aatumaykin/friday/internal/job"
	"github.com/aatumaykin/friday/internal/logger"
	"github.com/aatumaykin/friday/internal/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	result *runner.Result
	err    error
	got    []job.Definition
}

func (f *fakeRunner) Execute(_ context.Context, def job.Definition) (*runner.Result, error) {
	f.got = append(f.got, def)
	return f.result, f.err
}

type recorded struct {
	job, status string
}

type fakeRecorder struct {
	mu        sync.Mutex
	runs      []recorded
	steps     []string
	artifacts int
}

func (f *fakeRecorder) RecordRun(job, status string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, recorded{job, status})
}

func (f *fakeRecorder) RecordStepFailure(_, step string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.steps = append(f.steps, step)
}

func (f *fakeRecorder) RecordArtifacts(_ string, copied int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.artifacts += copied
}

func (f *fakeRecorder) RecordSkipped(string)  {}
func (f *fakeRecorder) SetJobsScheduled(int) {}

func TestJobExecutor_RecordsRun(t *testing.T) {
	start := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	fr := &fakeRunner{result: &runner.Result{
		Job:        "build",
		RunDir:     "/var/lib/friday/build/2026-10-19.10:00",
		StartedAt:  start,
		FinishedAt: start.Add(time.Minute),
		Steps: []runner.StepResult{
			{Name: "compile", ExitCode: 0},
			{Name: "test", ExitCode: 2, Err: errors.New("exit status 2")},
		},
		Artifacts: artifacts.Stats{Matched: 2, Copied: 2},
	}}
	rec := &fakeRecorder{}

	out, err := JobExecutor(fr, rec)(context.Background(), Task{Type: TaskTypeJob, Payload: job.Definition{Name: "build"}})
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/friday/build/2026-10-19.10:00", out)
	assert.Equal(t, []recorded{{"build", runner.StatusFailed}}, rec.runs)
	assert.Equal(t, []string{"test"}, rec.steps)
	assert.Equal(t, 2, rec.artifacts)
	require.Len(t, fr.got, 1)
	assert.Equal(t, "build", fr.got[0].Name)
}

func TestJobExecutor_AbortedRun(t *testing.T) {
	fr := &fakeRunner{
		result: &runner.Result{Job: "broken", Aborted: true, Err: runner.ErrProcessSpawn},
		err:    runner.ErrProcessSpawn,
	}
	rec := &fakeRecorder{}

	_, err := JobExecutor(fr, rec)(context.Background(), Task{Payload: job.Definition{Name: "broken"}})
	assert.ErrorIs(t, err, runner.ErrProcessSpawn)
	assert.Equal(t, []recorded{{"broken", runner.StatusAborted}}, rec.runs)
}

func TestJobExecutor_InvalidPayload(t *testing.T) {
	_, err := JobExecutor(&fakeRunner{}, nil)(context.Background(), Task{Payload: "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid job task payload")
}

func TestPool_DispatchRunsJob(t *testing.T) {
	home := t.TempDir()
	pool := NewPool(1, 4, logger.Nop())
	rec := &fakeRecorder{}
	pool.Register(TaskTypeJob, JobExecutor(runner.New(home, nil), rec))
	pool.Start()
	defer pool.Stop()

	done := make(chan struct{})
	def := job.Definition{
		Name:     "hello",
		Schedule: "@every 1m",
		Steps:    []job.Step{{Name: "greet", Command: "echo hello"}},
	}
	require.NoError(t, pool.Dispatch(def, func() { close(done) }))

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("job did not finish")
	}

	result := <-pool.Results()
	assert.NoError(t, result.Error)
	assert.Equal(t, TaskTypeJob, result.Type)
	assert.NotEmpty(t, result.TaskID)
	assert.DirExists(t, result.Output)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []recorded{{"hello", runner.StatusSuccess}}, rec.runs)
}

func TestPool_DispatchQueueFull(t *testing.T) {
	pool := NewPool(1, 1, nil)
	pool.Register(TaskTypeJob, JobExecutor(&fakeRunner{}, nil))
	defer pool.Stop()

	def := job.Definition{Name: "a"}
	require.NoError(t, pool.Dispatch(def, func() {}))
	assert.ErrorIs(t, pool.Dispatch(def, func() {}), ErrQueueFull)
}
