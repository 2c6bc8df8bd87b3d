package runner

import (
	"time"

	"github.com/aatumaykin/friday/internal/artifacts"
)

// Run outcome labels, also used as metric label values.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusAborted = "aborted"
)

// StepResult describes one executed step.
type StepResult struct {
	Name     string
	Command  string
	ExitCode int // -1 when the process did not exit normally
	Duration time.Duration
	Err      error
}

// Failed reports a non-zero exit or a killed process.
func (s StepResult) Failed() bool {
	return s.ExitCode != 0 || s.Err != nil
}

// Result describes one run of a job.
type Result struct {
	Job        string
	RunDir     string
	StartedAt  time.Time
	FinishedAt time.Time
	Steps      []StepResult
	Artifacts  artifacts.Stats

	// Aborted is set when a step could not be spawned or logged, when the run
	// directory could not be created or when the run was cancelled. Err holds
	// the reason.
	Aborted bool
	Err     error
}

// Duration is the wall time of the run.
func (r *Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// FailedSteps counts steps that exited non-zero or were killed.
func (r *Result) FailedSteps() int {
	n := 0
	for _, s := range r.Steps {
		if s.Failed() {
			n++
		}
	}
	return n
}

// Status summarizes the run as StatusSuccess, StatusFailed or StatusAborted.
func (r *Result) Status() string {
	switch {
	case r.Aborted:
		return StatusAborted
	case r.FailedSteps() > 0 || r.Artifacts.Failed > 0:
		return StatusFailed
	default:
		return StatusSuccess
	}
}
