// Package runner executes a job: it creates the run directory, runs the steps
// one after another with their combined output streamed into per-step log
// files and finally collects the job's artifacts into the same directory.
package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aatumaykin/friday/internal/artifacts"
	"github.com/aatumaykin/friday/internal/job"
	"github.com/aatumaykin/friday/internal/logger"
)

// RunDirLayout formats the UTC trigger time into the run directory name.
const RunDirLayout = "2006-01-02.15:04"

const (
	// maxChunk bounds the memory held for a single output line.
	maxChunk = 64 * 1024
	// outputGrace is how long output is still read after a step was killed.
	outputGrace = 2 * time.Second
)

var (
	// ErrDirectory means the job or run directory could not be created.
	ErrDirectory = errors.New("run directory error")
	// ErrProcessSpawn means a step's command could not be started.
	ErrProcessSpawn = errors.New("process spawn error")
	// ErrLogWrite means a step's output file could not be created or written.
	ErrLogWrite = errors.New("step log write error")
)

// Runner executes job definitions below a home directory.
type Runner struct {
	homedir     string
	logger      *logger.Logger
	collector   *artifacts.Collector
	stepTimeout time.Duration
	now         func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithStepTimeout kills any step running longer than d. Zero disables it.
func WithStepTimeout(d time.Duration) Option {
	return func(r *Runner) { r.stepTimeout = d }
}

// WithClock replaces time.Now, used for run directory names and timings.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithCollector replaces the artifact collector.
func WithCollector(c *artifacts.Collector) Option {
	return func(r *Runner) { r.collector = c }
}

// New creates a Runner writing run directories below homedir.
func New(homedir string, log *logger.Logger, opts ...Option) *Runner {
	if log == nil {
		log = logger.Nop()
	}
	r := &Runner{
		homedir: homedir,
		logger:  log,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.collector == nil {
		r.collector = artifacts.NewCollector(log)
	}
	return r
}

// JobDir is the base directory holding every run of the job.
func (r *Runner) JobDir(name string) string {
	return filepath.Join(r.homedir, job.Sanitize(name))
}

// RunDir is the directory of the run triggered at t.
func (r *Runner) RunDir(name string, t time.Time) string {
	return filepath.Join(r.JobDir(name), t.UTC().Format(RunDirLayout))
}

// Execute runs def once. The returned error is non-nil when the run was
// aborted (see Result.Aborted); a step exiting non-zero is recorded in the
// result and does not stop the following steps. Artifacts are collected
// after the step loop even when it was aborted.
func (r *Runner) Execute(ctx context.Context, def job.Definition) (*Result, error) {
	started := r.now()
	res := &Result{
		Job:       def.Name,
		RunDir:    r.RunDir(def.Name, started),
		StartedAt: started,
	}
	log := r.logger.With(
		logger.Field{Key: "job", Value: def.Name},
		logger.Field{Key: "run_dir", Value: res.RunDir})

	if err := os.MkdirAll(res.RunDir, 0755); err != nil {
		res.Aborted = true
		res.Err = fmt.Errorf("%w: %v", ErrDirectory, err)
		res.FinishedAt = r.now()
		log.Error("failed to create run directory", err)
		return res, res.Err
	}

	log.Info("job started", logger.Field{Key: "steps", Value: len(def.Steps)})

	for _, step := range def.Steps {
		if err := ctx.Err(); err != nil {
			res.Aborted = true
			res.Err = err
			log.Warn("job cancelled, remaining steps skipped",
				logger.Field{Key: "next_step", Value: step.Name})
			break
		}

		sr, err := r.runStep(ctx, res.RunDir, step, log)
		res.Steps = append(res.Steps, sr)
		if err != nil {
			res.Aborted = true
			res.Err = err
			log.Error("step aborted the job", err,
				logger.Field{Key: "step", Value: step.Name},
				logger.Field{Key: "command", Value: step.Command})
			break
		}
	}

	for _, rule := range def.Artifacts {
		log.Info("collecting artifacts",
			logger.Field{Key: "workspace", Value: rule.Workspace},
			logger.Field{Key: "patterns", Value: rule.Patterns})

		stats, err := r.collector.Collect(ctx, rule.Workspace, res.RunDir, rule.Patterns)
		res.Artifacts.Matched += stats.Matched
		res.Artifacts.Copied += stats.Copied
		res.Artifacts.Failed += stats.Failed
		if err != nil {
			log.Error("artifact collection aborted", err,
				logger.Field{Key: "workspace", Value: rule.Workspace})
		}
	}

	res.FinishedAt = r.now()
	log.Info("job finished",
		logger.Field{Key: "status", Value: res.Status()},
		logger.Field{Key: "failed_steps", Value: res.FailedSteps()},
		logger.Field{Key: "artifacts", Value: res.Artifacts.Copied},
		logger.Field{Key: "duration", Value: res.Duration().String()})

	return res, res.Err
}

// runStep runs a single step. The returned error is set only for failures
// that must abort the job (spawn, log file, or cancellation of ctx).
func (r *Runner) runStep(ctx context.Context, runDir string, step job.Step, log *logger.Logger) (sr StepResult, err error) {
	sr = StepResult{Name: step.Name, Command: step.Command, ExitCode: -1}
	started := r.now()
	defer func() { sr.Duration = r.now().Sub(started) }()

	log.Info("running step",
		logger.Field{Key: "step", Value: step.Name},
		logger.Field{Key: "command", Value: step.Command})

	args := step.Args()
	if len(args) == 0 {
		sr.Err = fmt.Errorf("%w: empty command", ErrProcessSpawn)
		return sr, sr.Err
	}

	out, err := os.Create(filepath.Join(runDir, step.OutputFile()))
	if err != nil {
		sr.Err = fmt.Errorf("%w: %v", ErrLogWrite, err)
		return sr, sr.Err
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	if _, err := fmt.Fprintf(w, "##################### STEP: %s #####################\n", step.Name); err != nil {
		sr.Err = fmt.Errorf("%w: %v", ErrLogWrite, err)
		return sr, sr.Err
	}

	stepCtx := ctx
	if r.stepTimeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, r.stepTimeout)
		defer cancel()
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		sr.Err = fmt.Errorf("%w: %v", ErrProcessSpawn, err)
		return sr, sr.Err
	}
	defer pr.Close()

	cmd := exec.CommandContext(stepCtx, args[0], args[1:]...)
	cmd.Stdout = pw
	cmd.Stderr = pw
	// own process group so a kill also reaches the step's children
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error { return killGroup(cmd) }
	if err := cmd.Start(); err != nil {
		pw.Close()
		sr.Err = fmt.Errorf("%w: %v", ErrProcessSpawn, err)
		_ = w.Flush()
		return sr, sr.Err
	}
	pw.Close()

	// children that left the group may still hold the pipe open
	stop := context.AfterFunc(stepCtx, func() {
		_ = pr.SetReadDeadline(time.Now().Add(outputGrace))
	})
	defer stop()

	copyErr := streamLines(pr, w)
	if copyErr != nil {
		_ = killGroup(cmd)
	}
	waitErr := cmd.Wait()

	if copyErr != nil {
		sr.Err = fmt.Errorf("%w: %v", ErrLogWrite, copyErr)
		return sr, sr.Err
	}

	sr.ExitCode = exitCode(waitErr)
	switch {
	case ctx.Err() != nil:
		sr.Err = ctx.Err()
		return sr, sr.Err
	case stepCtx.Err() != nil:
		sr.Err = fmt.Errorf("step timed out after %s: %w", r.stepTimeout, stepCtx.Err())
		log.Warn("step killed after timeout",
			logger.Field{Key: "step", Value: step.Name},
			logger.Field{Key: "timeout", Value: r.stepTimeout.String()})
	case sr.ExitCode != 0:
		sr.Err = waitErr
		log.Warn("step exited with non-zero status",
			logger.Field{Key: "step", Value: step.Name},
			logger.Field{Key: "exit_code", Value: sr.ExitCode})
	}
	return sr, nil
}

// streamLines copies src into dst as output arrives, flushing after every
// line. Lines longer than maxChunk are written in fragments. A final line
// without a trailing newline gets one.
func streamLines(src io.Reader, dst *bufio.Writer) error {
	reader := bufio.NewReaderSize(src, maxChunk)
	pending := false
	for {
		chunk, err := reader.ReadSlice('\n')
		if len(chunk) > 0 {
			if _, werr := dst.Write(chunk); werr != nil {
				return werr
			}
			pending = chunk[len(chunk)-1] != '\n'
			if werr := dst.Flush(); werr != nil {
				return werr
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil {
			// EOF or a failed read side, not the log file
			if pending {
				if werr := dst.WriteByte('\n'); werr != nil {
					return werr
				}
			}
			return dst.Flush()
		}
	}
}

// killGroup kills the step process and every process in its group.
func killGroup(cmd *exec.Cmd) error {
	err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	if errors.Is(err, syscall.ESRCH) {
		return os.ErrProcessDone
	}
	return err
}

// exitCode extracts the process exit status from the error returned by Wait.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
