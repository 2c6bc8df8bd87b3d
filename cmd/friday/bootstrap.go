package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aatumaykin/friday/internal/config"
	"github.com/aatumaykin/friday/internal/cron"
	"github.com/aatumaykin/friday/internal/job"
	"github.com/aatumaykin/friday/internal/logger"
	"github.com/aatumaykin/friday/internal/metrics"
	"github.com/aatumaykin/friday/internal/runner"
	"github.com/aatumaykin/friday/internal/workers"
)

// loadConfig reads .env and the config file of dir and validates it.
func loadConfig(dir string) (*config.Config, error) {
	if err := config.LoadEnvOptional(".env"); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	path, err := config.Locate(dir)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %w", errors.Join(errs...))
	}
	return cfg, nil
}

// newLogger opens the event log and reports the config warnings through it.
func newLogger(cfg *config.Config, debug bool) (*logger.Logger, error) {
	lc := cfg.LoggerConfig()
	if debug {
		lc.Level = "debug"
	}
	log, err := logger.New(lc)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	for _, w := range cfg.Warnings() {
		log.Warn(w)
	}
	return log, nil
}

// daemon wires the scheduler to the worker pool and the runner.
type daemon struct {
	cfg       *config.Config
	logger    *logger.Logger
	pool      *workers.WorkerPool
	scheduler *cron.Scheduler
}

func newDaemon(cfg *config.Config, log *logger.Logger, rec metrics.Recorder) *daemon {
	run := runner.New(cfg.Homedir, log,
		runner.WithStepTimeout(time.Duration(cfg.Runner.StepTimeout)*time.Second))

	pool := workers.NewPool(cfg.Workers.PoolSize, cfg.Workers.QueueSize, log)
	pool.Register(workers.TaskTypeJob, workers.JobExecutor(run, rec))

	return &daemon{
		cfg:       cfg,
		logger:    log,
		pool:      pool,
		scheduler: cron.NewScheduler(log, pool, cron.WithMetrics(rec)),
	}
}

// loadJobs adds every valid job file to the schedule. Broken files are
// logged and skipped; a missing jobs directory is fatal.
func (d *daemon) loadJobs() error {
	defs, skipped, err := job.LoadDir(d.cfg.Jobs.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			d.logger.Error("jobs directory does not exist, exiting", err,
				logger.Field{Key: "dir", Value: d.cfg.Jobs.Dir})
			return fmt.Errorf("jobs directory %s does not exist: %w", d.cfg.Jobs.Dir, err)
		}
		return err
	}

	for _, e := range skipped {
		d.logger.Error("skipping job file", e)
	}
	for _, def := range defs {
		if err := d.scheduler.AddJob(def); err != nil {
			d.logger.Error("skipping job", err,
				logger.Field{Key: "job", Value: def.Name},
				logger.Field{Key: "source", Value: def.Source})
		}
	}
	return nil
}

// logResults reports failed runs until the pool is stopped.
func (d *daemon) logResults() {
	for r := range d.pool.Results() {
		if r.Error != nil {
			d.logger.Error("job run failed", r.Error,
				logger.Field{Key: "task_id", Value: r.TaskID},
				logger.Field{Key: "run_dir", Value: r.Output})
			continue
		}
		d.logger.Debug("job run finished",
			logger.Field{Key: "task_id", Value: r.TaskID},
			logger.Field{Key: "run_dir", Value: r.Output},
			logger.Field{Key: "duration", Value: r.Duration.String()})
	}
}
