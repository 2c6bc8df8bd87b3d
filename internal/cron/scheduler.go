// Package cron keeps the catalog of scheduled jobs and fires them when due.
// Fired jobs are handed to a Dispatcher, so a slow run never delays the
// detection of other due jobs. A job whose previous run is still in flight
// is skipped for that fire.
package cron

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aatumaykin/friday/internal/job"
	"github.com/aatumaykin/friday/internal/logger"
	"github.com/aatumaykin/friday/internal/metrics"
	"github.com/robfig/cron/v3"
)

// NoJobs is returned by TimeUntilNextFire for an empty catalog.
const NoJobs time.Duration = -1

var (
	ErrNoJobs         = errors.New("no jobs scheduled")
	ErrDuplicateJob   = errors.New("duplicate job name")
	ErrUnknownJob     = errors.New("unknown job")
	ErrAlreadyRunning = errors.New("job is still running")
)

// Dispatcher starts a run of def. When it returns nil it must call done
// exactly once after the run is over.
type Dispatcher interface {
	Dispatch(def job.Definition, done func()) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(def job.Definition, done func()) error

func (f DispatcherFunc) Dispatch(def job.Definition, done func()) error {
	return f(def, done)
}

// Entry binds a job to its parsed schedule.
type Entry struct {
	Job      job.Definition
	Schedule cron.Schedule
	Next     time.Time
	Prev     time.Time
	Running  bool
}

// Scheduler fires jobs according to their cron schedules.
type Scheduler struct {
	mu         sync.RWMutex
	entries    map[string]*Entry
	running    map[string]bool
	inflight   sync.WaitGroup
	dispatcher Dispatcher
	logger     *logger.Logger
	metrics    metrics.Recorder
	now        func() time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithMetrics reports skipped fires and the catalog size to rec.
func WithMetrics(rec metrics.Recorder) Option {
	return func(s *Scheduler) { s.metrics = rec }
}

// NewScheduler creates an empty scheduler dispatching to d.
func NewScheduler(log *logger.Logger, d Dispatcher, opts ...Option) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	s := &Scheduler{
		entries:    make(map[string]*Entry),
		running:    make(map[string]bool),
		dispatcher: d,
		logger:     log,
		metrics:    metrics.Nop{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddJob parses the job's schedule and adds it to the catalog. The first
// fire is the first schedule time after now. A malformed schedule fails
// with an error wrapping job.ErrLoad and leaves the catalog untouched.
func (s *Scheduler) AddJob(def job.Definition) error {
	schedule, err := ParseSchedule(def.Schedule)
	if err != nil {
		return fmt.Errorf("%w: job %q: %v", job.ErrLoad, def.Name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[def.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, def.Name)
	}

	entry := &Entry{
		Job:      def,
		Schedule: schedule,
		Next:     schedule.Next(s.now()),
	}
	s.entries[def.Name] = entry
	s.metrics.SetJobsScheduled(len(s.entries))

	s.logger.Info("job scheduled",
		logger.Field{Key: "job", Value: def.Name},
		logger.Field{Key: "schedule", Value: def.Schedule},
		logger.Field{Key: "next", Value: entry.Next.Format(time.RFC3339)})
	return nil
}

// Len returns the number of scheduled jobs.
func (s *Scheduler) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Jobs returns a snapshot of the catalog sorted by job name.
func (s *Scheduler) Jobs() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]Entry, 0, len(s.entries))
	for name, e := range s.entries {
		snapshot := *e
		snapshot.Running = s.running[name]
		entries = append(entries, snapshot)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Job.Name < entries[j].Job.Name })
	return entries
}

// Tick fires every job due at now and advances its next fire time past now.
// Missed fires are not replayed. It returns the number of dispatched runs.
func (s *Scheduler) Tick(now time.Time) int {
	s.mu.Lock()
	names := make([]string, 0, len(s.entries))
	for name, e := range s.entries {
		if !e.Next.IsZero() && !e.Next.After(now) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	due := make([]job.Definition, 0, len(names))
	for _, name := range names {
		e := s.entries[name]
		e.Prev = e.Next
		e.Next = e.Schedule.Next(now)

		if s.claimLocked(e) == nil {
			due = append(due, e.Job)
		}
	}
	s.mu.Unlock()

	dispatched := 0
	for _, def := range due {
		if s.dispatch(def) == nil {
			dispatched++
		}
	}
	return dispatched
}

// claimLocked marks e as in flight unless a run is already going on.
func (s *Scheduler) claimLocked(e *Entry) error {
	name := e.Job.Name
	if s.running[name] {
		s.metrics.RecordSkipped(name)
		s.logger.Warn("job is still running, skipping",
			logger.Field{Key: "job", Value: name},
			logger.Field{Key: "next", Value: e.Next.Format(time.RFC3339)})
		return ErrAlreadyRunning
	}
	s.running[name] = true
	s.inflight.Add(1)
	return nil
}

// dispatch hands a claimed job to the dispatcher, releasing the claim when
// the dispatcher refuses it.
func (s *Scheduler) dispatch(def job.Definition) error {
	if err := s.dispatcher.Dispatch(def, s.doneFunc(def.Name)); err != nil {
		s.Done(def.Name)
		s.logger.Error("failed to dispatch job", err,
			logger.Field{Key: "job", Value: def.Name})
		return err
	}
	s.logger.Info("job fired", logger.Field{Key: "job", Value: def.Name})
	return nil
}

func (s *Scheduler) doneFunc(name string) func() {
	var once sync.Once
	return func() { once.Do(func() { s.Done(name) }) }
}

// Done marks the run of name as finished.
func (s *Scheduler) Done(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running[name] {
		return
	}
	delete(s.running, name)
	s.inflight.Done()
}

// IsRunning reports whether a run of name is in flight.
func (s *Scheduler) IsRunning(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running[name]
}

// TimeUntilNextFire returns how long until the earliest next fire, zero when
// a job is already due, or NoJobs for an empty catalog.
func (s *Scheduler) TimeUntilNextFire(now time.Time) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.entries) == 0 {
		return NoJobs
	}

	var next time.Time
	for _, e := range s.entries {
		// a zero Next means the schedule never fires again
		if e.Next.IsZero() {
			continue
		}
		if next.IsZero() || e.Next.Before(next) {
			next = e.Next
		}
	}
	if next.IsZero() {
		return NoJobs
	}

	d := next.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// RunNow fires name immediately without touching its schedule.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	e, ok := s.entries[name]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	err := s.claimLocked(e)
	def := e.Job
	s.mu.Unlock()

	if err != nil {
		return err
	}
	return s.dispatch(def)
}

// Run fires due jobs until ctx is done. It fails with ErrNoJobs right away
// when the catalog is empty.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.Len() == 0 {
		return ErrNoJobs
	}

	s.logger.Info("scheduler started", logger.Field{Key: "jobs", Value: s.Len()})

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return nil
		case <-timer.C:
			now := s.now()
			s.Tick(now)

			wait := s.TimeUntilNextFire(s.now())
			if wait == NoJobs {
				s.logger.Warn("no job will fire again, scheduler idle")
				<-ctx.Done()
				s.logger.Info("scheduler stopped")
				return nil
			}
			s.logger.Debug("sleeping until next fire",
				logger.Field{Key: "wait", Value: wait.String()})
			timer.Reset(wait)
		}
	}
}

// Wait blocks until every dispatched run has finished.
func (s *Scheduler) Wait() {
	s.inflight.Wait()
}
