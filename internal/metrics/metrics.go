// Package metrics records job run statistics as Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder receives run events from the scheduler and the worker pool.
type Recorder interface {
	RecordRun(job, status string, duration time.Duration)
	RecordStepFailure(job, step string)
	RecordArtifacts(job string, copied int)
	RecordSkipped(job string)
	SetJobsScheduled(n int)
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordRun(string, string, time.Duration) {}
func (Nop) RecordStepFailure(string, string)        {}
func (Nop) RecordArtifacts(string, int)             {}
func (Nop) RecordSkipped(string)                    {}
func (Nop) SetJobsScheduled(int)                    {}

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "friday"

type PrometheusMetrics struct {
	runsTotal      *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	stepFailures   *prometheus.CounterVec
	artifactsTotal *prometheus.CounterVec
	skippedTotal   *prometheus.CounterVec
	jobsScheduled  prometheus.Gauge
}

// NewPrometheus creates the collectors and registers them with reg, or with
// the default registerer when reg is nil.
func NewPrometheus(namespace string, reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}

	m := &PrometheusMetrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Finished job runs by status",
			},
			[]string{"job", "status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Wall time of job runs",
				Buckets:   []float64{1, 5, 15, 60, 300, 900, 1800, 3600, 7200},
			},
			[]string{"job"},
		),
		stepFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "step_failures_total",
				Help:      "Steps that exited non-zero or were killed",
			},
			[]string{"job", "step"},
		),
		artifactsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "artifacts_copied_total",
				Help:      "Artifact files copied into run directories",
			},
			[]string{"job"},
		),
		skippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_skipped_total",
				Help:      "Fires skipped because the previous run was still in flight",
			},
			[]string{"job"},
		),
		jobsScheduled: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "jobs_scheduled",
				Help:      "Number of jobs in the schedule",
			},
		),
	}

	reg.MustRegister(
		m.runsTotal,
		m.runDuration,
		m.stepFailures,
		m.artifactsTotal,
		m.skippedTotal,
		m.jobsScheduled,
	)

	return m
}

func (m *PrometheusMetrics) RecordRun(job, status string, duration time.Duration) {
	m.runsTotal.WithLabelValues(job, status).Inc()
	m.runDuration.WithLabelValues(job).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordStepFailure(job, step string) {
	m.stepFailures.WithLabelValues(job, step).Inc()
}

func (m *PrometheusMetrics) RecordArtifacts(job string, copied int) {
	m.artifactsTotal.WithLabelValues(job).Add(float64(copied))
}

func (m *PrometheusMetrics) RecordSkipped(job string) {
	m.skippedTotal.WithLabelValues(job).Inc()
}

func (m *PrometheusMetrics) SetJobsScheduled(n int) {
	m.jobsScheduled.Set(float64(n))
}
