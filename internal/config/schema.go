// Package config loads friday's top-level configuration.
//
// The configuration lives next to the jobs directory, in either YAML
// (config.yml / config.yaml) or TOML (config.toml):
//
//	homedir: /var/lib/friday
//	log:
//	  file: /var/log/friday/events.log
//	  level: info
//	  format: text
//	jobs:
//	  dir: ./jobs
//	workers:
//	  pool_size: 4
//	  queue_size: 64
//	runner:
//	  step_timeout: 0
//	metrics:
//	  enabled: false
//	  addr: 127.0.0.1:9464
//
// String values may reference environment variables with ${VAR} or
// ${VAR:default}; paths may start with ~/.
package config

// Config is the top-level friday configuration.
type Config struct {
	Homedir string        `yaml:"homedir" toml:"homedir"`
	Log     LogConfig     `yaml:"log" toml:"log"`
	Jobs    JobsConfig    `yaml:"jobs" toml:"jobs"`
	Workers WorkersConfig `yaml:"workers" toml:"workers"`
	Runner  RunnerConfig  `yaml:"runner" toml:"runner"`
	Metrics MetricsConfig `yaml:"metrics" toml:"metrics"`

	// path of the file the config was read from
	path     string
	warnings []string
}

// LogConfig describes the event log.
type LogConfig struct {
	File   string `yaml:"file" toml:"file"`
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// JobsConfig points at the job definition files.
type JobsConfig struct {
	Dir string `yaml:"dir" toml:"dir"`
}

// WorkersConfig sizes the pool that executes runs.
type WorkersConfig struct {
	PoolSize  int `yaml:"pool_size" toml:"pool_size"`
	QueueSize int `yaml:"queue_size" toml:"queue_size"`
}

// RunnerConfig tunes step execution.
type RunnerConfig struct {
	// StepTimeout is the per-step limit in seconds, 0 disables it.
	StepTimeout int `yaml:"step_timeout" toml:"step_timeout"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Addr    string `yaml:"addr" toml:"addr"`
}

// Path returns the file the configuration was loaded from.
func (c *Config) Path() string {
	return c.path
}

// Warnings returns non-fatal problems found while loading, such as an unknown
// log level that was replaced by "info".
func (c *Config) Warnings() []string {
	return c.warnings
}
