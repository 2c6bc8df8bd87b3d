package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestConfigDefaults(t *testing.T) {
	cfg := &Config{path: "/etc/friday/config.yml"}
	applyDefaults(cfg)

	assert.Equal(t, DefaultHomedir, cfg.Homedir)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "/etc/friday/jobs", cfg.Jobs.Dir)
	assert.Equal(t, 4, cfg.Workers.PoolSize)
	assert.Equal(t, 64, cfg.Workers.QueueSize)
	assert.Equal(t, 0, cfg.Runner.StepTimeout)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, DefaultMetricsAddr, cfg.Metrics.Addr)
	assert.Len(t, cfg.Warnings(), 1, "missing homedir is reported")
}

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yml", `
homedir: /srv/friday
log:
  file: /var/log/friday/events.log
  level: D
workers:
  pool_size: 2
runner:
  step_timeout: 600
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/friday", cfg.Homedir)
	assert.Equal(t, "/var/log/friday/events.log", cfg.Log.File)
	assert.Equal(t, "D", cfg.Log.Level)
	assert.Equal(t, 2, cfg.Workers.PoolSize)
	assert.Equal(t, 600, cfg.Runner.StepTimeout)
	assert.Equal(t, filepath.Join(dir, "jobs"), cfg.Jobs.Dir)
	assert.Equal(t, path, cfg.Path())
	assert.Empty(t, cfg.Warnings())
	assert.Empty(t, cfg.Validate())
}

func TestLoad_TOML(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.toml", `
homedir = "/srv/friday"

[log]
file = "stderr"
format = "json"

[jobs]
dir = "definitions"

[metrics]
enabled = true
addr = "0.0.0.0:9100"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "stderr", cfg.Log.File)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, filepath.Join(dir, "definitions"), cfg.Jobs.Dir)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "0.0.0.0:9100", cfg.Metrics.Addr)
	assert.Empty(t, cfg.Validate())
}

func TestLoad_InvalidLevelFallsBackToInfo(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yml", "homedir: /srv/friday\nlog:\n  file: stdout\n  level: chatty\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	require.Len(t, cfg.Warnings(), 1)
	assert.Contains(t, cfg.Warnings()[0], "chatty")
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("FRIDAY_TEST_HOME", "/data/friday")

	path := writeConfig(t, t.TempDir(), "config.yml", `
homedir: ${FRIDAY_TEST_HOME}
log:
  file: ${FRIDAY_TEST_LOG:/tmp/friday.log}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/friday", cfg.Homedir)
	assert.Equal(t, "/tmp/friday.log", cfg.Log.File)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)

	path := writeConfig(t, t.TempDir(), "config.yml", "log: [unterminated\n")
	_, err = Load(path)
	assert.Error(t, err)
}

func TestLocate(t *testing.T) {
	dir := t.TempDir()

	_, err := Locate(dir)
	assert.Error(t, err)

	tomlPath := writeConfig(t, dir, "config.toml", "")
	got, err := Locate(dir)
	require.NoError(t, err)
	assert.Equal(t, tomlPath, got)

	ymlPath := writeConfig(t, dir, "config.yml", "")
	got, err = Locate(dir)
	require.NoError(t, err)
	assert.Equal(t, ymlPath, got, "config.yml wins over config.toml")
}

func TestConfigValidation(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Homedir: "/srv/friday",
			Log:     LogConfig{File: "stdout", Level: "info", Format: "text"},
			Jobs:    JobsConfig{Dir: "/etc/friday/jobs"},
			Workers: WorkersConfig{PoolSize: 1, QueueSize: 1},
			Metrics: MetricsConfig{Addr: DefaultMetricsAddr},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing log file", mutate: func(c *Config) { c.Log.File = "" }, wantErr: true},
		{name: "bad log format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: true},
		{name: "path traversal in homedir", mutate: func(c *Config) { c.Homedir = "/srv/../etc" }, wantErr: true},
		{name: "relative traversal in homedir", mutate: func(c *Config) { c.Homedir = "../runs" }, wantErr: true},
		{name: "dots inside a homedir name", mutate: func(c *Config) { c.Homedir = "/srv/my..runs" }},
		{name: "zero workers", mutate: func(c *Config) { c.Workers.PoolSize = 0 }, wantErr: true},
		{name: "negative step timeout", mutate: func(c *Config) { c.Runner.StepTimeout = -1 }, wantErr: true},
		{
			name: "metrics enabled with bad addr",
			mutate: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.Addr = "nowhere"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			errs := cfg.Validate()
			if tt.wantErr {
				assert.NotEmpty(t, errs)
			} else {
				assert.Empty(t, errs)
			}
		})
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("FRIDAY_X", "value")

	assert.Equal(t, "plain", expandEnv("plain"))
	assert.Equal(t, "value", expandEnv("${FRIDAY_X}"))
	assert.Equal(t, "value/sub", expandEnv("${FRIDAY_X}/sub"))
	assert.Equal(t, "fallback", expandEnv("${FRIDAY_UNSET_VAR:fallback}"))
	assert.Equal(t, "${broken", expandEnv("${broken"))
}
