package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/aatumaykin/friday/internal/logger"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigDir is where friday looks for config.yml and jobs/.
	DefaultConfigDir = "./config"
	// DefaultHomedir is the root of all run directories.
	DefaultHomedir = "/var/lib/friday"
	// DefaultMetricsAddr is the listen address of the metrics endpoint.
	DefaultMetricsAddr = "127.0.0.1:9464"
	// JobsDirName is the jobs directory relative to the config directory.
	JobsDirName = "jobs"
)

// candidate config file names, in lookup order
var configFileNames = []string{"config.yml", "config.yaml", "config.toml"}

// Locate returns the config file inside dir.
func Locate(dir string) (string, error) {
	for _, name := range configFileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("failed to stat config file: %w", err)
		}
	}
	return "", fmt.Errorf("no config file (%s) found in %s", strings.Join(configFileNames, ", "), dir)
}

// Load reads the config file at path. The format follows the extension:
// .toml is TOML, everything else is YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if len(bytes.TrimSpace(data)) > 0 {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.path = path
	expandEnvVars(&cfg)
	applyDefaults(&cfg)

	return &cfg, nil
}

// Dir returns the directory holding the config file.
func (c *Config) Dir() string {
	if c.path == "" {
		return DefaultConfigDir
	}
	return filepath.Dir(c.path)
}

// LoggerConfig maps the log section onto the logger package.
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:  c.Log.Level,
		Format: c.Log.Format,
		Output: c.Log.File,
	}
}

// applyDefaults fills unset values. An unknown log level is replaced by
// "info" and reported through Warnings.
func applyDefaults(c *Config) {
	if c.Homedir == "" {
		c.Homedir = DefaultHomedir
		c.warnings = append(c.warnings, fmt.Sprintf("homedir not set, using default: %s", DefaultHomedir))
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	} else if _, ok := logger.ParseLevel(c.Log.Level); !ok {
		c.warnings = append(c.warnings, fmt.Sprintf("invalid log level %q, using info", c.Log.Level))
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	if c.Jobs.Dir == "" {
		c.Jobs.Dir = filepath.Join(c.Dir(), JobsDirName)
	} else if !filepath.IsAbs(c.Jobs.Dir) {
		c.Jobs.Dir = filepath.Join(c.Dir(), c.Jobs.Dir)
	}

	if c.Workers.PoolSize == 0 {
		c.Workers.PoolSize = 4
	}
	if c.Workers.QueueSize == 0 {
		c.Workers.QueueSize = 64
	}

	if c.Metrics.Addr == "" {
		c.Metrics.Addr = DefaultMetricsAddr
	}
}

// expandEnvVars expands ${VAR} references and ~ in path-like fields.
func expandEnvVars(c *Config) {
	c.Homedir = expandHome(expandEnv(c.Homedir))
	c.Log.File = expandHome(expandEnv(c.Log.File))
	c.Log.Level = expandEnv(c.Log.Level)
	c.Jobs.Dir = expandHome(expandEnv(c.Jobs.Dir))
	c.Metrics.Addr = expandEnv(c.Metrics.Addr)
}

// expandEnv expands a value of the form ${VAR} or ${VAR:default}.
func expandEnv(s string) string {
	if !strings.HasPrefix(s, "${") {
		return s
	}

	end := strings.Index(s, "}")
	if end == -1 {
		return s
	}

	content := s[2:end]
	rest := s[end+1:]
	if key, defaultVal, found := strings.Cut(content, ":"); found {
		if val := os.Getenv(key); val != "" {
			return val + rest
		}
		return defaultVal + rest
	}

	return os.Getenv(content) + rest
}

// expandHome expands a leading ~/ to the user's home directory.
func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
