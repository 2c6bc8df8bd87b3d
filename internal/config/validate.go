package config

import (
	"fmt"
	"net"
	"path/filepath"
	"strings"
)

// Validate reports every problem in the configuration.
func (c *Config) Validate() []error {
	var errs []error

	if c.Homedir == "" {
		errs = append(errs, fmt.Errorf("homedir is required"))
	} else if err := validatePath(c.Homedir, "homedir"); err != nil {
		errs = append(errs, err)
	}

	if c.Log.File == "" {
		errs = append(errs, fmt.Errorf("log.file is required"))
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(c.Log.Format)] {
		errs = append(errs, fmt.Errorf("invalid log.format: %s (expected: json, text)", c.Log.Format))
	}

	if c.Jobs.Dir == "" {
		errs = append(errs, fmt.Errorf("jobs.dir is required"))
	}

	if c.Workers.PoolSize < 1 {
		errs = append(errs, fmt.Errorf("workers.pool_size must be >= 1 (got %d)", c.Workers.PoolSize))
	}
	if c.Workers.QueueSize < 1 {
		errs = append(errs, fmt.Errorf("workers.queue_size must be >= 1 (got %d)", c.Workers.QueueSize))
	}

	if c.Runner.StepTimeout < 0 {
		errs = append(errs, fmt.Errorf("runner.step_timeout must be >= 0 (got %d)", c.Runner.StepTimeout))
	}

	if c.Metrics.Enabled {
		if _, _, err := net.SplitHostPort(c.Metrics.Addr); err != nil {
			errs = append(errs, fmt.Errorf("invalid metrics.addr %q: %w", c.Metrics.Addr, err))
		}
	}

	return errs
}

// validatePath rejects ".." path segments; names merely containing dots pass.
func validatePath(path, fieldName string) error {
	for _, segment := range strings.Split(filepath.ToSlash(path), "/") {
		if segment == ".." {
			return fmt.Errorf("%s contains potentially dangerous path traversal sequence", fieldName)
		}
	}
	return nil
}
