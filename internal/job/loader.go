package job

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// fileSpec mirrors the on-disk layout of a job file.
type fileSpec struct {
	Job struct {
		Name *string `yaml:"name"`
	} `yaml:"job"`
	Schedule struct {
		Time *string `yaml:"time"`
	} `yaml:"schedule"`
	Steps []struct {
		Name    *string `yaml:"name"`
		Command *string `yaml:"command"`
	} `yaml:"steps"`
	Artifacts []struct {
		Workspace *string `yaml:"workspace"`
		Files     *string `yaml:"files"`
	} `yaml:"artifacts"`
}

// Parse decodes a single YAML job document. A missing job name or schedule
// becomes Placeholder; a step or artifact rule with missing fields is an
// ErrLoad.
func Parse(data []byte, source string) (Definition, error) {
	var spec fileSpec
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&spec); err != nil {
		return Definition{}, fmt.Errorf("%w: %s: invalid YAML: %v", ErrLoad, source, err)
	}

	def := Definition{
		Name:     Placeholder,
		Schedule: Placeholder,
		Source:   source,
	}
	if spec.Job.Name != nil {
		def.Name = Sanitize(*spec.Job.Name)
	}
	if spec.Schedule.Time != nil {
		def.Schedule = strings.TrimSpace(*spec.Schedule.Time)
	}

	for i, s := range spec.Steps {
		if s.Name == nil || s.Command == nil {
			return Definition{}, fmt.Errorf("%w: %s: step %d needs both name and command", ErrLoad, source, i+1)
		}
		def.Steps = append(def.Steps, Step{
			Name:    Sanitize(*s.Name),
			Command: *s.Command,
		})
	}

	for i, a := range spec.Artifacts {
		if a.Workspace == nil || a.Files == nil {
			return Definition{}, fmt.Errorf("%w: %s: artifact rule %d needs both workspace and files", ErrLoad, source, i+1)
		}
		def.Artifacts = append(def.Artifacts, ArtifactRule{
			Workspace: *a.Workspace,
			Patterns:  SplitPatterns(*a.Files),
		})
	}

	if err := def.Validate(); err != nil {
		return Definition{}, fmt.Errorf("%s: %w", source, err)
	}
	return def, nil
}

// ParseFile reads and parses the job file at path.
func ParseFile(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	return Parse(data, path)
}

// LoadDir parses every *.yml / *.yaml file directly inside dir, in name order.
// Broken files and jobs whose name is already taken are returned as errors
// and left out of the result; they never prevent the other jobs from loading.
// The returned error is non-nil only when dir itself cannot be read.
func LoadDir(dir string) ([]Definition, []error, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read jobs directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var (
		defs    []Definition
		skipped []error
		seen    = make(map[string]string)
	)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !isYAML(name) {
			continue
		}

		path := filepath.Join(dir, name)
		def, err := ParseFile(path)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		if prev, dup := seen[def.Name]; dup {
			skipped = append(skipped, fmt.Errorf("%w: %s: job name %q already defined in %s", ErrLoad, path, def.Name, prev))
			continue
		}
		seen[def.Name] = path
		defs = append(defs, def)
	}
	return defs, skipped, nil
}

func isYAML(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yml", ".yaml":
		return true
	}
	return false
}
