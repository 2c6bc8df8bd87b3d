// Package job defines friday's job model: a named, cron-scheduled sequence of
// shell steps plus the artifact rules applied once the steps have run.
package job

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Placeholder is used for a job name or schedule missing from a job file.
const Placeholder = "Not_used"

// ErrLoad marks a job definition that cannot be scheduled. The job is skipped,
// the rest of the catalog still loads.
var ErrLoad = errors.New("job load error")

// Definition is one job as loaded from disk. Steps and Artifacts keep
// declaration order and may contain duplicates.
type Definition struct {
	Name      string
	Schedule  string
	Steps     []Step
	Artifacts []ArtifactRule
	Source    string // job file path, for diagnostics
}

// Step is a single command run as part of a job.
type Step struct {
	Name    string
	Command string
}

// ArtifactRule selects files from Workspace whose base name matches any of
// Patterns.
type ArtifactRule struct {
	Workspace string
	Patterns  []string
}

// Args splits the command on whitespace into program and arguments.
func (s Step) Args() []string {
	return strings.Fields(s.Command)
}

// OutputFile is the name of the step's log file inside the run directory.
func (s Step) OutputFile() string {
	return s.Name + ".output"
}

// SplitPatterns parses the comma separated files field of an artifact rule.
// Entries are trimmed, empty entries are dropped.
func SplitPatterns(files string) []string {
	var patterns []string
	for _, p := range strings.Split(files, ",") {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	return patterns
}

// Sanitize turns a job or step name into a single path segment: the name is
// NFC-normalized and trimmed, whitespace and path separators become '_'.
func Sanitize(name string) string {
	name = strings.TrimSpace(norm.NFC.String(name))
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '/' || r == '\\' {
			return '_'
		}
		return r
	}, name)
}

// Validate checks the invariants the scheduler and runner rely on.
func (d Definition) Validate() error {
	if err := validateSegment(d.Name); err != nil {
		return fmt.Errorf("%w: job name: %v", ErrLoad, err)
	}
	if strings.TrimSpace(d.Schedule) == "" {
		return fmt.Errorf("%w: job %s: empty schedule", ErrLoad, d.Name)
	}
	for i, s := range d.Steps {
		if err := validateSegment(s.Name); err != nil {
			return fmt.Errorf("%w: job %s: step %d name: %v", ErrLoad, d.Name, i+1, err)
		}
		if len(s.Args()) == 0 {
			return fmt.Errorf("%w: job %s: step %s has an empty command", ErrLoad, d.Name, s.Name)
		}
	}
	for i, a := range d.Artifacts {
		if strings.TrimSpace(a.Workspace) == "" {
			return fmt.Errorf("%w: job %s: artifact rule %d has no workspace", ErrLoad, d.Name, i+1)
		}
		if len(a.Patterns) == 0 {
			return fmt.Errorf("%w: job %s: artifact rule %d has no file patterns", ErrLoad, d.Name, i+1)
		}
	}
	return nil
}

func validateSegment(name string) error {
	switch {
	case name == "":
		return errors.New("empty")
	case name == "." || name == "..":
		return fmt.Errorf("%q is not a valid directory name", name)
	case name != Sanitize(name):
		return fmt.Errorf("%q is not sanitized", name)
	}
	return nil
}
