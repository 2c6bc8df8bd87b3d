// Package glob matches file names against shell-style patterns.
//
// Only '*' is a wildcard (zero or more characters, '**' is no different).
// Every other character, '?' and '[' included, matches itself literally, and
// a pattern must match the whole name.
package glob

import (
	"fmt"
	"strings"

	"github.com/wasilibs/go-re2"
)

// Matcher is a compiled glob pattern. It is safe for concurrent use.
type Matcher struct {
	pattern string
	re      *re2.Regexp
}

// Compile turns pattern into a Matcher.
func Compile(pattern string) (*Matcher, error) {
	re, err := re2.Compile(ToRegexp(pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid glob %q: %w", pattern, err)
	}
	return &Matcher{pattern: pattern, re: re}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(pattern string) *Matcher {
	m, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return m
}

// CompileAll compiles every pattern, stopping at the first failure.
func CompileAll(patterns []string) ([]*Matcher, error) {
	matchers := make([]*Matcher, 0, len(patterns))
	for _, p := range patterns {
		m, err := Compile(p)
		if err != nil {
			return nil, err
		}
		matchers = append(matchers, m)
	}
	return matchers, nil
}

// Match reports whether name matches the whole pattern.
func (m *Matcher) Match(name string) bool {
	return m.re.MatchString(name)
}

// String returns the source pattern.
func (m *Matcher) String() string {
	return m.pattern
}

// MatchAny reports whether any matcher accepts name.
func MatchAny(matchers []*Matcher, name string) bool {
	for _, m := range matchers {
		if m.Match(name) {
			return true
		}
	}
	return false
}

// ToRegexp translates a glob into an anchored regular expression.
func ToRegexp(pattern string) string {
	var b strings.Builder
	b.Grow(len(pattern) + 8)
	b.WriteByte('^')
	for _, c := range pattern {
		switch c {
		case '*':
			b.WriteString(".*")
		case '.', '(', ')', '+', '|', '[', ']', '^', '$', '?', '{', '}', '\\':
			b.WriteByte('\\')
			b.WriteRune(c)
		default:
			b.WriteRune(c)
		}
	}
	b.WriteByte('$')
	return b.String()
}
