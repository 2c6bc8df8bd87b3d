package glob

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcher_Match(t *testing.T) {
	tests := []struct {
		pattern string
		name    string
		want    bool
	}{
		{"*.log", "run.log", true},
		{"*.log", "run.log.bak", false},
		{"*.log", ".log", true},
		{"*.log", "dir/run.log", true},
		{"a.b", "a.b", true},
		{"a.b", "aXb", false},
		{"*.tar.gz", "a.tar.gz", true},
		{"*.tar.gz", "a.tgz", false},
		{"report-*", "report-2026-10-19.csv", true},
		{"report-*", "old-report-1", false},
		{"*", "", true},
		{"", "", true},
		{"", "x", false},
		{"build*out*", "build-x-out-y", true},
		// '?', classes and '**' are literal characters
		{"?.txt", "a.txt", false},
		{"?.txt", "?.txt", true},
		{"[ab].txt", "a.txt", false},
		{"[ab].txt", "[ab].txt", true},
		{"**.log", "x.log", true},
		{"a+b(c)|d^$e{1}\\", "a+b(c)|d^$e{1}\\", true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"~"+tt.name, func(t *testing.T) {
			m, err := Compile(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Match(tt.name))
		})
	}
}

func TestToRegexp(t *testing.T) {
	assert.Equal(t, `^.*\.log$`, ToRegexp("*.log"))
	assert.Equal(t, `^a\?b$`, ToRegexp("a?b"))
	assert.Equal(t, `^$`, ToRegexp(""))
}

func TestCompileAllAndMatchAny(t *testing.T) {
	matchers, err := CompileAll([]string{"*.tar.gz", "*.log"})
	require.NoError(t, err)
	require.Len(t, matchers, 2)

	assert.True(t, MatchAny(matchers, "a.tar.gz"))
	assert.True(t, MatchAny(matchers, "b.log"))
	assert.False(t, MatchAny(matchers, "c.txt"))
	assert.False(t, MatchAny(nil, "c.txt"))
	assert.Equal(t, "*.log", matchers[1].String())
}

func TestMustCompile(t *testing.T) {
	assert.NotPanics(t, func() { MustCompile("*.log") })
}
