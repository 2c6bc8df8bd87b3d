package job

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const buildJob = `
job:
  name: nightly build
schedule:
  time: "0 0 2 * * *"
steps:
  - name: fetch sources
    command: git pull --ff-only
  - name: compile
    command: make   all
  - name: compile again
    command: make   all
artifacts:
  - workspace: /tmp/ws
    files: "*.tar.gz, *.log ,"
  - workspace: /tmp/ws
    files: "*.txt"
`

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"build", "build"},
		{"nightly build", "nightly_build"},
		{"  padded  ", "padded"},
		{"a/b\\c", "a_b_c"},
		{"tab\tand\nnewline", "tab_and_newline"},
		{"café", "café"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestSplitPatterns(t *testing.T) {
	assert.Equal(t, []string{"*.tar.gz", "*.log"}, SplitPatterns(" *.tar.gz, *.log "))
	assert.Equal(t, []string{"a"}, SplitPatterns("a,,  ,"))
	assert.Nil(t, SplitPatterns(""))
}

func TestStep_Args(t *testing.T) {
	s := Step{Name: "compile", Command: "  make   -j4 all "}
	assert.Equal(t, []string{"make", "-j4", "all"}, s.Args())
	assert.Equal(t, "compile.output", s.OutputFile())
}

func TestParse_FullJob(t *testing.T) {
	def, err := Parse([]byte(buildJob), "build.yml")
	require.NoError(t, err)

	assert.Equal(t, "nightly_build", def.Name)
	assert.Equal(t, "0 0 2 * * *", def.Schedule)
	assert.Equal(t, "build.yml", def.Source)

	require.Len(t, def.Steps, 3, "steps with identical commands are all kept")
	assert.Equal(t, "fetch_sources", def.Steps[0].Name)
	assert.Equal(t, "compile", def.Steps[1].Name)
	assert.Equal(t, "compile_again", def.Steps[2].Name)
	assert.Equal(t, def.Steps[1].Command, def.Steps[2].Command)

	require.Len(t, def.Artifacts, 2, "rules sharing a workspace are all kept")
	assert.Equal(t, []string{"*.tar.gz", "*.log"}, def.Artifacts[0].Patterns)
	assert.Equal(t, []string{"*.txt"}, def.Artifacts[1].Patterns)
}

func TestParse_Defaults(t *testing.T) {
	def, err := Parse([]byte("steps: []\n"), "empty.yml")
	require.NoError(t, err)

	assert.Equal(t, Placeholder, def.Name)
	assert.Equal(t, Placeholder, def.Schedule)
	assert.Empty(t, def.Steps)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"invalid yaml", "job: [oops\n"},
		{"step without command", "steps:\n  - name: a\n"},
		{"step with blank command", "steps:\n  - name: a\n    command: '   '\n"},
		{"artifact without files", "artifacts:\n  - workspace: /tmp\n"},
		{"artifact with only commas", "artifacts:\n  - workspace: /tmp\n    files: ' , '\n"},
		{"dot job name", "job:\n  name: ..\n"},
		{"blank schedule", "schedule:\n  time: ' '\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), "bad.yml")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrLoad)
		})
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}

	write("a-build.yml", buildJob)
	write("b-broken.yaml", "steps:\n  - name: x\n")
	write("c-dup.yml", "job:\n  name: nightly_build\nschedule:\n  time: '@daily'\n")
	write("d-report.yaml", "job:\n  name: report\nschedule:\n  time: '@hourly'\nsteps:\n  - name: r\n    command: echo hi\n")
	write("notes.txt", "not a job")
	write(".hidden.yml", buildJob)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.yml"), 0755))

	defs, skipped, err := LoadDir(dir)
	require.NoError(t, err)

	require.Len(t, defs, 2)
	assert.Equal(t, "nightly_build", defs[0].Name)
	assert.Equal(t, "report", defs[1].Name)

	require.Len(t, skipped, 2)
	for _, e := range skipped {
		assert.ErrorIs(t, e, ErrLoad)
	}
	assert.Contains(t, skipped[1].Error(), "already defined")
}

func TestLoadDir_Missing(t *testing.T) {
	_, _, err := LoadDir(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
