package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadEnv(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantEnv map[string]string
	}{
		{
			name: "plain pairs with comments and blank lines",
			content: `
# friday runtime
FRIDAY_HOME=/srv/friday

FRIDAY_LEVEL=debug
`,
			wantEnv: map[string]string{"FRIDAY_HOME": "/srv/friday", "FRIDAY_LEVEL": "debug"},
		},
		{
			name:    "export prefix and quotes",
			content: "export FRIDAY_HOME=\"/srv/with space\"\nFRIDAY_LEVEL='warn'\n",
			wantEnv: map[string]string{"FRIDAY_HOME": "/srv/with space", "FRIDAY_LEVEL": "warn"},
		},
		{
			name:    "value containing equals sign",
			content: "FRIDAY_HOME=a=b\nnot a pair\n",
			wantEnv: map[string]string{"FRIDAY_HOME": "a=b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("FRIDAY_HOME", "")
			t.Setenv("FRIDAY_LEVEL", "")

			require.NoError(t, LoadEnv(writeEnvFile(t, tt.content)))

			for key, want := range tt.wantEnv {
				assert.Equal(t, want, os.Getenv(key), key)
			}
		})
	}
}

func TestLoadEnv_MissingFile(t *testing.T) {
	err := LoadEnv(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadEnvOptional(t *testing.T) {
	t.Setenv("FRIDAY_HOME", "")

	assert.NoError(t, LoadEnvOptional(filepath.Join(t.TempDir(), "missing.env")))

	require.NoError(t, LoadEnvOptional(writeEnvFile(t, "FRIDAY_HOME=/opt/friday\n")))
	assert.Equal(t, "/opt/friday", os.Getenv("FRIDAY_HOME"))
}
