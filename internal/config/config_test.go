package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ranker.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom("")
	require.NoError(t, err)

	assert.Equal(t, "ranker.db", cfg.Database.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "local", cfg.Placement.UserID)
	assert.Equal(t, "liked", cfg.Placement.DefaultTier)
	assert.False(t, cfg.Placement.StrictContradictions)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeYAML(t, `
database:
  path: /tmp/courses.db
logging:
  format: json
placement:
  default_tier: fine
  strict_contradictions: true
`)
	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/courses.db", cfg.Database.Path)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "info", cfg.Logging.Level, "unset keys keep defaults")
	assert.Equal(t, "fine", cfg.Placement.DefaultTier)
	assert.True(t, cfg.Placement.StrictContradictions)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeYAML(t, "logging:\n  level: warn\n")
	t.Setenv("RANKER_LOGGING_LEVEL", "debug")
	t.Setenv("RANKER_PLACEMENT_USER_ID", "student-7")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "student-7", cfg.Placement.UserID)
}

func TestLoadUsesConfigPathEnv(t *testing.T) {
	path := writeYAML(t, "placement:\n  default_tier: disliked\n")
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "disliked", cfg.Placement.DefaultTier)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"level", "logging:\n  level: loud\n", "Logging.Level"},
		{"format", "logging:\n  format: xml\n", "Logging.Format"},
		{"empty-path", "database:\n  path: \"\"\n", "Database.Path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(writeYAML(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestEnvTransform(t *testing.T) {
	assert.Equal(t, "database.path", envTransform("RANKER_DATABASE_PATH"))
	assert.Equal(t, "placement.default_tier", envTransform("RANKER_PLACEMENT_DEFAULT_TIER"))
	assert.Equal(t, "", envTransform(ConfigPathEnvVar))
}
