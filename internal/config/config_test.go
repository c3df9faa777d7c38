package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// inTempDir keeps a stray .env in the package directory out of the test.
func inTempDir(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	inTempDir(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	inTempDir(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Zero(t, cfg.Articles.DefaultLimit, "listings are unlimited by default")
	assert.Zero(t, cfg.Articles.MaxLimit)
}

func TestLoad_File(t *testing.T) {
	inTempDir(t)
	path := writeFile(t, `
database:
  path: ":memory:"
log:
  level: DEBUG
  format: json
articles:
  default_limit: 5
  legacy_tag_match: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":memory:", cfg.Database.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 5, cfg.Articles.DefaultLimit)
	assert.Zero(t, cfg.Articles.MaxLimit, "unset keys keep their default")
	assert.True(t, cfg.Articles.LegacyTagMatch)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	inTempDir(t)
	path := writeFile(t, "articles:\n  default_limit: 5\n")
	t.Setenv("CONDUIT_ARTICLES_DEFAULT_LIMIT", "7")
	t.Setenv("CONDUIT_DATABASE_PATH", "/tmp/conduit.db")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Articles.DefaultLimit)
	assert.Equal(t, "/tmp/conduit.db", cfg.Database.Path)
}

func TestLoad_DotEnv(t *testing.T) {
	inTempDir(t)
	require.NoError(t, os.WriteFile(".env", []byte("CONDUIT_LOG_FORMAT=json\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("CONDUIT_LOG_FORMAT") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown log format", "log:\n  format: xml\n"},
		{"default above max", "articles:\n  default_limit: 200\n  max_limit: 100\n"},
		{"negative max", "articles:\n  max_limit: -1\n"},
		{"empty database path", "database:\n  path: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inTempDir(t)
			_, err := Load(writeFile(t, tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad_DefaultLimitWithoutCap(t *testing.T) {
	inTempDir(t)
	path := writeFile(t, "articles:\n  default_limit: 500\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.Articles.DefaultLimit)
	assert.Zero(t, cfg.Articles.MaxLimit)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "database.path", envKey("CONDUIT_DATABASE_PATH"))
	assert.Equal(t, "articles.legacy_tag_match", envKey("CONDUIT_ARTICLES_LEGACY_TAG_MATCH"))
}
