package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 0.7, cfg.Matcher.ConfidenceThreshold)
}

func TestLoadJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"max_retries":5,"matcher":{"confidence_threshold":0.8}}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 0.8, cfg.Matcher.ConfidenceThreshold)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_retries: 7\nmatcher:\n  confidence_threshold: 0.9\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.MaxRetries)
	assert.Equal(t, 0.9, cfg.Matcher.ConfidenceThreshold)
}

func TestEnvOverridesTakePrecedenceForSecrets(t *testing.T) {
	t.Setenv("CLAUDE_SYNC_TRACKER_TOKEN", "tok-123")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, "tok-123", cfg.TrackerToken)
}

func TestEnvOverridePGMirrorDSN(t *testing.T) {
	t.Setenv("CLAUDE_SYNC_PG_MIRROR_DSN", "postgres://x/y")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, "postgres://x/y", cfg.PGMirrorDSN)
}

func TestCompileBranchPatternRejectsPatternWithoutGroup(t *testing.T) {
	cfg := Default()
	cfg.Matcher.BranchPattern = `[A-Z]+-\d+`
	_, err := cfg.CompileBranchPattern()
	assert.Error(t, err)
}

func TestExpandHome(t *testing.T) {
	home, _ := os.UserHomeDir()
	assert.Equal(t, home+"/x", ExpandHome("~/x"))
	assert.Equal(t, "/abs/path", ExpandHome("/abs/path"))
}
