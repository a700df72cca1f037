package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(200*1024*1024), cfg.Pipeline.MaxUploadSize)
	assert.Equal(t, "standard", cfg.Pipeline.RuleSet)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ORDERGEN_SERVER_PORT", "9090")
	t.Setenv("ORDERGEN_PIPELINE_RULE_SET", "extended-pending")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "extended-pending", cfg.Pipeline.RuleSet)
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ordergen.yaml")
	require.NoError(t, os.WriteFile(path, []byte("master:\n  url: https://example.com/master.csv\n"), 0644))
	t.Setenv("ORDERGEN_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/master.csv", cfg.Master.URL)
	// defaults still apply for everything the file leaves unset
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ordergen.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\npipeline:\n  rule_set: extended-pending\n"), 0644))
	t.Setenv("ORDERGEN_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "extended-pending", cfg.Pipeline.RuleSet)
}

func TestLoadEnvBeatsYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ordergen.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0644))
	t.Setenv("ORDERGEN_CONFIG", path)
	t.Setenv("ORDERGEN_SERVER_PORT", "7070")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoadRejectsBadLevel(t *testing.T) {
	t.Setenv("ORDERGEN_LOGGING_LEVEL", "loud")
	_, err := Load()
	assert.Error(t, err)
}

func TestEnsureDirsAndUploadPath(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{}
	cfg.Paths = PathsConfig{
		DataDir:    filepath.Join(dir, "data"),
		UploadsDir: filepath.Join(dir, "data", "uploads"),
		ReportsDir: filepath.Join(dir, "data", "reports"),
		LogsDir:    filepath.Join(dir, "logs"),
	}
	require.NoError(t, cfg.EnsureDirs())
	assert.DirExists(t, cfg.Paths.UploadsDir)
	assert.Equal(t, filepath.Join(dir, "data", "uploads", "u.zip"), cfg.UploadPath("u.zip"))
}
