package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pensieve/pensieve-doctor/internal/adapters/outbound/config"
)

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	root := t.TempDir()

	cfg, err := config.New().Load(root)
	require.NoError(t, err)

	assert.Equal(t, root, cfg.ScanRoot)
	assert.Equal(t, "http://localhost:8839", cfg.ServiceURL)
	assert.Equal(t, "memos", cfg.MemosBin)
	assert.Equal(t, 50, cfg.MaxFiles)
	assert.Equal(t, 30*time.Second, cfg.TestTimeout)
	assert.False(t, cfg.AutoFix)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	root := t.TempDir()
	yaml := "max_files: 10\nauto_fix: true\nservice_url: http://localhost:9000\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, ".pensieve-doctor.yaml"), []byte(yaml), 0o644))

	cfg, err := config.New().Load(root)
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.MaxFiles)
	assert.True(t, cfg.AutoFix)
	assert.Equal(t, "http://localhost:9000", cfg.ServiceURL)
	// Untouched keys keep their defaults.
	assert.Equal(t, "memos", cfg.MemosBin)
}

func TestLoad_EnvironmentWinsOverFile(t *testing.T) {
	root := t.TempDir()
	yaml := "max_files: 10\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, ".pensieve-doctor.yaml"), []byte(yaml), 0o644))
	t.Setenv("PENSIEVE_MAX_FILES", "7")

	cfg, err := config.New().Load(root)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.MaxFiles)
}

func TestLoad_EnvironmentAloneOverridesDefaults(t *testing.T) {
	root := t.TempDir()
	t.Setenv("PENSIEVE_SINCE_COMMIT", "abc123")

	cfg, err := config.New().Load(root)
	require.NoError(t, err)

	assert.Equal(t, "abc123", cfg.SinceCommit)
}

func TestLoad_MalformedFileIsAnError(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".pensieve-doctor.yaml"), []byte("max_files: [oops\n"), 0o644))

	_, err := config.New().Load(root)
	require.Error(t, err)
}

func TestLoad_InvalidValuesRejected(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".pensieve-doctor.yaml"), []byte("max_files: -1\n"), 0o644))

	_, err := config.New().Load(root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_files")
}
