package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("limits:\n  record_limit: 3\n"), 0o644))

	cfg, err := LoadFile(path, Defaults())
	require.NoError(t, err)
	require.Equal(t, 3, cfg.Limits.RecordLimit)
	require.Equal(t, "best", cfg.Record.Quality, "unset keys keep their default")
}

func TestMissingFileIsNotAnError(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), Defaults())
	require.NoError(t, err)
	require.Equal(t, Defaults().Limits.RecordLimit, cfg.Limits.RecordLimit)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("limits:\n  record_limit: 3\n"), 0o644))
	t.Setenv("RECORD_LIMIT", "9")

	cfg, err := Loader{FilePath: path}.Load()
	require.NoError(t, err)
	require.Equal(t, 9, cfg.Limits.RecordLimit)
}
