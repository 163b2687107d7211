package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.json")

	cfg := &Config{
		SourceDir:     "/data/src",
		DestDir:       "/data/dst",
		Exclusions:    []string{".git", "tmp"},
		IncludeHidden: true,
		InitialDiff:   false,
		LogFile:       "/var/log/mirrorbox.log",
	}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.SourceDir, loaded.SourceDir)
	assert.Equal(t, cfg.DestDir, loaded.DestDir)
	assert.Equal(t, cfg.Exclusions, loaded.Exclusions)
	assert.True(t, loaded.IncludeHidden)
	assert.False(t, loaded.InitialDiff)
	assert.Equal(t, path, loaded.Path)
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"source_dir": "/data/src"}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultExclusions, cfg.Exclusions)
	assert.True(t, cfg.InitialDiff)
	assert.Equal(t, DefaultLogPath, cfg.LogFile)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	src := t.TempDir()

	cfg := &Config{SourceDir: src, DestDir: filepath.Join(t.TempDir(), "mirror")}
	require.NoError(t, cfg.Validate())
	assert.True(t, filepath.IsAbs(cfg.SourceDir))
	assert.True(t, filepath.IsAbs(cfg.DestDir))

	assert.Error(t, (&Config{}).Validate(), "source_dir required")
	assert.Error(t, (&Config{SourceDir: filepath.Join(src, "missing")}).Validate())
}
