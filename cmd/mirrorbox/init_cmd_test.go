package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirrorbox/mirrorbox/internal/config"
)

func TestWriteStarterConfig(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "mirror")
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	require.NoError(t, writeStarterConfig(path, src, dst))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(cfg.SourceDir))
	assert.Equal(t, config.DefaultExclusions, cfg.Exclusions)
	assert.True(t, cfg.InitialDiff)

	// Never overwrites.
	assert.Error(t, writeStarterConfig(path, src, dst))
}

func TestWriteStarterConfigRejectsMissingSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	err := writeStarterConfig(path, filepath.Join(t.TempDir(), "missing"), t.TempDir())
	assert.Error(t, err)
	assert.NoFileExists(t, path)
}
