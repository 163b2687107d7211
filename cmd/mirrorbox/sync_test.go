package main

import (
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirrorbox/mirrorbox/internal/syncer"
)

func TestSyncConfigReadsConfigKeys(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "mirror")
	viper.Set("source_dir", src)
	viper.Set("dest_dir", dst)
	viper.Set("include_hidden", true)
	viper.Set("initial_diff", false)
	viper.Set("exclusions", []string{"node_modules"})

	cfg, err := syncConfig(syncCmd, nil)
	require.NoError(t, err)
	assert.True(t, cfg.IncludeHidden)
	assert.False(t, cfg.InitialDiff)
	assert.True(t, filepath.IsAbs(cfg.SourceDir))
	assert.True(t, filepath.IsAbs(cfg.DestDir))
	assert.Contains(t, cfg.Exclusions, "node_modules")
	assert.Contains(t, cfg.Exclusions, syncer.LockFileName)
}

func TestSyncConfigArgsReplaceConfigDirs(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	viper.Set("source_dir", "/config/file/source")

	src, dst := t.TempDir(), t.TempDir()
	cfg, err := syncConfig(syncCmd, []string{src, dst})
	require.NoError(t, err)

	resolved, err := filepath.EvalSymlinks(cfg.SourceDir)
	require.NoError(t, err)
	expected, err := filepath.EvalSymlinks(src)
	require.NoError(t, err)
	assert.Equal(t, expected, resolved)
}

func TestSyncConfigRejectsPartialInput(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	_, err := syncConfig(syncCmd, []string{t.TempDir()})
	assert.Error(t, err, "a single positional argument is ambiguous")

	viper.Set("source_dir", t.TempDir())
	_, err = syncConfig(syncCmd, nil)
	assert.Error(t, err, "dest_dir must come from the file or the arguments")

	viper.Set("dest_dir", t.TempDir())
	viper.Set("source_dir", filepath.Join(t.TempDir(), "missing"))
	_, err = syncConfig(syncCmd, nil)
	assert.Error(t, err, "validation rejects a missing source")
}
