package syncer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirrorbox/mirrorbox/internal/diff"
)

func waitLifecycle(t *testing.T, events <-chan LifecycleEvent) LifecycleEvent {
	t.Helper()
	select {
	case ev, ok := <-events:
		require.True(t, ok, "lifecycle stream closed unexpectedly")
		return ev
	case <-time.After(5 * time.Second):
		require.FailNow(t, "timeout waiting for lifecycle event")
		return LifecycleEvent{}
	}
}

func waitStreamClose(t *testing.T, events <-chan LifecycleEvent) {
	t.Helper()
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-time.After(5 * time.Second):
			require.FailNow(t, "timeout waiting for stream close")
		}
	}
}

func syncRoots(t *testing.T) (string, string) {
	t.Helper()
	src, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	dst, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return src, dst
}

func TestNewSourceNotFound(t *testing.T) {
	_, err := New(Config{SourceDir: filepath.Join(t.TempDir(), "missing")})
	assert.ErrorIs(t, err, ErrSourceNotFound)
}

func TestOrchestratorLifecycle(t *testing.T) {
	src, dst := syncRoots(t)
	require.NoError(t, os.WriteFile(filepath.Join(src, "seed.txt"), []byte("seed"), 0o644))

	o, err := New(Config{
		SourceDir:   src,
		DestDir:     dst,
		InitialDiff: true,
	})
	require.NoError(t, err)

	events, err := o.Start(testContext(t))
	require.NoError(t, err)
	assert.True(t, o.IsRunning())

	ev := waitLifecycle(t, events)
	assert.Equal(t, LifecycleStarted, ev.Kind)

	ev = waitLifecycle(t, events)
	require.Equal(t, LifecycleInitialDiff, ev.Kind)
	require.Len(t, ev.Ops, 1)
	assert.Equal(t, diff.OpCopyFile, ev.Ops[0].Type)
	assert.Equal(t, "seed.txt", ev.Ops[0].Rel)

	_, err = o.Start(testContext(t))
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	require.NoError(t, o.Stop())

	ev = waitLifecycle(t, events)
	assert.Equal(t, LifecycleStopped, ev.Kind)
	waitStreamClose(t, events)
	assert.False(t, o.IsRunning())
}

func TestOrchestratorStopWhileIdle(t *testing.T) {
	src, dst := syncRoots(t)
	o, err := New(Config{SourceDir: src, DestDir: dst})
	require.NoError(t, err)
	assert.ErrorIs(t, o.Stop(), ErrNotRunning)
}

func TestOrchestratorReentrant(t *testing.T) {
	src, dst := syncRoots(t)
	o, err := New(Config{SourceDir: src, DestDir: dst})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		events, err := o.Start(testContext(t))
		require.NoError(t, err)
		assert.Equal(t, LifecycleStarted, waitLifecycle(t, events).Kind)
		require.NoError(t, o.Stop())
		waitStreamClose(t, events)
		assert.False(t, o.IsRunning())
	}
}

func TestOrchestratorLiveTranslation(t *testing.T) {
	src, dst := syncRoots(t)
	o, err := New(Config{SourceDir: src, DestDir: dst})
	require.NoError(t, err)

	events, err := o.Start(testContext(t))
	require.NoError(t, err)
	defer func() {
		o.Stop()
		waitStreamClose(t, events)
	}()

	assert.Equal(t, LifecycleStarted, waitLifecycle(t, events).Kind)

	// A file created in the source surfaces as a copy operation.
	require.NoError(t, os.WriteFile(filepath.Join(src, "live.txt"), []byte("live"), 0o644))

	ev := waitLifecycle(t, events)
	require.Equal(t, LifecycleOperation, ev.Kind)
	assert.Equal(t, diff.OpCopyFile, ev.Op.Type)
	assert.Equal(t, "live.txt", ev.Op.Rel)
	assert.Equal(t, filepath.Join(dst, "live.txt"), ev.Op.Dst)
}

func TestOrchestratorExcludesLiveEvents(t *testing.T) {
	src, dst := syncRoots(t)
	require.NoError(t, os.Mkdir(filepath.Join(src, ".git"), 0o755))

	o, err := New(Config{
		SourceDir:  src,
		DestDir:    dst,
		Exclusions: []string{".git"},
	})
	require.NoError(t, err)

	events, err := o.Start(testContext(t))
	require.NoError(t, err)
	defer func() {
		o.Stop()
		waitStreamClose(t, events)
	}()

	assert.Equal(t, LifecycleStarted, waitLifecycle(t, events).Kind)

	require.NoError(t, os.WriteFile(filepath.Join(src, ".git", "config"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "tracked.txt"), []byte("x"), 0o644))

	// Only the tracked file comes through.
	ev := waitLifecycle(t, events)
	require.Equal(t, LifecycleOperation, ev.Kind)
	assert.Equal(t, "tracked.txt", ev.Op.Rel)
}
