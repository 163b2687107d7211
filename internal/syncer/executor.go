package syncer

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"

	"github.com/mirrorbox/mirrorbox/internal/diff"
	"github.com/mirrorbox/mirrorbox/internal/utils"
)

// LockFileName is the executor's guard file inside the destination
// tree. Keep it excluded from diffs.
const LockFileName = ".mirrorbox.lock"

// ErrDestinationLocked means another mirror run holds the destination.
var ErrDestinationLocked = errors.New("destination locked by another process")

// Stats accumulates what one executor applied.
type Stats struct {
	Applied     int
	Failed      int
	BytesCopied int64
}

// Executor applies sync operations to a destination tree. The engine
// and the differ only produce operations; this is the reference
// consumer that executes them.
type Executor struct {
	destRoot string
	lock     *flock.Flock
	dryRun   bool
	stats    Stats
}

func NewExecutor(destRoot string) *Executor {
	return &Executor{
		destRoot: destRoot,
		lock:     flock.New(filepath.Join(destRoot, LockFileName)),
	}
}

// SetDryRun makes Apply log operations without touching the tree.
func (x *Executor) SetDryRun(dryRun bool) {
	x.dryRun = dryRun
}

// Acquire takes the destination lock, creating the tree if needed.
func (x *Executor) Acquire() error {
	if err := utils.EnsureDir(x.destRoot); err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	locked, err := x.lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock destination: %w", err)
	}
	if !locked {
		return ErrDestinationLocked
	}
	return nil
}

func (x *Executor) Release() error {
	return x.lock.Unlock()
}

func (x *Executor) Stats() Stats {
	return x.stats
}

// Apply executes one operation. Deletes of already-absent targets are
// treated as applied; the mirror converged on its own.
func (x *Executor) Apply(op diff.SyncOperation) error {
	if x.dryRun {
		slog.Info("dry run", "op", op.String())
		return nil
	}

	var err error
	switch op.Type {
	case diff.OpMkdir:
		err = os.MkdirAll(op.Dst, 0o755)

	case diff.OpCopyFile, diff.OpUpdateFile:
		var written int64
		written, err = utils.CopyFile(op.Src, op.Dst)
		if err == nil {
			x.stats.BytesCopied += written
			slog.Debug("sync copied", "path", op.Rel, "size", humanize.Bytes(uint64(written)))
		}

	case diff.OpDeleteFile:
		err = os.Remove(op.Dst)
		if os.IsNotExist(err) {
			err = nil
		}

	case diff.OpDeleteDir:
		// Ordered diff output empties a directory before deleting it,
		// but live translation can hand us a populated one when the
		// whole subtree vanished in a single polling window.
		err = os.RemoveAll(op.Dst)

	default:
		err = fmt.Errorf("unknown operation type %d", op.Type)
	}

	if err != nil {
		x.stats.Failed++
		return fmt.Errorf("apply %s: %w", op, err)
	}
	x.stats.Applied++
	return nil
}

// ApplyAll executes a batch in order, continuing past per-operation
// failures so the rest of the mirror still converges. Failures are
// logged and counted; the first error is returned.
func (x *Executor) ApplyAll(ops []diff.SyncOperation) error {
	var firstErr error
	for _, op := range ops {
		if err := x.Apply(op); err != nil {
			slog.Error("sync apply failed", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
