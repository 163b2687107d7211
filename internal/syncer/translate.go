package syncer

import (
	"os"
	"path/filepath"

	"github.com/mirrorbox/mirrorbox/internal/diff"
	"github.com/mirrorbox/mirrorbox/internal/watch"
)

// translateEvent maps one live change event onto the sync operation
// that mirrors it, or reports false for events that produce none
// (excluded paths, hidden entries, attribute-only changes, the root
// itself).
func (o *Orchestrator) translateEvent(ev watch.ChangeEvent) (diff.SyncOperation, bool) {
	rel := ev.RelPath
	if rel == "" {
		// Events for the root itself never mirror; a deleted root
		// terminates the engine stream instead.
		return diff.SyncOperation{}, false
	}
	if o.excl.Excluded(rel) {
		return diff.SyncOperation{}, false
	}
	if !o.excl.IncludeHidden && diff.Hidden(filepath.Base(ev.Path)) {
		return diff.SyncOperation{}, false
	}

	src := filepath.Join(o.cfg.SourceDir, filepath.FromSlash(rel))
	dst := filepath.Join(o.cfg.DestDir, filepath.FromSlash(rel))

	switch {
	case ev.Is(watch.KindDeleted):
		if ev.Item == watch.ItemDir {
			return diff.SyncOperation{Type: diff.OpDeleteDir, Rel: rel, Dst: dst}, true
		}
		return diff.SyncOperation{Type: diff.OpDeleteFile, Rel: rel, Dst: dst}, true

	case ev.Is(watch.KindCreated):
		if ev.Item == watch.ItemDir {
			return diff.SyncOperation{Type: diff.OpMkdir, Rel: rel, Dst: dst}, true
		}
		return diff.SyncOperation{Type: diff.OpCopyFile, Rel: rel, Src: src, Dst: dst}, true

	case ev.Is(watch.KindModified):
		// The engine never emits modified for directories.
		return diff.SyncOperation{Type: diff.OpUpdateFile, Rel: rel, Src: src, Dst: dst}, true

	case ev.Is(watch.KindRenamed):
		// The notification cannot say whether this is the old or the
		// new name; whether the path still exists in the source decides.
		info, err := os.Lstat(src)
		switch {
		case err == nil && info.IsDir():
			return diff.SyncOperation{Type: diff.OpMkdir, Rel: rel, Dst: dst}, true
		case err == nil:
			return diff.SyncOperation{Type: diff.OpCopyFile, Rel: rel, Src: src, Dst: dst}, true
		case ev.Item == watch.ItemDir:
			return diff.SyncOperation{Type: diff.OpDeleteDir, Rel: rel, Dst: dst}, true
		default:
			return diff.SyncOperation{Type: diff.OpDeleteFile, Rel: rel, Dst: dst}, true
		}
	}

	return diff.SyncOperation{}, false
}
