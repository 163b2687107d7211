package diff

import (
	"path/filepath"
	"sort"
)

// Diff enumerates both trees and returns the ordered operation list
// that mirrors the source into the destination. The output order is a
// hard contract, in three fixed groups:
//
//  1. deletions, deepest paths first, so a file is deleted before its
//     parent directory and a directory only after its former contents;
//  2. directory creations, shallowest first, so parents exist before
//     anything beneath them;
//  3. file copies and updates.
//
// An executor applying the list strictly in sequence never needs to
// create a missing parent for a copy nor delete a non-empty directory.
//
// There is no identity tracking across enumerations, so a rename is
// always observed as delete of the old path plus create/copy of the new
// one: a renamed directory with N files yields N+1 deletions and N+1
// creations, never a move.
//
// Pure and synchronous; safe to call concurrently with independent
// arguments.
func Diff(sourceRoot, destRoot string, cfg ExclusionConfig) ([]SyncOperation, error) {
	src, err := Enumerate(sourceRoot, cfg)
	if err != nil {
		return nil, err
	}
	dst, err := Enumerate(destRoot, cfg)
	if err != nil {
		return nil, err
	}
	return diffStates(src, dst, sourceRoot, destRoot), nil
}

func diffStates(src, dst []ItemState, sourceRoot, destRoot string) []SyncOperation {
	srcByRel := make(map[string]ItemState, len(src))
	for _, s := range src {
		srcByRel[s.RelPath] = s
	}
	dstByRel := make(map[string]ItemState, len(dst))
	for _, d := range dst {
		dstByRel[d.RelPath] = d
	}

	var ops []SyncOperation

	// Group 1: destination entries the source no longer has.
	var stale []ItemState
	for _, d := range dst {
		if _, ok := srcByRel[d.RelPath]; !ok {
			stale = append(stale, d)
		}
	}
	sort.Slice(stale, func(i, j int) bool {
		di, dj := stale[i].depth(), stale[j].depth()
		if di != dj {
			return di > dj
		}
		return stale[i].RelPath < stale[j].RelPath
	})
	for _, d := range stale {
		target := filepath.Join(destRoot, filepath.FromSlash(d.RelPath))
		if d.IsDir {
			ops = append(ops, deleteDirOp(d.RelPath, target))
		} else {
			ops = append(ops, deleteFileOp(d.RelPath, target))
		}
	}

	// Group 2: source directories the destination is missing.
	var missing []ItemState
	for _, s := range src {
		if !s.IsDir {
			continue
		}
		if _, ok := dstByRel[s.RelPath]; !ok {
			missing = append(missing, s)
		}
	}
	sort.Slice(missing, func(i, j int) bool {
		di, dj := missing[i].depth(), missing[j].depth()
		if di != dj {
			return di < dj
		}
		return missing[i].RelPath < missing[j].RelPath
	})
	for _, s := range missing {
		ops = append(ops, mkdirOp(s.RelPath, filepath.Join(destRoot, filepath.FromSlash(s.RelPath))))
	}

	// Group 3: source files to copy or update.
	var files []ItemState
	for _, s := range src {
		if !s.IsDir {
			files = append(files, s)
		}
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].RelPath < files[j].RelPath
	})
	for _, s := range files {
		from := filepath.Join(sourceRoot, filepath.FromSlash(s.RelPath))
		to := filepath.Join(destRoot, filepath.FromSlash(s.RelPath))
		d, ok := dstByRel[s.RelPath]
		switch {
		case !ok:
			ops = append(ops, copyFileOp(s.RelPath, from, to))
		case s.ModTime.After(d.ModTime) || s.Size != d.Size:
			// Either condition alone forces the update.
			ops = append(ops, updateFileOp(s.RelPath, from, to))
		}
	}

	return ops
}
