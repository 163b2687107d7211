package diff

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Enumerate walks the tree under root and returns one ItemState per
// surviving entry, directories included. The root is resolved through
// symbolic links first so that alias paths of the same tree produce
// identical relative paths. Hidden entries are skipped unless
// configured otherwise; excluded directories are pruned, not descended
// into. Safe to call concurrently: enumeration touches no shared state.
func Enumerate(root string, cfg ExclusionConfig) ([]ItemState, error) {
	resolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, fmt.Errorf("enumerate %s: %w", root, err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("enumerate %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("enumerate %s: not a directory", root)
	}

	var items []ItemState
	err = filepath.WalkDir(resolved, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == resolved {
			return nil
		}

		if !cfg.IncludeHidden && Hidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel := filepath.ToSlash(mustRel(resolved, path))
		if cfg.Excluded(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			// Entry vanished mid-walk. Consistency under concurrent
			// mutation is out of contract, skip it.
			return nil
		}

		items = append(items, ItemState{
			RelPath: rel,
			IsDir:   d.IsDir(),
			ModTime: fi.ModTime(),
			Size:    fi.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enumerate %s: %w", root, err)
	}
	return items, nil
}

func mustRel(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		// WalkDir only hands back paths under root.
		return path
	}
	return rel
}
