package watch

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
)

// WatchedDirectory is the engine's record of one registered directory.
type WatchedDirectory struct {
	// Path is the directory's absolute path.
	Path string
	// RelPath is the path relative to the watch root, "" for the root.
	RelPath string
	// Children is the last observed set of entry names, updated on
	// every write notification for the directory. It may lag the real
	// listing between polling windows.
	Children mapset.Set[string]
}

// watchTable is the authoritative watch state of one engine: the
// registered directories plus the active/paused flags, all guarded by a
// single lock. Filesystem I/O never happens under the lock; callers
// list directories first and swap the resulting snapshot in.
type watchTable struct {
	mu     sync.Mutex
	dirs   map[string]*WatchedDirectory
	active bool
	paused bool
}

func newWatchTable() *watchTable {
	return &watchTable{
		dirs: make(map[string]*WatchedDirectory),
	}
}

func (t *watchTable) insert(d *WatchedDirectory) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dirs[d.Path] = d
}

func (t *watchTable) remove(path string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.dirs[path]; !ok {
		return false
	}
	delete(t.dirs, path)
	return true
}

// removeSubtree drops a directory and every registered descendant,
// returning the removed paths so the caller can unregister them.
func (t *watchTable) removeSubtree(path string) []string {
	prefix := path + string(filepath.Separator)

	t.mu.Lock()
	defer t.mu.Unlock()

	var removed []string
	for p := range t.dirs {
		if p == path || strings.HasPrefix(p, prefix) {
			removed = append(removed, p)
			delete(t.dirs, p)
		}
	}
	sort.Strings(removed)
	return removed
}

func (t *watchTable) contains(path string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.dirs[path]
	return ok
}

// swapChildren replaces a directory's child snapshot and returns the
// names that appeared and disappeared relative to the previous one.
func (t *watchTable) swapChildren(path string, children mapset.Set[string]) (added, removed mapset.Set[string], ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.dirs[path]
	if !ok {
		return nil, nil, false
	}
	added = children.Difference(d.Children)
	removed = d.Children.Difference(children)
	d.Children = children
	return added, removed, true
}

// forgetChild keeps a parent snapshot honest after a direct deletion
// notification for one of its entries, so the next listing diff does
// not synthesize a second deleted event for the same name.
func (t *watchTable) forgetChild(parent, name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if d, ok := t.dirs[parent]; ok {
		d.Children.Remove(name)
	}
}

func (t *watchTable) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.dirs)
}

func (t *watchTable) paths() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	paths := make([]string, 0, len(t.dirs))
	for p := range t.dirs {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// clear empties the table and returns the paths that were registered.
func (t *watchTable) clear() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	paths := make([]string, 0, len(t.dirs))
	for p := range t.dirs {
		paths = append(paths, p)
	}
	t.dirs = make(map[string]*WatchedDirectory)
	sort.Strings(paths)
	return paths
}

func (t *watchTable) isActive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// setActive flips the active flag and reports the previous value.
func (t *watchTable) setActive(active bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev := t.active
	t.active = active
	return prev
}

func (t *watchTable) isPaused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.paused
}

func (t *watchTable) setPaused(paused bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.paused = paused
}
