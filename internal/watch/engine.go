package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	mapset "github.com/deckarep/golang-set/v2"
)

const (
	eventBufferSize = 64

	fdSafetyMargin = 64
	fdCeilingFloor = 32
)

func clampCeiling(softLimit int) int {
	c := softLimit - fdSafetyMargin
	if c < fdCeilingFloor {
		c = fdCeilingFloor
	}
	return c
}

// WatchMode selects how much of the tree an engine registers.
type WatchMode uint8

const (
	// ModeRecursive registers the root and every descendant directory
	// reachable without crossing a symbolic link, and keeps discovering
	// new subdirectories as they appear.
	ModeRecursive WatchMode = iota
	// ModeShallow registers only the root directory.
	ModeShallow
)

func (m WatchMode) String() string {
	if m == ModeShallow {
		return "shallow"
	}
	return "recursive"
}

// Config carries the plain configuration values of one engine.
type Config struct {
	Mode WatchMode
	// Classes is the notification-class subset to register for.
	// Zero means NoteAll.
	Classes NoteFlags
}

// ChangeHandler is the optional callback sink for change events. It is
// invoked from the engine's consuming goroutine, in delivery order,
// before the event is pushed to the stream sink.
type ChangeHandler func(ChangeEvent)

var (
	// ErrNotADirectory is returned by Start when the watch root is
	// missing or not a directory.
	ErrNotADirectory = errors.New("watch root is not a directory")
	// ErrCannotAccess is returned by Start when enumeration fails for a
	// reason other than a missing directory.
	ErrCannotAccess = errors.New("watch root cannot be accessed")
	// ErrEngineStopped is returned by Start after Stop; engines are not
	// restartable, construct a new one instead.
	ErrEngineStopped = errors.New("watch engine already stopped")
)

// FDLimitError is returned by Start when registering one more directory
// would exceed the engine's descriptor ceiling.
type FDLimitError struct {
	// Count is the number of directories registered so far.
	Count int
	// Path is the directory that did not fit.
	Path string
}

func (e *FDLimitError) Error() string {
	return fmt.Sprintf("file descriptor limit reached: %d directories watched, cannot register %s", e.Count, e.Path)
}

// Engine watches a directory tree through a NotificationSource and
// turns raw notifications into enriched ChangeEvents.
//
// One goroutine per engine consumes the notification stream in arrival
// order; it is the only writer of per-event derived state. Lifecycle
// calls and accessors may come from any goroutine and serialize against
// it through the watch table's lock.
type Engine struct {
	root    string
	cfg     Config
	source  NotificationSource
	table   *watchTable
	ceiling int

	handler   ChangeHandler
	handlerMu sync.RWMutex

	events     chan ChangeEvent
	done       chan struct{}
	stopOnce   sync.Once
	eventsOnce sync.Once
	// consuming marks that a consumer goroutine owns closing the event
	// stream; while false, Stop closes it itself.
	consuming atomic.Bool
}

// New creates an engine over root. The engine takes over consumption of
// the source's notification stream once started; the source must not be
// shared with another consumer.
func New(root string, source NotificationSource, cfg Config) *Engine {
	if cfg.Classes == 0 {
		cfg.Classes = NoteAll
	}
	return &Engine{
		root:    filepath.Clean(root),
		cfg:     cfg,
		source:  source,
		table:   newWatchTable(),
		ceiling: descriptorCeiling(),
		events:  make(chan ChangeEvent, eventBufferSize),
		done:    make(chan struct{}),
	}
}

// OnChange installs the callback sink. Set it before Start.
func (e *Engine) OnChange(h ChangeHandler) {
	e.handlerMu.Lock()
	defer e.handlerMu.Unlock()
	e.handler = h
}

// Events returns the engine's event stream. The channel closes once the
// engine has fully stopped; a caller that needs "fully stopped" must
// await that close, not merely the return of Stop.
func (e *Engine) Events() <-chan ChangeEvent {
	return e.events
}

// Start registers the watch tree and begins consuming notifications.
// Calling Start while already watching is a no-op.
func (e *Engine) Start(ctx context.Context) error {
	select {
	case <-e.done:
		return ErrEngineStopped
	default:
	}
	e.consuming.Store(true)
	if prev := e.table.setActive(true); prev {
		return nil
	}

	info, err := os.Stat(e.root)
	if err != nil {
		e.abortStart()
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotADirectory, e.root)
		}
		return fmt.Errorf("%w: %s: %v", ErrCannotAccess, e.root, err)
	}
	if !info.IsDir() {
		e.abortStart()
		return fmt.Errorf("%w: %s", ErrNotADirectory, e.root)
	}

	if err := e.registerTree(e.root); err != nil {
		e.abortStart()
		return err
	}

	slog.Info("watch start", "root", e.root, "mode", e.cfg.Mode, "dirs", e.table.count())

	go e.consume(ctx)

	return nil
}

// Stop unregisters everything and terminates the event stream. The
// active flag flips immediately; resource release completes when the
// stream closes. Idempotent.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		e.table.setActive(false)
		close(e.done)
		// Without a consumer goroutine nobody else will close the
		// stream; a consumer launched concurrently observes the closed
		// done channel before delivering anything.
		if !e.consuming.Load() {
			e.closeEventStream()
		}
	})
}

// Pause drops event delivery without releasing registrations. The
// consuming task keeps maintaining watch state (child snapshots, new
// subtree registrations) so that paused-era changes do not resurface
// as stale listing diffs after Resume; only delivery stops. Events
// suppressed while paused are lost, not buffered.
func (e *Engine) Pause() {
	e.table.setPaused(true)
	slog.Debug("watch paused", "root", e.root)
}

// Resume re-enables delivery after Pause. There is no replay.
func (e *Engine) Resume() {
	e.table.setPaused(false)
	slog.Debug("watch resumed", "root", e.root)
}

// WatchedCount reports the number of registered directories.
func (e *Engine) WatchedCount() int {
	return e.table.count()
}

// WatchedPaths reports the registered directory paths, sorted.
func (e *Engine) WatchedPaths() []string {
	return e.table.paths()
}

func (e *Engine) IsWatching() bool {
	return e.table.isActive()
}

func (e *Engine) IsPaused() bool {
	return e.table.isPaused()
}

// registerTree walks depth-first from path, registering each directory
// and snapshotting its children. Symbolic links are never crossed.
// In shallow mode only path itself is registered.
func (e *Engine) registerTree(path string) error {
	if e.table.count() >= e.ceiling {
		return &FDLimitError{Count: e.table.count(), Path: path}
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCannotAccess, path, err)
	}

	if err := e.source.Register(path, e.cfg.Classes); err != nil {
		return err
	}

	children := mapset.NewSet[string]()
	var subdirs []string
	for _, entry := range entries {
		children.Add(entry.Name())
		if entry.IsDir() && entry.Type()&os.ModeSymlink == 0 {
			subdirs = append(subdirs, filepath.Join(path, entry.Name()))
		}
	}

	e.table.insert(&WatchedDirectory{
		Path:     path,
		RelPath:  relativePath(e.root, path),
		Children: children,
	})

	if e.cfg.Mode == ModeShallow {
		return nil
	}

	for _, sub := range subdirs {
		if err := e.registerTree(sub); err != nil {
			return err
		}
	}
	return nil
}

// abortStart undoes a failed Start: partial registrations are released
// and, when a concurrent Stop already ran, the stream is closed in the
// missing consumer's stead.
func (e *Engine) abortStart() {
	for _, path := range e.table.clear() {
		e.source.Unregister(path)
	}
	e.table.setActive(false)
	e.consuming.Store(false)
	select {
	case <-e.done:
		e.closeEventStream()
	default:
	}
}

func (e *Engine) closeEventStream() {
	e.eventsOnce.Do(func() {
		close(e.events)
	})
}

func (e *Engine) consume(ctx context.Context) {
	defer func() {
		e.teardown()
		e.closeEventStream()
		slog.Info("watch stopped", "root", e.root)
	}()

	for {
		// Shutdown takes priority over pending notifications.
		select {
		case <-ctx.Done():
			return
		case <-e.done:
			return
		default:
		}

		select {
		case <-ctx.Done():
			return
		case <-e.done:
			return
		case n, ok := <-e.source.Notifications():
			if !ok {
				return
			}
			e.handleNotification(n)
		}
	}
}

func (e *Engine) teardown() {
	e.table.setActive(false)
	for _, path := range e.table.clear() {
		e.source.Unregister(path)
	}
}

// handleNotification translates one raw notification: classify the
// item, map flags to change kinds, deliver, then run any side-effecting
// cleanup (subtree discovery, deletion cleanup, root self-stop).
func (e *Engine) handleNotification(n Notification) {
	if !e.covers(n.Path) {
		return
	}

	item := classifyPath(n.Path)
	gone := item == ItemUnknown
	watchedDir := e.table.contains(n.Path)
	if gone && watchedDir {
		// Stat failed but the path was a registered directory.
		item = ItemDir
	}

	kinds := mapset.NewSet[ChangeKind]()
	if n.Flags.Has(NoteDelete) {
		kinds.Add(KindDeleted)
	}
	if n.Flags.Has(NoteRename) {
		kinds.Add(KindRenamed)
	}
	if n.Flags.Has(NoteAttrib) {
		kinds.Add(KindAttrsChanged)
	}
	writeLike := n.Flags.Has(NoteWrite) || n.Flags.Has(NoteExtend)
	// A write on a directory is a listing change, never "modified".
	if writeLike && item != ItemDir {
		kinds.Add(KindModified)
	}

	if kinds.Cardinality() > 0 {
		e.deliver(ChangeEvent{
			Path:    n.Path,
			RelPath: relativePath(e.root, n.Path),
			Root:    e.root,
			Kinds:   kinds,
			Item:    item,
			Raw:     n,
		})
	}

	if writeLike && item == ItemDir && watchedDir && e.cfg.Mode == ModeRecursive {
		e.scanDirectory(n.Path, n)
	}

	// A rename notification whose path no longer stats is the old name
	// of a move; the item left the tree just like a deletion.
	if kinds.Contains(KindDeleted) || (kinds.Contains(KindRenamed) && gone) {
		e.cleanupDeleted(n.Path, watchedDir)
	}
}

// scanDirectory diffs a directory's current listing against its last
// known child snapshot, synthesizing created/deleted events and
// registering newly appeared subdirectories.
func (e *Engine) scanDirectory(path string, raw Notification) {
	entries, err := os.ReadDir(path)
	if err != nil {
		// Directory vanished between the notification and the listing;
		// its own delete notification handles the rest.
		return
	}

	listing := mapset.NewSet[string]()
	for _, entry := range entries {
		listing.Add(entry.Name())
	}

	added, removed, ok := e.table.swapChildren(path, listing)
	if !ok {
		return
	}

	for _, name := range sortedNames(added) {
		child := filepath.Join(path, name)
		item := classifyPath(child)
		if item == ItemDir {
			// Best effort: a subtree that cannot be enumerated or no
			// longer fits under the ceiling stays unwatched, the rest
			// of the tree keeps working. Note that a moved-in directory
			// gets a watch baseline but no retroactive created events
			// for its pre-existing contents.
			if err := e.registerTree(child); err != nil {
				slog.Warn("watch skipping subtree", "path", child, "error", err)
			}
		}
		e.deliver(ChangeEvent{
			Path:    child,
			RelPath: relativePath(e.root, child),
			Root:    e.root,
			Kinds:   mapset.NewSet(KindCreated),
			Item:    item,
			Raw:     raw,
		})
	}

	for _, name := range sortedNames(removed) {
		child := filepath.Join(path, name)
		e.deliver(ChangeEvent{
			Path:    child,
			RelPath: relativePath(e.root, child),
			Root:    e.root,
			Kinds:   mapset.NewSet(KindDeleted),
			Item:    ItemUnknown,
			Raw:     raw,
		})
		// The removed entry may have been a registered subtree that
		// disappeared without per-path delete notifications.
		for _, stale := range e.table.removeSubtree(child) {
			e.source.Unregister(stale)
		}
	}
}

// cleanupDeleted unregisters a deleted watched directory and, when the
// deleted path is the root itself, stops the whole engine. The event
// has already been delivered by the time this runs.
func (e *Engine) cleanupDeleted(path string, watchedDir bool) {
	e.table.forgetChild(filepath.Dir(path), filepath.Base(path))

	if watchedDir {
		// The registered subtree goes with it; a moved-out or
		// recursively removed directory produces no per-descendant
		// notifications.
		for _, stale := range e.table.removeSubtree(path) {
			e.source.Unregister(stale)
		}
	}

	if path == e.root {
		slog.Info("watch root deleted", "root", e.root)
		e.Stop()
	}
}

// deliver fans one event out to the callback sink and the stream sink,
// in that order, from the consuming goroutine. Paused engines drop
// here.
func (e *Engine) deliver(ev ChangeEvent) {
	if e.table.isPaused() {
		return
	}

	e.handlerMu.RLock()
	h := e.handler
	e.handlerMu.RUnlock()
	if h != nil {
		h(ev)
	}

	select {
	case e.events <- ev:
	default:
		slog.Warn("watch event dropped", "reason", "channel full", "path", ev.Path)
	}
}

func (e *Engine) covers(path string) bool {
	return path == e.root || strings.HasPrefix(path, e.root+string(filepath.Separator))
}

func sortedNames(s mapset.Set[string]) []string {
	names := s.ToSlice()
	sort.Strings(names)
	return names
}
