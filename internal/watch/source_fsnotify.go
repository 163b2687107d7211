package watch

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

const sourceBufferSize = 256

// FSSource is the production NotificationSource backed by fsnotify.
//
// fsnotify reports immediate children of a watched directory with the
// child's own path. FSSource remaps those into the flag model the watch
// engine consumes: a Create becomes a write on the parent directory, so
// snapshot diffing is the single discovery path for new entries.
type FSSource struct {
	watcher *fsnotify.Watcher
	out     chan Notification

	mu      sync.Mutex
	classes map[string]NoteFlags

	paused    atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func NewFSSource() (*FSSource, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create notification source: %w", err)
	}

	s := &FSSource{
		watcher: w,
		out:     make(chan Notification, sourceBufferSize),
		classes: make(map[string]NoteFlags),
		done:    make(chan struct{}),
	}

	s.wg.Add(1)
	go s.run()

	return s, nil
}

func (s *FSSource) Register(path string, classes NoteFlags) error {
	if classes == 0 {
		classes = NoteAll
	}
	if err := s.watcher.Add(path); err != nil {
		return fmt.Errorf("register %s: %w", path, err)
	}
	s.mu.Lock()
	s.classes[path] = classes
	s.mu.Unlock()
	return nil
}

func (s *FSSource) Unregister(path string) {
	// Remove fails if the path is already gone; the kernel dropped the
	// watch with the inode, so that is fine.
	if err := s.watcher.Remove(path); err != nil {
		slog.Debug("notification source unregister", "path", path, "error", err)
	}
	s.mu.Lock()
	delete(s.classes, path)
	s.mu.Unlock()
}

func (s *FSSource) PauseDelivery() {
	s.paused.Store(true)
}

func (s *FSSource) ResumeDelivery() {
	s.paused.Store(false)
}

func (s *FSSource) Notifications() <-chan Notification {
	return s.out
}

func (s *FSSource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.watcher.Close()
		s.wg.Wait()
	})
	return err
}

func (s *FSSource) run() {
	defer func() {
		s.wg.Done()
		close(s.out)
	}()

	for {
		select {
		case <-s.done:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.dispatch(ev)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("notification source error", "error", err)
		}
	}
}

func (s *FSSource) dispatch(ev fsnotify.Event) {
	if s.paused.Load() {
		return
	}

	switch {
	case ev.Has(fsnotify.Create):
		// A new entry shows up as a listing change on its parent.
		s.emit(filepath.Dir(ev.Name), NoteWrite)
	case ev.Has(fsnotify.Remove):
		s.emit(ev.Name, NoteDelete)
	case ev.Has(fsnotify.Rename):
		s.emit(ev.Name, NoteRename)
	case ev.Has(fsnotify.Chmod):
		s.emit(ev.Name, NoteAttrib)
	case ev.Has(fsnotify.Write):
		s.emit(ev.Name, NoteWrite)
	}
}

// emit filters the notification against the registered classes and queues
// it. The class subscription of a path covers its immediate children.
func (s *FSSource) emit(path string, flags NoteFlags) {
	s.mu.Lock()
	classes, ok := s.classes[path]
	if !ok {
		classes, ok = s.classes[filepath.Dir(path)]
	}
	s.mu.Unlock()
	if !ok || !classes.Has(flags) {
		return
	}

	select {
	case s.out <- Notification{Path: path, Flags: flags}:
	default:
		slog.Warn("notification source dropped", "reason", "channel full", "path", path)
	}
}
