package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
)

const defaultResurrectInterval = 2 * time.Second

// ErrNotAFile is returned by FileMonitor.Start when the monitored path
// is missing or not a regular file.
var ErrNotAFile = errors.New("watch path is not a file")

// FileMonitor watches a single file and survives its deletion: after a
// delete it polls for the file's reappearance on a cancellable ticker
// and re-registers when it comes back, emitting a synthesized created
// event. The poll loop shares nothing with a tree engine beyond the
// source's register operation.
type FileMonitor struct {
	path     string
	source   NotificationSource
	interval time.Duration

	events   chan ChangeEvent
	done     chan struct{}
	stopOnce sync.Once
}

// NewFileMonitor creates a monitor over path. The monitor owns the
// source's notification stream.
func NewFileMonitor(path string, source NotificationSource) *FileMonitor {
	return &FileMonitor{
		path:     filepath.Clean(path),
		source:   source,
		interval: defaultResurrectInterval,
		events:   make(chan ChangeEvent, eventBufferSize),
		done:     make(chan struct{}),
	}
}

// SetPollInterval adjusts the resurrection poll period. Set it before
// Start.
func (m *FileMonitor) SetPollInterval(d time.Duration) {
	m.interval = d
}

// Events returns the monitor's event stream. It closes on Stop.
func (m *FileMonitor) Events() <-chan ChangeEvent {
	return m.events
}

func (m *FileMonitor) Start(ctx context.Context) error {
	info, err := os.Lstat(m.path)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotAFile, m.path)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotAFile, m.path)
	}

	if err := m.source.Register(m.path, NoteAll); err != nil {
		return err
	}

	slog.Info("file monitor start", "path", m.path)

	go m.run(ctx)
	return nil
}

func (m *FileMonitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.done)
	})
}

func (m *FileMonitor) run(ctx context.Context) {
	defer func() {
		m.source.Unregister(m.path)
		close(m.events)
		slog.Info("file monitor stopped", "path", m.path)
	}()

	root := filepath.Dir(m.path)

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		case n, ok := <-m.source.Notifications():
			if !ok {
				return
			}
			if n.Path != m.path {
				continue
			}

			kinds := mapset.NewSet[ChangeKind]()
			if n.Flags.Has(NoteDelete) {
				kinds.Add(KindDeleted)
			}
			if n.Flags.Has(NoteRename) {
				kinds.Add(KindRenamed)
			}
			if n.Flags.Has(NoteWrite) || n.Flags.Has(NoteExtend) {
				kinds.Add(KindModified)
			}
			if n.Flags.Has(NoteAttrib) {
				kinds.Add(KindAttrsChanged)
			}
			if kinds.Cardinality() == 0 {
				continue
			}

			m.emit(ChangeEvent{
				Path:    m.path,
				RelPath: relativePath(root, m.path),
				Root:    root,
				Kinds:   kinds,
				Item:    classifyPath(m.path),
				Raw:     n,
			})

			if kinds.Contains(KindDeleted) {
				m.source.Unregister(m.path)
				if !m.awaitResurrection(ctx) {
					return
				}
			}
		}
	}
}

// awaitResurrection polls until the file reappears, then re-registers
// it and emits a synthesized created event. Returns false when the
// monitor is cancelled first.
func (m *FileMonitor) awaitResurrection(ctx context.Context) bool {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-m.done:
			return false
		case <-ticker.C:
			info, err := os.Lstat(m.path)
			if err != nil || info.IsDir() {
				continue
			}
			if err := m.source.Register(m.path, NoteAll); err != nil {
				slog.Warn("file monitor re-register failed", "path", m.path, "error", err)
				continue
			}
			slog.Info("file monitor resurrected", "path", m.path)
			m.emit(ChangeEvent{
				Path:    m.path,
				RelPath: relativePath(filepath.Dir(m.path), m.path),
				Root:    filepath.Dir(m.path),
				Kinds:   mapset.NewSet(KindCreated),
				Item:    classifyPath(m.path),
				Raw:     Notification{Path: m.path, Flags: NoteWrite},
			})
			return true
		}
	}
}

func (m *FileMonitor) emit(ev ChangeEvent) {
	select {
	case m.events <- ev:
	default:
		slog.Warn("file monitor event dropped", "reason", "channel full", "path", ev.Path)
	}
}
