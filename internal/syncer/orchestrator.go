// Package syncer composes the watch engine and the tree differ into a
// one-way mirror: an initial snapshot diff plus live translation of
// change events into ordered sync operations.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mirrorbox/mirrorbox/internal/diff"
	"github.com/mirrorbox/mirrorbox/internal/utils"
	"github.com/mirrorbox/mirrorbox/internal/watch"
)

const lifecycleBufferSize = 64

var (
	ErrAlreadyRunning = errors.New("sync already running")
	ErrNotRunning     = errors.New("sync not running")
	ErrSourceNotFound = errors.New("source directory not found")
)

// WatcherFailedError wraps a watch engine startup failure.
type WatcherFailedError struct {
	Err error
}

func (e *WatcherFailedError) Error() string {
	return fmt.Sprintf("watcher failed: %v", e.Err)
}

func (e *WatcherFailedError) Unwrap() error {
	return e.Err
}

// LifecycleKind tags a LifecycleEvent variant.
type LifecycleKind uint8

const (
	LifecycleStarted LifecycleKind = iota
	LifecycleInitialDiff
	LifecycleOperation
	LifecycleStopped
)

var lifecycleKindNames = []string{
	"started",
	"initialDiff",
	"operation",
	"stopped",
}

func (k LifecycleKind) String() string {
	if int(k) >= len(lifecycleKindNames) {
		return "unknown"
	}
	return lifecycleKindNames[k]
}

// LifecycleEvent is one element of the orchestrator's event stream.
type LifecycleEvent struct {
	Kind LifecycleKind
	// Ops carries the snapshot operations of an initialDiff event.
	Ops []diff.SyncOperation
	// Op carries the single operation of an operation event.
	Op diff.SyncOperation
}

// Config carries the plain configuration values of one orchestrator.
type Config struct {
	SourceDir     string
	DestDir       string
	Exclusions    []string
	IncludeHidden bool
	// InitialDiff computes and emits a snapshot diff before going live.
	InitialDiff bool
}

// Orchestrator runs one-way sync from a source tree to a destination
// tree. It is idle until Start, and re-entrant: a stopped orchestrator
// can be started again with a fresh event stream.
type Orchestrator struct {
	cfg  Config
	excl diff.ExclusionConfig

	mu      sync.Mutex
	running bool
	events  chan LifecycleEvent
	done    chan struct{}
	engine  *watch.Engine
	source  watch.NotificationSource
}

// New validates the source tree and returns an idle orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	src, err := utils.ResolvePath(cfg.SourceDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceNotFound, err)
	}
	if !utils.DirExists(src) {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, cfg.SourceDir)
	}
	cfg.SourceDir = src

	if cfg.DestDir != "" {
		dst, err := utils.ResolvePath(cfg.DestDir)
		if err != nil {
			return nil, err
		}
		cfg.DestDir = dst
	}

	return &Orchestrator{
		cfg: cfg,
		excl: diff.ExclusionConfig{
			Patterns:      cfg.Exclusions,
			IncludeHidden: cfg.IncludeHidden,
		},
	}, nil
}

// Start transitions idle -> running and returns this run's event
// stream. The stream begins with a started event, carries an
// initialDiff when configured, then one operation event per translated
// change, and terminates with stopped once Stop completes.
func (o *Orchestrator) Start(ctx context.Context) (<-chan LifecycleEvent, error) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	o.running = true
	o.events = make(chan LifecycleEvent, lifecycleBufferSize)
	o.done = make(chan struct{})
	events := o.events
	o.mu.Unlock()

	slog.Info("sync start", "source", o.cfg.SourceDir, "dest", o.cfg.DestDir)
	o.emit(LifecycleEvent{Kind: LifecycleStarted})

	if o.cfg.InitialDiff {
		ops, err := diff.Diff(o.cfg.SourceDir, o.cfg.DestDir, o.excl)
		if err != nil {
			o.abort()
			return nil, fmt.Errorf("initial diff: %w", err)
		}
		slog.Info("initial diff", "ops", len(ops))
		o.emit(LifecycleEvent{Kind: LifecycleInitialDiff, Ops: ops})
	}

	source, err := watch.NewFSSource()
	if err != nil {
		o.abort()
		return nil, &WatcherFailedError{Err: err}
	}

	engine := watch.New(o.cfg.SourceDir, source, watch.Config{Mode: watch.ModeRecursive})
	if err := engine.Start(ctx); err != nil {
		source.Close()
		o.abort()
		return nil, &WatcherFailedError{Err: err}
	}

	o.mu.Lock()
	o.engine = engine
	o.source = source
	o.mu.Unlock()

	go o.run(ctx, engine, source)

	return events, nil
}

// Stop cancels the consuming loop. The stream's stopped event and close
// complete asynchronously; await the stream to observe full shutdown.
func (o *Orchestrator) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.running {
		return ErrNotRunning
	}
	select {
	case <-o.done:
	default:
		close(o.done)
	}
	return nil
}

// IsRunning reports the orchestrator's state.
func (o *Orchestrator) IsRunning() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

func (o *Orchestrator) run(ctx context.Context, engine *watch.Engine, source watch.NotificationSource) {
	defer func() {
		engine.Stop()
		source.Close()
		o.emit(LifecycleEvent{Kind: LifecycleStopped})

		o.mu.Lock()
		close(o.events)
		o.running = false
		o.engine = nil
		o.source = nil
		o.mu.Unlock()

		slog.Info("sync stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-o.done:
			return
		case ev, ok := <-engine.Events():
			if !ok {
				// Engine stream ended on its own, e.g. the source root
				// was deleted out from under us.
				return
			}
			if op, ok := o.translateEvent(ev); ok {
				o.emit(LifecycleEvent{Kind: LifecycleOperation, Op: op})
			}
		}
	}
}

// abort rolls back a failed Start without emitting stopped.
func (o *Orchestrator) abort() {
	o.mu.Lock()
	defer o.mu.Unlock()
	close(o.events)
	o.running = false
}

func (o *Orchestrator) emit(ev LifecycleEvent) {
	select {
	case o.events <- ev:
	default:
		slog.Warn("sync event dropped", "reason", "channel full", "kind", ev.Kind)
	}
}
