// Package watcher observes a notes directory and reports markdown changes
// as debounced event batches.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Operation represents a file system operation type.
type Operation int

const (
	// OpCreate indicates a new note was created.
	OpCreate Operation = iota
	// OpModify indicates an existing note was modified.
	OpModify
	// OpDelete indicates a note was deleted or renamed away.
	OpDelete
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// NoteEvent is one observed change to a markdown note.
type NoteEvent struct {
	Path      string
	Operation Operation
	Timestamp time.Time
}

// Options configures the watcher behavior.
type Options struct {
	// DebounceWindow is how long to coalesce events before emitting.
	DebounceWindow time.Duration

	// EventBufferSize is the size of the batch channel buffer.
	EventBufferSize int
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		DebounceWindow:  200 * time.Millisecond,
		EventBufferSize: 100,
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.DebounceWindow == 0 {
		o.DebounceWindow = defaults.DebounceWindow
	}
	if o.EventBufferSize == 0 {
		o.EventBufferSize = defaults.EventBufferSize
	}
	return o
}

// NoteWatcher watches a directory tree with fsnotify and emits debounced
// batches of markdown note events. Directories created while watching are
// picked up automatically.
type NoteWatcher struct {
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	errors    chan error
	stopCh    chan struct{}
	rootPath  string
	logger    *slog.Logger

	mu      sync.Mutex
	stopped bool
}

// NewNoteWatcher creates a watcher with the given options.
func NewNoteWatcher(opts Options, logger *slog.Logger) (*NoteWatcher, error) {
	opts = opts.WithDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	return &NoteWatcher{
		fsWatcher: fsw,
		debouncer: NewDebouncer(opts.DebounceWindow, opts.EventBufferSize),
		errors:    make(chan error, 10),
		stopCh:    make(chan struct{}),
		logger:    logger,
	}, nil
}

// Start watches path recursively until the context is cancelled or Stop is
// called. It blocks while running.
func (w *NoteWatcher) Start(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}
	w.rootPath = absPath

	if err := w.addRecursive(absPath); err != nil {
		return fmt.Errorf("add directories to watcher: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.emitError(err)
		}
	}
}

// Batches returns the channel of debounced event batches.
func (w *NoteWatcher) Batches() <-chan []NoteEvent {
	return w.debouncer.Output()
}

// Errors returns non-fatal watcher errors.
func (w *NoteWatcher) Errors() <-chan error {
	return w.errors
}

// Stop stops the watcher. Safe to call multiple times.
func (w *NoteWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true

	close(w.stopCh)
	w.debouncer.Stop()
	close(w.errors)
	return w.fsWatcher.Close()
}

// addRecursive registers path and every non-hidden subdirectory.
func (w *NoteWatcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

func (w *NoteWatcher) handleEvent(event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") {
		return
	}

	// New directories need watching; the walk at startup cannot see them
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				w.emitError(err)
			}
			return
		}
	}

	if !strings.EqualFold(filepath.Ext(event.Name), ".md") {
		return
	}

	ev := NoteEvent{Path: event.Name, Timestamp: time.Now()}
	switch {
	case event.Op.Has(fsnotify.Create):
		ev.Operation = OpCreate
	case event.Op.Has(fsnotify.Write):
		ev.Operation = OpModify
	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		ev.Operation = OpDelete
	default:
		return
	}

	w.logger.Debug("note event",
		slog.String("path", ev.Path), slog.String("op", ev.Operation.String()))
	w.debouncer.Add(ev)
}

func (w *NoteWatcher) emitError(err error) {
	select {
	case w.errors <- err:
	default:
		w.logger.Warn("watcher error channel full, dropping error",
			slog.String("error", err.Error()))
	}
}
