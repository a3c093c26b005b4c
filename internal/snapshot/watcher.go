package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/kartikbazzad/bunbase/lookup/pkg/logger"
)

// Watcher calls a reload function when a watched file changes on disk.
// It watches the parent directory so editors that save by rename, and files
// created after startup, are both picked up.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	log      *slog.Logger

	mu       sync.Mutex
	handlers map[string]func(context.Context) // absolute file path -> reload
	pending  map[string]*time.Timer
	dirs     map[string]struct{}
}

// NewWatcher creates a watcher. Events for the same file within debounce are
// coalesced into one reload.
func NewWatcher(debounce time.Duration, log *slog.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	if log == nil {
		log = logger.Get()
	}
	return &Watcher{
		watcher:  w,
		debounce: debounce,
		log:      log,
		handlers: make(map[string]func(context.Context)),
		pending:  make(map[string]*time.Timer),
		dirs:     make(map[string]struct{}),
	}, nil
}

// Watch registers fn to run when path is written, created or replaced.
func (w *Watcher) Watch(path string, fn func(context.Context)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[abs] = fn
	if _, ok := w.dirs[dir]; ok {
		return nil
	}
	if err := w.watcher.Add(dir); err != nil {
		delete(w.handlers, abs)
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.dirs[dir] = struct{}{}
	w.log.Info("Watching for changes", "file", abs)
	return nil
}

// Run processes events until ctx is cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("File watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) {
		return
	}
	name, err := filepath.Abs(event.Name)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	fn, ok := w.handlers[name]
	if !ok {
		return
	}
	if t, ok := w.pending[name]; ok {
		t.Stop()
	}
	w.pending[name] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, name)
		w.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		w.log.Info("File changed, reloading", "file", name, "op", event.Op.String())
		fn(ctx)
	})
}

// Close stops the watcher and cancels pending reloads.
func (w *Watcher) Close() error {
	w.mu.Lock()
	for name, t := range w.pending {
		t.Stop()
		delete(w.pending, name)
	}
	w.mu.Unlock()
	return w.watcher.Close()
}
