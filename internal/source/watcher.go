package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"gentabs/internal/schema"
)

// Event is one settled change in the watched directory.
type Event struct {
	// Item is set for added or updated files.
	Item schema.ContextItem
	// Removed is the file URL of a deleted source; empty for add/update.
	Removed string
}

// Watcher mirrors a source directory into the session: supported files that
// appear or change become context items, deleted files are reported for
// removal. Rapid saves are debounced per path.
type Watcher struct {
	dir     string
	watcher *fsnotify.Watcher
	log     *zap.Logger

	mu          sync.Mutex
	debounceMap map[string]time.Time
	debounceDur time.Duration
	running     bool

	events chan Event
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewWatcher creates a watcher for dir. Call Start to begin receiving events.
func NewWatcher(dir string, log *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{
		dir:         dir,
		watcher:     fw,
		log:         log,
		debounceMap: make(map[string]time.Time),
		debounceDur: 300 * time.Millisecond,
		events:      make(chan Event, 16),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Events is the channel of settled changes. It is closed when the watcher
// stops.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start begins watching. Non-blocking; the event loop runs in a goroutine
// until Stop is called or ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		w.log.Warn("source watcher: create dir failed", zap.String("dir", w.dir), zap.Error(err))
	}
	if err := w.watcher.Add(w.dir); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	w.log.Info("source watcher: watching", zap.String("dir", w.dir))

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to drain.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		w.log.Warn("source watcher: close failed", zap.Error(err))
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)
	defer close(w.events)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("source watcher: fs error", zap.Error(err))
		case <-ticker.C:
			w.flushSettled(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !Supported(event.Name) {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	w.mu.Lock()
	w.debounceMap[event.Name] = time.Now()
	w.mu.Unlock()
}

// flushSettled emits events for paths whose last change is older than the
// debounce window.
func (w *Watcher) flushSettled(ctx context.Context) {
	w.mu.Lock()
	now := time.Now()
	var settled []string
	for path, at := range w.debounceMap {
		if now.Sub(at) >= w.debounceDur {
			settled = append(settled, path)
			delete(w.debounceMap, path)
		}
	}
	w.mu.Unlock()

	for _, path := range settled {
		item, err := LoadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				w.emit(ctx, Event{Removed: fileURL(path)})
				continue
			}
			w.log.Warn("source watcher: load failed", zap.String("path", path), zap.Error(err))
			continue
		}
		w.emit(ctx, Event{Item: item})
	}
}

func (w *Watcher) emit(ctx context.Context, ev Event) {
	select {
	case w.events <- ev:
	case <-ctx.Done():
	case <-w.stopCh:
	}
}

func fileURL(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return "file://" + abs
	}
	return "file://" + path
}
