package fs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher watches the content directory for markdown edits and calls the
// reload hook once a burst of changes has settled. fsnotify does not recurse,
// so the root and every chapter directory are watched individually; chapter
// directories created later are picked up from their create events.
type Watcher struct {
	watcher     *fsnotify.Watcher
	root        string
	onReload    func(ctx context.Context)
	log         *zap.Logger
	debounceDur time.Duration

	mu          sync.Mutex
	debounceMap map[string]time.Time
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

func NewWatcher(root string, onReload func(ctx context.Context), log *zap.Logger) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{
		watcher:     watcher,
		root:        root,
		onReload:    onReload,
		log:         log,
		debounceDur: 500 * time.Millisecond, // editors save in bursts
		debounceMap: make(map[string]time.Time),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; the event loop runs in a goroutine
// until Stop or context cancellation.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.root); err != nil {
		return err
	}
	entries, err := os.ReadDir(w.root)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), "chapter") {
			continue
		}
		dir := filepath.Join(w.root, entry.Name())
		if err := w.watcher.Add(dir); err != nil {
			w.log.Warn("watch chapter dir", zap.String("dir", dir), zap.Error(err))
		}
	}
	w.log.Info("watching content", zap.String("root", w.root))

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
		w.log.Warn("close watcher", zap.Error(err))
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	debounceTicker := time.NewTicker(100 * time.Millisecond)
	defer debounceTicker.Stop()

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
			w.log.Warn("watch error", zap.Error(err))
		case <-debounceTicker.C:
			w.processDebounced(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if strings.HasPrefix(filepath.Base(event.Name), "chapter") {
				if err := w.watcher.Add(event.Name); err != nil {
					w.log.Warn("watch new chapter dir", zap.String("dir", event.Name), zap.Error(err))
				}
			}
			return
		}
	}

	if filepath.Ext(event.Name) != ".md" {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	w.log.Debug("content changed", zap.String("path", event.Name), zap.String("op", event.Op.String()))
	w.mu.Lock()
	w.debounceMap[event.Name] = time.Now()
	w.mu.Unlock()
}

// processDebounced fires one reload for all the events that settled past the
// debounce window.
func (w *Watcher) processDebounced(ctx context.Context) {
	w.mu.Lock()
	now := time.Now()
	settled := 0
	for path, eventTime := range w.debounceMap {
		if now.Sub(eventTime) >= w.debounceDur {
			settled++
			delete(w.debounceMap, path)
		}
	}
	w.mu.Unlock()

	if settled == 0 {
		return
	}
	w.log.Info("content settled, reloading", zap.Int("files", settled))
	w.onReload(ctx)
}
