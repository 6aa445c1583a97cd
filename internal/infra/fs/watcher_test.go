package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestWatcherReloadsAfterEdit(t *testing.T) {
	root := smallBook(t)

	reloads := make(chan struct{}, 4)
	watcher, err := NewWatcher(root, func(context.Context) {
		reloads <- struct{}{}
	}, nil)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	watcher.debounceDur = 50 * time.Millisecond

	if err := watcher.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer watcher.Stop()

	path := filepath.Join(root, "chapter2", "index.md")
	if err := os.WriteFile(path, []byte("# The Golden Krone Hotel\n\nEdited.\n"), 0o644); err != nil {
		t.Fatalf("edit chapter: %v", err)
	}

	select {
	case <-reloads:
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after editing a chapter")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	root := smallBook(t)

	reloads := make(chan struct{}, 4)
	watcher, err := NewWatcher(root, func(context.Context) {
		reloads <- struct{}{}
	}, nil)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	watcher.debounceDur = 50 * time.Millisecond

	if err := watcher.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer watcher.Stop()

	if err := os.WriteFile(filepath.Join(root, "chapter1", "notes.txt"), []byte("scratch"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	select {
	case <-reloads:
		t.Fatal("reloaded for a non-markdown file")
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatcherStartStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	watcher, err := NewWatcher(smallBook(t), func(context.Context) {}, nil)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	if err := watcher.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	// Start twice is a no-op, Stop twice must not panic.
	if err := watcher.Start(context.Background()); err != nil {
		t.Fatalf("second start: %v", err)
	}
	watcher.Stop()
	watcher.Stop()
}
