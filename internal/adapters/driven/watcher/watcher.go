// Package watcher reports changes to corpus documents using fsnotify.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure Watcher implements the interface.
var _ driven.DocumentWatcher = (*Watcher)(nil)

// ErrClosed is returned by Watch after Close.
var ErrClosed = errors.New("watcher closed")

// Watcher watches a directory tree and emits changes for supported
// document types. Hidden files and directories are ignored.
type Watcher struct {
	mu       sync.Mutex
	closed   bool
	watchers []*fsnotify.Watcher
}

// New creates a watcher.
func New() *Watcher {
	return &Watcher{}
}

// Watch starts watching root recursively. Directories created later are
// added as they appear. The channel is closed when ctx is cancelled or
// Close is called.
func (w *Watcher) Watch(ctx context.Context, root string) (<-chan domain.DocumentChange, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, ErrClosed
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path error: %s is not a directory", root)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := addTree(fsw, root); err != nil {
		fsw.Close()
		return nil, err
	}
	w.watchers = append(w.watchers, fsw)

	changes := make(chan domain.DocumentChange, 16)
	go w.run(ctx, fsw, changes)
	return changes, nil
}

// Close stops every watch. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	var errs []error
	for _, fsw := range w.watchers {
		errs = append(errs, fsw.Close())
	}
	w.watchers = nil
	return errors.Join(errs...)
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher, changes chan<- domain.DocumentChange) {
	defer close(changes)
	defer fsw.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) && isDir(event.Name) && !isHidden(event.Name) {
				if err := addTree(fsw, event.Name); err != nil {
					logger.Warn("Cannot watch %s: %v", event.Name, err)
				}
				continue
			}
			change := handleFsEvent(event)
			if change == nil {
				continue
			}
			select {
			case changes <- *change:
			case <-ctx.Done():
				return
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("Watcher error: %v", err)
		}
	}
}

// handleFsEvent maps an fsnotify event to a document change, or nil when
// the event is irrelevant.
func handleFsEvent(event fsnotify.Event) *domain.DocumentChange {
	if isHidden(event.Name) || !domain.DocumentTypeFromPath(event.Name).IsValid() {
		return nil
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return &domain.DocumentChange{Type: domain.ChangeDeleted, Path: event.Name}
	case event.Has(fsnotify.Create):
		if isDir(event.Name) {
			return nil
		}
		return &domain.DocumentChange{Type: domain.ChangeCreated, Path: event.Name}
	case event.Has(fsnotify.Write):
		if isDir(event.Name) {
			return nil
		}
		return &domain.DocumentChange{Type: domain.ChangeUpdated, Path: event.Name}
	default:
		return nil
	}
}

// addTree watches root and every non-hidden directory below it.
func addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && isHidden(path) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// isHidden reports whether any element of path starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part != "" && part != "." && part != ".." && strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
