// Package filesystem watches a local input directory for document changes.
package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/ragingest/internal/core/domain"
	"github.com/custodia-labs/ragingest/internal/logger"
)

// ChangeType classifies a change to an input file.
type ChangeType string

// Change types reported by the watcher.
const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// Change is one observed change to an input file.
type Change struct {
	Type ChangeType
	Path string
}

// Watcher reports changes to files with a given suffix in one directory.
type Watcher struct {
	root    string
	suffix  string
	mu      sync.Mutex
	watcher *fsnotify.Watcher
}

// New creates a watcher for files ending in suffix directly inside root.
// The suffix match is case-insensitive.
func New(root, suffix string) *Watcher {
	return &Watcher{
		root:   root,
		suffix: suffix,
	}
}

// Watch starts watching and returns a channel of changes.
// The channel is closed when ctx is cancelled or the watcher is closed.
func (w *Watcher) Watch(ctx context.Context) (<-chan Change, error) {
	info, err := os.Stat(w.root)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", w.root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch %s: not a directory", w.root)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(w.root); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", w.root, err)
	}

	w.mu.Lock()
	w.watcher = fw
	w.mu.Unlock()

	changes := make(chan Change)
	go func() {
		defer close(changes)
		defer w.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-fw.Events:
				if !ok {
					return
				}
				change := w.handleFsEvent(event)
				if change == nil {
					continue
				}
				select {
				case changes <- *change:
				case <-ctx.Done():
					return
				}
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				logger.Warn("watch %s: %v", w.root, err)
			}
		}
	}()

	return changes, nil
}

// handleFsEvent maps an fsnotify event to a change, or nil when the event
// does not concern an input file.
func (w *Watcher) handleFsEvent(event fsnotify.Event) *Change {
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") {
		return nil
	}
	if !domain.HasSuffixFold(name, w.suffix) {
		return nil
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return &Change{Type: ChangeDeleted, Path: event.Name}
	case event.Has(fsnotify.Create):
		if isDir(event.Name) {
			return nil
		}
		return &Change{Type: ChangeCreated, Path: event.Name}
	case event.Has(fsnotify.Write):
		if isDir(event.Name) {
			return nil
		}
		return &Change{Type: ChangeUpdated, Path: event.Name}
	default:
		return nil
	}
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher == nil {
		return nil
	}
	err := w.watcher.Close()
	w.watcher = nil
	return err
}

// Debounce groups changes that arrive within quiet of each other. A batch is
// emitted once no change has arrived for quiet. The returned channel is
// closed after in is closed and any pending batch is delivered.
func Debounce(ctx context.Context, in <-chan Change, quiet time.Duration) <-chan []Change {
	out := make(chan []Change)

	go func() {
		defer close(out)

		var pending []Change
		timer := time.NewTimer(quiet)
		timer.Stop()

		flush := func() bool {
			if len(pending) == 0 {
				return true
			}
			select {
			case out <- pending:
				pending = nil
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case change, ok := <-in:
				if !ok {
					timer.Stop()
					flush()
					return
				}
				pending = append(pending, change)
				timer.Reset(quiet)
			case <-timer.C:
				if !flush() {
					return
				}
			}
		}
	}()

	return out
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
