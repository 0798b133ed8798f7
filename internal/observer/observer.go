// Package observer watches the output directory for new result
// sidecars, so the dashboard and TUI refresh as sweeps land.
package observer

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ResultCallback is called with the sidecar paths that changed
type ResultCallback func(changedFiles []string)

// Watcher monitors an output directory for result sidecar changes.
// Events are debounced so a sweep landing many files produces one
// callback, not dozens.
type Watcher struct {
	watcher  *fsnotify.Watcher
	callback ResultCallback
	debounce time.Duration

	pending map[string]struct{}
	timer   *time.Timer
	mu      sync.Mutex

	cancel context.CancelFunc
}

// NewWatcher creates a watcher for the given output directory
func NewWatcher(dir string, callback ResultCallback) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	return &Watcher{
		watcher:  fsw,
		callback: callback,
		debounce: 500 * time.Millisecond,
		pending:  make(map[string]struct{}),
	}, nil
}

// Start begins watching for sidecar changes
func (w *Watcher) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				w.handleEvent(event)
			case _, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
}

// Stop stops watching
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.watcher.Close()
}

// SetDebounce sets the debounce duration for batching changes
func (w *Watcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.debounce = d
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// Only sidecars matter; videos are written alongside but the
	// sidecar is the last artifact a run produces.
	if !strings.HasSuffix(event.Name, ".json") {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[event.Name] = struct{}{}

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	pending := w.pending
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	if w.callback == nil || len(pending) == 0 {
		return
	}

	files := make([]string, 0, len(pending))
	for f := range pending {
		files = append(files, f)
	}
	w.callback(files)
}
