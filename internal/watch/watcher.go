// Package watch reloads the policy file on change and swaps the new
// model into the installed mediator wholesale.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dotnope/dotnope/internal/policy"
)

// debounceDefault coalesces editor write bursts into one reload.
const debounceDefault = 200 * time.Millisecond

// Watcher watches one policy file and delivers freshly normalized
// policies to a handler. Parse failures keep the previous policy and
// are reported to OnError.
type Watcher struct {
	path     string
	handler  func(*policy.Policy, string)
	debounce time.Duration

	// OnError receives reload failures. Defaults to stderr.
	OnError func(error)
}

// New creates a watcher for the policy file at path.
// handler receives the new policy and its config hash on each reload.
func New(path string, handler func(*policy.Policy, string)) *Watcher {
	return &Watcher{
		path:     path,
		handler:  handler,
		debounce: debounceDefault,
		OnError: func(err error) {
			fmt.Fprintf(os.Stderr, "watch: %v\n", err)
		},
	}
}

// Run watches until ctx is cancelled. The parent directory is watched
// rather than the file itself so atomic rename-into-place saves are
// observed.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return err
	}

	var mu sync.Mutex
	dirty := false

	// Single debounce timer — reset on each event, no goroutines.
	debounceTimer := time.NewTimer(w.debounce)
	debounceTimer.Stop()
	defer debounceTimer.Stop()

	target := filepath.Clean(w.path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-debounceTimer.C:
			mu.Lock()
			fire := dirty
			dirty = false
			mu.Unlock()
			if fire {
				w.reload()
			}

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			mu.Lock()
			dirty = true
			mu.Unlock()

			if !debounceTimer.Stop() {
				select {
				case <-debounceTimer.C:
				default:
				}
			}
			debounceTimer.Reset(w.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			_ = err
		}
	}
}

// reload parses the file and hands the result to the handler.
func (w *Watcher) reload() {
	p, hash, err := policy.LoadFileWithHash(w.path)
	if err != nil {
		if w.OnError != nil {
			w.OnError(err)
		}
		return
	}
	w.handler(p, hash)
}
