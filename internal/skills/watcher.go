package skills

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher triggers a Loader reload whenever one of its directories changes
// on disk, debounced so a burst of writes (e.g. an editor save) collapses
// into a single reload.
type Watcher struct {
	loader *Loader
	fw     *fsnotify.Watcher
}

// NewWatcher creates a Watcher over loader's directories. Directories that
// don't exist at construction time are silently skipped; they pick up
// changes once Reload is called again manually.
func NewWatcher(loader *Loader) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, dir := range loader.Dirs() {
		if err := fw.Add(dir); err != nil {
			slog.Warn("skills: watch directory failed", "dir", dir, "err", err)
		}
	}
	return &Watcher{loader: loader, fw: fw}, nil
}

// Start runs the debounced reload loop until ctx is canceled or Stop is
// called.
func (w *Watcher) Start(ctx context.Context) error {
	debounce := time.NewTimer(0)
	if !debounce.Stop() {
		<-debounce.C
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			debounce.Reset(200 * time.Millisecond)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("skills: watcher error", "err", err)
		case <-debounce.C:
			if err := w.loader.Reload(); err != nil {
				slog.Warn("skills: reload failed", "err", err)
			}
		}
	}
}

// Stop closes the underlying filesystem watcher, ending Start's loop.
func (w *Watcher) Stop() {
	_ = w.fw.Close()
}
