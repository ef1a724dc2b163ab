package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadFunc receives the freshly parsed config after a debounced change to
// the watched file. Implementations decide what to do with it (re-register
// providers, invalidate cached agents, etc).
type ReloadFunc func(cfg *Config)

// Watcher triggers ReloadFunc whenever the config file changes on disk,
// debounced so an editor save (which often fires as several events) collapses
// into a single reload. Mirrors skills.Watcher's shape for the same reason:
// config.json and the skills directories are both "edit on disk, pick it up
// without a restart" surfaces.
type Watcher struct {
	path     string
	fw       *fsnotify.Watcher
	onReload ReloadFunc
}

// NewWatcher watches path's containing directory rather than the file
// itself — editors that save via rename-into-place (most of them) replace
// the inode, and a single-file fsnotify watch doesn't survive that.
func NewWatcher(path string, onReload ReloadFunc) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}
	return &Watcher{path: filepath.Clean(path), fw: fw, onReload: onReload}, nil
}

// Start runs the debounced reload loop until ctx is canceled or Stop is
// called. Only events for the watched file itself trigger a reload; other
// files in the same directory are ignored.
func (w *Watcher) Start(ctx context.Context) error {
	debounce := time.NewTimer(0)
	if !debounce.Stop() {
		<-debounce.C
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			debounce.Reset(300 * time.Millisecond)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("config: watcher error", "err", err)
		case <-debounce.C:
			cfg, err := Load(w.path)
			if err != nil {
				slog.Warn("config: reload failed, keeping previous config", "err", err)
				continue
			}
			slog.Info("config: file changed, reloaded", "path", w.path)
			w.onReload(cfg)
		}
	}
}

// Stop closes the underlying filesystem watcher, ending Start's loop.
func (w *Watcher) Stop() {
	_ = w.fw.Close()
}
