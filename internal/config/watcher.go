package config

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/thomasgenty15-afk/Sophia-sub002/internal/logging"
)

// Watcher reloads the config when .sophia/config.yaml changes on disk and
// hands the fresh copy to the callback. Reload failures keep the previous
// config; the watcher never crashes the process.
type Watcher struct {
	workspace string
	watcher   *fsnotify.Watcher
	done      chan struct{}
}

// Watch starts watching the workspace config file. onChange runs on the
// watcher goroutine; callers must do their own locking.
func Watch(workspace string, onChange func(*Config)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory, not the file: editors replace files on save and
	// the inode-level watch would be lost.
	dir := filepath.Join(workspace, ".sophia")
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{workspace: workspace, watcher: fsw, done: make(chan struct{})}

	go func() {
		for {
			select {
			case ev, ok := <-fsw.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != "config.yaml" {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				cfg, err := Load(workspace)
				if err != nil {
					logging.Get(logging.CategoryBoot).Warn("config reload failed: %v", err)
					continue
				}
				logging.Get(logging.CategoryBoot).Info("config reloaded from %s", ev.Name)
				onChange(cfg)
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				logging.Get(logging.CategoryBoot).Warn("config watcher error: %v", err)
			case <-w.done:
				return
			}
		}
	}()

	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
