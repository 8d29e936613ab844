package config

import (
	"github.com/fsnotify/fsnotify"

	"github.com/sl-streamline/core/internal/log"
)

// PluginDirWatcher watches the plugin search paths for new or removed
// plugin binaries and calls back so the manager can re-run discovery
// without requiring the host to restart.
type PluginDirWatcher struct {
	watcher *fsnotify.Watcher
	onEvent func(path string, created bool)
	done    chan struct{}
}

// WatchPluginDirs starts watching dirs; onEvent is invoked (from an internal
// goroutine) whenever a file appears or disappears in one of them.
func WatchPluginDirs(dirs []string, onEvent func(path string, created bool)) (*PluginDirWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			log.Global().Warnf("config: could not watch plugin dir %q: %v", dir, err)
		}
	}

	pw := &PluginDirWatcher{watcher: w, onEvent: onEvent, done: make(chan struct{})}
	go pw.run()
	return pw, nil
}

func (pw *PluginDirWatcher) run() {
	for {
		select {
		case ev, ok := <-pw.watcher.Events:
			if !ok {
				return
			}
			switch {
			case ev.Has(fsnotify.Create):
				pw.onEvent(ev.Name, true)
			case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
				pw.onEvent(ev.Name, false)
			}
		case err, ok := <-pw.watcher.Errors:
			if !ok {
				return
			}
			log.Global().Warnf("config: plugin dir watch error: %v", err)
		case <-pw.done:
			return
		}
	}
}

// Close stops the watcher.
func (pw *PluginDirWatcher) Close() error {
	close(pw.done)
	return pw.watcher.Close()
}
