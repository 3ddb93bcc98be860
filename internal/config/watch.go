package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"ctxengine/internal/logging"
)

// Watcher reloads a config file from disk whenever it changes and
// delivers the new Config to a callback. A future long-running mode
// (e.g. a daemon front-end) can use this to pick up threshold and
// embedder changes without restarting.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	path        string
	onChange    func(*Config)
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

// WatchConfig starts watching path's containing directory for changes to
// path and invokes onChange with the freshly loaded Config after each
// settled write. Load errors during a reload are logged and skipped —
// the previous in-memory Config is left in place. Call Stop to release
// the underlying OS watch.
func WatchConfig(path string, onChange func(*Config)) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, err
	}

	cw := &Watcher{
		watcher:     w,
		path:        path,
		onChange:    onChange,
		debounceDur: 250 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
		running:     true,
	}

	go cw.run()
	return cw, nil
}

func (cw *Watcher) run() {
	defer close(cw.doneCh)

	var pending bool
	debounce := time.NewTimer(time.Hour)
	if !debounce.Stop() {
		<-debounce.C
	}

	for {
		select {
		case <-cw.stopCh:
			return

		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(cw.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			pending = true
			debounce.Reset(cw.debounceDur)

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			logging.BootError("config watcher error: %v", err)

		case <-debounce.C:
			if !pending {
				continue
			}
			pending = false
			cfg, err := Load(cw.path)
			if err != nil {
				logging.BootError("config reload failed for %s: %v", cw.path, err)
				continue
			}
			logging.Boot("config reloaded: %s", cw.path)
			cw.onChange(cfg)
		}
	}
}

// Stop releases the underlying OS watch and waits for the run loop to exit.
func (cw *Watcher) Stop() {
	cw.mu.Lock()
	if !cw.running {
		cw.mu.Unlock()
		return
	}
	cw.running = false
	cw.mu.Unlock()

	close(cw.stopCh)
	<-cw.doneCh
	_ = cw.watcher.Close()
}
