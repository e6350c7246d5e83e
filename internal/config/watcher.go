package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads config.toml when it changes on disk.
type Watcher struct {
	watcher   *fsnotify.Watcher
	onChange  func(*Config)
	debounce  time.Duration
	stopCh    chan struct{}
	mu        sync.Mutex
	lastEvent time.Time
}

// NewWatcher creates a config file watcher. onChange receives the freshly
// loaded config; it is not called for parse errors.
func NewWatcher(onChange func(*Config)) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:  fsWatcher,
		onChange: onChange,
		debounce: 200 * time.Millisecond,
		stopCh:   make(chan struct{}),
	}, nil
}

// Start begins watching the config directory. Watching the directory
// rather than the file survives editors that rename-on-save.
func (w *Watcher) Start() error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := w.watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}
	go w.watchLoop(filepath.Base(path))
	return nil
}

// Stop stops the watcher
func (w *Watcher) Stop() error {
	close(w.stopCh)
	return w.watcher.Close()
}

func (w *Watcher) watchLoop(fileName string) {
	var debounceTimer *time.Timer

	for {
		select {
		case <-w.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != fileName {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			// Debounce: wait for editor activity to settle
			w.mu.Lock()
			w.lastEvent = time.Now()
			w.mu.Unlock()

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, func() {
				w.mu.Lock()
				elapsed := time.Since(w.lastEvent)
				w.mu.Unlock()
				if elapsed < w.debounce {
					return
				}
				if cfg, err := Load(); err == nil {
					w.onChange(cfg)
				}
			})

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}
