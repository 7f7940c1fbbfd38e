package config

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ScriptWatcher watches a session's startup script files and debounces
// filesystem events into a single reload signal. The daemon answers that
// signal by reloading every session, which clears its triggers and aliases;
// the script files themselves are not read or evaluated.
type ScriptWatcher struct {
	watcher *fsnotify.Watcher
	reload  chan struct{}

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
}

// NewScriptWatcher starts watching the given startup script paths. Missing
// paths are skipped rather than failing the whole watcher, since a startup
// script list may name a file that doesn't exist yet.
func NewScriptWatcher(paths []string, debounce time.Duration) (*ScriptWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, p := range paths {
		_ = w.Add(p)
	}

	sw := &ScriptWatcher{
		watcher: w,
		reload:  make(chan struct{}, 1),
	}
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}

	go sw.run(debounce)
	return sw, nil
}

// Reload emits once per coalesced burst of filesystem changes.
func (sw *ScriptWatcher) Reload() <-chan struct{} { return sw.reload }

func (sw *ScriptWatcher) run(debounce time.Duration) {
	defer func() {
		sw.mu.Lock()
		sw.closed = true
		if sw.timer != nil {
			sw.timer.Stop()
		}
		sw.mu.Unlock()
		close(sw.reload)
	}()

	for {
		select {
		case _, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			sw.mu.Lock()
			if sw.timer != nil {
				sw.timer.Stop()
			}
			sw.timer = time.AfterFunc(debounce, sw.signal)
			sw.mu.Unlock()
		case _, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (sw *ScriptWatcher) signal() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.closed {
		return
	}
	select {
	case sw.reload <- struct{}{}:
	default:
	}
}

// Close stops the underlying watcher.
func (sw *ScriptWatcher) Close() error { return sw.watcher.Close() }
