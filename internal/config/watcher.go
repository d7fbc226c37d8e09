package config

import (
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceDelay absorbs the write-temp-then-rename burst a Save
// produces into a single reload.
const debounceDelay = 100 * time.Millisecond

// Watcher reloads cfg when its file changes on disk, so edits made
// with a text editor apply without restarting the app.
//
// The parent directory is watched rather than the file itself: atomic
// saves replace the file, which would silently detach a file watch.
type Watcher struct {
	cfg *Config
	fw  *fsnotify.Watcher

	mu      sync.Mutex
	pending *time.Timer
	done    chan struct{}
}

// Watch starts watching cfg's file. Close releases the watch.
func Watch(cfg *Config) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	p := cfg.FilePath()
	if err := fw.Add(filepath.Dir(p)); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{cfg: cfg, fw: fw, done: make(chan struct{})}
	go w.run(filepath.Base(p))
	return w, nil
}

func (w *Watcher) run(name string) {
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			log.Printf("[config] watch error: %v", err)
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(debounceDelay, func() {
		if err := w.cfg.Reload(); err != nil {
			log.Printf("[config] reload: %v", err)
			return
		}
		log.Printf("[config] reloaded from disk")
	})
}

// Close stops watching. Idempotent.
func (w *Watcher) Close() error {
	w.mu.Lock()
	select {
	case <-w.done:
		w.mu.Unlock()
		return nil
	default:
		close(w.done)
	}
	if w.pending != nil {
		w.pending.Stop()
	}
	w.mu.Unlock()
	return w.fw.Close()
}
