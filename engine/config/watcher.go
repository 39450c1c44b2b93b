package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Watcher hot-reloads a catalog file, swapping an atomic pointer on change.
// Loading is read-only: the file on disk is never rewritten by the engine.
type Watcher struct {
	path    string
	current atomic.Pointer[Catalog]
	fw      *fsnotify.Watcher
	onSwap  func(*Catalog)

	closeOnce sync.Once
	done      chan struct{}
}

// NewWatcher loads the catalog at path and begins watching its directory.
// onSwap (optional) is invoked after each successful reload.
func NewWatcher(path string, onSwap func(*Catalog)) (*Watcher, error) {
	cat, err := Load(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	// Watch the directory so editor rename-replace writes are observed.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch catalog dir: %w", err)
	}
	w := &Watcher{path: path, fw: fw, onSwap: onSwap, done: make(chan struct{})}
	w.current.Store(cat)
	go w.loop()
	return w, nil
}

// Current returns the most recently loaded catalog.
func (w *Watcher) Current() *Catalog { return w.current.Load() }

// Close stops watching.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fw.Close()
	})
	return err
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			cat, err := Load(w.path)
			if err != nil {
				// A half-written or invalid file keeps the previous catalog.
				continue
			}
			w.current.Store(cat)
			if w.onSwap != nil {
				w.onSwap(cat)
			}
		case _, ok := <-w.fw.Errors:
			if !ok {
				return
			}
		}
	}
}
