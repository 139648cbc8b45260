// Package watch reruns a script whenever it or its dependencies change.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Extension marks files that trigger a rerun inside watched directories.
const Extension = ".scm"

// Watcher monitors files and directories and calls a rerun function once
// changes have settled for the debounce period.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	log      *Log

	files map[string]bool // individually watched files
	dirs  map[string]bool // directories where any script change counts

	mu   sync.Mutex
	runs uint64
}

// New creates a Watcher. Close must be called to release it.
func New(debounce time.Duration, log *Log) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:  fsWatcher,
		debounce: debounce,
		log:      log,
		files:    make(map[string]bool),
		dirs:     make(map[string]bool),
	}, nil
}

// Add watches a file or, recursively, a directory.
func (w *Watcher) Add(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return w.addDir(path)
	}
	return w.addFile(path)
}

// addFile watches the parent directory so that editors which save by
// renaming over the file are still noticed.
func (w *Watcher) addFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.watcher.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	w.files[abs] = true
	w.log.Info("watching file: %s", path)
	return nil
}

func (w *Watcher) addDir(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	err = filepath.Walk(abs, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			return nil
		}
		if strings.HasPrefix(info.Name(), ".") && path != abs {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return err
		}
		w.dirs[path] = true
		return nil
	})
	if err != nil {
		return err
	}
	w.log.Info("watching directory: %s", root)
	return nil
}

// relevant reports whether an event should schedule a rerun.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	if w.files[abs] {
		return true
	}
	return w.dirs[filepath.Dir(abs)] && strings.EqualFold(filepath.Ext(abs), Extension)
}

// Run calls rerun once immediately and again after every settled burst of
// changes, until ctx is cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context, rerun func()) error {
	w.trigger(rerun)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.log.Debug("changed: %s", event.Name)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.log.Info("rerunning")
			w.trigger(rerun)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Error("watcher error: %v", err)
		}
	}
}

func (w *Watcher) trigger(rerun func()) {
	w.mu.Lock()
	w.runs++
	w.mu.Unlock()
	rerun()
}

// Runs returns how many times the rerun function has been called.
func (w *Watcher) Runs() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.runs
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
