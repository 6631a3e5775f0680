package watch

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounceInterval = 300 * time.Millisecond

// Watcher reports changes to a single file. Editors often replace a file
// instead of writing it in place, so the parent directory is watched and
// events are filtered by name.
type Watcher struct {
	path      string
	fsWatcher *fsnotify.Watcher
	changes   chan struct{}
	done      chan struct{}
	debounce  time.Duration
}

func New(path string) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fsW, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsW.Add(filepath.Dir(abs)); err != nil {
		fsW.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	w := &Watcher{
		path:      abs,
		fsWatcher: fsW,
		changes:   make(chan struct{}, 1),
		done:      make(chan struct{}),
		debounce:  debounceInterval,
	}
	go w.loop()
	return w, nil
}

// Changes yields once per burst of modifications. It is closed by Close.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

func (w *Watcher) Close() error {
	close(w.done)
	return w.fsWatcher.Close()
}

func (w *Watcher) loop() {
	defer close(w.changes)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(w.debounce)

		case <-timer.C:
			select {
			case w.changes <- struct{}{}:
			default:
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Warn("file watcher error", "path", w.path, "error", err)
		}
	}
}
