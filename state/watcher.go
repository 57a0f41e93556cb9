package state

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// DefaultDebounce coalesces bursts of writes to the preference file.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reports theme changes made to a preference file by other processes
// or by hand. It watches the parent directory because editors often replace
// the file instead of writing it in place.
type Watcher struct {
	file     *File
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onChange func(theme string)
	logger   *logrus.Entry

	mu    sync.Mutex
	timer *time.Timer
	last  string
}

// NewWatcher starts watching file. onChange runs on the watcher's goroutine
// with the new theme whenever the stored theme changes.
func NewWatcher(file *File, debounce time.Duration, onChange func(theme string), logger *logrus.Entry) (*Watcher, error) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	dir := filepath.Dir(file.Path())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	last, err := file.Theme()
	if err != nil {
		logger.WithError(err).Warn("Failed to read initial theme")
	}

	return &Watcher{
		file:     file,
		watcher:  watcher,
		debounce: debounce,
		onChange: onChange,
		logger:   logger.WithField("path", file.Path()),
		last:     last,
	}, nil
}

// Start processes file events. It blocks until the context is cancelled or
// the watcher is closed.
func (w *Watcher) Start(ctx context.Context) {
	target := filepath.Clean(w.file.Path())
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			w.logger.Debugf("fsnotify event: op=%v", event.Op)
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				w.schedule()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Errorf("Watcher error: %v", err)
		case <-ctx.Done():
			w.Close()
			return
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()
	return w.watcher.Close()
}

// schedule re-arms the debounce timer so only the last event of a burst is
// processed.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	theme, err := w.file.Theme()
	if err != nil {
		w.logger.WithError(err).Warn("Failed to reload preferences")
		return
	}

	w.mu.Lock()
	changed := theme != w.last
	w.last = theme
	w.mu.Unlock()

	if !changed {
		return
	}
	w.logger.Infof("Theme changed on disk: %s", theme)
	if w.onChange != nil {
		w.onChange(theme)
	}
}
