package confloader

import (
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/yndnr/blazar-go/internal/telemetry/logger"
)

// DefaultDebounce is how long the watcher waits after the last event on
// the file before calling back. Editors often write a file in several
// steps.
const DefaultDebounce = 100 * time.Millisecond

// Watcher calls back when one configuration file changes.
//
// It watches the parent directory, so a file replaced by rename is still
// seen. Events for other files in that directory are ignored, and bursts
// of events are coalesced into one callback.
type Watcher struct {
	path     string
	onChange func()
	debounce time.Duration
	logger   logger.Logger

	fs       *fsnotify.Watcher
	done     chan struct{}
	exited   chan struct{}
	started  atomic.Bool
	stopOnce sync.Once
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatcherLogger sets the logger for the watcher.
func WithWatcherLogger(l logger.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = l
	}
}

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// NewWatcher prepares a watcher for path. Nothing is delivered until Start.
func NewWatcher(path string, onChange func(), opts ...WatcherOption) (*Watcher, error) {
	if path == "" {
		return nil, errors.New("confloader: no file to watch")
	}
	if onChange == nil {
		return nil, errors.New("confloader: nil change callback")
	}

	w := &Watcher{
		path:     filepath.Clean(path),
		onChange: onChange,
		debounce: DefaultDebounce,
		logger:   logger.Default(),
		done:     make(chan struct{}),
		exited:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fs.Add(filepath.Dir(w.path)); err != nil {
		_ = fs.Close()
		return nil, err
	}
	w.fs = fs
	return w, nil
}

// Start runs the event loop in a goroutine.
func (w *Watcher) Start() {
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	w.logger.Debug("watching configuration file", "file", w.path)
	go w.loop()
}

// Stop ends the event loop and waits for a running callback to return.
// It is safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.fs.Close()
		if w.started.Load() {
			<-w.exited
		}
	})
	return err
}

func (w *Watcher) loop() {
	defer close(w.exited)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.logger.Info("configuration file changed", "file", w.path)
			w.onChange()
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("configuration watcher error", "error", err)
		case <-w.done:
			return
		}
	}
}
