package docstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/loveeagles/planner/internal/logger"
)

// DefaultWatchDebounce is how long the watcher waits after the last file
// event before checking the store for external commits.
const DefaultWatchDebounce = 200 * time.Millisecond

// ExternalWatcher picks up commits made to a SQLite store by other
// processes (another CLI invocation, `planner serve`) and announces them to
// the store's subscribers as OpExternal changes.
//
// It watches the database directory with fsnotify, debounces writes to the
// database and WAL files, then calls SQLStore.Refresh, which compares the
// store version against the last one this process saw. Commits made through
// the same SQLStore never produce an OpExternal change.
type ExternalWatcher struct {
	store    *SQLStore
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *log.Logger

	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewExternalWatcher creates a watcher for store. Only SQLite stores can be
// watched. The watcher must be started with Start.
func NewExternalWatcher(store *SQLStore, debounce time.Duration, l *log.Logger) (*ExternalWatcher, error) {
	if store.File() == "" {
		return nil, errors.New("external watching requires a SQLite store")
	}
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	return &ExternalWatcher{
		store:    store,
		watcher:  w,
		debounce: debounce,
		logger:   logger.Named(l, "docstore-watch"),
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching the database directory.
func (w *ExternalWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher already running")
	}

	dir := filepath.Dir(w.store.File())
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch database directory %s: %w", dir, err)
	}

	w.running = true
	w.wg.Add(1)
	go w.processEvents()
	return nil
}

// Stop stops watching and blocks until the event loop has exited.
// Safe to call on a watcher that was never started.
func (w *ExternalWatcher) Stop() error {
	w.mu.Lock()
	wasRunning := w.running
	w.running = false
	w.mu.Unlock()

	if wasRunning {
		close(w.done)
	}
	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	w.wg.Wait()
	return nil
}

// IsRunning returns true if the watcher is currently running.
func (w *ExternalWatcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *ExternalWatcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	db := w.store.File()
	return abs == db || abs == db+"-wal"
}

func (w *ExternalWatcher) processEvents() {
	defer w.wg.Done()

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
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
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
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if _, err := w.store.Refresh(ctx); err != nil && !errors.Is(err, ErrClosed) {
				w.logger.Warn("failed to refresh store", "err", err)
			}
			cancel()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "err", err)
		}
	}
}
