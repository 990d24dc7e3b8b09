package store

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce coalesces the burst of events a single save produces
// (temp file write, rename).
const DefaultWatchDebounce = 50 * time.Millisecond

// FileWatcher rehydrates a Store whenever another process rewrites its
// state file. The parent directory is watched because saves replace the
// file by rename.
type FileWatcher struct {
	fsw      *fsnotify.Watcher
	store    *Store
	name     string
	debounce time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	timer   *time.Timer
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	stopped bool
}

// NewFileWatcher creates a watcher for store's state file.
func NewFileWatcher(store *Store, logger *slog.Logger) (*FileWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &FileWatcher{
		fsw:      fsw,
		store:    store,
		name:     filepath.Clean(store.Path()),
		debounce: DefaultWatchDebounce,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// SetDebounce changes the coalescing window. Must be called before Start.
func (fw *FileWatcher) SetDebounce(d time.Duration) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	fw.debounce = d
}

// Start begins watching.
func (fw *FileWatcher) Start() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.started {
		return nil
	}

	dir := filepath.Dir(fw.name)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	if err := fw.fsw.Add(dir); err != nil {
		return err
	}

	fw.started = true
	go fw.loop()
	return nil
}

func (fw *FileWatcher) loop() {
	defer close(fw.doneCh)

	for {
		select {
		case <-fw.stopCh:
			return

		case ev, ok := <-fw.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != fw.name {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				fw.schedule()
			}

		case err, ok := <-fw.fsw.Errors:
			if !ok {
				return
			}
			fw.logger.Warn("state watcher error", "error", err)
		}
	}
}

// schedule rehydrates once the file has been quiet for the debounce window.
func (fw *FileWatcher) schedule() {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.stopped {
		return
	}
	if fw.timer != nil {
		fw.timer.Stop()
	}
	fw.timer = time.AfterFunc(fw.debounce, fw.rehydrate)
}

func (fw *FileWatcher) rehydrate() {
	fw.logger.Debug("state file changed, rehydrating", "path", fw.name)
	if err := fw.store.Hydrate(); err != nil {
		fw.logger.Warn("failed to rehydrate state", "path", fw.name, "error", err)
	}
}

// Stop stops watching. It is safe to call more than once.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	if fw.stopped {
		fw.mu.Unlock()
		return nil
	}
	fw.stopped = true
	if fw.timer != nil {
		fw.timer.Stop()
	}
	started := fw.started
	close(fw.stopCh)
	fw.mu.Unlock()

	err := fw.fsw.Close()
	if started {
		<-fw.doneCh
	}
	return err
}
