package dictionary

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/endorses/ackit/internal/pkg/logger"
	"github.com/fsnotify/fsnotify"
)

// WatcherConfig configures the dictionary file watcher.
type WatcherConfig struct {
	// PollInterval is the fallback polling interval when fsnotify is unavailable.
	// Default: 1 second
	PollInterval time.Duration

	// Debounce collapses bursts of file events into one reload.
	// Default: 100ms
	Debounce time.Duration

	// OnError is called with every failed reload. Optional.
	OnError func(error)
}

// DefaultWatcherConfig returns the default watcher configuration.
func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		PollInterval: 1 * time.Second,
		Debounce:     100 * time.Millisecond,
	}
}

// WatcherStats holds watcher counters.
type WatcherStats struct {
	Reloads    uint64
	Errors     uint64
	LastReload time.Time
	Mode       string
}

// Watcher reloads a dictionary file whenever it changes and hands the new
// entries to a callback. Failed reloads keep the previous dictionary.
type Watcher struct {
	config    WatcherConfig
	path      string
	onChange  func([]Entry)
	log       *slog.Logger
	fsWatcher *fsnotify.Watcher
	mu        sync.Mutex
	stopChan  chan struct{}
	wg        sync.WaitGroup
	running   bool
	mode      string

	// Stats
	reloads    uint64
	errors     uint64
	lastReload time.Time
}

// NewWatcher creates a watcher for the dictionary at path.
func NewWatcher(path string, onChange func([]Entry), config WatcherConfig) *Watcher {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultWatcherConfig().PollInterval
	}
	if config.Debounce <= 0 {
		config.Debounce = DefaultWatcherConfig().Debounce
	}

	return &Watcher{
		config:   config,
		path:     path,
		onChange: onChange,
		log:      logger.With("component", "dictionary_watcher", "path", path),
	}
}

// fileState is the modification time and size seen by the polling loop.
type fileState struct {
	modTime time.Time
	size    int64
}

func statFile(path string) fileState {
	info, err := os.Stat(path)
	if err != nil {
		return fileState{}
	}
	return fileState{modTime: info.ModTime(), size: info.Size()}
}

// Start loads the dictionary once and then watches it for changes.
// The initial load must succeed; later failures are logged and counted.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.stopChan = make(chan struct{})
	w.mu.Unlock()

	// Arm the watch and take the polling baseline before the initial load
	baseline := statFile(w.path)
	fsWatcher := w.newFSWatcher()

	entries, err := Load(w.path)
	if err != nil {
		if fsWatcher != nil {
			if cerr := fsWatcher.Close(); cerr != nil {
				w.log.Error("failed to close fsnotify watcher", "error", cerr)
			}
		}
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	w.deliver(entries)

	if fsWatcher == nil {
		return w.startPolling(ctx, baseline)
	}

	w.mu.Lock()
	w.fsWatcher = fsWatcher
	w.mode = "fsnotify"
	w.mu.Unlock()

	w.wg.Add(1)
	go w.fsWatchLoop(ctx, fsWatcher)

	w.log.Info("started dictionary watcher", "mode", "fsnotify")

	return nil
}

// newFSWatcher watches the dictionary's directory, or returns nil when
// fsnotify cannot be used.
func (w *Watcher) newFSWatcher() *fsnotify.Watcher {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.log.Warn("fsnotify unavailable, falling back to polling", "error", err)
		return nil
	}

	// Watch the directory: editors and atomic writers replace the file
	dir := filepath.Dir(w.path)
	if err := fsWatcher.Add(dir); err != nil {
		w.log.Warn("failed to watch directory, falling back to polling",
			"dir", dir,
			"error", err)
		if cerr := fsWatcher.Close(); cerr != nil {
			w.log.Error("failed to close fsnotify watcher", "error", cerr)
		}
		return nil
	}
	return fsWatcher
}

// startPolling watches using periodic polling. baseline is the file state
// taken before the initial load.
func (w *Watcher) startPolling(ctx context.Context, baseline fileState) error {
	w.mu.Lock()
	w.mode = "polling"
	w.mu.Unlock()

	w.wg.Add(1)
	go w.pollLoop(ctx, baseline)

	w.log.Info("started dictionary watcher",
		"mode", "polling",
		"interval", w.config.PollInterval)

	return nil
}

// fsWatchLoop reloads after a quiet period following each burst of events.
func (w *Watcher) fsWatchLoop(ctx context.Context, fsWatcher *fsnotify.Watcher) {
	defer w.wg.Done()

	targetPath, _ := filepath.Abs(w.path)

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event, ok := <-fsWatcher.Events:
			if !ok {
				return
			}

			// Only react to our target file
			eventPath, _ := filepath.Abs(event.Name)
			if eventPath != targetPath {
				continue
			}

			// Rename and Remove cover editors that move the old file away
			// before writing the new one
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				w.log.Debug("dictionary file event ignored", "op", event.Op.String())
				continue
			}

			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.config.Debounce)
			timerC = timer.C
		case <-timerC:
			timerC = nil
			w.reload()
		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("fsnotify error", "error", err)
			w.mu.Lock()
			w.errors++
			w.mu.Unlock()
		}
	}
}

// pollLoop watches for file changes using periodic polling.
func (w *Watcher) pollLoop(ctx context.Context, last fileState) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case <-ticker.C:
			info, err := os.Stat(w.path)
			if err != nil {
				if !os.IsNotExist(err) {
					w.log.Warn("failed to stat dictionary file", "error", err)
				}
				continue
			}

			if info.ModTime().Equal(last.modTime) && info.Size() == last.size {
				continue
			}
			last = fileState{modTime: info.ModTime(), size: info.Size()}
			w.reload()
		}
	}
}

// reload reads the dictionary and delivers it, or records the failure.
func (w *Watcher) reload() {
	entries, err := Load(w.path)
	if errors.Is(err, fs.ErrNotExist) {
		// Moved away or deleted; the replacement arrives as a new event
		w.log.Debug("dictionary file missing, keeping previous entries")
		return
	}
	if err != nil {
		w.mu.Lock()
		w.errors++
		w.mu.Unlock()
		w.log.Warn("failed to reload dictionary, keeping previous entries", "error", err)
		if w.config.OnError != nil {
			w.config.OnError(err)
		}
		return
	}

	w.deliver(entries)
	w.log.Info("dictionary reloaded", "pattern_count", len(entries))
}

func (w *Watcher) deliver(entries []Entry) {
	w.mu.Lock()
	w.reloads++
	w.lastReload = time.Now()
	w.mu.Unlock()

	if w.onChange != nil {
		w.onChange(entries)
	}
}

// Stop stops the watcher. It is safe to call more than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	fsWatcher := w.fsWatcher
	w.fsWatcher = nil
	w.mu.Unlock()

	close(w.stopChan)
	w.wg.Wait()

	var err error
	if fsWatcher != nil {
		if err = fsWatcher.Close(); err != nil {
			w.log.Error("failed to close fsnotify watcher", "error", err)
		}
	}

	w.log.Info("stopped dictionary watcher", "reloads", w.Stats().Reloads)

	return err
}

// Stats returns watcher statistics.
func (w *Watcher) Stats() WatcherStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	return WatcherStats{
		Reloads:    w.reloads,
		Errors:     w.errors,
		LastReload: w.lastReload,
		Mode:       w.mode,
	}
}
