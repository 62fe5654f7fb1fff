package dictionary

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// recorder collects delivered dictionaries.
type recorder struct {
	mu    sync.Mutex
	loads [][]Entry
	errs  []error
}

func (r *recorder) onChange(entries []Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loads = append(r.loads, entries)
}

func (r *recorder) onError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recorder) last() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.loads) == 0 {
		return nil
	}
	return r.loads[len(r.loads)-1]
}

func (r *recorder) errCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errs)
}

func testConfig(r *recorder) WatcherConfig {
	config := DefaultWatcherConfig()
	config.PollInterval = 20 * time.Millisecond
	config.Debounce = 20 * time.Millisecond
	config.OnError = r.onError
	return config
}

func TestWatcher_InitialLoad(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "dict.txt")
	require.NoError(t, os.WriteFile(path, []byte("he 1\n"), 0600))

	rec := &recorder{}
	w := NewWatcher(path, rec.onChange, testConfig(rec))
	require.NoError(t, w.Start(context.Background()))

	assert.Equal(t, []Entry{{Key: "he", Value: "1"}}, rec.last())
	stats := w.Stats()
	assert.Equal(t, uint64(1), stats.Reloads)
	assert.Contains(t, []string{"fsnotify", "polling"}, stats.Mode)

	require.NoError(t, w.Stop())
}

func TestWatcher_InitialLoadFailure(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := &recorder{}
	w := NewWatcher(filepath.Join(t.TempDir(), "missing.txt"), rec.onChange, testConfig(rec))
	require.Error(t, w.Start(context.Background()))
	assert.Nil(t, rec.last())

	// Not running, so Stop is a no-op
	require.NoError(t, w.Stop())
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "dict.yaml")
	require.NoError(t, WriteYAML(path, []Entry{{Key: "he", Value: "1"}}))

	rec := &recorder{}
	w := NewWatcher(path, rec.onChange, testConfig(rec))
	require.NoError(t, w.Start(context.Background()))
	defer func() {
		require.NoError(t, w.Stop())
	}()

	updated := []Entry{{Key: "he", Value: "1"}, {Key: "she", Value: "2"}}
	require.NoError(t, WriteYAML(path, updated))

	assert.Eventually(t, func() bool {
		return len(rec.last()) == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, updated, rec.last())
}

func TestWatcher_KeepsPreviousOnBadReload(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "dict.txt")
	require.NoError(t, os.WriteFile(path, []byte("he 1\n"), 0600))

	rec := &recorder{}
	w := NewWatcher(path, rec.onChange, testConfig(rec))
	require.NoError(t, w.Start(context.Background()))
	defer func() {
		require.NoError(t, w.Stop())
	}()

	require.NoError(t, os.WriteFile(path, []byte("he 1\n\tbroken\n"), 0600))

	assert.Eventually(t, func() bool {
		return rec.errCount() > 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []Entry{{Key: "he", Value: "1"}}, rec.last())
	assert.Positive(t, w.Stats().Errors)
}

func TestWatcher_DoubleStart(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "dict.txt")
	require.NoError(t, os.WriteFile(path, []byte("he\n"), 0600))

	rec := &recorder{}
	w := NewWatcher(path, rec.onChange, testConfig(rec))
	require.NoError(t, w.Start(context.Background()))
	assert.Error(t, w.Start(context.Background()))

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
}

func TestWatcher_PollingFallback(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "dict.txt")
	require.NoError(t, os.WriteFile(path, []byte("he\n"), 0600))

	rec := &recorder{}
	w := NewWatcher(path, rec.onChange, testConfig(rec))

	// Drive the polling loop directly
	w.running = true
	w.stopChan = make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.startPolling(ctx, statFile(path)))

	// Make sure the modification time moves even on coarse filesystems
	later := time.Now().Add(2 * time.Second)
	require.NoError(t, os.WriteFile(path, []byte("he\nshe\n"), 0600))
	require.NoError(t, os.Chtimes(path, later, later))

	assert.Eventually(t, func() bool {
		return len(rec.last()) == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "polling", w.Stats().Mode)

	cancel()
	require.NoError(t, w.Stop())
}

func TestWatcher_PollingSeesEditBeforeLoopStarts(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "dict.txt")
	require.NoError(t, os.WriteFile(path, []byte("he\n"), 0600))

	rec := &recorder{}
	w := NewWatcher(path, rec.onChange, testConfig(rec))

	// Baseline taken at load time, then an edit lands before the loop runs
	baseline := statFile(path)
	later := time.Now().Add(2 * time.Second)
	require.NoError(t, os.WriteFile(path, []byte("he\nshe\n"), 0600))
	require.NoError(t, os.Chtimes(path, later, later))

	w.running = true
	w.stopChan = make(chan struct{})
	require.NoError(t, w.startPolling(context.Background(), baseline))

	assert.Eventually(t, func() bool {
		return len(rec.last()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, w.Stop())
}

func TestWatcher_FileMovedAwayThenReplaced(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "dict.txt")
	require.NoError(t, os.WriteFile(path, []byte("he\n"), 0600))

	rec := &recorder{}
	w := NewWatcher(path, rec.onChange, testConfig(rec))
	require.NoError(t, w.Start(context.Background()))
	defer func() {
		require.NoError(t, w.Stop())
	}()

	require.NoError(t, os.Rename(path, filepath.Join(dir, "dict.txt.bak")))
	time.Sleep(100 * time.Millisecond)

	// A missing file is not a failed reload
	assert.Zero(t, rec.errCount())
	assert.Equal(t, []Entry{{Key: "he", Value: "he"}}, rec.last())

	later := time.Now().Add(2 * time.Second)
	require.NoError(t, os.WriteFile(path, []byte("he\nshe\n"), 0600))
	require.NoError(t, os.Chtimes(path, later, later))

	assert.Eventually(t, func() bool {
		return len(rec.last()) == 2
	}, 2*time.Second, 10*time.Millisecond)
}
