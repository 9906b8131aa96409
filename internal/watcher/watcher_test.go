package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/debounce"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeSnapshot(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestWatcher_Defaults(t *testing.T) {
	w, err := New("snapshot.json")
	require.NoError(t, err)
	require.True(t, filepath.IsAbs(w.path))
	require.Equal(t, DefaultPollInterval, w.pollInterval)
	require.Equal(t, DefaultDebounceDuration, w.debouncer.Delay())

	w, err = New("snapshot.json", WithDebounceDuration(0))
	require.NoError(t, err)
	require.Equal(t, debounce.DefaultDelay, w.debouncer.Delay())
}

func TestWatcher_DetectsFileChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	writeSnapshot(t, path, `{"teams": []}`)

	var changes atomic.Int32
	w, err := New(path,
		WithDebounceDuration(50*time.Millisecond),
		WithOnChange(func() { changes.Add(1) }),
	)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()
	require.ErrorIs(t, w.Start(), ErrAlreadyStarted)

	// Give watcher time to initialize
	time.Sleep(100 * time.Millisecond)
	writeSnapshot(t, path, `{"teams": [], "summary": {}}`)

	require.Eventually(t, func() bool { return changes.Load() >= 1 }, 2*time.Second, 20*time.Millisecond)
}

func TestWatcher_InitialLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.json")
	writeSnapshot(t, path, "[]")

	var changes atomic.Int32
	w, err := New(path, WithForcePoll(true), WithInitialLoad(true), WithOnChange(func() { changes.Add(1) }))
	require.NoError(t, err)
	require.NoError(t, w.Start())
	require.Equal(t, int32(1), changes.Load())
	w.Stop()

	missing, err := New(filepath.Join(dir, "absent.json"), WithForcePoll(true), WithInitialLoad(true), WithOnChange(func() { changes.Add(1) }))
	require.NoError(t, err)
	require.NoError(t, missing.Start())
	missing.Stop()
	require.Equal(t, int32(1), changes.Load())
}

func TestWatcher_IgnoresIdenticalRewrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	writeSnapshot(t, path, "[]")

	var changes atomic.Int32
	w, err := New(path, WithForcePoll(true), WithOnChange(func() { changes.Add(1) }))
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	writeSnapshot(t, path, "[]")
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))
	w.check()
	require.Zero(t, changes.Load())

	writeSnapshot(t, path, `[{"testClass": "A", "testMethod": "b"}]`)
	w.check()
	require.Equal(t, int32(1), changes.Load())
}

func TestWatcher_PollingFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	writeSnapshot(t, path, "[]")

	var changes atomic.Int32
	w, err := New(path,
		WithDebounceDuration(30*time.Millisecond),
		WithPollInterval(40*time.Millisecond),
		WithForcePoll(true),
		WithOnChange(func() { changes.Add(1) }),
	)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()
	require.True(t, w.IsPolling())

	time.Sleep(60 * time.Millisecond)
	writeSnapshot(t, path, `[{"testClass": "A", "testMethod": "b"}]`)

	require.Eventually(t, func() bool { return changes.Load() >= 1 }, 2*time.Second, 20*time.Millisecond)
}

func TestWatcher_PollingReportsRemoval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	writeSnapshot(t, path, "[]")

	var removed atomic.Bool
	w, err := New(path,
		WithPollInterval(30*time.Millisecond),
		WithForcePoll(true),
		WithOnError(func(err error) {
			if errors.Is(err, ErrFileRemoved) {
				removed.Store(true)
			}
		}),
	)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.Remove(path))
	require.Eventually(t, removed.Load, 2*time.Second, 20*time.Millisecond)
}

func TestWatcher_NoNotifyAfterStop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	writeSnapshot(t, path, "[]")

	var changes atomic.Int32
	w, err := New(path,
		WithDebounceDuration(time.Hour),
		WithForcePoll(true),
		WithPollInterval(time.Hour),
		WithOnChange(func() { changes.Add(1) }),
	)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	w.debouncer.Trigger(w.check)
	w.Stop()
	w.Stop()

	writeSnapshot(t, path, "[1]")
	w.check()

	require.False(t, w.debouncer.Pending())
	require.Zero(t, changes.Load())
}
