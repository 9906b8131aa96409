// Package watcher reports content changes of a snapshot file, using
// fsnotify with a polling fallback.
package watcher

import (
	"context"
	"crypto/sha256"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/debounce"
)

// DefaultPollInterval is the default polling interval for fallback mode.
const DefaultPollInterval = 2 * time.Second

// DefaultDebounceDuration coalesces the burst of events a single write produces.
const DefaultDebounceDuration = 200 * time.Millisecond

// Common errors.
var (
	ErrFileRemoved    = errors.New("snapshot file was removed")
	ErrPermission     = errors.New("permission denied")
	ErrAlreadyStarted = errors.New("watcher already started")
)

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounceDuration sets the debounce duration.
func WithDebounceDuration(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounceDuration = d
	}
}

// WithPollInterval sets the polling interval for fallback mode.
func WithPollInterval(d time.Duration) Option {
	return func(w *Watcher) {
		w.pollInterval = d
	}
}

// WithOnChange sets the callback invoked when the snapshot content changes.
func WithOnChange(fn func()) Option {
	return func(w *Watcher) {
		w.onChange = fn
	}
}

// WithOnError sets the callback invoked on errors.
func WithOnError(fn func(error)) Option {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// WithForcePoll forces polling mode even if fsnotify is available.
func WithForcePoll(force bool) Option {
	return func(w *Watcher) {
		w.forcePoll = force
	}
}

// WithInitialLoad makes Start report a snapshot that already exists.
func WithInitialLoad(load bool) Option {
	return func(w *Watcher) {
		w.initialLoad = load
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// Watcher follows one snapshot file. Events only count when the file's
// content digest differs from the last one seen, so a touch or an
// identical rewrite does not trigger a reimport.
type Watcher struct {
	path             string
	debounceDuration time.Duration
	pollInterval     time.Duration
	onChange         func()
	onError          func(error)
	forcePoll        bool
	initialLoad      bool
	logger           *slog.Logger

	debouncer *debounce.Debouncer

	mu        sync.Mutex
	digest    [sha256.Size]byte
	present   bool
	polling   bool
	started   bool
	fsWatcher *fsnotify.Watcher
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// New creates a watcher for the snapshot at path.
func New(path string, opts ...Option) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:             absPath,
		debounceDuration: DefaultDebounceDuration,
		pollInterval:     DefaultPollInterval,
		onChange:         func() {},
		onError:          func(error) {},
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = slog.New(slog.DiscardHandler)
	}
	w.debouncer = debounce.New(w.debounceDuration)
	return w, nil
}

// Start records the current snapshot digest and begins watching. With
// WithInitialLoad, an existing snapshot is reported once before Start
// returns.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return ErrAlreadyStarted
	}

	digest, err := w.read()
	switch {
	case err == nil:
		w.digest, w.present = digest, true
	case errors.Is(err, ErrPermission):
		w.mu.Unlock()
		return err
	default:
		// Not written yet.
		w.present = false
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.polling = w.forcePoll || envBool("TESTCRAFT_FORCE_POLL")
	if !w.polling {
		if fsw, err := w.watchDir(); err != nil {
			w.logger.Warn("fsnotify unavailable, polling snapshot", "error", err)
			w.polling = true
		} else {
			w.fsWatcher = fsw
			w.wg.Add(1)
			go w.runEvents(ctx, fsw)
		}
	}
	if w.polling {
		w.wg.Add(1)
		go w.runPolling(ctx)
	}
	w.started = true
	present := w.present
	w.mu.Unlock()

	w.logger.Info("watching snapshot", "path", w.path, "polling", w.polling)
	if w.initialLoad && present {
		w.onChange()
	}
	return nil
}

// Stop stops watching and waits for the watch loop to exit. A pending
// debounced change is dropped.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	w.cancel()
	if w.fsWatcher != nil {
		w.fsWatcher.Close()
		w.fsWatcher = nil
	}
	w.debouncer.Cancel()
	w.started = false
	w.mu.Unlock()

	w.wg.Wait()
}

// IsPolling reports whether the watcher fell back to polling.
func (w *Watcher) IsPolling() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.polling
}

func (w *Watcher) watchDir() (*fsnotify.Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// The directory, not the file: editors and exporters replace the
	// snapshot by rename.
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return nil, err
	}
	return fsw, nil
}

func (w *Watcher) runEvents(ctx context.Context, fsw *fsnotify.Watcher) {
	defer w.wg.Done()
	name := filepath.Base(w.path)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				w.debouncer.Trigger(w.check)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.onError(err)
		}
	}
}

func (w *Watcher) runPolling(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.check()
		}
	}
}

// check compares the snapshot against the last digest and reports the
// difference, if any.
func (w *Watcher) check() {
	digest, err := w.read()

	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	var changed, removed bool
	switch {
	case err == nil:
		changed = !w.present || digest != w.digest
		w.digest, w.present = digest, true
	case errors.Is(err, os.ErrNotExist):
		removed = w.present
		w.present = false
	}
	w.mu.Unlock()

	switch {
	case changed:
		w.logger.Debug("snapshot changed", "path", w.path)
		w.onChange()
	case removed:
		w.onError(ErrFileRemoved)
	case err != nil && !errors.Is(err, os.ErrNotExist):
		w.onError(err)
	}
}

func (w *Watcher) read() ([sha256.Size]byte, error) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		if os.IsPermission(err) {
			return [sha256.Size]byte{}, ErrPermission
		}
		return [sha256.Size]byte{}, err
	}
	return sha256.Sum256(data), nil
}

func envBool(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}
