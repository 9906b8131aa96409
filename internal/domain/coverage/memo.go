package coverage

import (
	"strconv"
	"sync"
	"time"

	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/metrics"
	"golang.org/x/sync/singleflight"
)

// DefaultMemoSize is the number of filtered trees a Memo keeps per version.
const DefaultMemoSize = 64

// Memo caches Recompute results keyed by a tree version and a filter key.
// Results are shared between callers and must be treated as read-only.
//
// Memo is safe for concurrent use. Concurrent misses for the same key run
// a single recompute.
type Memo struct {
	mu      sync.Mutex
	flight  singleflight.Group
	version uint64
	entries map[string]*Tree
	order   []string
	size    int
}

// NewMemo creates a Memo holding at most size entries (DefaultMemoSize if size <= 0).
func NewMemo(size int) *Memo {
	if size <= 0 {
		size = DefaultMemoSize
	}
	return &Memo{
		entries: make(map[string]*Tree),
		size:    size,
	}
}

// Get returns Recompute(raw, f.Predicate()), reusing a cached result when
// one exists for (version, f.Key()). A newer version than the last one seen
// drops every cached entry; an older one is recomputed without caching.
func (m *Memo) Get(version uint64, raw *Tree, f Filter) *Tree {
	if raw == nil {
		return nil
	}
	key := f.Key()

	m.mu.Lock()
	if version < m.version {
		m.mu.Unlock()
		return m.recompute(raw, f)
	}
	if version > m.version {
		m.version = version
		m.entries = make(map[string]*Tree)
		m.order = m.order[:0]
	}
	if tree, ok := m.entries[key]; ok {
		m.mu.Unlock()
		metrics.RecomputeTotal.WithLabelValues("hit").Inc()
		return tree
	}
	m.mu.Unlock()

	flightKey := strconv.FormatUint(version, 10) + "\x00" + key
	result, _, _ := m.flight.Do(flightKey, func() (interface{}, error) {
		tree := m.recompute(raw, f)
		m.store(version, key, tree)
		return tree, nil
	})
	return result.(*Tree)
}

func (m *Memo) recompute(raw *Tree, f Filter) *Tree {
	start := time.Now()
	tree := Recompute(raw, f.Predicate())
	metrics.RecomputeDuration.Observe(time.Since(start).Seconds())
	metrics.RecomputeTotal.WithLabelValues("miss").Inc()
	return tree
}

// Len returns the number of cached entries.
func (m *Memo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memo) store(version uint64, key string, tree *Tree) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// A newer version arrived while this recompute ran.
	if version != m.version {
		return
	}
	if _, ok := m.entries[key]; ok {
		return
	}
	if len(m.order) >= m.size {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.entries, oldest)
	}
	m.entries[key] = tree
	m.order = append(m.order, key)
}
