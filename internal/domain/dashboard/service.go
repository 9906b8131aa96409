package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/activity"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/coverage"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/metrics"
)

// Service owns the raw coverage tree served to dashboard views. The tree
// is replaced wholesale on Refresh and never modified in place; each
// replacement gets a new version.
type Service struct {
	source     Source
	activities ActivityRepository
	logger     *slog.Logger
	limit      int
	memoSize   int
	memo       *coverage.Memo

	refreshMu   sync.Mutex
	mu          sync.RWMutex
	raw         *coverage.Tree
	version     uint64
	refreshedAt time.Time
}

// NewService creates a new dashboard service.
func NewService(source Source, activities ActivityRepository, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Service{
		source:     source,
		activities: activities,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.memo = coverage.NewMemo(s.memoSize)
	return s
}

// Refresh reloads the raw tree from the source and publishes it under a
// new version.
func (s *Service) Refresh(ctx context.Context) (*Status, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	start := time.Now()
	tree, err := s.source.Grouped(ctx, s.limit)
	if err != nil {
		return nil, fmt.Errorf("loading dataset: %w", err)
	}
	if tree == nil {
		tree = coverage.Group(nil)
	}

	s.mu.Lock()
	s.raw = tree
	s.version++
	s.refreshedAt = time.Now().UTC()
	status := s.statusLocked()
	s.mu.Unlock()

	metrics.DatasetVersion.Set(float64(status.Version))
	s.logger.Info("dataset refreshed",
		"version", status.Version,
		"teams", status.Summary.TotalTeams,
		"methods", status.Summary.TotalMethods,
		"duration", time.Since(start))
	s.logActivity(ctx, status)

	return &status, nil
}

// Current returns the raw tree and its version. The tree is nil until the
// first Refresh.
func (s *Service) Current() (*coverage.Tree, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.raw, s.version
}

// Loaded reports whether a dataset has been loaded.
func (s *Service) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.raw != nil
}

// Status describes the loaded dataset.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statusLocked()
}

// Filter returns the loaded tree filtered by f, or nil before the first
// Refresh. Results are shared and must not be modified.
func (s *Service) Filter(f coverage.Filter) *coverage.Tree {
	tree, _ := s.FilterVersion(f)
	return tree
}

// FilterVersion is Filter together with the version of the raw tree the
// result was derived from.
func (s *Service) FilterVersion(f coverage.Filter) (*coverage.Tree, uint64) {
	raw, version := s.Current()
	return s.memo.Get(version, raw, f), version
}

// Query filters the dataset for a one-off request. A positive limit reads
// at most limit methods straight from the source instead of the loaded
// dataset.
func (s *Service) Query(ctx context.Context, f coverage.Filter, limit int) (*coverage.Tree, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", ErrInvalidInput)
	}
	if limit > 0 {
		tree, err := s.source.Grouped(ctx, limit)
		if err != nil {
			return nil, fmt.Errorf("loading dataset: %w", err)
		}
		if tree == nil {
			tree = coverage.Group(nil)
		}
		return coverage.Recompute(tree, f.Predicate()), nil
	}

	tree := s.Filter(f)
	if tree == nil {
		return nil, ErrNotLoaded
	}
	return tree, nil
}

func (s *Service) statusLocked() Status {
	st := Status{
		Loaded:      s.raw != nil,
		Version:     s.version,
		RefreshedAt: s.refreshedAt,
	}
	if s.raw != nil {
		st.Summary = s.raw.Summary
	}
	return st
}

func (s *Service) logActivity(ctx context.Context, status Status) {
	if s.activities == nil {
		return
	}
	entry := &activity.ActivityEntry{
		Actor:          activity.ActorFromContext(ctx),
		ActivityType:   activity.TypeDatasetRefreshed,
		Summary:        fmt.Sprintf("loaded %d test methods in %d teams", status.Summary.TotalMethods, status.Summary.TotalTeams),
		DatasetVersion: status.Version,
	}
	if raw, err := json.Marshal(status.Summary); err == nil {
		entry.Details = string(raw)
	}
	if err := s.activities.Log(ctx, entry); err != nil {
		s.logger.Warn("failed to log activity", "type", entry.ActivityType, "error", err)
	}
}
