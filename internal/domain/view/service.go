package view

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/debounce"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/activity"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/coverage"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/expansion"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/search"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/metrics"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/repository"
)

// Service manages open dashboard views. Each view owns its search term,
// annotation mode and expansion state; the dataset is shared.
type Service struct {
	dataset     Dataset
	expansions  ExpansionRepository
	activities  ActivityRepository
	logger      *slog.Logger
	searchDelay time.Duration

	mu    sync.RWMutex
	views map[string]*view
}

type view struct {
	id        string
	openedAt  time.Time
	restored  bool
	search    *search.Controller
	expansion *expansion.Store

	mu           sync.Mutex
	mode         coverage.AnnotationMode
	lastActivity time.Time
}

// NewService creates a new view service. expansions and activities may be nil.
func NewService(dataset Dataset, expansions ExpansionRepository, activities ActivityRepository, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Service{
		dataset:     dataset,
		expansions:  expansions,
		activities:  activities,
		logger:      logger,
		searchDelay: debounce.DefaultDelay,
		views:       make(map[string]*view),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open opens a view, or returns the already open view with the requested ID.
func (s *Service) Open(ctx context.Context, req OpenRequest) (*Info, error) {
	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.NewString()
	}

	if v, ok := s.lookup(id); ok {
		v.touch()
		info := v.info()
		return &info, nil
	}

	// Saved state is loaded without holding the lock; a concurrent Open of
	// the same ID may win the insert below.
	var saved *expansion.Keys
	if s.expansions != nil {
		keys, err := s.expansions.Load(ctx, id)
		switch {
		case err == nil:
			saved = &keys
		case errors.Is(err, repository.ErrNotFound):
		default:
			return nil, fmt.Errorf("loading expansion state: %w", err)
		}
	}

	s.mu.Lock()
	if v, ok := s.views[id]; ok {
		s.mu.Unlock()
		info := v.info()
		return &info, nil
	}
	now := time.Now().UTC()
	v := &view{
		id:           id,
		openedAt:     now,
		expansion:    expansion.NewStore(),
		mode:         coverage.ModeAll,
		lastActivity: now,
	}
	if saved != nil {
		v.expansion.Restore(*saved)
		v.restored = true
	}
	v.search = search.New(
		search.WithDelay(s.searchDelay),
		search.WithOnApply(func(term string) { s.applied(v, term) }),
	)
	s.views[id] = v
	s.mu.Unlock()

	metrics.OpenViews.Inc()
	s.logger.Info("view opened", "view", id, "restored", v.restored)
	s.logActivity(ctx, id, activity.TypeViewOpened, fmt.Sprintf("opened view %s", id))

	info := v.info()
	return &info, nil
}

// List returns the open views ordered by ID.
func (s *Service) List() []Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	infos := make([]Info, 0, len(s.views))
	for _, v := range s.views {
		infos = append(infos, v.info())
	}
	slices.SortFunc(infos, func(a, b Info) int { return strings.Compare(a.ID, b.ID) })
	return infos
}

// Search records a keystroke. The term is applied after the quiet period.
func (s *Service) Search(ctx context.Context, id, term string) (*search.State, error) {
	v, err := s.get(id)
	if err != nil {
		return nil, err
	}
	v.search.Type(term)
	v.touch()
	st := v.search.State()
	return &st, nil
}

// FlushSearch applies a pending search term immediately.
func (s *Service) FlushSearch(ctx context.Context, id string) (*search.State, error) {
	v, err := s.get(id)
	if err != nil {
		return nil, err
	}
	v.search.Flush()
	v.touch()
	st := v.search.State()
	return &st, nil
}

// ClearSearch drops both the typed and the applied search term.
func (s *Service) ClearSearch(ctx context.Context, id string) error {
	v, err := s.get(id)
	if err != nil {
		return err
	}
	v.search.Clear()
	v.touch()
	return nil
}

// SetAnnotationMode changes the annotation filter. It applies immediately.
func (s *Service) SetAnnotationMode(ctx context.Context, id, mode string) (coverage.AnnotationMode, error) {
	parsed, err := coverage.ParseAnnotationMode(mode)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	v, err := s.get(id)
	if err != nil {
		return "", err
	}
	v.mu.Lock()
	v.mode = parsed
	v.mu.Unlock()
	v.touch()
	return parsed, nil
}

// ToggleTeam flips the expansion of a team and returns the new state.
func (s *Service) ToggleTeam(ctx context.Context, id, teamName string) (bool, error) {
	if teamName == "" {
		return false, fmt.Errorf("%w: team name is required", ErrInvalidInput)
	}
	v, err := s.get(id)
	if err != nil {
		return false, err
	}
	v.touch()
	return v.expansion.ToggleTeam(expansion.TeamKey(teamName)), nil
}

// ToggleClass flips the expansion of a class and returns the new state.
func (s *Service) ToggleClass(ctx context.Context, id, teamName, repo, className string) (bool, error) {
	if teamName == "" || className == "" {
		return false, fmt.Errorf("%w: team and class name are required", ErrInvalidInput)
	}
	v, err := s.get(id)
	if err != nil {
		return false, err
	}
	v.touch()
	return v.expansion.ToggleClass(expansion.ClassKey(teamName, repo, className)), nil
}

// SetAllExpanded expands every node currently visible in the view, or
// collapses everything.
func (s *Service) SetAllExpanded(ctx context.Context, id string, expanded bool) (expansion.Keys, error) {
	v, err := s.get(id)
	if err != nil {
		return expansion.Keys{}, err
	}
	if expanded {
		v.expansion.ExpandAll(s.dataset.Filter(v.filter()))
	} else {
		v.expansion.CollapseAll()
	}
	v.touch()
	return v.expansion.Keys(), nil
}

// Render returns the view's filtered tree together with its UI state.
func (s *Service) Render(ctx context.Context, id string) (*Render, error) {
	v, err := s.get(id)
	if err != nil {
		return nil, err
	}

	v.touch()

	st := v.search.State()
	v.mu.Lock()
	mode := v.mode
	v.mu.Unlock()

	tree, version := s.dataset.FilterVersion(coverage.Filter{Search: st.Applied, Mode: mode})
	keys := v.expansion.Keys()

	return &Render{
		ViewID:            v.id,
		Loaded:            tree != nil,
		DatasetVersion:    version,
		Tree:              tree,
		NoMatches:         tree != nil && len(tree.Teams) == 0,
		SearchTerm:        st.Raw,
		AppliedSearchTerm: st.Applied,
		IsSearching:       st.Searching,
		AnnotationMode:    mode,
		ExpandedTeams:     keys.Teams,
		ExpandedClasses:   keys.Classes,
	}, nil
}

// Close cancels the view's pending search, persists its expansion state
// and forgets it.
func (s *Service) Close(ctx context.Context, id string) error {
	s.mu.Lock()
	v, ok := s.views[id]
	if ok {
		delete(s.views, id)
	}
	s.mu.Unlock()
	if !ok {
		return ErrViewNotFound
	}

	v.search.Close()
	metrics.OpenViews.Dec()

	var saveErr error
	if s.expansions != nil {
		if err := s.expansions.Save(ctx, id, v.expansion.Keys()); err != nil {
			saveErr = fmt.Errorf("saving expansion state: %w", err)
		}
	}

	s.logger.Info("view closed", "view", id)
	s.logActivity(ctx, id, activity.TypeViewClosed, fmt.Sprintf("closed view %s", id))
	return saveErr
}

// CloseAll closes every open view.
func (s *Service) CloseAll(ctx context.Context) error {
	s.mu.RLock()
	ids := make([]string, 0, len(s.views))
	for id := range s.views {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	var errs []error
	for _, id := range ids {
		if err := s.Close(ctx, id); err != nil && !errors.Is(err, ErrViewNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CloseIdle closes every view without activity for longer than maxIdle and
// returns the IDs it closed.
func (s *Service) CloseIdle(ctx context.Context, maxIdle time.Duration) []string {
	cutoff := time.Now().UTC().Add(-maxIdle)

	s.mu.RLock()
	var idle []string
	for id, v := range s.views {
		if v.idleSince(cutoff) {
			idle = append(idle, id)
		}
	}
	s.mu.RUnlock()

	slices.Sort(idle)
	closed := idle[:0]
	for _, id := range idle {
		err := s.Close(ctx, id)
		if errors.Is(err, ErrViewNotFound) {
			continue
		}
		if err != nil {
			s.logger.Warn("failed to close idle view", "view", id, "error", err)
		}
		closed = append(closed, id)
	}
	if len(closed) > 0 {
		s.logger.Info("idle views closed", "count", len(closed), "max_idle", maxIdle)
	}
	return closed
}

// RunReaper closes idle views every interval until ctx is done.
func (s *Service) RunReaper(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CloseIdle(context.WithoutCancel(ctx), maxIdle)
		}
	}
}

func (s *Service) lookup(id string) (*view, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.views[id]
	return v, ok
}

func (s *Service) get(id string) (*view, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: view id is required", ErrInvalidInput)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.views[id]
	if !ok {
		return nil, ErrViewNotFound
	}
	return v, nil
}

// applied runs on the search timer once a term settles; it warms the
// filtered tree the next Render will read.
func (s *Service) applied(v *view, term string) {
	metrics.SearchApplied.Inc()
	tree := s.dataset.Filter(coverage.Filter{Search: term, Mode: v.currentMode()})
	s.logger.Debug("search applied", "view", v.id, "term", term, "methods", tree.MethodCount())
}

func (s *Service) logActivity(ctx context.Context, viewID string, typ activity.ActivityType, summary string) {
	if s.activities == nil {
		return
	}
	_, version := s.dataset.Current()
	entry := &activity.ActivityEntry{
		ViewID:         &viewID,
		Actor:          activity.ActorFromContext(ctx),
		ActivityType:   typ,
		Summary:        summary,
		DatasetVersion: version,
	}
	if err := s.activities.Log(ctx, entry); err != nil {
		s.logger.Warn("failed to log activity", "type", typ, "error", err)
	}
}

func (v *view) filter() coverage.Filter {
	return coverage.Filter{Search: v.search.State().Applied, Mode: v.currentMode()}
}

func (v *view) currentMode() coverage.AnnotationMode {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mode
}

func (v *view) idleSince(cutoff time.Time) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastActivity.Before(cutoff)
}

func (v *view) touch() {
	v.mu.Lock()
	v.lastActivity = time.Now().UTC()
	v.mu.Unlock()
}

func (v *view) info() Info {
	v.mu.Lock()
	defer v.mu.Unlock()
	return Info{
		ID:           v.id,
		OpenedAt:     v.openedAt,
		LastActivity: v.lastActivity,
		Restored:     v.restored,
	}
}
