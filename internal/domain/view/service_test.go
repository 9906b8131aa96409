package view_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/activity"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/coverage"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/dashboard"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/expansion"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/view"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/repository"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func loadedDataset(t *testing.T) *dashboard.Service {
	t.Helper()
	source := &mocks.DatasetSource{}
	source.On("Grouped", mock.Anything, 0).Return(coverage.Group([]coverage.Method{
		{TeamName: "Identity", Repository: "auth", TestClass: "SessionTests", TestMethod: "LoginTest", Title: "login"},
		{TeamName: "Identity", Repository: "auth", TestClass: "SessionTests", TestMethod: "LogoutTest"},
		{TeamName: "Payments", Repository: "billing", TestClass: "RefundTest", TestMethod: "refunds"},
	}), nil)
	ds := dashboard.NewService(source, nil, nil)
	_, err := ds.Refresh(context.Background())
	require.NoError(t, err)
	return ds
}

func newService(t *testing.T, ds view.Dataset, delay time.Duration) *view.Service {
	t.Helper()
	svc := view.NewService(ds, nil, nil, nil, view.WithSearchDelay(delay))
	t.Cleanup(func() { _ = svc.CloseAll(context.Background()) })
	return svc
}

func TestViewService_OpenAndList(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, loadedDataset(t), time.Hour)

	generated, err := svc.Open(ctx, view.OpenRequest{})
	require.NoError(t, err)
	require.NotEmpty(t, generated.ID)

	named, err := svc.Open(ctx, view.OpenRequest{ID: "board-1"})
	require.NoError(t, err)
	again, err := svc.Open(ctx, view.OpenRequest{ID: "board-1"})
	require.NoError(t, err)
	require.Equal(t, named.OpenedAt, again.OpenedAt)

	require.Len(t, svc.List(), 2)
}

func TestViewService_DebouncedSearch(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, loadedDataset(t), 100*time.Millisecond)

	info, err := svc.Open(ctx, view.OpenRequest{})
	require.NoError(t, err)

	for _, term := range []string{"L", "Lo", "Login"} {
		_, err := svc.Search(ctx, info.ID, term)
		require.NoError(t, err)
	}

	r, err := svc.Render(ctx, info.ID)
	require.NoError(t, err)
	require.True(t, r.IsSearching)
	require.Equal(t, "Login", r.SearchTerm)
	require.Empty(t, r.AppliedSearchTerm)
	require.Equal(t, 3, r.Tree.Summary.TotalMethods)

	require.Eventually(t, func() bool {
		r, err := svc.Render(ctx, info.ID)
		return err == nil && !r.IsSearching
	}, time.Second, 5*time.Millisecond)

	// Only the method whose name contains the applied term survives.
	r, err = svc.Render(ctx, info.ID)
	require.NoError(t, err)
	require.Equal(t, "Login", r.AppliedSearchTerm)
	require.Len(t, r.Tree.Teams, 1)
	require.Len(t, r.Tree.Teams[0].Classes[0].Methods, 1)
	require.Equal(t, "LoginTest", r.Tree.Teams[0].Classes[0].Methods[0].TestMethod)
	require.False(t, r.NoMatches)
}

func TestViewService_FlushClearAndNoMatches(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, loadedDataset(t), time.Hour)

	info, err := svc.Open(ctx, view.OpenRequest{})
	require.NoError(t, err)

	_, err = svc.Search(ctx, info.ID, "zzz")
	require.NoError(t, err)
	st, err := svc.FlushSearch(ctx, info.ID)
	require.NoError(t, err)
	require.Equal(t, "zzz", st.Applied)

	r, err := svc.Render(ctx, info.ID)
	require.NoError(t, err)
	require.True(t, r.Loaded)
	require.True(t, r.NoMatches)
	require.Empty(t, r.Tree.Teams)

	require.NoError(t, svc.ClearSearch(ctx, info.ID))
	r, err = svc.Render(ctx, info.ID)
	require.NoError(t, err)
	require.False(t, r.NoMatches)
	require.Equal(t, 3, r.Tree.Summary.TotalMethods)
}

func TestViewService_AnnotationMode(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, loadedDataset(t), time.Hour)

	info, err := svc.Open(ctx, view.OpenRequest{})
	require.NoError(t, err)

	mode, err := svc.SetAnnotationMode(ctx, info.ID, "not-annotated")
	require.NoError(t, err)
	require.Equal(t, coverage.ModeNotAnnotated, mode)

	r, err := svc.Render(ctx, info.ID)
	require.NoError(t, err)
	require.Equal(t, 2, r.Tree.Summary.TotalMethods)
	require.Zero(t, r.Tree.Summary.OverallCoverageRate)

	_, err = svc.SetAnnotationMode(ctx, info.ID, "half")
	require.ErrorIs(t, err, view.ErrInvalidInput)
	require.ErrorIs(t, err, coverage.ErrInvalidAnnotationMode)
}

func TestViewService_ExpansionSurvivesFiltering(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, loadedDataset(t), time.Hour)

	info, err := svc.Open(ctx, view.OpenRequest{})
	require.NoError(t, err)

	expanded, err := svc.ToggleTeam(ctx, info.ID, "Identity")
	require.NoError(t, err)
	require.True(t, expanded)
	expanded, err = svc.ToggleClass(ctx, info.ID, "Identity", "auth", "SessionTests")
	require.NoError(t, err)
	require.True(t, expanded)

	_, err = svc.Search(ctx, info.ID, "refund")
	require.NoError(t, err)
	_, err = svc.FlushSearch(ctx, info.ID)
	require.NoError(t, err)
	require.NoError(t, svc.ClearSearch(ctx, info.ID))

	r, err := svc.Render(ctx, info.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"Identity"}, r.ExpandedTeams)
	require.Equal(t, []string{"Identity.auth.SessionTests"}, r.ExpandedClasses)

	_, err = svc.ToggleTeam(ctx, info.ID, "")
	require.ErrorIs(t, err, view.ErrInvalidInput)
}

func TestViewService_SetAllExpanded(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, loadedDataset(t), time.Hour)

	info, err := svc.Open(ctx, view.OpenRequest{})
	require.NoError(t, err)
	_, err = svc.SetAnnotationMode(ctx, info.ID, "annotated")
	require.NoError(t, err)

	keys, err := svc.SetAllExpanded(ctx, info.ID, true)
	require.NoError(t, err)
	require.Equal(t, expansion.Keys{
		Teams:   []string{"Identity"},
		Classes: []string{"Identity.auth.SessionTests"},
	}, keys)

	keys, err = svc.SetAllExpanded(ctx, info.ID, false)
	require.NoError(t, err)
	require.Empty(t, keys.Teams)
	require.Empty(t, keys.Classes)
}

func TestViewService_NotLoaded(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, dashboard.NewService(&mocks.DatasetSource{}, nil, nil), time.Hour)

	info, err := svc.Open(ctx, view.OpenRequest{})
	require.NoError(t, err)

	r, err := svc.Render(ctx, info.ID)
	require.NoError(t, err)
	require.False(t, r.Loaded)
	require.Nil(t, r.Tree)
	require.False(t, r.NoMatches)
}

func TestViewService_ClosePersistsAndRestores(t *testing.T) {
	ctx := context.Background()
	ds := loadedDataset(t)

	expansions := &mocks.ExpansionRepository{}
	activities := &mocks.ActivityRepository{}
	saved := expansion.Keys{Teams: []string{"Payments"}, Classes: []string{}}
	expansions.On("Load", ctx, "board").Return(nil, repository.ErrNotFound).Once()
	expansions.On("Save", ctx, "board", saved).Return(nil).Once()
	expansions.On("Load", ctx, "board").Return(saved, nil).Once()
	activities.On("Log", ctx, mock.MatchedBy(func(e *activity.ActivityEntry) bool {
		return e.ViewID != nil && *e.ViewID == "board" && e.DatasetVersion == 1
	})).Return(nil)

	svc := view.NewService(ds, expansions, activities, nil, view.WithSearchDelay(10*time.Millisecond))

	info, err := svc.Open(ctx, view.OpenRequest{ID: "board"})
	require.NoError(t, err)
	require.False(t, info.Restored)
	_, err = svc.ToggleTeam(ctx, "board", "Payments")
	require.NoError(t, err)
	_, err = svc.Search(ctx, "board", "refund")
	require.NoError(t, err)

	require.NoError(t, svc.Close(ctx, "board"))
	_, err = svc.Render(ctx, "board")
	require.ErrorIs(t, err, view.ErrViewNotFound)
	require.ErrorIs(t, svc.Close(ctx, "board"), view.ErrViewNotFound)

	info, err = svc.Open(ctx, view.OpenRequest{ID: "board"})
	require.NoError(t, err)
	require.True(t, info.Restored)

	time.Sleep(40 * time.Millisecond)
	r, err := svc.Render(ctx, "board")
	require.NoError(t, err)
	require.Empty(t, r.SearchTerm, "search state is not carried across a close")
	require.Equal(t, []string{"Payments"}, r.ExpandedTeams)

	// CloseAll persists again.
	expansions.On("Save", ctx, "board", saved).Return(nil).Once()
	require.NoError(t, svc.CloseAll(ctx))
	require.Empty(t, svc.List())

	expansions.AssertExpectations(t)
	activities.AssertNumberOfCalls(t, "Log", 4)
}

func TestViewService_CloseIdle(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, loadedDataset(t), time.Hour)

	_, err := svc.Open(ctx, view.OpenRequest{ID: "stale"})
	require.NoError(t, err)
	_, err = svc.Open(ctx, view.OpenRequest{ID: "busy"})
	require.NoError(t, err)

	require.Empty(t, svc.CloseIdle(ctx, time.Hour))

	time.Sleep(30 * time.Millisecond)
	_, err = svc.Render(ctx, "busy")
	require.NoError(t, err)

	require.Equal(t, []string{"stale"}, svc.CloseIdle(ctx, 20*time.Millisecond))
	infos := svc.List()
	require.Len(t, infos, 1)
	require.Equal(t, "busy", infos[0].ID)
}

func TestViewService_RunReaper(t *testing.T) {
	svc := newService(t, loadedDataset(t), time.Hour)

	_, err := svc.Open(context.Background(), view.OpenRequest{ID: "forgotten"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.RunReaper(ctx, 5*time.Millisecond, 10*time.Millisecond)
	}()

	require.Eventually(t, func() bool { return len(svc.List()) == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestViewService_ConcurrentOpenSharesView(t *testing.T) {
	ctx := context.Background()

	expansions := &mocks.ExpansionRepository{}
	expansions.On("Load", mock.Anything, "shared").Return(nil, repository.ErrNotFound)
	svc := view.NewService(loadedDataset(t), expansions, nil, nil, view.WithSearchDelay(time.Hour))
	t.Cleanup(func() {
		expansions.On("Save", mock.Anything, "shared", mock.Anything).Return(nil)
		_ = svc.CloseAll(ctx)
	})

	var wg sync.WaitGroup
	opened := make([]time.Time, 8)
	for i := range opened {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			info, err := svc.Open(ctx, view.OpenRequest{ID: "shared"})
			if err == nil {
				opened[i] = info.OpenedAt
			}
		}(i)
	}
	wg.Wait()

	require.Len(t, svc.List(), 1)
	for _, at := range opened {
		require.Equal(t, opened[0], at)
	}
}

type versionedDataset struct {
	tree *coverage.Tree
}

func (d versionedDataset) Current() (*coverage.Tree, uint64) { return d.tree, 1 }

func (d versionedDataset) Filter(f coverage.Filter) *coverage.Tree {
	return coverage.Recompute(d.tree, f.Predicate())
}

// FilterVersion reports a newer version than Current, as after a refresh
// landing between the two reads.
func (d versionedDataset) FilterVersion(f coverage.Filter) (*coverage.Tree, uint64) {
	return d.Filter(f), 2
}

func TestViewService_RenderVersionMatchesTree(t *testing.T) {
	ctx := context.Background()
	ds := versionedDataset{tree: coverage.Group([]coverage.Method{
		{TeamName: "Identity", Repository: "auth", TestClass: "SessionTests", TestMethod: "LoginTest"},
	})}
	svc := newService(t, ds, time.Hour)

	info, err := svc.Open(ctx, view.OpenRequest{})
	require.NoError(t, err)
	r, err := svc.Render(ctx, info.ID)
	require.NoError(t, err)
	require.Equal(t, uint64(2), r.DatasetVersion)
	require.Equal(t, 1, r.Tree.Summary.TotalMethods)
}
