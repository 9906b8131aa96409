package view

import (
	"context"

	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/activity"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/coverage"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/expansion"
)

// Dataset provides filtered coverage trees.
type Dataset interface {
	Current() (*coverage.Tree, uint64)
	Filter(f coverage.Filter) *coverage.Tree
	// FilterVersion returns the filtered tree with the version it was
	// derived from.
	FilterVersion(f coverage.Filter) (*coverage.Tree, uint64)
}

// ExpansionRepository persists expansion keys between openings of a view.
// Load returns repository.ErrNotFound for a view never saved.
type ExpansionRepository interface {
	Load(ctx context.Context, viewID string) (expansion.Keys, error)
	Save(ctx context.Context, viewID string, keys expansion.Keys) error
}

// ActivityRepository logs view activities.
type ActivityRepository interface {
	Log(ctx context.Context, entry *activity.ActivityEntry) error
}
