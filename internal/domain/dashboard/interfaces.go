package dashboard

import (
	"context"

	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/activity"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/coverage"
)

// Source loads the raw coverage tree.
type Source interface {
	Grouped(ctx context.Context, limit int) (*coverage.Tree, error)
}

// ActivityRepository logs dataset activities.
type ActivityRepository interface {
	Log(ctx context.Context, entry *activity.ActivityEntry) error
}
