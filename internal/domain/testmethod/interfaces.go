package testmethod

import (
	"context"

	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/activity"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/coverage"
)

// Repository provides persistence for test methods.
type Repository interface {
	// Upsert stores methods keyed by (repository, test class, test method)
	// and sets each method's ID.
	Upsert(ctx context.Context, methods []coverage.Method) error
	List(ctx context.Context, opts ListOptions) ([]coverage.Method, error)
	DeleteByRepository(ctx context.Context, repository string) (int64, error)
	// ReplaceRepositories deletes the methods of repositories and upserts
	// methods atomically, returning how many stored methods were deleted.
	ReplaceRepositories(ctx context.Context, repositories []string, methods []coverage.Method) (int64, error)
}

// ActivityRepository logs test method activities.
type ActivityRepository interface {
	Log(ctx context.Context, entry *activity.ActivityEntry) error
}
