package mocks

import (
	"context"

	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/activity"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/coverage"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/expansion"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/testmethod"
	"github.com/stretchr/testify/mock"
)

// TestMethodRepository is a mock for testmethod.Repository.
type TestMethodRepository struct {
	mock.Mock
}

func (m *TestMethodRepository) Upsert(ctx context.Context, methods []coverage.Method) error {
	args := m.Called(ctx, methods)
	return args.Error(0)
}

func (m *TestMethodRepository) List(ctx context.Context, opts testmethod.ListOptions) ([]coverage.Method, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]coverage.Method); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TestMethodRepository) DeleteByRepository(ctx context.Context, repository string) (int64, error) {
	args := m.Called(ctx, repository)
	return args.Get(0).(int64), args.Error(1)
}

func (m *TestMethodRepository) ReplaceRepositories(ctx context.Context, repositories []string, methods []coverage.Method) (int64, error) {
	args := m.Called(ctx, repositories, methods)
	return args.Get(0).(int64), args.Error(1)
}

// ActivityRepository is a mock for activity.Repository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, entry *activity.ActivityEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]activity.ActivityEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// ExpansionRepository is a mock for view.ExpansionRepository.
type ExpansionRepository struct {
	mock.Mock
}

func (m *ExpansionRepository) Load(ctx context.Context, viewID string) (expansion.Keys, error) {
	args := m.Called(ctx, viewID)
	if keys, ok := args.Get(0).(expansion.Keys); ok {
		return keys, args.Error(1)
	}
	return expansion.Keys{}, args.Error(1)
}

func (m *ExpansionRepository) Save(ctx context.Context, viewID string, keys expansion.Keys) error {
	args := m.Called(ctx, viewID, keys)
	return args.Error(0)
}

// DatasetSource is a mock for dashboard.Source.
type DatasetSource struct {
	mock.Mock
}

func (m *DatasetSource) Grouped(ctx context.Context, limit int) (*coverage.Tree, error) {
	args := m.Called(ctx, limit)
	if tree, ok := args.Get(0).(*coverage.Tree); ok {
		return tree, args.Error(1)
	}
	return nil, args.Error(1)
}
