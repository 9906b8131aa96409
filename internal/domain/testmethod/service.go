package testmethod

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/goccy/go-json"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/activity"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/coverage"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/metrics"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/repository"
)

// Service handles test method business logic.
type Service struct {
	methods    Repository
	activities ActivityRepository
	logger     *slog.Logger
}

// NewService creates a new test method service.
func NewService(methods Repository, activities ActivityRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		methods:    methods,
		activities: activities,
		logger:     logger,
	}
}

// Ingest validates and stores a batch of methods. The batch is rejected as
// a whole if any method is invalid.
func (s *Service) Ingest(ctx context.Context, methods []coverage.Method) (*IngestResult, error) {
	batch, result, err := prepareBatch(methods)
	if err != nil {
		return nil, err
	}
	if err := s.methods.Upsert(ctx, batch); err != nil {
		return nil, fmt.Errorf("storing test methods: %w", err)
	}
	s.ingested(ctx, methods, batch, result)
	return result, nil
}

// Replace stores a batch as the complete contents of every repository it
// names: stored methods of those repositories that are missing from the
// batch are removed. The batch is validated before anything is deleted and
// the store applies the change atomically.
func (s *Service) Replace(ctx context.Context, methods []coverage.Method) (*IngestResult, error) {
	batch, result, err := prepareBatch(methods)
	if err != nil {
		return nil, err
	}
	replaced, err := s.methods.ReplaceRepositories(ctx, result.Repositories, batch)
	if err != nil {
		return nil, fmt.Errorf("replacing test methods: %w", err)
	}
	result.Replaced = replaced
	s.ingested(ctx, methods, batch, result)
	return result, nil
}

func prepareBatch(methods []coverage.Method) ([]coverage.Method, *IngestResult, error) {
	if len(methods) == 0 {
		return nil, nil, fmt.Errorf("%w: no test methods", ErrInvalidInput)
	}

	batch := make([]coverage.Method, len(methods))
	result := &IngestResult{Accepted: len(methods)}
	for i, m := range methods {
		m = Normalize(m)
		if err := ValidateMethod(m); err != nil {
			return nil, nil, fmt.Errorf("method %d: %w", i, err)
		}
		if coverage.IsAnnotated(m) {
			result.Annotated++
		}
		if !slices.Contains(result.Repositories, m.Repository) {
			result.Repositories = append(result.Repositories, m.Repository)
		}
		batch[i] = m
	}
	return batch, result, nil
}

func (s *Service) ingested(ctx context.Context, methods, batch []coverage.Method, result *IngestResult) {
	for i := range batch {
		methods[i].ID = batch[i].ID
	}
	metrics.IngestedMethods.Add(float64(result.Accepted))

	s.logger.Info("test methods ingested",
		"accepted", result.Accepted,
		"annotated", result.Annotated,
		"replaced", result.Replaced,
		"repositories", result.Repositories)
	s.logActivity(ctx, activity.TypeMethodsIngested,
		fmt.Sprintf("ingested %d test methods from %s", result.Accepted, strings.Join(result.Repositories, ", ")),
		result)
}

// List returns stored methods.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]coverage.Method, error) {
	if opts.Limit < 0 || opts.Offset < 0 {
		return nil, fmt.Errorf("%w: limit and offset must not be negative", ErrInvalidInput)
	}
	methods, err := s.methods.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("listing test methods: %w", err)
	}
	return methods, nil
}

// Grouped returns the stored methods as a raw coverage tree. A positive
// limit caps the number of methods read.
func (s *Service) Grouped(ctx context.Context, limit int) (*coverage.Tree, error) {
	methods, err := s.List(ctx, ListOptions{Limit: limit})
	if err != nil {
		return nil, err
	}
	return coverage.Group(methods), nil
}

// Delete removes every method of a repository and returns how many were removed.
func (s *Service) Delete(ctx context.Context, repo string) (int64, error) {
	repo = strings.TrimSpace(repo)
	if repo == "" {
		return 0, fmt.Errorf("%w: repository is required", ErrInvalidInput)
	}
	n, err := s.methods.DeleteByRepository(ctx, repo)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrRepositoryNotFound
		}
		return 0, fmt.Errorf("deleting test methods: %w", err)
	}

	s.logger.Info("repository purged", "repository", repo, "deleted", n)
	s.logActivity(ctx, activity.TypeRepositoryPurged,
		fmt.Sprintf("deleted %d test methods of %s", n, repo),
		map[string]any{"repository": repo, "deleted": n})
	return n, nil
}

func (s *Service) logActivity(ctx context.Context, typ activity.ActivityType, summary string, details any) {
	if s.activities == nil {
		return
	}
	entry := &activity.ActivityEntry{
		Actor:        activity.ActorFromContext(ctx),
		ActivityType: typ,
		Summary:      summary,
	}
	if raw, err := json.Marshal(details); err == nil {
		entry.Details = string(raw)
	}
	if err := s.activities.Log(ctx, entry); err != nil {
		s.logger.Warn("failed to log activity", "type", typ, "error", err)
	}
}
