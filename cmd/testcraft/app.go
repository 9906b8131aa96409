package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/config"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/activity"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/dashboard"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/testmethod"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/view"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/snapshot"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/sqlite"
)

// app holds the services shared by the commands.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	db     *sqlite.DB

	apiKeys *sqlite.APIKeyRepository

	methods  *testmethod.Service
	dataset  *dashboard.Service
	views    *view.Service
	activity *activity.Service
}

func newApp(cfg config.Config, logger *slog.Logger) (*app, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := ensureDBDir(cfg.DB.Path); err != nil {
		return nil, fmt.Errorf("preparing database path: %w", err)
	}

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, err
	}

	methodRepo := sqlite.NewTestMethodRepository(db)
	activityRepo := sqlite.NewActivityRepository(db)
	expansionRepo := sqlite.NewExpansionRepository(db)

	methods := testmethod.NewService(methodRepo, activityRepo, logger)
	dataset := dashboard.NewService(methods, activityRepo, logger, dashboard.WithLimit(cfg.Dataset.Limit))

	return &app{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		apiKeys:  sqlite.NewAPIKeyRepository(db),
		methods:  methods,
		dataset:  dataset,
		views:    view.NewService(dataset, expansionRepo, activityRepo, logger, view.WithSearchDelay(cfg.Search.Debounce)),
		activity: activity.NewService(activityRepo, logger),
	}, nil
}

// Close closes every open view and the database.
func (a *app) Close(ctx context.Context) error {
	viewErr := a.views.CloseAll(ctx)
	return errors.Join(viewErr, a.db.Close())
}

// importResult reports one snapshot import.
type importResult struct {
	Path     string                   `json:"path"`
	Replaced int64                    `json:"replaced"`
	Ingest   *testmethod.IngestResult `json:"ingest"`
}

// importSnapshot ingests the methods of the snapshot at path. With replace,
// the snapshot becomes the complete contents of every repository it names,
// so that a rescan drops deleted tests. A snapshot that fails validation
// leaves the store untouched.
func (a *app) importSnapshot(ctx context.Context, path string, replace bool) (*importResult, error) {
	tree, err := snapshot.ReadFile(path)
	if err != nil {
		return nil, err
	}
	methods := snapshot.Flatten(tree)

	var ingest *testmethod.IngestResult
	if replace {
		ingest, err = a.methods.Replace(ctx, methods)
	} else {
		ingest, err = a.methods.Ingest(ctx, methods)
	}
	if err != nil {
		return nil, err
	}
	result := &importResult{Path: path, Replaced: ingest.Replaced, Ingest: ingest}

	entry := &activity.ActivityEntry{
		Actor:        activity.ActorFromContext(ctx),
		ActivityType: activity.TypeSnapshotImported,
		Summary:      fmt.Sprintf("imported %d test methods from %s", ingest.Accepted, filepath.Base(path)),
		Details:      path,
	}
	_, entry.DatasetVersion = a.dataset.Current()
	if err := a.activity.LogActivity(ctx, entry); err != nil {
		a.logger.Warn("failed to log activity", "type", entry.ActivityType, "error", err)
	}
	return result, nil
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
