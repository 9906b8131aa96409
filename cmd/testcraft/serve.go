package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/config"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/activity"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/mcp"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/transport"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/watcher"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

var (
	serveTransport string
	serveSnapshot  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard API",
	Long: `Serve the REST API and the MCP endpoint over HTTP, or MCP alone over stdio.

When a snapshot path is configured, the file is watched and every change is
imported and published as a new dataset version.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveTransport, "transport", "", "Transport: http or stdio (overrides config)")
	serveCmd.Flags().StringVar(&serveSnapshot, "watch", "", "Snapshot file to watch and import on change (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveTransport != "" {
		cfg.Transport.Mode = serveTransport
	}
	if serveSnapshot != "" {
		cfg.Snapshot.Path = serveSnapshot
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, closeLog := newLogger(cfg.Log.Level)
	defer closeLog()

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Dataset.RefreshOnStart {
		if _, err := a.dataset.Refresh(ctx); err != nil {
			return err
		}
	}

	if cfg.Views.IdleTimeout > 0 {
		go a.views.RunReaper(activity.WithActor(ctx, "view-reaper"), cfg.Views.ReapInterval(), cfg.Views.IdleTimeout)
	}

	if cfg.Snapshot.Path != "" {
		w, err := startSnapshotWatcher(ctx, a, cfg.Snapshot)
		if err != nil {
			return err
		}
		defer w.Stop()
	}

	mcpServer := mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			Methods:  a.methods,
			Dataset:  a.dataset,
			Views:    a.views,
			Activity: a.activity,
		},
		Resolver:      a.apiKeys,
		AuthEnabled:   cfg.Auth.Enabled,
		TransportMode: cfg.Transport.Mode,
		Version:       version,
		Logger:        mcpLogger(logger, cfg.Log),
	})

	if cfg.Transport.Mode == config.TransportStdio {
		return runStdioMode(ctx, logger, mcpServer)
	}
	return runHTTPMode(ctx, logger, a, mcpServer)
}

func runStdioMode(ctx context.Context, logger *slog.Logger, mcpServer *sdkmcp.Server) error {
	logger.Info("starting stdio transport", "auth", "disabled")

	// Run blocks until stdin closes or the context is canceled
	if err := mcpServer.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio server: %w", err)
	}
	return nil
}

func runHTTPMode(ctx context.Context, logger *slog.Logger, a *app, mcpServer *sdkmcp.Server) error {
	var auth func(http.Handler) http.Handler
	if a.cfg.Auth.Enabled {
		auth = transport.AuthMiddleware(a.apiKeys)
	}

	router := transport.NewServer(transport.Config{
		Services: transport.Services{
			Methods:  a.methods,
			Dataset:  a.dataset,
			Views:    a.views,
			Activity: a.activity,
		},
		Auth:   auth,
		MCP:    mcp.NewHTTPHandler(mcpServer, mcp.DefaultSessionTimeout),
		Logger: logger,
	})

	httpServer := &http.Server{
		Addr:              a.cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", httpServer.Addr, "auth", a.cfg.Auth.Enabled)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// startSnapshotWatcher imports the snapshot on every change and publishes
// the result as a new dataset version.
func startSnapshotWatcher(ctx context.Context, a *app, cfg config.SnapshotConfig) (*watcher.Watcher, error) {
	ctx = activity.WithActor(ctx, "snapshot-watcher")
	reload := func() {
		result, err := a.importSnapshot(ctx, cfg.Path, true)
		if err != nil {
			a.logger.Error("snapshot import failed", "path", cfg.Path, "error", err)
			return
		}
		if _, err := a.dataset.Refresh(ctx); err != nil {
			a.logger.Error("dataset refresh failed", "error", err)
			return
		}
		a.logger.Info("snapshot imported", "path", cfg.Path, "methods", result.Ingest.Accepted, "replaced", result.Replaced)
	}

	w, err := watcher.New(cfg.Path,
		watcher.WithDebounceDuration(cfg.Debounce),
		watcher.WithForcePoll(cfg.ForcePoll),
		watcher.WithOnChange(reload),
		watcher.WithInitialLoad(true),
		watcher.WithOnError(func(err error) {
			a.logger.Warn("snapshot watcher error", "path", cfg.Path, "error", err)
		}),
		watcher.WithLogger(a.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("creating snapshot watcher: %w", err)
	}
	if err := w.Start(); err != nil {
		return nil, fmt.Errorf("starting snapshot watcher: %w", err)
	}
	return w, nil
}

// mcpLogger keeps MCP traffic logging, which is emitted at debug level,
// off unless it is asked for.
func mcpLogger(logger *slog.Logger, cfg config.LogConfig) *slog.Logger {
	logger = logger.With("component", "mcp")
	if cfg.Traffic {
		return logger
	}
	return slog.New(&minLevelHandler{Handler: logger.Handler(), min: slog.LevelInfo})
}
