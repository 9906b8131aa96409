package mcp

import (
	"context"
	"log/slog"

	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/activity"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/coverage"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/dashboard"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/expansion"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/search"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/testmethod"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/view"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// MethodService defines test method operations needed by MCP.
type MethodService interface {
	Ingest(ctx context.Context, methods []coverage.Method) (*testmethod.IngestResult, error)
}

// DatasetService defines dataset operations needed by MCP.
type DatasetService interface {
	Refresh(ctx context.Context) (*dashboard.Status, error)
	Query(ctx context.Context, f coverage.Filter, limit int) (*coverage.Tree, error)
}

// ViewService defines view operations needed by MCP.
type ViewService interface {
	Open(ctx context.Context, req view.OpenRequest) (*view.Info, error)
	Render(ctx context.Context, id string) (*view.Render, error)
	Close(ctx context.Context, id string) error
	Search(ctx context.Context, id, term string) (*search.State, error)
	FlushSearch(ctx context.Context, id string) (*search.State, error)
	SetAnnotationMode(ctx context.Context, id, mode string) (coverage.AnnotationMode, error)
	ToggleTeam(ctx context.Context, id, teamName string) (bool, error)
	ToggleClass(ctx context.Context, id, teamName, repo, className string) (bool, error)
	SetAllExpanded(ctx context.Context, id string, expanded bool) (expansion.Keys, error)
}

// ActivityService defines activity operations needed by MCP.
type ActivityService interface {
	GetRecentActivity(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

// Services contains all domain services needed by MCP.
type Services struct {
	Methods  MethodService
	Dataset  DatasetService
	Views    ViewService
	Activity ActivityService
}

// Config contains server configuration.
type Config struct {
	Services      Services
	Resolver      ClientResolver
	AuthEnabled   bool
	TransportMode string // "stdio" or "http"
	Version       string
	Logger        *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "testcraft",
		Version: cfg.Version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	// Stdio mode: always disable auth (local use only)
	if cfg.TransportMode != "stdio" && cfg.AuthEnabled {
		server.AddReceivingMiddleware(authMiddleware(cfg.Resolver))
	} else {
		server.AddReceivingMiddleware(noAuthMiddleware(defaultActor))
	}
	server.AddReceivingMiddleware(sessionMiddleware())
	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, cfg.Services, newSessionViews(cfg.Services.Views, cfg.Logger))

	return server
}
