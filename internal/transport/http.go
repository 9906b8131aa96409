package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/activity"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/coverage"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/dashboard"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/expansion"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/search"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/testmethod"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/view"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/metrics"
)

// MethodService defines test method operations needed by the API.
type MethodService interface {
	Ingest(ctx context.Context, methods []coverage.Method) (*testmethod.IngestResult, error)
	Delete(ctx context.Context, repo string) (int64, error)
}

// DatasetService defines dataset operations needed by the API.
type DatasetService interface {
	Refresh(ctx context.Context) (*dashboard.Status, error)
	Status() dashboard.Status
	Query(ctx context.Context, f coverage.Filter, limit int) (*coverage.Tree, error)
}

// ViewService defines view operations needed by the API.
type ViewService interface {
	Open(ctx context.Context, req view.OpenRequest) (*view.Info, error)
	List() []view.Info
	Render(ctx context.Context, id string) (*view.Render, error)
	Close(ctx context.Context, id string) error
	Search(ctx context.Context, id, term string) (*search.State, error)
	FlushSearch(ctx context.Context, id string) (*search.State, error)
	ClearSearch(ctx context.Context, id string) error
	SetAnnotationMode(ctx context.Context, id, mode string) (coverage.AnnotationMode, error)
	ToggleTeam(ctx context.Context, id, teamName string) (bool, error)
	ToggleClass(ctx context.Context, id, teamName, repo, className string) (bool, error)
	SetAllExpanded(ctx context.Context, id string, expanded bool) (expansion.Keys, error)
}

// ActivityService defines activity operations needed by the API.
type ActivityService interface {
	GetRecentActivity(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

// Services contains all domain services served over HTTP.
type Services struct {
	Methods  MethodService
	Dataset  DatasetService
	Views    ViewService
	Activity ActivityService
}

// Config configures the HTTP router.
type Config struct {
	Services Services
	// Auth guards the REST routes when non-nil.
	Auth func(http.Handler) http.Handler
	// MCP is mounted at /mcp when non-nil. It authenticates on its own.
	MCP    http.Handler
	Logger *slog.Logger
}

// Server wires HTTP handlers.
type Server struct {
	svc    Services
	logger *slog.Logger
}

// NewServer creates an HTTP server router with middleware.
func NewServer(cfg Config) *chi.Mux {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	srv := &Server{svc: cfg.Services, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", srv.handleHealth)
	r.Handle("/metrics", metrics.Handler())
	if cfg.MCP != nil {
		r.Handle("/mcp", cfg.MCP)
		r.Handle("/mcp/*", cfg.MCP)
	}

	r.Group(func(r chi.Router) {
		if cfg.Auth != nil {
			r.Use(cfg.Auth)
		}

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/status", srv.handleStatus)
			r.Post("/refresh", srv.handleRefresh)
			r.Get("/activity", srv.handleActivity)
			r.Get("/test-methods/grouped", srv.handleGrouped)
			r.Post("/test-methods", srv.handleIngest)
			r.Delete("/test-methods/repositories/{repository}", srv.handleDeleteRepository)
		})

		r.Route("/views", func(r chi.Router) {
			r.Post("/", srv.handleOpenView)
			r.Get("/", srv.handleListViews)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", srv.handleRenderView)
				r.Delete("/", srv.handleCloseView)
				r.Put("/search", srv.handleSearch)
				r.Post("/search/flush", srv.handleFlushSearch)
				r.Delete("/search", srv.handleClearSearch)
				r.Put("/annotation-mode", srv.handleAnnotationMode)
				r.Post("/expansion/teams", srv.handleToggleTeam)
				r.Post("/expansion/classes", srv.handleToggleClass)
				r.Put("/expansion", srv.handleSetAllExpanded)
			})
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Dataset.Status())
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	status, err := s.svc.Dataset.Refresh(r.Context())
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleGrouped(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode, err := coverage.ParseAnnotationMode(q.Get("annotation"))
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	limit, err := intParam(r, "limit")
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}

	tree, err := s.svc.Dataset.Query(r.Context(), coverage.Filter{Search: q.Get("search"), Mode: mode}, limit)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var methods []coverage.Method
	if err := decodeJSON(w, r, &methods); err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	result, err := s.svc.Methods.Ingest(r.Context(), methods)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDeleteRepository(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.svc.Methods.Delete(r.Context(), chi.URLParam(r, "repository"))
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit")
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	offset, err := intParam(r, "offset")
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	opts := activity.ListActivityOptions{Limit: limit, Offset: offset}
	if viewID := r.URL.Query().Get("view"); viewID != "" {
		opts.ViewID = &viewID
	}
	if typ := r.URL.Query().Get("type"); typ != "" {
		t := activity.ActivityType(typ)
		opts.ActivityType = &t
	}

	entries, err := s.svc.Activity.GetRecentActivity(r.Context(), opts)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	if entries == nil {
		entries = []activity.ActivityEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

type openViewRequest struct {
	ID string `json:"id"`
}

func (s *Server) handleOpenView(w http.ResponseWriter, r *http.Request) {
	var req openViewRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeDomainError(w, s.logger, err)
			return
		}
	}
	info, err := s.svc.Views.Open(r.Context(), view.OpenRequest{ID: req.ID})
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListViews(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Views.List())
}

func (s *Server) handleRenderView(w http.ResponseWriter, r *http.Request) {
	render, err := s.svc.Views.Render(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, render)
}

func (s *Server) handleCloseView(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Views.Close(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type searchRequest struct {
	Term string `json:"term"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	state, err := s.svc.Views.Search(r.Context(), chi.URLParam(r, "id"), req.Term)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, state)
}

func (s *Server) handleFlushSearch(w http.ResponseWriter, r *http.Request) {
	state, err := s.svc.Views.FlushSearch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleClearSearch(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Views.ClearSearch(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type annotationModeRequest struct {
	Mode string `json:"mode"`
}

func (s *Server) handleAnnotationMode(w http.ResponseWriter, r *http.Request) {
	var req annotationModeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	mode, err := s.svc.Views.SetAnnotationMode(r.Context(), chi.URLParam(r, "id"), req.Mode)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]coverage.AnnotationMode{"mode": mode})
}

type toggleRequest struct {
	TeamName   string `json:"teamName"`
	Repository string `json:"repository"`
	ClassName  string `json:"className"`
}

func (s *Server) handleToggleTeam(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	expanded, err := s.svc.Views.ToggleTeam(r.Context(), chi.URLParam(r, "id"), req.TeamName)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"key":      expansion.TeamKey(req.TeamName),
		"expanded": expanded,
	})
}

func (s *Server) handleToggleClass(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	expanded, err := s.svc.Views.ToggleClass(r.Context(), chi.URLParam(r, "id"), req.TeamName, req.Repository, req.ClassName)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"key":      expansion.ClassKey(req.TeamName, req.Repository, req.ClassName),
		"expanded": expanded,
	})
}

type setAllExpandedRequest struct {
	Expanded bool `json:"expanded"`
}

func (s *Server) handleSetAllExpanded(w http.ResponseWriter, r *http.Request) {
	var req setAllExpandedRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	keys, err := s.svc.Views.SetAllExpanded(r.Context(), chi.URLParam(r, "id"), req.Expanded)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, keys)
}

// intParam parses an optional non-negative integer query parameter.
func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", ErrBadRequest, name)
	}
	return v, nil
}
