package mcp

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/activity"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/view"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// sessionViews closes the views an MCP session opened once that session
// ends. A view opened by several sessions closes with the last of them.
type sessionViews struct {
	views  ViewService
	logger *slog.Logger

	mu        sync.Mutex
	bySession map[*sdkmcp.ServerSession]map[string]struct{}
	owners    map[string]int
}

func newSessionViews(views ViewService, logger *slog.Logger) *sessionViews {
	return &sessionViews{
		views:     views,
		logger:    logger,
		bySession: make(map[*sdkmcp.ServerSession]map[string]struct{}),
		owners:    make(map[string]int),
	}
}

// track records that ss opened the view id.
func (s *sessionViews) track(ctx context.Context, ss *sdkmcp.ServerSession, id string) {
	if ss == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, ok := s.bySession[ss]
	if !ok {
		ids = make(map[string]struct{})
		s.bySession[ss] = ids
		actor := activity.ActorFromContext(ctx)
		go func() {
			_ = ss.Wait()
			s.release(ss, actor)
		}()
	}
	if _, seen := ids[id]; !seen {
		ids[id] = struct{}{}
		s.owners[id]++
	}
}

// forget drops a view closed explicitly.
func (s *sessionViews) forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.owners, id)
	for _, ids := range s.bySession {
		delete(ids, id)
	}
}

func (s *sessionViews) release(ss *sdkmcp.ServerSession, actor string) {
	s.mu.Lock()
	ids := s.bySession[ss]
	delete(s.bySession, ss)
	var orphaned []string
	for id := range ids {
		s.owners[id]--
		if s.owners[id] <= 0 {
			delete(s.owners, id)
			orphaned = append(orphaned, id)
		}
	}
	s.mu.Unlock()

	ctx := activity.WithActor(context.Background(), actor)
	for _, id := range orphaned {
		err := s.views.Close(ctx, id)
		switch {
		case err == nil:
			s.logger.Info("view closed with its session", "view", id)
		case errors.Is(err, view.ErrViewNotFound):
		default:
			s.logger.Warn("failed to close view of ended session", "view", id, "error", err)
		}
	}
}
