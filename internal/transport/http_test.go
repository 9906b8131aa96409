package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/activity"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/coverage"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/dashboard"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/testmethod"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/view"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/sqlite"
	"github.com/stretchr/testify/require"
)

type testStack struct {
	db     *sqlite.DB
	views  *view.Service
	server *httptest.Server
}

func newTestStack(t *testing.T, withAuth bool) *testStack {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { db.Close() })

	methodRepo := sqlite.NewTestMethodRepository(db)
	activityRepo := sqlite.NewActivityRepository(db)
	expansionRepo := sqlite.NewExpansionRepository(db)

	methods := testmethod.NewService(methodRepo, activityRepo, nil)
	dataset := dashboard.NewService(methods, activityRepo, nil)
	views := view.NewService(dataset, expansionRepo, activityRepo, nil, view.WithSearchDelay(time.Hour))
	t.Cleanup(func() { _ = views.CloseAll(context.Background()) })

	cfg := Config{
		Services: Services{
			Methods:  methods,
			Dataset:  dataset,
			Views:    views,
			Activity: activity.NewService(activityRepo, nil),
		},
	}
	if withAuth {
		keys := sqlite.NewAPIKeyRepository(db)
		require.NoError(t, keys.Add(context.Background(), "secret", "ci-scanner", "test key"))
		cfg.Auth = AuthMiddleware(keys)
	}

	server := httptest.NewServer(NewServer(cfg))
	t.Cleanup(server.Close)
	return &testStack{db: db, views: views, server: server}
}

func (s *testStack) do(t *testing.T, method, path string, body any, out any) int {
	t.Helper()
	return s.doWithToken(t, method, path, "", body, out)
}

func (s *testStack) doWithToken(t *testing.T, method, path, token string, body any, out any) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func sampleMethods() []coverage.Method {
	return []coverage.Method{
		{TeamName: "Identity", Repository: "auth", TestClass: "SessionTests", TestMethod: "LoginTest", Title: "login works"},
		{TeamName: "Identity", Repository: "auth", TestClass: "SessionTests", TestMethod: "LogoutTest"},
		{TeamName: "Payments", Repository: "billing", TestClass: "RefundTest", TestMethod: "refunds"},
	}
}

func TestHTTPServer_Health(t *testing.T) {
	stack := newTestStack(t, false)

	resp, err := http.Get(stack.server.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(stack.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "testcraft_open_views")
}

func TestHTTPServer_GroupedLifecycle(t *testing.T) {
	stack := newTestStack(t, false)

	var errBody ErrorBody
	code := stack.do(t, http.MethodGet, "/dashboard/test-methods/grouped", nil, &errBody)
	require.Equal(t, http.StatusConflict, code)
	require.Equal(t, codeNotLoaded, errBody.Error.Code)

	var ingest testmethod.IngestResult
	code = stack.do(t, http.MethodPost, "/dashboard/test-methods", sampleMethods(), &ingest)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, 3, ingest.Accepted)
	require.Equal(t, 1, ingest.Annotated)

	var status dashboard.Status
	code = stack.do(t, http.MethodPost, "/dashboard/refresh", nil, &status)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, uint64(1), status.Version)
	require.Equal(t, 3, status.Summary.TotalMethods)

	// Annotated-only filtering over HTTP.
	var tree coverage.Tree
	code = stack.do(t, http.MethodGet, "/dashboard/test-methods/grouped?annotation=annotated", nil, &tree)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, tree.Teams, 1)
	require.Equal(t, "Identity", tree.Teams[0].TeamName)
	require.InDelta(t, 100.0, tree.Summary.OverallCoverageRate, 1e-9)

	// A limited read bypasses the loaded dataset.
	code = stack.do(t, http.MethodGet, "/dashboard/test-methods/grouped?limit=2&search=logout", nil, &tree)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, 1, tree.Summary.TotalMethods)

	code = stack.do(t, http.MethodGet, "/dashboard/test-methods/grouped?annotation=half", nil, &errBody)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, codeInvalidInput, errBody.Error.Code)

	code = stack.do(t, http.MethodGet, "/dashboard/test-methods/grouped?limit=many", nil, &errBody)
	require.Equal(t, http.StatusBadRequest, code)

	var deleted map[string]int64
	code = stack.do(t, http.MethodDelete, "/dashboard/test-methods/repositories/billing", nil, &deleted)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, int64(1), deleted["deleted"])

	code = stack.do(t, http.MethodDelete, "/dashboard/test-methods/repositories/billing", nil, &errBody)
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, codeNotFound, errBody.Error.Code)
}

func TestHTTPServer_IngestValidation(t *testing.T) {
	stack := newTestStack(t, false)

	var errBody ErrorBody
	code := stack.do(t, http.MethodPost, "/dashboard/test-methods", []coverage.Method{{TestClass: "C"}}, &errBody)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, codeInvalidInput, errBody.Error.Code)

	code = stack.do(t, http.MethodPost, "/dashboard/test-methods", map[string]string{"not": "a list"}, &errBody)
	require.Equal(t, http.StatusBadRequest, code)
}

func TestHTTPServer_ViewLifecycle(t *testing.T) {
	stack := newTestStack(t, false)
	require.Equal(t, http.StatusOK, stack.do(t, http.MethodPost, "/dashboard/test-methods", sampleMethods(), nil))
	require.Equal(t, http.StatusOK, stack.do(t, http.MethodPost, "/dashboard/refresh", nil, nil))

	var info view.Info
	code := stack.do(t, http.MethodPost, "/views", map[string]string{"id": "board"}, &info)
	require.Equal(t, http.StatusCreated, code)
	require.Equal(t, "board", info.ID)

	var state map[string]any
	code = stack.do(t, http.MethodPut, "/views/board/search", map[string]string{"term": "Login"}, &state)
	require.Equal(t, http.StatusAccepted, code)
	require.Equal(t, true, state["isSearching"])

	var render view.Render
	require.Equal(t, http.StatusOK, stack.do(t, http.MethodGet, "/views/board", nil, &render))
	require.Equal(t, 3, render.Tree.Summary.TotalMethods, "the typed term is not applied before the quiet period")

	code = stack.do(t, http.MethodPost, "/views/board/search/flush", nil, &state)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "Login", state["appliedSearchTerm"])

	// Search by method name over HTTP.
	require.Equal(t, http.StatusOK, stack.do(t, http.MethodGet, "/views/board", nil, &render))
	require.Len(t, render.Tree.Teams, 1)
	require.Equal(t, "LoginTest", render.Tree.Teams[0].Classes[0].Methods[0].TestMethod)

	var toggled map[string]any
	code = stack.do(t, http.MethodPost, "/views/board/expansion/teams", map[string]string{"teamName": "Identity"}, &toggled)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, true, toggled["expanded"])

	code = stack.do(t, http.MethodPost, "/views/board/expansion/classes", map[string]string{
		"teamName": "Identity", "repository": "auth", "className": "SessionTests",
	}, &toggled)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "Identity.auth.SessionTests", toggled["key"])

	require.Equal(t, http.StatusNoContent, stack.do(t, http.MethodDelete, "/views/board/search", nil, nil))

	var mode map[string]string
	code = stack.do(t, http.MethodPut, "/views/board/annotation-mode", map[string]string{"mode": "not-annotated"}, &mode)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "not-annotated", mode["mode"])

	require.Equal(t, http.StatusOK, stack.do(t, http.MethodGet, "/views/board", nil, &render))
	require.Equal(t, 2, render.Tree.Summary.TotalMethods)
	require.Equal(t, []string{"Identity"}, render.ExpandedTeams)

	var keys map[string][]string
	code = stack.do(t, http.MethodPut, "/views/board/expansion", map[string]bool{"expanded": true}, &keys)
	require.Equal(t, http.StatusOK, code)
	require.ElementsMatch(t, []string{"Identity", "Payments"}, keys["teams"])

	var views []view.Info
	require.Equal(t, http.StatusOK, stack.do(t, http.MethodGet, "/views", nil, &views))
	require.Len(t, views, 1)

	require.Equal(t, http.StatusNoContent, stack.do(t, http.MethodDelete, "/views/board", nil, nil))

	var errBody ErrorBody
	require.Equal(t, http.StatusNotFound, stack.do(t, http.MethodGet, "/views/board", nil, &errBody))
	require.Equal(t, codeNotFound, errBody.Error.Code)

	// Reopening restores the persisted expansion state.
	require.Equal(t, http.StatusCreated, stack.do(t, http.MethodPost, "/views", map[string]string{"id": "board"}, &info))
	require.True(t, info.Restored)

	var entries []activity.ActivityEntry
	require.Equal(t, http.StatusOK, stack.do(t, http.MethodGet, "/dashboard/activity?view=board&type=view_closed", nil, &entries))
	require.Len(t, entries, 1)
}

func TestHTTPServer_OpenViewWithoutBody(t *testing.T) {
	stack := newTestStack(t, false)

	var info view.Info
	code := stack.do(t, http.MethodPost, "/views", nil, &info)
	require.Equal(t, http.StatusCreated, code)
	require.NotEmpty(t, info.ID)

	var render view.Render
	require.Equal(t, http.StatusOK, stack.do(t, http.MethodGet, "/views/"+info.ID, nil, &render))
	require.False(t, render.Loaded)
	require.Nil(t, render.Tree)
}

func TestHTTPServer_Auth(t *testing.T) {
	stack := newTestStack(t, true)

	var errBody ErrorBody
	code := stack.do(t, http.MethodPost, "/dashboard/test-methods", sampleMethods(), &errBody)
	require.Equal(t, http.StatusUnauthorized, code)
	require.Equal(t, codeUnauthorized, errBody.Error.Code)

	code = stack.doWithToken(t, http.MethodPost, "/dashboard/test-methods", "wrong", sampleMethods(), nil)
	require.Equal(t, http.StatusUnauthorized, code)

	code = stack.doWithToken(t, http.MethodPost, "/dashboard/test-methods", "secret", sampleMethods(), nil)
	require.Equal(t, http.StatusOK, code)

	var entries []activity.ActivityEntry
	code = stack.doWithToken(t, http.MethodGet, "/dashboard/activity?type=methods_ingested", "secret", nil, &entries)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, entries, 1)
	require.Equal(t, "ci-scanner", entries[0].Actor)

	// Health stays open.
	resp, err := http.Get(stack.server.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
