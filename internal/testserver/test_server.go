// Package testserver runs the full HTTP stack against an in-memory
// database for end-to-end tests.
package testserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/activity"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/dashboard"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/testmethod"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/view"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/mcp"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/sqlite"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/transport"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

type TestServer struct {
	Server  *httptest.Server
	DB      *sqlite.DB
	Token   string
	Client  string
	Dataset *dashboard.Service
	Views   *view.Service
}

// New starts a server with auth enabled; token authenticates as client.
// Searches only apply when flushed.
func New(t *testing.T, token, client string) *TestServer {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, db.RunMigrations())

	methodRepo := sqlite.NewTestMethodRepository(db)
	activityRepo := sqlite.NewActivityRepository(db)
	expansionRepo := sqlite.NewExpansionRepository(db)
	apiKeys := sqlite.NewAPIKeyRepository(db)

	methodSvc := testmethod.NewService(methodRepo, activityRepo, nil)
	datasetSvc := dashboard.NewService(methodSvc, activityRepo, nil)
	viewSvc := view.NewService(datasetSvc, expansionRepo, activityRepo, nil, view.WithSearchDelay(time.Hour))
	activitySvc := activity.NewService(activityRepo, nil)

	mcpServer := mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			Methods:  methodSvc,
			Dataset:  datasetSvc,
			Views:    viewSvc,
			Activity: activitySvc,
		},
		Resolver:      apiKeys,
		AuthEnabled:   true,
		TransportMode: "http",
	})

	router := transport.NewServer(transport.Config{
		Services: transport.Services{
			Methods:  methodSvc,
			Dataset:  datasetSvc,
			Views:    viewSvc,
			Activity: activitySvc,
		},
		Auth: transport.AuthMiddleware(apiKeys),
		MCP:  mcp.NewHTTPHandler(mcpServer, 0),
	})
	server := httptest.NewServer(router)

	ts := &TestServer{
		Server:  server,
		DB:      db,
		Token:   token,
		Client:  client,
		Dataset: datasetSvc,
		Views:   viewSvc,
	}

	require.NoError(t, apiKeys.Add(context.Background(), token, client, "test key"))

	t.Cleanup(func() {
		server.Close()
		_ = viewSvc.CloseAll(context.Background())
		_ = db.Close()
	})

	return ts
}

// ConnectMCP opens an MCP client session over streamable HTTP. An empty
// token sends no Authorization header.
func (ts *TestServer) ConnectMCP(t *testing.T, token string) *sdkmcp.ClientSession {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	httpClient := &http.Client{Transport: &bearerTransport{token: token, base: http.DefaultTransport}}
	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, &sdkmcp.StreamableClientTransport{
		Endpoint:   ts.Server.URL + "/mcp",
		HTTPClient: httpClient,
	}, nil)
	require.NoError(t, err)

	t.Cleanup(func() { _ = session.Close() })
	return session
}

type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (b *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if b.token != "" {
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+b.token)
	}
	return b.base.RoundTrip(req)
}
