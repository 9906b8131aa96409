package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/activity"
	"github.com/stretchr/testify/require"
)

type testResolver struct {
	tokenToClient map[string]string
	err           error
}

func (r *testResolver) ResolveClient(_ context.Context, token string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	client, ok := r.tokenToClient[token]
	if !ok {
		return "", ErrUnauthorized
	}
	return client, nil
}

func TestAuthMiddleware(t *testing.T) {
	resolver := &testResolver{tokenToClient: map[string]string{"token": "ci-scanner"}}

	handler := AuthMiddleware(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "ci-scanner", activity.ActorFromContext(r.Context()))
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddleware_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		resolver *testResolver
		header   string
	}{
		{name: "missing header", resolver: &testResolver{}, header: ""},
		{name: "resolver error", resolver: &testResolver{err: errors.New("invalid")}, header: "Bearer token"},
		{name: "unknown token", resolver: &testResolver{tokenToClient: map[string]string{}}, header: "Bearer other"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := AuthMiddleware(tt.resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)
			require.Equal(t, http.StatusUnauthorized, rec.Code)
			require.Contains(t, rec.Body.String(), `"code":"unauthorized"`)
		})
	}
}
