package transport

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/activity"
)

// ErrUnauthorized indicates invalid or missing credentials.
var ErrUnauthorized = errors.New("unauthorized")

// ClientResolver resolves a client name from a bearer token.
type ClientResolver interface {
	ResolveClient(ctx context.Context, token string) (string, error)
}

// AuthMiddleware enforces bearer token authentication. The resolved client
// becomes the actor of any activity logged while serving the request.
func AuthMiddleware(resolver ClientResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if token == "" {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing bearer token")
				return
			}

			client, err := resolver.ResolveClient(r.Context(), token)
			if err != nil || client == "" {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid bearer token")
				return
			}

			ctx := activity.WithActor(r.Context(), client)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
