package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/repository"
)

// APIKeyRepository stores hashed API keys and resolves bearer tokens
type APIKeyRepository struct {
	db *DB
}

// NewAPIKeyRepository creates a new APIKeyRepository
func NewAPIKeyRepository(db *DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// HashToken returns the stored form of a token
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Add stores a new API key for a client
func (r *APIKeyRepository) Add(ctx context.Context, token, clientName, description string) error {
	if token == "" || clientName == "" {
		return repository.ErrInvalidInput
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO api_keys (key_hash, client_name, created_at, description) VALUES (?, ?, ?, ?)`,
		HashToken(token), clientName, time.Now().UTC(), description,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to add api key: %w", err)
	}
	return nil
}

// ResolveClient returns the client name owning token and records its use
func (r *APIKeyRepository) ResolveClient(ctx context.Context, token string) (string, error) {
	hash := HashToken(token)
	var clientName string
	err := r.db.QueryRowContext(ctx,
		`SELECT client_name FROM api_keys WHERE key_hash = ?`, hash,
	).Scan(&clientName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", repository.ErrNotFound
		}
		return "", fmt.Errorf("failed to resolve api key: %w", err)
	}

	if _, err := r.db.ExecContext(ctx,
		`UPDATE api_keys SET last_used = ? WHERE key_hash = ?`, time.Now().UTC(), hash,
	); err != nil {
		return "", fmt.Errorf("failed to touch api key: %w", err)
	}
	return clientName, nil
}
