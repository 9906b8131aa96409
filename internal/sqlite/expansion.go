package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/expansion"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/repository"
)

// ExpansionRepository implements view.ExpansionRepository for SQLite
type ExpansionRepository struct {
	db *DB
}

// NewExpansionRepository creates a new ExpansionRepository
func NewExpansionRepository(db *DB) *ExpansionRepository {
	return &ExpansionRepository{db: db}
}

// Load returns the saved expansion keys of a view
func (r *ExpansionRepository) Load(ctx context.Context, viewID string) (expansion.Keys, error) {
	var teams, classes string
	err := r.db.QueryRowContext(ctx,
		`SELECT teams, classes FROM view_expansions WHERE view_id = ?`, viewID,
	).Scan(&teams, &classes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return expansion.Keys{}, repository.ErrNotFound
		}
		return expansion.Keys{}, fmt.Errorf("failed to load expansion state: %w", err)
	}

	keys := expansion.Keys{Teams: []string{}, Classes: []string{}}
	if err := json.Unmarshal([]byte(teams), &keys.Teams); err != nil {
		return expansion.Keys{}, fmt.Errorf("failed to decode team keys: %w", err)
	}
	if err := json.Unmarshal([]byte(classes), &keys.Classes); err != nil {
		return expansion.Keys{}, fmt.Errorf("failed to decode class keys: %w", err)
	}
	return keys, nil
}

// Save replaces the saved expansion keys of a view
func (r *ExpansionRepository) Save(ctx context.Context, viewID string, keys expansion.Keys) error {
	teams, err := encodeKeys(keys.Teams)
	if err != nil {
		return err
	}
	classes, err := encodeKeys(keys.Classes)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO view_expansions (view_id, teams, classes, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (view_id) DO UPDATE SET
			teams = excluded.teams,
			classes = excluded.classes,
			updated_at = excluded.updated_at
	`, viewID, teams, classes)
	if err != nil {
		return fmt.Errorf("failed to save expansion state: %w", err)
	}
	return nil
}

func encodeKeys(keys []string) (string, error) {
	if keys == nil {
		keys = []string{}
	}
	raw, err := json.Marshal(keys)
	if err != nil {
		return "", fmt.Errorf("failed to encode expansion keys: %w", err)
	}
	return string(raw), nil
}
