package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/coverage"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/testmethod"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/repository"
)

// TestMethodRepository implements testmethod.Repository for SQLite
type TestMethodRepository struct {
	db *DB
}

// NewTestMethodRepository creates a new TestMethodRepository
func NewTestMethodRepository(db *DB) *TestMethodRepository {
	return &TestMethodRepository{db: db}
}

// Upsert inserts or updates methods in one transaction. A method keeps its
// ID across updates.
func (r *TestMethodRepository) Upsert(ctx context.Context, methods []coverage.Method) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := upsertMethods(ctx, tx, methods); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit test methods: %w", err)
	}
	return nil
}

// ReplaceRepositories deletes the stored methods of repos and upserts
// methods in one transaction. Nothing changes if any step fails.
func (r *TestMethodRepository) ReplaceRepositories(ctx context.Context, repos []string, methods []coverage.Method) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var deleted int64
	for _, repo := range repos {
		result, err := tx.ExecContext(ctx, `DELETE FROM test_methods WHERE repository = ?`, repo)
		if err != nil {
			return 0, fmt.Errorf("failed to delete test methods: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to count deleted test methods: %w", err)
		}
		deleted += n
	}

	if err := upsertMethods(ctx, tx, methods); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit test methods: %w", err)
	}
	return deleted, nil
}

func upsertMethods(ctx context.Context, tx *sql.Tx, methods []coverage.Method) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO test_methods (
			repository, package_name, test_class, test_method, line,
			title, author, status, target_class, target_method,
			tags, team_name, team_code
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (repository, test_class, test_method) DO UPDATE SET
			package_name = excluded.package_name,
			line = excluded.line,
			title = excluded.title,
			author = excluded.author,
			status = excluded.status,
			target_class = excluded.target_class,
			target_method = excluded.target_method,
			tags = excluded.tags,
			team_name = excluded.team_name,
			team_code = excluded.team_code,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for i := range methods {
		m := &methods[i]
		tags, err := encodeTags(m.Tags)
		if err != nil {
			return err
		}
		err = stmt.QueryRowContext(ctx,
			m.Repository,
			m.PackageName,
			m.TestClass,
			m.TestMethod,
			m.Line,
			m.Title,
			m.Author,
			m.Status,
			m.TargetClass,
			m.TargetMethod,
			tags,
			m.TeamName,
			m.TeamCode,
		).Scan(&m.ID)
		if err != nil {
			if isCheckViolation(err) {
				return fmt.Errorf("%w: %s.%s", repository.ErrInvalidInput, m.TestClass, m.TestMethod)
			}
			return fmt.Errorf("failed to upsert test method: %w", err)
		}
	}
	return nil
}

// List returns test methods matching the given filters in ID order
func (r *TestMethodRepository) List(ctx context.Context, opts testmethod.ListOptions) ([]coverage.Method, error) {
	query := `
		SELECT
			id, repository, package_name, test_class, test_method, line,
			title, author, status, target_class, target_method,
			tags, team_name, team_code
		FROM test_methods
	`

	args := []interface{}{}
	conditions := []string{}

	if opts.TeamName != "" {
		conditions = append(conditions, "team_name = ?")
		args = append(args, opts.TeamName)
	}
	if opts.Repository != "" {
		conditions = append(conditions, "repository = ?")
		args = append(args, opts.Repository)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY id"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	} else if opts.Offset > 0 {
		query += " LIMIT -1"
	}
	if opts.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, opts.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list test methods: %w", err)
	}
	defer rows.Close()

	methods := []coverage.Method{}
	for rows.Next() {
		var m coverage.Method
		var tags string
		if err := rows.Scan(
			&m.ID,
			&m.Repository,
			&m.PackageName,
			&m.TestClass,
			&m.TestMethod,
			&m.Line,
			&m.Title,
			&m.Author,
			&m.Status,
			&m.TargetClass,
			&m.TargetMethod,
			&tags,
			&m.TeamName,
			&m.TeamCode,
		); err != nil {
			return nil, fmt.Errorf("failed to scan test method: %w", err)
		}
		if m.Tags, err = decodeTags(tags); err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating test method rows: %w", err)
	}

	return methods, nil
}

// DeleteByRepository removes every method of a repository
func (r *TestMethodRepository) DeleteByRepository(ctx context.Context, repo string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM test_methods WHERE repository = ?`, repo)
	if err != nil {
		return 0, fmt.Errorf("failed to delete test methods: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted test methods: %w", err)
	}
	if n == 0 {
		return 0, repository.ErrNotFound
	}
	return n, nil
}

func encodeTags(tags []string) (string, error) {
	if len(tags) == 0 {
		return "[]", nil
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("failed to encode tags: %w", err)
	}
	return string(raw), nil
}

func decodeTags(raw string) ([]string, error) {
	if raw == "" || raw == "[]" {
		return nil, nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}
	return tags, nil
}
