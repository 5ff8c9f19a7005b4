package postgres

import (
	"context"
	"fmt"

	"github.com/vietddude/keypool/internal/core/domain"
)

// AttemptRepo implements storage.AttemptRepository using PostgreSQL.
type AttemptRepo struct {
	db *DB
}

// NewAttemptRepo creates a new PostgreSQL attempt repository.
func NewAttemptRepo(db *DB) *AttemptRepo {
	return &AttemptRepo{db: db}
}

const insertAttempt = `
	INSERT INTO pool_attempts
		(id, pool, operation, key_index, masked_key, outcome, error_msg, latency_ms, created_at)
	VALUES
		(:id, :pool, :operation, :key_index, :masked_key, :outcome, :error_msg, :latency_ms, :created_at)
`

// SaveBatch inserts attempts in one statement.
func (r *AttemptRepo) SaveBatch(ctx context.Context, attempts []*domain.Attempt) error {
	if len(attempts) == 0 {
		return nil
	}
	if _, err := r.db.NamedExecContext(ctx, insertAttempt, attempts); err != nil {
		return fmt.Errorf("failed to save attempts: %w", err)
	}
	return nil
}

// Recent returns the newest attempts for a pool.
func (r *AttemptRepo) Recent(ctx context.Context, pool string, limit int) ([]*domain.Attempt, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, pool, operation, key_index, masked_key, outcome, error_msg, latency_ms, created_at
		FROM pool_attempts
		WHERE pool = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	var rows []*domain.Attempt
	if err := r.db.SelectContext(ctx, &rows, query, pool, limit); err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	return rows, nil
}
