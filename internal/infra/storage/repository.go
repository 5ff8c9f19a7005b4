package storage

import (
	"context"

	"github.com/vietddude/keypool/internal/core/domain"
)

// AttemptRepository stores the append-only attempt audit log
type AttemptRepository interface {
	// SaveBatch appends attempts
	SaveBatch(ctx context.Context, attempts []*domain.Attempt) error

	// Recent returns the newest attempts for a pool, newest first
	Recent(ctx context.Context, pool string, limit int) ([]*domain.Attempt, error)
}
