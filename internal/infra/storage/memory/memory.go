package memory

import (
	"context"
	"sync"

	"github.com/vietddude/keypool/internal/core/domain"
)

// DefaultCapacity bounds the in-memory attempt log.
const DefaultCapacity = 10000

// AttemptRepo keeps the most recent attempts in memory.
type AttemptRepo struct {
	mu       sync.RWMutex
	attempts []*domain.Attempt
	capacity int
}

func NewAttemptRepo(capacity int) *AttemptRepo {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &AttemptRepo{capacity: capacity}
}

func (r *AttemptRepo) SaveBatch(ctx context.Context, attempts []*domain.Attempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.attempts = append(r.attempts, attempts...)
	if over := len(r.attempts) - r.capacity; over > 0 {
		r.attempts = append([]*domain.Attempt(nil), r.attempts[over:]...)
	}
	return nil
}

func (r *AttemptRepo) Recent(ctx context.Context, pool string, limit int) ([]*domain.Attempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*domain.Attempt
	for i := len(r.attempts) - 1; i >= 0; i-- {
		if limit > 0 && len(result) >= limit {
			break
		}
		if a := r.attempts[i]; a.Pool == pool {
			result = append(result, a)
		}
	}
	return result, nil
}
