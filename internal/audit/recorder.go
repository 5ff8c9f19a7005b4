// Package audit persists pool attempts to an AttemptRepository without
// blocking the dispatcher.
package audit

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/vietddude/keypool/internal/core/domain"
	"github.com/vietddude/keypool/internal/infra/storage"
	"github.com/vietddude/keypool/internal/pool"
)

const (
	defaultBuffer = 256
	batchSize     = 100
	flushInterval = time.Second
)

// Recorder buffers attempts and writes them in batches.
type Recorder struct {
	repo    storage.AttemptRepository
	queue   chan *domain.Attempt
	dropped atomic.Int64
	log     *slog.Logger
}

// NewRecorder creates a recorder with a bounded buffer. Attempts observed
// while the buffer is full are dropped.
func NewRecorder(repo storage.AttemptRepository, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Recorder{
		repo:  repo,
		queue: make(chan *domain.Attempt, buffer),
		log:   slog.Default().With("component", "audit"),
	}
}

// ObserveAttempt implements pool.Observer.
func (r *Recorder) ObserveAttempt(a pool.Attempt) {
	entry := toDomain(a)
	select {
	case r.queue <- entry:
	default:
		if n := r.dropped.Add(1); n == 1 || n%100 == 0 {
			r.log.Warn("Audit buffer full, dropping attempts", "dropped", n)
		}
	}
}

// ObserveWait implements pool.Observer.
func (r *Recorder) ObserveWait(string, time.Duration) {}

// Dropped returns the number of attempts lost to a full buffer.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Run writes batches until ctx is done, then flushes what is queued.
func (r *Recorder) Run(ctx context.Context) {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]*domain.Attempt, 0, batchSize)
	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		if err := r.repo.SaveBatch(ctx, batch); err != nil {
			r.log.Error("Failed to save attempts", "count", len(batch), "error", err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			for {
				select {
				case a := <-r.queue:
					batch = append(batch, a)
					if len(batch) >= batchSize {
						flush(drainCtx)
					}
				default:
					flush(drainCtx)
					return
				}
			}
		case a := <-r.queue:
			batch = append(batch, a)
			if len(batch) >= batchSize {
				flush(ctx)
			}
		case <-ticker.C:
			flush(ctx)
		}
	}
}

func toDomain(a pool.Attempt) *domain.Attempt {
	entry := &domain.Attempt{
		ID:        uuid.NewString(),
		Pool:      a.Pool,
		Operation: a.Operation,
		KeyIndex:  a.Index,
		MaskedKey: a.Key,
		Outcome:   domain.Outcome(a.Outcome),
		LatencyMs: a.Latency.Milliseconds(),
		CreatedAt: a.At,
	}
	if a.Err != nil {
		entry.Error = a.Err.Error()
	}
	return entry
}
