package redis

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/keypool/internal/pool"
)

// SnapshotStore persists pool snapshots.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, stats pool.PoolStats, ttl time.Duration) error
}

// Mirror periodically copies pool stats to a SnapshotStore. Pool state is
// never read back from the store.
type Mirror struct {
	store    SnapshotStore
	source   func() pool.PoolStats
	interval time.Duration
	onStats  func(pool.PoolStats)
	log      *slog.Logger
}

// NewMirror creates a mirror. onStats, if set, is called with every snapshot
// taken, whether or not the store write succeeds.
func NewMirror(
	store SnapshotStore,
	source func() pool.PoolStats,
	interval time.Duration,
	onStats func(pool.PoolStats),
) *Mirror {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Mirror{
		store:    store,
		source:   source,
		interval: interval,
		onStats:  onStats,
		log:      slog.Default().With("component", "snapshot_mirror"),
	}
}

// Run publishes a snapshot immediately and then every interval until ctx is
// done.
func (m *Mirror) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.publish(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.publish(ctx)
		}
	}
}

func (m *Mirror) publish(ctx context.Context) {
	stats := m.source()
	if m.onStats != nil {
		m.onStats(stats)
	}
	if m.store == nil {
		return
	}
	// Snapshots outlive a few missed ticks, then expire.
	if err := m.store.SaveSnapshot(ctx, stats, 3*m.interval); err != nil {
		m.log.Warn("Failed to mirror pool snapshot", "pool", stats.Name, "error", err)
	}
}
