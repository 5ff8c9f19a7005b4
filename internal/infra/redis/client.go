package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vietddude/keypool/internal/pool"
)

// Client wraps Redis operations for the pool snapshot mirror.
type Client struct {
	rdb    *redis.Client
	prefix string
}

// Config holds Redis connection configuration.
type Config struct {
	URL              string        `yaml:"url"`
	Password         string        `yaml:"password"`
	KeyPrefix        string        `yaml:"key_prefix"`
	SnapshotInterval time.Duration `yaml:"snapshot_interval"`
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "keypool"
	}
	return &Client{rdb: rdb, prefix: prefix}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Key helpers
func snapshotKey(prefix, poolName string) string {
	return fmt.Sprintf("%s:stats:%s", prefix, poolName)
}

// SaveSnapshot stores the stats snapshot, expiring after ttl.
func (c *Client) SaveSnapshot(ctx context.Context, stats pool.PoolStats, ttl time.Duration) error {
	data, err := encodeSnapshot(stats, time.Now())
	if err != nil {
		return err
	}
	key := snapshotKey(c.prefix, stats.Name)
	if err := c.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("set failed: %w", err)
	}
	return nil
}

// LoadSnapshot reads the last mirrored snapshot for a pool.
// found is false when no live snapshot exists.
func (c *Client) LoadSnapshot(ctx context.Context, poolName string) (snap Snapshot, found bool, err error) {
	val, err := c.rdb.Get(ctx, snapshotKey(c.prefix, poolName)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("get failed: %w", err)
	}
	snap, err = decodeSnapshot(val)
	if err != nil {
		return Snapshot{}, false, err
	}
	return snap, true, nil
}

// Snapshot is the mirrored form of pool stats.
type Snapshot struct {
	CapturedAt time.Time      `json:"captured_at"`
	Stats      pool.PoolStats `json:"stats"`
}

func encodeSnapshot(stats pool.PoolStats, at time.Time) ([]byte, error) {
	data, err := json.Marshal(Snapshot{CapturedAt: at.UTC(), Stats: stats})
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

func decodeSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("invalid snapshot: %w", err)
	}
	return snap, nil
}
