// Package pool dispatches calls to a rate-limited API across a fixed set of
// interchangeable credentials.
//
// This package contains:
//   - Pool: the credential registry and its shared round-robin cursor
//   - Execute: the retry loop that selects a credential, runs an operation
//     through its client and applies cooldowns on failure
//   - IsRateLimit: failure classification
//   - Stats: read-only snapshot for monitoring
//
// All registry state is guarded by a single mutex; the lock is never held
// while waiting or while an operation runs.
package pool

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// ClientFactory builds the client handle bound to one credential.
type ClientFactory[C any] func(key string) (C, error)

type record[C any] struct {
	key    string
	index  int
	client C

	totalRequests       int
	successCount        int
	consecutiveFailures int
	rateLimitHits       int

	cooldownUntil time.Time // zero means not cooling
	lastUsedAt    time.Time // zero means never
	lastErrorAt   time.Time
	lastError     string

	healthy bool
}

// Pool holds the credential records for one API.
type Pool[C any] struct {
	mu          sync.Mutex
	records     []*record[C]
	cursor      int
	exhaustions int
	initialized bool

	factory  ClientFactory[C]
	settings Settings
	clock    Clock
	observer Observer
	log      *slog.Logger
}

// New creates an uninitialized pool. Call Initialize before Execute.
func New[C any](factory ClientFactory[C], opts ...Option) *Pool[C] {
	s := DefaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	if s.clock == nil {
		s.clock = realClock{}
	}
	if s.observer == nil {
		s.observer = nopObserver{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	return &Pool[C]{
		factory:  factory,
		settings: s,
		clock:    s.clock,
		observer: s.observer,
		log:      s.logger.With("component", "keypool", "pool", s.Name),
	}
}

// Initialize parses a comma-separated credential list and builds one record
// per non-empty entry, in input order. Calling it again after a successful
// initialization does nothing.
func (p *Pool[C]) Initialize(credentials string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		p.log.Debug("Pool already initialized, ignoring", "keys", len(p.records))
		return nil
	}

	keys := ParseKeys(credentials)
	if len(keys) == 0 {
		return &ConfigurationError{Reason: "no credentials configured", Err: ErrNoCredentials}
	}

	records := make([]*record[C], 0, len(keys))
	for i, key := range keys {
		client, err := p.factory(key)
		if err != nil {
			return &ConfigurationError{
				Reason: "failed to build client for key " + MaskKey(key),
				Err:    err,
			}
		}
		records = append(records, &record[C]{
			key:     key,
			index:   i,
			client:  client,
			healthy: true,
		})
	}

	p.records = records
	p.cursor = 0
	p.exhaustions = 0
	p.initialized = true

	p.log.Info("Pool initialized", "keys", len(records))
	return nil
}

// ParseKeys splits a comma-separated list, trimming whitespace and dropping
// empty entries.
func ParseKeys(credentials string) []string {
	var keys []string
	for _, part := range strings.Split(credentials, ",") {
		if k := strings.TrimSpace(part); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// Size returns the number of credentials.
func (p *Pool[C]) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.records)
}

// Name returns the configured pool name.
func (p *Pool[C]) Name() string {
	return p.settings.Name
}

// Close closes every client that implements io.Closer.
func (p *Pool[C]) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for _, r := range p.records {
		if c, ok := any(r.client).(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
