package pool

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// =============================================================================
// Fakes
// =============================================================================

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

type fakeClient struct {
	key    string
	closed bool
}

func (c *fakeClient) Close() error {
	c.closed = true
	return nil
}

func fakeFactory(key string) (*fakeClient, error) {
	return &fakeClient{key: key}, nil
}

type codedError struct {
	code int
	msg  string
}

func (e *codedError) Error() string { return e.msg }
func (e *codedError) Code() int     { return e.code }

type recordingObserver struct {
	mu       sync.Mutex
	attempts []Attempt
	waits    []time.Duration
}

func (o *recordingObserver) ObserveAttempt(a Attempt) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.attempts = append(o.attempts, a)
}

func (o *recordingObserver) ObserveWait(_ string, d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.waits = append(o.waits, d)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPool(t testing.TB, keys string, opts ...Option) (*Pool[*fakeClient], *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	opts = append([]Option{WithClock(clock), WithLogger(discardLogger())}, opts...)
	p := New(fakeFactory, opts...)
	if err := p.Initialize(keys); err != nil {
		t.Fatalf("Initialize(%q) failed: %v", keys, err)
	}
	return p, clock
}

// keyOf returns the key of the client an operation ran through.
func keyOf(_ context.Context, c *fakeClient) (string, error) {
	return c.key, nil
}

// failFor fails with err for the given keys and succeeds otherwise.
func failFor(err error, keys ...string) Operation[*fakeClient, string] {
	return func(_ context.Context, c *fakeClient) (string, error) {
		for _, k := range keys {
			if c.key == k {
				return "", err
			}
		}
		return c.key, nil
	}
}

var errBoom = errors.New("boom")
