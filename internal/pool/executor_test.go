package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestExecute_RoundRobin(t *testing.T) {
	p, _ := newTestPool(t, "a,b,c,d")
	ctx := context.Background()

	run := func() []string {
		var got []string
		for range 4 {
			key, err := Execute(ctx, p, "round", keyOf)
			if err != nil {
				t.Fatalf("Execute failed: %v", err)
			}
			got = append(got, key)
		}
		return got
	}

	if got := fmt.Sprint(run()); got != "[a b c d]" {
		t.Errorf("first round = %s, want [a b c d]", got)
	}

	p.cursor = 2
	if got := fmt.Sprint(run()); got != "[c d a b]" {
		t.Errorf("round from cursor 2 = %s, want [c d a b]", got)
	}
}

func TestExecute_FirstSuccessStops(t *testing.T) {
	p, _ := newTestPool(t, "a,b,c")

	calls := 0
	_, err := Execute(context.Background(), p, "once", func(_ context.Context, c *fakeClient) (string, error) {
		calls++
		return c.key, nil
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("operation invoked %d times, want 1", calls)
	}

	stats := p.Stats()
	if stats.Keys[0].TotalRequests != 1 || stats.Keys[1].TotalRequests != 0 {
		t.Errorf("unexpected request counts: %+v", stats.Keys)
	}
}

func TestExecute_FailsOverOnGenericError(t *testing.T) {
	p, clock := newTestPool(t, "a,b")

	key, err := Execute(context.Background(), p, "failover", failFor(errBoom, "a"))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if key != "b" {
		t.Errorf("result from %q, want b", key)
	}

	a := p.records[0]
	if a.consecutiveFailures != 1 || a.rateLimitHits != 0 {
		t.Errorf("a: failures=%d rateLimitHits=%d", a.consecutiveFailures, a.rateLimitHits)
	}
	if want := clock.Now().Add(DefaultFailureCooldown); !a.cooldownUntil.Equal(want) {
		t.Errorf("a cooldown until %v, want %v", a.cooldownUntil, want)
	}
	if a.lastError != "boom" || a.lastErrorAt.IsZero() {
		t.Errorf("a last error not recorded: %q at %v", a.lastError, a.lastErrorAt)
	}
}

func TestExecute_RateLimitCooldown(t *testing.T) {
	p, clock := newTestPool(t, "a,b", WithMinSpacing(0))
	ctx := context.Background()
	failedAt := clock.Now()

	key, err := Execute(ctx, p, "limited", failFor(errors.New("429 Too Many Requests"), "a"))
	if err != nil || key != "b" {
		t.Fatalf("Execute = %q, %v; want b, nil", key, err)
	}
	if p.records[0].rateLimitHits != 1 || p.records[0].consecutiveFailures != 0 {
		t.Fatalf("rate limit not classified: %+v", p.records[0])
	}

	clock.Advance(DefaultRateLimitCooldown - time.Second)
	for range 3 {
		key, err := Execute(ctx, p, "while-cooling", keyOf)
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		if key != "b" {
			t.Fatalf("cooling key a was selected at %v", clock.Now().Sub(failedAt))
		}
	}

	clock.Advance(time.Second)
	p.cursor = 0
	key, err = Execute(ctx, p, "after-cooldown", keyOf)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if key != "a" {
		t.Errorf("key a not selectable after cooldown, got %q", key)
	}
}

func TestExecute_UnhealthyAfterConsecutiveFailures(t *testing.T) {
	p, clock := newTestPool(t, "solo")
	ctx := context.Background()

	calls := 0
	failing := func(_ context.Context, _ *fakeClient) (string, error) {
		calls++
		return "", errBoom
	}

	for i := range DefaultUnhealthyThreshold {
		_, err := Execute(ctx, p, "failing", failing)
		if !errors.Is(err, ErrPoolExhausted) {
			t.Fatalf("call %d: expected pool exhausted, got %v", i, err)
		}
	}
	if calls != DefaultUnhealthyThreshold {
		t.Fatalf("operation invoked %d times, want %d", calls, DefaultUnhealthyThreshold)
	}
	if p.records[0].healthy {
		t.Fatal("key should be unhealthy")
	}

	// Still excluded once the cooldown has run out.
	clock.Advance(DefaultFailureCooldown + time.Minute)
	_, err := Execute(ctx, p, "failing", failing)
	var exhausted *PoolExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected PoolExhaustedError, got %v", err)
	}
	if exhausted.Tried != 0 {
		t.Errorf("Tried = %d, want 0", exhausted.Tried)
	}
	if calls != DefaultUnhealthyThreshold {
		t.Errorf("unhealthy key was used")
	}

	p.ResetOne(0)
	if _, err := Execute(ctx, p, "recovered", keyOf); err != nil {
		t.Errorf("Execute after reset failed: %v", err)
	}
}

func TestExecute_WaitsForEarliestCooldown(t *testing.T) {
	p, clock := newTestPool(t, "a,b")
	ctx := context.Background()
	start := clock.Now()

	_, err := Execute(ctx, p, "both-fail", func(_ context.Context, c *fakeClient) (string, error) {
		if c.key == "a" {
			return "", errBoom
		}
		return "", errors.New("Rate limit exceeded")
	})
	if !errors.Is(err, ErrPoolExhausted) {
		t.Fatalf("expected pool exhausted, got %v", err)
	}

	var used []string
	key, err := Execute(ctx, p, "retry", func(_ context.Context, c *fakeClient) (string, error) {
		used = append(used, c.key)
		return c.key, nil
	})
	if err != nil {
		t.Fatalf("Execute should wait instead of failing: %v", err)
	}
	if key != "a" || len(used) != 1 {
		t.Errorf("used %v, want only a", used)
	}

	// The 2 minute cooldown of a is waited out in MaxWait slices.
	sleeps := clock.Sleeps()
	if len(sleeps) != 4 {
		t.Fatalf("sleeps = %v, want four 30s waits", sleeps)
	}
	for _, d := range sleeps {
		if d != DefaultMaxWait {
			t.Errorf("sleep %v exceeds cap %v", d, DefaultMaxWait)
		}
	}
	if elapsed := clock.Now().Sub(start); elapsed != DefaultFailureCooldown {
		t.Errorf("waited %v, want %v", elapsed, DefaultFailureCooldown)
	}
	if p.Stats().Exhaustions != 0 {
		t.Error("exhaustion streak should reset on success")
	}
}

func TestExecute_NothingToWaitFor(t *testing.T) {
	p, _ := newTestPool(t, "a,b")

	_, err := Execute(context.Background(), p, "all-fail", failFor(errBoom, "a", "b"))

	var exhausted *PoolExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected PoolExhaustedError, got %v", err)
	}
	if exhausted.Operation != "all-fail" || exhausted.Tried != 2 {
		t.Errorf("unexpected error fields: %+v", exhausted)
	}
	if !errors.Is(exhausted.LastErr, errBoom) {
		t.Errorf("LastErr = %v, want boom", exhausted.LastErr)
	}
	if errors.Is(err, errBoom) {
		t.Error("per-attempt error must not leak through the error chain")
	}
}

func TestExecute_ContextCanceledDuringWait(t *testing.T) {
	p, clock := newTestPool(t, "a")
	p.records[0].cooldownUntil = clock.Now().Add(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Execute(ctx, p, "canceled", keyOf)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, ErrPoolExhausted) {
		t.Error("cancellation should not be reported as exhaustion")
	}
}

func TestExecute_MaxWaits(t *testing.T) {
	p, clock := newTestPool(t, "a,b", WithMaxWaits(2))
	for _, r := range p.records {
		r.cooldownUntil = clock.Now().Add(DefaultRateLimitCooldown)
	}

	_, err := Execute(context.Background(), p, "bounded", keyOf)
	if !errors.Is(err, ErrPoolExhausted) {
		t.Fatalf("expected pool exhausted, got %v", err)
	}
	if n := len(clock.Sleeps()); n != 2 {
		t.Errorf("slept %d times, want 2", n)
	}
	if p.Stats().Exhaustions != 2 {
		t.Errorf("exhaustions = %d, want 2", p.Stats().Exhaustions)
	}
}

func TestExecute_MinSpacing(t *testing.T) {
	p, clock := newTestPool(t, "solo")
	ctx := context.Background()

	for range 2 {
		if _, err := Execute(ctx, p, "spaced", keyOf); err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
	}

	sleeps := clock.Sleeps()
	if len(sleeps) != 1 || sleeps[0] != DefaultMinSpacing {
		t.Errorf("sleeps = %v, want [%v]", sleeps, DefaultMinSpacing)
	}

	clock.Advance(time.Second)
	if _, err := Execute(ctx, p, "spaced", keyOf); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	sleeps = clock.Sleeps()
	if last := sleeps[len(sleeps)-1]; last != 500*time.Millisecond {
		t.Errorf("remaining spacing = %v, want 500ms", last)
	}
}

func TestExecute_Uninitialized(t *testing.T) {
	p := New(fakeFactory, WithLogger(discardLogger()))

	_, err := Execute(context.Background(), p, "early", keyOf)
	var exhausted *PoolExhaustedError
	if !errors.As(err, &exhausted) || exhausted.Tried != 0 {
		t.Fatalf("expected PoolExhaustedError with 0 tried, got %v", err)
	}
}

func TestExecute_Observer(t *testing.T) {
	obs := &recordingObserver{}
	p, _ := newTestPool(t, "aaaaaaaaaaaaaaaa,bbbbbbbbbbbbbbbb", WithObserver(obs), WithName("scraper"))

	limited := &codedError{code: ProviderRateLimitCode, msg: "slow down"}
	if _, err := Execute(context.Background(), p, "observed", failFor(limited, "aaaaaaaaaaaaaaaa")); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if len(obs.attempts) != 2 {
		t.Fatalf("observed %d attempts, want 2", len(obs.attempts))
	}
	first, second := obs.attempts[0], obs.attempts[1]
	if first.Outcome != OutcomeRateLimited || first.Index != 0 || first.Key != "aaaaaa...aaaaaa" {
		t.Errorf("first attempt = %+v", first)
	}
	if second.Outcome != OutcomeSuccess || second.Pool != "scraper" || second.Operation != "observed" {
		t.Errorf("second attempt = %+v", second)
	}
}

func TestExecute_Concurrent(t *testing.T) {
	p, _ := newTestPool(t, "a,b,c,d")
	ctx := context.Background()

	const callers = 100
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := Execute(ctx, p, "concurrent", keyOf); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Execute failed: %v", err)
	}

	var total, success int
	for _, r := range p.records {
		total += r.totalRequests
		success += r.successCount
	}
	if total != callers || success != callers {
		t.Errorf("total=%d success=%d, want %d", total, success, callers)
	}
}
