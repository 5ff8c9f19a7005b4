package pool

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Operation is a call made through one credential's client.
type Operation[C, T any] func(ctx context.Context, client C) (T, error)

// Execute runs op through the pool. Credentials are tried one at a time in
// round-robin order; the first success is returned immediately. Rate-limit
// and generic failures put the credential on cooldown and the next eligible
// one is tried. When nothing is eligible but some credential is cooling,
// Execute sleeps until the earliest cooldown ends (capped by MaxWait) and
// starts over with every credential retryable.
//
// The only error returned for credential failures is *PoolExhaustedError. A
// canceled ctx ends the call with an error wrapping ctx.Err().
func Execute[C, T any](ctx context.Context, p *Pool[C], name string, op Operation[C, T]) (T, error) {
	var zero T

	n := p.Size()
	tried := make(map[int]struct{}, n)
	attempted := make(map[int]struct{}, n)
	waits := 0
	var lastErr error

	for len(tried) < n {
		r, spacing, cooldown, ok := p.reserve(tried)
		if !ok {
			if cooldown <= 0 {
				break
			}
			if p.settings.MaxWaits > 0 && waits >= p.settings.MaxWaits {
				p.log.Warn("Giving up after exhaustion waits", "operation", name, "waits", waits)
				break
			}
			if err := p.waitForCooldown(ctx, name, cooldown); err != nil {
				return zero, fmt.Errorf("%s: waiting for cooldown: %w", name, err)
			}
			waits++
			clear(tried)
			continue
		}

		tried[r.index] = struct{}{}
		attempted[r.index] = struct{}{}

		if spacing > 0 {
			if err := p.clock.Sleep(ctx, spacing); err != nil {
				p.release(r)
				return zero, fmt.Errorf("%s: waiting for key spacing: %w", name, err)
			}
		}

		start := p.clock.Now()
		result, err := op(ctx, r.client)
		latency := p.clock.Now().Sub(start)

		if err == nil {
			p.markSuccess(r)
			p.observer.ObserveAttempt(p.attempt(name, r, OutcomeSuccess, nil, start, latency))
			p.log.Debug("Operation succeeded",
				"operation", name, "index", r.index, "key", MaskKey(r.key), "latency", latency)
			return result, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, fmt.Errorf("%s: %w", name, ctxErr)
		}

		lastErr = err
		outcome := p.markFailure(r, name, err)
		p.observer.ObserveAttempt(p.attempt(name, r, outcome, err, start, latency))
	}

	p.log.Error("Pool exhausted",
		"operation", name, "tried", len(attempted), "keys", n, "error", lastErr)
	return zero, &PoolExhaustedError{Operation: name, Tried: len(attempted), LastErr: lastErr}
}

// reserve selects the next eligible record and claims its next spacing slot.
// When nothing is eligible it returns the soonest cooldown instead.
func (p *Pool[C]) reserve(tried map[int]struct{}) (r *record[C], spacing, cooldown time.Duration, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clock.Now()
	r, ok = p.nextEligible(tried, now)
	if !ok {
		return nil, 0, p.soonestCooldown(now), false
	}

	slot := now
	if !r.lastUsedAt.IsZero() && p.settings.MinSpacing > 0 {
		if next := r.lastUsedAt.Add(p.settings.MinSpacing); next.After(now) {
			slot = next
		}
	}
	r.lastUsedAt = slot
	r.totalRequests++

	return r, slot.Sub(now), 0, true
}

// release undoes the request count of a reservation that never ran.
func (p *Pool[C]) release(r *record[C]) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r.totalRequests--
}

func (p *Pool[C]) waitForCooldown(ctx context.Context, name string, cooldown time.Duration) error {
	wait := min(cooldown, p.settings.MaxWait)

	p.mu.Lock()
	p.exhaustions++
	streak := p.exhaustions
	p.mu.Unlock()

	level := slog.LevelWarn
	if streak >= 5 {
		level = slog.LevelError
	}
	p.log.Log(ctx, level, "All keys cooling, waiting",
		"operation", name, "wait", wait, "soonest", cooldown, "streak", streak)

	p.observer.ObserveWait(p.settings.Name, wait)
	return p.clock.Sleep(ctx, wait)
}

func (p *Pool[C]) markSuccess(r *record[C]) {
	p.mu.Lock()
	defer p.mu.Unlock()

	r.successCount++
	r.consecutiveFailures = 0
	r.healthy = true
	p.exhaustions = 0
}

func (p *Pool[C]) markFailure(r *record[C], name string, err error) Outcome {
	rateLimited := IsRateLimit(err)

	p.mu.Lock()
	now := p.clock.Now()
	outcome := OutcomeFailed
	var cooldown time.Duration
	if rateLimited {
		outcome = OutcomeRateLimited
		cooldown = p.settings.RateLimitCooldown
		r.rateLimitHits++
	} else {
		cooldown = p.settings.FailureCooldown
		r.consecutiveFailures++
		if r.consecutiveFailures >= p.settings.UnhealthyThreshold {
			r.healthy = false
		}
	}
	r.setCooldown(now, cooldown)
	r.lastErrorAt = now
	r.lastError = err.Error()
	failures, healthy := r.consecutiveFailures, r.healthy
	p.mu.Unlock()

	attrs := []any{
		"operation", name,
		"index", r.index,
		"key", MaskKey(r.key),
		"outcome", outcome,
		"cooldown", cooldown,
		"consecutive_failures", failures,
		"error", err,
	}
	if !healthy {
		p.log.Error("Key marked unhealthy", attrs...)
	} else {
		p.log.Warn("Key attempt failed", attrs...)
	}
	return outcome
}

func (p *Pool[C]) attempt(name string, r *record[C], outcome Outcome, err error, at time.Time, latency time.Duration) Attempt {
	return Attempt{
		Pool:      p.settings.Name,
		Operation: name,
		Index:     r.index,
		Key:       MaskKey(r.key),
		Outcome:   outcome,
		Err:       err,
		Latency:   latency,
		At:        at,
	}
}
