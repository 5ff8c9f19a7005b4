package pool

import "time"

// Eligibility is evaluated lazily at selection time; no timers are involved.

func (r *record[C]) cooling(now time.Time) bool {
	return !r.cooldownUntil.IsZero() && r.cooldownUntil.After(now)
}

// eligible reports whether the record may be selected. Unhealthy excludes a
// record even after its cooldown has expired.
func (r *record[C]) eligible(now time.Time) bool {
	return r.healthy && !r.cooling(now)
}

func (r *record[C]) cooldownRemaining(now time.Time) time.Duration {
	if !r.cooling(now) {
		return 0
	}
	return r.cooldownUntil.Sub(now)
}

// setCooldown never moves an active cooldown backwards.
func (r *record[C]) setCooldown(now time.Time, d time.Duration) {
	until := now.Add(d)
	if until.After(r.cooldownUntil) {
		r.cooldownUntil = until
	}
}

func (r *record[C]) reset() {
	r.cooldownUntil = time.Time{}
	r.consecutiveFailures = 0
	r.healthy = true
}
