package pool

import "time"

// nextEligible scans from the cursor in circular order and returns the first
// record that is untried, healthy and not cooling. The cursor moves past the
// found record before the caller uses it. Must be called with p.mu held.
func (p *Pool[C]) nextEligible(tried map[int]struct{}, now time.Time) (*record[C], bool) {
	n := len(p.records)
	for i := 0; i < n; i++ {
		idx := (p.cursor + i) % n
		r := p.records[idx]
		if _, done := tried[idx]; done {
			continue
		}
		if !r.eligible(now) {
			continue
		}
		p.cursor = (idx + 1) % n
		return r, true
	}
	return nil, false
}

// soonestCooldown returns the shortest remaining cooldown across all cooling
// records, or 0 if none is cooling. Must be called with p.mu held.
func (p *Pool[C]) soonestCooldown(now time.Time) time.Duration {
	var soonest time.Duration
	for _, r := range p.records {
		d := r.cooldownRemaining(now)
		if d <= 0 {
			continue
		}
		if soonest == 0 || d < soonest {
			soonest = d
		}
	}
	return soonest
}
