package pool

import (
	"fmt"
	"math"
	"time"
)

// PoolStats is a point-in-time view of the pool for monitoring.
type PoolStats struct {
	Name        string     `json:"name"`
	Total       int        `json:"total"`
	Available   int        `json:"available"`
	Cooling     int        `json:"cooling"`
	Cursor      int        `json:"cursor"`
	Exhaustions int        `json:"exhaustions"`
	Keys        []KeyStats `json:"keys"`
}

// KeyStats describes one credential. The key itself is always masked.
type KeyStats struct {
	Index               int    `json:"index"`
	Key                 string `json:"key"`
	Healthy             bool   `json:"healthy"`
	Cooling             bool   `json:"cooling"`
	CooldownRemaining   int    `json:"cooldown_remaining_seconds,omitempty"`
	TotalRequests       int    `json:"total_requests"`
	SuccessRate         string `json:"success_rate"`
	RateLimitHits       int    `json:"rate_limit_hits"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
	LastUsed            string `json:"last_used"`
	LastError           string `json:"last_error,omitempty"`
}

// Stats returns a snapshot of every record. It does not mutate the pool.
func (p *Pool[C]) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clock.Now()
	stats := PoolStats{
		Name:        p.settings.Name,
		Total:       len(p.records),
		Cursor:      p.cursor,
		Exhaustions: p.exhaustions,
		Keys:        make([]KeyStats, 0, len(p.records)),
	}

	for _, r := range p.records {
		cooling := r.cooling(now)
		if cooling {
			stats.Cooling++
		} else if r.healthy {
			stats.Available++
		}

		ks := KeyStats{
			Index:               r.index,
			Key:                 MaskKey(r.key),
			Healthy:             r.healthy,
			Cooling:             cooling,
			TotalRequests:       r.totalRequests,
			SuccessRate:         successRate(r.successCount, r.totalRequests),
			RateLimitHits:       r.rateLimitHits,
			ConsecutiveFailures: r.consecutiveFailures,
			LastUsed:            humanizeSince(now, r.lastUsedAt),
			LastError:           r.lastError,
		}
		if cooling {
			ks.CooldownRemaining = int(math.Ceil(r.cooldownRemaining(now).Seconds()))
		}
		stats.Keys = append(stats.Keys, ks)
	}

	return stats
}

// MaskKey keeps the first and last six characters of keys longer than 12.
func MaskKey(key string) string {
	if len(key) <= 12 {
		return "***"
	}
	return key[:6] + "..." + key[len(key)-6:]
}

func successRate(success, total int) string {
	if total == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%d%%", int(math.Round(float64(success)/float64(total)*100)))
}

func humanizeSince(now, t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := now.Sub(t)
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
