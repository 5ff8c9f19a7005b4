package pool

import (
	"log/slog"
	"time"
)

const (
	DefaultRateLimitCooldown  = 15 * time.Minute
	DefaultFailureCooldown    = 2 * time.Minute
	DefaultUnhealthyThreshold = 5
	DefaultMinSpacing         = 1500 * time.Millisecond
	DefaultMaxWait            = 30 * time.Second
)

// Settings tunes the dispatcher policy.
type Settings struct {
	Name string

	// RateLimitCooldown is applied after a classified rate-limit failure.
	RateLimitCooldown time.Duration
	// FailureCooldown is applied after any other failure.
	FailureCooldown time.Duration
	// UnhealthyThreshold is the consecutive generic failure count that marks
	// a credential unhealthy until it is reset manually.
	UnhealthyThreshold int
	// MinSpacing is the minimum time between two uses of one credential.
	MinSpacing time.Duration
	// MaxWait caps a single sleep while the whole pool is cooling.
	MaxWait time.Duration
	// MaxWaits bounds the number of exhaustion sleeps in one Execute call.
	// 0 means unbounded.
	MaxWaits int

	clock    Clock
	observer Observer
	logger   *slog.Logger
}

// DefaultSettings returns the standard dispatcher policy.
func DefaultSettings() Settings {
	return Settings{
		Name:               "default",
		RateLimitCooldown:  DefaultRateLimitCooldown,
		FailureCooldown:    DefaultFailureCooldown,
		UnhealthyThreshold: DefaultUnhealthyThreshold,
		MinSpacing:         DefaultMinSpacing,
		MaxWait:            DefaultMaxWait,
	}
}

// Option configures a Pool.
type Option func(*Settings)

// WithSettings overrides every non-zero policy field of s.
func WithSettings(s Settings) Option {
	return func(dst *Settings) {
		if s.Name != "" {
			dst.Name = s.Name
		}
		if s.RateLimitCooldown > 0 {
			dst.RateLimitCooldown = s.RateLimitCooldown
		}
		if s.FailureCooldown > 0 {
			dst.FailureCooldown = s.FailureCooldown
		}
		if s.UnhealthyThreshold > 0 {
			dst.UnhealthyThreshold = s.UnhealthyThreshold
		}
		if s.MinSpacing > 0 {
			dst.MinSpacing = s.MinSpacing
		}
		if s.MaxWait > 0 {
			dst.MaxWait = s.MaxWait
		}
		if s.MaxWaits > 0 {
			dst.MaxWaits = s.MaxWaits
		}
	}
}

// WithName sets the pool name used in logs and metrics.
func WithName(name string) Option {
	return func(s *Settings) { s.Name = name }
}

// WithCooldowns sets the rate-limit and generic failure cooldowns.
func WithCooldowns(rateLimit, failure time.Duration) Option {
	return func(s *Settings) {
		s.RateLimitCooldown = rateLimit
		s.FailureCooldown = failure
	}
}

// WithMinSpacing sets the per-credential spacing. 0 disables it.
func WithMinSpacing(d time.Duration) Option {
	return func(s *Settings) { s.MinSpacing = d }
}

// WithMaxWaits bounds exhaustion sleeps per call.
func WithMaxWaits(n int) Option {
	return func(s *Settings) { s.MaxWaits = n }
}

// WithClock replaces the wall clock, mostly for tests.
func WithClock(c Clock) Option {
	return func(s *Settings) { s.clock = c }
}

// WithObserver registers an attempt observer.
func WithObserver(o Observer) Option {
	return func(s *Settings) { s.observer = o }
}

// WithLogger sets the base logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Settings) { s.logger = l }
}
