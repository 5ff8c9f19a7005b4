package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vietddude/keypool/internal/pool"
)

var (
	// AttemptsTotal tracks operation attempts per key and outcome
	AttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keypool_attempts_total",
			Help: "Total number of operation attempts",
		},
		[]string{"pool", "index", "outcome"},
	)

	// AttemptLatency tracks operation latency
	AttemptLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "keypool_attempt_latency_seconds",
			Help:    "Operation attempt latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"pool", "outcome"},
	)

	// ExhaustionWaits tracks sleeps taken while every key was cooling
	ExhaustionWaits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keypool_exhaustion_waits_total",
			Help: "Total number of waits because no key was eligible",
		},
		[]string{"pool"},
	)

	// ExhaustionWaitSeconds tracks time spent in those sleeps
	ExhaustionWaitSeconds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keypool_exhaustion_wait_seconds_total",
			Help: "Total seconds spent waiting for a key cooldown to end",
		},
		[]string{"pool"},
	)

	// AvailableKeys tracks keys that are healthy and not cooling
	AvailableKeys = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "keypool_available_credentials",
			Help: "Number of credentials currently eligible for selection",
		},
		[]string{"pool"},
	)

	// CoolingKeys tracks keys on cooldown
	CoolingKeys = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "keypool_cooling_credentials",
			Help: "Number of credentials currently cooling down",
		},
		[]string{"pool"},
	)
)

// Observer records pool events as Prometheus metrics.
type Observer struct{}

// ObserveAttempt implements pool.Observer.
func (Observer) ObserveAttempt(a pool.Attempt) {
	outcome := string(a.Outcome)
	AttemptsTotal.WithLabelValues(a.Pool, strconv.Itoa(a.Index), outcome).Inc()
	AttemptLatency.WithLabelValues(a.Pool, outcome).Observe(a.Latency.Seconds())
}

// ObserveWait implements pool.Observer.
func (Observer) ObserveWait(poolName string, d time.Duration) {
	ExhaustionWaits.WithLabelValues(poolName).Inc()
	ExhaustionWaitSeconds.WithLabelValues(poolName).Add(d.Seconds())
}

// RecordStats refreshes the availability gauges from a snapshot.
func RecordStats(stats pool.PoolStats) {
	AvailableKeys.WithLabelValues(stats.Name).Set(float64(stats.Available))
	CoolingKeys.WithLabelValues(stats.Name).Set(float64(stats.Cooling))
}
