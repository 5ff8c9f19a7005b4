package pool

import "time"

// Outcome classifies one attempt.
type Outcome string

const (
	OutcomeSuccess     Outcome = "success"
	OutcomeRateLimited Outcome = "rate_limited"
	OutcomeFailed      Outcome = "failed"
)

// Attempt describes one operation invocation through one credential.
type Attempt struct {
	Pool      string
	Operation string
	Index     int
	Key       string // masked
	Outcome   Outcome
	Err       error
	Latency   time.Duration
	At        time.Time
}

// Observer receives attempt and wait events. Implementations must not block;
// they are called from the caller's goroutine outside the pool lock.
type Observer interface {
	ObserveAttempt(a Attempt)
	ObserveWait(pool string, d time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveAttempt(Attempt)             {}
func (nopObserver) ObserveWait(string, time.Duration) {}

type multiObserver []Observer

// Observers fans events out to every non-nil observer.
func Observers(obs ...Observer) Observer {
	var m multiObserver
	for _, o := range obs {
		if o != nil {
			m = append(m, o)
		}
	}
	return m
}

func (m multiObserver) ObserveAttempt(a Attempt) {
	for _, o := range m {
		o.ObserveAttempt(a)
	}
}

func (m multiObserver) ObserveWait(pool string, d time.Duration) {
	for _, o := range m {
		o.ObserveWait(pool, d)
	}
}
