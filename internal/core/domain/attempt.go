package domain

import "time"

// Attempt is one audited operation invocation through one pool credential.
type Attempt struct {
	ID        string    `json:"id"         db:"id"`
	Pool      string    `json:"pool"       db:"pool"`
	Operation string    `json:"operation"  db:"operation"`
	KeyIndex  int       `json:"key_index"  db:"key_index"`
	MaskedKey string    `json:"masked_key" db:"masked_key"`
	Outcome   Outcome   `json:"outcome"    db:"outcome"`
	Error     string    `json:"error_msg"  db:"error_msg"`
	LatencyMs int64     `json:"latency_ms" db:"latency_ms"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Outcome string

const (
	OutcomeSuccess     Outcome = "success"
	OutcomeRateLimited Outcome = "rate_limited"
	OutcomeFailed      Outcome = "failed"
)
