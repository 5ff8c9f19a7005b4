package pool

import (
	"errors"
	"fmt"
)

var (
	// ErrNoCredentials is returned when Initialize finds no usable credential.
	ErrNoCredentials = errors.New("no credentials")

	// ErrPoolExhausted is matched by every PoolExhaustedError.
	ErrPoolExhausted = errors.New("credential pool exhausted")
)

// ConfigurationError reports an unusable credential configuration.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil && !errors.Is(e.Err, ErrNoCredentials) {
		return fmt.Sprintf("keypool configuration: %s: %v", e.Reason, e.Err)
	}
	return "keypool configuration: " + e.Reason
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// PoolExhaustedError is the only failure Execute surfaces: no credential
// could complete the operation.
type PoolExhaustedError struct {
	Operation string
	Tried     int
	LastErr   error
}

func (e *PoolExhaustedError) Error() string {
	msg := fmt.Sprintf("%s: all credentials exhausted for %q after trying %d",
		ErrPoolExhausted, e.Operation, e.Tried)
	if e.LastErr != nil {
		msg += ": last error: " + e.LastErr.Error()
	}
	return msg
}

// Unwrap returns ErrPoolExhausted. LastErr is not part of the chain.
func (e *PoolExhaustedError) Unwrap() error {
	return ErrPoolExhausted
}
