package pool

import (
	"errors"
	"net/http"
	"strings"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ProviderRateLimitCode is the API's own "rate limit exceeded" error code.
const ProviderRateLimitCode = 88

// Coder is implemented by operation errors that carry a numeric code.
type Coder interface {
	Code() int
}

var rateLimitPatterns = []string{
	"rate limit",
	"too many requests",
}

// IsRateLimit reports whether err represents a rate-limit condition rather
// than a generic failure.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range rateLimitPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}

	var coder Coder
	if errors.As(err, &coder) {
		switch coder.Code() {
		case ProviderRateLimitCode, http.StatusTooManyRequests:
			return true
		}
	}

	return isGRPCRateLimit(err)
}

func isGRPCRateLimit(err error) bool {
	st, ok := status.FromError(err)
	if !ok || st.Code() == codes.OK {
		return false
	}
	if st.Code() == codes.ResourceExhausted {
		return true
	}
	for _, d := range st.Details() {
		if _, ok := d.(*errdetails.QuotaFailure); ok {
			return true
		}
	}
	return false
}
