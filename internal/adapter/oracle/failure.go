// Package oracle implements the scoring oracle: a single JSON-only chat
// completion call against an OpenAI-compatible endpoint, plus the response
// cache and circuit breaker that wrap it.
package oracle

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/fairyhunter13/ats-matcher/internal/domain"
)

// FailureKind tags why a completion call failed.
type FailureKind string

const (
	KindNetwork     FailureKind = "network"
	KindTimeout     FailureKind = "timeout"
	KindStatus      FailureKind = "status"
	KindMalformed   FailureKind = "malformed"
	KindUnavailable FailureKind = "unavailable"
	KindThrottled   FailureKind = "throttled"
)

// Failure is the single error type returned by the oracle.
// It matches domain.ErrOracleFailure, and malformed failures also match domain.ErrMalformedResponse.
type Failure struct {
	Kind       FailureKind
	StatusCode int
	Err        error
}

func (f *Failure) Error() string {
	switch {
	case f.StatusCode != 0 && f.Err != nil:
		return fmt.Sprintf("oracle %s (status %d): %v", f.Kind, f.StatusCode, f.Err)
	case f.StatusCode != 0:
		return fmt.Sprintf("oracle %s (status %d)", f.Kind, f.StatusCode)
	case f.Err != nil:
		return fmt.Sprintf("oracle %s: %v", f.Kind, f.Err)
	default:
		return fmt.Sprintf("oracle %s", f.Kind)
	}
}

func (f *Failure) Unwrap() error { return f.Err }

// Is lets errors.Is match the domain sentinels.
func (f *Failure) Is(target error) bool {
	switch target {
	case domain.ErrOracleFailure:
		return true
	case domain.ErrMalformedResponse:
		return f.Kind == KindMalformed
	}
	return false
}

// Retryable reports whether another attempt could plausibly succeed.
func (f *Failure) Retryable() bool {
	switch f.Kind {
	case KindNetwork, KindTimeout, KindThrottled:
		return true
	case KindStatus:
		return f.StatusCode == http.StatusTooManyRequests || f.StatusCode >= 500
	default:
		return false
	}
}

// countsAgainstBreaker is true for failures that indicate the upstream is unhealthy.
func (f *Failure) countsAgainstBreaker() bool {
	return f.Kind == KindNetwork || f.Kind == KindTimeout || (f.Kind == KindStatus && f.Retryable())
}

// AsFailure extracts a *Failure from err.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

func malformed(format string, args ...any) *Failure {
	return &Failure{Kind: KindMalformed, Err: fmt.Errorf(format, args...)}
}
