package oracle

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fairyhunter13/ats-matcher/internal/adapter/observability"
	"github.com/fairyhunter13/ats-matcher/internal/domain"
)

// CircuitState represents the state of a circuit breaker
type CircuitState int

const (
	// CircuitClosed indicates calls are passed through.
	CircuitClosed CircuitState = iota
	// CircuitOpen indicates calls fail fast after consecutive upstream failures.
	CircuitOpen
	// CircuitHalfOpen indicates one probe call is allowed to test recovery.
	CircuitHalfOpen
)

func (cs CircuitState) String() string {
	switch cs {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker wraps an Oracle and stops calling it after threshold consecutive
// upstream failures, until cooldown has passed. Malformed responses do not
// count: the upstream answered.
type Breaker struct {
	base      domain.Oracle
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	mu            sync.Mutex
	state         CircuitState
	failures      int
	openedAt      time.Time
	probeInFlight bool
	totalCalls    int
	totalFailures int
}

// NewBreaker creates a breaker. Non-positive arguments fall back to 5 failures and 30s.
func NewBreaker(base domain.Oracle, threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{base: base, threshold: threshold, cooldown: cooldown, now: time.Now, state: CircuitClosed}
}

// Complete forwards to the wrapped oracle unless the circuit is open.
func (b *Breaker) Complete(ctx domain.Context, req domain.OracleRequest) (domain.OracleResponse, error) {
	probe, ok := b.allow()
	if !ok {
		return domain.OracleResponse{}, fmt.Errorf("op=oracle.Breaker: %w", &Failure{Kind: KindUnavailable})
	}
	resp, err := b.base.Complete(ctx, req)
	b.record(err, probe)
	return resp, err
}

func (b *Breaker) allow() (probe bool, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case CircuitOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return false, false
		}
		b.setState(CircuitHalfOpen)
		b.probeInFlight = true
		return true, true
	case CircuitHalfOpen:
		if b.probeInFlight {
			return false, false
		}
		b.probeInFlight = true
		return true, true
	default:
		return false, true
	}
}

func (b *Breaker) record(err error, probe bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.totalCalls++
	if probe {
		b.probeInFlight = false
	}

	unhealthy := false
	if err != nil {
		if f, ok := AsFailure(err); ok {
			if f.Kind == KindThrottled {
				// never reached the upstream; a half-open circuit probes again on the next call
				return
			}
			unhealthy = f.countsAgainstBreaker()
		} else {
			unhealthy = true
		}
	}
	if !unhealthy {
		b.failures = 0
		if b.state != CircuitClosed {
			slog.Info("oracle circuit breaker closed after successful probe")
			b.setState(CircuitClosed)
		}
		return
	}

	b.failures++
	b.totalFailures++
	if b.state == CircuitHalfOpen || b.failures >= b.threshold {
		if b.state != CircuitOpen {
			slog.Warn("oracle circuit breaker opened",
				slog.Int("failure_count", b.failures),
				slog.Int("threshold", b.threshold))
		}
		b.openedAt = b.now()
		b.setState(CircuitOpen)
	}
}

func (b *Breaker) setState(s CircuitState) {
	b.state = s
	observability.OracleBreakerState.Set(float64(s))
}

// State returns the current circuit state.
func (b *Breaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Stats returns circuit breaker counters for diagnostics.
func (b *Breaker) Stats() map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return map[string]any{
		"state":          b.state.String(),
		"failure_count":  b.failures,
		"total_calls":    b.totalCalls,
		"total_failures": b.totalFailures,
		"opened_at":      b.openedAt,
	}
}
