package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fairyhunter13/ats-matcher/internal/domain"
)

// Limiter is the token bucket consulted before each upstream call.
type Limiter interface {
	Allow(ctx context.Context, key string, cost int64) (allowed bool, retryAfter time.Duration, err error)
}

// BucketKey names the shared bucket for oracle calls.
const BucketKey = "oracle:completions"

// Throttled gates an Oracle behind a shared rate limit. A denied call returns a
// retryable KindThrottled failure without touching the upstream.
type Throttled struct {
	base    domain.Oracle
	limiter Limiter
	bucket  string
}

// NewThrottled returns base unchanged when limiter is nil.
func NewThrottled(base domain.Oracle, limiter Limiter) domain.Oracle {
	if limiter == nil {
		return base
	}
	return &Throttled{base: base, limiter: limiter, bucket: BucketKey}
}

func (t *Throttled) Complete(ctx domain.Context, req domain.OracleRequest) (domain.OracleResponse, error) {
	allowed, retryAfter, err := t.limiter.Allow(ctx, t.bucket, 1)
	if err != nil {
		// limiter failures fail open
		slog.Warn("oracle rate limiter unavailable", slog.Any("error", err))
	}
	if !allowed {
		return domain.OracleResponse{}, fmt.Errorf("op=oracle.Throttled: %w",
			&Failure{Kind: KindThrottled, Err: fmt.Errorf("rate limited, retry after %s", retryAfter)})
	}
	return t.base.Complete(ctx, req)
}
