package usecase

import (
	"errors"
	"fmt"
	"time"

	"github.com/fairyhunter13/ats-matcher/internal/domain"
)

// DefaultFreshness is how long a stored analysis is served without recomputation.
const DefaultFreshness = 24 * time.Hour

// AnalysisCache serves stored analyses inside the freshness window.
// Stale rows are not deleted; the next computation overwrites them.
type AnalysisCache struct {
	Repo      domain.AnalysisRepository
	Freshness time.Duration
	Now       func() time.Time
}

// NewAnalysisCache constructs an AnalysisCache. Non-positive freshness uses DefaultFreshness.
func NewAnalysisCache(repo domain.AnalysisRepository, freshness time.Duration) *AnalysisCache {
	if freshness <= 0 {
		freshness = DefaultFreshness
	}
	return &AnalysisCache{Repo: repo, Freshness: freshness, Now: time.Now}
}

func (c *AnalysisCache) now() time.Time { return c.Now().UTC() }

// Lookup returns the stored result for key when it is younger than the freshness window.
func (c *AnalysisCache) Lookup(ctx domain.Context, key domain.AnalysisKey) (domain.AnalysisResult, bool, error) {
	res, err := c.Repo.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.AnalysisResult{}, false, nil
		}
		return domain.AnalysisResult{}, false, fmt.Errorf("op=cache.Lookup: %w", err)
	}
	if c.now().Sub(res.AnalysisDate.UTC()) >= c.Freshness {
		return domain.AnalysisResult{}, false, nil
	}
	return res, true, nil
}

// Store upserts result under its key. A zero AnalysisDate is stamped with the current UTC time.
func (c *AnalysisCache) Store(ctx domain.Context, res domain.AnalysisResult) error {
	if res.AnalysisDate.IsZero() {
		res.AnalysisDate = c.now()
	}
	res.AnalysisDate = res.AnalysisDate.UTC()
	if res.Strengths == nil {
		res.Strengths = []string{}
	}
	if res.Weaknesses == nil {
		res.Weaknesses = []string{}
	}
	if err := c.Repo.Upsert(ctx, res); err != nil {
		return fmt.Errorf("op=cache.Store: %w", err)
	}
	return nil
}
