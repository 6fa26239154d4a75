package oracle

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fairyhunter13/ats-matcher/internal/adapter/observability"
	"github.com/fairyhunter13/ats-matcher/internal/domain"
)

// responseCache wraps an Oracle and memoizes successful responses by a hash of
// the full request. Failures are never cached, entries expire after ttl and
// eviction is FIFO. Requests on a context marked with domain.WithFreshOracle
// always go upstream and refresh the entry.
// It is safe for concurrent use.
type responseCache struct {
	base     domain.Oracle
	capacity int
	ttl      time.Duration
	now      func() time.Time
	mu       sync.RWMutex
	m        map[string]cacheEntry
	ord      []string
}

type cacheEntry struct {
	resp    domain.OracleResponse
	expires time.Time
}

// NewResponseCache wraps base with a response cache of given capacity (number of entries)
// whose entries live for ttl. If capacity or ttl is not positive, base is returned unmodified.
func NewResponseCache(base domain.Oracle, capacity int, ttl time.Duration) domain.Oracle {
	if capacity <= 0 || ttl <= 0 || base == nil {
		return base
	}
	return &responseCache{
		base:     base,
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		m:        make(map[string]cacheEntry),
		ord:      make([]string, 0, capacity),
	}
}

func (c *responseCache) Complete(ctx domain.Context, req domain.OracleRequest) (domain.OracleResponse, error) {
	k := requestKey(req)
	if !domain.FreshOracle(ctx) {
		c.mu.RLock()
		e, ok := c.m[k]
		c.mu.RUnlock()
		if ok && c.now().Before(e.expires) {
			observability.OracleCacheTotal.WithLabelValues("hit").Inc()
			return e.resp, nil
		}
		observability.OracleCacheTotal.WithLabelValues("miss").Inc()
	} else {
		observability.OracleCacheTotal.WithLabelValues("bypass").Inc()
	}

	resp, err := c.base.Complete(ctx, req)
	if err != nil {
		return domain.OracleResponse{}, err
	}
	c.put(k, resp)
	return resp, nil
}

// Reject forgets the response cached for req.
func (c *responseCache) Reject(req domain.OracleRequest) {
	k := requestKey(req)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.m[k]; !ok {
		return
	}
	delete(c.m, k)
	for i, key := range c.ord {
		if key == k {
			c.ord = append(c.ord[:i], c.ord[i+1:]...)
			break
		}
	}
}

func (c *responseCache) put(k string, resp domain.OracleResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := cacheEntry{resp: resp, expires: c.now().Add(c.ttl)}
	if _, exists := c.m[k]; exists {
		c.m[k] = e
		return
	}
	if len(c.ord) >= c.capacity {
		old := c.ord[0]
		c.ord = c.ord[1:]
		delete(c.m, old)
	}
	c.m[k] = e
	c.ord = append(c.ord, k)
}

// Len reports the number of cached responses.
func (c *responseCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

func requestKey(req domain.OracleRequest) string {
	h := sha256.New()
	h.Write([]byte(strings.TrimSpace(req.SystemInstruction)))
	h.Write([]byte{0})
	h.Write([]byte(strings.TrimSpace(req.UserPrompt)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(clampMaxTokens(req.MaxTokens))))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatFloat(clampTemperature(req.Temperature), 'f', 3, 64)))
	return hex.EncodeToString(h.Sum(nil))
}
