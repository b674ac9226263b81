package github

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultQuota is the hourly allowance assumed for a pool before the
	// first response reports the real one.
	DefaultQuota = 5000

	// DefaultRequestsPerSecond paces requests to about 4320 an hour, which
	// stays under DefaultQuota even for a harvest that runs all hour.
	DefaultRequestsPerSecond = 1.2

	// DefaultReserve is how many requests of a pool are left untouched;
	// below it the limiter sleeps until the pool resets.
	DefaultReserve = 100
)

const (
	headerRateLimit     = "X-RateLimit-Limit"
	headerRateRemaining = "X-RateLimit-Remaining"
	headerRateReset     = "X-RateLimit-Reset"
	headerRateResource  = "X-RateLimit-Resource"
	headerRetryAfter    = "Retry-After"
)

// Resource names one of GitHub's independently metered request pools.
type Resource string

const (
	ResourceCore    Resource = "core"
	ResourceGraphQL Resource = "graphql"
)

// resourceOf picks the pool a request draws from.
func resourceOf(req *http.Request) Resource {
	if strings.HasSuffix(strings.TrimSuffix(req.URL.Path, "/"), "/graphql") {
		return ResourceGraphQL
	}
	return ResourceCore
}

// Quota is the last reported state of a pool.
type Quota struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RateLimiter paces harvest requests and keeps each pool above its reserve.
// Pacing is shared by all pools; quotas are tracked per pool from the
// response headers.
type RateLimiter struct {
	pace    *rate.Limiter
	reserve int

	mu     sync.Mutex
	quotas map[Resource]Quota
}

// NewRateLimiter creates a limiter that allows rps requests per second and
// waits for a reset once fewer than reserve requests remain in a pool.
func NewRateLimiter(rps float64, reserve int) *RateLimiter {
	return &RateLimiter{
		pace:    rate.NewLimiter(rate.Limit(rps), 1),
		reserve: reserve,
		quotas:  make(map[Resource]Quota),
	}
}

// Quota returns the state of pool res. Pools not yet reported are full.
func (r *RateLimiter) Quota(res Resource) Quota {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.quota(res)
}

func (r *RateLimiter) quota(res Resource) Quota {
	if q, ok := r.quotas[res]; ok {
		return q
	}
	return Quota{Limit: DefaultQuota, Remaining: DefaultQuota}
}

// Wait blocks until a request to pool res may be sent: first for the pace,
// then, if the pool is down to its reserve, until the pool resets.
func (r *RateLimiter) Wait(ctx context.Context, res Resource) error {
	if err := r.pace.Wait(ctx); err != nil {
		return err
	}

	q := r.Quota(res)
	if q.Remaining >= r.reserve || !time.Now().Before(q.ResetAt) {
		return nil
	}
	timer := time.NewTimer(time.Until(q.ResetAt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Observe records the quota headers of resp for pool res, or for the pool
// the response names, and reports a RateLimitError when GitHub refused the
// request for quota reasons.
func (r *RateLimiter) Observe(res Resource, resp *http.Response) error {
	if resp == nil {
		return nil
	}
	if named := resp.Header.Get(headerRateResource); named != "" {
		res = Resource(named)
	}

	r.mu.Lock()
	q := r.quota(res)
	if n, ok := headerInt(resp, headerRateLimit); ok {
		q.Limit = n
	}
	if n, ok := headerInt(resp, headerRateRemaining); ok {
		q.Remaining = n
	}
	if n, ok := headerInt(resp, headerRateReset); ok {
		q.ResetAt = time.Unix(int64(n), 0)
	}
	r.quotas[res] = q
	r.mu.Unlock()

	limited := resp.StatusCode == http.StatusTooManyRequests ||
		(resp.StatusCode == http.StatusForbidden && q.Remaining == 0)
	if !limited {
		return nil
	}

	// Secondary limits answer with Retry-After instead of a reset time.
	resetAt := q.ResetAt
	if seconds, ok := headerInt(resp, headerRetryAfter); ok {
		resetAt = time.Now().Add(time.Duration(seconds) * time.Second)
	}
	return &RateLimitError{
		ResetAt:    resetAt,
		Remaining:  q.Remaining,
		Limit:      q.Limit,
		StatusCode: resp.StatusCode,
	}
}

func headerInt(resp *http.Response, name string) (int, bool) {
	v := resp.Header.Get(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
