package provider

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Default rate limits per catalog (requests per second).
var defaultRateLimits = map[Name]rate.Limit{
	NameMusicBrainz: 1,
	NameCoverArt:    1,
	NameDiscogs:     1,
}

// RateLimiterMap holds one rate.Limiter per catalog, created once at startup
// and shared by every adapter instance.
type RateLimiterMap struct {
	mu       sync.RWMutex
	limiters map[Name]*rate.Limiter
}

// NewRateLimiterMap creates all catalog rate limiters.
func NewRateLimiterMap() *RateLimiterMap {
	m := &RateLimiterMap{
		limiters: make(map[Name]*rate.Limiter, len(defaultRateLimits)),
	}
	for name, limit := range defaultRateLimits {
		m.limiters[name] = rate.NewLimiter(limit, 1)
	}
	return m
}

// Wait blocks until the rate limiter for the given catalog allows a request,
// or the context is canceled.
func (m *RateLimiterMap) Wait(ctx context.Context, name Name) error {
	m.mu.RLock()
	limiter, ok := m.limiters[name]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	return limiter.Wait(ctx)
}

// QuotaTracker tracks a remaining-requests count reported by response
// headers. One instance is shared process-wide so successive calls observe
// cumulative throttling.
type QuotaTracker struct {
	mu        sync.Mutex
	remaining int
	threshold int
	backoff   time.Duration
}

// NewQuotaTracker creates a tracker that reports throttling once the
// remaining count drops to threshold or below.
func NewQuotaTracker(threshold int, backoff time.Duration) *QuotaTracker {
	return &QuotaTracker{
		remaining: threshold + 1,
		threshold: threshold,
		backoff:   backoff,
	}
}

// Record stores the remaining-request count from the latest response.
func (q *QuotaTracker) Record(remaining int) {
	q.mu.Lock()
	q.remaining = remaining
	q.mu.Unlock()
}

// Throttled reports whether the remaining quota has dropped to the threshold.
func (q *QuotaTracker) Throttled() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.remaining <= q.threshold
}

// Pause sleeps for the courtesy backoff when throttled, so the quota window
// can recover before the next request. Returns early if ctx is canceled.
func (q *QuotaTracker) Pause(ctx context.Context) error {
	if !q.Throttled() {
		return nil
	}
	timer := time.NewTimer(q.backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
