// Package ratelimit implements per-identity token bucket rate limiting with
// three tiers: anonymous requests keyed by IP, authenticated users, and API
// keys.
package ratelimit

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// Tier configures one class of principal.
type Tier struct {
	// Requests allowed per Window, also used as the bucket burst.
	Requests int
	Window   time.Duration
}

// DefaultTiers mirror the original limits: 10/min anonymous, 30/min per user,
// 60/min per API key.
var (
	DefaultPublicTier = Tier{Requests: 10, Window: time.Minute}
	DefaultUserTier   = Tier{Requests: 30, Window: time.Minute}
	DefaultAPIKeyTier = Tier{Requests: 60, Window: time.Minute}
)

// Decision is the outcome of one rate limit check, carrying everything the
// HTTP layer needs for X-RateLimit-* headers.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	Reset      time.Time
	RetryAfter time.Duration
}

// Limiter tracks one token bucket per key. Idle buckets age out of an
// expiring LRU, so the map does not grow without bound.
type Limiter struct {
	tier Tier

	mu      sync.Mutex
	buckets *lru.LRU[string, *rate.Limiter]
}

// NewLimiter returns a limiter for the tier, tracking at most maxKeys
// identities at once.
func NewLimiter(tier Tier, maxKeys int) *Limiter {
	if maxKeys <= 0 {
		maxKeys = 10000
	}
	return &Limiter{
		tier:    tier,
		buckets: lru.NewLRU[string, *rate.Limiter](maxKeys, nil, 2*tier.Window),
	}
}

// Check consumes one token for key and reports the outcome.
func (l *Limiter) Check(key string) Decision {
	l.mu.Lock()
	bucket, ok := l.buckets.Get(key)
	if !ok {
		bucket = rate.NewLimiter(rate.Every(l.tier.Window/time.Duration(l.tier.Requests)), l.tier.Requests)
		l.buckets.Add(key, bucket)
	}
	l.mu.Unlock()

	now := time.Now()
	decision := Decision{
		Limit: l.tier.Requests,
		Reset: now.Add(l.tier.Window),
	}

	reservation := bucket.ReserveN(now, 1)
	if !reservation.OK() {
		return decision
	}
	if delay := reservation.DelayFrom(now); delay > 0 {
		// Over the limit: hand the token back and tell the client when to
		// come again.
		reservation.CancelAt(now)
		decision.RetryAfter = delay
		return decision
	}

	decision.Allowed = true
	if remaining := int(bucket.TokensAt(now)); remaining > 0 {
		decision.Remaining = remaining
	}
	return decision
}
