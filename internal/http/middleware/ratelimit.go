package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// ClientKey maps a request to the bucket it draws tokens from.
type ClientKey func(*gin.Context) string

// KeyByIP buckets requests by client address. The API has no accounts, so the
// address is the only stable identity.
func KeyByIP() ClientKey {
	return func(c *gin.Context) string {
		return "ip:" + c.ClientIP()
	}
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimiter keeps one token bucket per client in process memory. Buckets
// idle for idleTTL are swept, at most once per idleTTL.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	key     ClientKey
	idleTTL time.Duration
	now     func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

// NewRateLimiter refills rps tokens per second into buckets of size burst.
// A burst below 1 is raised to 1.
func NewRateLimiter(rps float64, burst int, key ClientKey) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		key:     key,
		idleTTL: 10 * time.Minute,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

func (rl *RateLimiter) bucketFor(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) >= rl.idleTTL {
		for k, b := range rl.buckets {
			if now.Sub(b.seen) >= rl.idleTTL {
				delete(rl.buckets, k)
			}
		}
		rl.lastSweep = now
	}

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = b
	}
	b.seen = now
	return b.lim
}

// wait takes a token from lim. It returns 0 when the request may proceed,
// otherwise the whole seconds until a token is due. A refused request
// gives its reservation back.
func wait(lim *rate.Limiter, now time.Time) int {
	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return 1
	}
	d := r.DelayFrom(now)
	if d == 0 {
		return 0
	}
	r.CancelAt(now)
	return int(math.Ceil(d.Seconds()))
}

// IsRateBypass reports whether IdempotencyValidator found a stored reply for
// this request. Replays are served without spending a token.
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Handler rejects a client whose bucket is empty with 429, a Retry-After
// header and the error envelope.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		now := rl.now()
		secs := wait(rl.bucketFor(rl.key(c), now), now)
		if secs == 0 {
			c.Next()
			return
		}

		rateLimited.Inc()
		c.Header("Retry-After", strconv.Itoa(secs))
		abortJSON(c, http.StatusTooManyRequests, "Too many requests")
	}
}
