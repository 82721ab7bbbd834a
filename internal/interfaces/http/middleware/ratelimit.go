package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/custdesk/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter keeps a token bucket per key. Keys are client IPs or form
// sessions. A bucket holds limit tokens and refills one every window/limit,
// so a full bucket is back after one window of silence.
type RateLimiter struct {
	limit  int
	window time.Duration
	every  rate.Limit

	mu      sync.Mutex
	buckets map[string]*keyBucket

	stop     chan struct{}
	stopOnce sync.Once
}

type keyBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows bursts of limit requests per key, refilled over
// window. Stop ends the background sweep of idle keys.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit < 1 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	rl := &RateLimiter{
		limit:   limit,
		window:  window,
		every:   rate.Every(window / time.Duration(limit)),
		buckets: make(map[string]*keyBucket),
		stop:    make(chan struct{}),
	}
	go rl.sweep(2 * window)
	return rl
}

// Stop ends the sweep loop. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// sweep drops buckets idle for a full window; they would be full again
func (rl *RateLimiter) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case now := <-ticker.C:
			rl.mu.Lock()
			for key, b := range rl.buckets {
				if now.Sub(b.lastSeen) >= rl.window {
					delete(rl.buckets, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Take spends one token from key's bucket. It reports the whole tokens left
// and whether the request fits.
func (rl *RateLimiter) Take(key string) (remaining int, ok bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, exists := rl.buckets[key]
	if !exists {
		b = &keyBucket{limiter: rate.NewLimiter(rl.every, rl.limit)}
		rl.buckets[key] = b
	}
	b.lastSeen = now

	ok = b.limiter.AllowN(now, 1)
	return wholeTokens(b.limiter.TokensAt(now)), ok
}

// Allow is Take without the remaining count
func (rl *RateLimiter) Allow(key string) bool {
	_, ok := rl.Take(key)
	return ok
}

// Remaining returns the whole tokens left for key without spending any
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, exists := rl.buckets[key]
	if !exists {
		return rl.limit
	}
	return wholeTokens(b.limiter.Tokens())
}

// RetryAfter is the wait, rounded up to whole seconds, for one token to refill
func (rl *RateLimiter) RetryAfter() int {
	return max(1, int(math.Ceil((rl.window / time.Duration(rl.limit)).Seconds())))
}

func wholeTokens(tokens float64) int {
	if tokens < 0 {
		return 0
	}
	return int(math.Floor(tokens))
}

// RateLimit limits requests per client IP
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return RateLimitByKey(limiter, func(c *gin.Context) string {
		return c.ClientIP()
	})
}

// FormSessionKey keys a limiter by the :id path parameter of form routes
func FormSessionKey(c *gin.Context) string {
	return "form:" + c.Param("id")
}

// RateLimitByKey limits requests per key returned by keyFunc
func RateLimitByKey(limiter *RateLimiter, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	limit := strconv.Itoa(limiter.limit)
	retryAfter := strconv.Itoa(limiter.RetryAfter())

	return func(c *gin.Context) {
		remaining, ok := limiter.Take(keyFunc(c))
		c.Header("X-RateLimit-Limit", limit)
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !ok {
			c.Header("Retry-After", retryAfter)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeRateLimited,
				"Too many requests, slow down",
				getRequestID(c),
			))
			return
		}
		c.Next()
	}
}
