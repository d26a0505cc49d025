package providers

import (
	"context"
	"math"
	"sync"
	"time"
)

// RateLimiter implements a token bucket rate limiter. The bucket holds up to
// one second of requests and refills continuously.
type RateLimiter struct {
	mu sync.Mutex

	// Configuration
	rps   float64
	burst float64

	// Token bucket state
	tokens     float64
	lastUpdate time.Time

	// Statistics
	totalConsumed int64
	totalWaited   time.Duration
	last429Time   time.Time
}

// RateLimiterStatus reports current limiter state.
type RateLimiterStatus struct {
	RequestsPerSecond float64       `json:"requests_per_second"`
	TokensAvailable   int           `json:"tokens_available"`
	TokensLimit       int           `json:"tokens_limit"`
	Utilization       float64       `json:"utilization"`
	TimeUntilToken    time.Duration `json:"time_until_token"`
	TotalConsumed     int64         `json:"total_consumed"`
	TotalWaited       time.Duration `json:"total_waited"`
	Last429Time       time.Time     `json:"last_429_time,omitempty"`
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(requestsPerSecond float64) *RateLimiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 5 // Default
	}
	burst := math.Max(1, math.Ceil(requestsPerSecond))
	return &RateLimiter{
		rps:        requestsPerSecond,
		burst:      burst,
		tokens:     burst,
		lastUpdate: time.Now(),
	}
}

// Wait blocks until a token is available or context is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		r.refill()

		if r.tokens >= 1.0 {
			r.tokens--
			r.totalConsumed++
			r.mu.Unlock()
			return nil
		}

		waitTime := r.timeUntilToken()
		r.mu.Unlock()

		// Wait outside lock
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitTime):
			r.mu.Lock()
			r.totalWaited += waitTime
			r.mu.Unlock()
		}
	}
}

// TryConsume attempts to consume a token without blocking.
func (r *RateLimiter) TryConsume() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refill()

	if r.tokens >= 1.0 {
		r.tokens--
		r.totalConsumed++
		return true
	}
	return false
}

// Record429 should be called when a 429 error is received. A positive
// retryAfter drains the bucket.
func (r *RateLimiter) Record429(retryAfter time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.last429Time = time.Now()
	if retryAfter > 0 {
		r.tokens = 0
	}
}

// Status returns current limiter status.
func (r *RateLimiter) Status() RateLimiterStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refill()

	utilization := 1.0 - (r.tokens / r.burst)
	if utilization < 0 {
		utilization = 0
	}

	return RateLimiterStatus{
		RequestsPerSecond: r.rps,
		TokensAvailable:   int(r.tokens),
		TokensLimit:       int(r.burst),
		Utilization:       utilization,
		TimeUntilToken:    r.timeUntilToken(),
		TotalConsumed:     r.totalConsumed,
		TotalWaited:       r.totalWaited,
		Last429Time:       r.last429Time,
	}
}

// timeUntilToken must be called with lock held.
func (r *RateLimiter) timeUntilToken() time.Duration {
	if r.tokens >= 1.0 {
		return 0
	}
	return time.Duration((1.0 - r.tokens) / r.rps * float64(time.Second))
}

// refill adds tokens based on elapsed time. Must be called with lock held.
func (r *RateLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(r.lastUpdate).Seconds()
	r.lastUpdate = now

	r.tokens += elapsed * r.rps
	if r.tokens > r.burst {
		r.tokens = r.burst
	}
}
