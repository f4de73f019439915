package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/platinummonkey/ssogate/pkg/contextkeys"
	"github.com/platinummonkey/ssogate/pkg/httputil"
	"github.com/platinummonkey/ssogate/pkg/observability"
)

// RateLimitConfig holds fixed-window rate limit settings
type RateLimitConfig struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// DefaultSignInRateLimit allows a burst of sign-in recordings per session.
// Legitimate IdP round trips happen at human pace; anything faster is a
// replay or a bug.
func DefaultSignInRateLimit() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerWindow: 30,
		WindowDuration:    time.Minute,
	}
}

// SignInRateLimiter limits sign-in recordings per web session using a
// Redis fixed-window counter shared across instances.
type SignInRateLimiter struct {
	redis  *redis.Client
	config *RateLimitConfig
	prefix string
	logger *observability.Logger
}

// NewSignInRateLimiter creates a Redis-backed sign-in rate limiter
func NewSignInRateLimiter(redisClient *redis.Client, config *RateLimitConfig, logger *observability.Logger) *SignInRateLimiter {
	if config == nil {
		config = DefaultSignInRateLimit()
	}
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &SignInRateLimiter{
		redis:  redisClient,
		config: config,
		prefix: "ssogate:ratelimit:signin",
		logger: logger,
	}
}

// Allow checks whether another sign-in recording fits in the window
func (rl *SignInRateLimiter) Allow(ctx context.Context, sessionID string) (bool, error) {
	key := fmt.Sprintf("%s:%s", rl.prefix, sessionID)

	pipe := rl.redis.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, rl.config.WindowDuration)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("redis error: %w", err)
	}

	return incr.Val() <= int64(rl.config.RequestsPerWindow), nil
}

// Remaining returns the number of recordings left in the current window
func (rl *SignInRateLimiter) Remaining(ctx context.Context, sessionID string) (int, error) {
	key := fmt.Sprintf("%s:%s", rl.prefix, sessionID)

	count, err := rl.redis.Get(ctx, key).Int()
	if err == redis.Nil {
		return rl.config.RequestsPerWindow, nil
	} else if err != nil {
		return 0, err
	}

	remaining := rl.config.RequestsPerWindow - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// TTL returns the time until the current window resets
func (rl *SignInRateLimiter) TTL(ctx context.Context, sessionID string) (time.Duration, error) {
	return rl.redis.TTL(ctx, fmt.Sprintf("%s:%s", rl.prefix, sessionID)).Result()
}

// Reset clears the window for a session
func (rl *SignInRateLimiter) Reset(ctx context.Context, sessionID string) error {
	return rl.redis.Del(ctx, fmt.Sprintf("%s:%s", rl.prefix, sessionID)).Err()
}

// Handler wraps an HTTP handler with the sign-in rate limit. Requests
// without a session ID pass through; the handler rejects those itself.
// Redis errors fail open so a cache outage cannot lock users out.
func (rl *SignInRateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		sessionID := contextkeys.GetSessionID(ctx)
		if sessionID == "" {
			next.ServeHTTP(w, r)
			return
		}

		allowed, err := rl.Allow(ctx, sessionID)
		if err != nil {
			rl.logger.WithError(err).Warn("rate limit check failed, allowing request")
			next.ServeHTTP(w, r)
			return
		}

		if !allowed {
			rl.rateLimitExceeded(ctx, w, sessionID)
			return
		}

		if remaining, err := rl.Remaining(ctx, sessionID); err == nil {
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", rl.config.RequestsPerWindow))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *SignInRateLimiter) rateLimitExceeded(ctx context.Context, w http.ResponseWriter, sessionID string) {
	retryAfter := rl.config.WindowDuration.Seconds()
	if ttl, err := rl.TTL(ctx, sessionID); err == nil && ttl > 0 {
		retryAfter = ttl.Seconds()
	}

	w.Header().Set("Retry-After", fmt.Sprintf("%.0f", retryAfter))
	w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", rl.config.RequestsPerWindow))
	w.Header().Set("X-RateLimit-Remaining", "0")
	httputil.WriteErrorMessage(w, http.StatusTooManyRequests, "sign-in rate limit exceeded")
}
