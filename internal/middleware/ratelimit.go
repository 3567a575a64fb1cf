package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var rateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "findly",
	Subsystem: "http",
	Name:      "rate_limited_total",
	Help:      "Requests rejected by the rate limiter.",
})

// RateLimiter is a fixed-window per-IP request limiter backed by Redis.
// When Redis is unreachable it fails open: search must keep working
// through a cache outage.
type RateLimiter struct {
	client      *redis.Client
	maxRequests int
	window      time.Duration
	logger      *zap.SugaredLogger
}

// NewRateLimiter creates a rate limiter allowing maxRequests per window
func NewRateLimiter(client *redis.Client, maxRequests, windowSeconds int, logger *zap.SugaredLogger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if maxRequests <= 0 {
		maxRequests = 60
	}
	if windowSeconds <= 0 {
		windowSeconds = 60
	}
	return &RateLimiter{
		client:      client,
		maxRequests: maxRequests,
		window:      time.Duration(windowSeconds) * time.Second,
		logger:      logger,
	}
}

// Middleware returns the gin handler enforcing the limit
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.client == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		windowSecs := int64(rl.window.Seconds())
		bucket := time.Now().Unix() / windowSecs
		key := fmt.Sprintf("rate_limit:%s:%d", c.ClientIP(), bucket)

		count, err := rl.client.Incr(ctx, key).Result()
		if err != nil {
			rl.logger.Warnf("⚠️ rate limiter unavailable, allowing request: %v", err)
			c.Next()
			return
		}
		if count == 1 {
			rl.client.Expire(ctx, key, rl.window)
		}

		remaining := rl.maxRequests - int(count)
		if remaining < 0 {
			remaining = 0
		}
		reset := (bucket + 1) * windowSecs

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.maxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(reset, 10))
		c.Header("X-RateLimit-Window", strconv.FormatInt(windowSecs, 10))

		if int(count) > rl.maxRequests {
			rateLimitedTotal.Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many requests",
				"message":     "Te veel zoekopdrachten. Probeer het zo opnieuw.",
				"retry_after": reset - time.Now().Unix(),
			})
			return
		}

		c.Next()
	}
}
