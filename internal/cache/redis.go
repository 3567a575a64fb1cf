package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	hitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "findly",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Search responses served from Redis",
	})

	missesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "findly",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Search requests not found in Redis",
	})

	errorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "findly",
		Subsystem: "cache",
		Name:      "errors_total",
		Help:      "Redis operations that failed and were swallowed",
	})
)

// Cache wraps Redis for response caching. Failures are soft: a broken
// cache degrades to recomputing, it never fails the request.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.SugaredLogger
}

// New connects to Redis and verifies the connection with a ping.
func New(addr, password string, db int, ttl time.Duration, logger *zap.SugaredLogger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Cache{client: client, ttl: ttl, logger: logger}, nil
}

// SearchKey builds a deterministic key for a search request. The hash
// keeps arbitrary query text out of Redis key space.
func SearchKey(query string, filters, options interface{}) string {
	payload, _ := json.Marshal(map[string]interface{}{
		"query":   query,
		"filters": filters,
		"options": options,
	})
	sum := sha256.Sum256(payload)
	return "search:" + hex.EncodeToString(sum[:])
}

// Get fetches a cached value into dest. The boolean is false on miss;
// Redis errors are logged and treated as a miss.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		missesTotal.Inc()
		return false
	}
	if err != nil {
		c.logger.Warnf("cache get failed: %v", err)
		errorsTotal.Inc()
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Warnf("cache decode failed: %v", err)
		errorsTotal.Inc()
		return false
	}
	hitsTotal.Inc()
	return true
}

// Set stores a value under key with the configured TTL.
func (c *Cache) Set(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warnf("cache encode failed: %v", err)
		errorsTotal.Inc()
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warnf("cache set failed: %v", err)
		errorsTotal.Inc()
	}
}

// InvalidateSearches drops all cached search responses. Called after
// catalog updates so stale results do not outlive the products.
func (c *Cache) InvalidateSearches(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, "search:*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan search keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete search keys: %w", err)
	}
	c.logger.Infof("🧹 invalidated %d cached searches", len(keys))
	return nil
}

// Client exposes the underlying connection for collaborators that share
// it, like the rate limiter.
func (c *Cache) Client() *redis.Client {
	return c.client
}

// Close releases the connection pool.
func (c *Cache) Close() error {
	return c.client.Close()
}
