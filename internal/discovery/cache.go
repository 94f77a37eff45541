package discovery

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/JakeFAU/hiring-scanner/internal/logging"
)

const cacheKeyPrefix = "scanner:search:"

type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// CachedSearcher memoizes search results in Redis for a fixed TTL.
// Redis failures fall through to the wrapped searcher.
type CachedSearcher struct {
	next   Searcher
	rdb    redisClient
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedSearcher wraps next with a Redis cache.
func NewCachedSearcher(next Searcher, rdb redisClient, ttl time.Duration, logger *zap.Logger) *CachedSearcher {
	return &CachedSearcher{next: next, rdb: rdb, ttl: ttl, logger: logging.OrNop(logger).Named("search_cache")}
}

// Search returns cached links for query or delegates and stores the result.
func (c *CachedSearcher) Search(ctx context.Context, query string) ([]string, error) {
	key := CacheKey(query)
	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var links []string
		if jsonErr := json.Unmarshal(raw, &links); jsonErr == nil {
			return links, nil
		}
		c.logger.Debug("discarding corrupt cache entry", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.logger.Debug("cache read failed", zap.String("key", key), zap.Error(err))
	}

	links, err := c.next.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(links)
	if err != nil {
		return links, nil
	}
	if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Debug("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return links, nil
}

// CacheKey is the Redis key for query.
func CacheKey(query string) string {
	sum := sha256.Sum256([]byte(query))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

// DialRedis parses redisURL and verifies connectivity.
func DialRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
