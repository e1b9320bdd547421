package search

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Cache stores raw lookup results.
type Cache interface {
	Get(ctx context.Context, key string) ([]Result, bool, error)
	Set(ctx context.Context, key string, results []Result) error
}

// OpenRedis opens a Redis client, or returns nil when no address is configured.
func OpenRedis(addr, password string) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: password})
}

// RedisCache keeps lookup results in Redis with a fixed TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisCache creates a Redis-backed cache.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, prefix: "mwmap:search:"}
}

// Get returns cached results for key. A miss is not an error.
func (c *RedisCache) Get(ctx context.Context, key string) ([]Result, bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "search: cache get")
	}
	var results []Result
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, false, eris.Wrap(err, "search: cache decode")
	}
	return results, true, nil
}

// Set stores results under key.
func (c *RedisCache) Set(ctx context.Context, key string, results []Result) error {
	if results == nil {
		results = []Result{}
	}
	raw, err := json.Marshal(results)
	if err != nil {
		return eris.Wrap(err, "search: cache encode")
	}
	if err := c.client.Set(ctx, c.prefix+key, raw, c.ttl).Err(); err != nil {
		return eris.Wrap(err, "search: cache set")
	}
	return nil
}

// CacheKey hashes the lookup source, the normalized query and the request scope.
func CacheKey(source string, req Request) string {
	bounds := ""
	if b := req.Bounds; b != nil {
		bounds = fmt.Sprintf("%.4f,%.4f,%.4f,%.4f", b.South, b.West, b.North, b.East)
	}
	normalized := strings.Join([]string{source, fold(strings.TrimSpace(req.Query)), bounds, req.Region, req.Language}, "|")
	h := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", h)
}

type cachedLookup struct {
	next  Lookup
	cache Cache
}

// Cached wraps a lookup with a read-through cache. Cache failures fall through to
// the lookup.
func Cached(next Lookup, cache Cache) Lookup {
	if cache == nil {
		return next
	}
	return &cachedLookup{next: next, cache: cache}
}

func (c *cachedLookup) Source() string {
	return c.next.Source()
}

func (c *cachedLookup) Lookup(ctx context.Context, req Request) ([]Result, error) {
	key := CacheKey(c.next.Source(), req)
	if results, ok, err := c.cache.Get(ctx, key); err != nil {
		zap.L().Warn("search cache read failed", zap.String("source", c.next.Source()), zap.Error(err))
	} else if ok {
		zap.L().Debug("search cache hit", zap.String("source", c.next.Source()), zap.String("key", key[:12]))
		return results, nil
	}

	results, err := c.next.Lookup(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, results); err != nil {
		zap.L().Warn("search cache write failed", zap.String("source", c.next.Source()), zap.Error(err))
	}
	return results, nil
}
