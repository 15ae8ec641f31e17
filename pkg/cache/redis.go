// Copyright 2025 The ragd Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/youngouk/RAG-Standard-sub002/internal/retry"
	"github.com/youngouk/RAG-Standard-sub002/pkg/config"
	"github.com/youngouk/RAG-Standard-sub002/pkg/search"
)

// RedisCache is the distributed cache variant. Transient transport errors
// retry with backoff; when redis stays unreachable the cache serves from a
// local in-memory fallback so requests keep flowing.
type RedisCache struct {
	client   *redis.Client
	fallback *MemoryCache
	prefix   string
	ttl      time.Duration
	retryCfg retry.Config
	logger   *slog.Logger

	hits          int64
	misses        int64
	sets          int64
	invalidations int64
	fallbackOps   int64
}

var _ Manager = (*RedisCache)(nil)

// NewRedisCache creates the redis-backed cache. REDIS_URL overrides the
// configured address when set.
func NewRedisCache(cfg *config.RedisCacheConfig) (*RedisCache, error) {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if url := os.Getenv("REDIS_URL"); url != "" {
		parsed, err := redis.ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		opts = parsed
	}

	retryCfg := retry.DefaultConfig()
	retryCfg.Delay = 100 * time.Millisecond

	return &RedisCache{
		client:   redis.NewClient(opts),
		fallback: NewMemoryCache(1000, time.Duration(cfg.TTL)*time.Second),
		prefix:   cfg.Prefix,
		ttl:      time.Duration(cfg.TTL) * time.Second,
		retryCfg: retryCfg,
		logger:   slog.Default().With("component", "redis_cache"),
	}, nil
}

// Get looks up key in redis, serving from the local fallback on transport
// failure.
func (c *RedisCache) Get(ctx context.Context, key string) ([]search.Result, bool) {
	var payload string
	err := retry.Do(ctx, c.retryCfg, func() error {
		var err error
		payload, err = c.client.Get(ctx, c.prefix+key).Result()
		if errors.Is(err, redis.Nil) {
			// A miss is a final answer, not a transport failure.
			return nil
		}
		return err
	})
	if err != nil {
		c.logger.Warn("redis get failed, falling back to local cache", "error", err)
		atomic.AddInt64(&c.fallbackOps, 1)
		return c.fallback.Get(ctx, key)
	}
	if payload == "" {
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}

	var results []search.Result
	if err := json.Unmarshal([]byte(payload), &results); err != nil {
		c.logger.Warn("corrupt cache entry dropped", "key", key, "error", err)
		_ = c.client.Del(ctx, c.prefix+key).Err()
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}
	atomic.AddInt64(&c.hits, 1)
	return results, true
}

// Set stores results in redis, writing to the local fallback on failure.
func (c *RedisCache) Set(ctx context.Context, key string, results []search.Result, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}

	payload, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	err = retry.Do(ctx, c.retryCfg, func() error {
		return c.client.Set(ctx, c.prefix+key, payload, ttl).Err()
	})
	if err != nil {
		c.logger.Warn("redis set failed, writing to local cache", "error", err)
		atomic.AddInt64(&c.fallbackOps, 1)
		return c.fallback.Set(ctx, key, results, ttl)
	}
	atomic.AddInt64(&c.sets, 1)
	return nil
}

// Invalidate drops one key from redis and the fallback.
func (c *RedisCache) Invalidate(ctx context.Context, key string) error {
	atomic.AddInt64(&c.invalidations, 1)
	_ = c.fallback.Invalidate(ctx, key)
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		c.logger.Warn("redis invalidate failed", "key", key, "error", err)
		return err
	}
	return nil
}

// Clear drops every prefixed key.
func (c *RedisCache) Clear(ctx context.Context) error {
	_ = c.fallback.Clear(ctx)

	iter := c.client.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan failed: %w", err)
	}
	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("cache clear failed: %w", err)
		}
	}
	return nil
}

// Stats returns a snapshot.
func (c *RedisCache) Stats() Stats {
	hits := atomic.LoadInt64(&c.hits)
	misses := atomic.LoadInt64(&c.misses)
	fb := c.fallback.Stats()
	return Stats{
		Hits:          hits + fb.Hits,
		Misses:        misses + fb.Misses,
		Sets:          atomic.LoadInt64(&c.sets) + fb.Sets,
		Invalidations: atomic.LoadInt64(&c.invalidations),
		HitRate:       hitRate(hits+fb.Hits, misses+fb.Misses),
		Provider:      "redis",
	}
}

// Close releases the redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
