// Package kvcache caches derived text (annotations, summaries) in the key-value store.
// Every failure degrades to a cache miss.
package kvcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/lorelink/internal/db"
	"github.com/kailas-cloud/lorelink/internal/domain"
)

// store is the consumer interface for the cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Cache is a named, content-addressed string cache.
type Cache struct {
	store      store
	name       string
	prefix     string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a cache. cacheTotal has labels "cache" and "result" ("hit"/"miss") and may be nil.
func New(s store, name string, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *Cache {
	return &Cache{
		store:      s,
		name:       name,
		prefix:     domain.KeyPrefix,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// WithTTL sets the entry lifetime. Zero keeps entries until evicted.
func (c *Cache) WithTTL(ttl time.Duration) *Cache {
	if ttl >= 0 {
		c.ttl = ttl
	}
	return c
}

// WithKeyPrefix overrides the storage key prefix.
func (c *Cache) WithKeyPrefix(prefix string) *Cache {
	if prefix != "" {
		c.prefix = prefix
	}
	return c
}

// Key derives the storage key from the parts identifying an entry.
func (c *Cache) Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return c.prefix + c.name + "_cache:" + hex.EncodeToString(h.Sum(nil))
}

// Get looks up the entry for parts.
func (c *Cache) Get(ctx context.Context, parts ...string) (string, bool) {
	key := c.Key(parts...)
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to read cache", zap.String("cache", c.name), zap.String("key", key), zap.Error(err))
		}
		c.inc("miss")
		return "", false
	}
	c.inc("hit")
	return string(data), true
}

// Put stores value for parts. Errors are logged, never returned.
func (c *Cache) Put(ctx context.Context, value string, parts ...string) {
	key := c.Key(parts...)
	if err := c.store.SetWithTTL(ctx, key, []byte(value), c.ttl); err != nil {
		c.logger.Warn("Failed to write cache", zap.String("cache", c.name), zap.String("key", key), zap.Error(err))
	}
}

func (c *Cache) inc(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(c.name, result).Inc()
	}
}
