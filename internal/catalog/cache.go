// Package catalog resolves courses and content titles.
package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aura-webinar/coursestats/internal/metrics"
	"github.com/aura-webinar/coursestats/internal/usagestats"
)

const titleKeyPrefix = "title:"

// DefaultTitleTTL is used when NewTitleCache is given a non-positive TTL.
const DefaultTitleTTL = 10 * time.Minute

// TitleCache fronts a TitleResolver with Redis. Only found titles are
// cached, so content that gains a title shows up on the next build. A Redis
// failure falls through to the source.
type TitleCache struct {
	client *redis.Client
	source usagestats.TitleResolver
	ttl    time.Duration
	logger *zap.Logger
}

// NewTitleCache creates a cache over source.
func NewTitleCache(client *redis.Client, source usagestats.TitleResolver, ttl time.Duration, logger *zap.Logger) *TitleCache {
	if ttl <= 0 {
		ttl = DefaultTitleTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TitleCache{client: client, source: source, ttl: ttl, logger: logger}
}

// ResolveTitle implements usagestats.TitleResolver.
func (c *TitleCache) ResolveTitle(ctx context.Context, resourceID string) (string, bool, error) {
	key := titleKeyPrefix + resourceID
	title, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		metrics.TitleCacheHits.Inc()
		return title, true, nil
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("title cache read failed", zap.String("resource_id", resourceID), zap.Error(err))
	}
	metrics.TitleCacheMisses.Inc()

	title, ok, err := c.source.ResolveTitle(ctx, resourceID)
	if err != nil || !ok {
		return title, ok, err
	}
	if err := c.client.Set(ctx, key, title, c.ttl).Err(); err != nil {
		c.logger.Warn("title cache write failed", zap.String("resource_id", resourceID), zap.Error(err))
	}
	return title, true, nil
}

// Invalidate drops cached titles, e.g. after content is renamed.
func (c *TitleCache) Invalidate(ctx context.Context, resourceIDs ...string) error {
	if len(resourceIDs) == 0 {
		return nil
	}
	keys := make([]string, len(resourceIDs))
	for i, id := range resourceIDs {
		keys[i] = titleKeyPrefix + id
	}
	return c.client.Del(ctx, keys...).Err()
}
