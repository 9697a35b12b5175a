package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bekzatkz/dastarhan/internal/adapter/logger"
	"github.com/bekzatkz/dastarhan/internal/config"
	"github.com/bekzatkz/dastarhan/internal/domain"
	"github.com/bekzatkz/dastarhan/internal/interfaces"
)

const defaultTTL = time.Minute

// CatalogCache is a read-through cache over the catalog repository.
// Order intake reads the same few menu items over and over; after the
// order transaction moves stock, the touched entries are evicted so
// availability is never stale past one decrement.
type CatalogCache struct {
	inner  interfaces.CatalogRepository
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func Connect(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func NewCatalogCache(inner interfaces.CatalogRepository, client *redis.Client, ttl time.Duration, logger logger.Logger) *CatalogCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &CatalogCache{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *CatalogCache) FindMenuItem(ctx context.Context, id int64) (*domain.MenuItem, error) {
	key := cacheKey(id)

	cached, err := c.client.Get(ctx, key).Result()
	if err == nil {
		var item domain.MenuItem
		if err := json.Unmarshal([]byte(cached), &item); err == nil {
			return &item, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		// Cache trouble is not a reason to fail the order; fall through
		// to the repository.
		c.logger.Debug("catalog_cache_miss", "Cache read failed, falling back", "", map[string]interface{}{
			"key": key,
		})
	}

	item, err := c.inner.FindMenuItem(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(item); err == nil {
		c.client.Set(ctx, key, data, c.ttl)
	}
	return item, nil
}

func (c *CatalogCache) EvictMenuItem(ctx context.Context, itemID int64) error {
	if err := c.client.Del(ctx, cacheKey(itemID)).Err(); err != nil {
		// The TTL bounds how long the stale entry can live.
		c.logger.Debug("catalog_cache_invalidate_failed", "Failed to drop cached item", "", map[string]interface{}{
			"item_id": itemID,
		})
	}
	return c.inner.EvictMenuItem(ctx, itemID)
}

func cacheKey(id int64) string {
	return fmt.Sprintf("menu_item:%d", id)
}
