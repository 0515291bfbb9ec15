package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/storefront/shop-api/internal/core/ports"
)

const generationKey = "catalog:generation"

// CatalogCache stores product listing pages under a generation number.
// Invalidate bumps the generation so every earlier page becomes unreachable
// and ages out through its TTL.
// Key format: catalog:<generation>:<listing key>
type CatalogCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCatalogCache creates a CatalogCache wrapping the given Redis client.
func NewCatalogCache(client *redis.Client, ttl time.Duration) *CatalogCache {
	return &CatalogCache{client: client, ttl: ttl}
}

// GetListing reads key under the current generation and returns that full
// key as the slot for a later SetListing.
func (c *CatalogCache) GetListing(ctx context.Context, key string) (*ports.ListProductsResult, string, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return nil, "", err
	}
	slot := c.key(gen, key)

	raw, err := c.client.Get(ctx, slot).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, slot, nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("catalog cache get: %w", err)
	}

	var res ports.ListProductsResult
	if err := json.Unmarshal(raw, &res); err != nil {
		_ = c.client.Del(ctx, slot).Err()
		return nil, slot, fmt.Errorf("catalog cache decode %s: %w", slot, err)
	}
	return &res, slot, nil
}

// SetListing stores res in the slot handed out by GetListing. The generation
// is not re-read: a slot from before an Invalidate stays unreachable.
func (c *CatalogCache) SetListing(ctx context.Context, slot string, res *ports.ListProductsResult) error {
	if slot == "" {
		return nil
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("catalog cache encode: %w", err)
	}
	if err := c.client.Set(ctx, slot, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("catalog cache set: %w", err)
	}
	return nil
}

func (c *CatalogCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		return fmt.Errorf("catalog cache invalidate: %w", err)
	}
	return nil
}

func (c *CatalogCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("catalog cache generation: %w", err)
	}
	return gen, nil
}

func (c *CatalogCache) key(gen int64, key string) string {
	return "catalog:" + strconv.FormatInt(gen, 10) + ":" + key
}
