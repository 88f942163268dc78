package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"ms-storefront/internal/logger"
	"ms-storefront/internal/models"

	"github.com/go-redis/redis/v8"
)

const (
	productKeyPrefix = "product:"
	menuKey          = "product_menu"
)

// Cache is a read-through product cache in front of the catalog table.
// Misses and Redis failures both fall through to the database, so a
// cold or dead cache never takes the menu down.
type Cache struct {
	Client *redis.Client
	Logger *logger.Logger
}

func NewCache(client *redis.Client, log *logger.Logger) *Cache {
	return &Cache{Client: client, Logger: log}
}

// getTTL returns the product cache TTL from environment variables or
// the default value
func (c *Cache) getTTL() time.Duration {
	defaultTTL := 5 * time.Minute

	ttlStr := os.Getenv("PRODUCT_CACHE_TTL_SECONDS")
	if ttlStr == "" {
		return defaultTTL
	}

	ttlSec, err := strconv.Atoi(ttlStr)
	if err != nil {
		c.Logger.Warn("REDIS", "Invalid PRODUCT_CACHE_TTL_SECONDS value '"+ttlStr+"', using default 5 minutes")
		return defaultTTL
	}

	return time.Duration(ttlSec) * time.Second
}

// GetProduct returns the cached product and whether the lookup hit.
func (c *Cache) GetProduct(ctx context.Context, id string) (*models.Product, bool) {
	data, err := c.Client.Get(ctx, productKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.Logger.Warn("REDIS", fmt.Sprintf("product cache read failed for %s: %v", id, err))
		return nil, false
	}

	var product models.Product
	if err := json.Unmarshal(data, &product); err != nil {
		c.Logger.Warn("REDIS", fmt.Sprintf("stale product cache entry for %s: %v", id, err))
		return nil, false
	}
	return &product, true
}

func (c *Cache) SetProduct(ctx context.Context, product models.Product) {
	data, err := json.Marshal(product)
	if err != nil {
		return
	}
	if err := c.Client.Set(ctx, productKeyPrefix+product.ID, data, c.getTTL()).Err(); err != nil {
		c.Logger.Warn("REDIS", fmt.Sprintf("product cache write failed for %s: %v", product.ID, err))
	}
}

// GetMenu returns the cached full product list.
func (c *Cache) GetMenu(ctx context.Context) ([]models.Product, bool) {
	data, err := c.Client.Get(ctx, menuKey).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.Logger.Warn("REDIS", fmt.Sprintf("menu cache read failed: %v", err))
		return nil, false
	}

	var products []models.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, false
	}
	return products, true
}

func (c *Cache) SetMenu(ctx context.Context, products []models.Product) {
	data, err := json.Marshal(products)
	if err != nil {
		return
	}
	if err := c.Client.Set(ctx, menuKey, data, c.getTTL()).Err(); err != nil {
		c.Logger.Warn("REDIS", fmt.Sprintf("menu cache write failed: %v", err))
	}
}

// Invalidate drops a product and the menu after a catalog write.
func (c *Cache) Invalidate(ctx context.Context, productID string) {
	if err := c.Client.Del(ctx, productKeyPrefix+productID, menuKey).Err(); err != nil {
		c.Logger.Warn("REDIS", fmt.Sprintf("cache invalidation failed for %s: %v", productID, err))
	}
}
