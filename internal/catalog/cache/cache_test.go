package cache

import (
	"context"
	"testing"
	"time"

	"ms-storefront/internal/logger"
	"ms-storefront/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	if err := client.Ping(context.Background()).Err(); err != nil {
		mr.Close()
		t.Fatalf("Failed to connect to miniredis: %v", err)
	}

	return NewCache(client, logger.NewLogger()), mr
}

func TestProductRoundTrip(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()

	_, hit := cache.GetProduct(context.Background(), "prod-latte")
	assert.False(t, hit, "Cold cache should miss")

	product := models.Product{ID: "prod-latte", Name: "Algorithmic Latte", Price: 18, InStock: true}
	cache.SetProduct(context.Background(), product)

	cached, hit := cache.GetProduct(context.Background(), "prod-latte")
	require.True(t, hit)
	assert.Equal(t, "Algorithmic Latte", cached.Name)
	assert.Equal(t, 18.0, cached.Price)
}

func TestMenuRoundTrip(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()

	_, hit := cache.GetMenu(context.Background())
	assert.False(t, hit)

	menu := []models.Product{
		{ID: "prod-latte", Name: "Algorithmic Latte", Price: 18},
		{ID: "prod-beans", Name: "Quantum Roast", Price: 60},
	}
	cache.SetMenu(context.Background(), menu)

	cached, hit := cache.GetMenu(context.Background())
	require.True(t, hit)
	assert.Len(t, cached, 2)
}

func TestInvalidateDropsProductAndMenu(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()

	product := models.Product{ID: "prod-latte", Name: "Algorithmic Latte", Price: 18}
	cache.SetProduct(context.Background(), product)
	cache.SetMenu(context.Background(), []models.Product{product})

	cache.Invalidate(context.Background(), "prod-latte")

	_, hit := cache.GetProduct(context.Background(), "prod-latte")
	assert.False(t, hit)
	_, hit = cache.GetMenu(context.Background())
	assert.False(t, hit)
}

func TestEntriesExpire(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()

	t.Setenv("PRODUCT_CACHE_TTL_SECONDS", "60")

	cache.SetProduct(context.Background(), models.Product{ID: "prod-latte", Name: "Algorithmic Latte", Price: 18})

	// miniredis advances TTLs manually
	mr.FastForward(61 * time.Second)

	_, hit := cache.GetProduct(context.Background(), "prod-latte")
	assert.False(t, hit)
}
