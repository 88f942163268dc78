package redis

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"ms-storefront/internal/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestRedis creates a Redis client using miniredis for testing
// miniredis is an in-memory Redis mock that doesn't require a real Redis server
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		mr.Close()
		t.Fatalf("Failed to connect to miniredis: %v", err)
	}

	return client, mr
}

func cleanupTestRedis(client *redis.Client, mr *miniredis.Miniredis) {
	if client != nil {
		client.Close()
	}
	if mr != nil {
		mr.Close()
	}
}

func TestAcquireRedemption_OnlyOneWinner(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	guard := NewRedis(client, logger.NewLogger())
	ctx := context.Background()

	acquired, err := guard.AcquireRedemption(ctx, "GC-ABCD2345", "user-1")
	require.NoError(t, err)
	assert.True(t, acquired, "First acquire should win")

	acquired, err = guard.AcquireRedemption(ctx, "GC-ABCD2345", "user-2")
	require.NoError(t, err)
	assert.False(t, acquired, "Second acquire on the same code should lose")

	// A different code is unaffected
	acquired, err = guard.AcquireRedemption(ctx, "GC-WXYZ6789", "user-2")
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestReleaseRedemption_OnlyHolderReleases(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	guard := NewRedis(client, logger.NewLogger())
	ctx := context.Background()

	acquired, err := guard.AcquireRedemption(ctx, "GC-ABCD2345", "user-1")
	require.NoError(t, err)
	assert.True(t, acquired)

	// Another user's release is a no-op
	err = guard.ReleaseRedemption(ctx, "GC-ABCD2345", "user-2")
	require.NoError(t, err)

	acquired, err = guard.AcquireRedemption(ctx, "GC-ABCD2345", "user-3")
	require.NoError(t, err)
	assert.False(t, acquired, "Guard should still be held by user-1")

	// The holder's release works
	err = guard.ReleaseRedemption(ctx, "GC-ABCD2345", "user-1")
	require.NoError(t, err)

	acquired, err = guard.AcquireRedemption(ctx, "GC-ABCD2345", "user-3")
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestReleaseRedemption_MissingKeyIsNoop(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	guard := NewRedis(client, logger.NewLogger())

	err := guard.ReleaseRedemption(context.Background(), "GC-NEVER234", "user-1")
	assert.NoError(t, err)
}

func TestAcquireRedemption_ConcurrentAttempts(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	guard := NewRedis(client, logger.NewLogger())
	ctx := context.Background()

	const numGoroutines = 20
	var wg sync.WaitGroup
	winners := 0
	var mu sync.Mutex

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			acquired, err := guard.AcquireRedemption(ctx, "GC-RACE2345", fmt.Sprintf("user-%d", n))
			if err == nil && acquired {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, winners, "Exactly one concurrent acquire should win")
}

// TestGuardIntegration exercises the guard against a real Redis container
func TestGuardIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping Redis integration test in short mode")
	}

	ctx := context.Background()
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:latest",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}
	defer redisContainer.Terminate(ctx)

	host, err := redisContainer.Host(ctx)
	require.NoError(t, err)

	port, err := redisContainer.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})
	defer client.Close()

	guard := NewRedis(client, logger.NewLogger())

	acquired, err := guard.AcquireRedemption(ctx, "GC-REAL2345", "user-1")
	require.NoError(t, err)
	assert.True(t, acquired)

	acquired, err = guard.AcquireRedemption(ctx, "GC-REAL2345", "user-2")
	require.NoError(t, err)
	assert.False(t, acquired)

	err = guard.ReleaseRedemption(ctx, "GC-REAL2345", "user-1")
	require.NoError(t, err)

	acquired, err = guard.AcquireRedemption(ctx, "GC-REAL2345", "user-2")
	require.NoError(t, err)
	assert.True(t, acquired)
}
