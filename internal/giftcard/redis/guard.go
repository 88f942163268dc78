package redis

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"ms-storefront/internal/logger"

	"github.com/go-redis/redis/v8"
)

// Redis guards gift-card redemption so only one request per code is in
// flight at a time. The database CAS is still the source of truth, the
// guard just keeps concurrent requests from racing to it.
type Redis struct {
	Client *redis.Client
	Logger *logger.Logger
}

func NewRedis(client *redis.Client, log *logger.Logger) *Redis {
	return &Redis{Client: client, Logger: log}
}

// getGuardDuration returns the redemption guard TTL from environment
// variables or the default value
func (r *Redis) getGuardDuration() time.Duration {
	defaultDuration := 30 * time.Second

	ttlStr := os.Getenv("GIFTCARD_GUARD_TTL_SECONDS")
	if ttlStr == "" {
		return defaultDuration
	}

	ttlSec, err := strconv.Atoi(ttlStr)
	if err != nil {
		r.Logger.Warn("REDIS", "Invalid GIFTCARD_GUARD_TTL_SECONDS value '"+ttlStr+"', using default 30 seconds")
		return defaultDuration
	}

	return time.Duration(ttlSec) * time.Second
}

// AcquireRedemption locks a gift-card code for one redeeming user.
func (r *Redis) AcquireRedemption(ctx context.Context, code, userID string) (bool, error) {
	key := "giftcard_redeem:" + code
	ok, err := r.Client.SetNX(ctx, key, userID, r.getGuardDuration()).Result()
	return ok, err
}

// ReleaseRedemption releases the guard, but only for the user that
// holds it.
func (r *Redis) ReleaseRedemption(ctx context.Context, code, userID string) error {
	key := fmt.Sprintf("giftcard_redeem:%s", code)
	val, err := r.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil // already released
	}
	if err != nil {
		return err
	}
	if val == userID {
		_, err := r.Client.Del(ctx, key).Result()
		return err
	}
	return nil
}
