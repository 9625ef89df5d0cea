package cache

import (
	"context"
	"fmt"
	"time"

	"montage/config"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the shared client backing the persisted frame cache.
// A nil client means the engine runs memory-only.
var RedisClient *redis.Client

// ConnectRedis initializes the Redis connection.
func ConnectRedis(cfg *config.Config) error {
	RedisClient = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := RedisClient.Ping(ctx).Result(); err != nil {
		RedisClient = nil
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return nil
}

// CloseRedis closes the connection if one was opened.
func CloseRedis() error {
	if RedisClient != nil {
		err := RedisClient.Close()
		RedisClient = nil
		return err
	}
	return nil
}

// TestRedis round-trips a value to verify connectivity.
func TestRedis() error {
	if RedisClient == nil {
		return fmt.Errorf("redis client not initialized")
	}

	ctx := context.Background()

	if err := RedisClient.Set(ctx, "montage:test", "ok", 5*time.Minute).Err(); err != nil {
		return fmt.Errorf("failed to set test key: %w", err)
	}
	val, err := RedisClient.Get(ctx, "montage:test").Result()
	if err != nil {
		return fmt.Errorf("failed to get test key: %w", err)
	}
	if val != "ok" {
		return fmt.Errorf("unexpected value from redis: %s", val)
	}
	if _, err := RedisClient.Del(ctx, "montage:test").Result(); err != nil {
		return fmt.Errorf("failed to delete test key: %w", err)
	}
	return nil
}
