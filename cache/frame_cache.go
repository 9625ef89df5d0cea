package cache

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"montage/logger"
)

// frameCacheVersion tags persisted entries. Bumping it makes old
// entries invisible on cold start, so a cache-format change never
// needs an explicit migration.
const frameCacheVersion = 1

// FrameKey identifies one decoded frame: an asset plus a sample time
// quantized to milliseconds.
type FrameKey struct {
	AssetID  string
	SampleMs int64
}

func (k FrameKey) redisKey() string {
	return fmt.Sprintf("frame:v%d:%s:%d", frameCacheVersion, k.AssetID, k.SampleMs)
}

// FrameCache is a bounded LRU of decoded frames with an optional Redis
// mirror. The mirror is a durability layer for expensive decodes; when
// Redis is unavailable the cache degrades to memory-only, never fatal.
// All methods are safe for interleaved calls.
type FrameCache struct {
	mu  sync.Mutex
	lru *LRU[FrameKey, image.Image]
	ttl time.Duration
}

// NewFrameCache creates a cache with the given LRU capacity and mirror
// TTL. The Redis mirror is used whenever the package-level client is
// connected.
func NewFrameCache(maxEntries int, ttl time.Duration) *FrameCache {
	return &FrameCache{
		lru: NewLRU[FrameKey, image.Image](maxEntries),
		ttl: ttl,
	}
}

// Get returns a cached frame, consulting memory first and then the
// Redis mirror. A miss returns (nil, false); it is not an error.
func (fc *FrameCache) Get(ctx context.Context, key FrameKey) (image.Image, bool) {
	fc.mu.Lock()
	if img, ok := fc.lru.Get(key); ok {
		fc.mu.Unlock()
		return img, true
	}
	fc.mu.Unlock()

	data := fc.mirrorGet(ctx, key)
	if data == nil {
		return nil, false
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		// A corrupt mirror entry is dropped, the frame gets re-decoded
		// from source.
		logger.Warn("corrupt frame cache entry dropped",
			logger.String("key", key.redisKey()),
			logger.ErrorField(err))
		fc.mirrorDelete(ctx, key)
		return nil, false
	}

	fc.mu.Lock()
	fc.lru.Put(key, img)
	fc.mu.Unlock()
	return img, true
}

// Put stores a frame in memory and mirrors it to Redis when connected.
func (fc *FrameCache) Put(ctx context.Context, key FrameKey, img image.Image) {
	fc.mu.Lock()
	fc.lru.Put(key, img)
	fc.mu.Unlock()

	if RedisClient == nil {
		return
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		logger.Warn("frame encode for mirror failed", logger.ErrorField(err))
		return
	}
	if err := RedisClient.Set(ctx, key.redisKey(), buf.Bytes(), fc.ttl).Err(); err != nil {
		logger.Warn("frame mirror write failed",
			logger.String("key", key.redisKey()),
			logger.Int("dataSize", buf.Len()),
			logger.ErrorField(err))
	}
}

// Delete removes a frame from both layers.
func (fc *FrameCache) Delete(ctx context.Context, key FrameKey) {
	fc.mu.Lock()
	fc.lru.Delete(key)
	fc.mu.Unlock()
	fc.mirrorDelete(ctx, key)
}

// InvalidateAsset drops every cached frame of one asset from the
// mirror and clears the in-memory layer.
func (fc *FrameCache) InvalidateAsset(ctx context.Context, assetID string) {
	fc.mu.Lock()
	fc.lru.Clear()
	fc.mu.Unlock()

	if RedisClient == nil {
		return
	}
	pattern := fmt.Sprintf("frame:v%d:%s:*", frameCacheVersion, assetID)
	keys, err := RedisClient.Keys(ctx, pattern).Result()
	if err != nil || len(keys) == 0 {
		return
	}
	if err := RedisClient.Del(ctx, keys...).Err(); err != nil {
		logger.Warn("frame mirror invalidation failed",
			logger.String("pattern", pattern),
			logger.ErrorField(err))
		return
	}
	logger.Debug("frame mirror invalidated",
		logger.String("assetId", assetID),
		logger.Int("deleted", len(keys)))
}

// Len reports the in-memory entry count.
func (fc *FrameCache) Len() int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.lru.Len()
}

// mirrorGet reads from Redis with a short retry, returning nil on any
// kind of miss or failure so the caller falls through to a decode.
func (fc *FrameCache) mirrorGet(ctx context.Context, key FrameKey) []byte {
	if RedisClient == nil {
		return nil
	}

	const maxRetries = 2
	retryDelay := 100 * time.Millisecond

	for attempt := 0; attempt < maxRetries; attempt++ {
		data, err := RedisClient.Get(ctx, key.redisKey()).Bytes()
		if err == nil {
			return data
		}
		if err == redis.Nil {
			return nil
		}
		if attempt < maxRetries-1 {
			time.Sleep(retryDelay)
			retryDelay *= 2
			continue
		}
		logger.Warn("frame mirror read failed, falling back to decode",
			logger.String("key", key.redisKey()),
			logger.ErrorField(err))
	}
	return nil
}

func (fc *FrameCache) mirrorDelete(ctx context.Context, key FrameKey) {
	if RedisClient == nil {
		return
	}
	if err := RedisClient.Del(ctx, key.redisKey()).Err(); err != nil {
		logger.Debug("frame mirror delete failed",
			logger.String("key", key.redisKey()),
			logger.ErrorField(err))
	}
}
