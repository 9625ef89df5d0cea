package frame

import (
	"context"
	"image"

	"montage/cache"
	"montage/model"
)

// CachingSource wraps a Source with the frame cache. Sample times are
// quantized to frame boundaries so playback at any tick rate reuses
// decodes.
type CachingSource struct {
	inner Source
	cache *cache.FrameCache
	fps   float64
}

// NewCachingSource wraps inner with fc, quantizing at fps.
func NewCachingSource(inner Source, fc *cache.FrameCache, fps float64) *CachingSource {
	return &CachingSource{inner: inner, cache: fc, fps: fps}
}

// FrameAt serves from cache when possible and populates it on miss.
func (s *CachingSource) FrameAt(ctx context.Context, asset model.MediaAssetMeta, sourceTime float64) (image.Image, error) {
	var ms int64
	if asset.Type != model.AssetTypeImage {
		// Still images are the same frame at every sample time.
		ms = QuantizeMs(sourceTime, s.fps)
	}
	key := cache.FrameKey{AssetID: asset.ID, SampleMs: ms}
	if img, ok := s.cache.Get(ctx, key); ok {
		return img, nil
	}

	img, err := s.inner.FrameAt(ctx, asset, sourceTime)
	if err != nil {
		return nil, err
	}
	s.cache.Put(ctx, key, img)
	return img, nil
}
