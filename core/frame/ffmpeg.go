package frame

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"

	_ "image/gif"
	_ "image/jpeg"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"montage/logger"
	"montage/model"
	"montage/storage"
)

// FFmpegSource decodes frames by seeking in the source media with
// ffmpeg. Video assets are localized through the asset store once and
// then seeked in place; image assets are decoded directly.
type FFmpegSource struct {
	store *storage.AssetStore
}

// NewFFmpegSource creates a source backed by the given asset store.
func NewFFmpegSource(store *storage.AssetStore) *FFmpegSource {
	return &FFmpegSource{store: store}
}

// FrameAt extracts one frame at sourceTime seconds into the asset's
// native timeline.
func (s *FFmpegSource) FrameAt(ctx context.Context, asset model.MediaAssetMeta, sourceTime float64) (image.Image, error) {
	switch asset.Type {
	case model.AssetTypeAudio:
		return nil, ErrNoVisualFrame
	case model.AssetTypeImage:
		return s.decodeImage(ctx, asset)
	default:
		return s.extractVideoFrame(ctx, asset, sourceTime)
	}
}

func (s *FFmpegSource) localPath(ctx context.Context, asset model.MediaAssetMeta) (string, error) {
	if asset.ObjectKey != "" {
		if s.store == nil {
			return "", fmt.Errorf("frame: asset %s needs the object store, which is not configured", asset.ID)
		}
		return s.store.Localize(ctx, asset.ObjectKey)
	}
	// A URL pointing at the local filesystem is used as-is; anything
	// else has to come through the store.
	if asset.URL != "" {
		if _, err := os.Stat(asset.URL); err == nil {
			return asset.URL, nil
		}
	}
	return "", fmt.Errorf("frame: asset %s has no resolvable source", asset.ID)
}

func (s *FFmpegSource) decodeImage(ctx context.Context, asset model.MediaAssetMeta) (image.Image, error) {
	path, err := s.localPath(ctx, asset)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("frame: open image: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("frame: decode image %s: %w", asset.ID, err)
	}
	return img, nil
}

func (s *FFmpegSource) extractVideoFrame(ctx context.Context, asset model.MediaAssetMeta, sourceTime float64) (image.Image, error) {
	path, err := s.localPath(ctx, asset)
	if err != nil {
		return nil, err
	}
	if sourceTime < 0 {
		sourceTime = 0
	}
	if asset.Duration > 0 && sourceTime > asset.Duration {
		sourceTime = asset.Duration
	}

	// Seek before decode (-ss as input option), pull exactly one frame
	// as PNG on stdout.
	buf := bytes.NewBuffer(nil)
	errBuf := bytes.NewBuffer(nil)
	err = ffmpeg.Input(path, ffmpeg.KwArgs{"ss": fmt.Sprintf("%.3f", sourceTime)}).
		Output("pipe:", ffmpeg.KwArgs{
			"vframes": 1,
			"format":  "image2",
			"vcodec":  "png",
		}).
		WithOutput(buf).
		WithErrorOutput(errBuf).
		Run()
	if err != nil {
		logger.Error("frame extraction failed",
			logger.String("assetId", asset.ID),
			logger.Float64("sourceTime", sourceTime),
			logger.String("ffmpeg", errBuf.String()),
			logger.ErrorField(err))
		return nil, fmt.Errorf("frame: extract %s@%.3f: %w", asset.ID, sourceTime, err)
	}

	img, err := png.Decode(buf)
	if err != nil {
		return nil, fmt.Errorf("frame: decode extracted frame: %w", err)
	}

	select {
	case <-ctx.Done():
		// The caller moved on while ffmpeg was running; the result is
		// stale and must not be drawn.
		return nil, ctx.Err()
	default:
	}
	return img, nil
}
