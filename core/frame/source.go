package frame

import (
	"context"
	"errors"
	"image"

	"montage/model"
)

// ErrNoVisualFrame is returned when a frame is requested from an
// asset that has no visual representation (pure audio).
var ErrNoVisualFrame = errors.New("frame: asset has no visual frames")

// Source produces a decoded frame of an asset at a source-timeline
// position. Implementations may block on media readiness; callers pass
// a context and tolerate cancellation.
type Source interface {
	FrameAt(ctx context.Context, asset model.MediaAssetMeta, sourceTime float64) (image.Image, error)
}

// QuantizeMs snaps a source time to the containing frame boundary at
// the given rate and returns it in milliseconds. Keying the cache on
// quantized times makes nearby samples share one decode.
func QuantizeMs(sourceTime, fps float64) int64 {
	if fps <= 0 {
		fps = 30
	}
	if sourceTime < 0 {
		sourceTime = 0
	}
	frameIdx := int64(sourceTime * fps)
	return int64(float64(frameIdx) / fps * 1000)
}
