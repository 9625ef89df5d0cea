package render

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	xdraw "golang.org/x/image/draw"

	"montage/core/frame"
	"montage/core/timeline"
	"montage/logger"
	"montage/model"
)

// tlStackEntry aliases the timeline's stack entry for local helpers.
type tlStackEntry = timeline.StackEntry

// LayerError reports a failed layer of an otherwise rendered frame.
// One bad layer never aborts the frame.
type LayerError struct {
	ClipID string
	Err    error
}

func (e LayerError) Error() string {
	return fmt.Sprintf("layer %s: %v", e.ClipID, e.Err)
}

// Renderer composites one frame at a time onto an RGBA canvas. It owns
// the canvas exclusively; the timeline is read-only from here.
type Renderer struct {
	mu     sync.Mutex
	width  int
	height int
	source frame.Source
}

// New creates a renderer targeting a width x height canvas.
func New(width, height int, source frame.Source) (*Renderer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("render: invalid canvas size %dx%d", width, height)
	}
	if source == nil {
		return nil, fmt.Errorf("render: nil frame source")
	}
	return &Renderer{width: width, height: height, source: source}, nil
}

// Resize changes the output dimensions. Decoded source frames are
// reused; only the scaling changes.
func (r *Renderer) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	r.mu.Lock()
	r.width, r.height = width, height
	r.mu.Unlock()
}

// Size returns the current canvas dimensions.
func (r *Renderer) Size() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}

// RenderFrame draws the composited frame at time t. Tracks composite
// back-to-front; a clip inside a transition window is blended with its
// neighbor per the transition's type (crossfade by default). Per-layer
// failures are collected and returned alongside the frame.
func (r *Renderer) RenderFrame(ctx context.Context, tl *timeline.Timeline, t float64) (*image.RGBA, []LayerError) {
	r.mu.Lock()
	w, h := r.width, r.height
	r.mu.Unlock()

	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	var layerErrs []LayerError
	for _, entry := range tl.StackAt(t) {
		if err := r.drawEntry(ctx, canvas, tl, &entry, t); err != nil {
			layerErrs = append(layerErrs, LayerError{ClipID: entry.Clip.ID, Err: err})
			logger.Warn("layer render failed",
				logger.String("clipId", entry.Clip.ID),
				logger.Float64("time", t),
				logger.ErrorField(err))
		}
	}
	return canvas, layerErrs
}

// drawEntry renders one stack layer, handling the transition blend.
func (r *Renderer) drawEntry(ctx context.Context, canvas *image.RGBA, tl *timeline.Timeline, entry *tlStackEntry, t float64) error {
	if window := resolveTransition(entry, t); window != nil {
		fromW, toW := window.Weights(t)
		fromOp := layerOpacity(&window.From, t)
		toOp := layerOpacity(&window.To, t)
		// Both sides are sampled; a failure on one side falls back to
		// drawing the other at full weight.
		fromImg, fromErr := r.sampleClip(ctx, tl, &window.From, t)
		toImg, toErr := r.sampleClip(ctx, tl, &window.To, t)
		switch {
		case fromErr == nil && toErr == nil:
			r.drawFitted(canvas, fromImg, fromOp*fromW)
			r.drawFitted(canvas, toImg, toOp*toW)
			return nil
		case fromErr == nil:
			r.drawFitted(canvas, fromImg, fromOp)
			return toErr
		case toErr == nil:
			r.drawFitted(canvas, toImg, toOp)
			return fromErr
		default:
			return fromErr
		}
	}

	img, err := r.sampleClip(ctx, tl, &entry.Clip, t)
	if err != nil {
		return err
	}
	r.drawFitted(canvas, img, layerOpacity(&entry.Clip, t))
	return nil
}

// layerOpacity combines a clip's base opacity with its enabled effects
// at playback time t.
func layerOpacity(clip *model.Clip, t float64) float64 {
	local := t - clip.Start
	if local < 0 {
		local = 0
	} else if local > clip.Duration {
		local = clip.Duration
	}
	return clip.Opacity * effectOpacityAt(clip, local)
}

// sampleClip fetches the clip's source frame for playback time t,
// applying trim and the speed curve. Local time is clamped into the
// clip so transition sampling just outside the clip stays valid.
func (r *Renderer) sampleClip(ctx context.Context, tl *timeline.Timeline, clip *model.Clip, t float64) (image.Image, error) {
	asset, ok := tl.Asset(clip.MediaID)
	if !ok {
		return nil, fmt.Errorf("unknown asset %s", clip.MediaID)
	}

	local := t - clip.Start
	if local < 0 {
		local = 0
	} else if local > clip.Duration {
		local = clip.Duration
	}
	sourceTime := clip.TrimStart + model.SourceOffsetAt(clip.SpeedCurve, clip.Duration, local)

	img, err := r.source.FrameAt(ctx, asset, sourceTime)
	if err != nil {
		return nil, err
	}
	if img == nil {
		return nil, fmt.Errorf("no frame for asset %s at %.3f", asset.ID, sourceTime)
	}
	return img, nil
}

// drawFitted scales src into the canvas with fit-to-box semantics:
// aspect ratio preserved, scaled to the constrained dimension,
// centered. Opacity below 1 blends through a uniform alpha mask.
func (r *Renderer) drawFitted(canvas *image.RGBA, src image.Image, opacity float64) {
	sb := src.Bounds()
	if sb.Dx() == 0 || sb.Dy() == 0 {
		return
	}
	cb := canvas.Bounds()

	scaleX := float64(cb.Dx()) / float64(sb.Dx())
	scaleY := float64(cb.Dy()) / float64(sb.Dy())
	scale := scaleX
	if scaleY < scale {
		scale = scaleY
	}
	dw := int(float64(sb.Dx()) * scale)
	dh := int(float64(sb.Dy()) * scale)
	x0 := (cb.Dx() - dw) / 2
	y0 := (cb.Dy() - dh) / 2
	dst := image.Rect(x0, y0, x0+dw, y0+dh)

	if opacity >= 1 {
		xdraw.BiLinear.Scale(canvas, dst, src, sb, xdraw.Over, nil)
		return
	}
	if opacity <= 0 {
		return
	}

	tmp := image.NewRGBA(image.Rect(0, 0, dw, dh))
	xdraw.BiLinear.Scale(tmp, tmp.Bounds(), src, sb, xdraw.Src, nil)
	mask := image.NewUniform(color.Alpha{A: uint8(opacity * 255)})
	draw.DrawMask(canvas, dst, tmp, image.Point{}, mask, image.Point{}, draw.Over)
}
