package player

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"montage/cache"
	"montage/config"
	"montage/core/frame"
	"montage/core/playback"
	"montage/core/render"
	"montage/core/timeline"
	"montage/logger"
	"montage/model"
	"montage/storage"
)

// FrameSink receives each presented frame. The image is owned by the
// sink after the call.
type FrameSink func(img *image.RGBA, t float64)

// Options configure a Player. A nil Source builds the default
// ffmpeg-backed caching source from the asset store; a nil store then
// restricts assets to local paths.
type Options struct {
	Source    frame.Source
	Sink      FrameSink
	Callbacks playback.Callbacks
}

// Player is the composition root: it owns the timeline, the frame
// cache, the renderer and the playback controller, and wires external
// play/pause/seek signals to them. Created at session start, closed at
// teardown; the frame cache lives and dies with it.
type Player struct {
	tl         *timeline.Timeline
	renderer   *render.Renderer
	controller *playback.Controller
	frameCache *cache.FrameCache
	sink       FrameSink

	// generation stamps decode requests; results from an older
	// generation are discarded instead of being drawn.
	generation atomic.Uint64

	beatsMu sync.RWMutex
	beats   []model.BeatMarker
}

// New builds a player from the engine config.
func New(cfg *config.Config, store *storage.AssetStore, opts Options) (*Player, error) {
	fc := cache.NewFrameCache(cfg.FrameCacheEntries, time.Duration(cfg.FrameCacheTTLSec)*time.Second)

	source := opts.Source
	if source == nil {
		source = frame.NewCachingSource(frame.NewFFmpegSource(store), fc, cfg.FPS)
	}

	tl := timeline.New(cfg.OutputWidth, cfg.OutputHeight, cfg.FPS)
	renderer, err := render.New(cfg.OutputWidth, cfg.OutputHeight, source)
	if err != nil {
		return nil, err
	}

	p := &Player{
		tl:         tl,
		renderer:   renderer,
		frameCache: fc,
		sink:       opts.Sink,
	}
	p.controller = playback.New(tl, p.renderFrame, opts.Callbacks)
	return p, nil
}

// renderFrame is the controller's render callback. A result is only
// presented when the request is still current: neither canceled nor
// superseded by a sequence update.
func (p *Player) renderFrame(ctx context.Context, t float64) error {
	gen := p.generation.Load()
	img, layerErrs := p.renderer.RenderFrame(ctx, p.tl, t)

	if ctx.Err() != nil || gen != p.generation.Load() {
		// Stale: the playhead or the sequence moved on mid-decode.
		return nil
	}
	if p.sink != nil {
		p.sink(img, t)
	}
	if len(layerErrs) > 0 {
		errs := make([]error, len(layerErrs))
		for i, le := range layerErrs {
			errs[i] = le
		}
		return errors.Join(errs...)
	}
	return nil
}

// UpdateSequence swaps in a new sequence and asset map. Playback is
// not restarted; the next tick reads the new geometry. The decode
// generation is bumped so in-flight frames of the old sequence are
// discarded.
func (p *Player) UpdateSequence(seq model.Sequence, assets model.AssetMap) error {
	prev := p.tl.Assets()
	if err := p.tl.Replace(seq, assets); err != nil {
		return err
	}
	if seq.Width > 0 && seq.Height > 0 {
		p.renderer.Resize(seq.Width, seq.Height)
	}
	// Cached frames of an asset whose media reference changed are
	// stale; a re-rendered or re-uploaded source must be re-decoded.
	for id, meta := range assets {
		if old, ok := prev[id]; ok && assetMediaChanged(old, meta) {
			p.frameCache.InvalidateAsset(context.Background(), id)
		}
	}
	p.generation.Add(1)
	return nil
}

func assetMediaChanged(a, b model.MediaAssetMeta) bool {
	return a.URL != b.URL || a.ObjectKey != b.ObjectKey ||
		a.Duration != b.Duration || a.Type != b.Type
}

// FrameCache exposes the player's frame cache, for hosts that warm or
// invalidate it around media re-renders.
func (p *Player) FrameCache() *cache.FrameCache {
	return p.frameCache
}

// SetBeats installs the beat markers the auto-splice planner reads.
func (p *Player) SetBeats(beats []model.BeatMarker) {
	p.beatsMu.Lock()
	p.beats = append([]model.BeatMarker(nil), beats...)
	p.beatsMu.Unlock()
}

// Beats returns the installed beat markers.
func (p *Player) Beats() []model.BeatMarker {
	p.beatsMu.RLock()
	defer p.beatsMu.RUnlock()
	return append([]model.BeatMarker(nil), p.beats...)
}

// Timeline exposes the edit surface. Edits take effect on the next
// tick without restarting playback.
func (p *Player) Timeline() *timeline.Timeline {
	return p.tl
}

// Play delegates to the controller.
func (p *Player) Play() { p.controller.Play() }

// Pause delegates to the controller.
func (p *Player) Pause() { p.controller.Pause() }

// Seek delegates to the controller.
func (p *Player) Seek(t float64) { p.controller.Seek(t) }

// SetMasterVolume delegates to the controller.
func (p *Player) SetMasterVolume(v float64) { p.controller.SetMasterVolume(v) }

// State returns the playback state.
func (p *Player) State() playback.State { return p.controller.State() }

// CurrentTime returns the playhead position.
func (p *Player) CurrentTime() float64 { return p.controller.CurrentTime() }

// RenderPoster renders the frame at t outside the playback loop, for
// poster/preview endpoints. Layer failures degrade the frame instead
// of failing it.
func (p *Player) RenderPoster(ctx context.Context, t float64) (*image.RGBA, error) {
	img, layerErrs := p.renderer.RenderFrame(ctx, p.tl, t)
	for _, le := range layerErrs {
		logger.Warn("poster layer failed",
			logger.String("clipId", le.ClipID),
			logger.ErrorField(le.Err))
	}
	return img, nil
}

// Resize changes the output canvas size without re-decoding sources.
func (p *Player) Resize(w, h int) { p.renderer.Resize(w, h) }

// Close tears the player down.
func (p *Player) Close() {
	p.controller.Close()
}
