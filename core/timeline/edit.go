package timeline

import (
	"math"

	"github.com/google/uuid"

	"montage/logger"
	"montage/model"
)

// defaultSnapTolerancePx is how close (in screen pixels) a dragged
// edge has to be to a snap target before it sticks.
const defaultSnapTolerancePx = 8.0

// MoveOptions describes a proposed clip move. PixelsPerSecond is the
// current zoom, used to derive the snap tolerance in seconds.
type MoveOptions struct {
	NewStart        float64
	Snap            bool
	PixelsPerSecond float64
	SnapTolerancePx float64
	Playhead        float64
}

// Move repositions a clip on its track, optionally snapping to nearby
// clip edges or the playhead. Returns the start actually applied.
func (tl *Timeline) Move(clipID string, opts MoveOptions) (float64, error) {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	track, clip, loc, err := tl.findClip(clipID)
	if err != nil {
		return 0, err
	}
	if track.Locked {
		return 0, ErrTrackLocked
	}

	newStart := opts.NewStart
	if newStart < 0 {
		newStart = 0
	}
	if opts.Snap && opts.PixelsPerSecond > 0 {
		newStart = tl.snapStart(clip, newStart, opts)
	}

	candidate := *clip
	candidate.Start = newStart
	if err := validatePlacement(track, &candidate, loc.clip); err != nil {
		return 0, err
	}

	tl.pushUndo()
	clip.Start = newStart
	tl.sortAllTracks()
	tl.rebuildIndices()
	tl.seq.RecalcDuration()
	return newStart, nil
}

// snapStart snaps either edge of the moving clip to the nearest clip
// edge or the playhead, whichever is closest within tolerance. Caller
// holds the lock.
func (tl *Timeline) snapStart(clip *model.Clip, proposed float64, opts MoveOptions) float64 {
	tolPx := opts.SnapTolerancePx
	if tolPx <= 0 {
		tolPx = defaultSnapTolerancePx
	}
	tol := tolPx / opts.PixelsPerSecond

	targets := []float64{opts.Playhead, 0}
	for ti := range tl.seq.Tracks {
		for ci := range tl.seq.Tracks[ti].Clips {
			other := &tl.seq.Tracks[ti].Clips[ci]
			if other.ID == clip.ID {
				continue
			}
			targets = append(targets, other.Start, other.EndTime())
		}
	}

	best := proposed
	bestDist := tol
	for _, target := range targets {
		// Leading edge.
		if d := math.Abs(proposed - target); d < bestDist {
			best, bestDist = target, d
		}
		// Trailing edge.
		if d := math.Abs(proposed + clip.Duration - target); d < bestDist {
			best, bestDist = target-clip.Duration, d
		}
	}
	if best < 0 {
		return 0
	}
	return best
}

// TrimEdge selects which end of a clip a trim operates on.
type TrimEdge int

const (
	TrimLeft TrimEdge = iota
	TrimRight
)

// Trim adjusts one edge of a clip by delta seconds. A positive delta
// on the left edge shortens the clip from the front; a positive delta
// on the right edge lengthens it. Trims clamp against the source
// media's native duration and never produce a non-positive clip.
func (tl *Timeline) Trim(clipID string, edge TrimEdge, delta float64) error {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	track, clip, loc, err := tl.findClip(clipID)
	if err != nil {
		return err
	}
	if track.Locked {
		return ErrTrackLocked
	}

	candidate := *clip
	switch edge {
	case TrimLeft:
		candidate.Start += delta
		candidate.Duration -= delta
		candidate.TrimStart += delta
	case TrimRight:
		candidate.Duration += delta
		candidate.TrimEnd += delta
	}

	if candidate.Duration <= 0 || candidate.TrimStart < 0 || candidate.Start < 0 {
		return ErrInvalidTrim
	}
	if asset, ok := tl.assets[clip.MediaID]; ok && asset.Duration > 0 {
		if candidate.TrimEnd > asset.Duration+overlapEpsilon {
			return ErrInvalidTrim
		}
	}
	if err := validatePlacement(track, &candidate, loc.clip); err != nil {
		return err
	}

	tl.pushUndo()
	*clip = candidate
	tl.seq.RecalcDuration()
	return nil
}

// Slip shifts which source frames a clip shows without moving it on
// the timeline: trimStart and trimEnd move together, start and
// duration stay put. The delta is clamped so the trim window stays
// inside the source; the applied delta is returned so the UI can show
// the frame at the new trimStart before commit.
func (tl *Timeline) Slip(clipID string, delta float64) (float64, error) {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	track, clip, _, err := tl.findClip(clipID)
	if err != nil {
		return 0, err
	}
	if track.Locked {
		return 0, ErrTrackLocked
	}

	applied := delta
	if clip.TrimStart+applied < 0 {
		applied = -clip.TrimStart
	}
	if asset, ok := tl.assets[clip.MediaID]; ok && asset.Duration > 0 {
		if clip.TrimEnd+applied > asset.Duration {
			applied = asset.Duration - clip.TrimEnd
		}
	}
	if applied == 0 {
		return 0, nil
	}

	tl.pushUndo()
	clip.TrimStart += applied
	clip.TrimEnd += applied
	return applied, nil
}

// PreviewSlide reports which clips a slide would displace, without
// mutating anything. The policy is deterministic: the nearest neighbor
// in the direction of motion absorbs the overlap first, cascading
// outward; the gap opened on the trailing side is left in place.
func (tl *Timeline) PreviewSlide(clipID string, delta float64) ([]string, error) {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	moves, err := tl.planSlide(clipID, delta)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(moves))
	for id := range moves {
		ids = append(ids, id)
	}
	return ids, nil
}

// Slide moves a clip and pushes neighbors in the direction of motion
// to absorb any overlap.
func (tl *Timeline) Slide(clipID string, delta float64) error {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	moves, err := tl.planSlide(clipID, delta)
	if err != nil {
		return err
	}

	tl.pushUndo()
	for id, newStart := range moves {
		loc := tl.clipIndex[id]
		tl.seq.Tracks[loc.track].Clips[loc.clip].Start = newStart
	}
	tl.sortAllTracks()
	tl.rebuildIndices()
	tl.seq.RecalcDuration()
	logger.Debug("slide applied",
		logger.String("clipId", clipID),
		logger.Float64("delta", delta),
		logger.Int("affected", len(moves)))
	return nil
}

// planSlide computes the full set of start positions a slide would
// produce, keyed by clip id. Caller holds at least the read lock.
func (tl *Timeline) planSlide(clipID string, delta float64) (map[string]float64, error) {
	track, clip, _, err := tl.findClip(clipID)
	if err != nil {
		return nil, err
	}
	if track.Locked {
		return nil, ErrTrackLocked
	}
	if clip.Start+delta < 0 {
		return nil, ErrInvalidGeometry
	}

	moves := map[string]float64{clip.ID: clip.Start + delta}

	if delta > 0 {
		// Walk right, pushing each neighbor that the previous interval
		// now overlaps.
		end := clip.EndTime() + delta
		for ci := range track.Clips {
			other := &track.Clips[ci]
			if other.ID == clip.ID || other.Start < clip.Start {
				continue
			}
			if other.Start < end-overlapEpsilon {
				moves[other.ID] = end
				end += other.Duration
			}
		}
	} else if delta < 0 {
		// Walk left; a pushed clip that would cross zero rejects the
		// whole slide.
		start := clip.Start + delta
		for ci := len(track.Clips) - 1; ci >= 0; ci-- {
			other := &track.Clips[ci]
			if other.ID == clip.ID || other.Start > clip.Start {
				continue
			}
			if other.EndTime() > start+overlapEpsilon {
				newStart := start - other.Duration
				if newStart < 0 {
					return nil, ErrInvalidGeometry
				}
				moves[other.ID] = newStart
				start = newStart
			}
		}
	}
	return moves, nil
}

// Split divides a clip at a timeline position into two clips whose
// trim ranges reconstruct the original exactly. A speed curve is split
// at the matching source position and re-normalized per side. Returns
// the id of the newly created right-hand clip.
func (tl *Timeline) Split(clipID string, atTime float64) (string, error) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return tl.splitLocked(clipID, atTime, true)
}

// splitLocked is Split without the locking, shared with the
// auto-splice commit path (which snapshots once for the whole batch).
func (tl *Timeline) splitLocked(clipID string, atTime float64, snapshot bool) (string, error) {
	track, clip, _, err := tl.findClip(clipID)
	if err != nil {
		return "", err
	}
	if track.Locked {
		return "", ErrTrackLocked
	}
	offset := atTime - clip.Start
	if offset <= overlapEpsilon || offset >= clip.Duration-overlapEpsilon {
		return "", ErrInvalidSplit
	}

	if snapshot {
		tl.pushUndo()
	}

	// Source-space split point honors the speed curve, so no frame is
	// gained or lost at the boundary.
	srcCut := clip.TrimStart + model.SourceOffsetAt(clip.SpeedCurve, clip.Duration, offset)
	leftCurve, rightCurve := model.SplitCurve(clip.SpeedCurve, offset/clip.Duration)

	right := *clip
	right.ID = uuid.NewString()
	right.Start = atTime
	right.Duration = clip.Duration - offset
	right.TrimStart = srcCut
	right.SpeedCurve = rightCurve

	clip.Duration = offset
	clip.TrimEnd = srcCut
	clip.SpeedCurve = leftCurve

	track.Clips = append(track.Clips, right)
	tl.sortAllTracks()
	tl.rebuildIndices()
	tl.seq.RecalcDuration()
	return right.ID, nil
}

// RippleDelete removes a clip and shifts every later clip on the same
// track left by the removed duration.
func (tl *Timeline) RippleDelete(clipID string) error {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	track, clip, loc, err := tl.findClip(clipID)
	if err != nil {
		return err
	}
	if track.Locked {
		return ErrTrackLocked
	}

	removedStart := clip.Start
	removedDuration := clip.Duration

	tl.pushUndo()
	track.Clips = append(track.Clips[:loc.clip], track.Clips[loc.clip+1:]...)
	for ci := range track.Clips {
		if track.Clips[ci].Start >= removedStart {
			track.Clips[ci].Start = math.Max(0, track.Clips[ci].Start-removedDuration)
		}
	}
	tl.sortAllTracks()
	tl.rebuildIndices()
	tl.seq.RecalcDuration()
	return nil
}

// Delete removes a clip without rippling.
func (tl *Timeline) Delete(clipID string) error {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	track, _, loc, err := tl.findClip(clipID)
	if err != nil {
		return err
	}
	if track.Locked {
		return ErrTrackLocked
	}

	tl.pushUndo()
	track.Clips = append(track.Clips[:loc.clip], track.Clips[loc.clip+1:]...)
	tl.rebuildIndices()
	tl.seq.RecalcDuration()
	return nil
}
