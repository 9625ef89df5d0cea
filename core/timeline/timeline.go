package timeline

import (
	"sort"
	"sync"

	"montage/logger"
	"montage/model"
)

// overlapEpsilon tolerates float drift when two clips touch exactly.
const overlapEpsilon = 1e-6

// maxUndoDepth bounds the undo snapshot stack.
const maxUndoDepth = 32

type clipLocation struct {
	track int
	clip  int
}

// Timeline is the single source of truth for clip geometry. It may be
// read concurrently by the UI and the playback controller but is
// mutated only through the edit operations defined on it; every edit
// is atomic (validate, snapshot, mutate) and invalid edits return an
// error before any state change is visible.
type Timeline struct {
	mu     sync.RWMutex
	seq    model.Sequence
	assets model.AssetMap

	trackIndex map[string]int
	clipIndex  map[string]clipLocation

	undoStack []model.Sequence
	redoStack []model.Sequence
}

// New creates an empty timeline with the given output resolution.
func New(width, height int, fps float64) *Timeline {
	tl := &Timeline{
		seq: model.Sequence{
			ID:     "sequence-0",
			Name:   "Main",
			Width:  width,
			Height: height,
			FPS:    fps,
		},
		assets: model.AssetMap{},
	}
	tl.rebuildIndices()
	return tl
}

// Replace swaps in a whole sequence plus its asset map, validating
// clip geometry first. Used by the player's updateSequence signal; the
// undo history is cleared because the history no longer describes the
// new sequence.
func (tl *Timeline) Replace(seq model.Sequence, assets model.AssetMap) error {
	for i := range seq.Tracks {
		track := &seq.Tracks[i]
		for j := range track.Clips {
			clip := &track.Clips[j]
			if clip.Duration <= 0 || clip.Start < 0 {
				return ErrInvalidGeometry
			}
			asset, ok := assets[clip.MediaID]
			if !ok {
				return ErrUnknownAsset
			}
			if clip.TrimStart < 0 || (asset.Duration > 0 && clip.TrimEnd > asset.Duration+overlapEpsilon) {
				return ErrInvalidTrim
			}
			if clip.Opacity == 0 {
				clip.Opacity = 1.0
			}
		}
		if !track.AllowOverlap {
			for j := range track.Clips {
				for k := j + 1; k < len(track.Clips); k++ {
					if clipsOverlap(&track.Clips[j], &track.Clips[k]) {
						return ErrOverlap
					}
				}
			}
		}
	}

	tl.mu.Lock()
	defer tl.mu.Unlock()
	tl.seq = seq
	tl.assets = assets
	tl.undoStack = nil
	tl.redoStack = nil
	tl.sortAllTracks()
	tl.rebuildIndices()
	tl.seq.RecalcDuration()
	logger.Info("sequence replaced",
		logger.String("sequenceId", seq.ID),
		logger.Int("tracks", len(seq.Tracks)),
		logger.Float64("duration", tl.seq.Duration))
	return nil
}

// Sequence returns a deep copy of the current sequence.
func (tl *Timeline) Sequence() model.Sequence {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	return tl.seq.Clone()
}

// Duration returns the derived sequence duration.
func (tl *Timeline) Duration() float64 {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	return tl.seq.Duration
}

// Assets returns a copy of the asset map.
func (tl *Timeline) Assets() model.AssetMap {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	out := make(model.AssetMap, len(tl.assets))
	for id, a := range tl.assets {
		out[id] = a
	}
	return out
}

// Asset looks up asset metadata by id.
func (tl *Timeline) Asset(mediaID string) (model.MediaAssetMeta, bool) {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	a, ok := tl.assets[mediaID]
	return a, ok
}

// Clip returns a copy of the clip with the given id.
func (tl *Timeline) Clip(clipID string) (model.Clip, bool) {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	loc, ok := tl.clipIndex[clipID]
	if !ok {
		return model.Clip{}, false
	}
	return tl.seq.Tracks[loc.track].Clips[loc.clip], true
}

// StackEntry is one layer of the frame stack at a point in time,
// back-to-front. Prev/Next are the adjacent clips on the same track
// when they touch the entry's boundaries, for transition windows.
type StackEntry struct {
	Clip       model.Clip
	TrackIndex int
	Prev       *model.Clip
	Next       *model.Clip
}

// StackAt returns the visual layers active at time t, ordered
// back-to-front by track index. Audio and muted tracks are skipped.
func (tl *Timeline) StackAt(t float64) []StackEntry {
	tl.mu.RLock()
	defer tl.mu.RUnlock()

	var stack []StackEntry
	for ti := range tl.seq.Tracks {
		track := &tl.seq.Tracks[ti]
		if track.Kind == model.TrackKindAudio || track.Muted {
			continue
		}
		for ci := range track.Clips {
			clip := &track.Clips[ci]
			if t < clip.Start || t >= clip.EndTime() {
				continue
			}
			entry := StackEntry{Clip: *clip, TrackIndex: ti}
			if ci > 0 {
				prev := track.Clips[ci-1]
				entry.Prev = &prev
			}
			if ci+1 < len(track.Clips) {
				next := track.Clips[ci+1]
				entry.Next = &next
			}
			stack = append(stack, entry)
			break // clips on a track don't overlap, one active at most
		}
	}
	return stack
}

// AudioClipsAt returns the audio-bearing clips active at time t, for
// the controller's gain fan-out. Muted tracks are excluded.
func (tl *Timeline) AudioClipsAt(t float64) []model.Clip {
	tl.mu.RLock()
	defer tl.mu.RUnlock()

	var clips []model.Clip
	for ti := range tl.seq.Tracks {
		track := &tl.seq.Tracks[ti]
		if track.Muted {
			continue
		}
		for ci := range track.Clips {
			clip := &track.Clips[ci]
			if t < clip.Start || t >= clip.EndTime() {
				continue
			}
			if clip.Kind == model.ClipKindAudio || track.Kind == model.TrackKindAudio {
				clips = append(clips, *clip)
			}
		}
	}
	return clips
}

// AddTrack appends a track. Fails if the id is already taken.
func (tl *Timeline) AddTrack(track model.Track) error {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	if _, exists := tl.trackIndex[track.ID]; exists {
		return ErrTrackExists
	}
	tl.pushUndo()
	tl.seq.Tracks = append(tl.seq.Tracks, track)
	tl.sortAllTracks()
	tl.rebuildIndices()
	tl.seq.RecalcDuration()
	return nil
}

// UpdateTrack replaces a track's metadata (kind and flags), keeping
// its clips. Locked tracks accept this one edit, otherwise they could
// never be unlocked.
func (tl *Timeline) UpdateTrack(track model.Track) error {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	idx, ok := tl.trackIndex[track.ID]
	if !ok {
		return ErrTrackNotFound
	}
	tl.pushUndo()
	track.Clips = tl.seq.Tracks[idx].Clips
	tl.seq.Tracks[idx] = track
	return nil
}

// RemoveTrack deletes a track and all its clips.
func (tl *Timeline) RemoveTrack(trackID string) error {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	idx, ok := tl.trackIndex[trackID]
	if !ok {
		return ErrTrackNotFound
	}
	if tl.seq.Tracks[idx].Locked {
		return ErrTrackLocked
	}
	tl.pushUndo()
	tl.seq.Tracks = append(tl.seq.Tracks[:idx], tl.seq.Tracks[idx+1:]...)
	tl.rebuildIndices()
	tl.seq.RecalcDuration()
	return nil
}

// UpsertClip inserts a new clip or replaces an existing one, keeping
// the track's clips sorted by start and non-overlapping.
func (tl *Timeline) UpsertClip(clip model.Clip) error {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	trackIdx, ok := tl.trackIndex[clip.TrackID]
	if !ok {
		return ErrTrackNotFound
	}
	track := &tl.seq.Tracks[trackIdx]
	if track.Locked {
		return ErrTrackLocked
	}
	if clip.Duration <= 0 {
		return ErrInvalidGeometry
	}
	if _, ok := tl.assets[clip.MediaID]; !ok {
		return ErrUnknownAsset
	}
	if clip.Opacity == 0 {
		clip.Opacity = 1.0
	}

	loc, exists := tl.clipIndex[clip.ID]
	ignore := -1
	if exists && loc.track == trackIdx {
		ignore = loc.clip
	}
	if err := validatePlacement(track, &clip, ignore); err != nil {
		return err
	}

	tl.pushUndo()
	if exists {
		// A move across tracks removes the clip from its old home first.
		old := &tl.seq.Tracks[loc.track]
		old.Clips = append(old.Clips[:loc.clip], old.Clips[loc.clip+1:]...)
		track = &tl.seq.Tracks[trackIdx]
	}
	track.Clips = append(track.Clips, clip)
	tl.sortAllTracks()
	tl.rebuildIndices()
	tl.seq.RecalcDuration()
	return nil
}

// Undo restores the previous snapshot. Returns false when the stack is
// empty.
func (tl *Timeline) Undo() bool {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	if len(tl.undoStack) == 0 {
		return false
	}
	tl.redoStack = append(tl.redoStack, tl.seq.Clone())
	tl.seq = tl.undoStack[len(tl.undoStack)-1]
	tl.undoStack = tl.undoStack[:len(tl.undoStack)-1]
	tl.rebuildIndices()
	return true
}

// Redo re-applies the last undone edit.
func (tl *Timeline) Redo() bool {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	if len(tl.redoStack) == 0 {
		return false
	}
	tl.undoStack = append(tl.undoStack, tl.seq.Clone())
	tl.seq = tl.redoStack[len(tl.redoStack)-1]
	tl.redoStack = tl.redoStack[:len(tl.redoStack)-1]
	tl.rebuildIndices()
	return true
}

// pushUndo snapshots the sequence before a mutation. Caller holds the
// write lock.
func (tl *Timeline) pushUndo() {
	tl.undoStack = append(tl.undoStack, tl.seq.Clone())
	if len(tl.undoStack) > maxUndoDepth {
		tl.undoStack = tl.undoStack[1:]
	}
	tl.redoStack = nil
}

func (tl *Timeline) sortAllTracks() {
	for i := range tl.seq.Tracks {
		clips := tl.seq.Tracks[i].Clips
		sort.SliceStable(clips, func(a, b int) bool {
			return clips[a].Start < clips[b].Start
		})
	}
}

func (tl *Timeline) rebuildIndices() {
	tl.trackIndex = make(map[string]int, len(tl.seq.Tracks))
	tl.clipIndex = make(map[string]clipLocation)
	for ti := range tl.seq.Tracks {
		tl.trackIndex[tl.seq.Tracks[ti].ID] = ti
		for ci := range tl.seq.Tracks[ti].Clips {
			tl.clipIndex[tl.seq.Tracks[ti].Clips[ci].ID] = clipLocation{track: ti, clip: ci}
		}
	}
}

func (tl *Timeline) findClip(clipID string) (*model.Track, *model.Clip, clipLocation, error) {
	loc, ok := tl.clipIndex[clipID]
	if !ok {
		return nil, nil, clipLocation{}, ErrClipNotFound
	}
	track := &tl.seq.Tracks[loc.track]
	return track, &track.Clips[loc.clip], loc, nil
}

func clipsOverlap(a, b *model.Clip) bool {
	start := a.Start
	if b.Start > start {
		start = b.Start
	}
	end := a.EndTime()
	if b.EndTime() < end {
		end = b.EndTime()
	}
	return end-start > overlapEpsilon
}

// validatePlacement checks a candidate clip against every other clip
// on the track, skipping ignore when replacing in place.
func validatePlacement(track *model.Track, candidate *model.Clip, ignore int) error {
	if track.AllowOverlap {
		return nil
	}
	for i := range track.Clips {
		if i == ignore {
			continue
		}
		if track.Clips[i].ID == candidate.ID {
			continue
		}
		if clipsOverlap(&track.Clips[i], candidate) {
			return ErrOverlap
		}
	}
	return nil
}
