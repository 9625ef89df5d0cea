package timeline

import (
	"fmt"

	"montage/logger"
	"montage/model"
)

// defaultMinCutSpacing keeps auto-splice cuts from producing
// zero-duration fragments next to clip boundaries or each other.
const defaultMinCutSpacing = 0.1

// SpliceOptions are the auto-splice policy knobs.
type SpliceOptions struct {
	BeatsPerCut     int     `json:"beatsPerCut"`     // keep every Nth beat as a cut
	MinStrength     float64 `json:"minStrength"`     // drop beats weaker than this
	AlignmentOffset float64 `json:"alignmentOffset"` // shift every cut, may be negative
	DownbeatsOnly   bool    `json:"downbeatsOnly"`   // restrict to downbeat markers
	MinCutSpacing   float64 `json:"minCutSpacing"`   // 0 means the default
}

// SpliceResult reports what an auto-splice would (or did) produce.
// When Success is false, Reason is a human-readable explanation the UI
// can show next to the disabled commit action.
type SpliceResult struct {
	Success  bool      `json:"success"`
	CutCount int       `json:"cutCount"`
	CutTimes []float64 `json:"cutTimes,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	ClipIDs  []string  `json:"clipIds,omitempty"` // commit only: resulting clips
}

// PreviewAutoSplice computes the deterministic cut set for a clip
// against a list of beat markers without mutating the timeline.
func (tl *Timeline) PreviewAutoSplice(clipID string, beats []model.BeatMarker, opts SpliceOptions) SpliceResult {
	tl.mu.RLock()
	defer tl.mu.RUnlock()

	loc, ok := tl.clipIndex[clipID]
	if !ok {
		return SpliceResult{Reason: "clip not found"}
	}
	clip := tl.seq.Tracks[loc.track].Clips[loc.clip]
	return planCuts(&clip, beats, opts)
}

// CommitAutoSplice runs the same plan and then splits the clip at each
// surviving cut point, left to right. Each split leaves a fresh
// right-hand clip that the next cut lands in, so cut times computed up
// front stay valid. The whole batch is one undo step.
func (tl *Timeline) CommitAutoSplice(clipID string, beats []model.BeatMarker, opts SpliceOptions) (SpliceResult, error) {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	loc, ok := tl.clipIndex[clipID]
	if !ok {
		return SpliceResult{Reason: "clip not found"}, ErrClipNotFound
	}
	clip := tl.seq.Tracks[loc.track].Clips[loc.clip]
	plan := planCuts(&clip, beats, opts)
	if !plan.Success {
		return plan, nil
	}

	tl.pushUndo()
	current := clipID
	resulting := []string{clipID}
	for _, cut := range plan.CutTimes {
		next, err := tl.splitLocked(current, cut, false)
		if err != nil {
			// Plan and geometry disagree; roll back to the snapshot so
			// a half-applied splice is never observable.
			tl.seq = tl.undoStack[len(tl.undoStack)-1]
			tl.undoStack = tl.undoStack[:len(tl.undoStack)-1]
			tl.rebuildIndices()
			return SpliceResult{Reason: "split failed mid-commit"}, err
		}
		resulting = append(resulting, next)
		current = next
	}
	plan.ClipIDs = resulting
	logger.Info("auto-splice committed",
		logger.String("clipId", clipID),
		logger.Int("cuts", plan.CutCount))
	return plan, nil
}

// planCuts applies the filter pipeline from the splice options to the
// beat markers overlapping the clip.
func planCuts(clip *model.Clip, beats []model.BeatMarker, opts SpliceOptions) SpliceResult {
	if len(beats) == 0 {
		return SpliceResult{Reason: "no beat markers available"}
	}
	beatsPerCut := opts.BeatsPerCut
	if beatsPerCut < 1 {
		beatsPerCut = 1
	}
	spacing := opts.MinCutSpacing
	if spacing <= 0 {
		spacing = defaultMinCutSpacing
	}

	clipStart := clip.Start
	clipEnd := clip.EndTime()

	// Filter: window, downbeats, strength.
	var filtered []model.BeatMarker
	for _, b := range beats {
		if b.Time < clipStart || b.Time >= clipEnd {
			continue
		}
		if opts.DownbeatsOnly && !b.IsDownbeat {
			continue
		}
		if b.Strength < opts.MinStrength {
			continue
		}
		filtered = append(filtered, b)
	}
	if len(filtered) == 0 {
		return SpliceResult{Reason: "no beats match the current filters"}
	}

	// Keep every Nth surviving marker, apply the alignment offset,
	// clamp into the clip, and enforce minimum spacing.
	var cuts []float64
	lastCut := clipStart
	for i, b := range filtered {
		if (i+1)%beatsPerCut != 0 {
			continue
		}
		cut := b.Time + opts.AlignmentOffset
		if cut <= clipStart+spacing || cut >= clipEnd-spacing {
			continue
		}
		if cut-lastCut < spacing {
			continue
		}
		cuts = append(cuts, cut)
		lastCut = cut
	}
	if len(cuts) == 0 {
		return SpliceResult{Reason: fmt.Sprintf("filters left no usable cut points (%d beats matched)", len(filtered))}
	}

	return SpliceResult{Success: true, CutCount: len(cuts), CutTimes: cuts}
}
