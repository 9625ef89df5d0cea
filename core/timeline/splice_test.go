package timeline

import (
	"strings"
	"testing"

	"montage/model"
)

// beatsEverySecond returns markers at t=1..9, all strength 1, downbeats
// on every fourth.
func beatsEverySecond() []model.BeatMarker {
	var beats []model.BeatMarker
	for i := 1; i <= 9; i++ {
		beats = append(beats, model.BeatMarker{
			Time:       float64(i),
			Strength:   1,
			IsDownbeat: i%4 == 0,
		})
	}
	return beats
}

func TestPreviewAutoSplice(t *testing.T) {
	tests := []struct {
		name     string
		beats    []model.BeatMarker
		opts     SpliceOptions
		wantCuts []float64
		wantFail string
	}{
		{
			name:     "every second beat",
			beats:    beatsEverySecond(),
			opts:     SpliceOptions{BeatsPerCut: 2, MinStrength: 0.5},
			wantCuts: []float64{2, 4, 6, 8},
		},
		{
			name:     "every beat",
			beats:    beatsEverySecond(),
			opts:     SpliceOptions{BeatsPerCut: 1},
			wantCuts: []float64{1, 2, 3, 4, 5, 6, 7, 8, 9},
		},
		{
			name:     "downbeats only",
			beats:    beatsEverySecond(),
			opts:     SpliceOptions{BeatsPerCut: 1, DownbeatsOnly: true},
			wantCuts: []float64{4, 8},
		},
		{
			name:     "alignment offset shifts cuts",
			beats:    beatsEverySecond(),
			opts:     SpliceOptions{BeatsPerCut: 2, AlignmentOffset: 0.5},
			wantCuts: []float64{2.5, 4.5, 6.5, 8.5},
		},
		{
			name: "strength filter drops weak beats",
			beats: []model.BeatMarker{
				{Time: 1, Strength: 0.2},
				{Time: 2, Strength: 0.9},
				{Time: 3, Strength: 0.3},
				{Time: 4, Strength: 0.8},
			},
			opts:     SpliceOptions{BeatsPerCut: 1, MinStrength: 0.5},
			wantCuts: []float64{2, 4},
		},
		{
			name:     "no beats at all",
			beats:    nil,
			opts:     SpliceOptions{BeatsPerCut: 2},
			wantFail: "no beat markers",
		},
		{
			name:     "filters exclude everything",
			beats:    beatsEverySecond(),
			opts:     SpliceOptions{BeatsPerCut: 1, MinStrength: 2},
			wantFail: "no beats match",
		},
		{
			name: "cuts too close to clip bounds dropped",
			beats: []model.BeatMarker{
				{Time: 0.05, Strength: 1},
				{Time: 9.95, Strength: 1},
			},
			opts:     SpliceOptions{BeatsPerCut: 1},
			wantFail: "no usable cut points",
		},
		{
			name: "minimum spacing thins a cluster",
			beats: []model.BeatMarker{
				{Time: 3, Strength: 1},
				{Time: 3.2, Strength: 1},
				{Time: 3.4, Strength: 1},
			},
			opts:     SpliceOptions{BeatsPerCut: 1, MinCutSpacing: 0.5},
			wantCuts: []float64{3},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl := newTestTimeline(t, videoClip("a", 0, 10))
			got := tl.PreviewAutoSplice("a", tt.beats, tt.opts)

			if tt.wantFail != "" {
				if got.Success {
					t.Fatalf("expected failure, got %+v", got)
				}
				if !strings.Contains(got.Reason, tt.wantFail) {
					t.Errorf("Reason = %q, want it to mention %q", got.Reason, tt.wantFail)
				}
				return
			}

			if !got.Success {
				t.Fatalf("preview failed: %s", got.Reason)
			}
			if got.CutCount != len(tt.wantCuts) || len(got.CutTimes) != len(tt.wantCuts) {
				t.Fatalf("cuts = %v, want %v", got.CutTimes, tt.wantCuts)
			}
			for i, want := range tt.wantCuts {
				if !almostEqual(got.CutTimes[i], want) {
					t.Errorf("cut %d = %v, want %v", i, got.CutTimes[i], want)
				}
			}
		})
	}
}

func TestPreviewAutoSpliceWindowsToClip(t *testing.T) {
	// The clip covers [4, 8]; beats outside it are ignored.
	tl := newTestTimeline(t, videoClip("a", 4, 4))
	got := tl.PreviewAutoSplice("a", beatsEverySecond(), SpliceOptions{BeatsPerCut: 1})
	if !got.Success {
		t.Fatalf("preview failed: %s", got.Reason)
	}
	want := []float64{5, 6, 7}
	if len(got.CutTimes) != len(want) {
		t.Fatalf("cuts = %v, want %v", got.CutTimes, want)
	}
	for i := range want {
		if !almostEqual(got.CutTimes[i], want[i]) {
			t.Errorf("cut %d = %v, want %v", i, got.CutTimes[i], want[i])
		}
	}
}

func TestPreviewAutoSpliceUnknownClip(t *testing.T) {
	tl := newTestTimeline(t)
	got := tl.PreviewAutoSplice("ghost", beatsEverySecond(), SpliceOptions{})
	if got.Success {
		t.Fatal("preview succeeded for a missing clip")
	}
}

func TestCommitAutoSplice(t *testing.T) {
	tl := newTestTimeline(t, videoClip("a", 0, 10))
	got, err := tl.CommitAutoSplice("a", beatsEverySecond(), SpliceOptions{BeatsPerCut: 2, MinStrength: 0.5})
	if err != nil {
		t.Fatalf("CommitAutoSplice: %v", err)
	}
	if !got.Success || got.CutCount != 4 {
		t.Fatalf("result = %+v, want 4 successful cuts", got)
	}
	if len(got.ClipIDs) != 5 {
		t.Fatalf("ClipIDs = %v, want 5 resulting clips", got.ClipIDs)
	}

	seq := tl.Sequence()
	clips := seq.Tracks[0].Clips
	if len(clips) != 5 {
		t.Fatalf("track has %d clips, want 5", len(clips))
	}
	wantStarts := []float64{0, 2, 4, 6, 8}
	for i, clip := range clips {
		if !almostEqual(clip.Start, wantStarts[i]) {
			t.Errorf("clip %d starts at %v, want %v", i, clip.Start, wantStarts[i])
		}
		if !almostEqual(clip.Duration, 2) {
			t.Errorf("clip %d duration %v, want 2", i, clip.Duration)
		}
	}

	// Each fragment samples its own stretch of source media.
	for i := 1; i < len(clips); i++ {
		if !almostEqual(clips[i-1].TrimEnd, clips[i].TrimStart) {
			t.Errorf("trim seam between %d and %d: %v vs %v",
				i-1, i, clips[i-1].TrimEnd, clips[i].TrimStart)
		}
	}
}

func TestCommitAutoSpliceIsOneUndoStep(t *testing.T) {
	tl := newTestTimeline(t, videoClip("a", 0, 10))
	if _, err := tl.CommitAutoSplice("a", beatsEverySecond(), SpliceOptions{BeatsPerCut: 2}); err != nil {
		t.Fatalf("CommitAutoSplice: %v", err)
	}

	if !tl.Undo() {
		t.Fatal("Undo failed")
	}
	seq := tl.Sequence()
	if got := len(seq.Tracks[0].Clips); got != 1 {
		t.Errorf("track has %d clips after one undo, want the original 1", got)
	}
	if tl.Undo() {
		t.Error("a second undo succeeded, splice left more than one snapshot")
	}
}

func TestCommitAutoSpliceFailedPlanMutatesNothing(t *testing.T) {
	tl := newTestTimeline(t, videoClip("a", 0, 10))
	got, err := tl.CommitAutoSplice("a", nil, SpliceOptions{BeatsPerCut: 2})
	if err != nil {
		t.Fatalf("CommitAutoSplice: %v", err)
	}
	if got.Success {
		t.Fatal("commit succeeded with no beats")
	}
	if tl.Undo() {
		t.Error("failed commit pushed an undo snapshot")
	}
}
