package timeline

import (
	"errors"
	"math"
	"testing"

	"montage/model"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func testAssets() model.AssetMap {
	return model.AssetMap{
		"media-1": {ID: "media-1", Type: model.AssetTypeVideo, Duration: 60},
		"media-2": {ID: "media-2", Type: model.AssetTypeAudio, Duration: 60},
	}
}

func videoClip(id string, start, dur float64) model.Clip {
	return model.Clip{
		ID: id, MediaID: "media-1", TrackID: "v1", Kind: model.ClipKindVideo,
		Start: start, Duration: dur, TrimStart: 0, TrimEnd: dur,
		Opacity: 1, Volume: 1,
	}
}

// newTestTimeline builds a one-track timeline holding the given clips.
func newTestTimeline(t *testing.T, clips ...model.Clip) *Timeline {
	t.Helper()
	tl := New(1920, 1080, 30)
	seq := model.Sequence{
		ID: "seq", Name: "test", Width: 1920, Height: 1080, FPS: 30,
		Tracks: []model.Track{{ID: "v1", Kind: model.TrackKindVideo, Clips: clips}},
	}
	if err := tl.Replace(seq, testAssets()); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	return tl
}

func mustClip(t *testing.T, tl *Timeline, id string) model.Clip {
	t.Helper()
	clip, ok := tl.Clip(id)
	if !ok {
		t.Fatalf("clip %s not found", id)
	}
	return clip
}

func TestReplaceValidation(t *testing.T) {
	tests := []struct {
		name  string
		clips []model.Clip
		want  error
	}{
		{
			name:  "overlap rejected",
			clips: []model.Clip{videoClip("a", 0, 4), videoClip("b", 2, 4)},
			want:  ErrOverlap,
		},
		{
			name: "unknown asset rejected",
			clips: []model.Clip{{
				ID: "a", MediaID: "nope", TrackID: "v1",
				Start: 0, Duration: 4, TrimEnd: 4,
			}},
			want: ErrUnknownAsset,
		},
		{
			name: "negative start rejected",
			clips: []model.Clip{{
				ID: "a", MediaID: "media-1", TrackID: "v1",
				Start: -1, Duration: 4, TrimEnd: 4,
			}},
			want: ErrInvalidGeometry,
		},
		{
			name: "zero duration rejected",
			clips: []model.Clip{{
				ID: "a", MediaID: "media-1", TrackID: "v1",
				Start: 0, Duration: 0,
			}},
			want: ErrInvalidGeometry,
		},
		{
			name: "trim past source end rejected",
			clips: []model.Clip{{
				ID: "a", MediaID: "media-1", TrackID: "v1",
				Start: 0, Duration: 4, TrimStart: 58, TrimEnd: 62,
			}},
			want: ErrInvalidTrim,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl := New(1920, 1080, 30)
			seq := model.Sequence{
				ID:     "seq",
				Tracks: []model.Track{{ID: "v1", Kind: model.TrackKindVideo, Clips: tt.clips}},
			}
			if err := tl.Replace(seq, testAssets()); !errors.Is(err, tt.want) {
				t.Errorf("Replace = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestReplaceTouchingClipsAllowed(t *testing.T) {
	// Shared edges are not overlaps.
	tl := newTestTimeline(t, videoClip("a", 0, 4), videoClip("b", 4, 3))
	if !almostEqual(tl.Duration(), 7) {
		t.Errorf("Duration = %v, want 7", tl.Duration())
	}
}

func TestReplaceDefaultsOpacity(t *testing.T) {
	clip := videoClip("a", 0, 4)
	clip.Opacity = 0
	tl := newTestTimeline(t, clip)
	if got := mustClip(t, tl, "a"); got.Opacity != 1.0 {
		t.Errorf("Opacity = %v, want defaulted to 1", got.Opacity)
	}
}

func TestDurationRecomputedOnEdit(t *testing.T) {
	tl := newTestTimeline(t, videoClip("a", 0, 4), videoClip("b", 5, 3))
	if !almostEqual(tl.Duration(), 8) {
		t.Fatalf("Duration = %v, want 8", tl.Duration())
	}

	if err := tl.Delete("b"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !almostEqual(tl.Duration(), 4) {
		t.Errorf("Duration after delete = %v, want 4", tl.Duration())
	}
}

func TestUpsertClip(t *testing.T) {
	tl := newTestTimeline(t, videoClip("a", 0, 4))

	t.Run("insert", func(t *testing.T) {
		if err := tl.UpsertClip(videoClip("b", 5, 2)); err != nil {
			t.Fatalf("UpsertClip: %v", err)
		}
		if _, ok := tl.Clip("b"); !ok {
			t.Error("inserted clip not found")
		}
	})

	t.Run("overlap rejected", func(t *testing.T) {
		if err := tl.UpsertClip(videoClip("c", 1, 2)); !errors.Is(err, ErrOverlap) {
			t.Errorf("UpsertClip = %v, want ErrOverlap", err)
		}
	})

	t.Run("unknown track", func(t *testing.T) {
		clip := videoClip("d", 10, 2)
		clip.TrackID = "missing"
		if err := tl.UpsertClip(clip); !errors.Is(err, ErrTrackNotFound) {
			t.Errorf("UpsertClip = %v, want ErrTrackNotFound", err)
		}
	})

	t.Run("replace in place", func(t *testing.T) {
		clip := mustClip(t, tl, "a")
		clip.Start = 10
		if err := tl.UpsertClip(clip); err != nil {
			t.Fatalf("UpsertClip: %v", err)
		}
		if got := mustClip(t, tl, "a"); !almostEqual(got.Start, 10) {
			t.Errorf("Start = %v, want 10", got.Start)
		}
	})
}

func TestLockedTrackRejectsEdits(t *testing.T) {
	tl := New(1920, 1080, 30)
	seq := model.Sequence{
		ID: "seq",
		Tracks: []model.Track{{
			ID: "v1", Kind: model.TrackKindVideo, Locked: true,
			Clips: []model.Clip{videoClip("a", 0, 4)},
		}},
	}
	if err := tl.Replace(seq, testAssets()); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	if _, err := tl.Move("a", MoveOptions{NewStart: 2}); !errors.Is(err, ErrTrackLocked) {
		t.Errorf("Move on locked track = %v, want ErrTrackLocked", err)
	}
	if err := tl.Trim("a", TrimRight, 1); !errors.Is(err, ErrTrackLocked) {
		t.Errorf("Trim on locked track = %v, want ErrTrackLocked", err)
	}
	if err := tl.Delete("a"); !errors.Is(err, ErrTrackLocked) {
		t.Errorf("Delete on locked track = %v, want ErrTrackLocked", err)
	}
	if err := tl.RemoveTrack("v1"); !errors.Is(err, ErrTrackLocked) {
		t.Errorf("RemoveTrack on locked track = %v, want ErrTrackLocked", err)
	}
}

func TestAllowOverlapTrack(t *testing.T) {
	tl := New(1920, 1080, 30)
	seq := model.Sequence{
		ID: "seq",
		Tracks: []model.Track{{
			ID: "v1", Kind: model.TrackKindVideo, AllowOverlap: true,
			Clips: []model.Clip{videoClip("a", 0, 4), videoClip("b", 2, 4)},
		}},
	}
	if err := tl.Replace(seq, testAssets()); err != nil {
		t.Fatalf("Replace rejected overlap on an AllowOverlap track: %v", err)
	}
}

func TestUndoRedo(t *testing.T) {
	tl := newTestTimeline(t, videoClip("a", 0, 4))

	if tl.Undo() {
		t.Error("Undo on fresh timeline reported success")
	}

	if _, err := tl.Move("a", MoveOptions{NewStart: 6}); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if !almostEqual(mustClip(t, tl, "a").Start, 6) {
		t.Fatal("move did not apply")
	}

	if !tl.Undo() {
		t.Fatal("Undo failed")
	}
	if got := mustClip(t, tl, "a"); !almostEqual(got.Start, 0) {
		t.Errorf("Start after undo = %v, want 0", got.Start)
	}

	if !tl.Redo() {
		t.Fatal("Redo failed")
	}
	if got := mustClip(t, tl, "a"); !almostEqual(got.Start, 6) {
		t.Errorf("Start after redo = %v, want 6", got.Start)
	}
}

func TestNewEditClearsRedo(t *testing.T) {
	tl := newTestTimeline(t, videoClip("a", 0, 4))

	if _, err := tl.Move("a", MoveOptions{NewStart: 6}); err != nil {
		t.Fatalf("Move: %v", err)
	}
	tl.Undo()
	if _, err := tl.Move("a", MoveOptions{NewStart: 8}); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if tl.Redo() {
		t.Error("Redo succeeded after a new edit, stack should be cleared")
	}
}

func TestUndoDepthBounded(t *testing.T) {
	tl := newTestTimeline(t, videoClip("a", 0, 1))
	for i := 0; i < maxUndoDepth+10; i++ {
		if _, err := tl.Move("a", MoveOptions{NewStart: float64(i + 2)}); err != nil {
			t.Fatalf("Move %d: %v", i, err)
		}
	}
	undos := 0
	for tl.Undo() {
		undos++
	}
	if undos != maxUndoDepth {
		t.Errorf("undo depth = %d, want %d", undos, maxUndoDepth)
	}
}

func TestStackAt(t *testing.T) {
	tl := New(1920, 1080, 30)
	audioClip := model.Clip{
		ID: "au", MediaID: "media-2", TrackID: "a1", Kind: model.ClipKindAudio,
		Start: 0, Duration: 10, TrimEnd: 10, Volume: 0.8, Opacity: 1,
	}
	mutedClip := videoClip("m", 0, 10)
	mutedClip.TrackID = "v2"
	seq := model.Sequence{
		ID: "seq",
		Tracks: []model.Track{
			{ID: "v1", Kind: model.TrackKindVideo, Clips: []model.Clip{videoClip("a", 0, 4), videoClip("b", 4, 4)}},
			{ID: "v2", Kind: model.TrackKindVideo, Muted: true, Clips: []model.Clip{mutedClip}},
			{ID: "a1", Kind: model.TrackKindAudio, Clips: []model.Clip{audioClip}},
		},
	}
	if err := tl.Replace(seq, testAssets()); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	t.Run("audio and muted tracks skipped", func(t *testing.T) {
		stack := tl.StackAt(1)
		if len(stack) != 1 || stack[0].Clip.ID != "a" {
			t.Fatalf("StackAt(1) = %+v, want single entry for clip a", stack)
		}
	})

	t.Run("clip end is exclusive", func(t *testing.T) {
		stack := tl.StackAt(4)
		if len(stack) != 1 || stack[0].Clip.ID != "b" {
			t.Fatalf("StackAt(4) = %+v, want clip b only", stack)
		}
	})

	t.Run("neighbors populated", func(t *testing.T) {
		stack := tl.StackAt(5)
		if len(stack) != 1 {
			t.Fatalf("StackAt(5) = %+v", stack)
		}
		entry := stack[0]
		if entry.Prev == nil || entry.Prev.ID != "a" {
			t.Errorf("Prev = %+v, want clip a", entry.Prev)
		}
		if entry.Next != nil {
			t.Errorf("Next = %+v, want nil", entry.Next)
		}
	})

	t.Run("nothing past the end", func(t *testing.T) {
		if stack := tl.StackAt(20); len(stack) != 0 {
			t.Errorf("StackAt(20) = %+v, want empty", stack)
		}
	})
}

func TestAudioClipsAt(t *testing.T) {
	tl := New(1920, 1080, 30)
	seq := model.Sequence{
		ID: "seq",
		Tracks: []model.Track{
			{ID: "v1", Kind: model.TrackKindVideo, Clips: []model.Clip{videoClip("a", 0, 4)}},
			{ID: "a1", Kind: model.TrackKindAudio, Clips: []model.Clip{{
				ID: "au", MediaID: "media-2", TrackID: "a1", Kind: model.ClipKindAudio,
				Start: 0, Duration: 10, TrimEnd: 10, Volume: 0.8, Opacity: 1,
			}}},
			{ID: "a2", Kind: model.TrackKindAudio, Muted: true, Clips: []model.Clip{{
				ID: "mu", MediaID: "media-2", TrackID: "a2", Kind: model.ClipKindAudio,
				Start: 0, Duration: 10, TrimEnd: 10, Volume: 1, Opacity: 1,
			}}},
		},
	}
	if err := tl.Replace(seq, testAssets()); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	clips := tl.AudioClipsAt(1)
	if len(clips) != 1 || clips[0].ID != "au" {
		t.Errorf("AudioClipsAt(1) = %+v, want clip au only", clips)
	}
}

func TestAddRemoveTrack(t *testing.T) {
	tl := newTestTimeline(t, videoClip("a", 0, 4))

	if err := tl.AddTrack(model.Track{ID: "v2", Kind: model.TrackKindOverlay}); err != nil {
		t.Fatalf("AddTrack: %v", err)
	}
	if err := tl.AddTrack(model.Track{ID: "v2"}); !errors.Is(err, ErrTrackExists) {
		t.Errorf("duplicate AddTrack = %v, want ErrTrackExists", err)
	}

	if err := tl.RemoveTrack("v2"); err != nil {
		t.Fatalf("RemoveTrack: %v", err)
	}
	if err := tl.RemoveTrack("v2"); !errors.Is(err, ErrTrackNotFound) {
		t.Errorf("RemoveTrack again = %v, want ErrTrackNotFound", err)
	}
}

func TestUpdateTrack(t *testing.T) {
	tl := newTestTimeline(t, videoClip("a", 0, 4))

	if err := tl.UpdateTrack(model.Track{ID: "missing"}); !errors.Is(err, ErrTrackNotFound) {
		t.Fatalf("UpdateTrack = %v, want ErrTrackNotFound", err)
	}

	if err := tl.UpdateTrack(model.Track{ID: "v1", Kind: model.TrackKindVideo, Muted: true}); err != nil {
		t.Fatalf("UpdateTrack: %v", err)
	}
	if stack := tl.StackAt(1); len(stack) != 0 {
		t.Errorf("muted track still renders: %+v", stack)
	}
	if got := mustClip(t, tl, "a"); !almostEqual(got.Duration, 4) {
		t.Errorf("clips lost across track update: %+v", got)
	}

	// Locking and unlocking goes through the same operation.
	if err := tl.UpdateTrack(model.Track{ID: "v1", Kind: model.TrackKindVideo, Locked: true}); err != nil {
		t.Fatalf("UpdateTrack lock: %v", err)
	}
	if _, err := tl.Move("a", MoveOptions{NewStart: 1}); !errors.Is(err, ErrTrackLocked) {
		t.Errorf("Move on locked track = %v, want ErrTrackLocked", err)
	}
	if err := tl.UpdateTrack(model.Track{ID: "v1", Kind: model.TrackKindVideo}); err != nil {
		t.Fatalf("UpdateTrack unlock: %v", err)
	}
	if _, err := tl.Move("a", MoveOptions{NewStart: 1}); err != nil {
		t.Errorf("Move after unlock: %v", err)
	}

	if !tl.Undo() {
		t.Fatal("Undo failed")
	}
}

func TestSequenceReturnsCopy(t *testing.T) {
	tl := newTestTimeline(t, videoClip("a", 0, 4))
	seq := tl.Sequence()
	seq.Tracks[0].Clips[0].Start = 99

	if got := mustClip(t, tl, "a"); !almostEqual(got.Start, 0) {
		t.Errorf("mutating the returned sequence changed the timeline: Start = %v", got.Start)
	}
}
