package model

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCalculateSpeedAtTime(t *testing.T) {
	ramp := SpeedCurve{{Time: 0, Speed: 1}, {Time: 1, Speed: 3}}
	plateau := SpeedCurve{{Time: 0.25, Speed: 2}, {Time: 0.75, Speed: 4}}

	tests := []struct {
		name  string
		curve SpeedCurve
		at    float64
		want  float64
	}{
		{"nil curve is unity", nil, 0.5, 1.0},
		{"empty curve is unity", SpeedCurve{}, 0.5, 1.0},
		{"single keyframe everywhere", SpeedCurve{{Time: 0.5, Speed: 2}}, 0.1, 2.0},
		{"ramp start", ramp, 0, 1.0},
		{"ramp midpoint", ramp, 0.5, 2.0},
		{"ramp end", ramp, 1, 3.0},
		{"ramp quarter", ramp, 0.25, 1.5},
		{"before first keyframe holds edge", plateau, 0.1, 2.0},
		{"after last keyframe holds edge", plateau, 0.9, 4.0},
		{"clamped below zero", ramp, -2, 1.0},
		{"clamped above one", ramp, 2, 3.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateSpeedAtTime(tt.curve, tt.at)
			if !almostEqual(got, tt.want) {
				t.Errorf("CalculateSpeedAtTime(%v, %v) = %v, want %v", tt.curve, tt.at, got, tt.want)
			}
		})
	}
}

func TestSourceOffsetAt(t *testing.T) {
	double := SpeedCurve{{Time: 0, Speed: 2}, {Time: 1, Speed: 2}}
	ramp := SpeedCurve{{Time: 0, Speed: 1}, {Time: 1, Speed: 3}}

	tests := []struct {
		name     string
		curve    SpeedCurve
		duration float64
		local    float64
		want     float64
	}{
		{"nil curve is identity", nil, 4, 2.5, 2.5},
		{"constant double speed", double, 4, 2, 4.0},
		{"constant double full clip", double, 4, 4, 8.0},
		{"ramp full integral", ramp, 1, 1, 2.0},
		{"ramp half integral", ramp, 1, 0.5, 0.75},
		{"negative local clamps to zero", double, 4, -1, 0},
		{"local past duration clamps", double, 4, 10, 8.0},
		{"zero duration", double, 0, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SourceOffsetAt(tt.curve, tt.duration, tt.local)
			if !almostEqual(got, tt.want) {
				t.Errorf("SourceOffsetAt(%v, %v, %v) = %v, want %v", tt.curve, tt.duration, tt.local, got, tt.want)
			}
		})
	}
}

func TestSourceOffsetAtMonotonic(t *testing.T) {
	curve := SpeedCurve{{Time: 0, Speed: 0.5}, {Time: 0.5, Speed: 3}, {Time: 1, Speed: 1}}
	prev := 0.0
	for i := 1; i <= 100; i++ {
		local := float64(i) / 100 * 8
		got := SourceOffsetAt(curve, 8, local)
		if got < prev {
			t.Fatalf("offset decreased: %v at local %v after %v", got, local, prev)
		}
		prev = got
	}
}

func TestSplitCurve(t *testing.T) {
	ramp := SpeedCurve{{Time: 0, Speed: 1}, {Time: 1, Speed: 3}}

	t.Run("nil in nil out", func(t *testing.T) {
		l, r := SplitCurve(nil, 0.5)
		if l != nil || r != nil {
			t.Errorf("got (%v, %v), want (nil, nil)", l, r)
		}
	})

	t.Run("frac zero keeps everything right", func(t *testing.T) {
		l, r := SplitCurve(ramp, 0)
		if l != nil {
			t.Errorf("left = %v, want nil", l)
		}
		if len(r) != len(ramp) {
			t.Errorf("right has %d keys, want %d", len(r), len(ramp))
		}
	})

	t.Run("frac one keeps everything left", func(t *testing.T) {
		l, r := SplitCurve(ramp, 1)
		if r != nil {
			t.Errorf("right = %v, want nil", r)
		}
		if len(l) != len(ramp) {
			t.Errorf("left has %d keys, want %d", len(l), len(ramp))
		}
	})

	t.Run("ramp midpoint", func(t *testing.T) {
		l, r := SplitCurve(ramp, 0.5)
		wantL := SpeedCurve{{Time: 0, Speed: 1}, {Time: 1, Speed: 2}}
		wantR := SpeedCurve{{Time: 0, Speed: 2}, {Time: 1, Speed: 3}}
		if !curvesEqual(l, wantL) {
			t.Errorf("left = %v, want %v", l, wantL)
		}
		if !curvesEqual(r, wantR) {
			t.Errorf("right = %v, want %v", r, wantR)
		}
	})

	t.Run("boundary speed is continuous", func(t *testing.T) {
		curve := SpeedCurve{{Time: 0, Speed: 2}, {Time: 0.4, Speed: 0.5}, {Time: 1, Speed: 1.5}}
		for _, frac := range []float64{0.2, 0.4, 0.7} {
			l, r := SplitCurve(curve, frac)
			endL := CalculateSpeedAtTime(l, 1)
			startR := CalculateSpeedAtTime(r, 0)
			if !almostEqual(endL, startR) {
				t.Errorf("split at %v: left ends at %v, right starts at %v", frac, endL, startR)
			}
			if !almostEqual(endL, CalculateSpeedAtTime(curve, frac)) {
				t.Errorf("split at %v: boundary speed %v differs from source curve %v",
					frac, endL, CalculateSpeedAtTime(curve, frac))
			}
		}
	})

	t.Run("keyframe at the split point replaced by boundary", func(t *testing.T) {
		curve := SpeedCurve{{Time: 0, Speed: 1}, {Time: 0.5, Speed: 5}, {Time: 1, Speed: 3}}
		l, r := SplitCurve(curve, 0.5)
		if !curvesEqual(l, SpeedCurve{{Time: 0, Speed: 1}, {Time: 1, Speed: 5}}) {
			t.Errorf("left = %v", l)
		}
		if !curvesEqual(r, SpeedCurve{{Time: 0, Speed: 5}, {Time: 1, Speed: 3}}) {
			t.Errorf("right = %v", r)
		}
	})
}

func curvesEqual(a, b SpeedCurve) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !almostEqual(a[i].Time, b[i].Time) || !almostEqual(a[i].Speed, b[i].Speed) {
			return false
		}
	}
	return true
}

func TestSequenceRecalcDuration(t *testing.T) {
	seq := Sequence{
		Duration: 999, // stale, must be recomputed
		Tracks: []Track{
			{ID: "v1", Clips: []Clip{{ID: "a", Start: 0, Duration: 4}, {ID: "b", Start: 5, Duration: 3}}},
			{ID: "a1", Clips: []Clip{{ID: "c", Start: 1, Duration: 2}}},
		},
	}
	seq.RecalcDuration()
	if !almostEqual(seq.Duration, 8) {
		t.Errorf("Duration = %v, want 8", seq.Duration)
	}

	seq.Tracks = nil
	seq.RecalcDuration()
	if seq.Duration != 0 {
		t.Errorf("empty sequence Duration = %v, want 0", seq.Duration)
	}
}

func TestSequenceCloneIsDeep(t *testing.T) {
	seq := Sequence{
		Tracks: []Track{{
			ID: "v1",
			Clips: []Clip{{
				ID:         "a",
				Start:      0,
				Duration:   4,
				SpeedCurve: SpeedCurve{{Time: 0, Speed: 1}},
				Effects: []Effect{{
					ID: "e1", Type: "opacity", Enabled: true,
					Params: map[string]float64{"amount": 0.5},
				}},
				Transitions: []TransitionSpec{{ID: "t1", Duration: 0.5}},
			}},
		}},
	}
	clone := seq.Clone()
	clone.Tracks[0].Clips[0].Start = 99
	clone.Tracks[0].Clips[0].SpeedCurve[0].Speed = 7
	clone.Tracks[0].Clips[0].Effects[0].Params["amount"] = 0.9
	clone.Tracks[0].Clips[0].Transitions[0].Duration = 9

	orig := seq.Tracks[0].Clips[0]
	if orig.Start != 0 || orig.SpeedCurve[0].Speed != 1 || orig.Transitions[0].Duration != 0.5 {
		t.Errorf("clone mutation leaked into the original: %+v", orig)
	}
	if orig.Effects[0].Params["amount"] != 0.5 {
		t.Errorf("effect params alias the clone: %v", orig.Effects[0].Params)
	}
}
