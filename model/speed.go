package model

// SpeedKeyframe is one point on a clip's speed curve. Time is
// normalized to [0,1] over the clip's timeline-space duration; Speed
// is a source-sampling multiplier (0 = freeze frame).
type SpeedKeyframe struct {
	Time  float64 `json:"time"`
	Speed float64 `json:"speed"`
}

// SpeedCurve is an ordered (by Time) list of keyframes. A nil or empty
// curve means constant normal speed.
type SpeedCurve []SpeedKeyframe

// CalculateSpeedAtTime evaluates a speed curve at a normalized clip
// time via piecewise-linear interpolation. Outside the keyframe range
// the nearest edge keyframe's speed is returned, no extrapolation.
func CalculateSpeedAtTime(curve SpeedCurve, normalizedTime float64) float64 {
	if len(curve) == 0 {
		return 1.0
	}

	t := normalizedTime
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}

	if t <= curve[0].Time {
		return curve[0].Speed
	}
	if t >= curve[len(curve)-1].Time {
		return curve[len(curve)-1].Speed
	}

	for i := 0; i < len(curve)-1; i++ {
		k0, k1 := curve[i], curve[i+1]
		if t < k0.Time || t > k1.Time {
			continue
		}
		span := k1.Time - k0.Time
		if span <= 0 {
			// Zero-width interval: last write wins.
			return k1.Speed
		}
		frac := (t - k0.Time) / span
		return k0.Speed + (k1.Speed-k0.Speed)*frac
	}

	return curve[len(curve)-1].Speed
}

// SplitCurve divides a curve at a normalized split point and returns
// the two halves, each re-normalized to [0,1] over its own side. The
// boundary gets an interpolated keyframe on both sides so the split is
// seamless. Nil in, nil out.
func SplitCurve(curve SpeedCurve, frac float64) (SpeedCurve, SpeedCurve) {
	if len(curve) == 0 {
		return nil, nil
	}
	if frac <= 0 {
		return nil, append(SpeedCurve(nil), curve...)
	}
	if frac >= 1 {
		return append(SpeedCurve(nil), curve...), nil
	}

	boundary := CalculateSpeedAtTime(curve, frac)
	var left, right SpeedCurve
	for _, k := range curve {
		switch {
		case k.Time < frac:
			left = append(left, SpeedKeyframe{Time: k.Time / frac, Speed: k.Speed})
		case k.Time > frac:
			right = append(right, SpeedKeyframe{Time: (k.Time - frac) / (1 - frac), Speed: k.Speed})
		}
	}
	left = append(left, SpeedKeyframe{Time: 1, Speed: boundary})
	right = append(SpeedCurve{{Time: 0, Speed: boundary}}, right...)
	return left, right
}

// SourceOffsetAt integrates the speed curve from clip time 0 to
// localTime and returns how far the source timeline has advanced. With
// a nil curve this is just localTime. The piecewise-linear curve makes
// each segment's contribution the trapezoid area between its bounding
// keyframes.
func SourceOffsetAt(curve SpeedCurve, clipDuration, localTime float64) float64 {
	if clipDuration <= 0 {
		return 0
	}
	if localTime < 0 {
		localTime = 0
	} else if localTime > clipDuration {
		localTime = clipDuration
	}
	if len(curve) == 0 {
		return localTime
	}

	target := localTime / clipDuration
	offset := 0.0
	prevT := 0.0
	prevS := curve[0].Speed // constant before the first keyframe

	for i := 0; i <= len(curve); i++ {
		var segT, segS float64
		if i < len(curve) {
			segT, segS = curve[i].Time, curve[i].Speed
		} else {
			segT, segS = 1.0, curve[len(curve)-1].Speed
		}
		if segT <= prevT {
			prevS = segS
			continue
		}
		if target <= segT {
			frac := (target - prevT) / (segT - prevT)
			sAtTarget := prevS + (segS-prevS)*frac
			offset += (target - prevT) * (prevS + sAtTarget) / 2
			return offset * clipDuration
		}
		offset += (segT - prevT) * (prevS + segS) / 2
		prevT, prevS = segT, segS
	}

	return offset * clipDuration
}
