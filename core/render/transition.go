package render

import (
	"math"

	"montage/model"
)

// TransitionDipToBlack fades the outgoing clip fully to black before
// the incoming one fades up. Any other type is a linear crossfade.
const TransitionDipToBlack = "dipToBlack"

// TransitionWindow is the resolved time window of a transition
// centered on the boundary between two clips.
type TransitionWindow struct {
	From  model.Clip // outgoing clip
	To    model.Clip // incoming clip
	Spec  model.TransitionSpec
	Start float64
	End   float64
}

// Contains reports whether t lies inside the window.
func (w *TransitionWindow) Contains(t float64) bool {
	return t >= w.Start && t < w.End
}

// Mix returns the transition progress at t: 0 is all outgoing clip, 1
// all incoming. A positive Easing bends the linear ramp.
func (w *TransitionWindow) Mix(t float64) float64 {
	span := w.End - w.Start
	if span <= 0 {
		return 1
	}
	m := (t - w.Start) / span
	if m < 0 {
		return 0
	}
	if m > 1 {
		return 1
	}
	if w.Spec.Easing > 0 && w.Spec.Easing != 1 {
		m = math.Pow(m, w.Spec.Easing)
	}
	return m
}

// Weights returns the draw weights of the outgoing and incoming clips
// at t. Layers composite in order over the canvas, so the crossfade
// keeps the outgoing clip at full weight and fades the incoming one
// over it, which lands at from*(1-m) + to*m on screen. Dip-to-black
// attenuates each side against the black canvas instead.
func (w *TransitionWindow) Weights(t float64) (from, to float64) {
	m := w.Mix(t)
	if w.Spec.Type == TransitionDipToBlack {
		return math.Max(0, 1-2*m), math.Max(0, 2*m-1)
	}
	return 1, m
}

const boundaryEpsilon = 1e-6

// resolveTransition finds the transition window covering time t for a
// stack entry, if any. A transition spec on a clip spans the boundary
// with its previous neighbor when the two clips touch; the window is
// centered on the boundary and clamped so it never exceeds either
// clip's duration.
func resolveTransition(entry *tlStackEntry, t float64) *TransitionWindow {
	clip := &entry.Clip

	// Incoming transition on this clip against its previous neighbor.
	if entry.Prev != nil && len(clip.Transitions) > 0 {
		if w := windowAt(entry.Prev, clip, clip.Transitions[0]); w != nil && w.Contains(t) {
			return w
		}
	}
	// Outgoing: the next clip carries the spec but this clip is still
	// the active one in the first half of the window.
	if entry.Next != nil && len(entry.Next.Transitions) > 0 {
		if w := windowAt(clip, entry.Next, entry.Next.Transitions[0]); w != nil && w.Contains(t) {
			return w
		}
	}
	return nil
}

func windowAt(from, to *model.Clip, spec model.TransitionSpec) *TransitionWindow {
	if spec.Duration <= 0 {
		return nil
	}
	// Clips have to touch for a boundary transition to exist.
	if diff := to.Start - from.EndTime(); diff > boundaryEpsilon || diff < -boundaryEpsilon {
		return nil
	}

	half := spec.Duration / 2
	if half > from.Duration/2 {
		half = from.Duration / 2
	}
	if half > to.Duration/2 {
		half = to.Duration / 2
	}
	return &TransitionWindow{
		From:  *from,
		To:    *to,
		Spec:  spec,
		Start: to.Start - half,
		End:   to.Start + half,
	}
}
