package timeline

import "errors"

// Edit rejections are returned before any state mutation. Callers are
// expected to surface them as a no-op with visual feedback, not crash.
var (
	ErrTrackNotFound   = errors.New("timeline: track not found")
	ErrTrackExists     = errors.New("timeline: track already exists")
	ErrClipNotFound    = errors.New("timeline: clip not found")
	ErrTrackLocked     = errors.New("timeline: track is locked")
	ErrOverlap         = errors.New("timeline: clips would overlap")
	ErrInvalidTrim     = errors.New("timeline: trim out of bounds")
	ErrInvalidSplit    = errors.New("timeline: split point outside clip")
	ErrUnknownAsset    = errors.New("timeline: clip references unknown asset")
	ErrInvalidGeometry = errors.New("timeline: invalid clip geometry")
)
