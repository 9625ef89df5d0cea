package timeline

import "math"

// Rect is a marquee rectangle in screen pixels.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// ViewTransform maps screen pixels to timeline coordinates.
// PixelsPerSecond is the zoom level, ScrollOffset the seconds hidden
// left of the viewport, TrackHeight the pixel height of one track row
// (0 means the marquee spans all tracks).
type ViewTransform struct {
	PixelsPerSecond float64
	ScrollOffset    float64
	TrackHeight     float64
}

// SelectInRect converts a pixel rectangle to a time range and returns
// the ids of every clip whose interval intersects it. The boundary
// test is half-open: clipStart < rangeEnd && clipEnd > rangeStart, so
// a rectangle touching only a shared clip edge selects neither side.
func (tl *Timeline) SelectInRect(r Rect, view ViewTransform) []string {
	if view.PixelsPerSecond <= 0 || r.Width <= 0 {
		return nil
	}

	rangeStart := view.ScrollOffset + r.X/view.PixelsPerSecond
	rangeEnd := view.ScrollOffset + (r.X+r.Width)/view.PixelsPerSecond

	firstTrack, lastTrack := 0, math.MaxInt32
	if view.TrackHeight > 0 {
		firstTrack = int(math.Floor(r.Y / view.TrackHeight))
		lastTrack = int(math.Floor((r.Y + r.Height) / view.TrackHeight))
	}

	tl.mu.RLock()
	defer tl.mu.RUnlock()

	var selected []string
	for ti := range tl.seq.Tracks {
		if ti < firstTrack || ti > lastTrack {
			continue
		}
		for ci := range tl.seq.Tracks[ti].Clips {
			clip := &tl.seq.Tracks[ti].Clips[ci]
			if clip.Start < rangeEnd && clip.EndTime() > rangeStart {
				selected = append(selected, clip.ID)
			}
		}
	}
	return selected
}
