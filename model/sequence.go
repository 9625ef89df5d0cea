package model

// TrackKind determines how a track participates in compositing.
type TrackKind string

const (
	TrackKindVideo   TrackKind = "video"
	TrackKindAudio   TrackKind = "audio"
	TrackKindOverlay TrackKind = "overlay"
	TrackKindFx      TrackKind = "fx"
)

// ClipKind mirrors the media type a clip references.
type ClipKind string

const (
	ClipKindVideo ClipKind = "video"
	ClipKindAudio ClipKind = "audio"
	ClipKindImage ClipKind = "image"
)

// Effect is a named per-clip effect with scalar parameters, evaluated
// at draw time against the clip's local timeline. Types the compositor
// does not know pass through the model untouched.
type Effect struct {
	ID      string             `json:"id"`
	Type    string             `json:"type"`
	Params  map[string]float64 `json:"params,omitempty"`
	Enabled bool               `json:"enabled"`
}

// TransitionSpec describes a transition attached to a clip. The window
// spans the boundary with the previous clip on the same track.
type TransitionSpec struct {
	ID       string  `json:"id"`
	Type     string  `json:"type"`
	Duration float64 `json:"duration"`
	Easing   float64 `json:"easing"`
}

// Clip is a trimmed reference to a media asset placed on a track.
// Start and Duration are timeline-space seconds; TrimStart/TrimEnd are
// offsets into the source media's native timeline. A speed curve
// changes which source frames are sampled, never the timeline-space
// duration.
type Clip struct {
	ID          string           `json:"id"`
	MediaID     string           `json:"mediaId"`
	TrackID     string           `json:"trackId"`
	Kind        ClipKind         `json:"kind"`
	Start       float64          `json:"start"`
	Duration    float64          `json:"duration"`
	TrimStart   float64          `json:"trimStart"`
	TrimEnd     float64          `json:"trimEnd"`
	Opacity     float64          `json:"opacity"`
	Volume      float64          `json:"volume"`
	SpeedCurve  SpeedCurve       `json:"speedCurve,omitempty"`
	Effects     []Effect         `json:"effects,omitempty"`
	Transitions []TransitionSpec `json:"transitions,omitempty"`
}

// EndTime returns the clip's end position on the track timeline.
func (c *Clip) EndTime() float64 {
	return c.Start + c.Duration
}

// Track holds an ordered (by Start) list of non-overlapping clips.
// AllowOverlap relaxes the overlap check for freeform tracks.
type Track struct {
	ID           string    `json:"id"`
	Kind         TrackKind `json:"kind"`
	AllowOverlap bool      `json:"allowOverlap"`
	Locked       bool      `json:"locked"`
	Muted        bool      `json:"muted"`
	Clips        []Clip    `json:"clips"`
}

// Sequence is the root of the timeline model. Duration is derived from
// clip geometry and recomputed on every mutation; it is never trusted
// from a deserialized payload.
type Sequence struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	FPS      float64 `json:"fps"`
	Duration float64 `json:"duration"`
	Tracks   []Track `json:"tracks"`
}

// RecalcDuration recomputes Duration as the max clip end over all tracks.
func (s *Sequence) RecalcDuration() {
	max := 0.0
	for i := range s.Tracks {
		for j := range s.Tracks[i].Clips {
			if end := s.Tracks[i].Clips[j].EndTime(); end > max {
				max = end
			}
		}
	}
	s.Duration = max
}

// Clone returns a deep copy, used for undo snapshots.
func (s *Sequence) Clone() Sequence {
	out := *s
	out.Tracks = make([]Track, len(s.Tracks))
	for i := range s.Tracks {
		t := s.Tracks[i]
		clips := make([]Clip, len(t.Clips))
		for j := range t.Clips {
			c := t.Clips[j]
			if c.SpeedCurve != nil {
				c.SpeedCurve = append(SpeedCurve(nil), c.SpeedCurve...)
			}
			if c.Effects != nil {
				effects := make([]Effect, len(c.Effects))
				for k, e := range c.Effects {
					if e.Params != nil {
						params := make(map[string]float64, len(e.Params))
						for name, v := range e.Params {
							params[name] = v
						}
						e.Params = params
					}
					effects[k] = e
				}
				c.Effects = effects
			}
			if c.Transitions != nil {
				c.Transitions = append([]TransitionSpec(nil), c.Transitions...)
			}
			clips[j] = c
		}
		t.Clips = clips
		out.Tracks[i] = t
	}
	return out
}
