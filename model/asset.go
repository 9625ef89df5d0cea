package model

// AssetType classifies a media asset.
type AssetType string

const (
	AssetTypeVideo AssetType = "video"
	AssetTypeAudio AssetType = "audio"
	AssetTypeImage AssetType = "image"
)

// Thumbnail is one precomputed preview frame of an asset.
type Thumbnail struct {
	Time float64 `json:"time"` // position in the asset's native timeline
	URL  string  `json:"url"`
}

// MediaAssetMeta describes an uploaded or generated asset. The engine
// treats it as read-only for the lifetime of an editing session; the
// surrounding application owns the records.
type MediaAssetMeta struct {
	ID         string      `json:"id"`
	Type       AssetType   `json:"type"`
	Duration   float64     `json:"duration"` // native duration in seconds
	Width      int         `json:"width,omitempty"`
	Height     int         `json:"height,omitempty"`
	URL        string      `json:"url"`       // playback URL, opaque to the engine
	ObjectKey  string      `json:"objectKey"` // key in the asset store, if stored there
	Thumbnails []Thumbnail `json:"thumbnails,omitempty"`
}

// AssetMap indexes assets by id.
type AssetMap map[string]MediaAssetMeta
