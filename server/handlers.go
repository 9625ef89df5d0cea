package server

import (
	"encoding/json"
	"errors"
	"image/png"
	"net/http"
	"strconv"

	"montage/core/player"
	"montage/core/timeline"
	"montage/logger"
	"montage/model"
)

// PlayerHandler exposes the engine over HTTP. It is the only writer
// of the timeline; the websocket hub is the read/event channel.
type PlayerHandler struct {
	player *player.Player
	hub    *EventHub
}

// NewPlayerHandler wires a player to the hub.
func NewPlayerHandler(p *player.Player, hub *EventHub) *PlayerHandler {
	return &PlayerHandler{player: p, hub: hub}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("response encode failed", logger.ErrorField(err))
	}
}

// editStatus maps edit rejections to 409/404/422 instead of 500: an
// invalid edit is a no-op, not a server fault.
func editStatus(err error) int {
	switch {
	case errors.Is(err, timeline.ErrClipNotFound), errors.Is(err, timeline.ErrTrackNotFound):
		return http.StatusNotFound
	case errors.Is(err, timeline.ErrOverlap), errors.Is(err, timeline.ErrTrackLocked):
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}

func (h *PlayerHandler) writeEditError(w http.ResponseWriter, err error) {
	writeJSON(w, editStatus(err), map[string]string{"error": err.Error()})
}

// GetSequenceHandler returns the current serialized sequence.
func (h *PlayerHandler) GetSequenceHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.player.Timeline().Sequence())
}

// UpdateSequenceHandler swaps in a new sequence + asset map.
func (h *PlayerHandler) UpdateSequenceHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Sequence model.Sequence     `json:"sequence"`
		Assets   model.AssetMap     `json:"assets"`
		Beats    []model.BeatMarker `json:"beats,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if err := h.player.UpdateSequence(body.Sequence, body.Assets); err != nil {
		h.writeEditError(w, err)
		return
	}
	if body.Beats != nil {
		h.player.SetBeats(body.Beats)
	}
	h.hub.Broadcast(EvtSequence, h.player.Timeline().Sequence())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"duration": h.player.Timeline().Duration(),
	})
}

// PlayHandler starts playback.
func (h *PlayerHandler) PlayHandler(w http.ResponseWriter, r *http.Request) {
	h.player.Play()
	writeJSON(w, http.StatusOK, map[string]string{"state": string(h.player.State())})
}

// PauseHandler pauses playback.
func (h *PlayerHandler) PauseHandler(w http.ResponseWriter, r *http.Request) {
	h.player.Pause()
	writeJSON(w, http.StatusOK, map[string]string{"state": string(h.player.State())})
}

// SeekHandler jumps the playhead.
func (h *PlayerHandler) SeekHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Time float64 `json:"time"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	h.player.Seek(body.Time)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"state":       string(h.player.State()),
		"currentTime": h.player.CurrentTime(),
	})
}

// VolumeHandler sets the master volume.
func (h *PlayerHandler) VolumeHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Volume float64 `json:"volume"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	h.player.SetMasterVolume(body.Volume)
	writeJSON(w, http.StatusOK, map[string]float64{"volume": body.Volume})
}

// StateHandler reports playback state and position.
func (h *PlayerHandler) StateHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"state":       string(h.player.State()),
		"currentTime": h.player.CurrentTime(),
		"duration":    h.player.Timeline().Duration(),
	})
}

// MoveHandler repositions a clip, with optional magnetic snapping.
func (h *PlayerHandler) MoveHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ClipID string `json:"clipId"`
		timeline.MoveOptions
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	applied, err := h.player.Timeline().Move(body.ClipID, body.MoveOptions)
	if err != nil {
		h.writeEditError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"start": applied})
}

// TrimHandler adjusts one edge of a clip.
func (h *PlayerHandler) TrimHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ClipID string  `json:"clipId"`
		Edge   string  `json:"edge"` // "left" or "right"
		Delta  float64 `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	edge := timeline.TrimLeft
	if body.Edge == "right" {
		edge = timeline.TrimRight
	}
	if err := h.player.Timeline().Trim(body.ClipID, edge, body.Delta); err != nil {
		h.writeEditError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// SlipHandler shifts a clip's trim window.
func (h *PlayerHandler) SlipHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ClipID string  `json:"clipId"`
		Delta  float64 `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	applied, err := h.player.Timeline().Slip(body.ClipID, body.Delta)
	if err != nil {
		h.writeEditError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"applied": applied})
}

// SlideHandler moves a clip, pushing neighbors. preview=true reports
// the affected set without committing.
func (h *PlayerHandler) SlideHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ClipID  string  `json:"clipId"`
		Delta   float64 `json:"delta"`
		Preview bool    `json:"preview"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if body.Preview {
		affected, err := h.player.Timeline().PreviewSlide(body.ClipID, body.Delta)
		if err != nil {
			h.writeEditError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"affected": affected})
		return
	}
	if err := h.player.Timeline().Slide(body.ClipID, body.Delta); err != nil {
		h.writeEditError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// SplitHandler divides a clip at a playhead time.
func (h *PlayerHandler) SplitHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ClipID string  `json:"clipId"`
		Time   float64 `json:"time"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	newID, err := h.player.Timeline().Split(body.ClipID, body.Time)
	if err != nil {
		h.writeEditError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"newClipId": newID})
}

// RippleDeleteHandler removes a clip and closes the gap.
func (h *PlayerHandler) RippleDeleteHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ClipID string `json:"clipId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if err := h.player.Timeline().RippleDelete(body.ClipID); err != nil {
		h.writeEditError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// SelectHandler runs a marquee selection.
func (h *PlayerHandler) SelectHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Rect timeline.Rect          `json:"rect"`
		View timeline.ViewTransform `json:"view"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	ids := h.player.Timeline().SelectInRect(body.Rect, body.View)
	writeJSON(w, http.StatusOK, map[string]interface{}{"clipIds": ids})
}

// UndoHandler undoes the last edit.
func (h *PlayerHandler) UndoHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"applied": h.player.Timeline().Undo()})
}

// RedoHandler redoes the last undone edit.
func (h *PlayerHandler) RedoHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"applied": h.player.Timeline().Redo()})
}

// SplicePreviewHandler computes the auto-splice plan.
func (h *PlayerHandler) SplicePreviewHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ClipID  string                 `json:"clipId"`
		Options timeline.SpliceOptions `json:"options"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	result := h.player.Timeline().PreviewAutoSplice(body.ClipID, h.player.Beats(), body.Options)
	writeJSON(w, http.StatusOK, result)
}

// SpliceCommitHandler applies the auto-splice plan.
func (h *PlayerHandler) SpliceCommitHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ClipID  string                 `json:"clipId"`
		Options timeline.SpliceOptions `json:"options"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	result, err := h.player.Timeline().CommitAutoSplice(body.ClipID, h.player.Beats(), body.Options)
	if err != nil {
		h.writeEditError(w, err)
		return
	}
	if result.Success {
		h.hub.Broadcast(EvtSequence, h.player.Timeline().Sequence())
	}
	writeJSON(w, http.StatusOK, result)
}

// FrameHandler renders the frame at ?t= as PNG.
func (h *PlayerHandler) FrameHandler(w http.ResponseWriter, r *http.Request) {
	t, err := strconv.ParseFloat(r.URL.Query().Get("t"), 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing or invalid t"})
		return
	}
	img, err := h.player.RenderPoster(r.Context(), t)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, img); err != nil {
		logger.Warn("frame encode failed", logger.ErrorField(err))
	}
}
