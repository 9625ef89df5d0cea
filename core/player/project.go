package player

import (
	"encoding/json"
	"fmt"
	"os"

	"montage/model"
)

// ProjectFile is the on-disk hand-off format the surrounding
// application writes: a sequence, the assets it references and any
// beat markers from analysis. The engine only ever reads it whole and
// re-derives the duration.
type ProjectFile struct {
	Sequence model.Sequence     `json:"sequence"`
	Assets   model.AssetMap     `json:"assets"`
	Beats    []model.BeatMarker `json:"beats,omitempty"`
}

// LoadProjectFile reads and decodes a project file.
func LoadProjectFile(path string) (*ProjectFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("player: read project: %w", err)
	}
	var pf ProjectFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("player: decode project %s: %w", path, err)
	}
	return &pf, nil
}

// LoadProject loads a project file into the player.
func (p *Player) LoadProject(path string) error {
	pf, err := LoadProjectFile(path)
	if err != nil {
		return err
	}
	if err := p.UpdateSequence(pf.Sequence, pf.Assets); err != nil {
		return err
	}
	p.SetBeats(pf.Beats)
	return nil
}
