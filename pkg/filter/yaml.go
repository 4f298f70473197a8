package filter

import (
	"errors"
	"io"

	"gopkg.in/yaml.v3"
)

type presetDocument struct {
	Presets []Preset `yaml:"presets"`
}

// LoadPresetsYAML adds the custom presets listed in r:
//
//	presets:
//	  - name: Late rent
//	    categories: [Finance]
//	    priorities: [high, urgent]
//	    read_state: unread
//	    period: week
//	    query: rent
//	    sort: {field: priority, order: desc}
//
// Presets whose ID already exists replace the custom preset with that ID;
// default presets cannot be overridden. Nothing is added when any entry is
// invalid. It returns the number of presets added or replaced.
func (e *Engine) LoadPresetsYAML(r io.Reader) (int, error) {
	var doc presetDocument
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return 0, errors.Join(ErrInvalidPresetDoc, err)
	}

	presets := make([]Preset, 0, len(doc.Presets))
	for _, p := range doc.Presets {
		if p.ID == "" {
			p.ID = presetID(p.Name)
		}
		if isDefaultPreset(p.ID) {
			return 0, errors.Join(ErrInvalidPresetDoc, ErrDefaultPreset)
		}
		if err := validatePreset(p); err != nil {
			return 0, errors.Join(ErrInvalidPresetDoc, err)
		}
		p.Default = false
		presets = append(presets, p)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range presets {
		if i := e.presetIndex(p.ID); i >= 0 {
			p.UsageCount, p.LastUsed = e.state.Presets[i].UsageCount, e.state.Presets[i].LastUsed
			e.state.Presets[i] = p
			continue
		}
		e.state.Presets = append(e.state.Presets, p)
	}
	return len(presets), nil
}
