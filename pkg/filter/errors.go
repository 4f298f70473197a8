package filter

import "errors"

var (
	ErrPresetNotFound   = errors.New("filter: preset not found")
	ErrPresetExists     = errors.New("filter: preset already exists")
	ErrDefaultPreset    = errors.New("filter: default presets cannot be removed")
	ErrInvalidPreset    = errors.New("filter: invalid preset")
	ErrInvalidState     = errors.New("filter: invalid serialized state")
	ErrInvalidPresetDoc = errors.New("filter: invalid preset document")
)
