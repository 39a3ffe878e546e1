package window

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// ErrUnknownPreset is returned by Lookup for an unrecognised preset name
var ErrUnknownPreset = errors.New("unknown window preset")

// Presets maps preset identifiers to window settings
type Presets map[string]Setting

// DefaultPresets returns the built-in clinical CT presets
func DefaultPresets() Presets {
	return Presets{
		"soft-tissue": {Center: 40, Width: 400},
		"lung":        {Center: -600, Width: 1500},
		"bone":        {Center: 400, Width: 1800},
		"brain":       {Center: 40, Width: 80},
		"liver":       {Center: 60, Width: 150},
		"mediastinum": {Center: 50, Width: 350},
		"stroke":      {Center: 40, Width: 40},
	}
}

// Merge returns a copy of p with extra added, overriding entries with the same name.
// Names are matched case-insensitively.
func (p Presets) Merge(extra map[string]Setting) Presets {
	out := make(Presets, len(p)+len(extra))
	for name, s := range p {
		out[normalizeName(name)] = s
	}
	for name, s := range extra {
		out[normalizeName(name)] = s
	}
	return out
}

// Lookup returns the named preset
func (p Presets) Lookup(name string) (Setting, error) {
	s, ok := p[normalizeName(name)]
	if !ok {
		return Setting{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return s, nil
}

// Names returns the preset names in sorted order
func (p Presets) Names() []string {
	return slices.Sorted(maps.Keys(p))
}

// Preset looks a name up in the built-in presets
func Preset(name string) (Setting, error) {
	return DefaultPresets().Lookup(name)
}

// normalizeName accepts "Soft Tissue", "soft_tissue" and "soft-tissue" alike
func normalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer(" ", "-", "_", "-").Replace(name)
}
