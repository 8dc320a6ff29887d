package model

import "sort"

// Setting keys
const (
	SettingMasterVolume = "master_volume"
	SettingMusicVolume  = "music_volume"
	SettingSFXVolume    = "sfx_volume"
	SettingVoiceVolume  = "voice_volume"
	SettingShowHints    = "show_hints"
	SettingReadAloud    = "read_aloud"
	SettingHighContrast = "high_contrast"
)

// volumeDefaults holds the bounded [0,1] float settings and their defaults
var volumeDefaults = map[string]float64{
	SettingMasterVolume: 1.0,
	SettingMusicVolume:  0.8,
	SettingSFXVolume:    1.0,
	SettingVoiceVolume:  1.0,
}

// toggleDefaults holds the boolean feature toggles and their defaults
var toggleDefaults = map[string]bool{
	SettingShowHints:    true,
	SettingReadAloud:    true,
	SettingHighContrast: false,
}

// Settings maps option names to scalar values. Keys outside the documented
// set are kept as-is.
type Settings map[string]any

// DefaultSettings returns a settings map with every documented default
func DefaultSettings() Settings {
	s := make(Settings, len(volumeDefaults)+len(toggleDefaults))
	for k, v := range volumeDefaults {
		s[k] = v
	}
	for k, v := range toggleDefaults {
		s[k] = v
	}
	return s
}

// Repair fills missing keys, clamps out-of-range volumes and resets
// wrong-typed values. It returns the repaired keys in sorted order.
func (s Settings) Repair() []string {
	var repaired []string

	for key, def := range volumeDefaults {
		raw, ok := s[key]
		if !ok {
			s[key] = def
			repaired = append(repaired, key)
			continue
		}
		f, ok := toFloat(raw)
		if !ok {
			s[key] = def
			repaired = append(repaired, key)
			continue
		}
		clamped := min(max(f, 0), 1)
		if _, isFloat := raw.(float64); !isFloat || clamped != f {
			repaired = append(repaired, key)
		}
		s[key] = clamped
	}

	for key, def := range toggleDefaults {
		if _, ok := s[key].(bool); !ok {
			s[key] = def
			repaired = append(repaired, key)
		}
	}

	sort.Strings(repaired)
	return repaired
}

// Float returns a volume setting, falling back to its default
func (s Settings) Float(key string) float64 {
	if f, ok := toFloat(s[key]); ok {
		return f
	}
	return volumeDefaults[key]
}

// Bool returns a toggle setting, falling back to its default
func (s Settings) Bool(key string) bool {
	if b, ok := s[key].(bool); ok {
		return b
	}
	return toggleDefaults[key]
}

// Clone returns a deep copy of the settings
func (s Settings) Clone() Settings {
	return cloneValue(s)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
