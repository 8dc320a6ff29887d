package model

import (
	"maps"
	"time"
)

// ProfileID uniquely identifies a player profile
type ProfileID string

// Avatar is the picture a player chose for their profile
type Avatar string

const (
	AvatarDefault  Avatar = "default"
	AvatarExplorer Avatar = "explorer"
	AvatarShopper  Avatar = "shopper"
	AvatarBaker    Avatar = "baker"
	AvatarCashier  Avatar = "cashier"
	AvatarFarmer   Avatar = "farmer"
)

// Avatars lists every supported avatar
var Avatars = []Avatar{
	AvatarDefault,
	AvatarExplorer,
	AvatarShopper,
	AvatarBaker,
	AvatarCashier,
	AvatarFarmer,
}

// Valid reports whether the avatar is one of the supported set
func (a Avatar) Valid() bool {
	for _, known := range Avatars {
		if a == known {
			return true
		}
	}
	return false
}

// Language is the locale the game is played in
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageSwedish Language = "sv"

	DefaultLanguage = LanguageEnglish
)

// Valid reports whether the language is supported
func (l Language) Valid() bool {
	return l == LanguageEnglish || l == LanguageSwedish
}

// DefaultProfileName replaces an empty name during validation
const DefaultProfileName = "Player"

// TimestampLayout is the textual datetime format used for persisted timestamps
const TimestampLayout = "2006-01-02T15:04:05"

// Profile is one player's identity, preferences and progress
type Profile struct {
	ID          ProfileID
	Name        string
	Avatar      Avatar
	Language    Language
	CreatedDate time.Time
	LastPlayed  time.Time
	Settings    Settings
	Progress    map[string]any // Opaque, owned by the profile; nil when no progress recorded
}

// NewProfile builds a profile with default settings, stamped at the given time
func NewProfile(id ProfileID, name string, avatar Avatar, language Language, now time.Time) *Profile {
	return &Profile{
		ID:          id,
		Name:        name,
		Avatar:      avatar,
		Language:    language,
		CreatedDate: now,
		LastPlayed:  now,
		Settings:    DefaultSettings(),
	}
}

// Validate repairs invalid fields in place and returns the names of the fields
// it changed. An empty ID cannot be repaired and is reported as an error; the
// rest of the record is still repaired.
func (p *Profile) Validate() ([]string, error) {
	var repaired []string

	if p.Name == "" {
		p.Name = DefaultProfileName
		repaired = append(repaired, "name")
	}
	if !p.Avatar.Valid() {
		p.Avatar = AvatarDefault
		repaired = append(repaired, "avatar")
	}
	if !p.Language.Valid() {
		p.Language = DefaultLanguage
		repaired = append(repaired, "language")
	}
	if p.CreatedDate.IsZero() {
		p.CreatedDate = time.Unix(0, 0).UTC()
		repaired = append(repaired, "created_date")
	}
	if p.LastPlayed.IsZero() {
		p.LastPlayed = p.CreatedDate
		repaired = append(repaired, "last_played")
	}
	if p.Settings == nil {
		p.Settings = Settings{}
	}
	for _, key := range p.Settings.Repair() {
		repaired = append(repaired, "settings."+key)
	}

	if p.ID == "" {
		return repaired, &FieldError{Field: "id", Reason: "must not be empty"}
	}
	return repaired, nil
}

// Clone returns a deep copy that shares no mutable state with p
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	c := *p
	c.Settings = p.Settings.Clone()
	c.Progress = cloneValue(p.Progress)
	return &c
}

// cloneValue deep-copies the JSON-shaped values found in opaque sub-records
func cloneValue[T any](v T) T {
	out, _ := deepCopy(any(v)).(T)
	return out
}

func deepCopy(v any) any {
	switch val := v.(type) {
	case map[string]any:
		if val == nil {
			return val
		}
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = deepCopy(inner)
		}
		return out
	case Settings:
		if val == nil {
			return val
		}
		out := maps.Clone(val)
		for k, inner := range out {
			out[k] = deepCopy(inner)
		}
		return out
	case []any:
		if val == nil {
			return val
		}
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = deepCopy(inner)
		}
		return out
	default:
		return val
	}
}
