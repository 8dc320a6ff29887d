// Package codec converts profiles to and from their persisted JSON form.
//
// Decoding is tolerant: absent keys are filled with documented defaults and
// the decoded record is always passed through model.Profile.Validate, which
// repairs invalid values in place.
package codec

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcoot/minimarket/internal/model"
)

// RequiredFields must be present, non-null and, when textual, non-empty in
// every persisted profile
var RequiredFields = []string{"id", "name", "language", "created_date"}

// document is the on-disk shape Serialize writes
type document struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Avatar      string         `json:"avatar"`
	Language    string         `json:"language"`
	CreatedDate string         `json:"created_date"`
	LastPlayed  string         `json:"last_played"`
	Settings    map[string]any `json:"settings"`
	Progress    map[string]any `json:"progress,omitempty"`
}

// Serialize encodes a profile as indented JSON
func Serialize(p *model.Profile) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil profile", model.ErrInvalidArgument)
	}

	doc := document{
		ID:          string(p.ID),
		Name:        p.Name,
		Avatar:      string(p.Avatar),
		Language:    string(p.Language),
		CreatedDate: formatTime(p.CreatedDate),
		LastPlayed:  formatTime(p.LastPlayed),
		Settings:    p.Settings,
		Progress:    p.Progress,
	}
	if doc.Settings == nil {
		doc.Settings = map[string]any{}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal profile: %w", err)
	}
	return data, nil
}

// Deserialize decodes a profile, substituting defaults for absent or
// wrong-typed keys and repairing invalid values. Only unparseable data fails
// outright. An empty id is reported as a validation error, but the repaired
// profile is still returned alongside it.
func Deserialize(data []byte) (*model.Profile, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: malformed profile data: %v", model.ErrValidation, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: profile data is null", model.ErrValidation)
	}

	created, ok := parseTime(stringField(raw, "created_date"))
	if !ok {
		created = time.Unix(0, 0).UTC()
	}
	lastPlayed, ok := parseTime(stringField(raw, "last_played"))
	if !ok {
		lastPlayed = created
	}

	settings, ok := raw["settings"].(map[string]any)
	if !ok {
		settings = model.DefaultSettings()
	}
	progress, _ := raw["progress"].(map[string]any)

	p := &model.Profile{
		ID:          model.ProfileID(stringField(raw, "id")),
		Name:        stringField(raw, "name"),
		Avatar:      model.Avatar(stringField(raw, "avatar")),
		Language:    model.Language(stringField(raw, "language")),
		CreatedDate: created,
		LastPlayed:  lastPlayed,
		Settings:    model.Settings(settings),
		Progress:    progress,
	}

	if _, err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

// stringField returns raw[key] when it is a string and "" otherwise, so that
// validation substitutes the default
func stringField(raw map[string]any, key string) string {
	s, _ := raw[key].(string)
	return s
}

// Validate checks that the required fields are present, non-null and
// non-empty. The returned error names the first offending field.
func Validate(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: malformed profile data: %v", model.ErrValidation, err)
	}
	if raw == nil {
		return fmt.Errorf("%w: profile data is null", model.ErrValidation)
	}

	for _, field := range RequiredFields {
		v, ok := raw[field]
		if !ok {
			return &model.FieldError{Field: field, Reason: "is missing"}
		}
		if v == nil {
			return &model.FieldError{Field: field, Reason: "is null"}
		}
		if s, isString := v.(string); isString && s == "" {
			return &model.FieldError{Field: field, Reason: "is empty"}
		}
	}
	return nil
}

// PeekID returns the id stored in the data, or "" when it cannot be read
func PeekID(data []byte) string {
	var head struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return ""
	}
	return head.ID
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(model.TimestampLayout)
}

func parseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(model.TimestampLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
