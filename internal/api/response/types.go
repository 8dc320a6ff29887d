package response

import (
	"time"

	"github.com/mcoot/minimarket/internal/model"
)

// Profile represents a profile in API responses
type Profile struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Avatar      string         `json:"avatar"`
	Language    string         `json:"language"`
	CreatedDate string         `json:"created_date"`
	LastPlayed  string         `json:"last_played"`
	Settings    map[string]any `json:"settings"`
	Progress    map[string]any `json:"progress,omitempty"`
}

// ProfileFromModel converts a model.Profile to a response Profile
func ProfileFromModel(p *model.Profile) Profile {
	return Profile{
		ID:          string(p.ID),
		Name:        p.Name,
		Avatar:      string(p.Avatar),
		Language:    string(p.Language),
		CreatedDate: formatTime(p.CreatedDate),
		LastPlayed:  formatTime(p.LastPlayed),
		Settings:    p.Settings,
		Progress:    p.Progress,
	}
}

// ProfileList is the response for listing profiles
type ProfileList struct {
	Profiles []Profile `json:"profiles"`
	Count    int       `json:"count"`
}

// ProfileListFromModels converts a slice of profiles
func ProfileListFromModels(profiles []*model.Profile) ProfileList {
	out := make([]Profile, len(profiles))
	for i, p := range profiles {
		out[i] = ProfileFromModel(p)
	}
	return ProfileList{Profiles: out, Count: len(out)}
}

// StorageInfo is the response for storage diagnostics
type StorageInfo struct {
	Backend      string `json:"backend"`
	Profiles     int    `json:"profiles"`
	StorageBytes int64  `json:"storage_bytes"`
}

// Health is the response for the health check
type Health struct {
	Status string `json:"status"`
	Ready  bool   `json:"ready"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(model.TimestampLayout)
}
