package request

import (
	"github.com/mcoot/minimarket/internal/model"
	"github.com/mcoot/minimarket/internal/services/profile"
)

// CreateProfileRequest is the request body for creating a profile
type CreateProfileRequest struct {
	Name     string `json:"name"`
	Avatar   string `json:"avatar,omitempty"`
	Language string `json:"language,omitempty"`
}

// UpdateProfileRequest is the request body for patching a profile.
// Absent fields are left unchanged.
type UpdateProfileRequest struct {
	Name     *string        `json:"name,omitempty"`
	Avatar   *string        `json:"avatar,omitempty"`
	Language *string        `json:"language,omitempty"`
	Settings map[string]any `json:"settings,omitempty"`
	Progress map[string]any `json:"progress,omitempty"`
}

// ToUpdate converts the request into a registry update
func (r UpdateProfileRequest) ToUpdate() profile.ProfileUpdate {
	update := profile.ProfileUpdate{
		Name:     r.Name,
		Settings: r.Settings,
		Progress: r.Progress,
	}
	if r.Avatar != nil {
		avatar := model.Avatar(*r.Avatar)
		update.Avatar = &avatar
	}
	if r.Language != nil {
		language := model.Language(*r.Language)
		update.Language = &language
	}
	return update
}
