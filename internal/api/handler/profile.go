package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/minimarket/internal/api/request"
	"github.com/mcoot/minimarket/internal/api/response"
	"github.com/mcoot/minimarket/internal/model"
	"github.com/mcoot/minimarket/internal/services/profile"
)

// ProfileHandler handles profile endpoints
type ProfileHandler struct {
	registry *profile.Registry
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(registry *profile.Registry) *ProfileHandler {
	return &ProfileHandler{registry: registry}
}

func profileID(r *http.Request) model.ProfileID {
	return model.ProfileID(mux.Vars(r)["id"])
}

// Create handles POST /api/v1/profiles
func (h *ProfileHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateProfileRequest
	if !decodeBody(w, r, &req) {
		return
	}

	avatar := model.Avatar(req.Avatar)
	if req.Avatar == "" {
		avatar = model.AvatarDefault
	}
	language := model.Language(req.Language)
	if req.Language == "" {
		language = model.DefaultLanguage
	}

	p, err := h.registry.Create(r.Context(), req.Name, avatar, language)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.Created(w, "/api/v1/profiles/"+string(p.ID), response.ProfileFromModel(p))
}

// List handles GET /api/v1/profiles
// Without ?sort the cache's insertion order is kept.
func (h *ProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		profiles []*model.Profile
		err      error
	)
	if sort := r.URL.Query().Get("sort"); sort != "" {
		profiles, err = h.registry.ListSorted(r.Context(), profile.SortOrder(sort))
	} else {
		profiles, err = h.registry.ListAll(r.Context())
	}
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ProfileListFromModels(profiles))
}

// Get handles GET /api/v1/profiles/{id}
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.registry.Load(r.Context(), profileID(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ProfileFromModel(p))
}

// Update handles PATCH /api/v1/profiles/{id}
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req request.UpdateProfileRequest
	if !decodeBody(w, r, &req) {
		return
	}

	p, err := h.registry.Update(r.Context(), profileID(r), req.ToUpdate())
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ProfileFromModel(p))
}

// Save handles POST /api/v1/profiles/{id}/save
// It re-saves the current record, which stamps last_played.
func (h *ProfileHandler) Save(w http.ResponseWriter, r *http.Request) {
	p, err := h.registry.Load(r.Context(), profileID(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	if err := h.registry.Save(r.Context(), p); err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ProfileFromModel(p))
}

// Delete handles DELETE /api/v1/profiles/{id}
func (h *ProfileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Delete(r.Context(), profileID(r)); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}
