package handler

import (
	"net/http"

	"github.com/mcoot/minimarket/internal/api/response"
	"github.com/mcoot/minimarket/internal/api/sse"
	"github.com/mcoot/minimarket/internal/events"
	"github.com/mcoot/minimarket/internal/model"
	"github.com/mcoot/minimarket/internal/services/profile"
)

// SystemHandler handles health, storage diagnostics and the event stream
type SystemHandler struct {
	registry *profile.Registry
	hub      *events.Hub
	backend  string
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(registry *profile.Registry, hub *events.Hub, backend string) *SystemHandler {
	return &SystemHandler{
		registry: registry,
		hub:      hub,
		backend:  backend,
	}
}

// Health handles GET /api/v1/health
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	if !h.registry.Ready() {
		response.JSON(w, http.StatusServiceUnavailable, response.Health{Status: "starting", Ready: false})
		return
	}
	response.JSON(w, http.StatusOK, response.Health{Status: "ok", Ready: true})
}

// Storage handles GET /api/v1/storage
func (h *SystemHandler) Storage(w http.ResponseWriter, r *http.Request) {
	stats, err := h.registry.Stats(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.StorageInfo{
		Backend:      h.backend,
		Profiles:     stats.Profiles,
		StorageBytes: stats.StorageBytes,
	})
}

// Events handles GET /api/v1/events
// An optional ?profile= narrows the stream to one profile.
func (h *SystemHandler) Events(w http.ResponseWriter, r *http.Request) {
	sse.ServeSSE(w, r, h.hub, model.ProfileID(r.URL.Query().Get("profile")))
}
