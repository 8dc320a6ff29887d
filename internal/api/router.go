package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mcoot/minimarket/internal/api/handler"
	"github.com/mcoot/minimarket/internal/api/middleware"
	"github.com/mcoot/minimarket/internal/events"
	"github.com/mcoot/minimarket/internal/services/profile"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger   *slog.Logger
	Profiles *profile.Registry
	Events   *events.Hub
	// StorageBackend names the store in diagnostics
	StorageBackend string
	// Metrics is exposed on /metrics when set
	Metrics prometheus.Gatherer
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	profileHandler := handler.NewProfileHandler(cfg.Profiles)
	systemHandler := handler.NewSystemHandler(cfg.Profiles, cfg.Events, cfg.StorageBackend)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Recovery(cfg.Logger))
	api.Use(middleware.Logging(cfg.Logger))

	// Profile routes
	api.HandleFunc("/profiles", profileHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/profiles", profileHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/profiles/{id}", profileHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/profiles/{id}", profileHandler.Update).Methods(http.MethodPatch)
	api.HandleFunc("/profiles/{id}", profileHandler.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/profiles/{id}/save", profileHandler.Save).Methods(http.MethodPost)

	// Diagnostics and notifications
	api.HandleFunc("/storage", systemHandler.Storage).Methods(http.MethodGet)
	api.HandleFunc("/events", systemHandler.Events).Methods(http.MethodGet)
	api.HandleFunc("/health", systemHandler.Health).Methods(http.MethodGet)

	if cfg.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Metrics, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	return r
}
