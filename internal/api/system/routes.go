// Package system provides the operational endpoints served beside the
// catalog API: liveness, readiness, and build version.
package system

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/canopy-data/canopy/internal/api/common"
	"github.com/canopy-data/canopy/internal/service"
	"github.com/canopy-data/canopy/pkg/versions"
)

// Router creates a router for the health and version endpoints.
func Router(svc service.CatalogService) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", healthHandler)
	r.Get("/readyz", readinessHandler(svc))
	r.Get("/version", versionHandler)

	return r
}

// healthHandler reports process liveness without touching the served tree.
func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

// readinessHandler reports whether the catalog service can answer requests.
func readinessHandler(svc service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.CheckReadiness(r.Context()); err != nil {
			common.WriteError(w, http.StatusServiceUnavailable, "service not ready: "+err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	}
}

// versionHandler reports the build's version information.
func versionHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(versions.GetVersionInfo()); err != nil {
		slog.Error("failed to encode version info", "error", err)
	}
}
