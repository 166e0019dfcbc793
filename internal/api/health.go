package api

import (
	"net/http"

	"github.com/vanj900/cellgov/internal/api/respond"
	"github.com/vanj900/cellgov/internal/store"
)

// HealthHandler reports process and storage health.
type HealthHandler struct {
	store store.Store
}

func NewHealthHandler(s store.Store) *HealthHandler {
	return &HealthHandler{store: s}
}

// CheckHealth GET /api/health
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CheckStorageHealth GET /api/health/db
func (h *HealthHandler) CheckStorageHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.store.HealthPing(r.Context()); err != nil {
		respond.WriteError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
