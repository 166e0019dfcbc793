package api

import (
	"encoding/json"
	"net/http"

	"github.com/vanj900/cellgov/internal/api/respond"
	"github.com/vanj900/cellgov/internal/services"
)

// ReputationHandler provides HTTP transport for the endorsement graph.
type ReputationHandler struct {
	svc *services.ReputationService
}

func NewReputationHandler(svc *services.ReputationService) *ReputationHandler {
	return &ReputationHandler{svc: svc}
}

// AddEndorsement POST /api/endorsements
func (h *ReputationHandler) AddEndorsement(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FromID string  `json:"fromId"`
		ToID   string  `json:"toId"`
		Weight float64 `json:"weight"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := h.svc.AddEndorsement(r.Context(), req.FromID, req.ToID, req.Weight); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ComputeScores GET /api/reputation
func (h *ReputationHandler) ComputeScores(w http.ResponseWriter, r *http.Request) {
	scores, err := h.svc.ComputeScores(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"scores": scores})
}
