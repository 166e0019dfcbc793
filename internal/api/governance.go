package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vanj900/cellgov/internal/api/respond"
	"github.com/vanj900/cellgov/internal/services"
)

// GovernanceHandler provides HTTP transport for the proposal lifecycle.
type GovernanceHandler struct {
	svc *services.GovernanceService
}

func NewGovernanceHandler(svc *services.GovernanceService) *GovernanceHandler {
	return &GovernanceHandler{svc: svc}
}

// CreateProposal POST /api/proposals
func (h *GovernanceHandler) CreateProposal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProposerID  string `json:"proposerId"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	p, err := h.svc.CreateProposal(r.Context(), req.ProposerID, req.Description)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, p)
}

// GetProposal GET /api/proposals/{proposalId}
func (h *GovernanceHandler) GetProposal(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetProposal(r.Context(), mux.Vars(r)["proposalId"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, p)
}

// Vote POST /api/proposals/{proposalId}/votes
func (h *GovernanceHandler) Vote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		VoterID string `json:"voterId"`
		Choice  string `json:"choice"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := h.svc.Vote(r.Context(), mux.Vars(r)["proposalId"], req.VoterID, req.Choice); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Tally POST /api/proposals/{proposalId}/tally
func (h *GovernanceHandler) Tally(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Tally(r.Context(), mux.Vars(r)["proposalId"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, p)
}
