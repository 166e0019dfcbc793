package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vanj900/cellgov/internal/api/respond"
	"github.com/vanj900/cellgov/internal/services"
)

// DeedHandler provides HTTP transport for deeds, scars and recovery.
type DeedHandler struct {
	svc *services.DeedService
}

func NewDeedHandler(svc *services.DeedService) *DeedHandler {
	return &DeedHandler{svc: svc}
}

// SubmitDeed POST /api/deeds
func (h *DeedHandler) SubmitDeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OwnerID     string `json:"ownerId"`
		ActionType  string `json:"actionType"`
		Description string `json:"description"`
		ProofHash   string `json:"proofHash"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	d, err := h.svc.SubmitDeed(r.Context(), req.OwnerID, req.ActionType, req.Description, req.ProofHash)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, d)
}

// GetDeed GET /api/deeds/{deedId}
func (h *DeedHandler) GetDeed(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.GetDeed(r.Context(), mux.Vars(r)["deedId"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, d)
}

// VerifyDeed POST /api/deeds/{deedId}/verify
func (h *DeedHandler) VerifyDeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		VerifierID string `json:"verifierId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	d, err := h.svc.VerifyDeed(r.Context(), mux.Vars(r)["deedId"], req.VerifierID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, d)
}

// RaiseScar POST /api/deeds/{deedId}/scars
func (h *DeedHandler) RaiseScar(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RaiserID string `json:"raiserId"`
		Note     string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	s, err := h.svc.RaiseScar(r.Context(), mux.Vars(r)["deedId"], req.RaiserID, req.Note)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, s)
}

// GetScar GET /api/scars/{scarId}
func (h *DeedHandler) GetScar(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.GetScar(r.Context(), mux.Vars(r)["scarId"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, s)
}

// SubmitRecovery POST /api/scars/{scarId}/recovery
func (h *DeedHandler) SubmitRecovery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RecovererID string `json:"recovererId"`
		Note        string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	rec, err := h.svc.SubmitRecovery(r.Context(), mux.Vars(r)["scarId"], req.RecovererID, req.Note)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, rec)
}

// ReviewRecovery POST /api/recoveries/{recoveryId}/review
func (h *DeedHandler) ReviewRecovery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ReviewerID string `json:"reviewerId"`
		Approve    bool   `json:"approve"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	rec, err := h.svc.ReviewRecovery(r.Context(), mux.Vars(r)["recoveryId"], req.ReviewerID, req.Approve)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, rec)
}
