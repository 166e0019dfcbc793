package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vanj900/cellgov/internal/api/respond"
	"github.com/vanj900/cellgov/internal/services"
)

// IncentiveHandler provides HTTP transport for accounts and rewards.
type IncentiveHandler struct {
	svc *services.IncentiveService
}

func NewIncentiveHandler(svc *services.IncentiveService) *IncentiveHandler {
	return &IncentiveHandler{svc: svc}
}

// RegisterAccount POST /api/accounts
func (h *IncentiveHandler) RegisterAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IdentityID     string  `json:"identityId"`
		InitialBalance float64 `json:"initialBalance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	a, err := h.svc.Register(r.Context(), req.IdentityID, req.InitialBalance)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, a)
}

// GetAccount GET /api/accounts/{identityId}
func (h *IncentiveHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.GetAccount(r.Context(), mux.Vars(r)["identityId"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, a)
}

// Reward POST /api/accounts/{identityId}/rewards
func (h *IncentiveHandler) Reward(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount float64 `json:"amount"`
		Reason string  `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	a, err := h.svc.Reward(r.Context(), mux.Vars(r)["identityId"], req.Amount, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, a)
}
