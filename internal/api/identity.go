package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vanj900/cellgov/internal/api/respond"
	"github.com/vanj900/cellgov/internal/services"
)

// IdentityHandler provides HTTP transport for the identity registry.
type IdentityHandler struct {
	svc *services.IdentityService
}

func NewIdentityHandler(svc *services.IdentityService) *IdentityHandler {
	return &IdentityHandler{svc: svc}
}

// CreateIdentity POST /api/identities
func (h *IdentityHandler) CreateIdentity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Owner string `json:"owner"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	id, err := h.svc.Create(r.Context(), req.Owner)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, id)
}

// ListIdentities GET /api/identities
func (h *IdentityHandler) ListIdentities(w http.ResponseWriter, r *http.Request) {
	ids, err := h.svc.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"identities": ids, "count": len(ids)})
}

// GetIdentity GET /api/identities/{identityId}
func (h *IdentityHandler) GetIdentity(w http.ResponseWriter, r *http.Request) {
	id, err := h.svc.Get(r.Context(), mux.Vars(r)["identityId"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, id)
}

// SetIdentityStatus POST /api/identities/{identityId}/status
func (h *IdentityHandler) SetIdentityStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	id, err := h.svc.SetStatus(r.Context(), mux.Vars(r)["identityId"], req.Status)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, id)
}

// IssueCredential POST /api/credentials
func (h *IdentityHandler) IssueCredential(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IssuerID  string            `json:"issuerId"`
		SubjectID string            `json:"subjectId"`
		Type      string            `json:"type"`
		Claims    map[string]string `json:"claims"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	cred, err := h.svc.IssueCredential(r.Context(), req.IssuerID, req.SubjectID, req.Type, req.Claims)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, cred)
}

// VerifyCredential POST /api/credentials/{credentialId}/verify
func (h *IdentityHandler) VerifyCredential(w http.ResponseWriter, r *http.Request) {
	valid, err := h.svc.Verify(r.Context(), mux.Vars(r)["credentialId"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]bool{"valid": valid})
}

// DiscloseCredential POST /api/credentials/{credentialId}/disclose
func (h *IdentityHandler) DiscloseCredential(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Fields []string `json:"fields"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	claims, err := h.svc.Disclose(r.Context(), mux.Vars(r)["credentialId"], req.Fields)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"claims": claims})
}

// RevokeCredential POST /api/credentials/{credentialId}/revoke
func (h *IdentityHandler) RevokeCredential(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IssuerID string `json:"issuerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	revocation, err := h.svc.Revoke(r.Context(), req.IssuerID, mux.Vars(r)["credentialId"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, revocation)
}
