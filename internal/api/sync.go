package api

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vanj900/cellgov/internal/api/respond"
	"github.com/vanj900/cellgov/internal/syncq"
)

// SyncHandler provides HTTP transport for the durable queue.
type SyncHandler struct {
	engine *syncq.Engine
}

func NewSyncHandler(e *syncq.Engine) *SyncHandler {
	return &SyncHandler{engine: e}
}

// EnqueueMessage POST /api/messages
func (h *SyncHandler) EnqueueMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Sender    string `json:"sender"`
		Recipient string `json:"recipient"`
		// Payload is base64 so arbitrary bytes survive the JSON wire.
		Payload string `json:"payload"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	payload, err := base64.StdEncoding.DecodeString(req.Payload)
	if err != nil {
		respond.WriteBadRequest(w, "payload must be base64")
		return
	}
	m, err := h.engine.Enqueue(r.Context(), req.Sender, req.Recipient, payload)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, m)
}

// SyncPeer POST /api/sync/{peer}
func (h *SyncHandler) SyncPeer(w http.ResponseWriter, r *http.Request) {
	delivered, err := h.engine.Sync(r.Context(), mux.Vars(r)["peer"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]int{"delivered": delivered})
}
