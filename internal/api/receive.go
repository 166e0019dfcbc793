package api

import (
	"encoding/json"
	"net/http"

	"github.com/vanj900/cellgov/internal/api/respond"
	"github.com/vanj900/cellgov/internal/model"
	"github.com/vanj900/cellgov/internal/syncq"
)

// ReceiveHandler is the inbound side of the sync protocol: peers POST
// delivered messages here.
type ReceiveHandler struct {
	receiver *syncq.Receiver
}

func NewReceiveHandler(r *syncq.Receiver) *ReceiveHandler {
	return &ReceiveHandler{receiver: r}
}

// Receive POST /api/receive
func (h *ReceiveHandler) Receive(w http.ResponseWriter, r *http.Request) {
	var m model.Message
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := h.receiver.Receive(r.Context(), &m); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
