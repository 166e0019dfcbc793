package api

import (
	"net/http"

	"github.com/vanj900/cellgov/internal/api/respond"
	"github.com/vanj900/cellgov/internal/chain"
)

// ChainHandler exposes the integrity chain for display and audit.
type ChainHandler struct {
	chain *chain.Chain
}

func NewChainHandler(c *chain.Chain) *ChainHandler {
	return &ChainHandler{chain: c}
}

// ShowChain GET /api/chain
func (h *ChainHandler) ShowChain(w http.ResponseWriter, r *http.Request) {
	entries, err := h.chain.Entries(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"entries": entries, "count": len(entries)})
}

// VerifyChain GET /api/chain/verify
func (h *ChainHandler) VerifyChain(w http.ResponseWriter, r *http.Request) {
	if err := h.chain.Verify(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]bool{"valid": true})
}
