package api

import (
	"errors"
	"net/http"

	"github.com/vanj900/cellgov/internal/api/respond"
	"github.com/vanj900/cellgov/internal/model"
)

// writeDomainError maps domain errors to HTTP status codes so clients
// get actionable feedback naming the offending entity.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		respond.WriteNotFound(w, err.Error())
	case errors.Is(err, model.ErrValidation):
		respond.WriteBadRequest(w, err.Error())
	case errors.Is(err, model.ErrDuplicateIdentity),
		errors.Is(err, model.ErrInvalidState),
		errors.Is(err, model.ErrQuorumNotMet),
		errors.Is(err, model.ErrDivergentChain):
		respond.WriteConflict(w, err.Error())
	case errors.Is(err, model.ErrDeliveryTimeout):
		respond.WriteError(w, http.StatusGatewayTimeout, err.Error())
	case errors.Is(err, model.ErrChainIntegrity):
		// Fatal: surfaced verbatim to the operator, never auto-repaired.
		respond.WriteInternalError(w, err.Error())
	default:
		respond.WriteInternalError(w, err.Error())
	}
}
