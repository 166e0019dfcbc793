package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vanj900/cellgov/internal/model"
	"github.com/vanj900/cellgov/internal/syncq"
)

// Queue message ops a node applies when a peer's records arrive.
const (
	OpVote        = "vote"
	OpEndorsement = "endorsement"
)

type queueOp struct {
	Op         string  `json:"op"`
	ProposalID string  `json:"proposalId,omitempty"`
	VoterID    string  `json:"voterId,omitempty"`
	Choice     string  `json:"choice,omitempty"`
	FromID     string  `json:"fromId,omitempty"`
	ToID       string  `json:"toId,omitempty"`
	Weight     float64 `json:"weight,omitempty"`
}

// NewMessageHandler returns the application-layer handler for delivered
// queue messages. Delivery is at-least-once, so every op here must be
// idempotent: votes are (last write per identity wins); endorsements
// accumulate, which is why redelivery is filtered by receipt before
// this handler runs.
func NewMessageHandler(gov *GovernanceService, rep *ReputationService, log zerolog.Logger) syncq.Handler {
	return func(ctx context.Context, m *model.Message) error {
		var op queueOp
		if err := json.Unmarshal(m.Payload, &op); err != nil {
			return fmt.Errorf("message %s payload: %w", m.ID, err)
		}
		switch op.Op {
		case OpVote:
			return gov.Vote(ctx, op.ProposalID, op.VoterID, op.Choice)
		case OpEndorsement:
			return rep.AddEndorsement(ctx, op.FromID, op.ToID, op.Weight)
		default:
			log.Warn().Str("message", m.ID).Str("op", op.Op).Msg("unknown queue op ignored")
			return nil
		}
	}
}
