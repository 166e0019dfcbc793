package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vanj900/cellgov/internal/chain"
	"github.com/vanj900/cellgov/internal/model"
	"github.com/vanj900/cellgov/internal/store"
)

// GovernanceConfig tunes proposal tallying.
type GovernanceConfig struct {
	// Quorum is the minimum fraction of known members that must vote.
	Quorum float64
	// TiePasses controls the result of an exact tie at quorum. Ties
	// resolve to FAILED by default; this is policy, not a hidden
	// assumption.
	TiePasses bool
	// StrictQuorum makes Tally refuse (leaving the proposal OPEN) when
	// quorum is not met, instead of resolving to FAILED.
	StrictQuorum bool
	// ProposerReward, when positive, credits the proposer's account on a
	// PASSED outcome.
	ProposerReward float64
	// ApprovalEndorsement, when positive, feeds that much endorsement
	// weight from each approving voter to the proposer on PASSED.
	ApprovalEndorsement float64
}

// DefaultGovernanceConfig returns the conventional cell policy.
func DefaultGovernanceConfig() GovernanceConfig {
	return GovernanceConfig{Quorum: 0.5}
}

// GovernanceService runs the proposal lifecycle:
// DRAFT → OPEN → {PASSED, FAILED}, terminal once tallied.
type GovernanceService struct {
	store      store.Store
	chain      *chain.Chain
	incentives *IncentiveService
	cfg        GovernanceConfig
	log        zerolog.Logger
}

func NewGovernanceService(s store.Store, c *chain.Chain, inc *IncentiveService, cfg GovernanceConfig, log zerolog.Logger) *GovernanceService {
	if cfg.Quorum <= 0 {
		cfg.Quorum = 0.5
	}
	return &GovernanceService{store: s, chain: c, incentives: inc, cfg: cfg, log: log}
}

// CreateProposal opens a new proposal for voting. Proposals remain OPEN
// until explicitly tallied; there is no deadline.
func (s *GovernanceService) CreateProposal(ctx context.Context, proposerID, description string) (*model.Proposal, error) {
	if description == "" {
		return nil, fmt.Errorf("proposal description is required: %w", model.ErrValidation)
	}
	if _, err := s.store.Identities().Get(ctx, proposerID); err != nil {
		return nil, err
	}
	p := &model.Proposal{
		ID:          uuid.New().String(),
		ProposerID:  proposerID,
		Description: description,
		State:       model.ProposalOpen,
	}
	created, err := s.store.Proposals().Create(ctx, p)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("proposal", created.ID).Str("proposer", proposerID).Msg("proposal opened")
	return created, nil
}

// GetProposal returns a proposal with its votes.
func (s *GovernanceService) GetProposal(ctx context.Context, proposalID string) (*model.Proposal, error) {
	return s.store.Proposals().Get(ctx, proposalID)
}

// Vote records a choice. A later vote from the same identity overwrites
// the earlier one, which also makes redelivered vote messages harmless.
func (s *GovernanceService) Vote(ctx context.Context, proposalID, voterID, choice string) error {
	if choice != model.VoteApprove && choice != model.VoteReject {
		return fmt.Errorf("choice must be %s or %s, got %q: %w", model.VoteApprove, model.VoteReject, choice, model.ErrValidation)
	}
	if _, err := s.store.Identities().Get(ctx, voterID); err != nil {
		return err
	}
	p, err := s.store.Proposals().Get(ctx, proposalID)
	if err != nil {
		return err
	}
	if p.State != model.ProposalOpen {
		return fmt.Errorf("proposal %s is %s, not OPEN: %w", proposalID, p.State, model.ErrInvalidState)
	}
	return s.store.Proposals().SetVote(ctx, proposalID, voterID, choice)
}

// Tally closes the proposal and anchors the full result. It is
// idempotent: tallying a terminal proposal returns the stored outcome
// without appending a second chain entry.
func (s *GovernanceService) Tally(ctx context.Context, proposalID string) (*model.Proposal, error) {
	p, err := s.store.Proposals().Get(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if p.Terminal() {
		return p, nil
	}
	if p.State != model.ProposalOpen {
		return nil, fmt.Errorf("proposal %s is %s, not OPEN: %w", proposalID, p.State, model.ErrInvalidState)
	}

	members, err := s.store.Identities().List(ctx)
	if err != nil {
		return nil, err
	}
	known := 0
	for _, m := range members {
		if m.Status == model.IdentityActive {
			known++
		}
	}

	approve, reject := 0, 0
	for _, choice := range p.Votes {
		switch choice {
		case model.VoteApprove:
			approve++
		case model.VoteReject:
			reject++
		}
	}

	quorumMet := known > 0 && float64(len(p.Votes))/float64(known) >= s.cfg.Quorum
	if !quorumMet && s.cfg.StrictQuorum {
		return nil, fmt.Errorf("proposal %s has %d/%d votes, quorum %.2f: %w",
			proposalID, len(p.Votes), known, s.cfg.Quorum, model.ErrQuorumNotMet)
	}

	outcome := model.ProposalFailed
	if quorumMet {
		if approve > reject {
			outcome = model.ProposalPassed
		} else if approve == reject && approve > 0 && s.cfg.TiePasses {
			outcome = model.ProposalPassed
		}
	}

	// State change and anchoring record commit in one transaction, so a
	// proposal can never end up terminal without its chain entry.
	record := model.TallyRecord{
		ProposalID:   p.ID,
		ProposerID:   p.ProposerID,
		Votes:        p.Votes,
		Approve:      approve,
		Reject:       reject,
		KnownMembers: known,
		Outcome:      outcome,
	}
	if _, err := s.chain.AppendWith(ctx, s.store, model.KindTally, func(tx store.Store) (interface{}, error) {
		if err := tx.Proposals().SetState(ctx, proposalID, outcome); err != nil {
			return nil, err
		}
		return record, nil
	}); err != nil {
		return nil, err
	}
	s.log.Info().Str("proposal", p.ID).Str("outcome", outcome).
		Int("approve", approve).Int("reject", reject).Int("known", known).Msg("proposal tallied")

	if outcome == model.ProposalPassed {
		s.applyPassedSideEffects(ctx, p)
	}

	p.State = outcome
	return p, nil
}

// applyPassedSideEffects feeds incentives and endorsement weight from a
// passed proposal. Failures are logged, not propagated: the tally is
// already anchored and must stand.
func (s *GovernanceService) applyPassedSideEffects(ctx context.Context, p *model.Proposal) {
	if s.cfg.ProposerReward > 0 && s.incentives != nil {
		if _, err := s.incentives.Reward(ctx, p.ProposerID, s.cfg.ProposerReward, "proposal passed"); err != nil {
			s.log.Warn().Err(err).Str("proposal", p.ID).Msg("proposer reward skipped")
		}
	}
	if s.cfg.ApprovalEndorsement > 0 {
		for voter, choice := range p.Votes {
			if choice != model.VoteApprove || voter == p.ProposerID {
				continue
			}
			if err := s.store.Endorsements().Upsert(ctx, voter, p.ProposerID, s.cfg.ApprovalEndorsement); err != nil {
				s.log.Warn().Err(err).Str("voter", voter).Msg("approval endorsement skipped")
			}
		}
	}
}
