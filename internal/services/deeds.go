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

// DeedConfig tunes dispute weighting.
type DeedConfig struct {
	// RecoveryFactor multiplies a scar's weight when a recovery is
	// approved. Must stay above zero: history is down-weighted, never
	// erased.
	RecoveryFactor float64
	// VerifyEndorsement is the endorsement weight a verification feeds
	// from verifier to deed owner.
	VerifyEndorsement float64
	// ScarWeight is the initial weight of a raised scar.
	ScarWeight float64
}

// DefaultDeedConfig returns the conventional weights.
func DefaultDeedConfig() DeedConfig {
	return DeedConfig{RecoveryFactor: 0.3, VerifyEndorsement: 1.0, ScarWeight: 1.0}
}

// DeedService records completed actions, disputes and their resolution.
// Nothing here ever deletes a deed or a scar.
type DeedService struct {
	store store.Store
	chain *chain.Chain
	cfg   DeedConfig
	log   zerolog.Logger
}

func NewDeedService(s store.Store, c *chain.Chain, cfg DeedConfig, log zerolog.Logger) *DeedService {
	if cfg.RecoveryFactor <= 0 || cfg.RecoveryFactor >= 1 {
		cfg.RecoveryFactor = 0.3
	}
	if cfg.ScarWeight <= 0 {
		cfg.ScarWeight = 1.0
	}
	return &DeedService{store: s, chain: c, cfg: cfg, log: log}
}

// SubmitDeed records a completed action and anchors it immediately as a
// receipt entry.
func (s *DeedService) SubmitDeed(ctx context.Context, ownerID, actionType, description, proofHash string) (*model.Deed, error) {
	if actionType == "" {
		return nil, fmt.Errorf("deed action type is required: %w", model.ErrValidation)
	}
	if _, err := s.store.Identities().Get(ctx, ownerID); err != nil {
		return nil, err
	}
	d := &model.Deed{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		ActionType:  actionType,
		Description: description,
		ProofHash:   proofHash,
		Status:      model.DeedPending,
	}
	var created *model.Deed
	if _, err := s.chain.AppendWith(ctx, s.store, model.KindDeed, func(tx store.Store) (interface{}, error) {
		var err error
		created, err = tx.Deeds().Create(ctx, d)
		if err != nil {
			return nil, err
		}
		return model.DeedRecord{
			DeedID:      created.ID,
			OwnerID:     ownerID,
			ActionType:  actionType,
			Description: description,
			ProofHash:   proofHash,
		}, nil
	}); err != nil {
		return nil, err
	}
	s.log.Info().Str("deed", created.ID).Str("owner", ownerID).Str("action", actionType).Msg("deed submitted")
	return created, nil
}

// GetDeed returns a deed.
func (s *DeedService) GetDeed(ctx context.Context, deedID string) (*model.Deed, error) {
	return s.store.Deeds().Get(ctx, deedID)
}

// VerifyDeed lets a third party move a deed PENDING → VERIFIED. The
// verification feeds endorsement weight from verifier to owner, which
// is how active contribution grows reputation without a declared rank.
func (s *DeedService) VerifyDeed(ctx context.Context, deedID, verifierID string) (*model.Deed, error) {
	d, err := s.store.Deeds().Get(ctx, deedID)
	if err != nil {
		return nil, err
	}
	if d.Status != model.DeedPending {
		return nil, fmt.Errorf("deed %s is %s, not PENDING: %w", deedID, d.Status, model.ErrInvalidState)
	}
	if verifierID == d.OwnerID {
		return nil, fmt.Errorf("deed %s cannot be verified by its owner: %w", deedID, model.ErrValidation)
	}
	if _, err := s.store.Identities().Get(ctx, verifierID); err != nil {
		return nil, err
	}
	if _, err := s.chain.AppendWith(ctx, s.store, model.KindDeedVerified, func(tx store.Store) (interface{}, error) {
		if err := tx.Deeds().SetStatus(ctx, deedID, model.DeedVerified, verifierID); err != nil {
			return nil, err
		}
		return model.DeedVerifiedRecord{DeedID: deedID, OwnerID: d.OwnerID, VerifierID: verifierID}, nil
	}); err != nil {
		return nil, err
	}
	if s.cfg.VerifyEndorsement > 0 {
		if err := s.store.Endorsements().Upsert(ctx, verifierID, d.OwnerID, s.cfg.VerifyEndorsement); err != nil {
			s.log.Warn().Err(err).Str("deed", deedID).Msg("verification endorsement skipped")
		}
	}
	d.Status = model.DeedVerified
	d.VerifierID = verifierID
	s.log.Info().Str("deed", deedID).Str("verifier", verifierID).Msg("deed verified")
	return d, nil
}

// RaiseScar attaches a dispute to a deed and marks the deed DISPUTED.
func (s *DeedService) RaiseScar(ctx context.Context, deedID, raiserID, note string) (*model.Scar, error) {
	d, err := s.store.Deeds().Get(ctx, deedID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Identities().Get(ctx, raiserID); err != nil {
		return nil, err
	}
	scar := &model.Scar{
		ID:       uuid.New().String(),
		DeedID:   deedID,
		RaiserID: raiserID,
		Note:     note,
		Weight:   s.cfg.ScarWeight,
		Status:   model.ScarOpen,
	}
	var created *model.Scar
	if _, err := s.chain.AppendWith(ctx, s.store, model.KindScar, func(tx store.Store) (interface{}, error) {
		var err error
		created, err = tx.Scars().Create(ctx, scar)
		if err != nil {
			return nil, err
		}
		if err := tx.Deeds().SetStatus(ctx, deedID, model.DeedDisputed, ""); err != nil {
			return nil, err
		}
		return model.ScarRecord{
			ScarID:   created.ID,
			DeedID:   deedID,
			RaiserID: raiserID,
			Note:     note,
			Weight:   created.Weight,
		}, nil
	}); err != nil {
		return nil, err
	}
	s.log.Info().Str("scar", created.ID).Str("deed", deedID).Str("raiser", raiserID).
		Str("owner", d.OwnerID).Msg("scar raised")
	return created, nil
}

// GetScar returns a scar.
func (s *DeedService) GetScar(ctx context.Context, scarID string) (*model.Scar, error) {
	return s.store.Scars().Get(ctx, scarID)
}

// SubmitRecovery proposes remediation for an open scar.
func (s *DeedService) SubmitRecovery(ctx context.Context, scarID, recovererID, note string) (*model.RecoveryDeed, error) {
	scar, err := s.store.Scars().Get(ctx, scarID)
	if err != nil {
		return nil, err
	}
	if scar.Status != model.ScarOpen {
		return nil, fmt.Errorf("scar %s is %s, not OPEN: %w", scarID, scar.Status, model.ErrInvalidState)
	}
	if _, err := s.store.Identities().Get(ctx, recovererID); err != nil {
		return nil, err
	}
	rec := &model.RecoveryDeed{
		ID:          uuid.New().String(),
		ScarID:      scarID,
		RecovererID: recovererID,
		Note:        note,
		Status:      model.RecoveryPending,
	}
	var created *model.RecoveryDeed
	if _, err := s.chain.AppendWith(ctx, s.store, model.KindRecovery, func(tx store.Store) (interface{}, error) {
		var err error
		created, err = tx.Recoveries().Create(ctx, rec)
		if err != nil {
			return nil, err
		}
		if err := tx.Scars().Update(ctx, scarID, model.ScarRecoveryPending, scar.Weight); err != nil {
			return nil, err
		}
		return model.RecoveryRecord{
			RecoveryID:  created.ID,
			ScarID:      scarID,
			RecovererID: recovererID,
			Outcome:     model.RecoveryPending,
			ScarWeight:  scar.Weight,
		}, nil
	}); err != nil {
		return nil, err
	}
	s.log.Info().Str("recovery", created.ID).Str("scar", scarID).Msg("recovery submitted")
	return created, nil
}

// ReviewRecovery approves or rejects a pending recovery. Approval
// resolves the scar and multiplies its weight by the recovery factor;
// the scar stays in history either way.
func (s *DeedService) ReviewRecovery(ctx context.Context, recoveryID, reviewerID string, approve bool) (*model.RecoveryDeed, error) {
	rec, err := s.store.Recoveries().Get(ctx, recoveryID)
	if err != nil {
		return nil, err
	}
	if rec.Status != model.RecoveryPending {
		return nil, fmt.Errorf("recovery %s is %s, not PENDING: %w", recoveryID, rec.Status, model.ErrInvalidState)
	}
	if reviewerID == rec.RecovererID {
		return nil, fmt.Errorf("recovery %s cannot be reviewed by its recoverer: %w", recoveryID, model.ErrValidation)
	}
	if _, err := s.store.Identities().Get(ctx, reviewerID); err != nil {
		return nil, err
	}
	scar, err := s.store.Scars().Get(ctx, rec.ScarID)
	if err != nil {
		return nil, err
	}

	outcome := model.RecoveryRejected
	scarStatus := model.ScarOpen
	weight := scar.Weight
	if approve {
		outcome = model.RecoveryApproved
		scarStatus = model.ScarResolved
		weight = scar.Weight * s.cfg.RecoveryFactor
	}
	if _, err := s.chain.AppendWith(ctx, s.store, model.KindRecovery, func(tx store.Store) (interface{}, error) {
		if err := tx.Scars().Update(ctx, scar.ID, scarStatus, weight); err != nil {
			return nil, err
		}
		if err := tx.Recoveries().SetReview(ctx, recoveryID, reviewerID, outcome); err != nil {
			return nil, err
		}
		return model.RecoveryRecord{
			RecoveryID:  recoveryID,
			ScarID:      scar.ID,
			RecovererID: rec.RecovererID,
			ReviewerID:  reviewerID,
			Outcome:     outcome,
			ScarWeight:  weight,
		}, nil
	}); err != nil {
		return nil, err
	}
	s.log.Info().Str("recovery", recoveryID).Str("reviewer", reviewerID).Str("outcome", outcome).
		Float64("scar_weight", weight).Msg("recovery reviewed")

	rec.ReviewerID = reviewerID
	rec.Status = outcome
	return rec, nil
}
