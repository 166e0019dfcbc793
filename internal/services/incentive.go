package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vanj900/cellgov/internal/chain"
	"github.com/vanj900/cellgov/internal/model"
	"github.com/vanj900/cellgov/internal/store"
)

// IncentiveService tracks per-identity balances credited by governance
// and reputation events. Balances never go negative: a reward must be
// positive or it is rejected outright.
type IncentiveService struct {
	store store.Store
	chain *chain.Chain
	log   zerolog.Logger
}

func NewIncentiveService(s store.Store, c *chain.Chain, log zerolog.Logger) *IncentiveService {
	return &IncentiveService{store: s, chain: c, log: log}
}

// Register opens an account for an identity.
func (s *IncentiveService) Register(ctx context.Context, identityID string, initialBalance float64) (*model.Account, error) {
	if initialBalance < 0 {
		return nil, fmt.Errorf("initial balance must not be negative, got %g: %w", initialBalance, model.ErrValidation)
	}
	if _, err := s.store.Identities().Get(ctx, identityID); err != nil {
		return nil, err
	}
	a := &model.Account{IdentityID: identityID, Balance: initialBalance}
	created, err := s.store.Accounts().Create(ctx, a)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("account", identityID).Float64("balance", initialBalance).Msg("account registered")
	return created, nil
}

// GetAccount returns an account.
func (s *IncentiveService) GetAccount(ctx context.Context, identityID string) (*model.Account, error) {
	return s.store.Accounts().Get(ctx, identityID)
}

// Reward credits an account and anchors the amount and reason. A
// non-positive amount is an error, not a silent clamp.
func (s *IncentiveService) Reward(ctx context.Context, identityID string, amount float64, reason string) (*model.Account, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("reward amount must be positive, got %g: %w", amount, model.ErrValidation)
	}
	// The credit and its anchoring record commit together; a failed
	// append rolls the balance back so a retry cannot double-credit.
	var balance float64
	if _, err := s.chain.AppendWith(ctx, s.store, model.KindReward, func(tx store.Store) (interface{}, error) {
		var err error
		balance, err = tx.Accounts().Credit(ctx, identityID, amount)
		if err != nil {
			return nil, err
		}
		return model.RewardRecord{
			IdentityID: identityID,
			Amount:     amount,
			Reason:     reason,
			Balance:    balance,
		}, nil
	}); err != nil {
		return nil, err
	}
	s.log.Info().Str("account", identityID).Float64("amount", amount).Str("reason", reason).
		Float64("balance", balance).Msg("reward credited")
	return &model.Account{IdentityID: identityID, Balance: balance}, nil
}
