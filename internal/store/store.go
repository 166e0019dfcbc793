package store

import (
	"context"

	"github.com/vanj900/cellgov/internal/model"
)

// Store exposes persistence operations required by services.
// Implementations live under internal/store/<driver>/ (sqlite, postgres).
type Store interface {
	Identities() Identities
	Credentials() Credentials
	Messages() Messages
	Chain() Chain
	Proposals() Proposals
	Deeds() Deeds
	Scars() Scars
	Recoveries() Recoveries
	Endorsements() Endorsements
	Accounts() Accounts

	// InTx runs fn inside a single database transaction. The Store
	// handed to fn operates on that transaction and must not be retained
	// after fn returns. Call InTx on the base store only; transactions
	// do not nest.
	InTx(ctx context.Context, fn func(Store) error) error

	HealthPing(ctx context.Context) error
}

type Identities interface {
	// Create persists the identity together with its signing key seed.
	// The seed never leaves the local store; encryption at rest is the
	// host environment's responsibility.
	Create(ctx context.Context, id *model.Identity, keySeedHex string) (*model.Identity, error)
	Get(ctx context.Context, identityID string) (*model.Identity, error)
	// GetByOwner returns the owner's live (ACTIVE) identity, if any.
	GetByOwner(ctx context.Context, owner string) (*model.Identity, error)
	List(ctx context.Context) ([]*model.Identity, error)
	SetStatus(ctx context.Context, identityID, status string) error
	// KeySeed returns the hex-encoded Ed25519 seed for a local identity.
	KeySeed(ctx context.Context, identityID string) (string, error)
}

type Credentials interface {
	Create(ctx context.Context, c *model.Credential) (*model.Credential, error)
	Get(ctx context.Context, credentialID string) (*model.Credential, error)
	// FindRevocation returns the revocation credential linked to the
	// given credential, or nil if none exists.
	FindRevocation(ctx context.Context, credentialID string) (*model.Credential, error)
}

type Messages interface {
	// Enqueue assigns the next per-recipient sequence and persists the
	// message as QUEUED (delivered=false).
	Enqueue(ctx context.Context, m *model.Message) (*model.Message, error)
	// ListQueued returns undelivered messages for a recipient in
	// enqueue (sequence) order.
	ListQueued(ctx context.Context, recipient string) ([]*model.Message, error)
	MarkDelivered(ctx context.Context, messageID string) error
	MarkAcked(ctx context.Context, messageID string) error
	// PendingRecipients lists peers that currently have queued messages.
	PendingRecipients(ctx context.Context) ([]string, error)
	// AddReceipt records receipt of (sender, seq) on the receiving side.
	// Returns false when the receipt already exists, making redelivery
	// detectable and receipt marking idempotent.
	AddReceipt(ctx context.Context, sender string, seq int64) (bool, error)
}

type Chain interface {
	// Append persists a fully formed entry. The caller (internal/chain)
	// owns hash computation and index assignment.
	Append(ctx context.Context, e *model.ChainEntry) error
	Tip(ctx context.Context) (*model.ChainEntry, error)
	List(ctx context.Context) ([]*model.ChainEntry, error)
}

type Proposals interface {
	Create(ctx context.Context, p *model.Proposal) (*model.Proposal, error)
	// Get returns the proposal with its votes loaded.
	Get(ctx context.Context, proposalID string) (*model.Proposal, error)
	// SetVote records the voter's choice, overwriting any earlier vote
	// from the same identity.
	SetVote(ctx context.Context, proposalID, voterID, choice string) error
	SetState(ctx context.Context, proposalID, state string) error
}

type Deeds interface {
	Create(ctx context.Context, d *model.Deed) (*model.Deed, error)
	Get(ctx context.Context, deedID string) (*model.Deed, error)
	SetStatus(ctx context.Context, deedID, status, verifierID string) error
}

type Scars interface {
	Create(ctx context.Context, s *model.Scar) (*model.Scar, error)
	Get(ctx context.Context, scarID string) (*model.Scar, error)
	Update(ctx context.Context, scarID, status string, weight float64) error
	// OpenWeightByOwner sums unresolved scar weight per deed owner, for
	// the reputation projection.
	OpenWeightByOwner(ctx context.Context) (map[string]float64, error)
}

type Recoveries interface {
	Create(ctx context.Context, r *model.RecoveryDeed) (*model.RecoveryDeed, error)
	Get(ctx context.Context, recoveryID string) (*model.RecoveryDeed, error)
	SetReview(ctx context.Context, recoveryID, reviewerID, status string) error
}

type Endorsements interface {
	// Upsert adds weight to the (from, to) edge, creating it if absent.
	Upsert(ctx context.Context, fromID, toID string, weight float64) error
	List(ctx context.Context) ([]*model.Endorsement, error)
}

type Accounts interface {
	Create(ctx context.Context, a *model.Account) (*model.Account, error)
	Get(ctx context.Context, identityID string) (*model.Account, error)
	// Credit atomically adds amount and returns the new balance.
	Credit(ctx context.Context, identityID string, amount float64) (float64, error)
}
