package model

import "errors"

var (
	// ErrNotFound covers unknown identities, proposals, deeds, scars,
	// recoveries, credentials and accounts. Wrap it with the entity name.
	ErrNotFound = errors.New("not found")

	// ErrValidation covers malformed or rejected input, including
	// negative reward amounts.
	ErrValidation = errors.New("validation error")

	// ErrDuplicateIdentity is returned when an owner already holds a
	// live identity.
	ErrDuplicateIdentity = errors.New("owner already has a live identity")

	// ErrInvalidState marks a transition the state machine forbids, such
	// as voting on a tallied proposal or reviewing a resolved scar.
	ErrInvalidState = errors.New("invalid state")

	// ErrQuorumNotMet is returned when a tally is attempted below the
	// configured quorum fraction.
	ErrQuorumNotMet = errors.New("quorum not met")

	// ErrChainIntegrity signals a broken hash link. It is fatal: surfaced
	// to the operator, never auto-repaired.
	ErrChainIntegrity = errors.New("chain integrity violation")

	// ErrDivergentChain signals two chains that share a prefix but have
	// different tips. Never auto-merged; resolved by forking.
	ErrDivergentChain = errors.New("divergent chains")

	// ErrDeliveryTimeout marks a sync that exceeded its deadline. The
	// queue is unchanged and the sync is safe to retry.
	ErrDeliveryTimeout = errors.New("delivery timeout")
)
