package model

import "time"

// Identity is a portable member identity. Created once, never mutated,
// never deleted; inactive identities go dormant instead.
type Identity struct {
	ID           string    `json:"id"`
	Owner        string    `json:"owner"`
	PublicKey    string    `json:"publicKey"`
	Status       string    `json:"status"`
	CreationTime time.Time `json:"creationTime"`
}

// Identity statuses.
const (
	IdentityActive  = "ACTIVE"
	IdentityDormant = "DORMANT"
)

// Credential is a verifiable claim set issued by one identity about
// another. Immutable once issued; revocation is a new credential linked
// back to the original, never an edit.
type Credential struct {
	ID        string            `json:"id"`
	IssuerID  string            `json:"issuerId"`
	SubjectID string            `json:"subjectId"`
	Type      string            `json:"type"`
	Claims    map[string]string `json:"claims"`
	// Commitments holds one salted SHA-256 hash per claim so a subset of
	// claims can be disclosed and checked without revealing the rest.
	Commitments map[string]string `json:"commitments"`
	Salts       map[string]string `json:"salts"`
	JWS         string            `json:"jws"`
	RevokesID   string            `json:"revokesId,omitempty"`
	IssuedAt    time.Time         `json:"issuedAt"`
}

// CredentialTypeRevocation marks a credential whose only purpose is to
// revoke the credential it links to via RevokesID.
const CredentialTypeRevocation = "revocation"

// DisclosedClaim is one selectively revealed claim together with the
// material needed to check it against the original commitment.
type DisclosedClaim struct {
	Field      string `json:"field"`
	Value      string `json:"value"`
	Salt       string `json:"salt"`
	Commitment string `json:"commitment"`
}

// Message is one durable queue item addressed to a peer. Delivered only
// ever flips false→true; rows stay until the recipient acknowledges.
type Message struct {
	ID           string    `json:"id"`
	Sender       string    `json:"sender"`
	Recipient    string    `json:"recipient"`
	Payload      []byte    `json:"payload"`
	Seq          int64     `json:"seq"`
	Delivered    bool      `json:"delivered"`
	Acked        bool      `json:"acked"`
	CreationTime time.Time `json:"creationTime"`
}

// ChainEntry is one block of the integrity chain.
// Hash = sha256(prevHash + payloadHash + index); the genesis entry links
// to a zero hash. Entries are never mutated or removed.
type ChainEntry struct {
	Index       int64     `json:"index"`
	PrevHash    string    `json:"prev_hash"`
	PayloadHash string    `json:"payload_hash"`
	Hash        string    `json:"hash"`
	Kind        string    `json:"kind"`
	Payload     []byte    `json:"payload"`
	Timestamp   time.Time `json:"timestamp"`
}

// Proposal states.
const (
	ProposalDraft  = "DRAFT"
	ProposalOpen   = "OPEN"
	ProposalPassed = "PASSED"
	ProposalFailed = "FAILED"
)

// Vote choices.
const (
	VoteApprove = "APPROVE"
	VoteReject  = "REJECT"
)

// Proposal is a governance item moving DRAFT → OPEN → {PASSED, FAILED}.
// Votes is keyed by voter identity; a later vote from the same identity
// overwrites the earlier one.
type Proposal struct {
	ID           string            `json:"id"`
	ProposerID   string            `json:"proposerId"`
	Description  string            `json:"description"`
	State        string            `json:"state"`
	Votes        map[string]string `json:"votes"`
	CreationTime time.Time         `json:"creationTime"`
	TallyTime    *time.Time        `json:"tallyTime,omitempty"`
}

// Terminal reports whether the proposal has been tallied.
func (p *Proposal) Terminal() bool {
	return p.State == ProposalPassed || p.State == ProposalFailed
}

// Deed statuses.
const (
	DeedPending  = "PENDING"
	DeedVerified = "VERIFIED"
	DeedDisputed = "DISPUTED"
)

// Deed records a completed action by its owner. Third parties verify;
// disputes attach scars and flip the status to DISPUTED.
type Deed struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"ownerId"`
	ActionType   string    `json:"actionType"`
	Description  string    `json:"description"`
	ProofHash    string    `json:"proofHash"`
	Status       string    `json:"status"`
	VerifierID   string    `json:"verifierId,omitempty"`
	CreationTime time.Time `json:"creationTime"`
}

// Scar statuses.
const (
	ScarOpen            = "OPEN"
	ScarRecoveryPending = "RECOVERY_PENDING"
	ScarResolved        = "RESOLVED"
)

// Scar is a dispute attached to a deed. It never leaves history; an
// approved recovery only reduces its weight.
type Scar struct {
	ID           string    `json:"id"`
	DeedID       string    `json:"deedId"`
	RaiserID     string    `json:"raiserId"`
	Note         string    `json:"note"`
	Weight       float64   `json:"weight"`
	Status       string    `json:"status"`
	CreationTime time.Time `json:"creationTime"`
}

// Recovery statuses.
const (
	RecoveryPending  = "PENDING"
	RecoveryApproved = "APPROVED"
	RecoveryRejected = "REJECTED"
)

// RecoveryDeed is a reviewed remediation for a scar.
type RecoveryDeed struct {
	ID           string    `json:"id"`
	ScarID       string    `json:"scarId"`
	RecovererID  string    `json:"recovererId"`
	Note         string    `json:"note"`
	ReviewerID   string    `json:"reviewerId,omitempty"`
	Status       string    `json:"status"`
	CreationTime time.Time `json:"creationTime"`
}

// Endorsement is one directed, weighted edge of the trust graph.
// Weight accumulates across calls; demurrage is applied at read time.
type Endorsement struct {
	FromID     string    `json:"fromId"`
	ToID       string    `json:"toId"`
	Weight     float64   `json:"weight"`
	UpdateTime time.Time `json:"updateTime"`
}

// Account tracks an identity's incentive balance. Balances are only
// mutated by credit operations and never go negative.
type Account struct {
	IdentityID   string    `json:"identityId"`
	Balance      float64   `json:"balance"`
	CreationTime time.Time `json:"creationTime"`
}
