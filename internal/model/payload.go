package model

import (
	"encoding/json"
	"fmt"
)

// Chain payload kinds. Every entry appended to the integrity chain
// carries exactly one of these.
const (
	KindTally        = "tally"
	KindDeed         = "deed"
	KindDeedVerified = "deed_verified"
	KindScar         = "scar"
	KindRecovery     = "recovery"
	KindReward       = "reward"
)

// TallyRecord anchors a proposal outcome: the full per-voter choices,
// the counts, and the final state.
type TallyRecord struct {
	ProposalID   string            `json:"proposalId"`
	ProposerID   string            `json:"proposerId"`
	Votes        map[string]string `json:"votes"`
	Approve      int               `json:"approve"`
	Reject       int               `json:"reject"`
	KnownMembers int               `json:"knownMembers"`
	Outcome      string            `json:"outcome"`
}

// DeedRecord anchors a submitted deed receipt.
type DeedRecord struct {
	DeedID      string `json:"deedId"`
	OwnerID     string `json:"ownerId"`
	ActionType  string `json:"actionType"`
	Description string `json:"description"`
	ProofHash   string `json:"proofHash"`
}

// DeedVerifiedRecord anchors a third-party verification of a deed.
type DeedVerifiedRecord struct {
	DeedID     string `json:"deedId"`
	OwnerID    string `json:"ownerId"`
	VerifierID string `json:"verifierId"`
}

// ScarRecord anchors a raised dispute.
type ScarRecord struct {
	ScarID   string  `json:"scarId"`
	DeedID   string  `json:"deedId"`
	RaiserID string  `json:"raiserId"`
	Note     string  `json:"note"`
	Weight   float64 `json:"weight"`
}

// RecoveryRecord anchors a recovery review outcome. Weight is the scar
// weight after the review was applied.
type RecoveryRecord struct {
	RecoveryID  string  `json:"recoveryId"`
	ScarID      string  `json:"scarId"`
	RecovererID string  `json:"recovererId"`
	ReviewerID  string  `json:"reviewerId"`
	Outcome     string  `json:"outcome"`
	ScarWeight  float64 `json:"scarWeight"`
}

// RewardRecord anchors an incentive credit.
type RewardRecord struct {
	IdentityID string  `json:"identityId"`
	Amount     float64 `json:"amount"`
	Reason     string  `json:"reason"`
	Balance    float64 `json:"balance"`
}

// DecodePayload unmarshals a chain payload into its typed record. The
// switch is exhaustive over the declared kinds; an unknown kind is an
// error, not a silent passthrough.
func DecodePayload(kind string, raw []byte) (interface{}, error) {
	var v interface{}
	switch kind {
	case KindTally:
		v = &TallyRecord{}
	case KindDeed:
		v = &DeedRecord{}
	case KindDeedVerified:
		v = &DeedVerifiedRecord{}
	case KindScar:
		v = &ScarRecord{}
	case KindRecovery:
		v = &RecoveryRecord{}
	case KindReward:
		v = &RewardRecord{}
	default:
		return nil, fmt.Errorf("unknown chain payload kind: %s", kind)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", kind, err)
	}
	return v, nil
}
