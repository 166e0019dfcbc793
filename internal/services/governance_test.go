package services

import (
	"context"
	"errors"
	"testing"

	"github.com/vanj900/cellgov/internal/model"
)

func TestGovernanceService_ProposalPassesWithFullTurnout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.mustIdentity(t, "alice")
	bob := env.mustIdentity(t, "bob")

	p, err := env.governance.CreateProposal(ctx, alice.ID, "rotate water duty weekly")
	if err != nil {
		t.Fatalf("create proposal: %v", err)
	}
	if p.State != model.ProposalOpen {
		t.Fatalf("new proposal state: %s", p.State)
	}

	if err := env.governance.Vote(ctx, p.ID, alice.ID, model.VoteApprove); err != nil {
		t.Fatalf("alice vote: %v", err)
	}
	if err := env.governance.Vote(ctx, p.ID, bob.ID, model.VoteApprove); err != nil {
		t.Fatalf("bob vote: %v", err)
	}

	tallied, err := env.governance.Tally(ctx, p.ID)
	if err != nil {
		t.Fatalf("tally: %v", err)
	}
	if tallied.State != model.ProposalPassed {
		t.Fatalf("outcome: %s", tallied.State)
	}

	// The tally is anchored with the full result.
	entries, err := env.chain.Entries(ctx)
	if err != nil || len(entries) != 1 {
		t.Fatalf("chain entries: n=%d err=%v", len(entries), err)
	}
	record, err := model.DecodePayload(entries[0].Kind, entries[0].Payload)
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	tally, ok := record.(*model.TallyRecord)
	if !ok {
		t.Fatalf("payload type: %T", record)
	}
	if tally.ProposalID != p.ID || tally.Approve != 2 || tally.Reject != 0 || tally.KnownMembers != 2 || tally.Outcome != model.ProposalPassed {
		t.Fatalf("tally record: %+v", tally)
	}
}

func TestGovernanceService_TallyIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.mustIdentity(t, "alice")
	bob := env.mustIdentity(t, "bob")

	p, _ := env.governance.CreateProposal(ctx, alice.ID, "shared tool shed")
	_ = env.governance.Vote(ctx, p.ID, alice.ID, model.VoteApprove)
	_ = env.governance.Vote(ctx, p.ID, bob.ID, model.VoteApprove)

	first, err := env.governance.Tally(ctx, p.ID)
	if err != nil {
		t.Fatalf("first tally: %v", err)
	}
	second, err := env.governance.Tally(ctx, p.ID)
	if err != nil {
		t.Fatalf("second tally: %v", err)
	}
	if first.State != second.State {
		t.Fatalf("outcomes differ: %s vs %s", first.State, second.State)
	}
	// Re-tallying must not append a second chain entry.
	if kinds := env.chainKinds(t); len(kinds) != 1 {
		t.Fatalf("chain kinds after double tally: %v", kinds)
	}
}

func TestGovernanceService_TieFailsByDefault(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.mustIdentity(t, "alice")
	bob := env.mustIdentity(t, "bob")

	p, _ := env.governance.CreateProposal(ctx, alice.ID, "move the market day")
	_ = env.governance.Vote(ctx, p.ID, alice.ID, model.VoteApprove)
	_ = env.governance.Vote(ctx, p.ID, bob.ID, model.VoteReject)

	tallied, err := env.governance.Tally(ctx, p.ID)
	if err != nil {
		t.Fatalf("tally: %v", err)
	}
	if tallied.State != model.ProposalFailed {
		t.Fatalf("tie outcome: %s", tallied.State)
	}
}

func TestGovernanceService_TiePassesWhenConfigured(t *testing.T) {
	gc := DefaultGovernanceConfig()
	gc.TiePasses = true
	env := newTestEnvWith(t, gc, DefaultDeedConfig(), DefaultReputationConfig())
	ctx := context.Background()
	alice := env.mustIdentity(t, "alice")
	bob := env.mustIdentity(t, "bob")

	p, _ := env.governance.CreateProposal(ctx, alice.ID, "move the market day")
	_ = env.governance.Vote(ctx, p.ID, alice.ID, model.VoteApprove)
	_ = env.governance.Vote(ctx, p.ID, bob.ID, model.VoteReject)

	tallied, err := env.governance.Tally(ctx, p.ID)
	if err != nil {
		t.Fatalf("tally: %v", err)
	}
	if tallied.State != model.ProposalPassed {
		t.Fatalf("tie outcome with TiePasses: %s", tallied.State)
	}
}

func TestGovernanceService_QuorumBoundary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.mustIdentity(t, "alice")
	env.mustIdentity(t, "bob")

	// 1 of 2 known members voting is exactly the 0.5 quorum.
	p, _ := env.governance.CreateProposal(ctx, alice.ID, "plant the east field")
	_ = env.governance.Vote(ctx, p.ID, alice.ID, model.VoteApprove)

	tallied, err := env.governance.Tally(ctx, p.ID)
	if err != nil {
		t.Fatalf("tally: %v", err)
	}
	if tallied.State != model.ProposalPassed {
		t.Fatalf("outcome at exact quorum: %s", tallied.State)
	}
}

func TestGovernanceService_UnderQuorumFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.mustIdentity(t, "alice")
	env.mustIdentity(t, "bob")
	env.mustIdentity(t, "carol")

	// 1 of 3 known members voting misses the 0.5 quorum.
	p, _ := env.governance.CreateProposal(ctx, alice.ID, "plant the east field")
	_ = env.governance.Vote(ctx, p.ID, alice.ID, model.VoteApprove)

	tallied, err := env.governance.Tally(ctx, p.ID)
	if err != nil {
		t.Fatalf("tally: %v", err)
	}
	if tallied.State != model.ProposalFailed {
		t.Fatalf("under-quorum outcome: %s", tallied.State)
	}
}

func TestGovernanceService_StrictQuorumLeavesProposalOpen(t *testing.T) {
	gc := DefaultGovernanceConfig()
	gc.StrictQuorum = true
	env := newTestEnvWith(t, gc, DefaultDeedConfig(), DefaultReputationConfig())
	ctx := context.Background()
	alice := env.mustIdentity(t, "alice")
	env.mustIdentity(t, "bob")
	env.mustIdentity(t, "carol")

	p, _ := env.governance.CreateProposal(ctx, alice.ID, "plant the east field")
	_ = env.governance.Vote(ctx, p.ID, alice.ID, model.VoteApprove)

	if _, err := env.governance.Tally(ctx, p.ID); !errors.Is(err, model.ErrQuorumNotMet) {
		t.Fatalf("want ErrQuorumNotMet, got %v", err)
	}
	stored, _ := env.governance.GetProposal(ctx, p.ID)
	if stored.State != model.ProposalOpen {
		t.Fatalf("strict quorum changed state: %s", stored.State)
	}
	if kinds := env.chainKinds(t); len(kinds) != 0 {
		t.Fatalf("strict quorum anchored a tally: %v", kinds)
	}
}

func TestGovernanceService_VoteValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.mustIdentity(t, "alice")
	bob := env.mustIdentity(t, "bob")

	p, _ := env.governance.CreateProposal(ctx, alice.ID, "fence repair")

	if err := env.governance.Vote(ctx, p.ID, alice.ID, "MAYBE"); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("want ErrValidation for bad choice, got %v", err)
	}
	if err := env.governance.Vote(ctx, p.ID, "ghost", model.VoteApprove); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("want ErrNotFound for unknown voter, got %v", err)
	}

	// A replacement vote supersedes; the tally sees only the last one.
	_ = env.governance.Vote(ctx, p.ID, alice.ID, model.VoteApprove)
	_ = env.governance.Vote(ctx, p.ID, bob.ID, model.VoteApprove)
	if err := env.governance.Vote(ctx, p.ID, bob.ID, model.VoteReject); err != nil {
		t.Fatalf("overwrite vote: %v", err)
	}
	tallied, err := env.governance.Tally(ctx, p.ID)
	if err != nil {
		t.Fatalf("tally: %v", err)
	}
	if tallied.State != model.ProposalFailed {
		t.Fatalf("outcome after overwrite: %s", tallied.State)
	}

	// Voting on a tallied proposal is rejected.
	if err := env.governance.Vote(ctx, p.ID, alice.ID, model.VoteReject); !errors.Is(err, model.ErrInvalidState) {
		t.Fatalf("want ErrInvalidState for closed proposal, got %v", err)
	}
}

func TestGovernanceService_PassedProposalFeedsIncentivesAndEndorsements(t *testing.T) {
	gc := DefaultGovernanceConfig()
	gc.ProposerReward = 10
	gc.ApprovalEndorsement = 1.0
	env := newTestEnvWith(t, gc, DefaultDeedConfig(), DefaultReputationConfig())
	ctx := context.Background()
	alice := env.mustIdentity(t, "alice")
	bob := env.mustIdentity(t, "bob")

	if _, err := env.incentive.Register(ctx, alice.ID, 100); err != nil {
		t.Fatalf("register: %v", err)
	}

	p, _ := env.governance.CreateProposal(ctx, alice.ID, "dig a second well")
	_ = env.governance.Vote(ctx, p.ID, alice.ID, model.VoteApprove)
	_ = env.governance.Vote(ctx, p.ID, bob.ID, model.VoteApprove)

	if _, err := env.governance.Tally(ctx, p.ID); err != nil {
		t.Fatalf("tally: %v", err)
	}

	acc, err := env.incentive.GetAccount(ctx, alice.ID)
	if err != nil || acc.Balance != 110 {
		t.Fatalf("proposer balance: %+v err=%v", acc, err)
	}

	edges, _ := env.store.Endorsements().List(ctx)
	found := false
	for _, e := range edges {
		if e.FromID == bob.ID && e.ToID == alice.ID && e.Weight == 1.0 {
			found = true
		}
	}
	if !found {
		t.Fatalf("approval endorsement missing: %v", edges)
	}
}

func TestGovernanceService_FailedAnchorLeavesProposalOpen(t *testing.T) {
	failures := 1
	st := &brokenAppendStore{Store: newSQLiteStore(t), remaining: &failures}
	env := newTestEnvOver(t, st, DefaultGovernanceConfig(), DefaultDeedConfig(), DefaultReputationConfig())
	ctx := context.Background()
	alice := env.mustIdentity(t, "alice")
	bob := env.mustIdentity(t, "bob")

	p, _ := env.governance.CreateProposal(ctx, alice.ID, "repair the north fence")
	_ = env.governance.Vote(ctx, p.ID, alice.ID, model.VoteApprove)
	_ = env.governance.Vote(ctx, p.ID, bob.ID, model.VoteApprove)

	if _, err := env.governance.Tally(ctx, p.ID); !errors.Is(err, errAppendBroken) {
		t.Fatalf("tally with broken append: want append error, got %v", err)
	}

	// The state change rolled back with the append, so the proposal is
	// still OPEN and carries no half-anchored outcome.
	got, err := env.governance.GetProposal(ctx, p.ID)
	if err != nil {
		t.Fatalf("get proposal: %v", err)
	}
	if got.State != model.ProposalOpen {
		t.Fatalf("proposal state after failed anchor: %s", got.State)
	}
	if kinds := env.chainKinds(t); len(kinds) != 0 {
		t.Fatalf("chain after failed anchor: %v", kinds)
	}

	// Once the store recovers, a retry tallies and anchors normally.
	got, err = env.governance.Tally(ctx, p.ID)
	if err != nil {
		t.Fatalf("retry tally: %v", err)
	}
	if got.State != model.ProposalPassed {
		t.Fatalf("retry outcome: %s", got.State)
	}
	if kinds := env.chainKinds(t); len(kinds) != 1 || kinds[0] != model.KindTally {
		t.Fatalf("chain after retry: %v", kinds)
	}
}

func TestGovernanceService_DormantMembersDoNotCountTowardQuorum(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.mustIdentity(t, "alice")
	bob := env.mustIdentity(t, "bob")
	carol := env.mustIdentity(t, "carol")

	if _, err := env.identity.SetStatus(ctx, carol.ID, model.IdentityDormant); err != nil {
		t.Fatalf("set dormant: %v", err)
	}

	// One vote out of two active members meets the 0.5 quorum; with
	// carol still counted it would be one of three and fail.
	p, _ := env.governance.CreateProposal(ctx, alice.ID, "rebuild the tool shed")
	_ = env.governance.Vote(ctx, p.ID, bob.ID, model.VoteApprove)

	got, err := env.governance.Tally(ctx, p.ID)
	if err != nil {
		t.Fatalf("tally: %v", err)
	}
	if got.State != model.ProposalPassed {
		t.Fatalf("outcome with dormant member: %s", got.State)
	}

	entries, _ := env.chain.Entries(ctx)
	decoded, err := model.DecodePayload(entries[0].Kind, entries[0].Payload)
	if err != nil {
		t.Fatalf("decode tally: %v", err)
	}
	if record := decoded.(*model.TallyRecord); record.KnownMembers != 2 {
		t.Fatalf("known members: %d", record.KnownMembers)
	}
}
