package services

import (
	"context"
	"errors"
	"testing"

	"github.com/vanj900/cellgov/internal/model"
)

func TestDeedService_SubmitAndVerify(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.mustIdentity(t, "alice")
	bob := env.mustIdentity(t, "bob")

	d, err := env.deeds.SubmitDeed(ctx, alice.ID, "water_delivery", "carried 40L to the north well", "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if d.Status != model.DeedPending {
		t.Fatalf("new deed status: %s", d.Status)
	}

	// The owner cannot verify their own deed.
	if _, err := env.deeds.VerifyDeed(ctx, d.ID, alice.ID); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("want ErrValidation for self-verify, got %v", err)
	}

	verified, err := env.deeds.VerifyDeed(ctx, d.ID, bob.ID)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if verified.Status != model.DeedVerified || verified.VerifierID != bob.ID {
		t.Fatalf("verified deed: %+v", verified)
	}

	// Verification feeds endorsement weight from verifier to owner.
	edges, _ := env.store.Endorsements().List(ctx)
	if len(edges) != 1 || edges[0].FromID != bob.ID || edges[0].ToID != alice.ID {
		t.Fatalf("verification endorsement: %v", edges)
	}

	// A second verification is rejected; the deed is no longer PENDING.
	if _, err := env.deeds.VerifyDeed(ctx, d.ID, bob.ID); !errors.Is(err, model.ErrInvalidState) {
		t.Fatalf("want ErrInvalidState for double verify, got %v", err)
	}

	if kinds := env.chainKinds(t); len(kinds) != 2 || kinds[0] != model.KindDeed || kinds[1] != model.KindDeedVerified {
		t.Fatalf("chain kinds: %v", kinds)
	}
}

func TestDeedService_ScarRecoveryReducesWeightWithoutErasure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.mustIdentity(t, "alice")
	bob := env.mustIdentity(t, "bob")

	d, _ := env.deeds.SubmitDeed(ctx, alice.ID, "water_delivery", "", "")
	scar, err := env.deeds.RaiseScar(ctx, d.ID, bob.ID, "water never arrived")
	if err != nil {
		t.Fatalf("raise scar: %v", err)
	}
	if scar.Weight != 1.0 || scar.Status != model.ScarOpen {
		t.Fatalf("new scar: %+v", scar)
	}
	if deed, _ := env.deeds.GetDeed(ctx, d.ID); deed.Status != model.DeedDisputed {
		t.Fatalf("deed after scar: %s", deed.Status)
	}

	rec, err := env.deeds.SubmitRecovery(ctx, scar.ID, alice.ID, "delivered twice the next week")
	if err != nil {
		t.Fatalf("submit recovery: %v", err)
	}
	if sc, _ := env.deeds.GetScar(ctx, scar.ID); sc.Status != model.ScarRecoveryPending {
		t.Fatalf("scar during review: %s", sc.Status)
	}

	// The recoverer cannot review their own recovery.
	if _, err := env.deeds.ReviewRecovery(ctx, rec.ID, alice.ID, true); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("want ErrValidation for self-review, got %v", err)
	}

	reviewed, err := env.deeds.ReviewRecovery(ctx, rec.ID, bob.ID, true)
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if reviewed.Status != model.RecoveryApproved {
		t.Fatalf("review outcome: %s", reviewed.Status)
	}

	// The scar stays in history at reduced, non-zero weight.
	sc, _ := env.deeds.GetScar(ctx, scar.ID)
	if sc.Status != model.ScarResolved {
		t.Fatalf("scar after approval: %s", sc.Status)
	}
	if sc.Weight != 0.3 {
		t.Fatalf("scar weight after approval: %v", sc.Weight)
	}
	if sc.Weight <= 0 {
		t.Fatalf("scar weight reached zero")
	}
}

func TestDeedService_RejectedRecoveryReopensScar(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.mustIdentity(t, "alice")
	bob := env.mustIdentity(t, "bob")

	d, _ := env.deeds.SubmitDeed(ctx, alice.ID, "fence_repair", "", "")
	scar, _ := env.deeds.RaiseScar(ctx, d.ID, bob.ID, "fence fell a day later")
	rec, _ := env.deeds.SubmitRecovery(ctx, scar.ID, alice.ID, "patched it again")

	reviewed, err := env.deeds.ReviewRecovery(ctx, rec.ID, bob.ID, false)
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if reviewed.Status != model.RecoveryRejected {
		t.Fatalf("review outcome: %s", reviewed.Status)
	}

	sc, _ := env.deeds.GetScar(ctx, scar.ID)
	if sc.Status != model.ScarOpen || sc.Weight != 1.0 {
		t.Fatalf("scar after rejection: %+v", sc)
	}

	// The reopened scar can take another recovery attempt.
	if _, err := env.deeds.SubmitRecovery(ctx, scar.ID, alice.ID, "rebuilt the post"); err != nil {
		t.Fatalf("second recovery: %v", err)
	}

	// A recovery can only be reviewed once.
	if _, err := env.deeds.ReviewRecovery(ctx, rec.ID, bob.ID, true); !errors.Is(err, model.ErrInvalidState) {
		t.Fatalf("want ErrInvalidState for double review, got %v", err)
	}
}

func TestDeedService_RecoveryRequiresOpenScar(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.mustIdentity(t, "alice")
	bob := env.mustIdentity(t, "bob")

	d, _ := env.deeds.SubmitDeed(ctx, alice.ID, "seed_share", "", "")
	scar, _ := env.deeds.RaiseScar(ctx, d.ID, bob.ID, "seeds were moldy")
	rec, _ := env.deeds.SubmitRecovery(ctx, scar.ID, alice.ID, "replaced the batch")

	// A second recovery against the same scar must wait for the review.
	if _, err := env.deeds.SubmitRecovery(ctx, scar.ID, alice.ID, "again"); !errors.Is(err, model.ErrInvalidState) {
		t.Fatalf("want ErrInvalidState for scar under review, got %v", err)
	}

	if _, err := env.deeds.ReviewRecovery(ctx, rec.ID, bob.ID, true); err != nil {
		t.Fatalf("review: %v", err)
	}
	// Resolved scars accept no further recoveries.
	if _, err := env.deeds.SubmitRecovery(ctx, scar.ID, alice.ID, "more"); !errors.Is(err, model.ErrInvalidState) {
		t.Fatalf("want ErrInvalidState for resolved scar, got %v", err)
	}
}

func TestDeedService_FailedAnchorLeavesDeedPending(t *testing.T) {
	failures := 1
	st := &brokenAppendStore{Store: newSQLiteStore(t), remaining: &failures}
	env := newTestEnvOver(t, st, DefaultGovernanceConfig(), DefaultDeedConfig(), DefaultReputationConfig())
	ctx := context.Background()
	alice := env.mustIdentity(t, "alice")
	bob := env.mustIdentity(t, "bob")

	// Burn the single failure on the submit append, then verify that the
	// deed itself rolled back with it.
	if _, err := env.deeds.SubmitDeed(ctx, alice.ID, "repair", "patched the roof", "ab12"); !errors.Is(err, errAppendBroken) {
		t.Fatalf("submit with broken append: want append error, got %v", err)
	}
	d, err := env.deeds.SubmitDeed(ctx, alice.ID, "repair", "patched the roof", "ab12")
	if err != nil {
		t.Fatalf("retry submit: %v", err)
	}

	failures = 1
	if _, err := env.deeds.VerifyDeed(ctx, d.ID, bob.ID); !errors.Is(err, errAppendBroken) {
		t.Fatalf("verify with broken append: want append error, got %v", err)
	}
	got, err := env.deeds.GetDeed(ctx, d.ID)
	if err != nil {
		t.Fatalf("get deed: %v", err)
	}
	if got.Status != model.DeedPending {
		t.Fatalf("deed status after failed anchor: %s", got.Status)
	}

	// Recovery of the store makes the verification retryable end to end.
	if _, err := env.deeds.VerifyDeed(ctx, d.ID, bob.ID); err != nil {
		t.Fatalf("retry verify: %v", err)
	}
	if kinds := env.chainKinds(t); len(kinds) != 2 || kinds[1] != model.KindDeedVerified {
		t.Fatalf("chain after retry: %v", kinds)
	}
}
