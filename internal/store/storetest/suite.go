package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vanj900/cellgov/internal/model"
	"github.com/vanj900/cellgov/internal/store"
)

// Run exercises a minimal compliance suite against a store.Store implementation.
// Implementations should provide a clean, isolated store and return it from makeStore.
func Run(t *testing.T, makeStore func(t *testing.T) store.Store) {
	t.Helper()

	s := makeStore(t)
	ctx := context.Background()

	// Unique test identifiers
	aliceID := "id-" + uuid.New().String()
	bobID := "id-" + uuid.New().String()

	// Identities
	a := &model.Identity{ID: aliceID, Owner: "alice-" + aliceID, PublicKey: "aa", Status: model.IdentityActive}
	if _, err := s.Identities().Create(ctx, a, "00ff"); err != nil {
		t.Fatalf("CreateIdentity: %v", err)
	}
	if got, err := s.Identities().Get(ctx, aliceID); err != nil || got == nil || got.ID != aliceID {
		t.Fatalf("GetIdentity: got=%v err=%v", got, err)
	}
	if got, err := s.Identities().GetByOwner(ctx, a.Owner); err != nil || got == nil || got.ID != aliceID {
		t.Fatalf("GetIdentityByOwner: got=%v err=%v", got, err)
	}
	if seed, err := s.Identities().KeySeed(ctx, aliceID); err != nil || seed != "00ff" {
		t.Fatalf("KeySeed: seed=%q err=%v", seed, err)
	}
	b := &model.Identity{ID: bobID, Owner: "bob-" + bobID, PublicKey: "bb", Status: model.IdentityActive}
	if _, err := s.Identities().Create(ctx, b, "11ee"); err != nil {
		t.Fatalf("CreateIdentity b: %v", err)
	}
	if lst, err := s.Identities().List(ctx); err != nil || len(lst) < 2 {
		t.Fatalf("ListIdentities: n=%d err=%v", len(lst), err)
	}
	if err := s.Identities().SetStatus(ctx, bobID, model.IdentityDormant); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if got, _ := s.Identities().Get(ctx, bobID); got.Status != model.IdentityDormant {
		t.Fatalf("SetStatus not persisted: %s", got.Status)
	}
	if err := s.Identities().SetStatus(ctx, bobID, model.IdentityActive); err != nil {
		t.Fatalf("SetStatus restore: %v", err)
	}
	if _, err := s.Identities().Get(ctx, "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("GetIdentity missing: want ErrNotFound, got %v", err)
	}

	// Credentials
	credID := "cred-" + uuid.New().String()
	c := &model.Credential{
		ID: credID, IssuerID: aliceID, SubjectID: bobID, Type: "membership",
		Claims:      map[string]string{"role": "member"},
		Commitments: map[string]string{"role": "deadbeef"},
		Salts:       map[string]string{"role": "0102"},
		JWS:         "header.payload.sig",
	}
	if _, err := s.Credentials().Create(ctx, c); err != nil {
		t.Fatalf("CreateCredential: %v", err)
	}
	got, err := s.Credentials().Get(ctx, credID)
	if err != nil || got.Claims["role"] != "member" || got.Commitments["role"] != "deadbeef" {
		t.Fatalf("GetCredential: got=%v err=%v", got, err)
	}
	if rev, err := s.Credentials().FindRevocation(ctx, credID); err != nil || rev != nil {
		t.Fatalf("FindRevocation empty: rev=%v err=%v", rev, err)
	}
	revocation := &model.Credential{
		ID: "cred-" + uuid.New().String(), IssuerID: aliceID, SubjectID: bobID,
		Type: model.CredentialTypeRevocation, RevokesID: credID,
		Claims: map[string]string{}, Commitments: map[string]string{}, Salts: map[string]string{},
		JWS: "h.p.s",
	}
	if _, err := s.Credentials().Create(ctx, revocation); err != nil {
		t.Fatalf("CreateRevocation: %v", err)
	}
	if rev, err := s.Credentials().FindRevocation(ctx, credID); err != nil || rev == nil || rev.RevokesID != credID {
		t.Fatalf("FindRevocation: rev=%v err=%v", rev, err)
	}

	// Messages
	peer := "peer-" + uuid.New().String()
	m1, err := s.Messages().Enqueue(ctx, &model.Message{ID: "m-" + uuid.New().String(), Sender: aliceID, Recipient: peer, Payload: []byte("one")})
	if err != nil {
		t.Fatalf("Enqueue m1: %v", err)
	}
	m2, err := s.Messages().Enqueue(ctx, &model.Message{ID: "m-" + uuid.New().String(), Sender: aliceID, Recipient: peer, Payload: []byte("two")})
	if err != nil {
		t.Fatalf("Enqueue m2: %v", err)
	}
	if m2.Seq != m1.Seq+1 {
		t.Fatalf("Enqueue seq: m1=%d m2=%d", m1.Seq, m2.Seq)
	}
	queued, err := s.Messages().ListQueued(ctx, peer)
	if err != nil || len(queued) != 2 || queued[0].ID != m1.ID {
		t.Fatalf("ListQueued: n=%d err=%v", len(queued), err)
	}
	if peers, err := s.Messages().PendingRecipients(ctx); err != nil || !contains(peers, peer) {
		t.Fatalf("PendingRecipients: %v err=%v", peers, err)
	}
	if err := s.Messages().MarkDelivered(ctx, m1.ID); err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}
	if queued, _ := s.Messages().ListQueued(ctx, peer); len(queued) != 1 || queued[0].ID != m2.ID {
		t.Fatalf("ListQueued after delivery: n=%d", len(queued))
	}
	if err := s.Messages().MarkAcked(ctx, m1.ID); err != nil {
		t.Fatalf("MarkAcked: %v", err)
	}
	if fresh, err := s.Messages().AddReceipt(ctx, aliceID, m1.Seq); err != nil || !fresh {
		t.Fatalf("AddReceipt first: fresh=%v err=%v", fresh, err)
	}
	if fresh, err := s.Messages().AddReceipt(ctx, aliceID, m1.Seq); err != nil || fresh {
		t.Fatalf("AddReceipt duplicate: fresh=%v err=%v", fresh, err)
	}

	// Chain
	if tip, err := s.Chain().Tip(ctx); err != nil || tip != nil {
		t.Fatalf("Tip empty chain: tip=%v err=%v", tip, err)
	}
	e0 := &model.ChainEntry{Index: 0, PrevHash: "0", PayloadHash: "p0", Hash: "h0", Kind: "tally", Payload: []byte("{}"), Timestamp: time.Now().UTC()}
	if err := s.Chain().Append(ctx, e0); err != nil {
		t.Fatalf("ChainAppend e0: %v", err)
	}
	e1 := &model.ChainEntry{Index: 1, PrevHash: "h0", PayloadHash: "p1", Hash: "h1", Kind: "deed", Payload: []byte("{}"), Timestamp: time.Now().UTC()}
	if err := s.Chain().Append(ctx, e1); err != nil {
		t.Fatalf("ChainAppend e1: %v", err)
	}
	if tip, err := s.Chain().Tip(ctx); err != nil || tip == nil || tip.Hash != "h1" {
		t.Fatalf("Tip: tip=%v err=%v", tip, err)
	}
	if lst, err := s.Chain().List(ctx); err != nil || len(lst) != 2 || lst[0].Index != 0 {
		t.Fatalf("ChainList: n=%d err=%v", len(lst), err)
	}

	// Proposals and votes
	propID := "prop-" + uuid.New().String()
	if _, err := s.Proposals().Create(ctx, &model.Proposal{ID: propID, ProposerID: aliceID, Description: "rotate duty", State: model.ProposalOpen}); err != nil {
		t.Fatalf("CreateProposal: %v", err)
	}
	if err := s.Proposals().SetVote(ctx, propID, aliceID, model.VoteApprove); err != nil {
		t.Fatalf("SetVote: %v", err)
	}
	// A later vote from the same voter replaces the earlier one.
	if err := s.Proposals().SetVote(ctx, propID, aliceID, model.VoteReject); err != nil {
		t.Fatalf("SetVote overwrite: %v", err)
	}
	if err := s.Proposals().SetVote(ctx, propID, bobID, model.VoteApprove); err != nil {
		t.Fatalf("SetVote bob: %v", err)
	}
	p, err := s.Proposals().Get(ctx, propID)
	if err != nil || len(p.Votes) != 2 || p.Votes[aliceID] != model.VoteReject {
		t.Fatalf("GetProposal: votes=%v err=%v", p.Votes, err)
	}
	if err := s.Proposals().SetState(ctx, propID, model.ProposalFailed); err != nil {
		t.Fatalf("SetState: %v", err)
	}
	if p, _ := s.Proposals().Get(ctx, propID); p.State != model.ProposalFailed || p.TallyTime == nil {
		t.Fatalf("SetState not persisted: state=%s tally=%v", p.State, p.TallyTime)
	}

	// Deeds
	deedID := "deed-" + uuid.New().String()
	if _, err := s.Deeds().Create(ctx, &model.Deed{ID: deedID, OwnerID: aliceID, ActionType: "water_delivery", Status: model.DeedPending}); err != nil {
		t.Fatalf("CreateDeed: %v", err)
	}
	if err := s.Deeds().SetStatus(ctx, deedID, model.DeedVerified, bobID); err != nil {
		t.Fatalf("SetDeedStatus: %v", err)
	}
	if d, _ := s.Deeds().Get(ctx, deedID); d.Status != model.DeedVerified || d.VerifierID != bobID {
		t.Fatalf("SetDeedStatus not persisted: %+v", d)
	}

	// Scars
	scarID := "scar-" + uuid.New().String()
	if _, err := s.Scars().Create(ctx, &model.Scar{ID: scarID, DeedID: deedID, RaiserID: bobID, Weight: 1.0, Status: model.ScarOpen}); err != nil {
		t.Fatalf("CreateScar: %v", err)
	}
	if weights, err := s.Scars().OpenWeightByOwner(ctx); err != nil || weights[aliceID] != 1.0 {
		t.Fatalf("OpenWeightByOwner: %v err=%v", weights, err)
	}
	if err := s.Scars().Update(ctx, scarID, model.ScarResolved, 0.3); err != nil {
		t.Fatalf("UpdateScar: %v", err)
	}
	if sc, _ := s.Scars().Get(ctx, scarID); sc.Weight != 0.3 || sc.Status != model.ScarResolved {
		t.Fatalf("UpdateScar not persisted: %+v", sc)
	}
	// Resolved scars drop out of the open-weight projection.
	if weights, _ := s.Scars().OpenWeightByOwner(ctx); weights[aliceID] != 0 {
		t.Fatalf("OpenWeightByOwner resolved: %v", weights)
	}

	// Recoveries
	recID := "rec-" + uuid.New().String()
	if _, err := s.Recoveries().Create(ctx, &model.RecoveryDeed{ID: recID, ScarID: scarID, RecovererID: aliceID, Status: model.RecoveryPending}); err != nil {
		t.Fatalf("CreateRecovery: %v", err)
	}
	if err := s.Recoveries().SetReview(ctx, recID, bobID, model.RecoveryApproved); err != nil {
		t.Fatalf("SetReview: %v", err)
	}
	if rec, _ := s.Recoveries().Get(ctx, recID); rec.ReviewerID != bobID || rec.Status != model.RecoveryApproved {
		t.Fatalf("SetReview not persisted: %+v", rec)
	}

	// Endorsements accumulate on the same edge
	if err := s.Endorsements().Upsert(ctx, aliceID, bobID, 1.0); err != nil {
		t.Fatalf("UpsertEndorsement: %v", err)
	}
	if err := s.Endorsements().Upsert(ctx, aliceID, bobID, 0.5); err != nil {
		t.Fatalf("UpsertEndorsement again: %v", err)
	}
	edges, err := s.Endorsements().List(ctx)
	if err != nil {
		t.Fatalf("ListEndorsements: %v", err)
	}
	found := false
	for _, e := range edges {
		if e.FromID == aliceID && e.ToID == bobID {
			found = true
			if e.Weight != 1.5 {
				t.Fatalf("endorsement weight: got %v want 1.5", e.Weight)
			}
		}
	}
	if !found {
		t.Fatalf("endorsement edge missing")
	}

	// Accounts
	if _, err := s.Accounts().Create(ctx, &model.Account{IdentityID: aliceID, Balance: 100}); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if balance, err := s.Accounts().Credit(ctx, aliceID, 10); err != nil || balance != 110 {
		t.Fatalf("Credit: balance=%v err=%v", balance, err)
	}
	if acc, err := s.Accounts().Get(ctx, aliceID); err != nil || acc.Balance != 110 {
		t.Fatalf("GetAccount: %+v err=%v", acc, err)
	}
	if _, err := s.Accounts().Credit(ctx, "missing", 1); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Credit missing: want ErrNotFound, got %v", err)
	}

	// Transactions: an error from fn rolls every write back.
	abort := errors.New("abort")
	err = s.InTx(ctx, func(tx store.Store) error {
		if _, err := tx.Accounts().Credit(ctx, aliceID, 1000); err != nil {
			return err
		}
		return abort
	})
	if !errors.Is(err, abort) {
		t.Fatalf("InTx rollback: want abort error, got %v", err)
	}
	if acc, err := s.Accounts().Get(ctx, aliceID); err != nil || acc.Balance != 110 {
		t.Fatalf("InTx rollback leaked: %+v err=%v", acc, err)
	}

	// Transactions: a nil return commits atomically across aggregates.
	err = s.InTx(ctx, func(tx store.Store) error {
		if _, err := tx.Accounts().Credit(ctx, aliceID, 5); err != nil {
			return err
		}
		return tx.Chain().Append(ctx, &model.ChainEntry{
			Index: 2, PrevHash: "h1", PayloadHash: "p2", Hash: "h2",
			Kind: "tally", Payload: []byte(`{"n":3}`), Timestamp: time.Now().UTC(),
		})
	})
	if err != nil {
		t.Fatalf("InTx commit: %v", err)
	}
	if acc, _ := s.Accounts().Get(ctx, aliceID); acc.Balance != 115 {
		t.Fatalf("InTx commit balance: %+v", acc)
	}
	if tip, err := s.Chain().Tip(ctx); err != nil || tip == nil || tip.Index != 2 {
		t.Fatalf("InTx commit tip: %+v err=%v", tip, err)
	}

	// Health
	if err := s.HealthPing(ctx); err != nil {
		t.Fatalf("HealthPing: %v", err)
	}
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
