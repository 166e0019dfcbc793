package chain

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/vanj900/cellgov/internal/model"
)

// --- Fakes ---

type memChainStore struct {
	entries []*model.ChainEntry
}

func (m *memChainStore) Append(ctx context.Context, e *model.ChainEntry) error {
	cp := *e
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *memChainStore) Tip(ctx context.Context) (*model.ChainEntry, error) {
	if len(m.entries) == 0 {
		return nil, nil
	}
	return m.entries[len(m.entries)-1], nil
}

func (m *memChainStore) List(ctx context.Context) ([]*model.ChainEntry, error) {
	return m.entries, nil
}

type capturePublisher struct {
	published []*model.ChainEntry
}

func (p *capturePublisher) Publish(ctx context.Context, e *model.ChainEntry) {
	p.published = append(p.published, e)
}

func newTestChain() (*Chain, *memChainStore) {
	st := &memChainStore{}
	return New(st, zerolog.Nop()), st
}

// --- Tests ---

func TestChain_AppendLinksEntries(t *testing.T) {
	c, _ := newTestChain()
	ctx := context.Background()

	e0, err := c.Append(ctx, model.KindDeed, map[string]string{"deed": "d1"})
	if err != nil {
		t.Fatalf("Append e0: %v", err)
	}
	if e0.Index != 0 || e0.PrevHash != ZeroHash {
		t.Fatalf("genesis entry: index=%d prev=%s", e0.Index, e0.PrevHash)
	}

	e1, err := c.Append(ctx, model.KindScar, map[string]string{"scar": "s1"})
	if err != nil {
		t.Fatalf("Append e1: %v", err)
	}
	if e1.Index != 1 || e1.PrevHash != e0.Hash {
		t.Fatalf("second entry: index=%d prev=%s want prev=%s", e1.Index, e1.PrevHash, e0.Hash)
	}
	if e1.Hash == e0.Hash {
		t.Fatalf("entries share a hash")
	}

	if err := c.Verify(ctx); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	tip, err := c.Tip(ctx)
	if err != nil || tip.Hash != e1.Hash {
		t.Fatalf("Tip: tip=%v err=%v", tip, err)
	}
}

func TestChain_VerifyEmptyChain(t *testing.T) {
	c, _ := newTestChain()
	if err := c.Verify(context.Background()); err != nil {
		t.Fatalf("Verify empty: %v", err)
	}
}

func TestChain_VerifyDetectsTamperedPayload(t *testing.T) {
	c, st := newTestChain()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := c.Append(ctx, model.KindDeed, map[string]int{"i": i}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	st.entries[1].Payload = []byte(`{"i":99}`)

	err := c.Verify(ctx)
	if !errors.Is(err, model.ErrChainIntegrity) {
		t.Fatalf("want ErrChainIntegrity, got %v", err)
	}
}

func TestChain_VerifyDetectsRelinkedEntry(t *testing.T) {
	c, st := newTestChain()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := c.Append(ctx, model.KindDeed, map[string]int{"i": i}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	// Breaking one link invalidates everything after it even if the
	// tampered entry's own hash is recomputed to look right.
	st.entries[1].PrevHash = ZeroHash
	st.entries[1].Hash = entryHash(st.entries[1].PrevHash, st.entries[1].PayloadHash, 1)

	if err := c.Verify(ctx); !errors.Is(err, model.ErrChainIntegrity) {
		t.Fatalf("want ErrChainIntegrity, got %v", err)
	}
}

func TestChain_VerifyDetectsTruncation(t *testing.T) {
	c, st := newTestChain()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := c.Append(ctx, model.KindDeed, map[string]int{"i": i}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	// Dropping an interior entry shifts indexes and breaks the prev link.
	st.entries = append(st.entries[:1], st.entries[2:]...)

	if err := c.Verify(ctx); !errors.Is(err, model.ErrChainIntegrity) {
		t.Fatalf("want ErrChainIntegrity, got %v", err)
	}
}

func TestChain_CompareDetectsDivergence(t *testing.T) {
	a, _ := newTestChain()
	b, _ := newTestChain()
	ctx := context.Background()

	if _, err := a.Append(ctx, model.KindDeed, map[string]string{"who": "alice"}); err != nil {
		t.Fatalf("Append a: %v", err)
	}
	if _, err := b.Append(ctx, model.KindDeed, map[string]string{"who": "bob"}); err != nil {
		t.Fatalf("Append b: %v", err)
	}

	bTip, _ := b.Tip(ctx)
	if err := a.Compare(ctx, bTip); !errors.Is(err, model.ErrDivergentChain) {
		t.Fatalf("want ErrDivergentChain, got %v", err)
	}
}

func TestChain_CompareAcceptsSharedHistory(t *testing.T) {
	a, _ := newTestChain()
	ctx := context.Background()

	e0, err := a.Append(ctx, model.KindDeed, map[string]string{"who": "alice"})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := a.Append(ctx, model.KindScar, map[string]string{"who": "bob"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	// A peer that is simply behind is not divergent.
	if err := a.Compare(ctx, e0); err != nil {
		t.Fatalf("Compare behind peer: %v", err)
	}
	// Nor is a peer ahead of us; only a hash mismatch at a shared index is.
	ahead := &model.ChainEntry{Index: 10, Hash: "ffff"}
	if err := a.Compare(ctx, ahead); err != nil {
		t.Fatalf("Compare ahead peer: %v", err)
	}
	if err := a.Compare(ctx, nil); err != nil {
		t.Fatalf("Compare nil tip: %v", err)
	}
}

func TestChain_AppendNotifiesPublisher(t *testing.T) {
	c, _ := newTestChain()
	pub := &capturePublisher{}
	c.SetPublisher(pub)

	e, err := c.Append(context.Background(), model.KindTally, map[string]string{"proposal": "p1"})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if len(pub.published) != 1 || pub.published[0].Hash != e.Hash {
		t.Fatalf("publisher not notified: %v", pub.published)
	}
}
