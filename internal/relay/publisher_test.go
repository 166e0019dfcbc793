package relay

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/rs/zerolog"

	"github.com/vanj900/cellgov/internal/model"
)

func testEntry(t *testing.T, kind string, payload interface{}) *model.ChainEntry {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return &model.ChainEntry{
		Index:       3,
		PrevHash:    "aa",
		PayloadHash: "bb",
		Hash:        "cc",
		Kind:        kind,
		Payload:     raw,
		Timestamp:   time.Unix(1700000000, 0).UTC(),
	}
}

func TestPublisher_EventCarriesEntryTags(t *testing.T) {
	p, err := NewPublisher([]string{"wss://relay.example"}, "", zerolog.Nop())
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}

	entry := testEntry(t, model.KindTally, &model.TallyRecord{
		ProposalID: "p1", Outcome: model.ProposalPassed, Approve: 2,
	})
	ev, err := p.Event(entry)
	if err != nil {
		t.Fatalf("event: %v", err)
	}

	if ev.Kind != nostr.KindArticle {
		t.Fatalf("event kind: %d", ev.Kind)
	}
	if d := ev.Tags.GetFirst([]string{"d"}); d == nil || d.Value() != "cc" {
		t.Fatalf("d tag: %v", ev.Tags)
	}
	if k := ev.Tags.GetFirst([]string{"t"}); k == nil || k.Value() != model.KindTally {
		t.Fatalf("t tag: %v", ev.Tags)
	}
	if !strings.Contains(ev.Content, "p1") || !strings.Contains(ev.Content, model.ProposalPassed) {
		t.Fatalf("content: %q", ev.Content)
	}

	ok, err := ev.CheckSignature()
	if err != nil || !ok {
		t.Fatalf("signature: ok=%v err=%v", ok, err)
	}
}

func TestPublisher_StableKeyAcrossEvents(t *testing.T) {
	sk := nostr.GeneratePrivateKey()
	p, err := NewPublisher(nil, sk, zerolog.Nop())
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	pub, _ := nostr.GetPublicKey(sk)

	e1, err := p.Event(testEntry(t, model.KindDeed, &model.DeedRecord{DeedID: "d1", OwnerID: "o1", ActionType: "water_delivery"}))
	if err != nil {
		t.Fatalf("event: %v", err)
	}
	e2, err := p.Event(testEntry(t, model.KindScar, &model.ScarRecord{ScarID: "s1", DeedID: "d1"}))
	if err != nil {
		t.Fatalf("event: %v", err)
	}
	if e1.PubKey != pub || e2.PubKey != pub {
		t.Fatalf("pubkey drift: %s %s want %s", e1.PubKey, e2.PubKey, pub)
	}
}

func TestSummarize_UnknownKindFallsBack(t *testing.T) {
	e := &model.ChainEntry{Index: 7, Kind: "unknown", Payload: []byte(`{}`)}
	got := summarize(e)
	if !strings.Contains(got, "7") || !strings.Contains(got, "unknown") {
		t.Fatalf("fallback summary: %q", got)
	}
}
