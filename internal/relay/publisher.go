// Package relay broadcasts chain entries to public nostr relays as an
// additional delivery path. Publication is best-effort and never
// authoritative: the local chain remains the source of truth.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/rs/zerolog"

	"github.com/vanj900/cellgov/internal/model"
)

// Publisher signs chain entries as long-form events and pushes them to
// the configured relays.
type Publisher struct {
	relays    []string
	secretKey string
	pubKey    string
	timeout   time.Duration
	log       zerolog.Logger
}

// NewPublisher builds a publisher. An empty secret key gets a fresh
// node key; the key only signs relay events, it is not a member
// identity.
func NewPublisher(relays []string, secretKey string, log zerolog.Logger) (*Publisher, error) {
	if secretKey == "" {
		secretKey = nostr.GeneratePrivateKey()
	}
	pub, err := nostr.GetPublicKey(secretKey)
	if err != nil {
		return nil, fmt.Errorf("relay key: %w", err)
	}
	return &Publisher{
		relays:    relays,
		secretKey: secretKey,
		pubKey:    pub,
		timeout:   10 * time.Second,
		log:       log,
	}, nil
}

// Publish implements chain.Publisher. Failures are logged and dropped;
// a relay outage must never affect an append.
func (p *Publisher) Publish(ctx context.Context, e *model.ChainEntry) {
	if len(p.relays) == 0 {
		return
	}
	ev, err := p.Event(e)
	if err != nil {
		p.log.Warn().Err(err).Int64("index", e.Index).Msg("relay event build failed")
		return
	}
	go p.broadcast(ev, e.Index)
}

func (p *Publisher) broadcast(ev nostr.Event, index int64) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	for _, url := range p.relays {
		r, err := nostr.RelayConnect(ctx, url)
		if err != nil {
			p.log.Warn().Err(err).Str("relay", url).Int64("index", index).Msg("relay connect failed")
			continue
		}
		if err := r.Publish(ctx, ev); err != nil {
			p.log.Warn().Err(err).Str("relay", url).Int64("index", index).Msg("relay publish failed")
		}
		_ = r.Close()
	}
}

// Event converts a chain entry into its signed long-form event: the
// "d" tag carries the entry hash, "t" the payload kind, and the content
// a human-readable summary.
func (p *Publisher) Event(e *model.ChainEntry) (nostr.Event, error) {
	ev := nostr.Event{
		PubKey:    p.pubKey,
		CreatedAt: nostr.Timestamp(e.Timestamp.Unix()),
		Kind:      nostr.KindArticle,
		Tags: nostr.Tags{
			{"d", e.Hash},
			{"t", e.Kind},
			{"layer", "cell"},
		},
		Content: summarize(e),
	}
	if err := ev.Sign(p.secretKey); err != nil {
		return nostr.Event{}, err
	}
	return ev, nil
}

func summarize(e *model.ChainEntry) string {
	payload, err := model.DecodePayload(e.Kind, e.Payload)
	if err != nil {
		return fmt.Sprintf("chain entry %d (%s)", e.Index, e.Kind)
	}
	switch v := payload.(type) {
	case *model.TallyRecord:
		return fmt.Sprintf("proposal %s tallied %s (%d approve, %d reject)", v.ProposalID, v.Outcome, v.Approve, v.Reject)
	case *model.DeedRecord:
		return fmt.Sprintf("deed %s submitted by %s (%s)", v.DeedID, v.OwnerID, v.ActionType)
	case *model.DeedVerifiedRecord:
		return fmt.Sprintf("deed %s verified by %s", v.DeedID, v.VerifierID)
	case *model.ScarRecord:
		return fmt.Sprintf("scar %s raised on deed %s", v.ScarID, v.DeedID)
	case *model.RecoveryRecord:
		return fmt.Sprintf("recovery %s for scar %s: %s", v.RecoveryID, v.ScarID, v.Outcome)
	case *model.RewardRecord:
		return fmt.Sprintf("reward %.2f to %s for %s", v.Amount, v.IdentityID, v.Reason)
	default:
		raw, _ := json.Marshal(payload)
		return string(raw)
	}
}
