// Package chain implements the append-only, hash-linked audit log every
// other component anchors its records into.
package chain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vanj900/cellgov/internal/model"
	"github.com/vanj900/cellgov/internal/store"
)

// ZeroHash is the prev-hash of the genesis entry.
const ZeroHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Publisher receives freshly appended entries for best-effort broadcast.
// Publish failures must not affect the append.
type Publisher interface {
	Publish(ctx context.Context, e *model.ChainEntry)
}

// Chain is the single logical writer over the persisted entry log.
// All appends serialize on mu; chain integrity depends on strictly
// ordered appends. Reads operate on whatever the store returns, which
// reflects the chain as of the last completed append.
type Chain struct {
	mu    sync.Mutex
	store store.Chain
	pub   Publisher
	log   zerolog.Logger
}

// New wires a chain over its entry store.
func New(s store.Chain, log zerolog.Logger) *Chain {
	return &Chain{store: s, log: log}
}

// SetPublisher attaches a best-effort broadcast sink for new entries.
func (c *Chain) SetPublisher(p Publisher) { c.pub = p }

// Append marshals the payload, links it to the current tip and persists
// the new entry. Concurrent callers queue on the writer lock and apply
// in arrival order.
func (c *Chain) Append(ctx context.Context, kind string, payload interface{}) (*model.ChainEntry, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", kind, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, err := c.appendRaw(ctx, c.store, kind, raw)
	if err != nil {
		return nil, err
	}
	c.announce(ctx, e)
	return e, nil
}

// AppendWith runs apply and the append inside one store transaction, so
// an aggregate change and the record anchoring it land atomically or not
// at all. apply returns the payload to anchor; it may read its own
// writes through tx. The writer lock is held across the transaction.
func (c *Chain) AppendWith(ctx context.Context, s store.Store, kind string, apply func(tx store.Store) (interface{}, error)) (*model.ChainEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var e *model.ChainEntry
	err := s.InTx(ctx, func(tx store.Store) error {
		payload, err := apply(tx)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s payload: %w", kind, err)
		}
		e, err = c.appendRaw(ctx, tx.Chain(), kind, raw)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.announce(ctx, e)
	return e, nil
}

// appendRaw links and persists one entry through cs. Callers hold mu.
func (c *Chain) appendRaw(ctx context.Context, cs store.Chain, kind string, raw []byte) (*model.ChainEntry, error) {
	tip, err := cs.Tip(ctx)
	if err != nil {
		return nil, err
	}
	prevHash := ZeroHash
	var index int64
	if tip != nil {
		prevHash = tip.Hash
		index = tip.Index + 1
	}

	payloadHash := hashHex(raw)
	e := &model.ChainEntry{
		Index:       index,
		PrevHash:    prevHash,
		PayloadHash: payloadHash,
		Hash:        entryHash(prevHash, payloadHash, index),
		Kind:        kind,
		Payload:     raw,
		Timestamp:   time.Now().UTC(),
	}
	if err := cs.Append(ctx, e); err != nil {
		return nil, err
	}
	c.log.Debug().Int64("index", e.Index).Str("kind", kind).Str("hash", e.Hash).Msg("chain entry appended")
	return e, nil
}

func (c *Chain) announce(ctx context.Context, e *model.ChainEntry) {
	if c.pub != nil {
		c.pub.Publish(ctx, e)
	}
}

// Verify recomputes every link from genesis to tip and fails closed on
// any mismatch, truncation or reordering. The error names the offending
// index so an operator can act on it.
func (c *Chain) Verify(ctx context.Context) error {
	entries, err := c.store.List(ctx)
	if err != nil {
		return err
	}
	prevHash := ZeroHash
	for i, e := range entries {
		if e.Index != int64(i) {
			return fmt.Errorf("entry %d has index %d: %w", i, e.Index, model.ErrChainIntegrity)
		}
		if e.PrevHash != prevHash {
			return fmt.Errorf("entry %d prev-hash mismatch: %w", e.Index, model.ErrChainIntegrity)
		}
		if got := hashHex(e.Payload); got != e.PayloadHash {
			return fmt.Errorf("entry %d payload hash mismatch: %w", e.Index, model.ErrChainIntegrity)
		}
		if got := entryHash(e.PrevHash, e.PayloadHash, e.Index); got != e.Hash {
			return fmt.Errorf("entry %d hash mismatch: %w", e.Index, model.ErrChainIntegrity)
		}
		prevHash = e.Hash
	}
	return nil
}

// Entries returns the full chain in order.
func (c *Chain) Entries(ctx context.Context) ([]*model.ChainEntry, error) {
	return c.store.List(ctx)
}

// Tip returns the latest entry, or nil for an empty chain.
func (c *Chain) Tip(ctx context.Context) (*model.ChainEntry, error) {
	return c.store.Tip(ctx)
}

// Compare checks this chain against another member's tip. Divergence is
// surfaced, never merged; the remedy is the fork procedure (the two
// chains continue as independent ledgers).
func (c *Chain) Compare(ctx context.Context, otherTip *model.ChainEntry) error {
	if otherTip == nil {
		return nil
	}
	entries, err := c.store.List(ctx)
	if err != nil {
		return err
	}
	if otherTip.Index < int64(len(entries)) {
		local := entries[otherTip.Index]
		if local.Hash != otherTip.Hash {
			return fmt.Errorf("local tip %s, remote tip %s at index %d: %w",
				local.Hash, otherTip.Hash, otherTip.Index, model.ErrDivergentChain)
		}
	}
	return nil
}

func hashHex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func entryHash(prevHash, payloadHash string, index int64) string {
	h := sha256.New()
	h.Write([]byte(prevHash))
	h.Write([]byte(payloadHash))
	h.Write([]byte(strconv.FormatInt(index, 10)))
	return hex.EncodeToString(h.Sum(nil))
}
