// Package syncq implements the offline-first durable message queue and
// its sync protocol: at-least-once delivery over an external transport
// with idempotent receipt marking on the receiving side.
package syncq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vanj900/cellgov/internal/model"
	"github.com/vanj900/cellgov/internal/store"
)

// ErrPeerUnreachable is returned by a Transport when the peer cannot be
// reached right now. Sync treats it as a no-op, not a failure.
var ErrPeerUnreachable = errors.New("peer unreachable")

// Transport delivers one opaque message to a peer. The physical layer
// (radio, Bluetooth, LAN, relay) is outside this module.
type Transport interface {
	Deliver(ctx context.Context, peer string, m *model.Message) error
}

// Config tunes the sync engine.
type Config struct {
	// Timeout bounds a single Sync call. A timed-out sync leaves the
	// queue consistent and is safe to retry.
	Timeout time.Duration
	// Interval is the polling cadence of the background Run loop.
	Interval time.Duration
}

// Engine owns the outbound queue for a local node. Messages survive
// process restart; delivery state is checked before each send, so
// re-running Sync after a partial failure never double-delivers.
type Engine struct {
	store     store.Store
	transport Transport
	cfg       Config
	log       zerolog.Logger
}

func NewEngine(s store.Store, t Transport, cfg Config, log zerolog.Logger) *Engine {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	return &Engine{store: s, transport: t, cfg: cfg, log: log}
}

// Enqueue appends a message to the recipient's queue. It always
// succeeds as long as the store is writable.
func (e *Engine) Enqueue(ctx context.Context, sender, recipient string, payload []byte) (*model.Message, error) {
	if recipient == "" {
		return nil, fmt.Errorf("recipient is required: %w", model.ErrValidation)
	}
	m := &model.Message{
		ID:        uuid.New().String(),
		Sender:    sender,
		Recipient: recipient,
		Payload:   payload,
	}
	return e.store.Messages().Enqueue(ctx, m)
}

// Sync delivers all queued messages for a peer in enqueue order and
// returns the number delivered. An unreachable peer is a no-op
// returning 0. The whole call is bounded by the configured timeout;
// hitting it surfaces ErrDeliveryTimeout with undelivered rows intact.
func (e *Engine) Sync(ctx context.Context, peer string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	queued, err := e.store.Messages().ListQueued(ctx, peer)
	if err != nil {
		return 0, err
	}
	delivered := 0
	for _, m := range queued {
		if err := e.transport.Deliver(ctx, peer, m); err != nil {
			if errors.Is(err, ErrPeerUnreachable) {
				return delivered, nil
			}
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return delivered, fmt.Errorf("sync with %s after %d deliveries: %w", peer, delivered, model.ErrDeliveryTimeout)
			}
			return delivered, fmt.Errorf("deliver message %s to %s: %w", m.ID, peer, err)
		}
		if err := e.store.Messages().MarkDelivered(ctx, m.ID); err != nil {
			return delivered, err
		}
		delivered++
	}
	if delivered > 0 {
		e.log.Info().Str("peer", peer).Int("delivered", delivered).Msg("sync completed")
	}
	return delivered, nil
}

// Ack marks a delivered message acknowledged, releasing it for cleanup.
func (e *Engine) Ack(ctx context.Context, messageID string) error {
	return e.store.Messages().MarkAcked(ctx, messageID)
}

// Run polls for peers with queued messages and syncs each until ctx is
// canceled. Unreachable peers back off until the next tick.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info().Dur("interval", e.cfg.Interval).Msg("sync engine starting")
	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.log.Info().Msg("sync engine stopping")
			return ctx.Err()
		case <-ticker.C:
			peers, err := e.store.Messages().PendingRecipients(ctx)
			if err != nil {
				e.log.Error().Err(err).Msg("pending recipients")
				continue
			}
			for _, peer := range peers {
				if _, err := e.Sync(ctx, peer); err != nil {
					// Timeouts and transport failures are retried on the
					// next tick; the queue is unchanged.
					e.log.Warn().Err(err).Str("peer", peer).Msg("sync failed")
				}
			}
		}
	}
}
