package syncq

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/vanj900/cellgov/internal/model"
	"github.com/vanj900/cellgov/internal/store"
)

// Handler processes a received message on the application layer.
// Delivery is at-least-once, so handlers must be idempotent to
// downstream effects (governance votes are: only the last vote per
// identity counts).
type Handler func(ctx context.Context, m *model.Message) error

// Receiver is the inbound side of the sync protocol. Receipts are
// keyed by (sender, seq); a redelivered message is detected before the
// handler runs.
type Receiver struct {
	store   store.Store
	handler Handler
	log     zerolog.Logger
}

func NewReceiver(s store.Store, h Handler, log zerolog.Logger) *Receiver {
	return &Receiver{store: s, handler: h, log: log}
}

// Receive marks the receipt and, for first deliveries, invokes the
// handler. A handler error does not roll back the receipt: the sender
// already marked the message DELIVERED and retrying there would only
// duplicate it.
func (r *Receiver) Receive(ctx context.Context, m *model.Message) error {
	first, err := r.store.Messages().AddReceipt(ctx, m.Sender, m.Seq)
	if err != nil {
		return err
	}
	if !first {
		r.log.Debug().Str("sender", m.Sender).Int64("seq", m.Seq).Msg("duplicate delivery ignored")
		return nil
	}
	if r.handler == nil {
		return nil
	}
	if err := r.handler(ctx, m); err != nil {
		r.log.Error().Err(err).Str("message", m.ID).Msg("message handler failed")
	}
	return nil
}
