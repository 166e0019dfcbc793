// Package transport carries queue messages between cell nodes. The
// physical layer is pluggable; this implementation speaks HTTP to peer
// nodes that expose the receive endpoint.
package transport

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/vanj900/cellgov/internal/model"
	"github.com/vanj900/cellgov/internal/syncq"
)

// HTTP delivers messages by POSTing them to the peer's receive
// endpoint. Unknown or unreachable peers surface as ErrPeerUnreachable,
// which the sync engine treats as "try again later".
type HTTP struct {
	peers  map[string]string
	client *resty.Client
}

func NewHTTP(peers map[string]string) *HTTP {
	return &HTTP{peers: peers, client: resty.New()}
}

func (t *HTTP) Deliver(ctx context.Context, peer string, m *model.Message) error {
	base, ok := t.peers[peer]
	if !ok {
		return fmt.Errorf("peer %s has no configured address: %w", peer, syncq.ErrPeerUnreachable)
	}
	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(m).
		Post(base + "/api/receive")
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("peer %s: %w", peer, syncq.ErrPeerUnreachable)
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusNoContent {
		return fmt.Errorf("peer %s returned %d: %s", peer, resp.StatusCode(), resp.String())
	}
	return nil
}
