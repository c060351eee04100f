// Package transport moves wire envelopes between agents. Delivery is
// at-most-once: a full mailbox drops the envelope instead of blocking
// the sender.
package transport

import (
	"context"
	"time"

	"github.com/office-mas/office-multi-agent/types"
)

// Endpoint is one agent's attachment to a transport.
type Endpoint interface {
	// Addr is the address peers use to reach this endpoint.
	Addr() string
	// Send delivers env to the peer address. A dropped envelope is not
	// an error; Send fails only when the peer is unreachable.
	Send(ctx context.Context, to string, env *types.WireEnvelope) error
	// Receive waits up to timeout for the next inbound envelope. The
	// second result is false when nothing arrived.
	Receive(ctx context.Context, timeout time.Duration) (*types.WireEnvelope, bool)
	Close() error
}
