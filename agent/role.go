package agent

import (
	"context"

	"github.com/office-mas/office-multi-agent/types"
)

// Role is a configurable behavior plugged into a BaseAgent. One engine,
// many roles.
type Role interface {
	Name() string
	// HandleACL examines an inbound message. A non-nil reply goes back to
	// from. handled=false defers the message to the reasoning fallback.
	// Roles that talk to several peers send through the agent themselves
	// and return (nil, true, nil).
	HandleACL(ctx context.Context, a *BaseAgent, incoming *types.AclMessage, from string) (reply *types.AclMessage, handled bool, err error)
}

// Starter is implemented by roles that run their own background work,
// like the console reader.
type Starter interface {
	Start(ctx context.Context, a *BaseAgent)
}

// Ticker is implemented by roles that need work between transport polls,
// like the requester's deadline watch.
type Ticker interface {
	Tick(ctx context.Context, a *BaseAgent)
}
