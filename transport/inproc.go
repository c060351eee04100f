package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/office-mas/office-multi-agent/logger"
	"github.com/office-mas/office-multi-agent/types"
)

const defaultMailboxSize = 64

// InProcBus connects endpoints in one process through named buffered
// mailboxes. It backs the single-binary office demo and the tests.
type InProcBus struct {
	mu        sync.RWMutex
	mailboxes map[string]chan *types.WireEnvelope
	size      int
	log       *logger.Logger
}

// NewInProcBus creates a bus with the given per-mailbox capacity.
// A non-positive size gets the default.
func NewInProcBus(size int) *InProcBus {
	if size <= 0 {
		size = defaultMailboxSize
	}
	return &InProcBus{
		mailboxes: make(map[string]chan *types.WireEnvelope),
		size:      size,
		log:       logger.GetLogger().WithField("component", "inproc_bus"),
	}
}

// Endpoint attaches the named agent to the bus, creating its mailbox
// on first use.
func (b *InProcBus) Endpoint(name string) *InProcEndpoint {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.mailboxes[name]; !ok {
		b.mailboxes[name] = make(chan *types.WireEnvelope, b.size)
	}
	return &InProcEndpoint{bus: b, name: name}
}

func (b *InProcBus) deliver(to string, env *types.WireEnvelope) error {
	b.mu.RLock()
	box, ok := b.mailboxes[to]
	b.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no mailbox for %q", to)
	}
	select {
	case box <- env:
		return nil
	default:
		b.log.Warnf("mailbox %q full, envelope from %q dropped", to, env.Sender)
		return nil
	}
}

// detach removes the mailbox without closing the channel; a deliver
// that already fetched it may still be mid-send. Receive treats a
// missing mailbox as silence.
func (b *InProcBus) detach(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.mailboxes, name)
}

// InProcEndpoint is one agent's mailbox on an InProcBus.
type InProcEndpoint struct {
	bus  *InProcBus
	name string
}

func (e *InProcEndpoint) Addr() string { return e.name }

func (e *InProcEndpoint) Send(ctx context.Context, to string, env *types.WireEnvelope) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return e.bus.deliver(to, env)
}

func (e *InProcEndpoint) Receive(ctx context.Context, timeout time.Duration) (*types.WireEnvelope, bool) {
	e.bus.mu.RLock()
	box, ok := e.bus.mailboxes[e.name]
	e.bus.mu.RUnlock()
	if !ok {
		return nil, false
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case env := <-box:
		return env, true
	case <-timer.C:
		return nil, false
	case <-ctx.Done():
		return nil, false
	}
}

func (e *InProcEndpoint) Close() error {
	e.bus.detach(e.name)
	return nil
}
