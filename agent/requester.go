package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/office-mas/office-multi-agent/protocol"
	"github.com/office-mas/office-multi-agent/types"
)

// RequesterRole opens a conversation with one REQUEST and waits for its
// outcome. AGREE keeps the wait alive; the first terminal answer or the
// hard deadline ends it. The outcome summary goes to the observer alias
// when one is configured.
type RequesterRole struct {
	OrderText string
	To        string // explicit destination alias; empty routes by need
	Observer  string // reporter alias for the outcome summary
	Deadline  time.Duration

	mu       sync.Mutex
	cid      string
	deadline time.Time
	sent     bool
	done     bool
	outcome  string
}

func (r *RequesterRole) Name() string { return "requester" }

// Outcome reports the conversation result once Done.
func (r *RequesterRole) Outcome() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outcome, r.done
}

// ConversationID exposes the opened thread, mainly for tests.
func (r *RequesterRole) ConversationID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cid
}

// Tick sends the opening REQUEST on the first pass and enforces the
// hard deadline afterwards.
func (r *RequesterRole) Tick(ctx context.Context, a *BaseAgent) {
	r.mu.Lock()
	if r.done {
		r.mu.Unlock()
		return
	}
	if !r.sent {
		r.sent = true
		r.cid = protocol.NewConversationID("ord")
		if r.Deadline <= 0 {
			r.Deadline = 60 * time.Second
		}
		r.deadline = time.Now().Add(r.Deadline)
		cid, text, to := r.cid, r.OrderText, r.To
		r.mu.Unlock()

		if to == "" {
			to = a.Route(ctx, text)
		}
		if to == "" {
			r.finish(ctx, a, "failed: no destination for the order", false)
			return
		}
		req, err := protocol.BuildMessage(string(types.PerformativeRequest), cid, protocol.BuildOptions{
			Text:    text,
			ReplyBy: protocol.EnsureReplyBy(protocol.IsoIn(r.Deadline)),
		})
		if err != nil {
			r.finish(ctx, a, fmt.Sprintf("failed: %v", err), false)
			return
		}
		a.SendACL(ctx, req, to)
		return
	}
	deadline := r.deadline
	r.mu.Unlock()

	if time.Now().After(deadline) {
		r.finish(ctx, a, "timeout: no terminal reply before the deadline", false)
	}
}

func (r *RequesterRole) HandleACL(ctx context.Context, a *BaseAgent, incoming *types.AclMessage, from string) (*types.AclMessage, bool, error) {
	r.mu.Lock()
	mine := incoming.ConversationID == r.cid && !r.done
	r.mu.Unlock()
	if !mine {
		// Unrelated thread; nothing for a requester to answer.
		return nil, true, nil
	}

	switch incoming.Performative {
	case types.PerformativeAgree:
		return nil, true, nil
	case types.PerformativeInform:
		r.finish(ctx, a, fmt.Sprintf("done: %s", incoming.Text()), true)
	case types.PerformativeRefuse:
		r.finish(ctx, a, fmt.Sprintf("refused: %s", incoming.Text()), true)
	case types.PerformativeFailure:
		r.finish(ctx, a, fmt.Sprintf("failed: %s", incoming.Text()), true)
	}
	return nil, true, nil
}

// finish records the outcome once and ships the observer summary. After
// this no message is sent for the conversation again: a non-terminal
// finish (timeout, routing failure) carries the summary on a fresh
// conversation id so the closed thread stays closed.
func (r *RequesterRole) finish(ctx context.Context, a *BaseAgent, outcome string, terminal bool) {
	r.mu.Lock()
	if r.done {
		r.mu.Unlock()
		return
	}
	r.done = true
	r.outcome = outcome
	cid := r.cid
	r.mu.Unlock()

	if r.Observer == "" {
		return
	}
	summaryCid := cid
	if !terminal {
		summaryCid = protocol.NewConversationID("sum")
	}
	summary, err := protocol.BuildMessage(string(types.PerformativeInform), summaryCid, protocol.BuildOptions{
		Payload: map[string]any{
			"text":      "order summary: " + outcome,
			"outcome":   outcome,
			"order_cid": cid,
		},
	})
	if err != nil {
		return
	}
	a.SendACL(ctx, summary, r.Observer)
}
