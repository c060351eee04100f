package agent

import (
	"context"

	"github.com/office-mas/office-multi-agent/protocol"
	"github.com/office-mas/office-multi-agent/types"
)

// CoordinatorRole brokers conversations: it AGREEs to the initiator,
// routes the request to the best provider, and relays the first
// terminal answer back. Provider AGREEs are protocol noise and are not
// forwarded.
type CoordinatorRole struct{}

func (CoordinatorRole) Name() string { return "coordinator" }

func (CoordinatorRole) HandleACL(ctx context.Context, a *BaseAgent, incoming *types.AclMessage, from string) (*types.AclMessage, bool, error) {
	cid := incoming.ConversationID

	switch incoming.Performative {
	case types.PerformativeRequest:
		agree, err := protocol.MakeReply(incoming, string(types.PerformativeAgree), protocol.BuildOptions{
			Text: "przyjmuję, szukam wykonawcy",
		})
		if err != nil {
			return nil, true, err
		}
		if err := a.SendACL(ctx, agree, from); err != nil {
			return nil, true, err
		}
		a.SetPending(cid, from)

		need := incoming.Text()
		target := a.Route(ctx, need, from)
		if target == "" {
			a.TakePending(cid)
			failure, err := protocol.MakeReply(incoming, string(types.PerformativeFailure), protocol.BuildOptions{
				Payload: map[string]any{"text": "nie znalazłem wykonawcy", "reason": "no-candidate"},
			})
			if err != nil {
				return nil, true, err
			}
			return nil, true, a.SendACL(ctx, failure, from)
		}
		forward := incoming.Clone()
		forward.Sender, forward.Receiver = "", ""
		forward.ReplyBy = protocol.EnsureReplyBy(incoming.ReplyBy)
		return nil, true, a.SendACL(ctx, forward, target)

	case types.PerformativeAgree:
		// Noise between us and the provider; the initiator already got ours.
		return nil, true, nil

	case types.PerformativeInform, types.PerformativeFailure, types.PerformativeRefuse:
		initiator, ok := a.TakePending(cid)
		if !ok {
			// Late or duplicate terminal; the relay already happened.
			return nil, true, nil
		}
		relay := incoming.Clone()
		relay.Sender, relay.Receiver = "", ""
		return nil, true, a.SendACL(ctx, relay, initiator)

	default:
		return nil, false, nil
	}
}
