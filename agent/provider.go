package agent

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/office-mas/office-multi-agent/protocol"
	"github.com/office-mas/office-multi-agent/types"
)

// ProviderRole fulfils REQUESTs matching one fixed criterion. A request
// whose text names the configured item gets AGREE, a simulated work
// delay, then INFORM with the parsed quantity; anything else is refused
// with an explanation.
type ProviderRole struct {
	Item       string
	DefaultQty int
	Delay      time.Duration
}

func (r *ProviderRole) Name() string { return "provider" }

var intRe = regexp.MustCompile(`\d+`)

// firstInt extracts the first integer literal, or returns def.
func firstInt(text string, def int) int {
	if m := intRe.FindString(text); m != "" {
		if n, err := strconv.Atoi(m); err == nil {
			return n
		}
	}
	return def
}

func (r *ProviderRole) HandleACL(ctx context.Context, a *BaseAgent, incoming *types.AclMessage, from string) (*types.AclMessage, bool, error) {
	if incoming.Performative != types.PerformativeRequest {
		return nil, false, nil
	}
	text := incoming.Text()

	if !strings.Contains(strings.ToLower(text), strings.ToLower(r.Item)) {
		refuse, err := protocol.MakeReply(incoming, string(types.PerformativeRefuse), protocol.BuildOptions{
			Payload: map[string]any{
				"text":   fmt.Sprintf("odmowa: obsługuję tylko zamówienia na %s", r.Item),
				"reason": "unsupported-item",
			},
		})
		return refuse, true, err
	}

	agree, err := protocol.MakeReply(incoming, string(types.PerformativeAgree), protocol.BuildOptions{
		Text: fmt.Sprintf("OK, przyjmuję zamówienie na %s.", r.Item),
	})
	if err != nil {
		return nil, true, err
	}
	if err := a.SendACL(ctx, agree, from); err != nil {
		return nil, true, err
	}

	// Simulated preparation time.
	select {
	case <-time.After(r.Delay):
	case <-ctx.Done():
		return nil, true, ctx.Err()
	}

	qty := firstInt(text, r.DefaultQty)
	inform, err := protocol.MakeReply(incoming, string(types.PerformativeInform), protocol.BuildOptions{
		Payload: map[string]any{
			"text":     fmt.Sprintf("gotowe: %d %s", qty, r.Item),
			"quantity": qty,
			"item":     r.Item,
		},
	})
	if err != nil {
		return nil, true, err
	}
	return nil, true, a.SendACL(ctx, inform, from)
}
