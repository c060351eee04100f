// Package protocol carries the shared FIPA-ACL machinery: conversation ids,
// reply-by handling, the performative transition table, reply construction
// and capability-based peer routing.
package protocol

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/office-mas/office-multi-agent/types"
)

// Reply-by policy: a requested deadline earlier than now+MinReplyByLead is
// clamped forward; an unparseable or absent value becomes now+DefaultReplyBy.
const (
	MinReplyByLead = 5 * time.Second
	DefaultReplyBy = 30 * time.Second
)

// nowFunc is swapped out by tests.
var nowFunc = func() time.Time { return time.Now().UTC() }

// NewConversationID returns "<prefix>-<8 hex chars>".
func NewConversationID(prefix string) string {
	if prefix == "" {
		prefix = "conv"
	}
	return fmt.Sprintf("%s-%s", prefix, strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// IsoIn formats now+d as RFC3339 UTC with second precision.
func IsoIn(d time.Duration) string {
	return nowFunc().Add(d).Truncate(time.Second).Format(time.RFC3339)
}

// EnsureReplyBy normalizes a reply-by timestamp: empty or malformed input
// yields now+DefaultReplyBy, anything earlier than now+MinReplyByLead is
// clamped forward to that minimum.
func EnsureReplyBy(value string) string {
	now := nowFunc()
	fallback := now.Add(DefaultReplyBy).Truncate(time.Second).Format(time.RFC3339)
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return fallback
	}
	min := now.Add(MinReplyByLead)
	if t.Before(min) {
		t = min
	}
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

var (
	requestReplies = map[types.Performative]bool{types.PerformativeAgree: true, types.PerformativeRefuse: true}
	afterAgree     = map[types.Performative]bool{types.PerformativeInform: true, types.PerformativeFailure: true}
)

// IsValidTransition implements the minimal transition table. incoming=="" is
// a conversation opening and permits anything from the allowed set; REQUEST
// permits only AGREE/REFUSE; AGREE permits only INFORM/FAILURE; every other
// incoming performative is unconstrained. This is a guard against egregious
// protocol violations, not a full dialogue-state machine.
func IsValidTransition(incoming, outgoing types.Performative) bool {
	out := types.Performative(strings.ToUpper(string(outgoing)))
	if !types.AllowedPerformatives[out] {
		return false
	}
	switch types.Performative(strings.ToUpper(string(incoming))) {
	case "":
		return true
	case types.PerformativeRequest:
		return requestReplies[out]
	case types.PerformativeAgree:
		return afterAgree[out]
	default:
		return true
	}
}

// BuildOptions tunes BuildMessage and MakeReply.
type BuildOptions struct {
	Payload  map[string]any
	Text     string
	ReplyBy  string // normalized through EnsureReplyBy when non-empty
	Protocol string
	Ontology string
	Language string
}

// BuildMessage opens a new envelope. A missing conversation id gets a fresh
// one; Text is merged into payload["text"] without clobbering an existing key.
func BuildMessage(performative, conversationID string, opts BuildOptions) (*types.AclMessage, error) {
	if conversationID == "" {
		conversationID = NewConversationID("conv")
	}
	payload := make(map[string]any, len(opts.Payload)+1)
	for k, v := range opts.Payload {
		payload[k] = v
	}
	if opts.Text != "" {
		if _, ok := payload["text"]; !ok {
			payload["text"] = opts.Text
		}
	}
	m := &types.AclMessage{
		Performative:   types.Performative(performative),
		ConversationID: conversationID,
		Protocol:       opts.Protocol,
		Ontology:       opts.Ontology,
		Language:       opts.Language,
		Payload:        payload,
	}
	if opts.ReplyBy != "" {
		m.ReplyBy = EnsureReplyBy(opts.ReplyBy)
	}
	if err := m.Normalize(); err != nil {
		return nil, err
	}
	return m, nil
}

// MakeReply builds a reply that stays inside the incoming conversation:
// conversation id, protocol, and ontology are inherited unless overridden.
func MakeReply(incoming *types.AclMessage, performative string, opts BuildOptions) (*types.AclMessage, error) {
	p, err := types.ParsePerformative(performative)
	if err != nil {
		return nil, err
	}
	if opts.Protocol == "" {
		opts.Protocol = incoming.Protocol
	}
	if opts.Ontology == "" {
		opts.Ontology = incoming.Ontology
	}
	if opts.Language == "" {
		opts.Language = incoming.Language
	}
	return BuildMessage(string(p), incoming.ConversationID, opts)
}

// StrictReply is MakeReply plus a transition check against the incoming
// performative.
func StrictReply(incoming *types.AclMessage, performative string, opts BuildOptions) (*types.AclMessage, error) {
	p, err := types.ParsePerformative(performative)
	if err != nil {
		return nil, err
	}
	if !IsValidTransition(incoming.Performative, p) {
		return nil, fmt.Errorf("%w: %s -> %s", types.ErrInvalidTransition, incoming.Performative, p)
	}
	return MakeReply(incoming, string(p), opts)
}

// Realize turns a validated Plan into a trusted envelope. The plan's
// performative must be in the allowed set and satisfy the transition table
// relative to the incoming performative; conversation id, protocol, and
// ontology are preserved from the incoming envelope unless the plan
// overrides the ontology; reply_by is ensured.
func Realize(plan *types.Plan, incoming *types.AclMessage) (*types.AclMessage, error) {
	p, err := types.ParsePerformative(plan.Performative)
	if err != nil {
		return nil, err
	}
	if !IsValidTransition(incoming.Performative, p) {
		return nil, fmt.Errorf("%w: %s -> %s", types.ErrInvalidTransition, incoming.Performative, p)
	}
	replyBy := plan.ReplyBy
	if replyBy == "" {
		replyBy = EnsureReplyBy("")
	} else {
		replyBy = EnsureReplyBy(replyBy)
	}
	return MakeReply(incoming, string(p), BuildOptions{
		Payload:  plan.MergedPayload(),
		ReplyBy:  replyBy,
		Ontology: plan.Ontology,
	})
}
