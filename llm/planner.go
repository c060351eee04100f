package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/office-mas/office-multi-agent/audit"
	"github.com/office-mas/office-multi-agent/logger"
	"github.com/office-mas/office-multi-agent/protocol"
	"github.com/office-mas/office-multi-agent/registry"
	"github.com/office-mas/office-multi-agent/resilience"
	"github.com/office-mas/office-multi-agent/types"
)

// Planner turns backend chat output into validated ACL replies. Every
// answer passes the embedded JSON Schema and the transition table; failures
// degrade to REFUSE, backend outages degrade to a deterministic default plan.
type Planner struct {
	client      Client
	schema      *gojsonschema.Schema
	stages      *audit.StageWriter
	breaker     *resilience.CircuitBreaker
	retry       *resilience.RetryConfig
	callTimeout time.Duration
	log         *logger.Logger
}

// PlannerOption configures a Planner.
type PlannerOption func(*Planner)

// WithStageWriter enables per-stage audit dumps of reasoning exchanges.
func WithStageWriter(w *audit.StageWriter) PlannerOption {
	return func(p *Planner) { p.stages = w }
}

// WithCallTimeout bounds one backend call (default 15s).
func WithCallTimeout(d time.Duration) PlannerOption {
	return func(p *Planner) { p.callTimeout = d }
}

// NewPlanner compiles the plan schema and wires the backend guard rails.
func NewPlanner(client Client, opts ...PlannerOption) (*Planner, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(aclPlanSchema))
	if err != nil {
		return nil, fmt.Errorf("compile plan schema: %w", err)
	}
	p := &Planner{
		client:      client,
		schema:      schema,
		breaker:     resilience.NewCircuitBreaker(3, 30*time.Second),
		retry:       resilience.DefaultRetryConfig(),
		callTimeout: 15 * time.Second,
		log:         logger.GetLogger().WithField("component", "planner"),
	}
	p.breaker.SetOnStateChange(func(from, to resilience.State) {
		p.log.Warnf("reasoning backend breaker: %s -> %s", from, to)
	})
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

func systemPrompt(agentName, persona, registryExcerpt string) string {
	return fmt.Sprintf(`You are an autonomous agent speaking FIPA-ACL via JSON.
STRICT RULES:
- Output MUST be a single JSON object matching the provided JSON Schema (no extra text).
- Keep 'conversation_id' and 'protocol' from the incoming message.
- 'language' MUST be "json".
- Choose 'performative' according to minimal FIPA transitions:
  REQUEST -> AGREE or REFUSE; after AGREE -> INFORM or FAILURE.
- Do not invent sender/receiver: they will be set by the runtime. You may omit them or set null.
- If ontology is unclear, keep the same, and optionally suggest alternatives in payload.ontology_hints.
- payload.text is the main natural-language answer.
- Be concise, factual, and actionable. No roleplay fluff.

Agent identity:
- name: %s
- character: %s

Known peers (alias -> character -> endpoint):
%s
`, agentName, persona, registryExcerpt)
}

// RegistryExcerpt renders a snapshot for the prompt, alias-sorted so
// identical registries produce identical prompts.
func RegistryExcerpt(snapshot map[string]registry.Descriptor) string {
	aliases := make([]string, 0, len(snapshot))
	for a := range snapshot {
		aliases = append(aliases, a)
	}
	sort.Strings(aliases)
	rows := make([]map[string]string, 0, len(aliases))
	for _, a := range aliases {
		d := snapshot[a]
		rows = append(rows, map[string]string{"alias": a, "character": d.Character, "endpoint": d.Endpoint})
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(data)
}

// RespondToACL builds the prompt, calls the backend, validates the answer
// and always returns a sendable reply. The returned envelope never violates
// the transition table.
func (p *Planner) RespondToACL(ctx context.Context, agentName, persona, registryExcerpt, historyJSON string, incoming *types.AclMessage) *types.AclMessage {
	cid := incoming.ConversationID
	p.stages.Save(agentName, cid, "incoming", map[string]any{"incoming_acl": incoming})

	system := systemPrompt(agentName, persona, registryExcerpt)
	inJSON, _ := json.MarshalIndent(incoming, "", "  ")
	user := fmt.Sprintf("HISTORY (last messages for this agent):\n%s\n\nINCOMING FIPA-ACL JSON:\n%s\n\nRespond with EXACTLY one JSON object that matches the schema.", historyJSON, inJSON)
	p.stages.Save(agentName, cid, "prompt", map[string]any{"system": system, "user": user})

	raw, err := p.call(ctx, system, user)
	if err != nil {
		p.stages.Save(agentName, cid, "error", map[string]any{"reason": "backend", "detail": err.Error()})
		p.log.Warnf("backend failed, default plan used: %v", err)
		return DefaultReply(incoming)
	}
	p.stages.Save(agentName, cid, "raw_response", map[string]any{"raw_text": raw})

	reply, verr := p.validate(raw, incoming)
	if verr != nil {
		p.stages.Save(agentName, cid, "error", map[string]any{"reason": "validation", "detail": verr.Error()})
		return refuseReply(incoming, verr.Error())
	}
	p.stages.Save(agentName, cid, "validated", map[string]any{"reply": reply})
	return reply
}

// call runs one guarded backend exchange: circuit breaker outside, bounded
// retry inside, all under the call timeout.
func (p *Planner) call(ctx context.Context, system, user string) (string, error) {
	if p.client == nil {
		return "", ErrLLMDisabled
	}
	cctx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()

	var out string
	err := p.breaker.Execute(func() error {
		return resilience.RetryWithConfig(cctx, p.retry, func() error {
			s, err := p.client.Chat(cctx, system, user)
			if err != nil {
				return err
			}
			out = s
			return nil
		})
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrBackendUnavailable, err)
	}
	return out, nil
}

// validate parses the raw answer, pins the thread fields, checks it against
// the plan schema, and realizes it through the transition rules.
func (p *Planner) validate(raw string, incoming *types.AclMessage) (*types.AclMessage, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(stripFences(raw)), &obj); err != nil {
		return nil, fmt.Errorf("model returned non-JSON response: %v", err)
	}

	// The thread identity is never the model's to choose.
	obj["conversation_id"] = incoming.ConversationID
	obj["protocol"] = incoming.Protocol
	if s, _ := obj["ontology"].(string); s == "" {
		obj["ontology"] = incoming.Ontology
	}
	obj["language"] = types.DefaultLanguage
	delete(obj, "sender")
	delete(obj, "receiver")
	if _, ok := obj["payload"]; !ok {
		obj["payload"] = map[string]any{}
	}
	if rb, _ := obj["reply_by"].(string); rb == "" {
		obj["reply_by"] = protocol.EnsureReplyBy("")
	}

	result, err := p.schema.Validate(gojsonschema.NewGoLoader(obj))
	if err != nil {
		return nil, fmt.Errorf("schema validation error: %v", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("plan rejected by schema: %s", strings.Join(msgs, "; "))
	}

	perf, _ := obj["performative"].(string)
	payload, _ := obj["payload"].(map[string]any)
	replyBy, _ := obj["reply_by"].(string)
	ontology, _ := obj["ontology"].(string)

	plan := &types.Plan{Performative: perf, Payload: payload, ReplyBy: replyBy, Ontology: ontology}
	reply, err := protocol.Realize(plan, incoming)
	if err != nil {
		return nil, err
	}
	return reply, nil
}

// DefaultReply is the deterministic fallback when the backend is down or
// produced garbage the pipeline could not even refuse politely: REQUEST
// gets AGREE, AGREE gets INFORM, everything else gets INFORM.
func DefaultReply(incoming *types.AclMessage) *types.AclMessage {
	var perf, text string
	switch incoming.Performative {
	case types.PerformativeRequest:
		perf, text = string(types.PerformativeAgree), "OK."
	case types.PerformativeAgree:
		perf, text = string(types.PerformativeInform), "done"
	default:
		perf, text = string(types.PerformativeInform), "noted"
	}
	reply, err := protocol.MakeReply(incoming, perf, protocol.BuildOptions{
		Text:    text,
		ReplyBy: protocol.EnsureReplyBy(""),
	})
	if err != nil {
		// Unreachable with a normalized incoming envelope.
		reply, _ = protocol.BuildMessage(string(types.PerformativeInform), incoming.ConversationID, protocol.BuildOptions{Text: text})
	}
	return reply
}

func refuseReply(incoming *types.AclMessage, reason string) *types.AclMessage {
	reply, _ := protocol.MakeReply(incoming, string(types.PerformativeRefuse), protocol.BuildOptions{
		Payload: map[string]any{"text": "plan validation failed", "error": reason},
	})
	return reply
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
