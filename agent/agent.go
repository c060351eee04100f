// Package agent runs the conversation pipeline: receive, authorize,
// decide, validate, send, audit. Role behaviors plug into one engine.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/office-mas/office-multi-agent/audit"
	"github.com/office-mas/office-multi-agent/history"
	"github.com/office-mas/office-multi-agent/llm"
	"github.com/office-mas/office-multi-agent/logger"
	"github.com/office-mas/office-multi-agent/protocol"
	"github.com/office-mas/office-multi-agent/registry"
	"github.com/office-mas/office-multi-agent/transport"
	"github.com/office-mas/office-multi-agent/types"
)

const defaultPoll = 200 * time.Millisecond

// Wire modes remembered per conversation for symmetric replies.
const (
	WireModeJSON    = "json"
	WireModeClassic = "classic"
)

// Options configures a BaseAgent.
type Options struct {
	Alias     string
	Character string
	Endpoint  transport.Endpoint
	Registry  *registry.Registry
	History   *history.Store
	Audit     audit.Sink
	Planner   *llm.Planner // nil disables the reasoning fallback
	AutoAI    bool         // answer unhandled messages via the planner
	Allowlist []string     // empty means accept everyone
	Poll      time.Duration
}

// BaseAgent is the shared conversation engine. All state behind mu is
// owned by the run loop plus role callbacks.
type BaseAgent struct {
	alias     string
	character string
	role      Role
	ep        transport.Endpoint
	reg       *registry.Registry
	hist      *history.Store
	sink      audit.Sink
	planner   *llm.Planner
	router    *protocol.Router
	autoAI    bool
	allow     map[string]bool
	poll      time.Duration
	log       *logger.Logger

	mu           sync.Mutex
	lastSender   map[string]string // cid -> sender alias
	lastWireMode map[string]string // cid -> json|classic
	pending      map[string]string // cid -> initiator alias

	stop chan struct{}
	wg   sync.WaitGroup
}

// New builds an agent around a role. The registry, history store and
// audit sink are required; nil audit gets a NopSink.
func New(role Role, opts Options) *BaseAgent {
	allow := map[string]bool{}
	for _, a := range opts.Allowlist {
		allow[strings.ToLower(strings.TrimSpace(a))] = true
	}
	sink := opts.Audit
	if sink == nil {
		sink = audit.NopSink{}
	}
	poll := opts.Poll
	if poll <= 0 {
		poll = defaultPoll
	}
	var picker protocol.Picker
	if opts.Planner != nil {
		picker = opts.Planner
	}
	return &BaseAgent{
		alias:        opts.Alias,
		character:    opts.Character,
		role:         role,
		ep:           opts.Endpoint,
		reg:          opts.Registry,
		hist:         opts.History,
		sink:         sink,
		planner:      opts.Planner,
		router:       protocol.NewRouter(picker),
		autoAI:       opts.AutoAI,
		allow:        allow,
		poll:         poll,
		log:          logger.GetLogger().ForAgent(opts.Alias),
		lastSender:   map[string]string{},
		lastWireMode: map[string]string{},
		pending:      map[string]string{},
		stop:         make(chan struct{}),
	}
}

func (a *BaseAgent) Alias() string     { return a.alias }
func (a *BaseAgent) Character() string { return a.character }
func (a *BaseAgent) Registry() *registry.Registry {
	return a.reg
}

// Start registers the agent with the peer registry and launches the run
// loop. Roles implementing Starter get their goroutine here too.
func (a *BaseAgent) Start(ctx context.Context) {
	a.reg.Register(a.alias, registry.Descriptor{
		Alias:     a.alias,
		Endpoint:  a.ep.Addr(),
		Class:     "agent",
		Role:      a.role.Name(),
		Character: a.character,
		Protocols: []string{types.DefaultProtocol},
		Ontologies: []string{
			types.DefaultOntology, types.RegistryOntologyPrefix,
		},
	})
	if s, ok := a.role.(Starter); ok {
		s.Start(ctx, a)
	}
	a.wg.Add(1)
	go a.runLoop(ctx)
	a.log.Infof("agent started as %s (%s)", a.alias, a.role.Name())
}

// Stop ends the run loop and closes the endpoint.
func (a *BaseAgent) Stop() {
	close(a.stop)
	a.wg.Wait()
	a.ep.Close()
	a.log.Info("agent stopped")
}

func (a *BaseAgent) runLoop(ctx context.Context) {
	defer a.wg.Done()
	for {
		select {
		case <-a.stop:
			return
		case <-ctx.Done():
			return
		default:
		}
		if env, ok := a.ep.Receive(ctx, a.poll); ok {
			a.handleWire(ctx, env)
		}
		if t, ok := a.role.(Ticker); ok {
			t.Tick(ctx, a)
		}
	}
}

// handleWire runs the full per-message pipeline. Every early return is
// a deliberate drop.
func (a *BaseAgent) handleWire(ctx context.Context, env *types.WireEnvelope) {
	m, err := types.FromWire(env)
	if err != nil {
		a.log.Warnf("dropping unparsable envelope from %q: %v", env.Sender, err)
		return
	}
	from := strings.ToLower(strings.TrimSpace(env.Sender))

	if err := a.authorized(from); err != nil {
		a.log.Warnf("dropping envelope (cid=%s): %v", m.ConversationID, err)
		return
	}

	mode := WireModeClassic
	if json.Valid([]byte(env.Body)) {
		mode = WireModeJSON
	}
	a.mu.Lock()
	a.lastSender[m.ConversationID] = from
	a.lastWireMode[m.ConversationID] = mode
	a.mu.Unlock()

	a.hist.Record(a.alias, history.DirIn, m, from)
	a.sink.Write(audit.NewRecord(a.alias, history.DirIn, m, from))
	a.log.Infof("recv %s cid=%s from=%s: %s", m.Performative, m.ConversationID, from, m.PreviewText(80))

	if reply, ok := a.handleRegistryOps(ctx, m, from); ok {
		if reply != nil {
			a.SendACL(ctx, reply, from)
		}
		return
	}

	reply, handled, err := a.role.HandleACL(ctx, a, m, from)
	if err != nil {
		a.log.Error("role handler failed", err)
	}
	if !handled && reply == nil && a.autoAI && a.planner != nil {
		reply = a.respondWithPlanner(ctx, m)
	}
	if reply == nil {
		return
	}
	a.SendACL(ctx, reply, from)
}

// authorized is fail-open on an empty allow-list.
func (a *BaseAgent) authorized(from string) error {
	if len(a.allow) == 0 || a.allow[from] {
		return nil
	}
	return fmt.Errorf("%w: sender %q not in allow-list", types.ErrUnauthorized, from)
}

// respondWithPlanner is the decide/validate fallback. The planner owns
// validation and always hands back a sendable reply.
func (a *BaseAgent) respondWithPlanner(ctx context.Context, m *types.AclMessage) *types.AclMessage {
	excerpt := llm.RegistryExcerpt(a.reg.Snapshot())
	hist := a.hist.FormatForPrompt(a.alias, m.ConversationID, 0)
	return a.planner.RespondToACL(ctx, a.alias, a.character, excerpt, hist, m)
}

// handleRegistryOps services office.registry conversations. The boolean
// says whether the message was consumed.
func (a *BaseAgent) handleRegistryOps(ctx context.Context, m *types.AclMessage, from string) (*types.AclMessage, bool) {
	if !strings.HasPrefix(m.Ontology, types.RegistryOntologyPrefix) {
		return nil, false
	}
	if m.Performative != types.PerformativeRequest {
		return nil, true
	}
	action, _ := m.Payload["action"].(string)
	switch strings.ToUpper(strings.TrimSpace(action)) {
	case "REGISTER":
		d := registry.Descriptor{
			Alias:     stringField(m.Payload, "alias", from),
			Endpoint:  stringField(m.Payload, "endpoint", ""),
			Class:     stringField(m.Payload, "class", "agent"),
			Role:      stringField(m.Payload, "role", ""),
			Character: stringField(m.Payload, "character", ""),
		}
		a.reg.Register(d.Alias, d)
		reply, _ := protocol.MakeReply(m, string(types.PerformativeInform), protocol.BuildOptions{
			Payload: map[string]any{"text": "registered", "alias": d.Alias},
		})
		return reply, true
	case "LIST":
		reply, _ := protocol.MakeReply(m, string(types.PerformativeInform), protocol.BuildOptions{
			Payload: map[string]any{
				"agents": a.reg.Snapshot(),
				"ts":     time.Now().UTC().Format(time.RFC3339),
			},
		})
		return reply, true
	case "DISCOVER":
		need := stringField(m.Payload, "need", m.Text())
		alias := a.Route(ctx, need, from)
		payload := map[string]any{
			"alias": alias,
			"ts":    time.Now().UTC().Format(time.RFC3339),
		}
		if alias == "" {
			payload["text"] = "no matching agent"
		}
		reply, _ := protocol.MakeReply(m, string(types.PerformativeInform), protocol.BuildOptions{Payload: payload})
		return reply, true
	default:
		reply, _ := protocol.MakeReply(m, string(types.PerformativeRefuse), protocol.BuildOptions{
			Payload: map[string]any{"text": "unknown registry action", "action": action},
		})
		return reply, true
	}
}

func stringField(payload map[string]any, key, def string) string {
	if s, ok := payload[key].(string); ok && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s)
	}
	return def
}

// SendACL resolves the destination, wires the envelope and records the
// outbound side. Send errors are logged; there are no send retries.
func (a *BaseAgent) SendACL(ctx context.Context, m *types.AclMessage, to string) error {
	dest := a.reg.Resolve(to)
	env, err := m.ToWire(dest, a.alias)
	if err != nil {
		a.log.Error("cannot wire outbound message", err)
		return err
	}
	if err := a.ep.Send(ctx, dest, env); err != nil {
		a.log.Error("send failed", err)
		return err
	}
	a.hist.Record(a.alias, history.DirOut, m, to)
	a.sink.Write(audit.NewRecord(a.alias, history.DirOut, m, to))
	a.log.Infof("sent %s cid=%s to=%s", m.Performative, m.ConversationID, to)
	return nil
}

// SendClassic sends the legacy metadata+text shape, for peers that do
// not speak the JSON body.
func (a *BaseAgent) SendClassic(ctx context.Context, to, performative, conversationID, text string) error {
	perf, err := types.ParsePerformative(performative)
	if err != nil {
		return err
	}
	dest := a.reg.Resolve(to)
	env := types.ClassicWire(dest, a.alias, string(perf), conversationID, text, nil)
	if err := a.ep.Send(ctx, dest, env); err != nil {
		a.log.Error("send failed", err)
		return err
	}
	m, err := types.NewAclMessage(string(perf), conversationID, map[string]any{"text": text})
	if err == nil {
		a.hist.Record(a.alias, history.DirOut, m, to)
		a.sink.Write(audit.NewRecord(a.alias, history.DirOut, m, to))
	}
	return nil
}

// Route picks a peer for a need, excluding self and the given aliases.
func (a *BaseAgent) Route(ctx context.Context, need string, exclude ...string) string {
	snap := a.reg.Snapshot()
	for _, e := range exclude {
		delete(snap, e)
	}
	return a.router.Choose(ctx, need, snap, protocol.ChooseOptions{SelfAlias: a.alias})
}

// LastSender returns who last wrote in a conversation.
func (a *BaseAgent) LastSender(conversationID string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.lastSender[conversationID]
	return s, ok
}

// LastWireMode returns the wire shape the conversation last arrived in.
func (a *BaseAgent) LastWireMode(conversationID string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if mode, ok := a.lastWireMode[conversationID]; ok {
		return mode
	}
	return WireModeJSON
}

// SetPending records the initiator awaiting a terminal reply for cid.
func (a *BaseAgent) SetPending(conversationID, initiator string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending[conversationID] = initiator
}

// TakePending removes and returns the pending initiator, so the clear
// happens exactly once.
func (a *BaseAgent) TakePending(conversationID string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	initiator, ok := a.pending[conversationID]
	if ok {
		delete(a.pending, conversationID)
	}
	return initiator, ok
}

// PendingCount reports how many conversations await a terminal relay.
func (a *BaseAgent) PendingCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}
