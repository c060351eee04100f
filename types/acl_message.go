package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Default envelope tags. They are carried through a conversation unchanged
// unless a reply explicitly overrides them.
const (
	DefaultProtocol = "fipa-request"
	DefaultOntology = "office.demo"
	DefaultLanguage = "json"

	// RegistryOntologyPrefix marks envelopes addressed to the registry
	// discovery protocol (payload action LIST/DISCOVER).
	RegistryOntologyPrefix = "office.registry"
)

// Performative is the FIPA-ACL speech-act tag of an envelope.
type Performative string

const (
	PerformativeRequest Performative = "REQUEST"
	PerformativeAgree   Performative = "AGREE"
	PerformativeRefuse  Performative = "REFUSE"
	PerformativeInform  Performative = "INFORM"
	PerformativeFailure Performative = "FAILURE"
	PerformativeCancel  Performative = "CANCEL"
)

// AllowedPerformatives lists the performative subset this engine speaks.
var AllowedPerformatives = map[Performative]bool{
	PerformativeRequest: true,
	PerformativeAgree:   true,
	PerformativeRefuse:  true,
	PerformativeInform:  true,
	PerformativeFailure: true,
	PerformativeCancel:  true,
}

// ParsePerformative normalizes a raw tag to uppercase and rejects anything
// outside the allowed set.
func ParsePerformative(raw string) (Performative, error) {
	p := Performative(strings.ToUpper(strings.TrimSpace(raw)))
	if !AllowedPerformatives[p] {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedPerformative, raw)
	}
	return p, nil
}

// IsTerminal reports whether the performative closes a request conversation.
func (p Performative) IsTerminal() bool {
	return p == PerformativeInform || p == PerformativeFailure || p == PerformativeRefuse
}

// AclMessage is the canonical FIPA-ACL envelope exchanged between agents:
// consistent metadata (performative, protocol, conversation_id, ontology,
// language, reply_by) plus an open application payload.
type AclMessage struct {
	Performative   Performative   `json:"performative"`
	ConversationID string         `json:"conversation_id"`
	Protocol       string         `json:"protocol"`
	Ontology       string         `json:"ontology"`
	Language       string         `json:"language"`
	ReplyBy        string         `json:"reply_by,omitempty"`
	Sender         string         `json:"sender,omitempty"`
	Receiver       string         `json:"receiver,omitempty"`
	Payload        map[string]any `json:"payload"`
}

// NewAclMessage builds a validated envelope with default tags filled in.
func NewAclMessage(performative, conversationID string, payload map[string]any) (*AclMessage, error) {
	m := &AclMessage{
		Performative:   Performative(performative),
		ConversationID: conversationID,
		Payload:        payload,
	}
	if err := m.Normalize(); err != nil {
		return nil, err
	}
	return m, nil
}

// Normalize coerces the performative to uppercase, fills default tags and
// enforces the envelope invariants. Every envelope that leaves this package
// has an allowed performative and a non-empty conversation id.
func (m *AclMessage) Normalize() error {
	p, err := ParsePerformative(string(m.Performative))
	if err != nil {
		return err
	}
	m.Performative = p
	if strings.TrimSpace(m.ConversationID) == "" {
		return ErrMissingConversationID
	}
	if m.Protocol == "" {
		m.Protocol = DefaultProtocol
	}
	if m.Ontology == "" {
		m.Ontology = DefaultOntology
	}
	if m.Language == "" {
		m.Language = DefaultLanguage
	}
	if m.Payload == nil {
		m.Payload = map[string]any{}
	}
	return nil
}

// Text returns payload["text"] if present, else "".
func (m *AclMessage) Text() string {
	if m.Payload == nil {
		return ""
	}
	if s, ok := m.Payload["text"].(string); ok {
		return s
	}
	return ""
}

// PreviewText returns the payload text truncated to max runes, for context
// buffer rows and log lines.
func (m *AclMessage) PreviewText(max int) string {
	s := m.Text()
	if s == "" {
		if b, err := json.Marshal(m.Payload); err == nil {
			s = string(b)
		}
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}

// Clone returns a deep-enough copy: the payload map is copied so replies
// never mutate the incoming envelope.
func (m *AclMessage) Clone() *AclMessage {
	cp := *m
	cp.Payload = make(map[string]any, len(m.Payload))
	for k, v := range m.Payload {
		cp.Payload[k] = v
	}
	return &cp
}

// MarshalBody serializes the envelope to its JSON wire body.
func (m *AclMessage) MarshalBody() ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalBody parses and validates a JSON ACL body.
func UnmarshalBody(data []byte) (*AclMessage, error) {
	var m AclMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if err := m.Normalize(); err != nil {
		return nil, err
	}
	return &m, nil
}
