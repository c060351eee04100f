package types

import (
	"strings"
)

// Metadata keys recognized on the legacy wire shape.
const (
	MetaPerformative       = "performative"
	MetaProtocol           = "protocol"
	MetaConversationID     = "conversation_id"
	MetaConversationIDLegy = "conversation-id"
	MetaOntology           = "ontology"
	MetaLanguage           = "language"
	MetaReplyBy            = "reply_by"
)

// WireEnvelope is what the transport boundary actually carries: an opaque
// destination, a serialized body and an optional flat metadata map. Delivery
// is at-most-once with no ordering guarantee across conversations.
type WireEnvelope struct {
	To       string            `json:"to"`
	Sender   string            `json:"sender,omitempty"`
	Body     string            `json:"body"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ToWire serializes the envelope into the self-describing wire shape: JSON
// ACL body plus FIPA metadata mirrored into the flat map.
func (m *AclMessage) ToWire(to, sender string) (*WireEnvelope, error) {
	if err := m.Normalize(); err != nil {
		return nil, err
	}
	body, err := m.MarshalBody()
	if err != nil {
		return nil, err
	}
	md := map[string]string{
		MetaPerformative:   string(m.Performative),
		MetaProtocol:       m.Protocol,
		MetaConversationID: m.ConversationID,
		MetaOntology:       m.Ontology,
		MetaLanguage:       m.Language,
	}
	if m.ReplyBy != "" {
		md[MetaReplyBy] = m.ReplyBy
	}
	return &WireEnvelope{To: to, Sender: sender, Body: string(body), Metadata: md}, nil
}

// ClassicWire builds the legacy wire shape: free-text body with FIPA tags
// carried only in metadata (language defaults to "text").
func ClassicWire(to, sender, performative, conversationID, text string, md map[string]string) *WireEnvelope {
	meta := map[string]string{
		MetaPerformative:   strings.ToUpper(performative),
		MetaProtocol:       DefaultProtocol,
		MetaConversationID: conversationID,
		MetaOntology:       DefaultOntology,
		MetaLanguage:       "text",
	}
	for k, v := range md {
		meta[k] = v
	}
	return &WireEnvelope{To: to, Sender: sender, Body: text, Metadata: meta}
}

// FromWire reconstructs an AclMessage from a raw wire envelope.
// Priority:
//  1. body as a JSON ACL document,
//  2. legacy metadata plus free-text body lifted into payload["text"].
//
// Both conversation-id spellings are accepted; the underscore form wins.
func FromWire(env *WireEnvelope) (*AclMessage, error) {
	if env == nil {
		return nil, ErrParse
	}

	body := strings.TrimSpace(env.Body)
	if strings.HasPrefix(body, "{") || strings.HasPrefix(body, "[") {
		if m, err := UnmarshalBody([]byte(body)); err == nil {
			if m.Sender == "" {
				m.Sender = env.Sender
			}
			return m, nil
		}
	}

	md := env.Metadata
	if md == nil {
		md = map[string]string{}
	}
	conv := md[MetaConversationID]
	if conv == "" {
		conv = md[MetaConversationIDLegy]
	}

	m := &AclMessage{
		Performative:   Performative(md[MetaPerformative]),
		ConversationID: conv,
		Protocol:       md[MetaProtocol],
		Ontology:       md[MetaOntology],
		Language:       md[MetaLanguage],
		ReplyBy:        md[MetaReplyBy],
		Sender:         env.Sender,
		Payload:        map[string]any{},
	}
	if env.Body != "" {
		m.Payload["text"] = env.Body
	}
	if err := m.Normalize(); err != nil {
		return nil, err
	}
	return m, nil
}
