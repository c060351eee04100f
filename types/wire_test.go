package types

import (
	"encoding/json"
	"testing"
)

func TestToWireCarriesJSONBodyAndMetadata(t *testing.T) {
	m, _ := NewAclMessage("REQUEST", "c-1", map[string]any{"text": "poproszę 6 bułek"})
	env, err := m.ToWire("provider", "human")
	if err != nil {
		t.Fatalf("ToWire: %v", err)
	}
	if env.To != "provider" || env.Sender != "human" {
		t.Errorf("addressing wrong: %+v", env)
	}
	if !json.Valid([]byte(env.Body)) {
		t.Fatalf("body is not JSON: %q", env.Body)
	}
	if env.Metadata[MetaPerformative] != "REQUEST" || env.Metadata[MetaConversationID] != "c-1" {
		t.Errorf("metadata mirror wrong: %v", env.Metadata)
	}
}

func TestFromWirePrefersJSONBody(t *testing.T) {
	m, _ := NewAclMessage("AGREE", "c-2", map[string]any{"text": "ok"})
	env, _ := m.ToWire("human", "provider")
	// Conflicting metadata must lose to the body.
	env.Metadata[MetaConversationID] = "other"

	back, err := FromWire(env)
	if err != nil {
		t.Fatalf("FromWire: %v", err)
	}
	if back.ConversationID != "c-2" {
		t.Errorf("cid = %q, want c-2 from the JSON body", back.ConversationID)
	}
	if back.Sender != "provider" {
		t.Errorf("sender = %q, want provider", back.Sender)
	}
}

func TestFromWireLiftsClassicShape(t *testing.T) {
	env := ClassicWire("provider", "human", "request", "c-3", "dwa chleby", nil)
	m, err := FromWire(env)
	if err != nil {
		t.Fatalf("FromWire: %v", err)
	}
	if m.Performative != PerformativeRequest {
		t.Errorf("performative = %q", m.Performative)
	}
	if m.ConversationID != "c-3" {
		t.Errorf("cid = %q", m.ConversationID)
	}
	if m.Text() != "dwa chleby" {
		t.Errorf("text lift failed: %q", m.Text())
	}
}

func TestFromWireConversationIDSpellings(t *testing.T) {
	env := &WireEnvelope{
		To: "x", Sender: "y", Body: "hello",
		Metadata: map[string]string{
			MetaPerformative:       "INFORM",
			MetaConversationIDLegy: "legacy-id",
		},
	}
	m, err := FromWire(env)
	if err != nil {
		t.Fatalf("FromWire: %v", err)
	}
	if m.ConversationID != "legacy-id" {
		t.Errorf("cid = %q, want legacy-id", m.ConversationID)
	}

	// The underscore spelling wins when both are present.
	env.Metadata[MetaConversationID] = "canonical-id"
	m, err = FromWire(env)
	if err != nil {
		t.Fatalf("FromWire: %v", err)
	}
	if m.ConversationID != "canonical-id" {
		t.Errorf("cid = %q, want canonical-id", m.ConversationID)
	}
}

func TestFromWireRejectsUnusable(t *testing.T) {
	if _, err := FromWire(nil); err == nil {
		t.Error("nil envelope must fail")
	}
	env := &WireEnvelope{Body: "text without any metadata"}
	if _, err := FromWire(env); err == nil {
		t.Error("envelope with no performative must fail")
	}
}
