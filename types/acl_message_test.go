package types

import (
	"errors"
	"testing"
)

func TestParsePerformative(t *testing.T) {
	cases := []struct {
		raw  string
		want Performative
		ok   bool
	}{
		{"REQUEST", PerformativeRequest, true},
		{"request", PerformativeRequest, true},
		{"  Agree ", PerformativeAgree, true},
		{"inform", PerformativeInform, true},
		{"PROPOSE", "", false},
		{"", "", false},
		{"QUERY-REF", "", false},
	}
	for _, c := range cases {
		got, err := ParsePerformative(c.raw)
		if c.ok && err != nil {
			t.Errorf("ParsePerformative(%q): unexpected error %v", c.raw, err)
		}
		if !c.ok && !errors.Is(err, ErrUnsupportedPerformative) {
			t.Errorf("ParsePerformative(%q): want ErrUnsupportedPerformative, got %v", c.raw, err)
		}
		if got != c.want {
			t.Errorf("ParsePerformative(%q) = %q, want %q", c.raw, got, c.want)
		}
	}
}

func TestNewAclMessageRejectsUnknownPerformative(t *testing.T) {
	if _, err := NewAclMessage("PROPOSE", "c-1", nil); !errors.Is(err, ErrUnsupportedPerformative) {
		t.Fatalf("want ErrUnsupportedPerformative, got %v", err)
	}
}

func TestNewAclMessageRequiresConversationID(t *testing.T) {
	if _, err := NewAclMessage("REQUEST", "  ", nil); !errors.Is(err, ErrMissingConversationID) {
		t.Fatalf("want ErrMissingConversationID, got %v", err)
	}
}

func TestNormalizeFillsDefaults(t *testing.T) {
	m, err := NewAclMessage("request", "c-1", nil)
	if err != nil {
		t.Fatalf("NewAclMessage: %v", err)
	}
	if m.Performative != PerformativeRequest {
		t.Errorf("performative = %q, want REQUEST", m.Performative)
	}
	if m.Protocol != DefaultProtocol {
		t.Errorf("protocol = %q, want %q", m.Protocol, DefaultProtocol)
	}
	if m.Ontology != DefaultOntology {
		t.Errorf("ontology = %q, want %q", m.Ontology, DefaultOntology)
	}
	if m.Language != DefaultLanguage {
		t.Errorf("language = %q, want %q", m.Language, DefaultLanguage)
	}
	if m.Payload == nil {
		t.Error("payload must never stay nil")
	}
}

func TestBodyRoundTrip(t *testing.T) {
	m, err := NewAclMessage("INFORM", "c-42", map[string]any{"text": "gotowe", "quantity": 6})
	if err != nil {
		t.Fatalf("NewAclMessage: %v", err)
	}
	m.ReplyBy = "2026-01-02T15:04:05Z"

	data, err := m.MarshalBody()
	if err != nil {
		t.Fatalf("MarshalBody: %v", err)
	}
	back, err := UnmarshalBody(data)
	if err != nil {
		t.Fatalf("UnmarshalBody: %v", err)
	}
	if back.Performative != m.Performative || back.ConversationID != m.ConversationID {
		t.Errorf("round trip changed identity: %+v", back)
	}
	if back.ReplyBy != m.ReplyBy {
		t.Errorf("reply_by = %q, want %q", back.ReplyBy, m.ReplyBy)
	}
	if back.Text() != "gotowe" {
		t.Errorf("text = %q, want gotowe", back.Text())
	}
}

func TestUnmarshalBodyRejectsGarbage(t *testing.T) {
	if _, err := UnmarshalBody([]byte("not json")); !errors.Is(err, ErrParse) {
		t.Fatalf("want ErrParse, got %v", err)
	}
}

func TestCloneDoesNotSharePayload(t *testing.T) {
	m, _ := NewAclMessage("REQUEST", "c-1", map[string]any{"text": "a"})
	cp := m.Clone()
	cp.Payload["text"] = "b"
	if m.Text() != "a" {
		t.Fatalf("clone mutated the original payload")
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := map[Performative]bool{
		PerformativeInform: true, PerformativeFailure: true, PerformativeRefuse: true,
		PerformativeRequest: false, PerformativeAgree: false, PerformativeCancel: false,
	}
	for p, want := range terminal {
		if got := p.IsTerminal(); got != want {
			t.Errorf("%s.IsTerminal() = %v, want %v", p, got, want)
		}
	}
}

func TestPreviewTextTruncates(t *testing.T) {
	m, _ := NewAclMessage("INFORM", "c-1", map[string]any{"text": "abcdefghij"})
	if got := m.PreviewText(4); got != "abcd…" {
		t.Errorf("PreviewText = %q", got)
	}
	if got := m.PreviewText(20); got != "abcdefghij" {
		t.Errorf("PreviewText = %q", got)
	}
}
