package protocol

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/office-mas/office-multi-agent/types"
)

func withFrozenNow(t *testing.T, now time.Time) {
	t.Helper()
	old := nowFunc
	nowFunc = func() time.Time { return now }
	t.Cleanup(func() { nowFunc = old })
}

func TestNewConversationIDShape(t *testing.T) {
	re := regexp.MustCompile(`^ord-[0-9a-f]{8}$`)
	id := NewConversationID("ord")
	if !re.MatchString(id) {
		t.Errorf("id %q does not match prefix-hex8", id)
	}
	if NewConversationID("ord") == id {
		t.Error("two ids must differ")
	}
	if got := NewConversationID(""); got[:5] != "conv-" {
		t.Errorf("empty prefix should default: %q", got)
	}
}

func TestTransitionTable(t *testing.T) {
	req := types.PerformativeRequest
	agr := types.PerformativeAgree
	ref := types.PerformativeRefuse
	inf := types.PerformativeInform
	fail := types.PerformativeFailure
	can := types.PerformativeCancel

	cases := []struct {
		in, out types.Performative
		want    bool
	}{
		{"", req, true},
		{"", inf, true},
		{"", can, true},
		{req, agr, true},
		{req, ref, true},
		{req, inf, false},
		{req, fail, false},
		{req, req, false},
		{req, can, false},
		{agr, inf, true},
		{agr, fail, true},
		{agr, agr, false},
		{agr, ref, false},
		{agr, req, false},
		{inf, req, true},
		{inf, inf, true},
		{ref, req, true},
		{fail, inf, true},
		{can, inf, true},
		{req, "PROPOSE", false},
		{"", "PROPOSE", false},
	}
	for _, c := range cases {
		if got := IsValidTransition(c.in, c.out); got != c.want {
			t.Errorf("IsValidTransition(%q, %q) = %v, want %v", c.in, c.out, got, c.want)
		}
	}
}

func TestEnsureReplyByDefaults(t *testing.T) {
	now := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	withFrozenNow(t, now)

	want := "2026-01-02T12:00:30Z"
	if got := EnsureReplyBy(""); got != want {
		t.Errorf("empty: got %q, want %q", got, want)
	}
	if got := EnsureReplyBy("not-a-time"); got != want {
		t.Errorf("malformed: got %q, want %q", got, want)
	}
}

func TestIsoIn(t *testing.T) {
	now := time.Date(2026, 1, 2, 12, 0, 0, 500*1000*1000, time.UTC)
	withFrozenNow(t, now)

	if got := IsoIn(time.Minute); got != "2026-01-02T12:01:00Z" {
		t.Errorf("got %q", got)
	}
	// Sub-second deadlines collapse to now; EnsureReplyBy pushes them out.
	if got := EnsureReplyBy(IsoIn(100 * time.Millisecond)); got != "2026-01-02T12:00:05Z" {
		t.Errorf("clamped: got %q", got)
	}
}

func TestEnsureReplyByClampsForward(t *testing.T) {
	now := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	withFrozenNow(t, now)

	// In the past: clamp to now+5s.
	if got := EnsureReplyBy("2026-01-02T11:59:00Z"); got != "2026-01-02T12:00:05Z" {
		t.Errorf("past value: got %q", got)
	}
	// Too close: same clamp.
	if got := EnsureReplyBy("2026-01-02T12:00:02Z"); got != "2026-01-02T12:00:05Z" {
		t.Errorf("near value: got %q", got)
	}
	// Far enough: kept, converted to UTC second precision.
	if got := EnsureReplyBy("2026-01-02T13:00:00+01:00"); got != "2026-01-02T12:00:00Z" {
		t.Errorf("tz conversion: got %q", got)
	}
}

func TestBuildMessageMergesText(t *testing.T) {
	m, err := BuildMessage("REQUEST", "c-1", BuildOptions{
		Text:    "zamówienie",
		Payload: map[string]any{"qty": 6},
	})
	if err != nil {
		t.Fatalf("BuildMessage: %v", err)
	}
	if m.Text() != "zamówienie" {
		t.Errorf("text = %q", m.Text())
	}
	if m.Payload["qty"] != 6 {
		t.Errorf("payload lost: %v", m.Payload)
	}

	// An existing text key is not clobbered.
	m, _ = BuildMessage("REQUEST", "c-2", BuildOptions{
		Text:    "ignored",
		Payload: map[string]any{"text": "kept"},
	})
	if m.Text() != "kept" {
		t.Errorf("text = %q, want kept", m.Text())
	}
}

func TestMakeReplyInheritsThread(t *testing.T) {
	incoming, _ := BuildMessage("REQUEST", "c-9", BuildOptions{
		Ontology: "office.orders",
		Text:     "x",
	})
	reply, err := MakeReply(incoming, "agree", BuildOptions{Text: "ok"})
	if err != nil {
		t.Fatalf("MakeReply: %v", err)
	}
	if reply.ConversationID != "c-9" || reply.Ontology != "office.orders" || reply.Protocol != incoming.Protocol {
		t.Errorf("thread fields not inherited: %+v", reply)
	}
	if reply.Performative != types.PerformativeAgree {
		t.Errorf("performative = %q", reply.Performative)
	}
}

func TestStrictReplyEnforcesTransitions(t *testing.T) {
	incoming, _ := BuildMessage("REQUEST", "c-1", BuildOptions{})
	if _, err := StrictReply(incoming, "INFORM", BuildOptions{}); !errors.Is(err, types.ErrInvalidTransition) {
		t.Fatalf("want ErrInvalidTransition, got %v", err)
	}
	if _, err := StrictReply(incoming, "AGREE", BuildOptions{}); err != nil {
		t.Fatalf("AGREE must pass: %v", err)
	}
}

func TestRealize(t *testing.T) {
	incoming, _ := BuildMessage("AGREE", "c-1", BuildOptions{})
	plan := &types.Plan{Performative: "INFORM", Text: "gotowe", Payload: map[string]any{"quantity": 6}}
	m, err := Realize(plan, incoming)
	if err != nil {
		t.Fatalf("Realize: %v", err)
	}
	if m.ConversationID != "c-1" || m.Performative != types.PerformativeInform {
		t.Errorf("realized wrong: %+v", m)
	}
	if m.ReplyBy == "" {
		t.Error("reply_by must be ensured")
	}
	if m.Payload["quantity"] != 6 || m.Text() != "gotowe" {
		t.Errorf("payload merge wrong: %v", m.Payload)
	}

	bad := &types.Plan{Performative: "REQUEST"}
	if _, err := Realize(bad, incoming); !errors.Is(err, types.ErrInvalidTransition) {
		t.Fatalf("want ErrInvalidTransition, got %v", err)
	}
}
