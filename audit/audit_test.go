package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/office-mas/office-multi-agent/history"
	"github.com/office-mas/office-multi-agent/types"
)

func TestNewRecordShape(t *testing.T) {
	m, _ := types.NewAclMessage("INFORM", "c-7", map[string]any{"text": "gotowe", "quantity": 6})
	m.ReplyBy = "2026-01-02T12:00:30Z"

	rec := NewRecord("provider", history.DirOut, m, "human")
	if rec.Agent != "provider" || rec.Peer != "human" || rec.Direction != "OUT" {
		t.Errorf("identity fields wrong: %+v", rec)
	}
	if rec.Performative != "INFORM" || rec.ConversationID != "c-7" {
		t.Errorf("envelope fields wrong: %+v", rec)
	}
	if rec.Protocol != types.DefaultProtocol || rec.Language != types.DefaultLanguage {
		t.Errorf("tags wrong: %+v", rec)
	}
	if rec.ReplyBy != m.ReplyBy || rec.Timestamp == 0 {
		t.Errorf("ts/reply_by wrong: %+v", rec)
	}
}

func TestFileSinkWritesOneLinePerRecord(t *testing.T) {
	dir := t.TempDir()
	sink := NewFileSink(dir)
	m, _ := types.NewAclMessage("REQUEST", "c-1", map[string]any{"text": "x"})

	sink.Write(NewRecord("a", history.DirIn, m, "b"))
	sink.Write(NewRecord("a", history.DirOut, m, "b"))

	matches, err := filepath.Glob(filepath.Join(dir, "audit-*-c-1.json"))
	if err != nil || len(matches) == 0 {
		t.Fatalf("no audit file written: %v %v", matches, err)
	}
	data, _ := os.ReadFile(matches[0])
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	for _, line := range lines {
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Errorf("line not independent JSON: %v", err)
		}
	}
}

func TestMultiSinkFansOut(t *testing.T) {
	var a, b countSink
	m, _ := types.NewAclMessage("INFORM", "c", nil)
	MultiSink{&a, &b}.Write(NewRecord("x", history.DirIn, m, "y"))
	if a.n != 1 || b.n != 1 {
		t.Errorf("fan out = %d, %d", a.n, b.n)
	}
}

type countSink struct{ n int }

func (c *countSink) Write(Record) { c.n++ }

func TestSanitize(t *testing.T) {
	if got := sanitize("ord-1a2b/../etc"); strings.ContainsAny(got, "/.") {
		t.Errorf("sanitize left path characters: %q", got)
	}
	if sanitize("") != "no-cid" {
		t.Error("empty id must map to no-cid")
	}
}

func TestRedact(t *testing.T) {
	in := map[string]any{
		"text":    "ok",
		"api_key": "sk-123",
		"nested":  map[string]any{"Authorization": "Bearer abc", "keep": 1},
		"list":    []any{map[string]any{"token": "t"}},
	}
	out := redact(in).(map[string]any)
	if out["api_key"] != "***" {
		t.Errorf("api_key not redacted: %v", out["api_key"])
	}
	nested := out["nested"].(map[string]any)
	if nested["Authorization"] != "***" || nested["keep"] != 1 {
		t.Errorf("nested redaction wrong: %v", nested)
	}
	item := out["list"].([]any)[0].(map[string]any)
	if item["token"] != "***" {
		t.Errorf("list redaction wrong: %v", item)
	}
	if in["api_key"] != "sk-123" {
		t.Error("redact must not mutate its input")
	}
}

func TestStageWriter(t *testing.T) {
	dir := t.TempDir()
	w := NewStageWriter(dir)
	w.Save("provider", "c-1", "prompt", map[string]any{"system": "s", "api_key": "secret"})

	matches, _ := filepath.Glob(filepath.Join(dir, "provider", "*-c-1-prompt.json"))
	if len(matches) != 1 {
		t.Fatalf("stage file not written: %v", matches)
	}
	data, _ := os.ReadFile(matches[0])
	if strings.Contains(string(data), "secret") {
		t.Error("secret leaked into stage dump")
	}

	// Disabled and nil writers are no-ops.
	NewStageWriter("").Save("a", "c", "s", nil)
	var nilWriter *StageWriter
	nilWriter.Save("a", "c", "s", nil)
}
