// Package audit writes independent structured records of every inbound and
// outbound envelope, plus per-stage dumps of reasoning-backend exchanges.
// Destinations are external concerns: files, streams, or nothing at all.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/office-mas/office-multi-agent/history"
	"github.com/office-mas/office-multi-agent/logger"
	"github.com/office-mas/office-multi-agent/types"
)

// Record is the shape every sink must accept: one record per message.
type Record struct {
	Timestamp      int64          `json:"ts"`
	Direction      string         `json:"direction"`
	Agent          string         `json:"agent"`
	Peer           string         `json:"peer"`
	Performative   string         `json:"performative"`
	ConversationID string         `json:"conversation_id"`
	Protocol       string         `json:"protocol"`
	Ontology       string         `json:"ontology"`
	Language       string         `json:"language"`
	ReplyBy        string         `json:"reply_by,omitempty"`
	Payload        map[string]any `json:"payload"`
}

// NewRecord builds a record from an observed envelope.
func NewRecord(agent string, dir history.Direction, m *types.AclMessage, peer string) Record {
	return Record{
		Timestamp:      time.Now().Unix(),
		Direction:      string(dir),
		Agent:          agent,
		Peer:           peer,
		Performative:   string(m.Performative),
		ConversationID: m.ConversationID,
		Protocol:       m.Protocol,
		Ontology:       m.Ontology,
		Language:       m.Language,
		ReplyBy:        m.ReplyBy,
		Payload:        m.Payload,
	}
}

// Sink accepts audit records. Implementations must tolerate concurrent use.
type Sink interface {
	Write(rec Record)
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) Write(Record) {}

// FileSink appends one JSON line per record to per-conversation files under
// an output directory. Disk errors are logged and swallowed: auditing never
// fails the pipeline.
type FileSink struct {
	mu  sync.Mutex
	dir string
	log *logger.Logger
}

// NewFileSink creates the output directory eagerly so the first record does
// not race a missing path.
func NewFileSink(dir string) *FileSink {
	_ = os.MkdirAll(dir, 0o755)
	return &FileSink{dir: dir, log: logger.GetLogger().WithField("component", "audit")}
}

func (s *FileSink) Write(rec Record) {
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	name := fmt.Sprintf("audit-%d-%s.json", rec.Timestamp, sanitize(rec.ConversationID))
	path := filepath.Join(s.dir, name)

	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		s.log.Debugf("audit write failed: %v", err)
		return
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		s.log.Debugf("audit write failed: %v", err)
	}
}

// MultiSink fans records out to several sinks.
type MultiSink []Sink

func (m MultiSink) Write(rec Record) {
	for _, s := range m {
		s.Write(rec)
	}
}

func sanitize(s string) string {
	if s == "" {
		return "no-cid"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}

// --- Reasoning-call stage dumps ---

var redactKeys = map[string]bool{
	"authorization": true, "api_key": true, "apikey": true,
	"token": true, "password": true, "secret": true, "bearer": true,
}

func redact(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if redactKeys[strings.ToLower(k)] {
				out[k] = "***"
			} else {
				out[k] = redact(val)
			}
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = redact(val)
		}
		return out
	default:
		return v
	}
}

// StageWriter dumps a pretty JSON file per reasoning stage
// (incoming/prompt/raw_response/validated/error) under <dir>/<agent>/.
// Secrets are redacted; disk trouble is swallowed.
type StageWriter struct {
	dir string
}

// NewStageWriter returns a writer rooted at dir; an empty dir disables it.
func NewStageWriter(dir string) *StageWriter {
	return &StageWriter{dir: dir}
}

// Save writes one stage file. A nil or disabled writer is a no-op.
func (w *StageWriter) Save(agent, conversationID, stage string, payload map[string]any) {
	if w == nil || w.dir == "" {
		return
	}
	base := filepath.Join(w.dir, sanitize(agent))
	if err := os.MkdirAll(base, 0o755); err != nil {
		return
	}
	data, err := json.MarshalIndent(redact(payload), "", "  ")
	if err != nil {
		return
	}
	name := fmt.Sprintf("%d-%s-%s.json", time.Now().Unix(), sanitize(conversationID), sanitize(stage))
	_ = os.WriteFile(filepath.Join(base, name), data, 0o644)
}
