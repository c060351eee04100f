// Package history keeps a bounded sliding log of recent message traffic per
// owning key (agent alias), used to give the reasoning backend short-term
// memory and to answer "who said what" debugging questions.
package history

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/office-mas/office-multi-agent/types"
)

// Direction of an observed envelope relative to the owning agent.
type Direction string

const (
	DirIn  Direction = "IN"
	DirOut Direction = "OUT"
)

// DefaultLimit is the per-key ring capacity when none is configured.
const DefaultLimit = 20

const previewRunes = 120

// Entry is one immutable row: one observed envelope.
type Entry struct {
	Direction      Direction `json:"direction"`
	Peer           string    `json:"peer"`
	Performative   string    `json:"performative"`
	ConversationID string    `json:"conversation_id"`
	Preview        string    `json:"preview"`
	Timestamp      time.Time `json:"ts"`
}

// Store holds one fixed-capacity FIFO ring per key. Appends are atomic;
// concurrent pushes from multiple conversations sharing one agent are safe.
type Store struct {
	mu    sync.Mutex
	limit int
	rings map[string][]Entry
}

// NewStore creates a store with the given per-key capacity (<=0 means
// DefaultLimit).
func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Store{limit: limit, rings: make(map[string][]Entry)}
}

// Record appends an entry built from the envelope, evicting the oldest row
// once the ring is full.
func (s *Store) Record(key string, dir Direction, m *types.AclMessage, peer string) {
	s.Push(key, Entry{
		Direction:      dir,
		Peer:           peer,
		Performative:   string(m.Performative),
		ConversationID: m.ConversationID,
		Preview:        m.PreviewText(previewRunes),
		Timestamp:      time.Now().UTC(),
	})
}

// Push appends a raw entry.
func (s *Store) Push(key string, e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ring := append(s.rings[key], e)
	if len(ring) > s.limit {
		ring = ring[len(ring)-s.limit:]
	}
	s.rings[key] = ring
}

// Recent returns up to limit most recent entries, oldest-first to
// newest-last. limit <= 0 returns the whole ring.
func (s *Store) Recent(key string, limit int) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	ring := s.rings[key]
	if limit > 0 && len(ring) > limit {
		ring = ring[len(ring)-limit:]
	}
	out := make([]Entry, len(ring))
	copy(out, ring)
	return out
}

// RecentThread filters Recent by conversation id, preserving order.
func (s *Store) RecentThread(key, conversationID string, limit int) []Entry {
	s.mu.Lock()
	ring := s.rings[key]
	filtered := make([]Entry, 0, len(ring))
	for _, e := range ring {
		if e.ConversationID == conversationID {
			filtered = append(filtered, e)
		}
	}
	s.mu.Unlock()
	if limit > 0 && len(filtered) > limit {
		filtered = filtered[len(filtered)-limit:]
	}
	return filtered
}

// FormatForPrompt renders history rows as a JSON array for the reasoning
// prompt. conversationID == "" returns the whole ring.
func (s *Store) FormatForPrompt(key, conversationID string, limit int) string {
	var rows []Entry
	if conversationID != "" {
		rows = s.RecentThread(key, conversationID, limit)
	} else {
		rows = s.Recent(key, limit)
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(data)
}

// Clear drops one agent's ring.
func (s *Store) Clear(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rings, key)
}

// Stats reports entries per key and the configured limit.
func (s *Store) Stats() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[string]int, len(s.rings))
	for k, v := range s.rings {
		counts[k] = len(v)
	}
	return map[string]any{"agents": counts, "limit": s.limit}
}
