// Package registry implements the process-wide peer directory. It is a
// best-effort, eventually-consistent catalogue: entries are overwritten on
// re-registration and never purged.
package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/office-mas/office-multi-agent/logger"
)

// Descriptor describes one registered peer.
type Descriptor struct {
	Alias        string   `json:"alias"`
	Endpoint     string   `json:"endpoint"`
	Class        string   `json:"class,omitempty"`
	Role         string   `json:"role"`
	Character    string   `json:"character"`
	Protocols    []string `json:"protocols,omitempty"`
	Ontologies   []string `json:"ontologies,omitempty"`
	RegisteredAt int64    `json:"ts"`
}

// Registry is shared mutable state scoped to one running process, injected
// into every agent instance. Writes hold a single lock; reads hand out
// defensive copies.
type Registry struct {
	mu       sync.RWMutex
	peers    map[string]Descriptor
	dumpPath string
	log      *logger.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithDumpPath enables a best-effort JSON snapshot dump after each write,
// for external inspection only.
func WithDumpPath(path string) Option {
	return func(r *Registry) { r.dumpPath = path }
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		peers: make(map[string]Descriptor),
		log:   logger.GetLogger().WithField("component", "registry"),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Register inserts or overwrites a peer descriptor (last write wins). Safe
// to call concurrently from many owners.
func (r *Registry) Register(alias string, d Descriptor) {
	d.Alias = alias
	if d.RegisteredAt == 0 {
		d.RegisteredAt = time.Now().Unix()
	}
	if d.Role == "" {
		d.Role = "generic"
	}
	r.mu.Lock()
	r.peers[alias] = d
	snapshot := r.copyLocked()
	r.mu.Unlock()

	r.dump(snapshot)
}

// Snapshot returns a point-in-time copy safe to hand to callers.
func (r *Registry) Snapshot() map[string]Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.copyLocked()
}

func (r *Registry) copyLocked() map[string]Descriptor {
	out := make(map[string]Descriptor, len(r.peers))
	for k, v := range r.peers {
		out[k] = v
	}
	return out
}

// Lookup returns the descriptor for an alias.
func (r *Registry) Lookup(alias string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.peers[alias]
	return d, ok
}

// Aliases returns all registered aliases in lexical order.
func (r *Registry) Aliases() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.peers))
	for k := range r.peers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// LooksLikeEndpoint reports whether s already carries an address separator
// and should bypass alias resolution.
func LooksLikeEndpoint(s string) bool {
	return strings.Contains(s, "@") || strings.Contains(s, "://")
}

// Resolve maps an alias to an endpoint address:
//   - anything that already looks like a full endpoint passes through,
//   - a registered alias resolves to its endpoint,
//   - otherwise the ENDPOINT_<ALIAS> environment hint is consulted,
//   - failing all of that the input is returned unchanged and the transport
//     reports its own delivery failure.
func (r *Registry) Resolve(aliasOrEndpoint string) string {
	if LooksLikeEndpoint(aliasOrEndpoint) {
		return aliasOrEndpoint
	}
	if d, ok := r.Lookup(aliasOrEndpoint); ok && d.Endpoint != "" {
		return d.Endpoint
	}
	if hint := os.Getenv("ENDPOINT_" + strings.ToUpper(aliasOrEndpoint)); hint != "" {
		return hint
	}
	return aliasOrEndpoint
}

// dump writes the snapshot to dumpPath. Failures are logged and ignored:
// the file is a debugging aid, not part of the registry contract.
func (r *Registry) dump(snapshot map[string]Descriptor) {
	if r.dumpPath == "" {
		return
	}
	if dir := filepath.Dir(r.dumpPath); dir != "." {
		_ = os.MkdirAll(dir, 0o755)
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return
	}
	if err := os.WriteFile(r.dumpPath, data, 0o644); err != nil {
		r.log.Debugf("registry dump failed: %v", err)
	}
}
