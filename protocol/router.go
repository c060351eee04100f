package protocol

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/office-mas/office-multi-agent/logger"
	"github.com/office-mas/office-multi-agent/registry"
)

// Picker delegates the routing choice to an external reasoning call. The
// returned alias is only used when it is a member of the candidate set.
type Picker interface {
	PickAgent(ctx context.Context, need string, candidates map[string]registry.Descriptor) (string, error)
}

// Router picks the best-matching peer for a natural-language need. With no
// Picker configured (or when it fails) it falls back to a deterministic
// lexical-overlap heuristic.
type Router struct {
	picker Picker
	log    *logger.Logger
}

// NewRouter creates a capability router. picker may be nil.
func NewRouter(picker Picker) *Router {
	return &Router{picker: picker, log: logger.GetLogger().WithField("component", "router")}
}

// ChooseOptions narrows the candidate set.
type ChooseOptions struct {
	SelfAlias   string   // excluded unless IncludeSelf
	IncludeSelf bool
	Allowed     []string // when non-empty, intersect with this allow-list
}

// Choose returns the alias of the best-matching peer, or "" when the
// candidate set is empty.
func (r *Router) Choose(ctx context.Context, need string, snapshot map[string]registry.Descriptor, opts ChooseOptions) string {
	candidates := make(map[string]registry.Descriptor, len(snapshot))
	allowed := map[string]bool{}
	for _, a := range opts.Allowed {
		allowed[a] = true
	}
	for alias, d := range snapshot {
		if !opts.IncludeSelf && alias == opts.SelfAlias {
			continue
		}
		if len(allowed) > 0 && !allowed[alias] {
			continue
		}
		candidates[alias] = d
	}
	if len(candidates) == 0 {
		return ""
	}

	if r.picker != nil {
		if choice, err := r.picker.PickAgent(ctx, need, candidates); err == nil {
			if _, ok := candidates[choice]; ok {
				return choice
			}
		} else {
			r.log.Debugf("picker failed, heuristic fallback: %v", err)
		}
	}

	return chooseByOverlap(need, candidates)
}

var tokenRe = regexp.MustCompile(`[a-z0-9]{3,}`)

func tokens(s string) map[string]bool {
	out := map[string]bool{}
	for _, t := range tokenRe.FindAllString(strings.ToLower(s), -1) {
		out[t] = true
	}
	return out
}

// ScoreOverlap counts shared lowercase alphanumeric tokens of length >= 3
// between need and persona. Pure and total so routing stays reproducible.
func ScoreOverlap(need, persona string) int {
	a, b := tokens(need), tokens(persona)
	n := 0
	for t := range a {
		if b[t] {
			n++
		}
	}
	return n
}

// chooseByOverlap scores each candidate's character plus role tag and picks
// the highest score, breaking ties by lexically smallest alias.
func chooseByOverlap(need string, candidates map[string]registry.Descriptor) string {
	type scored struct {
		alias string
		score int
	}
	rows := make([]scored, 0, len(candidates))
	for alias, d := range candidates {
		rows = append(rows, scored{alias, ScoreOverlap(need, d.Character+" "+d.Role)})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].score != rows[j].score {
			return rows[i].score > rows[j].score
		}
		return rows[i].alias < rows[j].alias
	})
	return rows[0].alias
}
