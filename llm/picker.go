package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/office-mas/office-multi-agent/registry"
	"github.com/office-mas/office-multi-agent/types"
)

// PickAgent asks the backend to name one alias from the candidate set.
// The answer is trusted only if it is a member of that set; anything
// else is an error, so the caller falls back to token-overlap scoring.
func (p *Planner) PickAgent(ctx context.Context, need string, candidates map[string]registry.Descriptor) (string, error) {
	if p.client == nil {
		return "", ErrLLMDisabled
	}
	if len(candidates) == 0 {
		return "", types.ErrNoCandidate
	}

	system := "You pick exactly one agent alias for a task. Answer with the alias only, nothing else."
	user := fmt.Sprintf("TASK:\n%s\n\nCANDIDATES (alias -> character):\n%s\n\nAnswer with one alias from the candidate list.", need, RegistryExcerpt(candidates))

	raw, err := p.call(ctx, system, user)
	if err != nil {
		return "", err
	}
	alias := cleanAlias(raw)
	if _, ok := candidates[alias]; !ok {
		return "", fmt.Errorf("%w: backend proposed unknown alias %q", types.ErrNoCandidate, alias)
	}
	return alias, nil
}

// cleanAlias tolerates the usual model decorations around a bare alias:
// quotes, code fences, a trailing period, or a one-key JSON object.
func cleanAlias(raw string) string {
	s := stripFences(raw)
	if strings.HasPrefix(s, "{") {
		var obj map[string]string
		if err := json.Unmarshal([]byte(s), &obj); err == nil {
			for _, v := range obj {
				s = v
				break
			}
		}
	}
	s = strings.Trim(s, "\"'` .\n\t")
	if i := strings.IndexAny(s, " \n"); i > 0 {
		s = s[:i]
	}
	return strings.ToLower(s)
}
