package types

// Plan is an untrusted candidate reply produced by role logic or the
// reasoning backend. It is never sent as-is: the pipeline revalidates the
// performative against the allowed set and the transition rules before
// realizing it into an AclMessage.
type Plan struct {
	Performative string         `json:"performative"`
	Text         string         `json:"text,omitempty"`
	Payload      map[string]any `json:"payload,omitempty"`
	ReplyBy      string         `json:"reply_by,omitempty"`
	Ontology     string         `json:"ontology,omitempty"`
}

// MergedPayload returns the plan payload with Text folded into
// payload["text"] (existing keys win).
func (p *Plan) MergedPayload() map[string]any {
	out := make(map[string]any, len(p.Payload)+1)
	for k, v := range p.Payload {
		out[k] = v
	}
	if p.Text != "" {
		if _, ok := out["text"]; !ok {
			out["text"] = p.Text
		}
	}
	return out
}
