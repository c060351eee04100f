package agent

import (
	"context"

	"github.com/office-mas/office-multi-agent/audit"
	"github.com/office-mas/office-multi-agent/history"
	"github.com/office-mas/office-multi-agent/types"
)

// ReporterRole is a passive observer. Every inbound envelope is
// persisted through its own audit sink, so requester summaries survive
// the process.
type ReporterRole struct {
	Sink audit.Sink
}

func (r *ReporterRole) Name() string { return "reporter" }

func (r *ReporterRole) HandleACL(ctx context.Context, a *BaseAgent, incoming *types.AclMessage, from string) (*types.AclMessage, bool, error) {
	if r.Sink != nil {
		r.Sink.Write(audit.NewRecord(a.Alias(), history.DirIn, incoming, from))
	}
	return nil, true, nil
}
