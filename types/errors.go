package types

import "errors"

// Engine error taxonomy. The pipeline maps each of these to a fixed
// behavior: drop, downgrade to REFUSE, or fall back to a default plan.
var (
	// ErrParse marks an inbound envelope that could not be decoded.
	ErrParse = errors.New("acl: parse error")

	// ErrUnsupportedPerformative rejects construction with a tag outside
	// the allowed set.
	ErrUnsupportedPerformative = errors.New("acl: unsupported performative")

	// ErrMissingConversationID rejects envelopes without a conversation id.
	ErrMissingConversationID = errors.New("acl: conversation_id is required")

	// ErrUnauthorized marks a sender rejected by the allow-list policy.
	ErrUnauthorized = errors.New("acl: unauthorized sender")

	// ErrInvalidTransition marks a candidate reply violating the FIPA
	// transition table relative to the incoming performative.
	ErrInvalidTransition = errors.New("acl: invalid performative transition")

	// ErrBackendUnavailable marks a reasoning backend failure or timeout.
	ErrBackendUnavailable = errors.New("llm: reasoning backend unavailable")

	// ErrNoCandidate is returned by the capability router when the
	// candidate set is empty.
	ErrNoCandidate = errors.New("router: no candidate peer")
)
