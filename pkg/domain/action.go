package domain

import (
	"time"
)

// Outcome describes how a dispatched action ended.
type Outcome string

const (
	OutcomeCommitted Outcome = "committed" // Ran to completion (possibly with zero commits)
	OutcomeFailed    Outcome = "failed"    // The action or one of its updaters failed
	OutcomeRejected  Outcome = "rejected"  // Never ran (e.g. provider closed)
)

// ActionRecord is the serializable description of one dispatch.
// It captures the tag of the dispatchable (name, args, pure flag) and what happened to it.
type ActionRecord struct {
	// Seq is the per-process sequence number assigned when the dispatchable was built.
	Seq uint64 `json:"seq"`

	// Action is the name given to the action definition.
	Action string `json:"action"`

	// Args holds the captured arguments. Always nil for pure actions.
	Args any `json:"args,omitempty"`

	// Pure is true for actions built with CreatePureAction.
	Pure bool `json:"pure,omitempty"`

	// StoreID identifies the provider that ran the action.
	StoreID string `json:"store_id,omitempty"`

	Outcome Outcome `json:"outcome,omitempty"`
	Commits int     `json:"commits"`
	Error   string  `json:"error,omitempty"`

	DispatchedAt time.Time     `json:"dispatched_at"`
	Duration     time.Duration `json:"duration"`
}
