// Package validators implements the write-time validation pipeline that
// runs before any event reaches a ledger backend: event type, actor,
// state transition, and hash chain checks, in that order.
package validators

import (
	"fmt"

	"github.com/google/uuid"
)

// UnknownEventTypeError is returned when strict-mode event type
// validation rejects an event type not in the registry.
type UnknownEventTypeError struct {
	EventID    uuid.UUID
	EventType  string
	Suggestion string
}

func (e *UnknownEventTypeError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("unknown event type %q for event %s (did you mean %q?)", e.EventType, e.EventID, e.Suggestion)
	}
	return fmt.Sprintf("unknown event type %q for event %s", e.EventType, e.EventID)
}

// UnknownActorError is returned when an event's actor is not registered.
type UnknownActorError struct {
	EventID uuid.UUID
	ActorID string
}

func (e *UnknownActorError) Error() string {
	return fmt.Sprintf("unknown actor %q for event %s", e.ActorID, e.EventID)
}

// IllegalStateTransitionError is returned when an event's implied state
// transition is not permitted by the aggregate's state machine.
type IllegalStateTransitionError struct {
	EventID        uuid.UUID
	AggregateType  string
	AggregateID    string
	CurrentState   string
	AttemptedState string
	AllowedStates  []string
}

func (e *IllegalStateTransitionError) Error() string {
	return fmt.Sprintf("illegal state transition for %s:%s (event %s): cannot go from %q to %q, allowed: %v",
		e.AggregateType, e.AggregateID, e.EventID, e.CurrentState, e.AttemptedState, e.AllowedStates)
}

// HashChainBreakError is returned when an event fails to correctly link
// to the hash chain, either via a mismatched prev_hash or a self-hash that
// does not match the event's own content.
type HashChainBreakError struct {
	EventID         uuid.UUID
	ExpectedHash    string
	ActualHash      string
	LatestSequence  uint64
	Reason          string
}

func (e *HashChainBreakError) Error() string {
	return fmt.Sprintf("hash chain break for event %s after sequence %d: %s (expected %q, got %q)",
		e.EventID, e.LatestSequence, e.Reason, e.ExpectedHash, e.ActualHash)
}
