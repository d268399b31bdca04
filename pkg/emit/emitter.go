// Copyright 2025 Certen Protocol

package emit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hoyack/governance-ledger/pkg/gevent"
	"github.com/hoyack/governance-ledger/pkg/hashchain"
	"github.com/hoyack/governance-ledger/pkg/ledger"
)

const correlationKey = "correlation_id"

// Emitter appends intent/commit/failure event triples to a ledger.Port,
// attaching the hash chain fields itself so callers only ever hand it
// unhashed events.
type Emitter struct {
	backend   ledger.Port
	registry  *InFlightRegistry
	algorithm string
}

// NewEmitter constructs an Emitter over backend using algorithm for hash
// chain attachment and registry to track in-flight intents. A nil
// registry is replaced with a fresh one.
func NewEmitter(backend ledger.Port, registry *InFlightRegistry, algorithm string) *Emitter {
	if registry == nil {
		registry = NewInFlightRegistry()
	}
	return &Emitter{backend: backend, registry: registry, algorithm: algorithm}
}

// Registry returns the emitter's in-flight registry.
func (e *Emitter) Registry() *InFlightRegistry { return e.registry }

func (e *Emitter) appendHashed(ctx context.Context, ev gevent.Event) (ledger.PersistedEvent, error) {
	latest, err := e.backend.Latest(ctx)
	prevHash := ""
	if err == nil {
		prevHash = latest.Event.Hash()
	} else if !errors.Is(err, ledger.ErrEmptyLedger) {
		return ledger.PersistedEvent{}, fmt.Errorf("emit: reading latest event: %w", err)
	}
	hashed, err := hashchain.AddHashToEvent(ev, prevHash, e.algorithm)
	if err != nil {
		return ledger.PersistedEvent{}, fmt.Errorf("emit: hashing event: %w", err)
	}
	return e.backend.Append(ctx, hashed)
}

func withCorrelation(payload map[string]interface{}, correlationID string) map[string]interface{} {
	out := make(map[string]interface{}, len(payload)+1)
	for k, v := range payload {
		out[k] = v
	}
	out[correlationKey] = correlationID
	return out
}

// EmitIntent appends a "<branch>.intent.emitted" event with a freshly
// generated correlation id and records it in the in-flight registry.
func (e *Emitter) EmitIntent(ctx context.Context, branch string, ts time.Time, actorID, traceID string, payload map[string]interface{}) (string, ledger.PersistedEvent, error) {
	correlationID := uuid.New().String()
	eventType := branch + ".intent.emitted"
	ev, err := gevent.Create(eventType, ts, actorID, traceID, withCorrelation(payload, correlationID))
	if err != nil {
		return "", ledger.PersistedEvent{}, fmt.Errorf("emit: building intent: %w", err)
	}
	persisted, err := e.appendHashed(ctx, ev)
	if err != nil {
		return "", ledger.PersistedEvent{}, err
	}
	e.registry.Record(PendingRecord{
		CorrelationID: correlationID,
		Branch:        branch,
		IntentEventID: persisted.Event.EventID().String(),
		IntentType:    eventType,
		StartedAt:     ts,
	})
	return correlationID, persisted, nil
}

// EmitCommit appends a "<branch>.commit.confirmed" event sharing
// correlationID and clears the registry entry.
func (e *Emitter) EmitCommit(ctx context.Context, branch, correlationID string, ts time.Time, actorID, traceID string, resultPayload map[string]interface{}) (ledger.PersistedEvent, error) {
	eventType := branch + ".commit.confirmed"
	ev, err := gevent.Create(eventType, ts, actorID, traceID, withCorrelation(resultPayload, correlationID))
	if err != nil {
		return ledger.PersistedEvent{}, fmt.Errorf("emit: building commit: %w", err)
	}
	persisted, err := e.appendHashed(ctx, ev)
	if err != nil {
		return ledger.PersistedEvent{}, err
	}
	e.registry.Resolve(correlationID)
	return persisted, nil
}

// EmitFailure appends a "<branch>.failure.recorded" event sharing
// correlationID, carrying failureReason and failureDetails, and clears
// the registry entry.
func (e *Emitter) EmitFailure(ctx context.Context, branch, correlationID string, ts time.Time, actorID, traceID, failureReason string, failureDetails map[string]interface{}) (ledger.PersistedEvent, error) {
	payload := withCorrelation(map[string]interface{}{
		"failure_reason":  failureReason,
		"failure_details": failureDetails,
	}, correlationID)
	eventType := branch + ".failure.recorded"
	ev, err := gevent.Create(eventType, ts, actorID, traceID, payload)
	if err != nil {
		return ledger.PersistedEvent{}, fmt.Errorf("emit: building failure: %w", err)
	}
	persisted, err := e.appendHashed(ctx, ev)
	if err != nil {
		return ledger.PersistedEvent{}, err
	}
	e.registry.Resolve(correlationID)
	return persisted, nil
}
