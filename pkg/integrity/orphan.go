// Copyright 2025 Certen Protocol

package integrity

import (
	"context"
	"fmt"
	"time"

	"github.com/hoyack/governance-ledger/pkg/gevent"
	"github.com/hoyack/governance-ledger/pkg/ledger"
)

const (
	intentSuffix   = "*.intent.emitted"
	commitSuffix   = "*.commit.confirmed"
	failureSuffix  = "*.failure.recorded"
	correlationKey = "correlation_id"
)

// DefaultOrphanTimeout is how long an intent may go without an outcome
// before it is reported as orphaned.
const DefaultOrphanTimeout = 5 * time.Minute

// Orphan is an intent event observed with no matching outcome inside the
// configured timeout.
type Orphan struct {
	IntentEventID     string
	CorrelationID     string
	AgeSeconds        float64
	OriginalEventType string
}

// Payload builds the ledger.integrity.orphaned_intent_detected payload for o.
func (o Orphan) Payload() map[string]interface{} {
	return map[string]interface{}{
		"intent_event_id":     o.IntentEventID,
		"correlation_id":      o.CorrelationID,
		"age_seconds":         o.AgeSeconds,
		"original_event_type": o.OriginalEventType,
	}
}

// OrphanDetector scans a ledger for two-phase intents lacking a matching
// commit or failure outcome.
type OrphanDetector struct {
	backend ledger.Port
	timeout time.Duration
}

// NewOrphanDetector constructs an OrphanDetector over backend. A zero
// timeout uses DefaultOrphanTimeout.
func NewOrphanDetector(backend ledger.Port, timeout time.Duration) *OrphanDetector {
	if timeout <= 0 {
		timeout = DefaultOrphanTimeout
	}
	return &OrphanDetector{backend: backend, timeout: timeout}
}

func correlationOf(event gevent.Event) (string, bool) {
	raw, ok := event.Payload()[correlationKey]
	if !ok {
		return "", false
	}
	id, ok := raw.(string)
	return id, ok
}

// Scan reads the full ledger and reports every intent older than the
// detector's timeout that has no matching commit or failure outcome. now
// is passed in rather than read from the clock so scans are deterministic
// and testable.
func (d *OrphanDetector) Scan(ctx context.Context, now time.Time) ([]Orphan, error) {
	intents, err := d.readAllMatching(ctx, intentSuffix)
	if err != nil {
		return nil, fmt.Errorf("integrity: reading intents: %w", err)
	}
	commits, err := d.readAllMatching(ctx, commitSuffix)
	if err != nil {
		return nil, fmt.Errorf("integrity: reading commits: %w", err)
	}
	failures, err := d.readAllMatching(ctx, failureSuffix)
	if err != nil {
		return nil, fmt.Errorf("integrity: reading failures: %w", err)
	}

	resolved := make(map[string]struct{}, len(commits)+len(failures))
	for _, outcome := range commits {
		if id, ok := correlationOf(outcome.Event); ok {
			resolved[id] = struct{}{}
		}
	}
	for _, outcome := range failures {
		if id, ok := correlationOf(outcome.Event); ok {
			resolved[id] = struct{}{}
		}
	}

	var orphans []Orphan
	for _, intent := range intents {
		id, ok := correlationOf(intent.Event)
		if !ok {
			continue
		}
		if _, done := resolved[id]; done {
			continue
		}
		age := now.Sub(intent.Event.Timestamp())
		if age < d.timeout {
			continue
		}
		orphans = append(orphans, Orphan{
			IntentEventID:     intent.Event.EventID().String(),
			CorrelationID:     id,
			AgeSeconds:        age.Seconds(),
			OriginalEventType: intent.Event.EventType(),
		})
	}
	return orphans, nil
}

func (d *OrphanDetector) readAllMatching(ctx context.Context, pattern string) ([]ledger.PersistedEvent, error) {
	const pageSize = 500
	var all []ledger.PersistedEvent
	offset := 0
	for {
		page, err := d.backend.Read(ctx, ledger.ReadOptions{EventType: pattern, Limit: pageSize, Offset: offset})
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
		offset += pageSize
	}
}

// IntentOutcomePair is the result of looking up one correlation id's
// intent/outcome state, the observability surface external consumers use
// to ask "is this still pending".
type IntentOutcomePair struct {
	Intent     *ledger.PersistedEvent
	Outcome    *ledger.PersistedEvent
	IsPending  bool
	AgeSeconds float64
}

// GetIntentOutcomePair finds the intent and, if present, outcome events
// sharing correlationID.
func (d *OrphanDetector) GetIntentOutcomePair(ctx context.Context, correlationID string, now time.Time) (*IntentOutcomePair, error) {
	intents, err := d.readAllMatching(ctx, intentSuffix)
	if err != nil {
		return nil, err
	}
	var intent *ledger.PersistedEvent
	for i, pe := range intents {
		if id, ok := correlationOf(pe.Event); ok && id == correlationID {
			intent = &intents[i]
			break
		}
	}
	if intent == nil {
		return nil, nil
	}

	for _, pattern := range []string{commitSuffix, failureSuffix} {
		outcomes, err := d.readAllMatching(ctx, pattern)
		if err != nil {
			return nil, err
		}
		for i, pe := range outcomes {
			if id, ok := correlationOf(pe.Event); ok && id == correlationID {
				return &IntentOutcomePair{Intent: intent, Outcome: &outcomes[i], IsPending: false}, nil
			}
		}
	}

	age := now.Sub(intent.Event.Timestamp())
	return &IntentOutcomePair{Intent: intent, IsPending: true, AgeSeconds: age.Seconds()}, nil
}
