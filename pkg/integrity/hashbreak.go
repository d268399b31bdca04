// Copyright 2025 Certen Protocol
//
// Package integrity detects two distinct kinds of ledger damage: broken
// hash chains (self-hash or link mismatches, sequence gaps) and orphaned
// two-phase intents (an intent event with no outcome inside its timeout).
// The hash-break functions inspect the events callers hand them; the
// orphan detector reads the ledger it was constructed over. Both only
// report findings; publishing the resulting synthetic events is left to
// the caller.
package integrity

import (
	"fmt"
	"time"

	"github.com/hoyack/governance-ledger/pkg/gevent"
	"github.com/hoyack/governance-ledger/pkg/hashchain"
	"github.com/hoyack/governance-ledger/pkg/ledger"
)

// BreakCategory classifies a detected hash chain defect.
type BreakCategory string

const (
	HashMismatch BreakCategory = "HASH_MISMATCH"
	ChainBreak   BreakCategory = "CHAIN_BREAK"
	SequenceGap  BreakCategory = "SEQUENCE_GAP"
)

// Break is one detected defect, carrying enough detail to build the
// ledger.integrity.hash_break_detected payload.
type Break struct {
	Category     BreakCategory
	Sequence     uint64
	EventID      string
	ExpectedHash string
	ActualHash   string
	Detail       string
}

// DetectEventBreak inspects a single candidate against its predecessor
// (nil for the genesis position) and reports HASH_MISMATCH and
// CHAIN_BREAK defects. It never inspects sequence numbers; that is
// DetectSequenceGaps' job, since a single event carries no information
// about what came between it and its predecessor.
func DetectEventBreak(candidate ledger.PersistedEvent, previous *ledger.PersistedEvent) []Break {
	var prevEvent *gevent.Event
	if previous != nil {
		prevEvent = &previous.Event
	}

	result := hashchain.VerifyEventFull(candidate.Event, prevEvent)
	if result.Valid {
		return nil
	}

	var breaks []Break
	if !result.EventHashValid {
		breaks = append(breaks, Break{
			Category: HashMismatch, Sequence: candidate.Sequence, EventID: candidate.Event.EventID().String(),
			ExpectedHash: result.ExpectedHash, ActualHash: result.ActualHash, Detail: result.ErrorMessage,
		})
	}
	if !result.ChainLinkValid {
		breaks = append(breaks, Break{
			Category: ChainBreak, Sequence: candidate.Sequence, EventID: candidate.Event.EventID().String(),
			ExpectedHash: result.ExpectedHash, ActualHash: result.ActualHash, Detail: result.ErrorMessage,
		})
	}
	return breaks
}

// DetectSequenceGaps scans a sequence-ordered slice of persisted events
// and reports any missing sequence numbers between consecutive entries.
func DetectSequenceGaps(events []ledger.PersistedEvent) []Break {
	var breaks []Break
	for i := 1; i < len(events); i++ {
		prev, cur := events[i-1].Sequence, events[i].Sequence
		if cur != prev+1 {
			breaks = append(breaks, Break{
				Category: SequenceGap, Sequence: cur, EventID: events[i].Event.EventID().String(),
				Detail: fmt.Sprintf("missing sequence numbers %d through %d", prev+1, cur-1),
			})
		}
	}
	return breaks
}

// DetectChainBreaks runs both DetectEventBreak (pairwise) and
// DetectSequenceGaps over a sequence-ordered slice of events.
func DetectChainBreaks(events []ledger.PersistedEvent) []Break {
	var breaks []Break
	breaks = append(breaks, DetectSequenceGaps(events)...)
	for i, pe := range events {
		var previous *ledger.PersistedEvent
		if i > 0 {
			previous = &events[i-1]
		}
		breaks = append(breaks, DetectEventBreak(pe, previous)...)
	}
	return breaks
}

// Payload builds the ledger.integrity.hash_break_detected payload for b.
// Publishing the resulting event is the caller's responsibility. The
// payload carries no detector_id.
func (b Break) Payload(detectedAt time.Time) map[string]interface{} {
	return map[string]interface{}{
		"break_type":         string(b.Category),
		"broken_at_sequence": b.Sequence,
		"affected_event_id":  b.EventID,
		"expected_hash":      b.ExpectedHash,
		"actual_hash":        b.ActualHash,
		"details":            b.Detail,
		"detected_at":        detectedAt,
	}
}
