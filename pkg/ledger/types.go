// Copyright 2025 Certen Protocol
//
// Package ledger provides the append-only event ledger port and its two
// concrete backends.
package ledger

import "github.com/hoyack/governance-ledger/pkg/gevent"

// PersistedEvent is an Event that has been assigned a sequence number and
// persisted by a backend. Branch is re-derived at the storage layer from
// the event's type, never trusted from the producer.
type PersistedEvent struct {
	Event    gevent.Event `json:"event"`
	Sequence uint64       `json:"sequence"`
	Branch   string       `json:"branch"`
}

// ReadOptions filters and pages a Read call. Filters combine with AND;
// zero values mean "no filter" except Limit, which defaults to 100 when
// zero. StartSequence and EndSequence are both inclusive.
type ReadOptions struct {
	StartSequence uint64
	EndSequence   uint64 // 0 means open-ended
	Branch        string
	EventType     string // exact match or a gevent.MatchPattern pattern
	Limit         int
	Offset        int
}

// DefaultReadLimit is applied when ReadOptions.Limit is zero.
const DefaultReadLimit = 100

func (o ReadOptions) limit() int {
	if o.Limit <= 0 {
		return DefaultReadLimit
	}
	return o.Limit
}

func (o ReadOptions) matches(pe PersistedEvent) bool {
	if o.StartSequence != 0 && pe.Sequence < o.StartSequence {
		return false
	}
	if o.EndSequence != 0 && pe.Sequence > o.EndSequence {
		return false
	}
	if o.Branch != "" && o.Branch != pe.Branch {
		return false
	}
	if o.EventType != "" && !gevent.MatchPattern(o.EventType, pe.Event.EventType()) {
		return false
	}
	return true
}
