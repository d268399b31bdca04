// Copyright 2025 Certen Protocol

package integrity

import (
	"testing"
	"time"

	"github.com/hoyack/governance-ledger/pkg/gevent"
	"github.com/hoyack/governance-ledger/pkg/hashchain"
	"github.com/hoyack/governance-ledger/pkg/ledger"
)

func mustPersisted(t *testing.T, eventType, prevHash string, sequence uint64) ledger.PersistedEvent {
	t.Helper()
	ev, err := gevent.Create(eventType, time.Now().UTC(), "actor-1", "trace-1", map[string]interface{}{"task_id": "t-1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	hashed, err := hashchain.AddHashToEvent(ev, prevHash, "blake3")
	if err != nil {
		t.Fatalf("add hash: %v", err)
	}
	branch, err := hashed.Branch()
	if err != nil {
		t.Fatalf("branch: %v", err)
	}
	return ledger.PersistedEvent{Event: hashed, Sequence: sequence, Branch: branch}
}

func TestDetectEventBreak_NoDefectsOnCleanChain(t *testing.T) {
	first := mustPersisted(t, "executive.task.activated", "", 1)
	second := mustPersisted(t, "executive.task.completed", first.Event.Hash(), 2)

	if breaks := DetectEventBreak(second, &first); len(breaks) != 0 {
		t.Errorf("expected no breaks, got %v", breaks)
	}
}

func TestDetectEventBreak_DetectsChainBreak(t *testing.T) {
	first := mustPersisted(t, "executive.task.activated", "", 1)
	orphan := mustPersisted(t, "executive.task.completed", "", 2) // wrong prev_hash

	breaks := DetectEventBreak(orphan, &first)
	if len(breaks) == 0 {
		t.Fatal("expected at least one break")
	}
	found := false
	for _, b := range breaks {
		if b.Category == ChainBreak {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a CHAIN_BREAK, got %v", breaks)
	}
}

func TestDetectSequenceGaps_FindsMissingSequence(t *testing.T) {
	events := []ledger.PersistedEvent{
		mustPersisted(t, "executive.task.activated", "", 1),
		mustPersisted(t, "executive.task.completed", "", 3), // gap at 2
	}
	breaks := DetectSequenceGaps(events)
	if len(breaks) != 1 {
		t.Fatalf("breaks = %d, want 1", len(breaks))
	}
	if breaks[0].Category != SequenceGap {
		t.Errorf("category = %s, want SEQUENCE_GAP", breaks[0].Category)
	}
}

func TestDetectSequenceGaps_NoGapsOnContiguousRange(t *testing.T) {
	events := []ledger.PersistedEvent{
		mustPersisted(t, "executive.task.activated", "", 1),
		mustPersisted(t, "executive.task.completed", "", 2),
		mustPersisted(t, "executive.task.expired", "", 3),
	}
	if breaks := DetectSequenceGaps(events); len(breaks) != 0 {
		t.Errorf("expected no gaps, got %v", breaks)
	}
}
