package validators

import (
	"context"
	"testing"
	"time"

	"github.com/hoyack/governance-ledger/pkg/gevent"
	"github.com/hoyack/governance-ledger/pkg/hashchain"
	"github.com/hoyack/governance-ledger/pkg/ledger"
)

type fakeLatestSource struct {
	event ledger.PersistedEvent
	err   error
}

func (f fakeLatestSource) Latest(ctx context.Context) (ledger.PersistedEvent, error) {
	return f.event, f.err
}

func mustHashed(t *testing.T, eventType, prevHash string) gevent.Event {
	t.Helper()
	ev, err := gevent.Create(eventType, time.Now().UTC(), "actor-1", "trace-1", map[string]interface{}{"task_id": "t-1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	hashed, err := hashchain.AddHashToEvent(ev, prevHash, "blake3")
	if err != nil {
		t.Fatalf("add hash: %v", err)
	}
	return hashed
}

func TestHashChainValidator_AcceptsGenesisEventOnEmptyLedger(t *testing.T) {
	source := fakeLatestSource{err: ledger.ErrEmptyLedger}
	v := NewHashChainValidator(source, "blake3", false)

	ev := mustHashed(t, "executive.task.activated", "")
	if err := v.Validate(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHashChainValidator_AcceptsCorrectlyLinkedEvent(t *testing.T) {
	first := mustHashed(t, "executive.task.activated", "")
	source := fakeLatestSource{event: ledger.PersistedEvent{Event: first, Sequence: 1}}
	v := NewHashChainValidator(source, "blake3", false)

	second := mustHashed(t, "executive.task.completed", first.Hash())
	if err := v.Validate(context.Background(), second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHashChainValidator_RejectsStalePrevHash(t *testing.T) {
	first := mustHashed(t, "executive.task.activated", "")
	source := fakeLatestSource{event: ledger.PersistedEvent{Event: first, Sequence: 1}}
	v := NewHashChainValidator(source, "blake3", false)

	orphan := mustHashed(t, "executive.task.completed", "")
	err := v.Validate(context.Background(), orphan)
	if _, ok := err.(*HashChainBreakError); !ok {
		t.Fatalf("error = %T, want *HashChainBreakError", err)
	}
}

func TestHashChainValidator_RejectsUnhashedEvent(t *testing.T) {
	source := fakeLatestSource{err: ledger.ErrEmptyLedger}
	v := NewHashChainValidator(source, "blake3", false)

	ev, err := gevent.Create("executive.task.activated", time.Now().UTC(), "actor-1", "trace-1", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := v.Validate(context.Background(), ev); err == nil {
		t.Fatal("expected error for unhashed event")
	}
}
