package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/hoyack/governance-ledger/pkg/gevent"
	"github.com/hoyack/governance-ledger/pkg/hashchain"
)

// mapKV is an in-memory KV for tests; it has no relation to any production backend.
type mapKV struct {
	data map[string][]byte
}

func newMapKV() *mapKV { return &mapKV{data: make(map[string][]byte)} }

func (m *mapKV) Get(key []byte) ([]byte, error) { return m.data[string(key)], nil }
func (m *mapKV) Set(key, value []byte) error {
	m.data[string(key)] = append([]byte{}, value...)
	return nil
}

func mustHashedEvent(t *testing.T, eventType string, prevHash string) gevent.Event {
	t.Helper()
	ev, err := gevent.Create(eventType, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), "actor-1", "trace-1", map[string]interface{}{"k": "v"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	hashed, err := hashchain.AddHashToEvent(ev, prevHash, "blake3")
	if err != nil {
		t.Fatalf("add hash: %v", err)
	}
	return hashed
}

func TestKVBackend_AppendAssignsSequentialSequences(t *testing.T) {
	backend := NewKVBackend(newMapKV())
	ctx := context.Background()

	first, err := backend.Append(ctx, mustHashedEvent(t, "executive.task.activated", ""))
	if err != nil {
		t.Fatalf("append first: %v", err)
	}
	if first.Sequence != 1 {
		t.Errorf("first sequence = %d, want 1", first.Sequence)
	}

	second, err := backend.Append(ctx, mustHashedEvent(t, "executive.task.accepted", first.Event.Hash()))
	if err != nil {
		t.Fatalf("append second: %v", err)
	}
	if second.Sequence != 2 {
		t.Errorf("second sequence = %d, want 2", second.Sequence)
	}
}

func TestKVBackend_AppendRejectsUnhashedEvent(t *testing.T) {
	backend := NewKVBackend(newMapKV())
	ev, err := gevent.Create("executive.task.activated", time.Now(), "actor-1", "trace-1", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := backend.Append(context.Background(), ev); err == nil {
		t.Error("expected error appending an unhashed event")
	}
}

func TestKVBackend_LatestOnEmptyLedgerReturnsErrEmptyLedger(t *testing.T) {
	backend := NewKVBackend(newMapKV())
	if _, err := backend.Latest(context.Background()); err != ErrEmptyLedger {
		t.Errorf("got %v, want ErrEmptyLedger", err)
	}
}

func TestKVBackend_ByIDAndBySequenceRoundTrip(t *testing.T) {
	backend := NewKVBackend(newMapKV())
	ctx := context.Background()
	appended, err := backend.Append(ctx, mustHashedEvent(t, "executive.task.activated", ""))
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	byID, err := backend.ByID(ctx, appended.Event.EventID())
	if err != nil {
		t.Fatalf("by id: %v", err)
	}
	if byID.Sequence != appended.Sequence {
		t.Errorf("by id sequence = %d, want %d", byID.Sequence, appended.Sequence)
	}

	bySeq, err := backend.BySequence(ctx, appended.Sequence)
	if err != nil {
		t.Fatalf("by sequence: %v", err)
	}
	if bySeq.Event.EventID() != appended.Event.EventID() {
		t.Error("by sequence returned a different event id")
	}
}

func TestKVBackend_ReadFiltersByBranchAndPaginates(t *testing.T) {
	backend := NewKVBackend(newMapKV())
	ctx := context.Background()
	prev := ""
	for i := 0; i < 5; i++ {
		eventType := "executive.task.activated"
		if i%2 == 0 {
			eventType = "judicial.panel.convened"
		}
		ev := mustHashedEvent(t, eventType, prev)
		persisted, err := backend.Append(ctx, ev)
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		prev = persisted.Event.Hash()
	}

	results, err := backend.Read(ctx, ReadOptions{Branch: "executive"})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d executive events, want 2", len(results))
	}
	for _, r := range results {
		if r.Branch != "executive" {
			t.Errorf("got branch %q, want executive", r.Branch)
		}
	}

	paged, err := backend.Read(ctx, ReadOptions{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("read paged: %v", err)
	}
	if len(paged) != 2 {
		t.Fatalf("got %d events, want 2", len(paged))
	}
	if paged[0].Sequence != 2 {
		t.Errorf("first paged sequence = %d, want 2", paged[0].Sequence)
	}
}

func TestKVBackend_CountMatchesReadLength(t *testing.T) {
	backend := NewKVBackend(newMapKV())
	ctx := context.Background()
	prev := ""
	for i := 0; i < 3; i++ {
		ev := mustHashedEvent(t, "executive.task.activated", prev)
		persisted, err := backend.Append(ctx, ev)
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		prev = persisted.Event.Hash()
	}
	count, err := backend.Count(ctx, ReadOptions{})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}
