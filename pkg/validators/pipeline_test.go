package validators

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hoyack/governance-ledger/pkg/gevent"
	"github.com/hoyack/governance-ledger/pkg/hashchain"
	"github.com/hoyack/governance-ledger/pkg/ledger"
)

type recordingKV struct {
	data map[string][]byte
}

func newRecordingKV() *recordingKV { return &recordingKV{data: make(map[string][]byte)} }

func (kv *recordingKV) Get(key []byte) ([]byte, error) { return kv.data[string(key)], nil }
func (kv *recordingKV) Set(key, value []byte) error {
	kv.data[string(key)] = append([]byte(nil), value...)
	return nil
}

var errValidatorRejected = errors.New("rejected")

type alwaysRejectValidator struct{}

func (alwaysRejectValidator) Validate(ctx context.Context, event gevent.Event) error {
	return errValidatorRejected
}

func TestValidatedLedger_RejectionPreventsAppend(t *testing.T) {
	backend := ledger.NewKVBackend(newRecordingKV())
	vl := NewValidatedLedger(backend, alwaysRejectValidator{})

	ev := mustEvent(t, "executive.task.activated")
	hashed, err := hashchain.AddHashToEvent(ev, "", "blake3")
	if err != nil {
		t.Fatalf("add hash: %v", err)
	}

	if _, err := vl.Append(context.Background(), hashed); !errors.Is(err, errValidatorRejected) {
		t.Fatalf("err = %v, want errValidatorRejected", err)
	}
	max, err := backend.MaxSequence(context.Background())
	if err != nil {
		t.Fatalf("max sequence: %v", err)
	}
	if max != 0 {
		t.Fatalf("expected no event to reach storage, max sequence = %d", max)
	}
}

func TestValidatedLedger_FullPipelineAcceptsValidEvent(t *testing.T) {
	backend := ledger.NewKVBackend(newRecordingKV())
	projection := NewInMemoryStateProjection()
	registry := NewInMemoryActorRegistry("actor-1")

	vl := NewValidatedLedger(backend,
		NewEventTypeValidator(),
		NewActorValidator(registry, false),
		NewStateTransitionValidator(projection, false),
		NewHashChainValidator(backend, "blake3", false),
	)

	ev, err := gevent.Create("consent.task.requested", time.Now().UTC(), "actor-1", "trace-1", map[string]interface{}{"task_id": "task-1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	hashed, err := hashchain.AddHashToEvent(ev, "", "blake3")
	if err != nil {
		t.Fatalf("add hash: %v", err)
	}

	persisted, err := vl.Append(context.Background(), hashed)
	if err != nil {
		t.Fatalf("unexpected rejection: %v", err)
	}
	if persisted.Sequence != 1 {
		t.Errorf("sequence = %d, want 1", persisted.Sequence)
	}
}

func TestValidatedLedger_FullPipelineRejectsUnregisteredActor(t *testing.T) {
	backend := ledger.NewKVBackend(newRecordingKV())
	projection := NewInMemoryStateProjection()
	registry := NewInMemoryActorRegistry()

	vl := NewValidatedLedger(backend,
		NewEventTypeValidator(),
		NewActorValidator(registry, false),
		NewStateTransitionValidator(projection, false),
		NewHashChainValidator(backend, "blake3", false),
	)

	ev, err := gevent.Create("consent.task.requested", time.Now().UTC(), "actor-1", "trace-1", map[string]interface{}{"task_id": "task-1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	hashed, err := hashchain.AddHashToEvent(ev, "", "blake3")
	if err != nil {
		t.Fatalf("add hash: %v", err)
	}

	_, err = vl.Append(context.Background(), hashed)
	if _, ok := err.(*UnknownActorError); !ok {
		t.Fatalf("err = %T, want *UnknownActorError", err)
	}
}
