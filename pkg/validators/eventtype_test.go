package validators

import (
	"context"
	"testing"
	"time"

	"github.com/hoyack/governance-ledger/pkg/gevent"
)

func mustEvent(t *testing.T, eventType string) gevent.Event {
	t.Helper()
	ev, err := gevent.Create(eventType, time.Now().UTC(), "actor-1", "trace-1", map[string]interface{}{"task_id": "t-1"})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	return ev
}

func TestEventTypeValidator_AcceptsKnownType(t *testing.T) {
	v := NewEventTypeValidator()
	ev := mustEvent(t, "executive.task.activated")
	if err := v.Validate(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEventTypeValidator_RejectsUnregisteredType(t *testing.T) {
	v := NewEventTypeValidator()
	ev := mustEvent(t, "executive.task.frobnicated")
	err := v.Validate(context.Background(), ev)
	if err == nil {
		t.Fatal("expected rejection for unregistered event type")
	}
	var target *UnknownEventTypeError
	if _, ok := err.(*UnknownEventTypeError); !ok {
		t.Fatalf("error = %T, want %T", err, target)
	}
}

func TestEventTypeValidator_WithoutStrictModeAcceptsAnything(t *testing.T) {
	v := NewEventTypeValidator(WithoutStrictMode())
	ev := mustEvent(t, "executive.task.frobnicated")
	if err := v.Validate(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error in non-strict mode: %v", err)
	}
}

func TestEventTypeValidator_WithAdditionalEventTypes(t *testing.T) {
	v := NewEventTypeValidator(WithAdditionalEventTypes("executive.task.frobnicated"))
	ev := mustEvent(t, "executive.task.frobnicated")
	if err := v.Validate(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
