package validators

import (
	"context"
	"testing"
)

func TestInMemoryActorRegistry_AddAndRemove(t *testing.T) {
	r := NewInMemoryActorRegistry("actor-1")
	ctx := context.Background()

	exists, err := r.ActorExists(ctx, "actor-1")
	if err != nil || !exists {
		t.Fatalf("exists=%v err=%v, want true, nil", exists, err)
	}

	r.AddActor("actor-2")
	exists, _ = r.ActorExists(ctx, "actor-2")
	if !exists {
		t.Fatal("expected actor-2 to exist after AddActor")
	}

	r.RemoveActor("actor-1")
	exists, _ = r.ActorExists(ctx, "actor-1")
	if exists {
		t.Fatal("expected actor-1 removed")
	}
}

func TestActorValidator_AcceptsRegisteredActor(t *testing.T) {
	registry := NewInMemoryActorRegistry("actor-1")
	v := NewActorValidator(registry, false)
	ev := mustEvent(t, "executive.task.activated")
	if err := v.Validate(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestActorValidator_RejectsUnregisteredActor(t *testing.T) {
	registry := NewInMemoryActorRegistry()
	v := NewActorValidator(registry, false)
	ev := mustEvent(t, "executive.task.activated")
	err := v.Validate(context.Background(), ev)
	if _, ok := err.(*UnknownActorError); !ok {
		t.Fatalf("error = %T, want *UnknownActorError", err)
	}
}

func TestActorValidator_SkipValidationAcceptsAnyActor(t *testing.T) {
	v := NewActorValidator(NewInMemoryActorRegistry(), true)
	ev := mustEvent(t, "executive.task.activated")
	if err := v.Validate(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error with skipValidation: %v", err)
	}
}
