package validators

import (
	"context"
	"sync"

	"github.com/hoyack/governance-ledger/pkg/gevent"
)

// ActorRegistryPort is queried by ActorValidator to check whether an actor
// is registered to emit governance events.
type ActorRegistryPort interface {
	ActorExists(ctx context.Context, actorID string) (bool, error)
	AllActorIDs(ctx context.Context) ([]string, error)
}

// InMemoryActorRegistry is a map-backed ActorRegistryPort used in tests
// and as a warm cache in front of a durable registry.
type InMemoryActorRegistry struct {
	mu     sync.RWMutex
	actors map[string]struct{}
}

// NewInMemoryActorRegistry seeds a registry with the given actor ids.
func NewInMemoryActorRegistry(actorIDs ...string) *InMemoryActorRegistry {
	r := &InMemoryActorRegistry{actors: make(map[string]struct{}, len(actorIDs))}
	for _, id := range actorIDs {
		r.actors[id] = struct{}{}
	}
	return r
}

// ActorExists implements ActorRegistryPort.
func (r *InMemoryActorRegistry) ActorExists(ctx context.Context, actorID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.actors[actorID]
	return ok, nil
}

// AllActorIDs implements ActorRegistryPort.
func (r *InMemoryActorRegistry) AllActorIDs(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.actors))
	for id := range r.actors {
		ids = append(ids, id)
	}
	return ids, nil
}

// AddActor registers an actor.
func (r *InMemoryActorRegistry) AddActor(actorID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actors[actorID] = struct{}{}
}

// RemoveActor deregisters an actor.
func (r *InMemoryActorRegistry) RemoveActor(actorID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.actors, actorID)
}

// ActorValidator rejects events from actors not present in its registry.
type ActorValidator struct {
	registry       ActorRegistryPort
	skipValidation bool
}

// NewActorValidator constructs an ActorValidator over registry.
// skipValidation exists solely for administrative replay; production
// code never sets it.
func NewActorValidator(registry ActorRegistryPort, skipValidation bool) *ActorValidator {
	return &ActorValidator{registry: registry, skipValidation: skipValidation}
}

// Validate checks that event's actor is registered.
func (v *ActorValidator) Validate(ctx context.Context, event gevent.Event) error {
	if v.skipValidation {
		return nil
	}
	exists, err := v.registry.ActorExists(ctx, event.ActorID())
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return &UnknownActorError{EventID: event.EventID(), ActorID: event.ActorID()}
}
