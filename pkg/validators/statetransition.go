package validators

import (
	"context"
	"fmt"
	"sync"

	"github.com/hoyack/governance-ledger/pkg/gevent"
)

// Task lifecycle states.
const (
	TaskPending    = "pending"
	TaskAuthorized = "authorized"
	TaskActivated  = "activated"
	TaskAccepted   = "accepted"
	TaskDeclined   = "declined"
	TaskCompleted  = "completed"
	TaskExpired    = "expired"
	TaskCancelled  = "cancelled"
)

// Legitimacy band states.
const (
	BandFull        = "full"
	BandProvisional = "provisional"
	BandSuspended   = "suspended"
	BandRevoked     = "revoked"
)

func stateSet(states ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(states))
	for _, s := range states {
		out[s] = struct{}{}
	}
	return out
}

// taskTransitions maps a task's current state to its legal next states.
var taskTransitions = map[string]map[string]struct{}{
	TaskPending:    stateSet(TaskAuthorized, TaskCancelled),
	TaskAuthorized: stateSet(TaskActivated, TaskExpired, TaskCancelled),
	TaskActivated:  stateSet(TaskAccepted, TaskDeclined, TaskExpired),
	TaskAccepted:   stateSet(TaskCompleted, TaskExpired),
	TaskDeclined:   stateSet(),
	TaskCompleted:  stateSet(),
	TaskExpired:    stateSet(),
	TaskCancelled:  stateSet(),
}

// legitimacyTransitions maps a legitimacy band to its legal next bands.
// Downward transitions occur on decay events; upward transitions require
// an explicit restoration event.
var legitimacyTransitions = map[string]map[string]struct{}{
	BandFull:        stateSet(BandProvisional),
	BandProvisional: stateSet(BandFull, BandSuspended),
	BandSuspended:   stateSet(BandProvisional, BandRevoked),
	BandRevoked:     stateSet(BandSuspended),
}

const (
	aggregateTask       = "task"
	aggregateLegitimacy = "legitimacy"
)

// eventStateMapping declares how an event type maps onto an aggregate
// state transition: which aggregate, which payload field holds its id,
// and either a fixed resulting state or (when empty) the payload field
// that holds it.
type eventStateMapping struct {
	aggregateType  string
	idField        string
	resultingState string
}

// EventStateMappings enumerates every event type the state transition
// validator understands. Event types not listed here are ignored by this
// validator — they do not touch either state machine.
var EventStateMappings = map[string]eventStateMapping{
	"executive.task.activated": {aggregateTask, "task_id", TaskActivated},
	"executive.task.accepted":  {aggregateTask, "task_id", TaskAccepted},
	"executive.task.declined":  {aggregateTask, "task_id", TaskDeclined},
	"executive.task.completed": {aggregateTask, "task_id", TaskCompleted},
	"executive.task.expired":   {aggregateTask, "task_id", TaskExpired},
	"consent.task.requested":   {aggregateTask, "task_id", TaskPending},
	"consent.task.granted":     {aggregateTask, "task_id", TaskAuthorized},
	"consent.task.refused":     {aggregateTask, "task_id", TaskCancelled},
	"consent.task.withdrawn":   {aggregateTask, "task_id", TaskCancelled},
	"legitimacy.band.decayed":  {aggregateLegitimacy, "entity_id", ""},
	"legitimacy.band.restored": {aggregateLegitimacy, "entity_id", ""},
	"legitimacy.band.assessed": {aggregateLegitimacy, "entity_id", ""},
}

// AggregateState is the current state of one aggregate instance as known
// to a StateProjectionPort.
type AggregateState struct {
	AggregateType string
	AggregateID   string
	CurrentState  string
}

// StateProjectionPort is queried for an aggregate's current state.
type StateProjectionPort interface {
	GetCurrentState(ctx context.Context, aggregateType, aggregateID string) (*AggregateState, error)
}

// InMemoryStateProjection is a map-backed StateProjectionPort for tests
// and for warming a cache in front of a durable projection.
type InMemoryStateProjection struct {
	mu     sync.RWMutex
	states map[[2]string]AggregateState
}

// NewInMemoryStateProjection returns an empty projection.
func NewInMemoryStateProjection() *InMemoryStateProjection {
	return &InMemoryStateProjection{states: make(map[[2]string]AggregateState)}
}

// GetCurrentState implements StateProjectionPort.
func (p *InMemoryStateProjection) GetCurrentState(ctx context.Context, aggregateType, aggregateID string) (*AggregateState, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if s, ok := p.states[[2]string{aggregateType, aggregateID}]; ok {
		return &s, nil
	}
	return nil, nil
}

// SetState records an aggregate's current state, for tests or for a
// read-model projector to call as events are appended.
func (p *InMemoryStateProjection) SetState(aggregateType, aggregateID, currentState string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states[[2]string{aggregateType, aggregateID}] = AggregateState{
		AggregateType: aggregateType, AggregateID: aggregateID, CurrentState: currentState,
	}
}

// StateTransitionValidator rejects events implying a state transition the
// relevant state machine does not permit.
type StateTransitionValidator struct {
	projection     StateProjectionPort
	skipValidation bool
}

// NewStateTransitionValidator constructs a StateTransitionValidator over
// projection. skipValidation exists solely for administrative replay.
func NewStateTransitionValidator(projection StateProjectionPort, skipValidation bool) *StateTransitionValidator {
	return &StateTransitionValidator{projection: projection, skipValidation: skipValidation}
}

func transitionsFor(aggregateType string) map[string]map[string]struct{} {
	switch aggregateType {
	case aggregateTask:
		return taskTransitions
	case aggregateLegitimacy:
		return legitimacyTransitions
	default:
		return nil
	}
}

func initialStateFor(aggregateType string) string {
	switch aggregateType {
	case aggregateTask:
		return TaskPending
	case aggregateLegitimacy:
		return BandFull
	default:
		return ""
	}
}

func extractStateInfo(event gevent.Event) (aggregateType, aggregateID, newState string, ok bool) {
	mapping, found := EventStateMappings[event.EventType()]
	if !found {
		return "", "", "", false
	}
	payload := event.Payload()
	rawID, present := payload[mapping.idField]
	if !present {
		return "", "", "", false
	}
	aggregateID = fmt.Sprintf("%v", rawID)

	newState = mapping.resultingState
	if newState == "" {
		if band, present := payload["new_band"]; present {
			newState = fmt.Sprintf("%v", band)
		} else if band, present := payload["band"]; present {
			newState = fmt.Sprintf("%v", band)
		} else {
			return "", "", "", false
		}
	}
	return mapping.aggregateType, aggregateID, newState, true
}

// Validate checks event's implied state transition, if any, against the
// relevant state machine. Events not present in EventStateMappings are
// not state-machine events and pass through untouched.
func (v *StateTransitionValidator) Validate(ctx context.Context, event gevent.Event) error {
	if v.skipValidation {
		return nil
	}
	aggregateType, aggregateID, newState, ok := extractStateInfo(event)
	if !ok {
		return nil
	}

	rules := transitionsFor(aggregateType)
	if rules == nil {
		return nil
	}

	current, err := v.projection.GetCurrentState(ctx, aggregateType, aggregateID)
	if err != nil {
		return err
	}

	if current == nil {
		if initial := initialStateFor(aggregateType); newState != initial {
			return &IllegalStateTransitionError{
				EventID: event.EventID(), AggregateType: aggregateType, AggregateID: aggregateID,
				CurrentState: "(new)", AttemptedState: newState, AllowedStates: []string{initial},
			}
		}
		return nil
	}

	allowed := rules[current.CurrentState]
	if _, ok := allowed[newState]; ok {
		return nil
	}
	allowedList := make([]string, 0, len(allowed))
	for s := range allowed {
		allowedList = append(allowedList, s)
	}
	return &IllegalStateTransitionError{
		EventID: event.EventID(), AggregateType: aggregateType, AggregateID: aggregateID,
		CurrentState: current.CurrentState, AttemptedState: newState, AllowedStates: allowedList,
	}
}
