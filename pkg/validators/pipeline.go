package validators

import (
	"context"

	"github.com/google/uuid"

	"github.com/hoyack/governance-ledger/pkg/gevent"
	"github.com/hoyack/governance-ledger/pkg/ledger"
	"github.com/hoyack/governance-ledger/pkg/ledgermetrics"
)

// Validator checks a single concern on an event before it is appended.
// A non-nil error aborts the append; no partial write occurs.
type Validator interface {
	Validate(ctx context.Context, event gevent.Event) error
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc func(ctx context.Context, event gevent.Event) error

// Validate implements Validator.
func (f ValidatorFunc) Validate(ctx context.Context, event gevent.Event) error { return f(ctx, event) }

// NoOpValidator always succeeds. It exists solely for administrative
// replay tooling that has already verified events by other means;
// production pipelines never include it.
var NoOpValidator Validator = ValidatorFunc(func(ctx context.Context, event gevent.Event) error { return nil })

// ValidatedLedger wraps a ledger.Port so that every Append runs through a
// fixed, ordered validator pipeline before the underlying backend ever
// opens a storage transaction: event type, then actor, then state
// transition, then hash chain. The order matters — cheaper, more general
// checks run first so a malformed event is rejected before the more
// expensive hash chain lookup runs.
type ValidatedLedger struct {
	backend    ledger.Port
	validators []Validator
}

// NewValidatedLedger composes backend with validators, run in the order
// given. Callers assembling a production pipeline should pass, in order,
// an *EventTypeValidator, *ActorValidator, *StateTransitionValidator, and
// *HashChainValidator.
func NewValidatedLedger(backend ledger.Port, validators ...Validator) *ValidatedLedger {
	return &ValidatedLedger{backend: backend, validators: validators}
}

// Append runs event through the validator pipeline and, only if every
// validator accepts it, delegates to the underlying backend.
func (l *ValidatedLedger) Append(ctx context.Context, event gevent.Event) (ledger.PersistedEvent, error) {
	for _, v := range l.validators {
		if err := v.Validate(ctx, event); err != nil {
			ledgermetrics.ValidatorRejectionsTotal.WithLabelValues(validatorLabel(v), rejectionReason(err)).Inc()
			return ledger.PersistedEvent{}, err
		}
	}
	return l.backend.Append(ctx, event)
}

// validatorLabel names v for metrics, independent of the exact struct or
// pointer the caller composed the pipeline with.
func validatorLabel(v Validator) string {
	switch v.(type) {
	case *EventTypeValidator:
		return "event_type"
	case *ActorValidator:
		return "actor"
	case *StateTransitionValidator:
		return "state_transition"
	case *HashChainValidator:
		return "hash_chain"
	default:
		return "other"
	}
}

// rejectionReason classifies err into a small, bounded set of reasons
// for metrics, mirroring the typed errors each validator returns.
func rejectionReason(err error) string {
	switch err.(type) {
	case *UnknownEventTypeError:
		return "unknown_event_type"
	case *UnknownActorError:
		return "unknown_actor"
	case *IllegalStateTransitionError:
		return "illegal_state_transition"
	case *HashChainBreakError:
		return "hash_chain_break"
	default:
		return "other"
	}
}

func (l *ValidatedLedger) Latest(ctx context.Context) (ledger.PersistedEvent, error) {
	return l.backend.Latest(ctx)
}

func (l *ValidatedLedger) MaxSequence(ctx context.Context) (uint64, error) {
	return l.backend.MaxSequence(ctx)
}

func (l *ValidatedLedger) Read(ctx context.Context, opts ledger.ReadOptions) ([]ledger.PersistedEvent, error) {
	return l.backend.Read(ctx, opts)
}

func (l *ValidatedLedger) BySequence(ctx context.Context, sequence uint64) (ledger.PersistedEvent, error) {
	return l.backend.BySequence(ctx, sequence)
}

func (l *ValidatedLedger) ByID(ctx context.Context, id uuid.UUID) (ledger.PersistedEvent, error) {
	return l.backend.ByID(ctx, id)
}

func (l *ValidatedLedger) Count(ctx context.Context, opts ledger.ReadOptions) (uint64, error) {
	return l.backend.Count(ctx, opts)
}
