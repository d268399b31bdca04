package validators

import (
	"context"

	"github.com/hoyack/governance-ledger/pkg/gevent"
)

// EventTypeValidator rejects event types not present in its allowed set
// when running in strict mode. Format validation (branch.noun.verb) has
// already happened in gevent.Create; this validator only enforces
// vocabulary membership.
type EventTypeValidator struct {
	strictMode         bool
	suggestCorrections bool
	allowed            map[string]struct{}
}

// EventTypeValidatorOption configures an EventTypeValidator.
type EventTypeValidatorOption func(*EventTypeValidator)

// WithoutStrictMode allows any well-formed event type, registered or not.
func WithoutStrictMode() EventTypeValidatorOption {
	return func(v *EventTypeValidator) { v.strictMode = false }
}

// WithoutSuggestions disables the "did you mean" suggestion lookup.
func WithoutSuggestions() EventTypeValidatorOption {
	return func(v *EventTypeValidator) { v.suggestCorrections = false }
}

// WithAdditionalEventTypes extends the allowed set beyond gevent.KnownEventTypes.
func WithAdditionalEventTypes(types ...string) EventTypeValidatorOption {
	return func(v *EventTypeValidator) {
		for _, t := range types {
			v.allowed[t] = struct{}{}
		}
	}
}

// NewEventTypeValidator constructs a validator seeded with gevent.KnownEventTypes.
func NewEventTypeValidator(opts ...EventTypeValidatorOption) *EventTypeValidator {
	v := &EventTypeValidator{strictMode: true, suggestCorrections: true, allowed: make(map[string]struct{})}
	for t := range gevent.KnownEventTypes {
		v.allowed[t] = struct{}{}
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate checks event's type against the allowed set.
func (v *EventTypeValidator) Validate(ctx context.Context, event gevent.Event) error {
	if !v.strictMode {
		return nil
	}
	if _, ok := v.allowed[event.EventType()]; ok {
		return nil
	}
	suggestion := ""
	if v.suggestCorrections {
		suggestion = gevent.SuggestEventType(event.EventType())
	}
	return &UnknownEventTypeError{EventID: event.EventID(), EventType: event.EventType(), Suggestion: suggestion}
}

// IsValidType checks event type membership without constructing an error.
func (v *EventTypeValidator) IsValidType(eventType string) bool {
	if !v.strictMode {
		return true
	}
	_, ok := v.allowed[eventType]
	return ok
}
