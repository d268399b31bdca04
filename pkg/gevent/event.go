// Package gevent defines the governance event envelope: an immutable
// (metadata, payload) pair whose fields are validated at construction and
// whose hash fields are populated later, by the hash chain (see
// pkg/hashchain).
package gevent

import (
	"encoding/json"
	"regexp"
	"time"

	"github.com/google/uuid"
)

var schemaVersionPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// CurrentSchemaVersion is the schema version new events are stamped with
// unless a producer overrides it.
const CurrentSchemaVersion = "1.0.0"

// Metadata is the immutable header of a governance event. Once constructed
// it is never mutated; hashchain.AddHashToEvent returns a new Event (built
// with Event.WithHash) with PrevHash/Hash populated rather than editing in
// place.
type Metadata struct {
	EventID       uuid.UUID
	EventType     string
	Timestamp     time.Time
	ActorID       string
	SchemaVersion string
	TraceID       string
	PrevHash      string
	Hash          string
}

// Branch derives the event's governance branch from its event type.
func (m Metadata) Branch() (string, error) {
	return DeriveBranch(m.EventType)
}

// ToHashMap renders metadata as the generic map used for canonical
// serialization. When includeHash is false the "hash" key is omitted
// entirely (not present as empty string) — this is the
// meta_without_hash_field form the hash chain hashes over.
func (m Metadata) ToHashMap(includeHash bool) map[string]interface{} {
	out := map[string]interface{}{
		"event_id":       m.EventID.String(),
		"event_type":     m.EventType,
		"timestamp":      m.Timestamp,
		"actor_id":       m.ActorID,
		"schema_version": m.SchemaVersion,
		"trace_id":       m.TraceID,
		"prev_hash":      m.PrevHash,
	}
	if includeHash {
		out["hash"] = m.Hash
	}
	return out
}

func validateMetadataFields(eventID uuid.UUID, eventType string, ts time.Time, actorID, schemaVersion, traceID string) error {
	if eventID == uuid.Nil {
		return violation("event_id", eventID.String(), "event_id must be a non-nil UUID")
	}
	if err := ValidateEventTypeFormat(eventType); err != nil {
		return err
	}
	if ts.IsZero() {
		return violation("timestamp", ts.String(), "timestamp must be set")
	}
	if actorID == "" {
		return violation("actor_id", actorID, "actor_id must be a non-empty string")
	}
	if !schemaVersionPattern.MatchString(schemaVersion) {
		return violation("schema_version", schemaVersion, "schema_version must be a strict three-number dotted version")
	}
	if traceID == "" {
		return violation("trace_id", traceID, "trace_id must be a non-empty string")
	}
	return nil
}

// NewMetadata validates and constructs event metadata with empty hash
// fields. Use the hash chain to populate PrevHash/Hash before this event is
// appended.
func NewMetadata(eventID uuid.UUID, eventType string, ts time.Time, actorID, schemaVersion, traceID string) (Metadata, error) {
	if err := validateMetadataFields(eventID, eventType, ts, actorID, schemaVersion, traceID); err != nil {
		return Metadata{}, err
	}
	return Metadata{
		EventID:       eventID,
		EventType:     eventType,
		Timestamp:     ts,
		ActorID:       actorID,
		SchemaVersion: schemaVersion,
		TraceID:       traceID,
	}, nil
}

// Event is an immutable (metadata, payload) pair. Payload is deep-copied on
// construction and only exposed through Payload(), which returns a further
// copy, so no caller aliasing can mutate a constructed event.
type Event struct {
	metadata Metadata
	payload  map[string]interface{}
}

// New constructs an Event from validated metadata and a payload map. The
// payload is copied; later mutation of the map passed in has no effect on
// the constructed Event.
func New(metadata Metadata, payload map[string]interface{}) Event {
	return Event{metadata: metadata, payload: clonePayload(payload)}
}

func clonePayload(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch vv := v.(type) {
	case map[string]interface{}:
		return clonePayload(vv)
	case []interface{}:
		out := make([]interface{}, len(vv))
		for i, e := range vv {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// Metadata returns the event's metadata by value.
func (e Event) Metadata() Metadata { return e.metadata }

// Payload returns a copy of the event's payload.
func (e Event) Payload() map[string]interface{} { return clonePayload(e.payload) }

// EventID, EventType, Timestamp, ActorID, SchemaVersion, TraceID, PrevHash
// and Hash are convenience accessors mirroring the metadata fields.
func (e Event) EventID() uuid.UUID       { return e.metadata.EventID }
func (e Event) EventType() string        { return e.metadata.EventType }
func (e Event) Timestamp() time.Time     { return e.metadata.Timestamp }
func (e Event) ActorID() string          { return e.metadata.ActorID }
func (e Event) SchemaVersion() string    { return e.metadata.SchemaVersion }
func (e Event) TraceID() string          { return e.metadata.TraceID }
func (e Event) PrevHash() string         { return e.metadata.PrevHash }
func (e Event) Hash() string             { return e.metadata.Hash }

// Branch derives the event's governance branch from its event type.
func (e Event) Branch() (string, error) { return e.metadata.Branch() }

// HasHash reports whether both PrevHash and Hash are populated.
func (e Event) HasHash() bool {
	return e.metadata.PrevHash != "" && e.metadata.Hash != ""
}

// WithHash returns a new Event whose metadata carries the given prevHash
// and hash. It is an error to call this on an event that already has both
// fields set — hash fields are write-once.
func (e Event) WithHash(prevHash, hash string) (Event, error) {
	if e.HasHash() {
		return Event{}, violation("hash", e.metadata.Hash, "event is already hashed; re-hashing is not permitted")
	}
	m := e.metadata
	m.PrevHash = prevHash
	m.Hash = hash
	return Event{metadata: m, payload: e.payload}, nil
}

// eventWire is the wire/storage representation of an Event: metadata
// fields flattened alongside the payload. It deliberately bypasses the
// validating constructors — it exists to round-trip events that have
// already been validated and hashed once, not to construct new ones.
type eventWire struct {
	EventID       uuid.UUID              `json:"event_id"`
	EventType     string                 `json:"event_type"`
	Timestamp     time.Time              `json:"timestamp"`
	ActorID       string                 `json:"actor_id"`
	SchemaVersion string                 `json:"schema_version"`
	TraceID       string                 `json:"trace_id"`
	PrevHash      string                 `json:"prev_hash"`
	Hash          string                 `json:"hash"`
	Payload       map[string]interface{} `json:"payload"`
}

// MarshalJSON implements json.Marshaler.
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(eventWire{
		EventID:       e.metadata.EventID,
		EventType:     e.metadata.EventType,
		Timestamp:     e.metadata.Timestamp,
		ActorID:       e.metadata.ActorID,
		SchemaVersion: e.metadata.SchemaVersion,
		TraceID:       e.metadata.TraceID,
		PrevHash:      e.metadata.PrevHash,
		Hash:          e.metadata.Hash,
		Payload:       e.payload,
	})
}

// UnmarshalJSON implements json.Unmarshaler. It does not re-run
// constructor-time validation; callers rehydrating from trusted storage
// are expected to already hold validated events.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w eventWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	e.metadata = Metadata{
		EventID:       w.EventID,
		EventType:     w.EventType,
		Timestamp:     w.Timestamp,
		ActorID:       w.ActorID,
		SchemaVersion: w.SchemaVersion,
		TraceID:       w.TraceID,
		PrevHash:      w.PrevHash,
		Hash:          w.Hash,
	}
	e.payload = w.Payload
	if e.payload == nil {
		e.payload = map[string]interface{}{}
	}
	return nil
}

// Create constructs a new, unhashed Event from its constituent fields,
// generating a random event_id and stamping CurrentSchemaVersion.
func Create(eventType string, ts time.Time, actorID, traceID string, payload map[string]interface{}) (Event, error) {
	meta, err := NewMetadata(uuid.New(), eventType, ts, actorID, CurrentSchemaVersion, traceID)
	if err != nil {
		return Event{}, err
	}
	return New(meta, payload), nil
}
