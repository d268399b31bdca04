// Copyright 2025 Certen Protocol
//
// Package export produces and consumes the self-describing JSON export
// document used to move a ledger (or a contiguous slice of one) outside
// this system for independent verification and replay.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hoyack/governance-ledger/pkg/gevent"
	"github.com/hoyack/governance-ledger/pkg/hashchain"
	"github.com/hoyack/governance-ledger/pkg/ledger"
)

// FormatVersion is the export document schema version. It changes only
// when the document's shape changes in a way incompatible readers must
// know about.
const FormatVersion = "1.0"

// Metadata describes the exported range as a whole.
type Metadata struct {
	ExportID      string    `json:"export_id"`
	ExportedAt    time.Time `json:"exported_at"`
	FormatVersion string    `json:"format_version"`
	TotalEvents   int       `json:"total_events"`
	GenesisHash   string    `json:"genesis_hash"`
	LatestHash    string    `json:"latest_hash"`
	SequenceRange [2]uint64 `json:"sequence_range"`
}

// EventRecord is one exported event, flattened for a stable wire shape
// independent of gevent.Event's internal representation.
type EventRecord struct {
	Sequence      uint64                 `json:"sequence"`
	EventID       string                 `json:"event_id"`
	EventType     string                 `json:"event_type"`
	Timestamp     time.Time              `json:"timestamp"`
	ActorID       string                 `json:"actor_id"`
	SchemaVersion string                 `json:"schema_version"`
	TraceID       string                 `json:"trace_id"`
	PrevHash      string                 `json:"prev_hash"`
	Hash          string                 `json:"hash"`
	Payload       map[string]interface{} `json:"payload"`
}

// Verification is a quick-check summary a reader can use before doing
// full offline verification.
type Verification struct {
	HashAlgorithm   string `json:"hash_algorithm"`
	ChainValid      bool   `json:"chain_valid"`
	GenesisToLatest string `json:"genesis_to_latest"`
}

// Document is the full export: metadata, the exported events, and a
// verification summary.
type Document struct {
	Metadata     Metadata      `json:"metadata"`
	Events       []EventRecord `json:"events"`
	Verification Verification  `json:"verification"`
}

func toRecord(pe ledger.PersistedEvent) EventRecord {
	ev := pe.Event
	return EventRecord{
		Sequence:      pe.Sequence,
		EventID:       ev.EventID().String(),
		EventType:     ev.EventType(),
		Timestamp:     ev.Timestamp(),
		ActorID:       ev.ActorID(),
		SchemaVersion: ev.SchemaVersion(),
		TraceID:       ev.TraceID(),
		PrevHash:      ev.PrevHash(),
		Hash:          ev.Hash(),
		Payload:       ev.Payload(),
	}
}

func readRange(ctx context.Context, backend ledger.Port, opts ledger.ReadOptions) ([]ledger.PersistedEvent, error) {
	const pageSize = 500
	var all []ledger.PersistedEvent
	offset := opts.Offset
	for {
		page, err := backend.Read(ctx, ledger.ReadOptions{
			StartSequence: opts.StartSequence,
			EndSequence:   opts.EndSequence,
			Branch:        opts.Branch,
			EventType:     opts.EventType,
			Limit:         pageSize,
			Offset:        offset,
		})
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
		offset += pageSize
	}
}

// Export builds a Document over every event matching opts, ordered by
// sequence ascending. now is the export timestamp, injected rather than
// read from the clock.
func Export(ctx context.Context, backend ledger.Port, algorithm string, opts ledger.ReadOptions, now time.Time) (Document, error) {
	events, err := readRange(ctx, backend, opts)
	if err != nil {
		return Document{}, fmt.Errorf("export: reading ledger: %w", err)
	}
	if len(events) == 0 {
		return Document{}, fmt.Errorf("export: no events matched the requested range")
	}

	chainValid := true
	var previous *gevent.Event
	for _, pe := range events {
		result := hashchain.VerifyEventFull(pe.Event, previous)
		if !result.Valid {
			chainValid = false
			break
		}
		current := pe.Event
		previous = &current
	}

	records := make([]EventRecord, len(events))
	for i, pe := range events {
		records[i] = toRecord(pe)
	}

	genesis, latest := events[0].Event.Hash(), events[len(events)-1].Event.Hash()
	return Document{
		Metadata: Metadata{
			ExportID:      uuid.New().String(),
			ExportedAt:    now,
			FormatVersion: FormatVersion,
			TotalEvents:   len(events),
			GenesisHash:   genesis,
			LatestHash:    latest,
			SequenceRange: [2]uint64{events[0].Sequence, events[len(events)-1].Sequence},
		},
		Events: records,
		Verification: Verification{
			HashAlgorithm:   algorithm,
			ChainValid:      chainValid,
			GenesisToLatest: genesis + ".." + latest,
		},
	}, nil
}

// Marshal renders doc as indented JSON, the on-disk/on-wire export
// format.
func Marshal(doc Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

// ErrMalformedDocument is returned by Unmarshal when the input is not a
// well-formed export document.
var ErrMalformedDocument = errors.New("export: malformed export document")

// Unmarshal parses an export document previously produced by Marshal.
func Unmarshal(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return doc, nil
}

// ToPersistedEvents reconstructs ledger.PersistedEvent values from doc,
// for handing to pkg/proof's offline verification.
func ToPersistedEvents(doc Document) ([]ledger.PersistedEvent, error) {
	out := make([]ledger.PersistedEvent, len(doc.Events))
	for i, rec := range doc.Events {
		id, err := uuid.Parse(rec.EventID)
		if err != nil {
			return nil, fmt.Errorf("export: parsing event_id %q: %w", rec.EventID, err)
		}
		meta, err := gevent.NewMetadata(id, rec.EventType, rec.Timestamp, rec.ActorID, rec.SchemaVersion, rec.TraceID)
		if err != nil {
			return nil, fmt.Errorf("export: rebuilding metadata for sequence %d: %w", rec.Sequence, err)
		}
		ev, err := gevent.New(meta, rec.Payload).WithHash(rec.PrevHash, rec.Hash)
		if err != nil {
			return nil, fmt.Errorf("export: rebuilding hash for sequence %d: %w", rec.Sequence, err)
		}
		branch, err := ev.Branch()
		if err != nil {
			return nil, fmt.Errorf("export: deriving branch for sequence %d: %w", rec.Sequence, err)
		}
		out[i] = ledger.PersistedEvent{Event: ev, Sequence: rec.Sequence, Branch: branch}
	}
	return out, nil
}
