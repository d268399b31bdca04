// Copyright 2025 Certen Protocol

package ledger

import (
	"context"

	"github.com/google/uuid"

	"github.com/hoyack/governance-ledger/pkg/gevent"
)

// Port is the append-only ledger surface. No implementation may expose an
// update, delete, clear, truncate, or purge operation derived from this
// interface — storage-layer enforcement (triggers, revoked grants) backs
// that promise up, because an interface by itself cannot stop a caller
// from reaching around it to the concrete type.
type Port interface {
	// Append assigns the next sequence number to event and persists it.
	// Implementations serialize concurrent calls so sequence assignment is
	// gap-free and collision-free.
	Append(ctx context.Context, event gevent.Event) (PersistedEvent, error)

	// Latest returns the most recently appended event, or ErrEmptyLedger.
	Latest(ctx context.Context) (PersistedEvent, error)

	// MaxSequence returns the highest assigned sequence number, or 0 for
	// an empty ledger.
	MaxSequence(ctx context.Context) (uint64, error)

	// Read returns events matching opts, ordered by sequence ascending.
	Read(ctx context.Context, opts ReadOptions) ([]PersistedEvent, error)

	// BySequence looks up a single event by its assigned sequence number.
	BySequence(ctx context.Context, sequence uint64) (PersistedEvent, error)

	// ByID looks up a single event by its event_id.
	ByID(ctx context.Context, id uuid.UUID) (PersistedEvent, error)

	// Count returns the number of events matching opts (paging fields in
	// opts are ignored for counting purposes).
	Count(ctx context.Context, opts ReadOptions) (uint64, error)
}
