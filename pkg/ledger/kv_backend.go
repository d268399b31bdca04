// Copyright 2025 Certen Protocol

package ledger

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hoyack/governance-ledger/pkg/gevent"
	"github.com/hoyack/governance-ledger/pkg/ledgermetrics"
)

// KV is the minimal key-value capability KVBackend needs: Get and Set,
// deliberately with no Delete. github.com/cometbft/cometbft-db's dbm.DB
// (wrapped by pkg/kvdb.KVAdapter) satisfies this.
type KV interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
}

var (
	keyLatestSeq     = []byte("ledger:seq:latest")
	keyEventPrefix   = []byte("ledger:event:")
	keyIDIndexPrefix = []byte("ledger:index:id:")
)

func eventKey(sequence uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, sequence)
	return append(append([]byte{}, keyEventPrefix...), b...)
}

func idIndexKey(id uuid.UUID) []byte {
	return append(append([]byte{}, keyIDIndexPrefix...), []byte(id.String())...)
}

// KVBackend implements Port over a KV capability store, backed in
// practice by github.com/cometbft/cometbft-db.
//
// CONCURRENCY: unlike the corpus's original LedgerStore, which documented
// single-writer access as the caller's responsibility, KVBackend enforces
// it itself with an internal mutex — Append, and the sequence counter it
// maintains, are the only mutable state here and concurrent producers are
// expected in this domain.
type KVBackend struct {
	mu sync.Mutex
	kv KV
}

// NewKVBackend wraps kv as a Port.
func NewKVBackend(kv KV) *KVBackend {
	return &KVBackend{kv: kv}
}

func (b *KVBackend) loadLatestSeq() (uint64, error) {
	raw, err := b.kv.Get(keyLatestSeq)
	if err != nil {
		return 0, fmt.Errorf("ledger: load latest sequence: %w", err)
	}
	if len(raw) == 0 {
		return 0, nil
	}
	if len(raw) != 8 {
		return 0, fmt.Errorf("ledger: corrupt latest sequence value, want 8 bytes got %d", len(raw))
	}
	return binary.BigEndian.Uint64(raw), nil
}

func (b *KVBackend) loadBySequence(sequence uint64) (PersistedEvent, error) {
	raw, err := b.kv.Get(eventKey(sequence))
	if err != nil {
		return PersistedEvent{}, fmt.Errorf("ledger: get event at sequence %d: %w", sequence, err)
	}
	if len(raw) == 0 {
		return PersistedEvent{}, ErrNotFound
	}
	var pe PersistedEvent
	if err := json.Unmarshal(raw, &pe); err != nil {
		return PersistedEvent{}, fmt.Errorf("ledger: unmarshal event at sequence %d: %w", sequence, err)
	}
	return pe, nil
}

// Append assigns the next sequence number and persists event. Events
// already carrying hash fields are expected — Append does not compute
// them, it only rejects structurally incomplete events.
func (b *KVBackend) Append(ctx context.Context, event gevent.Event) (pe PersistedEvent, err error) {
	started := time.Now()
	defer func() {
		ledgermetrics.AppendLatencySeconds.Observe(time.Since(started).Seconds())
		if err != nil {
			ledgermetrics.AppendTotal.WithLabelValues("error").Inc()
			return
		}
		ledgermetrics.AppendTotal.WithLabelValues("ok").Inc()
	}()

	if !event.HasHash() {
		return PersistedEvent{}, fmt.Errorf("%w: event has no hash fields set", ErrInvalidEvent)
	}
	branch, err := event.Branch()
	if err != nil {
		return PersistedEvent{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	latest, err := b.loadLatestSeq()
	if err != nil {
		return PersistedEvent{}, err
	}
	next := latest + 1

	pe = PersistedEvent{Event: event, Sequence: next, Branch: branch}
	raw, err := json.Marshal(pe)
	if err != nil {
		return PersistedEvent{}, fmt.Errorf("ledger: marshal persisted event: %w", err)
	}
	if err := b.kv.Set(eventKey(next), raw); err != nil {
		return PersistedEvent{}, fmt.Errorf("ledger: persist event at sequence %d: %w", next, err)
	}
	seqBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(seqBytes, next)
	if err := b.kv.Set(idIndexKey(event.EventID()), seqBytes); err != nil {
		return PersistedEvent{}, fmt.Errorf("ledger: index event id at sequence %d: %w", next, err)
	}
	if err := b.kv.Set(keyLatestSeq, seqBytes); err != nil {
		return PersistedEvent{}, fmt.Errorf("ledger: advance latest sequence to %d: %w", next, err)
	}
	return pe, nil
}

// Latest returns the most recently appended event.
func (b *KVBackend) Latest(ctx context.Context) (PersistedEvent, error) {
	b.mu.Lock()
	latest, err := b.loadLatestSeq()
	b.mu.Unlock()
	if err != nil {
		return PersistedEvent{}, err
	}
	if latest == 0 {
		return PersistedEvent{}, ErrEmptyLedger
	}
	return b.BySequence(ctx, latest)
}

// MaxSequence returns the highest assigned sequence, or 0 for an empty ledger.
func (b *KVBackend) MaxSequence(ctx context.Context) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loadLatestSeq()
}

// BySequence looks up a single event by its sequence number.
func (b *KVBackend) BySequence(ctx context.Context, sequence uint64) (PersistedEvent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loadBySequence(sequence)
}

// ByID looks up a single event by its event_id.
func (b *KVBackend) ByID(ctx context.Context, id uuid.UUID) (PersistedEvent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	raw, err := b.kv.Get(idIndexKey(id))
	if err != nil {
		return PersistedEvent{}, fmt.Errorf("ledger: get id index for %s: %w", id, err)
	}
	if len(raw) != 8 {
		return PersistedEvent{}, ErrNotFound
	}
	return b.loadBySequence(binary.BigEndian.Uint64(raw))
}

// Read scans the sequence range implied by opts and returns matching
// events, applying limit/offset after filtering.
func (b *KVBackend) Read(ctx context.Context, opts ReadOptions) ([]PersistedEvent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	max, err := b.loadLatestSeq()
	if err != nil {
		return nil, err
	}
	start := opts.StartSequence
	if start == 0 {
		start = 1
	}
	end := opts.EndSequence
	if end == 0 || end > max {
		end = max
	}

	var matched []PersistedEvent
	for seq := start; seq <= end; seq++ {
		pe, err := b.loadBySequence(seq)
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		if opts.matches(pe) {
			matched = append(matched, pe)
		}
	}

	return paginate(matched, opts), nil
}

// Count scans the same range as Read but only counts matches.
func (b *KVBackend) Count(ctx context.Context, opts ReadOptions) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	max, err := b.loadLatestSeq()
	if err != nil {
		return 0, err
	}
	start := opts.StartSequence
	if start == 0 {
		start = 1
	}
	end := opts.EndSequence
	if end == 0 || end > max {
		end = max
	}

	var count uint64
	for seq := start; seq <= end; seq++ {
		pe, err := b.loadBySequence(seq)
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return 0, err
		}
		if opts.matches(pe) {
			count++
		}
	}
	return count, nil
}

func paginate(matched []PersistedEvent, opts ReadOptions) []PersistedEvent {
	if opts.Offset >= len(matched) {
		return nil
	}
	matched = matched[opts.Offset:]
	if limit := opts.limit(); limit < len(matched) {
		matched = matched[:limit]
	}
	return matched
}
