// Copyright 2025 Certen Protocol

package merkle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hoyack/governance-ledger/pkg/gevent"
	"github.com/hoyack/governance-ledger/pkg/hashchain"
	"github.com/hoyack/governance-ledger/pkg/ledger"
)

// Epoch records one committed Merkle root over a contiguous, gap-free
// range of ledger sequence numbers.
type Epoch struct {
	EpochID        uint64
	Algorithm      string
	MerkleRoot     string
	StartSequence  uint64
	EndSequence    uint64
	EventCount     int
	PublishedAt    time.Time
	PublishEventID string
}

// EpochRepository persists built epochs and answers whether a given
// epoch id has already been built, so the boundary check does not
// republish on every observed sequence that happens to be a multiple of
// the epoch size.
type EpochRepository interface {
	Get(ctx context.Context, epochID uint64) (*Epoch, bool, error)
	Put(ctx context.Context, epoch Epoch) error
	Latest(ctx context.Context) (*Epoch, error)
}

// InMemoryEpochRepository is a map-backed EpochRepository for tests and
// single-process deployments.
type InMemoryEpochRepository struct {
	mu     sync.RWMutex
	epochs map[uint64]Epoch
	latest uint64
	any    bool
}

// NewInMemoryEpochRepository returns an empty repository.
func NewInMemoryEpochRepository() *InMemoryEpochRepository {
	return &InMemoryEpochRepository{epochs: make(map[uint64]Epoch)}
}

// Get implements EpochRepository.
func (r *InMemoryEpochRepository) Get(ctx context.Context, epochID uint64) (*Epoch, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.epochs[epochID]
	if !ok {
		return nil, false, nil
	}
	return &e, true, nil
}

// Put implements EpochRepository.
func (r *InMemoryEpochRepository) Put(ctx context.Context, epoch Epoch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.epochs[epoch.EpochID] = epoch
	if !r.any || epoch.EpochID > r.latest {
		r.latest = epoch.EpochID
		r.any = true
	}
	return nil
}

// Latest implements EpochRepository.
func (r *InMemoryEpochRepository) Latest(ctx context.Context) (*Epoch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.any {
		return nil, nil
	}
	e := r.epochs[r.latest]
	return &e, nil
}

// EpochManagerConfig configures an EpochManager.
type EpochManagerConfig struct {
	EventsPerEpoch uint64
	Algorithm      string
	PublisherActor string
}

const defaultEventsPerEpoch = 1000

// EpochID returns the epoch a given sequence number belongs to, per
// sequence ranges [e*k+1, (e+1)*k] for epoch size k.
func EpochID(sequence, eventsPerEpoch uint64) uint64 {
	if eventsPerEpoch == 0 {
		eventsPerEpoch = defaultEventsPerEpoch
	}
	return (sequence - 1) / eventsPerEpoch
}

// EpochRange returns the inclusive sequence range [start, end] for epochID.
func EpochRange(epochID, eventsPerEpoch uint64) (start, end uint64) {
	if eventsPerEpoch == 0 {
		eventsPerEpoch = defaultEventsPerEpoch
	}
	start = epochID*eventsPerEpoch + 1
	end = (epochID + 1) * eventsPerEpoch
	return start, end
}

// EpochManager observes ledger growth and builds and publishes Merkle
// epoch roots at event-count boundaries.
type EpochManager struct {
	backend    ledger.Port
	repository EpochRepository
	config     EpochManagerConfig
}

// NewEpochManager constructs an EpochManager. backend is the ledger to
// read ranges from and to append publication events to; it may be a
// validated pipeline or a raw backend.
func NewEpochManager(backend ledger.Port, repository EpochRepository, config EpochManagerConfig) *EpochManager {
	if config.EventsPerEpoch == 0 {
		config.EventsPerEpoch = defaultEventsPerEpoch
	}
	if config.Algorithm == "" {
		config.Algorithm = "blake3"
	}
	if config.PublisherActor == "" {
		config.PublisherActor = "system.epoch-manager"
	}
	return &EpochManager{backend: backend, repository: repository, config: config}
}

// Config returns the manager's effective configuration (after defaults
// are applied), so callers such as the HTTP query surface can compute
// epoch ids without duplicating defaulting logic.
func (m *EpochManager) Config() EpochManagerConfig {
	return m.config
}

// AtBoundary reports whether currentSequence is a positive multiple of
// the configured epoch size and that epoch has not already been built.
func (m *EpochManager) AtBoundary(ctx context.Context, currentSequence uint64) (bool, uint64, error) {
	k := m.config.EventsPerEpoch
	if currentSequence == 0 || currentSequence%k != 0 {
		return false, 0, nil
	}
	epochID := EpochID(currentSequence, k)
	_, built, err := m.repository.Get(ctx, epochID)
	if err != nil {
		return false, 0, err
	}
	return !built, epochID, nil
}

// ErrSequenceGap is returned by Build when the range read from the
// backend is not contiguous.
type ErrSequenceGap struct {
	EpochID  uint64
	Expected uint64
	Got      uint64
}

func (e *ErrSequenceGap) Error() string {
	return fmt.Sprintf("merkle: epoch %d has a sequence gap: expected %d, got %d", e.EpochID, e.Expected, e.Got)
}

// Build reads epochID's sequence range from the backend, verifies it is
// gap-free, and constructs the Merkle tree over member event hashes. It
// does not persist the resulting Epoch or publish a chain event; call
// Publish for that.
func (m *EpochManager) Build(ctx context.Context, epochID uint64) (Epoch, *Tree, error) {
	start, end := EpochRange(epochID, m.config.EventsPerEpoch)

	events, err := m.backend.Read(ctx, ledger.ReadOptions{StartSequence: start, EndSequence: end, Limit: int(end-start) + 1})
	if err != nil {
		return Epoch{}, nil, err
	}
	if len(events) == 0 {
		return Epoch{}, nil, fmt.Errorf("merkle: epoch %d has no events in range [%d, %d]", epochID, start, end)
	}

	expected := start
	hashes := make([]string, 0, len(events))
	for _, pe := range events {
		if pe.Sequence != expected {
			return Epoch{}, nil, &ErrSequenceGap{EpochID: epochID, Expected: expected, Got: pe.Sequence}
		}
		hashes = append(hashes, pe.Event.Hash())
		expected++
	}
	if expected-1 != end {
		return Epoch{}, nil, &ErrSequenceGap{EpochID: epochID, Expected: end, Got: expected - 1}
	}

	tree, err := BuildTree(m.config.Algorithm, hashes)
	if err != nil {
		return Epoch{}, nil, err
	}

	epoch := Epoch{
		EpochID:       epochID,
		Algorithm:     m.config.Algorithm,
		MerkleRoot:    tree.Root(),
		StartSequence: start,
		EndSequence:   events[len(events)-1].Sequence,
		EventCount:    len(events),
	}
	return epoch, tree, nil
}

// Publish builds epochID if necessary, appends a ledger.merkle.root_published
// event whose prev_hash is the ledger's current tip at publication time
// (not the last in-epoch event's hash, so the root commits to everything
// the chain has seen so far, including prior epoch publications), and
// persists the epoch record.
func (m *EpochManager) Publish(ctx context.Context, epochID uint64) (Epoch, error) {
	if _, built, err := m.repository.Get(ctx, epochID); err != nil {
		return Epoch{}, err
	} else if built {
		existing, _, _ := m.repository.Get(ctx, epochID)
		return *existing, nil
	}

	epoch, _, err := m.Build(ctx, epochID)
	if err != nil {
		return Epoch{}, err
	}

	latest, err := m.backend.Latest(ctx)
	prevHash := ""
	if err == nil {
		prevHash = latest.Event.Hash()
	} else if err != ledger.ErrEmptyLedger {
		return Epoch{}, err
	}

	payload := map[string]interface{}{
		"epoch":          epoch.EpochID,
		"merkle_root":    epoch.MerkleRoot,
		"start_sequence": epoch.StartSequence,
		"end_sequence":   epoch.EndSequence,
		"event_count":    epoch.EventCount,
		"algorithm":      epoch.Algorithm,
	}

	ev, err := gevent.Create("ledger.merkle.root_published", time.Now().UTC(), m.config.PublisherActor,
		fmt.Sprintf("epoch-%d", epoch.EpochID), payload)
	if err != nil {
		return Epoch{}, err
	}

	hashed, err := hashchain.AddHashToEvent(ev, prevHash, m.config.Algorithm)
	if err != nil {
		return Epoch{}, err
	}

	persisted, err := m.backend.Append(ctx, hashed)
	if err != nil {
		return Epoch{}, err
	}

	epoch.PublishedAt = persisted.Event.Timestamp()
	epoch.PublishEventID = persisted.Event.EventID().String()

	if err := m.repository.Put(ctx, epoch); err != nil {
		return Epoch{}, err
	}
	return epoch, nil
}
