// Copyright 2025 Certen Protocol

package proof

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hoyack/governance-ledger/pkg/gevent"
	"github.com/hoyack/governance-ledger/pkg/hashchain"
	"github.com/hoyack/governance-ledger/pkg/ledger"
	"github.com/hoyack/governance-ledger/pkg/merkle"
)

// DefaultVerificationInstructions is the human-readable verification
// walkthrough embedded in every generated completeness proof.
const DefaultVerificationInstructions = `To independently verify this proof without trusting this system:
1. Export the full event list covered by first_sequence..last_sequence.
2. Recompute each event's hash from its canonical metadata and payload,
   confirm each prev_hash equals the previous event's hash, and confirm
   the first event's prev_hash is the genesis marker for its algorithm.
3. Confirm the recomputed genesis and latest hashes match this proof's
   genesis_hash and latest_hash.
4. Build a Merkle tree over the recomputed event hashes and confirm the
   root matches this proof's merkle_root.
5. If a derived-state replayer is available, replay the events and
   confirm the result matches independently held expectations.`

// ErrChainBroken is returned by GenerateCompletenessProof when the
// underlying ledger's hash chain fails verification; a proof is never
// generated over a broken chain.
var ErrChainBroken = errors.New("proof: cannot generate a completeness proof over a broken hash chain")

// CompletenessProof is the durable summary produced by
// GenerateCompletenessProof.
type CompletenessProof struct {
	ProofID                        string         `json:"proof_id"`
	GeneratedAt                    time.Time      `json:"generated_at"`
	HashChainProof                 HashChainProof `json:"hash_chain_proof"`
	MerkleRoot                     string         `json:"merkle_root"`
	TotalEvents                    int            `json:"total_events"`
	LatestSequence                 uint64         `json:"latest_sequence"`
	Algorithm                      string         `json:"algorithm"`
	HumanVerificationInstructions  string         `json:"human_verification_instructions"`
	PublishEventID                 string         `json:"publish_event_id"`
}

func readAllSequenceOrdered(ctx context.Context, backend ledger.Port) ([]ledger.PersistedEvent, error) {
	const pageSize = 500
	var all []ledger.PersistedEvent
	offset := 0
	for {
		page, err := backend.Read(ctx, ledger.ReadOptions{Limit: pageSize, Offset: offset})
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

// GenerateCompletenessProof reads the entire ledger, verifies its hash
// chain, computes a Merkle root over every event hash, and appends an
// audit.proof.generated event recording the result. now is the
// generation timestamp, injected rather than read from the clock.
func GenerateCompletenessProof(ctx context.Context, backend ledger.Port, algorithm, requesterID string, now time.Time) (CompletenessProof, error) {
	events, err := readAllSequenceOrdered(ctx, backend)
	if err != nil {
		return CompletenessProof{}, fmt.Errorf("proof: reading ledger: %w", err)
	}
	if len(events) == 0 {
		return CompletenessProof{}, fmt.Errorf("proof: cannot generate a completeness proof over an empty ledger")
	}

	chainProof, err := BuildHashChainProof(algorithm, events)
	if err != nil {
		return CompletenessProof{}, err
	}
	if !chainProof.ChainValid {
		return CompletenessProof{}, ErrChainBroken
	}

	leafHashes := make([]string, len(events))
	for i, pe := range events {
		leafHashes[i] = pe.Event.Hash()
	}
	tree, err := merkle.BuildTree(algorithm, leafHashes)
	if err != nil {
		return CompletenessProof{}, fmt.Errorf("proof: building merkle tree: %w", err)
	}

	proofID := uuid.New().String()
	payload := map[string]interface{}{
		"proof_id":     proofID,
		"requester_id": requesterID,
		"total_events": len(events),
		"merkle_root":  tree.Root(),
		"chain_valid":  chainProof.ChainValid,
	}

	latest, err := backend.Latest(ctx)
	prevHash := ""
	if err == nil {
		prevHash = latest.Event.Hash()
	} else if !errors.Is(err, ledger.ErrEmptyLedger) {
		return CompletenessProof{}, fmt.Errorf("proof: reading latest event: %w", err)
	}

	auditEvent, err := gevent.Create("audit.proof.generated", now, requesterID, proofID, payload)
	if err != nil {
		return CompletenessProof{}, fmt.Errorf("proof: building audit event: %w", err)
	}
	hashed, err := hashchain.AddHashToEvent(auditEvent, prevHash, algorithm)
	if err != nil {
		return CompletenessProof{}, fmt.Errorf("proof: hashing audit event: %w", err)
	}
	persisted, err := backend.Append(ctx, hashed)
	if err != nil {
		return CompletenessProof{}, fmt.Errorf("proof: appending audit event: %w", err)
	}

	return CompletenessProof{
		ProofID:                        proofID,
		GeneratedAt:                    now,
		HashChainProof:                 chainProof,
		MerkleRoot:                     tree.Root(),
		TotalEvents:                    len(events),
		LatestSequence:                 events[len(events)-1].Sequence,
		Algorithm:                      algorithm,
		HumanVerificationInstructions:  DefaultVerificationInstructions,
		PublishEventID:                 persisted.Event.EventID().String(),
	}, nil
}
