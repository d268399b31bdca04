// Copyright 2025 Certen Protocol
//
// Package proof builds and independently verifies completeness proofs
// over a governance event ledger: a hash-chain summary, a Merkle root
// over the full event set, and a structured, replayable verification
// result that can be produced entirely offline from an export.
package proof

import (
	"fmt"

	"github.com/hoyack/governance-ledger/pkg/gevent"
	"github.com/hoyack/governance-ledger/pkg/hashchain"
	"github.com/hoyack/governance-ledger/pkg/ledger"
)

// HashChainProof summarizes the integrity of a contiguous run of
// sequence-ordered events.
type HashChainProof struct {
	GenesisHash   string `json:"genesis_hash"`
	LatestHash    string `json:"latest_hash"`
	TotalEvents   int    `json:"total_events"`
	Algorithm     string `json:"algorithm"`
	ChainValid    bool   `json:"chain_valid"`
	FirstSequence uint64 `json:"first_sequence"`
	LastSequence  uint64 `json:"last_sequence"`
}

// BuildHashChainProof walks events (assumed sequence-ordered ascending)
// and verifies every link, stopping at the first broken link with
// chain_valid set to false. A broken chain is not an error: the returned
// error is nil and carries no link detail. events must be non-empty.
func BuildHashChainProof(algorithm string, events []ledger.PersistedEvent) (HashChainProof, error) {
	if len(events) == 0 {
		return HashChainProof{}, fmt.Errorf("proof: cannot build hash chain proof over zero events")
	}

	result := HashChainProof{
		Algorithm:     algorithm,
		TotalEvents:   len(events),
		GenesisHash:   events[0].Event.Hash(),
		LatestHash:    events[len(events)-1].Event.Hash(),
		FirstSequence: events[0].Sequence,
		LastSequence:  events[len(events)-1].Sequence,
		ChainValid:    true,
	}

	var previous *gevent.Event
	for _, pe := range events {
		verification := hashchain.VerifyEventFull(pe.Event, previous)
		if !verification.Valid {
			result.ChainValid = false
			break
		}
		current := pe.Event
		previous = &current
	}
	return result, nil
}
