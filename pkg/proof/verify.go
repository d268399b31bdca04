// Copyright 2025 Certen Protocol

package proof

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hoyack/governance-ledger/pkg/gevent"
	"github.com/hoyack/governance-ledger/pkg/integrity"
	"github.com/hoyack/governance-ledger/pkg/ledger"
	"github.com/hoyack/governance-ledger/pkg/ledgermetrics"
	"github.com/hoyack/governance-ledger/pkg/merkle"
)

// IssueType classifies a defect found during offline verification.
type IssueType string

const (
	BrokenLink     IssueType = "BROKEN_LINK"
	SequenceGap    IssueType = "SEQUENCE_GAP"
	MerkleMismatch IssueType = "MERKLE_MISMATCH"
	StateMismatch  IssueType = "STATE_MISMATCH"
)

// Issue is one defect found during offline verification.
type Issue struct {
	Type           IssueType `json:"type"`
	EventID        string    `json:"event_id,omitempty"`
	SequenceNumber uint64    `json:"sequence_number,omitempty"`
	Expected       string    `json:"expected,omitempty"`
	Actual         string    `json:"actual,omitempty"`
}

// Status is the overall outcome of an offline verification pass.
type Status string

const (
	StatusValid   Status = "VALID"
	StatusInvalid Status = "INVALID"
	StatusPartial Status = "PARTIAL"
)

// VerificationResult is the structured outcome of OfflineVerify.
type VerificationResult struct {
	VerificationID      string    `json:"verification_id"`
	VerifiedAt          time.Time `json:"verified_at"`
	Status              Status    `json:"status"`
	HashChainValid      bool      `json:"hash_chain_valid"`
	MerkleValid         bool      `json:"merkle_valid"`
	SequenceComplete    bool      `json:"sequence_complete"`
	StateReplayValid    bool      `json:"state_replay_valid"`
	Issues              []Issue   `json:"issues"`
	TotalEventsVerified int       `json:"total_events_verified"`
}

// Replayer derives caller-defined state from an ordered event list. The
// verification path uses it only to confirm deterministic replay; it
// never inspects or depends on the derived state's shape.
type Replayer interface {
	Replay(events []gevent.Event) (interface{}, error)
}

// OfflineVerify checks proof against events with no ledger or network
// access: it recomputes the hash chain and Merkle root purely from
// events and compares them to what proof claims. If replayer is
// non-nil, it also replays events and records a STATE_MISMATCH issue
// on replay error; a nil replayer leaves state_replay_valid true since
// no replay was requested.
func OfflineVerify(proof CompletenessProof, events []ledger.PersistedEvent, replayer Replayer, now time.Time) (VerificationResult, error) {
	result := VerificationResult{
		VerificationID:      uuid.New().String(),
		VerifiedAt:          now,
		TotalEventsVerified: len(events),
		StateReplayValid:    true,
	}

	if proof.TotalEvents != len(events) {
		result.Issues = append(result.Issues, Issue{
			Type:     SequenceGap,
			Expected: fmt.Sprintf("%d events", proof.TotalEvents),
			Actual:   fmt.Sprintf("%d events", len(events)),
		})
	}

	for _, b := range integrity.DetectChainBreaks(events) {
		ledgermetrics.HashBreaksDetectedTotal.WithLabelValues(string(b.Category)).Inc()
		issueType := BrokenLink
		if b.Category == integrity.SequenceGap {
			issueType = SequenceGap
		}
		result.Issues = append(result.Issues, Issue{
			Type:           issueType,
			EventID:        b.EventID,
			SequenceNumber: b.Sequence,
			Expected:       b.ExpectedHash,
			Actual:         b.ActualHash,
		})
	}
	result.SequenceComplete = !hasIssueType(result.Issues, SequenceGap)
	result.HashChainValid = !hasIssueType(result.Issues, BrokenLink)

	if len(events) > 0 {
		recomputed, err := BuildHashChainProof(proof.Algorithm, events)
		if err != nil {
			return VerificationResult{}, err
		}
		if recomputed.GenesisHash != proof.HashChainProof.GenesisHash || recomputed.LatestHash != proof.HashChainProof.LatestHash {
			result.HashChainValid = false
			result.Issues = append(result.Issues, Issue{
				Type:     BrokenLink,
				Expected: proof.HashChainProof.GenesisHash + ".." + proof.HashChainProof.LatestHash,
				Actual:   recomputed.GenesisHash + ".." + recomputed.LatestHash,
			})
		}

		leafHashes := make([]string, len(events))
		for i, pe := range events {
			leafHashes[i] = pe.Event.Hash()
		}
		tree, err := merkle.BuildTree(proof.Algorithm, leafHashes)
		if err != nil {
			return VerificationResult{}, err
		}
		result.MerkleValid = tree.Root() == proof.MerkleRoot
		if !result.MerkleValid {
			result.Issues = append(result.Issues, Issue{
				Type:     MerkleMismatch,
				Expected: proof.MerkleRoot,
				Actual:   tree.Root(),
			})
		}
	}

	if replayer != nil {
		plainEvents := make([]gevent.Event, len(events))
		for i, pe := range events {
			plainEvents[i] = pe.Event
		}
		if _, err := replayer.Replay(plainEvents); err != nil {
			result.StateReplayValid = false
			result.Issues = append(result.Issues, Issue{Type: StateMismatch, Expected: "successful replay", Actual: err.Error()})
		}
	}

	result.Status = classify(result)
	return result, nil
}

func hasIssueType(issues []Issue, t IssueType) bool {
	for _, issue := range issues {
		if issue.Type == t {
			return true
		}
	}
	return false
}

func classify(r VerificationResult) Status {
	if len(r.Issues) == 0 {
		return StatusValid
	}
	if !r.HashChainValid && !r.MerkleValid {
		return StatusInvalid
	}
	return StatusPartial
}
