// Package hashchain computes and verifies the cryptographic links between
// governance events: hash = algorithm(canonical(metadata_without_hash) +
// canonical(payload)), with each event's prev_hash tying it to the one
// before.
package hashchain

import (
	"fmt"

	"github.com/hoyack/governance-ledger/pkg/canonjson"
	"github.com/hoyack/governance-ledger/pkg/gevent"
	"github.com/hoyack/governance-ledger/pkg/hashalgo"
)

// VerificationResult reports the outcome of hashing or chain-link checks
// against a single event.
type VerificationResult struct {
	Valid          bool
	EventHashValid bool
	ChainLinkValid bool
	ErrorMessage   string
	ExpectedHash   string
	ActualHash     string
}

func contentFor(metadataWithoutHash, payload map[string]interface{}) ([]byte, error) {
	metaBytes, err := canonjson.Canonicalize(metadataWithoutHash)
	if err != nil {
		return nil, fmt.Errorf("hashchain: canonicalize metadata: %w", err)
	}
	payloadBytes, err := canonjson.Canonicalize(payload)
	if err != nil {
		return nil, &gevent.ConstitutionalViolation{Field: "payload", Message: "payload is not canonically serializable: " + err.Error()}
	}
	return append(metaBytes, payloadBytes...), nil
}

// ComputeEventHashWithPrev computes the hash an event would carry if its
// prev_hash were prevHash, without requiring the event to already have one
// set. This is how a new event in the chain gets its hash assigned.
func ComputeEventHashWithPrev(ev gevent.Event, prevHash, algorithm string) (string, error) {
	if !hashalgo.ValidateFormat(prevHash) && !hashalgo.IsGenesisHash(prevHash) {
		return "", fmt.Errorf("hashchain: invalid prev_hash format %q, expected algo:hex or genesis marker", prevHash)
	}
	meta := ev.Metadata()
	meta.PrevHash = prevHash
	content, err := contentFor(meta.ToHashMap(false), ev.Payload())
	if err != nil {
		return "", err
	}
	return hashalgo.Compute(algorithm, content)
}

// ComputeEventHash computes the hash of an event that already has a
// prev_hash set.
func ComputeEventHash(ev gevent.Event, algorithm string) (string, error) {
	if ev.PrevHash() == "" {
		return "", fmt.Errorf("hashchain: cannot compute event hash without prev_hash; use ComputeEventHashWithPrev for unchained events")
	}
	content, err := contentFor(ev.Metadata().ToHashMap(false), ev.Payload())
	if err != nil {
		return "", err
	}
	return hashalgo.Compute(algorithm, content)
}

// VerifyEventHash recomputes an event's hash from its content and compares
// it to the stored value. The algorithm is taken from the hash's own
// prefix, so mixed-algorithm chains still verify correctly event by event.
func VerifyEventHash(ev gevent.Event) VerificationResult {
	if ev.Hash() == "" {
		return VerificationResult{Valid: false, EventHashValid: false, ChainLinkValid: true, ErrorMessage: "event has no hash to verify"}
	}
	if ev.PrevHash() == "" {
		return VerificationResult{Valid: false, EventHashValid: false, ChainLinkValid: false, ErrorMessage: "event has no prev_hash"}
	}
	algorithm := hashalgo.ExtractAlgorithm(ev.Hash())
	content, err := contentFor(ev.Metadata().ToHashMap(false), ev.Payload())
	if err != nil {
		return VerificationResult{Valid: false, EventHashValid: false, ChainLinkValid: false, ErrorMessage: err.Error()}
	}
	computed, err := hashalgo.Compute(algorithm, content)
	if err != nil {
		return VerificationResult{Valid: false, EventHashValid: false, ChainLinkValid: false, ErrorMessage: err.Error()}
	}
	if computed == ev.Hash() {
		return VerificationResult{Valid: true, EventHashValid: true, ChainLinkValid: true, ExpectedHash: ev.Hash(), ActualHash: computed}
	}
	return VerificationResult{
		Valid: false, EventHashValid: false, ChainLinkValid: true,
		ErrorMessage: "hash mismatch, event content does not match its stored hash",
		ExpectedHash: ev.Hash(), ActualHash: computed,
	}
}

// VerifyChainLink checks that current's prev_hash correctly links to
// previous's hash. previous == nil means current is treated as genesis.
func VerifyChainLink(current gevent.Event, previous *gevent.Event) VerificationResult {
	if previous == nil {
		if hashalgo.IsGenesisPrevHash(current.PrevHash()) {
			return VerificationResult{Valid: true, EventHashValid: true, ChainLinkValid: true}
		}
		return VerificationResult{
			Valid: false, EventHashValid: true, ChainLinkValid: false,
			ErrorMessage: "genesis event must have a genesis prev_hash",
			ActualHash:   current.PrevHash(),
		}
	}
	if previous.Hash() == "" {
		return VerificationResult{Valid: false, EventHashValid: true, ChainLinkValid: false, ErrorMessage: "previous event has no hash to link to"}
	}
	if current.PrevHash() == previous.Hash() {
		return VerificationResult{Valid: true, EventHashValid: true, ChainLinkValid: true}
	}
	return VerificationResult{
		Valid: false, EventHashValid: true, ChainLinkValid: false,
		ErrorMessage: "chain link broken, prev_hash does not match previous event's hash",
		ExpectedHash: previous.Hash(), ActualHash: current.PrevHash(),
	}
}

// VerifyEventFull verifies both an event's own hash and its link to the
// previous event.
func VerifyEventFull(current gevent.Event, previous *gevent.Event) VerificationResult {
	hashResult := VerifyEventHash(current)
	if !hashResult.Valid {
		return hashResult
	}
	linkResult := VerifyChainLink(current, previous)
	if !linkResult.Valid {
		return linkResult
	}
	return VerificationResult{Valid: true, EventHashValid: true, ChainLinkValid: true}
}

// AddHashToEvent returns a new event with hash fields populated, chaining
// it off prevHash (the empty string means genesis). It rejects events that
// are already hashed.
func AddHashToEvent(ev gevent.Event, prevHash, algorithm string) (gevent.Event, error) {
	actualPrevHash := prevHash
	if actualPrevHash == "" {
		actualPrevHash = hashalgo.GenesisHash(algorithm)
	}
	hash, err := ComputeEventHashWithPrev(ev, actualPrevHash, algorithm)
	if err != nil {
		return gevent.Event{}, err
	}
	return ev.WithHash(actualPrevHash, hash)
}

// ChainEvents hashes a list of not-yet-hashed events in order, the first
// getting a genesis prev_hash and each subsequent one chaining off the
// previous result.
func ChainEvents(events []gevent.Event, algorithm string) ([]gevent.Event, error) {
	if len(events) == 0 {
		return nil, nil
	}
	result := make([]gevent.Event, 0, len(events))
	prevHash := ""
	for _, ev := range events {
		hashed, err := AddHashToEvent(ev, prevHash, algorithm)
		if err != nil {
			return nil, err
		}
		result = append(result, hashed)
		prevHash = hashed.Hash()
	}
	return result, nil
}
