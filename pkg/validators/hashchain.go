package validators

import (
	"context"
	"errors"

	"github.com/hoyack/governance-ledger/pkg/gevent"
	"github.com/hoyack/governance-ledger/pkg/hashalgo"
	"github.com/hoyack/governance-ledger/pkg/hashchain"
	"github.com/hoyack/governance-ledger/pkg/ledger"
)

// LatestHashSource is the narrow slice of ledger.Port the hash chain
// validator needs: the current tip of the chain. Accepting the narrow
// interface rather than ledger.Port lets tests fake it without a full
// backend.
type LatestHashSource interface {
	Latest(ctx context.Context) (ledger.PersistedEvent, error)
}

// HashChainValidator rejects events whose hash does not correctly chain
// from the ledger's current tip.
type HashChainValidator struct {
	source         LatestHashSource
	algorithm      string
	skipValidation bool
}

// NewHashChainValidator constructs a HashChainValidator. algorithm is the
// hash algorithm events are expected to use.
func NewHashChainValidator(source LatestHashSource, algorithm string, skipValidation bool) *HashChainValidator {
	return &HashChainValidator{source: source, algorithm: algorithm, skipValidation: skipValidation}
}

// Validate checks event's prev_hash against the ledger's current tip and
// recomputes event's own hash to confirm it matches what was stored.
func (v *HashChainValidator) Validate(ctx context.Context, event gevent.Event) error {
	if v.skipValidation {
		return nil
	}
	if !event.HasHash() {
		return &HashChainBreakError{EventID: event.EventID(), Reason: "event has no hash assigned"}
	}

	latest, err := v.source.Latest(ctx)
	latestSequence := uint64(0)
	var previous *gevent.Event
	if err == nil {
		previous = &latest.Event
		latestSequence = latest.Sequence
	} else if !errors.Is(err, ledger.ErrEmptyLedger) {
		return err
	}

	result := hashchain.VerifyChainLink(event, previous)
	if !result.Valid {
		return &HashChainBreakError{
			EventID: event.EventID(), ExpectedHash: result.ExpectedHash, ActualHash: result.ActualHash,
			LatestSequence: latestSequence, Reason: result.ErrorMessage,
		}
	}

	if hv := hashchain.VerifyEventHash(event); !hv.EventHashValid {
		return &HashChainBreakError{
			EventID: event.EventID(), ExpectedHash: hv.ExpectedHash, ActualHash: hv.ActualHash,
			LatestSequence: latestSequence, Reason: hv.ErrorMessage,
		}
	}

	algo, _, err := hashalgo.Split(event.Hash())
	if err != nil {
		return &HashChainBreakError{EventID: event.EventID(), ActualHash: event.Hash(), LatestSequence: latestSequence, Reason: err.Error()}
	}
	if v.algorithm != "" && algo != v.algorithm {
		return &HashChainBreakError{
			EventID: event.EventID(), ActualHash: event.Hash(), LatestSequence: latestSequence,
			Reason: "event hashed with algorithm " + algo + ", expected " + v.algorithm,
		}
	}
	return nil
}
