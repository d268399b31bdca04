// Copyright 2025 Certen Protocol
//
// Package ledger provides sentinel errors for ledger operations.

package ledger

import "errors"

// Sentinel errors for ledger operations.
var (
	// ErrNotFound is returned when a requested event is not present.
	ErrNotFound = errors.New("ledger: event not found")

	// ErrEmptyLedger is returned by Latest when no event has been appended yet.
	ErrEmptyLedger = errors.New("ledger: empty")

	// ErrSequenceConflict reports an append that raced ahead of the
	// caller's expected sequence. KVBackend and PostgresBackend serialize
	// sequence assignment under a lock and never return it.
	ErrSequenceConflict = errors.New("ledger: sequence conflict, retry append")

	// ErrInvalidEvent is returned by Append when given a structurally
	// invalid event (e.g. missing hash fields).
	ErrInvalidEvent = errors.New("ledger: invalid event")
)
