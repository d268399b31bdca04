// Copyright 2025 Certen Protocol
//
// KV Adapter for CometBFT Database Integration
// Wraps CometBFT's dbm.DB interface to implement ledger.KV

package kvdb

import (
	"fmt"

	dbm "github.com/cometbft/cometbft-db"
)

// KVAdapter wraps a CometBFT dbm.DB and exposes the ledger.KV interface,
// so ledger.KVBackend can use CometBFT's pluggable storage engines
// (goleveldb, boltdb, memdb) as its persistence layer without depending
// on CometBFT directly.
type KVAdapter struct {
	db dbm.DB
}

// NewKVAdapter creates a new KVAdapter for the given underlying DB. db
// must not be nil: a nil-backed adapter has no durable store to defer
// to, and KVBackend's correctness (gap-free sequences, durable appends)
// depends on every Get/Set actually reaching storage.
func NewKVAdapter(db dbm.DB) *KVAdapter {
	if db == nil {
		panic("kvdb: NewKVAdapter called with a nil dbm.DB")
	}
	return &KVAdapter{db: db}
}

// Get implements ledger.KV.Get.
func (a *KVAdapter) Get(key []byte) ([]byte, error) {
	v, err := a.db.Get(key)
	if err != nil {
		return nil, fmt.Errorf("kvdb: get key %x: %w", key, err)
	}
	// v may be nil if key not found – that's fine, ledger treats nil as "not present".
	return v, nil
}

// Set implements ledger.KV.Set. Writes go through SetSync so an Append
// that returns success has actually reached durable storage before the
// caller's sequence number is handed out.
func (a *KVAdapter) Set(key, value []byte) error {
	if err := a.db.SetSync(key, value); err != nil {
		return fmt.Errorf("kvdb: set key %x: %w", key, err)
	}
	return nil
}