// Copyright 2025 Certen Protocol
//
// Proof API Handlers
// Provides HTTP endpoints for completeness proof generation, Merkle
// inclusion proofs, and independent offline verification.

package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/hoyack/governance-ledger/pkg/ledger"
	"github.com/hoyack/governance-ledger/pkg/ledgermetrics"
	"github.com/hoyack/governance-ledger/pkg/merkle"
	"github.com/hoyack/governance-ledger/pkg/proof"
)

// ProofHandlers provides HTTP handlers for proof generation and
// verification endpoints.
type ProofHandlers struct {
	backend     ledger.Port
	epochs      *merkle.EpochManager
	algorithm   string
	requesterID string
}

// NewProofHandlers creates new proof handlers.
func NewProofHandlers(backend ledger.Port, epochs *merkle.EpochManager, algorithm, requesterID string) *ProofHandlers {
	return &ProofHandlers{backend: backend, epochs: epochs, algorithm: algorithm, requesterID: requesterID}
}

// HandleGenerateProof handles POST /api/proofs/completeness, generating a
// CompletenessProof over the whole ledger and publishing its audit event.
func (h *ProofHandlers) HandleGenerateProof(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}

	requester := h.requesterID
	if v := r.URL.Query().Get("requester_id"); v != "" {
		requester = v
	}

	p, err := proof.GenerateCompletenessProof(r.Context(), h.backend, h.algorithm, requester, time.Now().UTC())
	if err != nil {
		ledgermetrics.ProofsGeneratedTotal.WithLabelValues("error").Inc()
		writeError(w, http.StatusInternalServerError, "PROOF_GENERATION_FAILED", err.Error())
		return
	}
	ledgermetrics.ProofsGeneratedTotal.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, p)
}

// HandleInclusionProof handles GET /api/proofs/inclusion?sequence={n},
// returning a Merkle inclusion proof for the epoch the sequence falls in.
func (h *ProofHandlers) HandleInclusionProof(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	raw := r.URL.Query().Get("sequence")
	sequence, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_SEQUENCE", "invalid sequence parameter")
		return
	}

	pe, err := h.backend.BySequence(r.Context(), sequence)
	if err != nil {
		writeError(w, http.StatusNotFound, "EVENT_NOT_FOUND", "event not found")
		return
	}

	cfg := h.epochs.Config()
	epochID := merkle.EpochID(sequence, cfg.EventsPerEpoch)
	_, tree, err := h.epochs.Build(r.Context(), epochID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "EPOCH_BUILD_FAILED", err.Error())
		return
	}
	inclusionProof, err := tree.GenerateProofByHash(pe.Event.Hash())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "PROOF_GENERATION_FAILED", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, inclusionProof)
}

// HandleVerifyCompleteness handles POST /api/proofs/verify. The request
// body is a proof.CompletenessProof previously returned by
// HandleGenerateProof; verification re-reads the ledger up to the proof's
// latest_sequence and rechecks it independently of any trust in this
// process's own bookkeeping.
func (h *ProofHandlers) HandleVerifyCompleteness(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}

	var submitted proof.CompletenessProof
	if err := decodeJSONBody(r, &submitted); err != nil {
		writeError(w, http.StatusBadRequest, "MALFORMED_PROOF", "malformed proof body: "+err.Error())
		return
	}

	events, err := h.backend.Read(r.Context(), ledger.ReadOptions{EndSequence: submitted.LatestSequence, Limit: int(submitted.TotalEvents) + 1})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "READ_FAILED", err.Error())
		return
	}

	result, err := proof.OfflineVerify(submitted, events, nil, time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "VERIFICATION_FAILED", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}
