// Copyright 2025 Certen Protocol

package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hoyack/governance-ledger/pkg/ledger"
	"github.com/hoyack/governance-ledger/pkg/merkle"
	"github.com/hoyack/governance-ledger/pkg/proof"
)

func newTestEpochManager(backend ledger.Port, eventsPerEpoch uint64) *merkle.EpochManager {
	return merkle.NewEpochManager(backend, merkle.NewInMemoryEpochRepository(), merkle.EpochManagerConfig{
		EventsPerEpoch: eventsPerEpoch,
		Algorithm:      "blake3",
	})
}

func TestHandleGenerateProof_ProducesCompletenessProof(t *testing.T) {
	backend := ledger.NewKVBackend(newMapKV())
	seedLedger(t, backend, 5)
	epochs := newTestEpochManager(backend, 1000)
	h := NewProofHandlers(backend, epochs, "blake3", "system.test-requester")

	req := httptest.NewRequest(http.MethodPost, "/api/proofs/completeness", nil)
	rr := httptest.NewRecorder()
	h.HandleGenerateProof(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rr.Code, rr.Body.String())
	}
	var body struct {
		TotalEvents int `json:"total_events"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.TotalEvents != 5 {
		t.Errorf("total_events = %d, want 5", body.TotalEvents)
	}
}

func TestHandleGenerateProof_RejectsWrongMethod(t *testing.T) {
	backend := ledger.NewKVBackend(newMapKV())
	epochs := newTestEpochManager(backend, 1000)
	h := NewProofHandlers(backend, epochs, "blake3", "system.test-requester")

	req := httptest.NewRequest(http.MethodGet, "/api/proofs/completeness", nil)
	rr := httptest.NewRecorder()
	h.HandleGenerateProof(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rr.Code)
	}
}

func TestHandleInclusionProof_ReturnsProofForExistingEvent(t *testing.T) {
	backend := ledger.NewKVBackend(newMapKV())
	seedLedger(t, backend, 4)
	epochs := newTestEpochManager(backend, 1000)
	h := NewProofHandlers(backend, epochs, "blake3", "system.test-requester")

	req := httptest.NewRequest(http.MethodGet, "/api/proofs/inclusion?sequence=2", nil)
	rr := httptest.NewRecorder()
	h.HandleInclusionProof(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rr.Code, rr.Body.String())
	}
}

func TestHandleInclusionProof_RejectsMissingSequence(t *testing.T) {
	backend := ledger.NewKVBackend(newMapKV())
	epochs := newTestEpochManager(backend, 1000)
	h := NewProofHandlers(backend, epochs, "blake3", "system.test-requester")

	req := httptest.NewRequest(http.MethodGet, "/api/proofs/inclusion", nil)
	rr := httptest.NewRecorder()
	h.HandleInclusionProof(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if decodeError(t, rr).Code != "INVALID_SEQUENCE" {
		t.Errorf("error code = %q, want INVALID_SEQUENCE", decodeError(t, rr).Code)
	}
}

func TestHandleInclusionProof_UnknownSequenceYields404(t *testing.T) {
	backend := ledger.NewKVBackend(newMapKV())
	seedLedger(t, backend, 2)
	epochs := newTestEpochManager(backend, 1000)
	h := NewProofHandlers(backend, epochs, "blake3", "system.test-requester")

	req := httptest.NewRequest(http.MethodGet, "/api/proofs/inclusion?sequence=99", nil)
	rr := httptest.NewRecorder()
	h.HandleInclusionProof(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestHandleVerifyCompleteness_RoundTripsGeneratedProof(t *testing.T) {
	backend := ledger.NewKVBackend(newMapKV())
	seedLedger(t, backend, 3)
	epochs := newTestEpochManager(backend, 1000)
	h := NewProofHandlers(backend, epochs, "blake3", "system.test-requester")

	genReq := httptest.NewRequest(http.MethodPost, "/api/proofs/completeness", nil)
	genRR := httptest.NewRecorder()
	h.HandleGenerateProof(genRR, genReq)
	if genRR.Code != http.StatusOK {
		t.Fatalf("generate status = %d", genRR.Code)
	}

	verifyReq := httptest.NewRequest(http.MethodPost, "/api/proofs/verify", genRR.Body)
	verifyRR := httptest.NewRecorder()
	h.HandleVerifyCompleteness(verifyRR, verifyReq)

	if verifyRR.Code != http.StatusOK {
		t.Fatalf("verify status = %d, want 200, body=%s", verifyRR.Code, verifyRR.Body.String())
	}
	var result proof.VerificationResult
	if err := json.NewDecoder(verifyRR.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Status != proof.StatusValid {
		t.Errorf("status = %q, want %q", result.Status, proof.StatusValid)
	}
}

func TestHandleVerifyCompleteness_RejectsMalformedBody(t *testing.T) {
	backend := ledger.NewKVBackend(newMapKV())
	epochs := newTestEpochManager(backend, 1000)
	h := NewProofHandlers(backend, epochs, "blake3", "system.test-requester")

	req := httptest.NewRequest(http.MethodPost, "/api/proofs/verify", strings.NewReader("not json"))
	rr := httptest.NewRecorder()
	h.HandleVerifyCompleteness(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if decodeError(t, rr).Code != "MALFORMED_PROOF" {
		t.Errorf("error code = %q, want MALFORMED_PROOF", decodeError(t, rr).Code)
	}
}
