// Copyright 2025 Certen Protocol

package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hoyack/governance-ledger/pkg/export"
	"github.com/hoyack/governance-ledger/pkg/ledger"
)

func TestHandleExport_ProducesDocumentOverFullLedger(t *testing.T) {
	backend := ledger.NewKVBackend(newMapKV())
	seedLedger(t, backend, 4)
	h := NewExportHandlers(backend, "blake3")

	req := httptest.NewRequest(http.MethodGet, "/api/export", nil)
	rr := httptest.NewRecorder()
	h.HandleExport(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type = %q, want application/json", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); cd == "" {
		t.Errorf("content-disposition header missing")
	}

	var doc export.Document
	if err := json.NewDecoder(rr.Body).Decode(&doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(doc.Events) != 4 {
		t.Errorf("events = %d, want 4", len(doc.Events))
	}
	if doc.Metadata.ExportID == "" {
		t.Errorf("export id is empty")
	}
}

func TestHandleExport_RejectsWrongMethod(t *testing.T) {
	h := NewExportHandlers(ledger.NewKVBackend(newMapKV()), "blake3")
	req := httptest.NewRequest(http.MethodPost, "/api/export", nil)
	rr := httptest.NewRecorder()
	h.HandleExport(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rr.Code)
	}
}

func TestHandleExport_RejectsInvalidSequenceRange(t *testing.T) {
	h := NewExportHandlers(ledger.NewKVBackend(newMapKV()), "blake3")
	req := httptest.NewRequest(http.MethodGet, "/api/export?start_sequence=abc", nil)
	rr := httptest.NewRecorder()
	h.HandleExport(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if decodeError(t, rr).Code != "INVALID_PARAMETER" {
		t.Errorf("error code = %q, want INVALID_PARAMETER", decodeError(t, rr).Code)
	}
}

func TestHandleExport_FiltersBySequenceRange(t *testing.T) {
	backend := ledger.NewKVBackend(newMapKV())
	seedLedger(t, backend, 5)
	h := NewExportHandlers(backend, "blake3")

	req := httptest.NewRequest(http.MethodGet, "/api/export?start_sequence=2&end_sequence=3", nil)
	rr := httptest.NewRecorder()
	h.HandleExport(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rr.Code, rr.Body.String())
	}
	var doc export.Document
	if err := json.NewDecoder(rr.Body).Decode(&doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(doc.Events) != 2 {
		t.Errorf("events = %d, want 2", len(doc.Events))
	}
}
