// Copyright 2025 Certen Protocol
//
// Export API Handlers
// Provides HTTP endpoints for producing the self-describing JSON export
// document used for offline backup and independent replay.

package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/hoyack/governance-ledger/pkg/export"
	"github.com/hoyack/governance-ledger/pkg/ledger"
	"github.com/hoyack/governance-ledger/pkg/ledgermetrics"
)

// ExportHandlers provides HTTP handlers for ledger export.
type ExportHandlers struct {
	backend   ledger.Port
	algorithm string
}

// NewExportHandlers creates new export handlers.
func NewExportHandlers(backend ledger.Port, algorithm string) *ExportHandlers {
	return &ExportHandlers{backend: backend, algorithm: algorithm}
}

// HandleExport handles GET /api/export, streaming the ledger (optionally
// a sequence range) as a single export document.
func (h *ExportHandlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}

	q := r.URL.Query()
	opts := ledger.ReadOptions{Branch: q.Get("branch"), EventType: q.Get("event_type")}
	if v := q.Get("start_sequence"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_PARAMETER", "invalid start_sequence")
			return
		}
		opts.StartSequence = n
	}
	if v := q.Get("end_sequence"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_PARAMETER", "invalid end_sequence")
			return
		}
		opts.EndSequence = n
	}

	doc, err := export.Export(r.Context(), h.backend, h.algorithm, opts, time.Now().UTC())
	if err != nil {
		ledgermetrics.ExportsTotal.WithLabelValues("error").Inc()
		writeError(w, http.StatusInternalServerError, "EXPORT_FAILED", err.Error())
		return
	}
	ledgermetrics.ExportsTotal.WithLabelValues("ok").Inc()

	data, err := export.Marshal(doc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "EXPORT_FAILED", err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.Metadata.ExportID+`.json"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// decodeJSONBody decodes r's body into v and closes it, capping body size
// to guard against a caller posting an unbounded payload.
func decodeJSONBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	body := io.LimitReader(r.Body, 16<<20)
	return json.NewDecoder(body).Decode(v)
}
