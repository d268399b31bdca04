// Copyright 2025 Certen Protocol
//
// Ledger Query API Handlers
// Provides HTTP endpoints for reading events from the append-only ledger.

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/hoyack/governance-ledger/pkg/ledger"
)

// LedgerHandlers provides HTTP handlers for ledger read endpoints.
type LedgerHandlers struct {
	backend ledger.Port
}

// NewLedgerHandlers creates new ledger query handlers.
func NewLedgerHandlers(backend ledger.Port) *LedgerHandlers {
	return &LedgerHandlers{backend: backend}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// errorDetail is the shape of the "error" field in every error response
// this package writes: a machine-readable code plus a human message.
type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]errorDetail{"error": {Code: code, Message: message}})
}

// HandleReadEvents handles GET /api/events, a paged, filterable read over
// the ledger. Query parameters: start_sequence, end_sequence, branch,
// event_type, limit, offset.
func (h *LedgerHandlers) HandleReadEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}

	q := r.URL.Query()
	opts := ledger.ReadOptions{
		Branch:    q.Get("branch"),
		EventType: q.Get("event_type"),
	}
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
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_PARAMETER", "invalid limit")
			return
		}
		opts.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_PARAMETER", "invalid offset")
			return
		}
		opts.Offset = n
	}

	events, err := h.backend.Read(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "READ_FAILED", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events, "count": len(events)})
}

// HandleEventBySequence handles GET /api/events/sequence/{n}.
func (h *LedgerHandlers) HandleEventBySequence(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	raw := pathTail(r.URL.Path, "/api/events/sequence/")
	sequence, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_SEQUENCE", "invalid sequence number")
		return
	}
	pe, err := h.backend.BySequence(r.Context(), sequence)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) || errors.Is(err, ledger.ErrEmptyLedger) {
			writeError(w, http.StatusNotFound, "EVENT_NOT_FOUND", "event not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "READ_FAILED", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, pe)
}

// HandleEventByID handles GET /api/events/id/{uuid}.
func (h *LedgerHandlers) HandleEventByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	raw := pathTail(r.URL.Path, "/api/events/id/")
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_EVENT_ID", "invalid event id")
		return
	}
	pe, err := h.backend.ByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "EVENT_NOT_FOUND", "event not found")
		return
	}
	writeJSON(w, http.StatusOK, pe)
}

// HandleLatestEvent handles GET /api/events/latest.
func (h *LedgerHandlers) HandleLatestEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	pe, err := h.backend.Latest(r.Context())
	if err != nil {
		if errors.Is(err, ledger.ErrEmptyLedger) {
			writeError(w, http.StatusNotFound, "LEDGER_EMPTY", "ledger is empty")
			return
		}
		writeError(w, http.StatusInternalServerError, "READ_FAILED", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, pe)
}

// pathTail returns the remainder of path after prefix, with any
// trailing slash trimmed. Callers register prefix with mux.HandleFunc.
func pathTail(path, prefix string) string {
	if len(path) <= len(prefix) {
		return ""
	}
	tail := path[len(prefix):]
	for len(tail) > 0 && tail[len(tail)-1] == '/' {
		tail = tail[:len(tail)-1]
	}
	return tail
}
