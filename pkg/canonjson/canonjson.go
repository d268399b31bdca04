// Package canonjson produces the deterministic byte encoding that every
// hash in the ledger is computed over: sorted keys, no insignificant
// whitespace, NFKC-normalized strings, ISO-8601 timestamps, lowercase hex
// for byte values, and rejection of non-finite floats.
//
// The recursive sanitize-then-marshal shape follows the corpus's
// commitment.CanonicalizeJSON; the normalization and rejection rules follow
// the original canonical_json.py this ledger's hashing scheme was ported
// from.
package canonjson

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// Canonicalize returns the canonical JSON byte encoding of v.
func Canonicalize(v interface{}) ([]byte, error) {
	sanitized, err := sanitize(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(sanitized); err != nil {
		return nil, fmt.Errorf("canonjson: encode: %w", err)
	}
	// Encode always appends a trailing newline; canonical bytes must not.
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// CanonicalizeBytes re-canonicalizes raw JSON (e.g. a payload that already
// passed through a generic json.Unmarshal elsewhere), preserving numeric
// precision via json.Number.
func CanonicalizeBytes(raw []byte) ([]byte, error) {
	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("canonjson: decode: %w", err)
	}
	return Canonicalize(v)
}

func sanitize(v interface{}) (interface{}, error) {
	switch vv := v.(type) {
	case nil:
		return nil, nil
	case bool:
		return vv, nil
	case string:
		return norm.NFKC.String(vv), nil
	case json.Number:
		return sanitizeJSONNumber(vv)
	case float32:
		return sanitizeFloat(float64(vv))
	case float64:
		return sanitizeFloat(vv)
	case int:
		return vv, nil
	case int64:
		return vv, nil
	case uint64:
		return vv, nil
	case time.Time:
		return vv.UTC().Format(time.RFC3339Nano), nil
	case uuid.UUID:
		return vv.String(), nil
	case []byte:
		return hex.EncodeToString(vv), nil
	case map[string]interface{}:
		out := make(map[string]interface{}, len(vv))
		for k, e := range vv {
			sv, err := sanitize(e)
			if err != nil {
				return nil, err
			}
			out[norm.NFKC.String(k)] = sv
		}
		return out, nil
	case []interface{}:
		out := make([]interface{}, len(vv))
		for i, e := range vv {
			sv, err := sanitize(e)
			if err != nil {
				return nil, err
			}
			out[i] = sv
		}
		return out, nil
	default:
		return nil, fmt.Errorf("canonjson: unsupported value of type %T", v)
	}
}

func sanitizeJSONNumber(n json.Number) (interface{}, error) {
	if f, err := n.Float64(); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("canonjson: non-finite float %q is not valid canonical JSON", n.String())
		}
	}
	return n, nil
}

func sanitizeFloat(f float64) (interface{}, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("canonjson: non-finite float %v is not valid canonical JSON", f)
	}
	return f, nil
}
