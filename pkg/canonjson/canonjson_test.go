package canonjson

import (
	"bytes"
	"math"
	"testing"
)

func TestCanonicalize_SortsKeys(t *testing.T) {
	a, err := Canonicalize(map[string]interface{}{"b": 1, "a": 2})
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	want := `{"a":2,"b":1}`
	if string(a) != want {
		t.Errorf("got %s, want %s", a, want)
	}
}

func TestCanonicalize_KeyOrderIndependence(t *testing.T) {
	x, err := Canonicalize(map[string]interface{}{"b": 1, "a": 2})
	if err != nil {
		t.Fatalf("canonicalize x: %v", err)
	}
	y, err := Canonicalize(map[string]interface{}{"a": 2, "b": 1})
	if err != nil {
		t.Fatalf("canonicalize y: %v", err)
	}
	if !bytes.Equal(x, y) {
		t.Errorf("logically equal maps produced different bytes: %s vs %s", x, y)
	}
}

func TestCanonicalize_RejectsNaN(t *testing.T) {
	if _, err := Canonicalize(map[string]interface{}{"x": math.NaN()}); err == nil {
		t.Error("expected error for NaN payload value")
	}
}

func TestCanonicalize_RejectsInfinity(t *testing.T) {
	if _, err := Canonicalize(map[string]interface{}{"x": math.Inf(1)}); err == nil {
		t.Error("expected error for +Inf payload value")
	}
}

func TestCanonicalize_NoWhitespace(t *testing.T) {
	b, err := Canonicalize(map[string]interface{}{"nested": []interface{}{1, 2, 3}})
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	if bytes.ContainsAny(b, " \t\n") {
		t.Errorf("canonical bytes contain whitespace: %q", b)
	}
}

func TestCanonicalizeBytes_PreservesNumberPrecision(t *testing.T) {
	raw := []byte(`{"n":123456789012345678}`)
	b, err := CanonicalizeBytes(raw)
	if err != nil {
		t.Fatalf("canonicalize bytes: %v", err)
	}
	want := `{"n":123456789012345678}`
	if string(b) != want {
		t.Errorf("got %s, want %s (precision likely lost through float64)", b, want)
	}
}
