// Package hashalgo provides the pluggable digest registry used across the
// ledger: BLAKE3 as the preferred algorithm, SHA-256 as the required
// baseline, and the shared "algo:hex" wire format for hash strings.
package hashalgo

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"lukechampine.com/blake3"
)

// DefaultAlgorithm is the preferred hash algorithm for new events.
const DefaultAlgorithm = "blake3"

// Algorithm computes a 32-byte digest for a name.
type Algorithm interface {
	Name() string
	Hash(data []byte) [32]byte
}

type blake3Algorithm struct{}

func (blake3Algorithm) Name() string { return "blake3" }

func (blake3Algorithm) Hash(data []byte) [32]byte {
	return blake3.Sum256(data)
}

type sha256Algorithm struct{}

func (sha256Algorithm) Name() string { return "sha256" }

func (sha256Algorithm) Hash(data []byte) [32]byte {
	return sha256.Sum256(data)
}

var registry = map[string]Algorithm{
	"blake3": blake3Algorithm{},
	"sha256": sha256Algorithm{},
}

// Supported reports whether name is a known algorithm.
func Supported(name string) bool {
	_, ok := registry[name]
	return ok
}

// SupportedNames returns the sorted set of known algorithm names.
func SupportedNames() []string {
	return []string{"blake3", "sha256"}
}

// Get returns the Algorithm for name, or an error if unknown.
func Get(name string) (Algorithm, error) {
	a, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("hashalgo: unsupported algorithm %q", name)
	}
	return a, nil
}

var wireFormat = regexp.MustCompile(`^(blake3|sha256):[0-9a-f]{64}$`)

// ValidateFormat reports whether s matches the wire-level "algo:hex" form.
func ValidateFormat(s string) bool {
	return wireFormat.MatchString(s)
}

// Compute hashes data with the named algorithm and returns its wire form.
func Compute(name string, data []byte) (string, error) {
	algo, err := Get(name)
	if err != nil {
		return "", err
	}
	digest := algo.Hash(data)
	return fmt.Sprintf("%s:%s", name, hex.EncodeToString(digest[:])), nil
}

// Verify reports whether hashStr is the correct hash of data under its own
// algorithm prefix.
func Verify(hashStr string, data []byte) (bool, error) {
	algo, hexDigest, err := Split(hashStr)
	if err != nil {
		return false, err
	}
	computed, err := Compute(algo, data)
	if err != nil {
		return false, err
	}
	_, computedHex, _ := Split(computed)
	return computedHex == hexDigest, nil
}

// Split separates an "algo:hex" string into its algorithm name and hex
// digest, validating the wire format first.
func Split(hashStr string) (algo string, hexDigest string, err error) {
	if !ValidateFormat(hashStr) {
		return "", "", fmt.Errorf("hashalgo: malformed hash string %q", hashStr)
	}
	parts := strings.SplitN(hashStr, ":", 2)
	return parts[0], parts[1], nil
}

// ExtractAlgorithm returns the algorithm prefix of an "algo:hex" string
// without validating the hex portion.
func ExtractAlgorithm(hashStr string) string {
	idx := strings.IndexByte(hashStr, ':')
	if idx < 0 {
		return ""
	}
	return hashStr[:idx]
}

// GenesisHash returns the well-known all-zero genesis marker for name.
func GenesisHash(name string) string {
	return fmt.Sprintf("%s:%s", name, strings.Repeat("0", 64))
}

var allZeroHex = regexp.MustCompile(`^0{64}$`)

// IsGenesisHash reports whether s is a genesis marker for any supported
// algorithm. The empty string is not a genesis marker here; the permissive
// IsGenesisPrevHash is the check that also accepts it.
func IsGenesisHash(s string) bool {
	algo, hexDigest, err := Split(s)
	if err != nil {
		return false
	}
	if !Supported(algo) {
		return false
	}
	return allZeroHex.MatchString(hexDigest)
}

// IsGenesisPrevHash implements the permissive genesis parsing rule: a
// prev_hash is a valid genesis marker if it is empty, or an
// algorithm-tagged 64-zero digest. Emission always writes the tagged form;
// this permissive check exists only for verification paths.
func IsGenesisPrevHash(s string) bool {
	if s == "" {
		return true
	}
	return IsGenesisHash(s)
}
