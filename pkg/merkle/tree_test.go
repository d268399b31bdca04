// Copyright 2025 Certen Protocol
//
// Merkle Tree Tests

package merkle

import (
	"testing"

	"github.com/hoyack/governance-ledger/pkg/hashalgo"
)

func leafHash(t *testing.T, seed string) string {
	t.Helper()
	h, err := hashalgo.Compute("blake3", []byte(seed))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	return h
}

func TestBuildTree_SingleLeaf(t *testing.T) {
	leaf := leafHash(t, "event 1")
	tree, err := BuildTree("blake3", []string{leaf})
	if err != nil {
		t.Fatalf("build tree: %v", err)
	}
	if tree.LeafCount() != 1 {
		t.Errorf("leaf count = %d, want 1", tree.LeafCount())
	}
	if tree.Root() == EmptyRoot {
		t.Error("root should not be the empty sentinel")
	}
}

func TestBuildTree_OddLeafCountPadsWithDuplicate(t *testing.T) {
	leaves := []string{leafHash(t, "a"), leafHash(t, "b"), leafHash(t, "c")}
	tree, err := BuildTree("blake3", leaves)
	if err != nil {
		t.Fatalf("build tree: %v", err)
	}
	if tree.LeafCount() != 3 {
		t.Errorf("leaf count = %d, want 3", tree.LeafCount())
	}
	// Three leaves pad to four; proof path length should be 2.
	proof, err := tree.GenerateProof(2)
	if err != nil {
		t.Fatalf("generate proof: %v", err)
	}
	if len(proof.Path) != 2 {
		t.Errorf("path length = %d, want 2", len(proof.Path))
	}
}

func TestGenerateProof_FourLeavesAllVerify(t *testing.T) {
	leaves := []string{leafHash(t, "a"), leafHash(t, "b"), leafHash(t, "c"), leafHash(t, "d")}
	tree, err := BuildTree("blake3", leaves)
	if err != nil {
		t.Fatalf("build tree: %v", err)
	}

	for i, leaf := range leaves {
		proof, err := tree.GenerateProof(i)
		if err != nil {
			t.Fatalf("leaf %d: generate proof: %v", i, err)
		}
		if len(proof.Path) != 2 {
			t.Errorf("leaf %d: path length = %d, want 2", i, len(proof.Path))
		}
		valid, err := VerifyProof(leaf, proof, tree.Root())
		if err != nil {
			t.Fatalf("leaf %d: verify proof: %v", i, err)
		}
		if !valid {
			t.Errorf("leaf %d: proof did not verify", i)
		}
	}
}

func TestGenerateProof_TwoLeavesSiblingPositions(t *testing.T) {
	leaf0, leaf1 := leafHash(t, "left"), leafHash(t, "right")
	tree, err := BuildTree("blake3", []string{leaf0, leaf1})
	if err != nil {
		t.Fatalf("build tree: %v", err)
	}

	proof0, err := tree.GenerateProof(0)
	if err != nil {
		t.Fatalf("generate proof 0: %v", err)
	}
	if proof0.Path[0].Position != Right {
		t.Errorf("leaf 0 sibling position = %s, want right", proof0.Path[0].Position)
	}

	proof1, err := tree.GenerateProof(1)
	if err != nil {
		t.Fatalf("generate proof 1: %v", err)
	}
	if proof1.Path[0].Position != Left {
		t.Errorf("leaf 1 sibling position = %s, want left", proof1.Path[0].Position)
	}
}

func TestVerifyProof_RejectsWrongLeaf(t *testing.T) {
	leaves := []string{leafHash(t, "a"), leafHash(t, "b")}
	tree, err := BuildTree("blake3", leaves)
	if err != nil {
		t.Fatalf("build tree: %v", err)
	}
	proof, err := tree.GenerateProof(0)
	if err != nil {
		t.Fatalf("generate proof: %v", err)
	}
	valid, err := VerifyProof(leafHash(t, "tampered"), proof, tree.Root())
	if err != nil {
		t.Fatalf("verify proof: %v", err)
	}
	if valid {
		t.Error("proof should not verify against a tampered leaf")
	}
}

func TestVerifyProof_RejectsWrongRoot(t *testing.T) {
	leaves := []string{leafHash(t, "a"), leafHash(t, "b")}
	tree, err := BuildTree("blake3", leaves)
	if err != nil {
		t.Fatalf("build tree: %v", err)
	}
	proof, err := tree.GenerateProof(0)
	if err != nil {
		t.Fatalf("generate proof: %v", err)
	}
	otherTree, err := BuildTree("blake3", []string{leafHash(t, "x"), leafHash(t, "y")})
	if err != nil {
		t.Fatalf("build other tree: %v", err)
	}
	valid, err := VerifyProof(leaves[0], proof, otherTree.Root())
	if err != nil {
		t.Fatalf("verify proof: %v", err)
	}
	if valid {
		t.Error("proof should not verify against a different root")
	}
}

func TestGenerateProofByHash_FindsCorrectIndex(t *testing.T) {
	leaves := []string{leafHash(t, "a"), leafHash(t, "b"), leafHash(t, "c")}
	tree, err := BuildTree("blake3", leaves)
	if err != nil {
		t.Fatalf("build tree: %v", err)
	}
	proof, err := tree.GenerateProofByHash(leaves[2])
	if err != nil {
		t.Fatalf("generate proof by hash: %v", err)
	}
	if proof.LeafIndex != 2 {
		t.Errorf("leaf index = %d, want 2", proof.LeafIndex)
	}
}

func TestGenerateProofByHash_UnknownLeafReturnsError(t *testing.T) {
	tree, err := BuildTree("blake3", []string{leafHash(t, "a")})
	if err != nil {
		t.Fatalf("build tree: %v", err)
	}
	if _, err := tree.GenerateProofByHash(leafHash(t, "never added")); err != ErrLeafNotFound {
		t.Errorf("err = %v, want ErrLeafNotFound", err)
	}
}

func TestBuildTree_EmptyLeavesRejected(t *testing.T) {
	if _, err := BuildTree("blake3", nil); err != ErrEmptyTree {
		t.Errorf("err = %v, want ErrEmptyTree", err)
	}
}

func TestNewTree_UnbuiltRootIsEmptySentinel(t *testing.T) {
	tree := NewTree("blake3")
	if tree.Root() != EmptyRoot {
		t.Errorf("root = %q, want %q", tree.Root(), EmptyRoot)
	}
}

func TestLeafAndInternalDomainsProduceDistinctDigests(t *testing.T) {
	leaf := leafHash(t, "same bytes")
	ld, err := leafDigest("blake3", leaf)
	if err != nil {
		t.Fatalf("leaf digest: %v", err)
	}
	id, err := internalDigest("blake3", leaf, leaf)
	if err != nil {
		t.Fatalf("internal digest: %v", err)
	}
	if ld == id {
		t.Error("leaf and internal domain prefixes must not collide")
	}
}
