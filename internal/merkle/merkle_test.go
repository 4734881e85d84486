package merkle

import (
	"fmt"
	"testing"

	"github.com/zeknow-solv/verifier/internal/hashing"
	"github.com/zeknow-solv/verifier/internal/records"
	"github.com/zeknow-solv/verifier/internal/report"
)

func leafHashes(n int) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		out[i] = hashing.Sum(hashing.DomainLeaf, []byte(fmt.Sprintf("leaf-%d", i)))
	}
	return out
}

func TestMerkleSoundness(t *testing.T) {
	const depth = 3
	leaves := leafHashes(1 << depth)
	tree, err := Build(leaves, depth)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	root := tree.Root()

	for i, leaf := range leaves {
		path, err := tree.Proof(uint64(i))
		if err != nil {
			t.Fatalf("Proof(%d) failed: %v", i, err)
		}
		if err := Verify(leaf, path, uint64(i), depth, root); err != nil {
			t.Errorf("leaf %d should verify: %v", i, err)
		}
	}
}

func TestMerkleRejectsAnyMutation(t *testing.T) {
	const depth = 3
	leaves := leafHashes(1 << depth)
	tree, _ := Build(leaves, depth)
	root := tree.Root()
	path, _ := tree.Proof(5)
	leaf := leaves[5]

	// mutated leaf
	badLeaf := append([]byte(nil), leaf...)
	badLeaf[0] ^= 0x01
	if err := Verify(badLeaf, path, 5, depth, root); report.KindOf(err) != report.KindMerkleVerificationFailed {
		t.Errorf("mutated leaf: got %v, want MerkleVerificationFailed", err)
	}

	// mutated sibling at every level
	for lvl := range path {
		badPath := clonePath(path)
		badPath[lvl].Sibling[hashing.Size-1] ^= 0x01
		if err := Verify(leaf, badPath, 5, depth, root); report.KindOf(err) != report.KindMerkleVerificationFailed {
			t.Errorf("mutated sibling at level %d: got %v, want MerkleVerificationFailed", lvl, err)
		}
	}

	// mutated root
	badRoot := append([]byte(nil), root...)
	badRoot[3] ^= 0x01
	if err := Verify(leaf, path, 5, depth, badRoot); report.KindOf(err) != report.KindMerkleVerificationFailed {
		t.Errorf("mutated root: got %v, want MerkleVerificationFailed", err)
	}

	// wrong index: position flags no longer match the index bits
	if err := Verify(leaf, path, 4, depth, root); err == nil {
		t.Error("wrong index should not verify")
	}
	// index 2 flips bits 0 and 2 relative to 5, rejected structurally or by fold
	if err := Verify(leaf, path, 2, depth, root); err == nil {
		t.Error("wrong index should not verify")
	}
}

func TestPathLengthMustMatchDepth(t *testing.T) {
	const depth = 3
	leaves := leafHashes(1 << depth)
	tree, _ := Build(leaves, depth)
	path, _ := tree.Proof(0)

	if err := Verify(leaves[0], path[:2], 0, depth, tree.Root()); report.KindOf(err) != report.KindMalformedInput {
		t.Errorf("short path: got %v, want MalformedInput", err)
	}
	if err := Verify(leaves[0], path, 0, depth+1, tree.Root()); report.KindOf(err) != report.KindMalformedInput {
		t.Errorf("depth mismatch: got %v, want MalformedInput", err)
	}
}

func TestZeroDepthTree(t *testing.T) {
	leaf := hashing.Sum(hashing.DomainLeaf, []byte("only"))
	if err := Verify(leaf, nil, 0, 0, leaf); err != nil {
		t.Errorf("single-leaf tree with leaf==root should verify: %v", err)
	}
	other := hashing.Sum(hashing.DomainLeaf, []byte("other"))
	if err := Verify(leaf, nil, 0, 0, other); report.KindOf(err) != report.KindMerkleVerificationFailed {
		t.Errorf("single-leaf mismatch: got %v, want MerkleVerificationFailed", err)
	}
}

func TestSiblingWrongLength(t *testing.T) {
	const depth = 2
	leaves := leafHashes(1 << depth)
	tree, _ := Build(leaves, depth)
	path, _ := tree.Proof(0)
	path[1].Sibling = path[1].Sibling[:16]
	if err := Verify(leaves[0], path, 0, depth, tree.Root()); report.KindOf(err) != report.KindMalformedInput {
		t.Errorf("truncated sibling: got %v, want MalformedInput", err)
	}
}

func TestPositionFlagMismatch(t *testing.T) {
	const depth = 2
	leaves := leafHashes(1 << depth)
	tree, _ := Build(leaves, depth)
	path, _ := tree.Proof(1)
	path[0].Position = records.Right // index bit 0 of 1 demands a left sibling
	if err := Verify(leaves[1], path, 1, depth, tree.Root()); report.KindOf(err) != report.KindMalformedInput {
		t.Errorf("flag mismatch: got %v, want MalformedInput", err)
	}
}

func TestBuildPadsToPowerOfTwo(t *testing.T) {
	leaves := leafHashes(5)
	tree, err := Build(leaves, 3)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		path, _ := tree.Proof(uint64(i))
		if err := Verify(leaves[i], path, uint64(i), 3, tree.Root()); err != nil {
			t.Errorf("padded tree leaf %d: %v", i, err)
		}
	}
	if _, err := Build(leafHashes(9), 3); report.KindOf(err) != report.KindMalformedInput {
		t.Errorf("overfull tree: got %v, want MalformedInput", err)
	}
}

func clonePath(path []records.PathEntry) []records.PathEntry {
	out := make([]records.PathEntry, len(path))
	for i, e := range path {
		out[i] = records.PathEntry{
			Sibling:  append([]byte(nil), e.Sibling...),
			Position: e.Position,
		}
	}
	return out
}
