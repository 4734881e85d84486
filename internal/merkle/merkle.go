// Package merkle verifies a leaf's inclusion proof against a claimed
// liabilities root, and builds binary trees for receipt tooling and tests.
package merkle

import (
	"bytes"

	"github.com/zeknow-solv/verifier/internal/hashing"
	"github.com/zeknow-solv/verifier/internal/records"
	"github.com/zeknow-solv/verifier/internal/report"
)

// Verify folds a leaf hash up an ordered sibling path and compares the
// result to root. Bit i of index places the running hash as the left (0)
// or right (1) child at level i; the receipt's position flags must agree
// with those bits. A structural problem is MalformedInput, a fold that
// reaches a different root is MerkleVerificationFailed. Pure and
// deterministic; a nil return proves inclusion.
func Verify(leafHash []byte, path []records.PathEntry, index uint64, depth int, root []byte) error {
	if len(leafHash) != hashing.Size {
		return report.Malformed("leaf", "leaf hash is %d bytes, want %d", len(leafHash), hashing.Size)
	}
	if len(root) != hashing.Size {
		return report.Malformed("root", "root is %d bytes, want %d", len(root), hashing.Size)
	}
	if depth < 0 || depth > 64 {
		return report.Malformed("depth", "depth %d out of range [0,64]", depth)
	}
	if len(path) != depth {
		return report.Malformed("path", "path has %d entries, tree depth is %d", len(path), depth)
	}
	if depth < 64 && index >= uint64(1)<<uint(depth) {
		return report.Malformed("index", "leaf index %d does not fit a depth-%d tree", index, depth)
	}

	current := leafHash
	for i, entry := range path {
		if len(entry.Sibling) != hashing.Size {
			return report.Malformed("path", "entry %d: sibling is %d bytes, want %d", i, len(entry.Sibling), hashing.Size)
		}
		bit := (index >> uint(i)) & 1
		if bit == 0 {
			// current is the left child, sibling must sit on the right
			if entry.Position != records.Right {
				return report.Malformed("path", "entry %d: position flag disagrees with leaf index bit %d", i, bit)
			}
			current = hashing.Sum(hashing.DomainNode, current, entry.Sibling)
		} else {
			if entry.Position != records.Left {
				return report.Malformed("path", "entry %d: position flag disagrees with leaf index bit %d", i, bit)
			}
			current = hashing.Sum(hashing.DomainNode, entry.Sibling, current)
		}
	}
	if !bytes.Equal(current, root) {
		return report.Errorf(report.KindMerkleVerificationFailed,
			"path folds to %x, committed root is %x", current, root)
	}
	return nil
}
