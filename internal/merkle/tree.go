package merkle

import (
	"github.com/zeknow-solv/verifier/internal/hashing"
	"github.com/zeknow-solv/verifier/internal/records"
	"github.com/zeknow-solv/verifier/internal/report"
)

// Tree is a fixed-depth binary Merkle tree over leaf hashes. Vacant slots
// are filled with the zero digest before hashing, the same padding rule
// the proving side uses. levels[0] holds the leaves, levels[depth] the
// root.
type Tree struct {
	depth  int
	levels [][][]byte
}

// Build hashes the given leaf hashes into a depth-deep tree. The number
// of leaves must fit 2^depth.
func Build(leafHashes [][]byte, depth int) (*Tree, error) {
	// The builder materializes every slot; verification alone accepts
	// depths up to 64.
	if depth < 0 || depth > 30 {
		return nil, report.Malformed("depth", "depth %d out of range [0,30]", depth)
	}
	width := uint64(1) << uint(depth)
	if uint64(len(leafHashes)) > width {
		return nil, report.Malformed("leaves", "%d leaves do not fit a depth-%d tree", len(leafHashes), depth)
	}
	level := make([][]byte, width)
	zero := make([]byte, hashing.Size)
	for i := range level {
		if i < len(leafHashes) {
			if len(leafHashes[i]) != hashing.Size {
				return nil, report.Malformed("leaves", "leaf %d is %d bytes, want %d", i, len(leafHashes[i]), hashing.Size)
			}
			level[i] = leafHashes[i]
		} else {
			level[i] = zero
		}
	}
	t := &Tree{depth: depth, levels: [][][]byte{level}}
	for d := 0; d < depth; d++ {
		prev := t.levels[d]
		next := make([][]byte, len(prev)/2)
		for i := range next {
			next[i] = hashing.Sum(hashing.DomainNode, prev[2*i], prev[2*i+1])
		}
		t.levels = append(t.levels, next)
	}
	return t, nil
}

// Root returns the committed root hash.
func (t *Tree) Root() []byte {
	return t.levels[t.depth][0]
}

// Proof returns the ordered sibling path for the leaf at index, leaf to
// root, with position flags matching the index bits.
func (t *Tree) Proof(index uint64) ([]records.PathEntry, error) {
	if index >= uint64(len(t.levels[0])) {
		return nil, report.Malformed("index", "leaf index %d out of range", index)
	}
	path := make([]records.PathEntry, 0, t.depth)
	pos := index
	for d := 0; d < t.depth; d++ {
		sibling := pos ^ 1
		entry := records.PathEntry{Sibling: t.levels[d][sibling]}
		if pos&1 == 0 {
			entry.Position = records.Right
		} else {
			entry.Position = records.Left
		}
		path = append(path, entry)
		pos >>= 1
	}
	return path, nil
}
