package hashing

import (
	"bytes"
	"math/big"
	"testing"
)

func TestSumDeterministic(t *testing.T) {
	data := []byte("liability leaf payload")
	a := Sum(DomainLeaf, data)
	b := Sum(DomainLeaf, data)
	if !bytes.Equal(a, b) {
		t.Fatalf("repeated Sum gave different digests: %x vs %x", a, b)
	}
	if len(a) != Size {
		t.Fatalf("digest length = %d, want %d", len(a), Size)
	}
}

func TestDomainSeparation(t *testing.T) {
	data := []byte("same bytes, different purpose")
	leaf := Sum(DomainLeaf, data)
	node := Sum(DomainNode, data)
	pub := Sum(DomainPublicOutputs, data)
	if bytes.Equal(leaf, node) || bytes.Equal(leaf, pub) || bytes.Equal(node, pub) {
		t.Fatalf("digests collide across domains: leaf=%x node=%x pub=%x", leaf, node, pub)
	}
}

func TestSumSensitivity(t *testing.T) {
	data := []byte("0123456789abcdef0123456789abcdef0123456789abcdef")
	base := Sum(DomainNode, data)
	for i := range data {
		mutated := append([]byte(nil), data...)
		mutated[i] ^= 0x01
		if bytes.Equal(base, Sum(DomainNode, mutated)) {
			t.Fatalf("flipping byte %d did not change the digest", i)
		}
	}
}

func TestSumIntsMatchesReducedValues(t *testing.T) {
	a := Sum(DomainLeaf, nil)
	b := Sum(DomainLeaf)
	if !bytes.Equal(a, b) {
		t.Fatalf("empty block should absorb nothing: %x vs %x", a, b)
	}

	x := big.NewInt(42)
	if !bytes.Equal(SumInts(DomainLeaf, x), SumInts(DomainLeaf, big.NewInt(42))) {
		t.Fatal("SumInts not deterministic")
	}
	if bytes.Equal(SumInts(DomainLeaf, x), SumInts(DomainNode, x)) {
		t.Fatal("SumInts ignores the domain tag")
	}
}

func TestDigestIsCanonicalFieldElement(t *testing.T) {
	d := Sum(DomainPublicOutputs, []byte("record"))
	if !InField(ToInt(d)) {
		t.Fatalf("digest %x is not a canonical field element", d)
	}
}
