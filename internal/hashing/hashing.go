// Package hashing is the domain-separated hash engine used by every other
// component. It hashes with MiMC over the BN254 scalar field, the
// field-native hash the proving side computes inside its circuits.
//
// Byte strings are absorbed as 31-byte big-endian limbs, so every limb is
// strictly below the field modulus and absorption can never fail. Digests
// are the canonical 32-byte big-endian encoding of a field element. The
// engine identity (MiMC over BN254 plus the limb rule) is part of the
// protocol version: changing either silently invalidates every issued
// receipt and published output.
package hashing

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
)

// Domain is a fixed tag distinguishing hash usages. A value computed for
// one purpose can never collide with one computed for another.
type Domain uint64

const (
	// DomainLeaf tags liability leaf hashes.
	DomainLeaf Domain = iota + 1
	// DomainNode tags internal Merkle node hashes.
	DomainNode
	// DomainPublicOutputs tags the canonical public-outputs hash.
	DomainPublicOutputs
	// DomainSnapshot tags asset-snapshot (anonymity set) hashes.
	DomainSnapshot
	// DomainVerifyingKey tags the commitment to a verifying key.
	DomainVerifyingKey
)

// Size is the digest length in bytes.
const Size = fr.Bytes

// limbSize keeps every absorbed limb below the BN254 scalar modulus.
const limbSize = fr.Bytes - 1

// Sum hashes the given byte blocks under the domain tag. The tag is
// absorbed first, then each block is split into 31-byte big-endian limbs
// and absorbed in order.
func Sum(domain Domain, blocks ...[]byte) []byte {
	h := mimc.NewMiMC()
	writeElement(h, new(big.Int).SetUint64(uint64(domain)))
	for _, block := range blocks {
		for start := 0; start < len(block); start += limbSize {
			end := start + limbSize
			if end > len(block) {
				end = len(block)
			}
			writeElement(h, new(big.Int).SetBytes(block[start:end]))
		}
	}
	return h.Sum(nil)
}

// SumInts hashes field-element values under the domain tag. Values are
// reduced into the field before absorption; the proving side only ever
// emits in-range values, so reduction is a no-op on honest inputs.
func SumInts(domain Domain, vals ...*big.Int) []byte {
	h := mimc.NewMiMC()
	writeElement(h, new(big.Int).SetUint64(uint64(domain)))
	for _, v := range vals {
		writeElement(h, v)
	}
	return h.Sum(nil)
}

// ToInt decodes a digest to its field-element integer value, the decimal
// form the proving side prints for public inputs.
func ToInt(digest []byte) *big.Int {
	return new(big.Int).SetBytes(digest)
}

// InField reports whether v is a canonical BN254 scalar.
func InField(v *big.Int) bool {
	return v.Sign() >= 0 && v.Cmp(fr.Modulus()) < 0
}

func writeElement(h interface{ Write(p []byte) (int, error) }, v *big.Int) {
	var e fr.Element
	e.SetBigInt(v)
	b := e.Bytes()
	h.Write(b[:])
}
