// Package snark wraps the external SNARK verification primitive behind
// the contract the core consumes. The pairing algebra itself belongs to
// gnark; this package only converts the prover's snarkjs wire records
// into gnark's BN254 Groth16 types and classifies the outcome.
package snark

import (
	"context"
	"math/big"

	"github.com/zeknow-solv/verifier/internal/records"
)

// Result of a proof verification. The distinction between Invalid and an
// adapter error matters: Invalid is a genuine cryptographic failure,
// an error is a tooling or input problem.
type Result int

const (
	// Invalid means the pairing check rejected the proof.
	Invalid Result = iota
	// Valid means the proof verified against the key and public input.
	Valid
)

func (r Result) String() string {
	if r == Valid {
		return "valid"
	}
	return "invalid"
}

// Verifier is the external collaborator contract: a pure, deterministic,
// side-effect-free check of one proof against one verifying key and one
// public input. Implementations must honor ctx cancellation, since the
// pairing work is CPU-bound.
type Verifier interface {
	Verify(ctx context.Context, vk *records.VerifyingKey, proof *records.Proof, publicInput *big.Int) (Result, error)
}
