package snark

import (
	"context"
	"math/big"

	curve "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	groth16_bn254 "github.com/consensys/gnark/backend/groth16/bn254"

	"github.com/zeknow-solv/verifier/internal/records"
	"github.com/zeknow-solv/verifier/internal/report"
)

// GnarkVerifier verifies Groth16 proofs over BN254 with gnark's backend.
// It holds no state; every call is independent.
type GnarkVerifier struct{}

// NewGnarkVerifier returns the gnark-backed adapter.
func NewGnarkVerifier() *GnarkVerifier {
	return &GnarkVerifier{}
}

// Verify converts the records to gnark types and runs the pairing check.
// Conversion failures and cancellation are adapter errors; only a clean
// pairing rejection yields Invalid.
func (g *GnarkVerifier) Verify(ctx context.Context, vk *records.VerifyingKey, proof *records.Proof, publicInput *big.Int) (Result, error) {
	if publicInput == nil || publicInput.Sign() < 0 || publicInput.Cmp(fr.Modulus()) >= 0 {
		return Invalid, report.Errorf(report.KindAdapterError, "public input is not a canonical field element")
	}
	gnarkVK, err := convertVerifyingKey(vk)
	if err != nil {
		return Invalid, err
	}
	gnarkProof, err := convertProof(proof)
	if err != nil {
		return Invalid, err
	}
	var input fr.Element
	input.SetBigInt(publicInput)
	witness := fr.Vector{input}

	// The pairing work is CPU-bound; run it on its own goroutine so a
	// cancelled ctx returns promptly. The check touches no shared state,
	// abandoning it has no side effects.
	done := make(chan error, 1)
	go func() {
		done <- groth16_bn254.Verify(gnarkProof, gnarkVK, witness)
	}()
	select {
	case <-ctx.Done():
		return Invalid, report.Wrap(report.KindAdapterError, ctx.Err(), "snark verification cancelled")
	case err := <-done:
		if err != nil {
			return Invalid, nil
		}
		return Valid, nil
	}
}

func convertProof(p *records.Proof) (*groth16_bn254.Proof, error) {
	var out groth16_bn254.Proof
	if err := setG1("pi_a", &out.Ar, p.PiA); err != nil {
		return nil, err
	}
	if err := setG2("pi_b", &out.Bs, p.PiB); err != nil {
		return nil, err
	}
	if err := setG1("pi_c", &out.Krs, p.PiC); err != nil {
		return nil, err
	}
	return &out, nil
}

func convertVerifyingKey(vk *records.VerifyingKey) (*groth16_bn254.VerifyingKey, error) {
	var out groth16_bn254.VerifyingKey
	if err := setG1("vk_alpha_1", &out.G1.Alpha, vk.Alpha1); err != nil {
		return nil, err
	}
	if err := setG2("vk_beta_2", &out.G2.Beta, vk.Beta2); err != nil {
		return nil, err
	}
	if err := setG2("vk_gamma_2", &out.G2.Gamma, vk.Gamma2); err != nil {
		return nil, err
	}
	if err := setG2("vk_delta_2", &out.G2.Delta, vk.Delta2); err != nil {
		return nil, err
	}
	out.G1.K = make([]curve.G1Affine, len(vk.IC))
	for i, pt := range vk.IC {
		if err := setG1("IC", &out.G1.K[i], pt); err != nil {
			return nil, err
		}
	}
	// Precompute the pairing lines gnark's Verify expects.
	if err := out.Precompute(); err != nil {
		return nil, report.Wrap(report.KindAdapterError, err, "verifying key precompute failed")
	}
	return &out, nil
}

func setG1(field string, dst *curve.G1Affine, pt []string) error {
	x, err := fpFromDecimal(field, pt[0])
	if err != nil {
		return err
	}
	y, err := fpFromDecimal(field, pt[1])
	if err != nil {
		return err
	}
	dst.X = x
	dst.Y = y
	if !dst.IsOnCurve() || !dst.IsInSubGroup() {
		return report.Errorf(report.KindAdapterError, "%s: point is not on the curve", field)
	}
	return nil
}

func setG2(field string, dst *curve.G2Affine, pt [][]string) error {
	xa0, err := fpFromDecimal(field, pt[0][0])
	if err != nil {
		return err
	}
	xa1, err := fpFromDecimal(field, pt[0][1])
	if err != nil {
		return err
	}
	ya0, err := fpFromDecimal(field, pt[1][0])
	if err != nil {
		return err
	}
	ya1, err := fpFromDecimal(field, pt[1][1])
	if err != nil {
		return err
	}
	dst.X.A0 = xa0
	dst.X.A1 = xa1
	dst.Y.A0 = ya0
	dst.Y.A1 = ya1
	if !dst.IsOnCurve() || !dst.IsInSubGroup() {
		return report.Errorf(report.KindAdapterError, "%s: point is not on the curve", field)
	}
	return nil
}

func fpFromDecimal(field, s string) (fp.Element, error) {
	var e fp.Element
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return e, report.Errorf(report.KindAdapterError, "%s: malformed coordinate %q", field, s)
	}
	if v.Cmp(fp.Modulus()) >= 0 {
		return e, report.Errorf(report.KindAdapterError, "%s: coordinate %q exceeds the base field", field, s)
	}
	e.SetBigInt(v)
	return e, nil
}
