package snark

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/consensys/gnark-crypto/ecc"
	curve "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark/backend/groth16"
	groth16_bn254 "github.com/consensys/gnark/backend/groth16/bn254"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/stretchr/testify/require"

	"github.com/zeknow-solv/verifier/internal/records"
	"github.com/zeknow-solv/verifier/internal/report"
)

// productCircuit is a minimal one-public-input circuit used to mint real
// Groth16 artifacts for the adapter tests.
type productCircuit struct {
	W1 frontend.Variable
	W2 frontend.Variable
	H  frontend.Variable `gnark:",public"`
}

func (c *productCircuit) Define(api frontend.API) error {
	api.AssertIsEqual(api.Mul(c.W1, c.W2), c.H)
	return nil
}

// proveProduct compiles, sets up and proves the product circuit for the
// given public value, returning snarkjs-shaped records.
func proveProduct(t *testing.T, public int64) (*records.VerifyingKey, *records.Proof) {
	t.Helper()

	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &productCircuit{})
	require.NoError(t, err)
	pk, vk, err := groth16.Setup(ccs)
	require.NoError(t, err)

	assignment := &productCircuit{W1: public, W2: 1, H: public}
	witness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	require.NoError(t, err)
	proof, err := groth16.Prove(ccs, pk, witness)
	require.NoError(t, err)

	np := proof.(*groth16_bn254.Proof)
	nvk := vk.(*groth16_bn254.VerifyingKey)

	recVK := &records.VerifyingKey{
		Protocol: "groth16",
		Curve:    "bn128",
		NPublic:  1,
		Alpha1:   g1Strings(nvk.G1.Alpha.X.String(), nvk.G1.Alpha.Y.String()),
		Beta2:    g2Strings(&nvk.G2.Beta),
		Gamma2:   g2Strings(&nvk.G2.Gamma),
		Delta2:   g2Strings(&nvk.G2.Delta),
	}
	for i := range nvk.G1.K {
		recVK.IC = append(recVK.IC, g1Strings(nvk.G1.K[i].X.String(), nvk.G1.K[i].Y.String()))
	}

	recProof := &records.Proof{
		PiA:         g1Strings(np.Ar.X.String(), np.Ar.Y.String()),
		PiB:         g2Strings(&np.Bs),
		PiC:         g1Strings(np.Krs.X.String(), np.Krs.Y.String()),
		Protocol:    "groth16",
		PublicInput: big.NewInt(public),
	}
	return recVK, recProof
}

func g1Strings(x, y string) []string {
	return []string{x, y}
}

func g2Strings(p *curve.G2Affine) [][]string {
	return [][]string{
		{p.X.A0.String(), p.X.A1.String()},
		{p.Y.A0.String(), p.Y.A1.String()},
	}
}

func TestVerifyAcceptsValidProof(t *testing.T) {
	vk, proof := proveProduct(t, 42)

	res, err := NewGnarkVerifier().Verify(context.Background(), vk, proof, proof.PublicInput)
	require.NoError(t, err)
	require.Equal(t, Valid, res)
}

func TestVerifyRejectsWrongPublicInput(t *testing.T) {
	vk, proof := proveProduct(t, 42)

	res, err := NewGnarkVerifier().Verify(context.Background(), vk, proof, big.NewInt(43))
	require.NoError(t, err)
	require.Equal(t, Invalid, res)
}

func TestVerifyRejectsTamperedProof(t *testing.T) {
	vk, proof := proveProduct(t, 42)
	// Swap pi_a and pi_c: both remain valid curve points, so the failure
	// must come from the pairing check, not from conversion.
	proof.PiA, proof.PiC = proof.PiC, proof.PiA

	res, err := NewGnarkVerifier().Verify(context.Background(), vk, proof, proof.PublicInput)
	require.NoError(t, err)
	require.Equal(t, Invalid, res)
}

func TestVerifyOffCurvePointIsAdapterError(t *testing.T) {
	vk, proof := proveProduct(t, 42)
	proof.PiA = []string{"1", "1"}

	_, err := NewGnarkVerifier().Verify(context.Background(), vk, proof, proof.PublicInput)
	require.Error(t, err)
	require.Equal(t, report.KindAdapterError, report.KindOf(err))
}

func TestVerifyOversizedCoordinateIsAdapterError(t *testing.T) {
	vk, proof := proveProduct(t, 42)
	// One past the BN254 base field modulus.
	proof.PiC = []string{
		"21888242871839275222246405745257275088696311157297823662689037894645226208584",
		"1",
	}

	_, err := NewGnarkVerifier().Verify(context.Background(), vk, proof, proof.PublicInput)
	require.Error(t, err)
	require.Equal(t, report.KindAdapterError, report.KindOf(err))
}

func TestVerifyCancelledContext(t *testing.T) {
	vk, proof := proveProduct(t, 42)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewGnarkVerifier().Verify(ctx, vk, proof, proof.PublicInput)
	require.Error(t, err)
	require.Equal(t, report.KindAdapterError, report.KindOf(err))
}

func TestVerifyTimeout(t *testing.T) {
	vk, proof := proveProduct(t, 7)
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	_, err := NewGnarkVerifier().Verify(ctx, vk, proof, proof.PublicInput)
	require.Error(t, err)
}
