package records

import (
	"fmt"
	"math/big"

	"github.com/zeknow-solv/verifier/internal/canonical"
	"github.com/zeknow-solv/verifier/internal/hashing"
	"github.com/zeknow-solv/verifier/internal/report"
)

// Proof is an externally produced Groth16 proof in the snarkjs layout
// (decimal-string curve points), together with the public input it was
// generated against and a reference to the verifying key it targets.
// The curve points are opaque to the core; only the adapter reads them.
type Proof struct {
	PiA              []string
	PiB              [][]string
	PiC              []string
	Protocol         string
	PublicInput      *big.Int
	VerifyingKeyHash []byte
}

type proofJSON struct {
	PiA              []string   `json:"pi_a"`
	PiB              [][]string `json:"pi_b"`
	PiC              []string   `json:"pi_c"`
	Protocol         string     `json:"protocol"`
	PublicInput      string     `json:"public_input"`
	VerifyingKeyHash string     `json:"verifying_key_hash"`
}

// VerifyingKey is a Groth16 verifying key in the snarkjs layout. IC must
// hold exactly two points: the protocol has a single public input.
type VerifyingKey struct {
	Protocol string
	Curve    string
	NPublic  int
	Alpha1   []string
	Beta2    [][]string
	Gamma2   [][]string
	Delta2   [][]string
	IC       [][]string
}

type verifyingKeyJSON struct {
	Protocol string     `json:"protocol"`
	Curve    string     `json:"curve"`
	NPublic  int        `json:"nPublic"`
	Alpha1   []string   `json:"vk_alpha_1"`
	Beta2    [][]string `json:"vk_beta_2"`
	Gamma2   [][]string `json:"vk_gamma_2"`
	Delta2   [][]string `json:"vk_delta_2"`
	IC       [][]string `json:"IC"`
}

// LoadProof reads and validates a proof file.
func LoadProof(path string) (*Proof, error) {
	var raw proofJSON
	if err := loadJSON(path, &raw); err != nil {
		return nil, err
	}
	return parseProof(&raw)
}

// ParseProof validates a decoded proof document.
func ParseProof(data []byte) (*Proof, error) {
	var raw proofJSON
	if err := unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return parseProof(&raw)
}

func parseProof(raw *proofJSON) (*Proof, error) {
	if err := checkG1("pi_a", raw.PiA); err != nil {
		return nil, err
	}
	if err := checkG2("pi_b", raw.PiB); err != nil {
		return nil, err
	}
	if err := checkG1("pi_c", raw.PiC); err != nil {
		return nil, err
	}
	if raw.Protocol != "" && raw.Protocol != "groth16" {
		return nil, report.Malformed("protocol", "unsupported proof protocol %q", raw.Protocol)
	}
	pub, err := parseDecimal("public_input", raw.PublicInput)
	if err != nil {
		return nil, err
	}
	if !hashing.InField(pub) {
		return nil, report.Malformed("public_input", "public input is not a canonical field element")
	}
	vkHash, err := parseHexDigest("verifying_key_hash", raw.VerifyingKeyHash)
	if err != nil {
		return nil, err
	}
	return &Proof{
		PiA:              raw.PiA,
		PiB:              raw.PiB,
		PiC:              raw.PiC,
		Protocol:         raw.Protocol,
		PublicInput:      pub,
		VerifyingKeyHash: vkHash,
	}, nil
}

// LoadVerifyingKey reads and validates a snarkjs verifying-key file.
func LoadVerifyingKey(path string) (*VerifyingKey, error) {
	var raw verifyingKeyJSON
	if err := loadJSON(path, &raw); err != nil {
		return nil, err
	}
	return parseVerifyingKey(&raw)
}

// ParseVerifyingKey validates a decoded verifying-key document.
func ParseVerifyingKey(data []byte) (*VerifyingKey, error) {
	var raw verifyingKeyJSON
	if err := unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return parseVerifyingKey(&raw)
}

func parseVerifyingKey(raw *verifyingKeyJSON) (*VerifyingKey, error) {
	if raw.Protocol != "" && raw.Protocol != "groth16" {
		return nil, report.Malformed("protocol", "unsupported protocol %q", raw.Protocol)
	}
	if raw.Curve != "" && raw.Curve != "bn128" && raw.Curve != "bn254" {
		return nil, report.Malformed("curve", "unsupported curve %q", raw.Curve)
	}
	if err := checkG1("vk_alpha_1", raw.Alpha1); err != nil {
		return nil, err
	}
	for field, pt := range map[string][][]string{
		"vk_beta_2":  raw.Beta2,
		"vk_gamma_2": raw.Gamma2,
		"vk_delta_2": raw.Delta2,
	} {
		if err := checkG2(field, pt); err != nil {
			return nil, err
		}
	}
	// One constant wire plus one public input.
	if len(raw.IC) != 2 {
		return nil, report.Malformed("IC", "expected 2 points (single public input), got %d", len(raw.IC))
	}
	for i, pt := range raw.IC {
		if err := checkG1("IC", pt); err != nil {
			return nil, report.Malformed("IC", "point %d: %v", i, err)
		}
	}
	if raw.NPublic != 0 && raw.NPublic != 1 {
		return nil, report.Malformed("nPublic", "expected 1 public input, got %d", raw.NPublic)
	}
	return &VerifyingKey{
		Protocol: raw.Protocol,
		Curve:    raw.Curve,
		NPublic:  raw.NPublic,
		Alpha1:   raw.Alpha1,
		Beta2:    raw.Beta2,
		Gamma2:   raw.Gamma2,
		Delta2:   raw.Delta2,
		IC:       raw.IC,
	}, nil
}

// Hash commits to the verifying key: the canonical encoding of every
// coordinate, hashed under the verifying-key domain. Coordinate strings
// are normalized through big.Int first, so leading zeros or projective
// padding cannot change the commitment.
func (vk *VerifyingKey) Hash() ([]byte, error) {
	enc := canonical.NewEncoder()
	addG1 := func(name string, pt []string) {
		x, _ := new(big.Int).SetString(pt[0], 10)
		y, _ := new(big.Int).SetString(pt[1], 10)
		enc.BigInt(name+".x", x)
		enc.BigInt(name+".y", y)
	}
	addG2 := func(name string, pt [][]string) {
		for i, limb := range []string{"a0", "a1"} {
			x, _ := new(big.Int).SetString(pt[0][i], 10)
			y, _ := new(big.Int).SetString(pt[1][i], 10)
			enc.BigInt(name+".x."+limb, x)
			enc.BigInt(name+".y."+limb, y)
		}
	}
	addG1("alpha_1", vk.Alpha1)
	addG2("beta_2", vk.Beta2)
	addG2("gamma_2", vk.Gamma2)
	addG2("delta_2", vk.Delta2)
	for i, pt := range vk.IC {
		addG1(fmt.Sprintf("ic_%d", i), pt)
	}
	encoded, err := enc.Encode()
	if err != nil {
		return nil, err
	}
	return hashing.Sum(hashing.DomainVerifyingKey, encoded), nil
}

// checkG1 validates the shape of a snarkjs G1 point: affine [x, y] or
// projective [x, y, "1"].
func checkG1(field string, pt []string) error {
	if len(pt) != 2 && len(pt) != 3 {
		return report.Malformed(field, "G1 point must have 2 or 3 coordinates, got %d", len(pt))
	}
	if len(pt) == 3 && pt[2] != "1" {
		return report.Malformed(field, "projective G1 point with z=%q, only affine points are accepted", pt[2])
	}
	for i, c := range pt[:2] {
		if _, err := parseDecimal(field, c); err != nil {
			return report.Malformed(field, "coordinate %d: malformed decimal %q", i, c)
		}
	}
	return nil
}

// checkG2 validates the shape of a snarkjs G2 point; each coordinate is a
// degree-2 extension element [a0, a1].
func checkG2(field string, pt [][]string) error {
	if len(pt) != 2 && len(pt) != 3 {
		return report.Malformed(field, "G2 point must have 2 or 3 coordinates, got %d", len(pt))
	}
	if len(pt) == 3 {
		if len(pt[2]) != 2 || pt[2][0] != "1" || pt[2][1] != "0" {
			return report.Malformed(field, "projective G2 point, only affine points are accepted")
		}
	}
	for i, coord := range pt[:2] {
		if len(coord) != 2 {
			return report.Malformed(field, "coordinate %d must have 2 limbs, got %d", i, len(coord))
		}
		for j, c := range coord {
			if _, err := parseDecimal(field, c); err != nil {
				return report.Malformed(field, "coordinate %d limb %d: malformed decimal %q", i, j, c)
			}
		}
	}
	return nil
}
