// Package records defines the typed, immutable records the verifier
// consumes: public outputs, SNARK proofs and verifying keys in the
// snarkjs wire layout the prover emits, and liability receipts.
//
// Records are validated on load; a schema violation is reported as a
// MalformedInput error carrying the offending field path. Loaded records
// are never mutated.
package records

import (
	"encoding/hex"
	"encoding/json"
	"math/big"
	"os"
	"strings"

	"github.com/zeknow-solv/verifier/internal/hashing"
	"github.com/zeknow-solv/verifier/internal/report"
)

// ProtocolVersion pins the record schema together with the hash-engine
// identity. A record carrying a different version is rejected before any
// cryptographic check runs.
const ProtocolVersion = "zsv-mimc-bn254-v1"

func parseHexDigest(field, s string) ([]byte, error) {
	raw := strings.TrimPrefix(s, "0x")
	if raw == "" {
		return nil, report.Malformed(field, "missing hex value")
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return nil, report.Malformed(field, "malformed hex %q", s)
	}
	if len(b) != hashing.Size {
		return nil, report.Malformed(field, "digest is %d bytes, want %d", len(b), hashing.Size)
	}
	if !hashing.InField(hashing.ToInt(b)) {
		return nil, report.Malformed(field, "value is not a canonical field element")
	}
	return b, nil
}

// parseHexBig parses a variable-length hex integer, the form account IDs
// are printed in on receipts.
func parseHexBig(field, s string) (*big.Int, error) {
	raw := strings.TrimPrefix(s, "0x")
	if raw == "" {
		return nil, report.Malformed(field, "missing hex value")
	}
	v, ok := new(big.Int).SetString(raw, 16)
	if !ok || v.Sign() < 0 {
		return nil, report.Malformed(field, "malformed hex %q", s)
	}
	return v, nil
}

func parseDecimal(field, s string) (*big.Int, error) {
	if s == "" {
		return nil, report.Malformed(field, "missing value")
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, report.Malformed(field, "malformed decimal %q", s)
	}
	if v.Sign() < 0 {
		return nil, report.Malformed(field, "negative value %q", s)
	}
	return v, nil
}

func checkVersion(field, got string) error {
	if got == "" {
		return report.Malformed(field, "missing protocol version")
	}
	if got != ProtocolVersion {
		return report.Malformed(field, "unsupported protocol version %q, this verifier speaks %q", got, ProtocolVersion)
	}
	return nil
}

func unmarshal(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return report.Wrap(report.KindMalformedInput, err, "decoding record")
	}
	return nil
}

func loadJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return report.Wrap(report.KindMalformedInput, err, "reading %s", path)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return report.Wrap(report.KindMalformedInput, err, "decoding %s", path)
	}
	return nil
}
