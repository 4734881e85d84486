package records

import (
	"math/big"

	"github.com/zeknow-solv/verifier/internal/canonical"
	"github.com/zeknow-solv/verifier/internal/report"
)

// PublicOutputs is the versioned, fixed-schema record of everything the
// prover reveals. Canonicalization is a pure function of its logical
// content; see Canonical.
type PublicOutputs struct {
	ProtocolVersion  string
	SnapshotHashes   map[string][]byte // asset source -> snapshot hash
	LiabilitiesRoot  []byte
	TotalAssets      *big.Int
	TotalLiabilities *big.Int
	Timestamp        int64
	VerifyingKeyHash []byte
	TreeDepth        int
}

type publicOutputsJSON struct {
	ProtocolVersion  string            `json:"protocol_version"`
	SnapshotHashes   map[string]string `json:"snapshot_hashes"`
	LiabilitiesRoot  string            `json:"liabilities_root"`
	TotalAssets      string            `json:"total_assets"`
	TotalLiabilities string            `json:"total_liabilities"`
	Timestamp        int64             `json:"timestamp"`
	VerifyingKeyHash string            `json:"verifying_key_hash"`
	TreeDepth        int               `json:"tree_depth"`
}

// LoadPublicOutputs reads and validates a public-outputs file.
func LoadPublicOutputs(path string) (*PublicOutputs, error) {
	var raw publicOutputsJSON
	if err := loadJSON(path, &raw); err != nil {
		return nil, err
	}
	return parsePublicOutputs(&raw)
}

// ParsePublicOutputs validates a decoded public-outputs document.
func ParsePublicOutputs(data []byte) (*PublicOutputs, error) {
	var raw publicOutputsJSON
	if err := unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return parsePublicOutputs(&raw)
}

func parsePublicOutputs(raw *publicOutputsJSON) (*PublicOutputs, error) {
	if err := checkVersion("protocol_version", raw.ProtocolVersion); err != nil {
		return nil, err
	}
	if len(raw.SnapshotHashes) == 0 {
		return nil, report.Malformed("snapshot_hashes", "at least one asset source is required")
	}
	po := &PublicOutputs{
		ProtocolVersion: raw.ProtocolVersion,
		SnapshotHashes:  make(map[string][]byte, len(raw.SnapshotHashes)),
		Timestamp:       raw.Timestamp,
		TreeDepth:       raw.TreeDepth,
	}
	for source, h := range raw.SnapshotHashes {
		if source == "" {
			return nil, report.Malformed("snapshot_hashes", "empty source name")
		}
		digest, err := parseHexDigest("snapshot_hashes."+source, h)
		if err != nil {
			return nil, err
		}
		po.SnapshotHashes[source] = digest
	}
	var err error
	if po.LiabilitiesRoot, err = parseHexDigest("liabilities_root", raw.LiabilitiesRoot); err != nil {
		return nil, err
	}
	if po.TotalAssets, err = parseDecimal("total_assets", raw.TotalAssets); err != nil {
		return nil, err
	}
	if po.TotalLiabilities, err = parseDecimal("total_liabilities", raw.TotalLiabilities); err != nil {
		return nil, err
	}
	if raw.Timestamp <= 0 {
		return nil, report.Malformed("timestamp", "missing or non-positive timestamp %d", raw.Timestamp)
	}
	if po.VerifyingKeyHash, err = parseHexDigest("verifying_key_hash", raw.VerifyingKeyHash); err != nil {
		return nil, err
	}
	if raw.TreeDepth < 0 || raw.TreeDepth > 64 {
		return nil, report.Malformed("tree_depth", "depth %d out of range [0,64]", raw.TreeDepth)
	}
	return po, nil
}

// Canonical returns the deterministic byte encoding of the record,
// independent of field insertion or parse order.
func (po *PublicOutputs) Canonical() ([]byte, error) {
	snaps := canonical.NewEncoder()
	for source, digest := range po.SnapshotHashes {
		snaps.Bytes(source, digest)
	}
	enc := canonical.NewEncoder()
	enc.String("protocol_version", po.ProtocolVersion)
	enc.Nested("snapshot_hashes", snaps)
	enc.Bytes("liabilities_root", po.LiabilitiesRoot)
	enc.BigInt("total_assets", po.TotalAssets)
	enc.BigInt("total_liabilities", po.TotalLiabilities)
	enc.Int64("timestamp", po.Timestamp)
	enc.Bytes("verifying_key_hash", po.VerifyingKeyHash)
	enc.Uint64("tree_depth", uint64(po.TreeDepth))
	return enc.Encode()
}
