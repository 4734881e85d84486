// Package pubout recomputes the canonical hash of a public-outputs
// record, the value a solvency proof's public input is bound to, and
// checks the record against the out-of-band trust anchor.
package pubout

import (
	"bytes"

	"github.com/zeknow-solv/verifier/internal/hashing"
	"github.com/zeknow-solv/verifier/internal/records"
	"github.com/zeknow-solv/verifier/internal/report"
)

// Result carries both outcomes of Verify. The two steps always run; a
// trust-anchor mismatch does not suppress the recomputed hash, so the
// caller can still diagnose a stale or forged public input.
type Result struct {
	// TargetPubHash is the recomputed canonical hash, to be compared
	// against the proof's declared public input.
	TargetPubHash []byte
	// TrustAnchorErr is nil iff the record's verifying-key hash equals
	// the injected trusted constant.
	TrustAnchorErr error
}

// Verify checks the record's verifying-key hash against the trusted
// constant and recomputes the canonical public-outputs hash. Only a
// canonicalization failure returns a non-nil error.
func Verify(po *records.PublicOutputs, trustedVKHash []byte) (Result, error) {
	var res Result
	if len(trustedVKHash) != hashing.Size {
		return res, report.Malformed("trusted_vk_hash", "trusted hash is %d bytes, want %d", len(trustedVKHash), hashing.Size)
	}
	if !bytes.Equal(po.VerifyingKeyHash, trustedVKHash) {
		res.TrustAnchorErr = report.Errorf(report.KindTrustAnchorMismatch,
			"public outputs commit to verifying key %x, trusted constant is %x",
			po.VerifyingKeyHash, trustedVKHash)
	}
	encoded, err := po.Canonical()
	if err != nil {
		return res, err
	}
	res.TargetPubHash = hashing.Sum(hashing.DomainPublicOutputs, encoded)
	return res, nil
}
