// Package solvency orchestrates the full solvency verification run:
// trust anchor, public-outputs hash, Groth16 proof, receipt inclusion and
// optional snapshot spot checks, composed into one report.
package solvency

import (
	"bytes"
	"context"
	"math/big"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/zeknow-solv/verifier/internal/hashing"
	"github.com/zeknow-solv/verifier/internal/liability"
	"github.com/zeknow-solv/verifier/internal/merkle"
	"github.com/zeknow-solv/verifier/internal/pubout"
	"github.com/zeknow-solv/verifier/internal/records"
	"github.com/zeknow-solv/verifier/internal/report"
	"github.com/zeknow-solv/verifier/internal/snapshot"
	"github.com/zeknow-solv/verifier/internal/snark"
)

// Input bundles everything one verification run consumes. Receipt is
// optional; the inclusion check is skipped when it is nil.
type Input struct {
	PublicOutputs *records.PublicOutputs
	VerifyingKey  *records.VerifyingKey
	Proof         *records.Proof
	Receipt       *records.Receipt

	// TrustedVKHash is the out-of-band anchor the published verifying-key
	// hash must match.
	TrustedVKHash []byte
}

// Verifier runs the pipeline. SpotChecker may be nil; Logger defaults to
// a disabled logger.
type Verifier struct {
	Snark       snark.Verifier
	SpotChecker snapshot.BalanceSpotChecker
	Logger      zerolog.Logger
}

// New returns a Verifier backed by the given snark adapter.
func New(sv snark.Verifier) *Verifier {
	return &Verifier{Snark: sv, Logger: zerolog.Nop()}
}

// VerifySolvency runs every applicable check and returns the composite
// report. Independent checks never fail fast: a broken trust anchor does
// not suppress the snark or inclusion outcome. The report is complete even
// when ctx is cancelled mid-run.
func (v *Verifier) VerifySolvency(ctx context.Context, in *Input) *report.Report {
	rep := &report.Report{}

	// Trust anchor and target hash first: cheap, and the snark check
	// consumes the recomputed hash as its public input. A failure here
	// suppresses only the snark check; inclusion and spot checks do not
	// depend on the target hash.
	var target *big.Int
	res, err := pubout.Verify(in.PublicOutputs, in.TrustedVKHash)
	if err != nil {
		rep.Add(report.CheckTrustAnchor, err)
		rep.Add(report.CheckPublicHash, report.Wrap(report.KindOf(err), err, "target hash unavailable"))
	} else {
		anchorErr := res.TrustAnchorErr
		if anchorErr == nil {
			anchorErr = v.checkKeyBinding(in)
		}
		rep.Add(report.CheckTrustAnchor, anchorErr)

		target = hashing.ToInt(res.TargetPubHash)
		var hashErr error
		if in.Proof.PublicInput.Cmp(target) != 0 {
			hashErr = report.Errorf(report.KindHashMismatch,
				"declared public input does not match the recomputed public-outputs hash")
		}
		rep.Add(report.CheckPublicHash, hashErr)

		v.Logger.Debug().
			Str("target_pubhash", target.Text(16)).
			Bool("trust_anchor_ok", anchorErr == nil).
			Msg("public outputs bound")
	}

	// The remaining checks are independent of each other.
	var (
		wg       sync.WaitGroup
		snarkErr error
		inclErr  error
		spotErrs map[string]error
	)

	if target != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snarkErr = v.checkSnark(ctx, in, target)
		}()
	}

	if in.Receipt != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inclErr = checkInclusion(in.Receipt, in.PublicOutputs)
		}()
	}

	if v.SpotChecker != nil {
		spotErrs = make(map[string]error, len(in.PublicOutputs.SnapshotHashes))
		var mu sync.Mutex
		for source, hash := range in.PublicOutputs.SnapshotHashes {
			wg.Add(1)
			go func(source string, hash []byte) {
				defer wg.Done()
				err := v.SpotChecker.CheckSource(ctx, source, hash)
				mu.Lock()
				spotErrs[source] = err
				mu.Unlock()
			}(source, hash)
		}
	}
	wg.Wait()

	if target != nil {
		rep.Add(report.CheckSnark, snarkErr)
	} else {
		rep.Skip(report.CheckSnark)
	}
	if in.Receipt != nil {
		rep.Add(report.CheckInclusion, inclErr)
	} else {
		rep.Skip(report.CheckInclusion)
	}
	for _, source := range sortedSources(spotErrs) {
		rep.Add(report.CheckSnapshot+":"+source, spotErrs[source])
	}

	for _, c := range rep.Failures() {
		v.Logger.Warn().Str("check", c.Name).Err(c.Err).Msg("check failed")
	}
	return rep
}

// checkKeyBinding verifies that the verifying key in hand is the one the
// public outputs and the proof commit to.
func (v *Verifier) checkKeyBinding(in *Input) error {
	vkHash, err := in.VerifyingKey.Hash()
	if err != nil {
		return err
	}
	if !bytes.Equal(vkHash, in.PublicOutputs.VerifyingKeyHash) {
		return report.Errorf(report.KindTrustAnchorMismatch,
			"verifying key does not hash to the published verifying-key hash")
	}
	if !bytes.Equal(vkHash, in.Proof.VerifyingKeyHash) {
		return report.Errorf(report.KindTrustAnchorMismatch,
			"proof references a different verifying key")
	}
	return nil
}

// checkSnark verifies the pairing against the recomputed target hash, not
// the declared public input, so a forged declaration cannot help a proof.
func (v *Verifier) checkSnark(ctx context.Context, in *Input, target *big.Int) error {
	res, err := v.Snark.Verify(ctx, in.VerifyingKey, in.Proof, target)
	if err != nil {
		return err
	}
	if res != snark.Valid {
		return report.Errorf(report.KindSnarkVerificationFailed, "pairing check rejected the proof")
	}
	return nil
}

// checkInclusion recomputes the receipt's leaf hash from its identity and
// balances, then walks the sibling path to the published liabilities root.
func checkInclusion(r *records.Receipt, po *records.PublicOutputs) error {
	if r.TreeDepth != po.TreeDepth {
		return report.Malformed("tree_depth",
			"receipt depth %d disagrees with published depth %d", r.TreeDepth, po.TreeDepth)
	}
	if len(r.ExpectedRoot) != 0 && !bytes.Equal(r.ExpectedRoot, po.LiabilitiesRoot) {
		return report.Errorf(report.KindMerkleVerificationFailed,
			"receipt was issued against a different liabilities root")
	}
	leafHash, err := liability.ReceiptLeafHash(r)
	if err != nil {
		return err
	}
	return merkle.Verify(leafHash, r.Path, r.LeafIndex, r.TreeDepth, po.LiabilitiesRoot)
}

func sortedSources(m map[string]error) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for s := range m {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
