// Package liability reproduces the proving side's liability-leaf
// construction: account-ID derivation, balance precision scaling, and
// packing of balances into field elements, so a receipt's leaf hash can
// be recomputed from the data printed on the receipt.
package liability

import (
	"crypto/sha512"
	"fmt"
	"math/big"
	"strings"

	"github.com/zeknow-solv/verifier/internal/hashing"
	"github.com/zeknow-solv/verifier/internal/records"
	"github.com/zeknow-solv/verifier/internal/report"
)

const (
	// BalanceBits bounds each scaled balance; six of them pack into one
	// 254-bit field element.
	BalanceBits        = 42
	BalancesPerElement = 6

	// AccountIDBits truncates the SHA-512 digest so the ID fits a field
	// element with headroom.
	AccountIDBits = 252

	// BalanceDimension reserves slots for future tokens; unsupported
	// slots carry zero balances.
	BalanceDimension = 18
)

// Supported tokens and their decimal precisions. Account precision is
// what receipts print; proof precision is what the circuits commit to.
const (
	TokenBTC = "BTC"
	TokenETH = "ETH"
)

var accountPrecision = map[string]int{
	TokenBTC: 8,
	TokenETH: 18,
}

var proofPrecision = map[string]int{
	TokenBTC: 8,
	TokenETH: 7,
}

var snapshotPrecision = map[string]int{
	TokenBTC: 8,
	TokenETH: 18,
}

// BalanceOrder returns the fixed token ordering of the liability leaf.
// Slots beyond the supported tokens are reserved and always zero.
func BalanceOrder() []string {
	order := []string{TokenBTC, TokenETH}
	for i := len(order); i < BalanceDimension; i++ {
		order = append(order, fmt.Sprintf("Unsupported-Index-%d", i-2))
	}
	return order
}

// AccountID derives the unique account identifier from username and
// nonce: the top 252 bits of SHA-512(username || nonce).
func AccountID(username, nonce string) *big.Int {
	sum := sha512.Sum512([]byte(username + nonce))
	id := new(big.Int).SetBytes(sum[:])
	return id.Rsh(id, 512-AccountIDBits)
}

// ParseAmount converts a receipt balance string at the token's account
// precision ("1.00000000" for one BTC) into integer base units. The
// decimal point must sit exactly at the token's precision.
func ParseAmount(token, s string) (*big.Int, error) {
	prec, ok := accountPrecision[token]
	if !ok {
		return nil, report.Malformed("balances."+token, "token %q is not supported", token)
	}
	dot := len(s) - prec - 1
	if dot < 1 || s[dot] != '.' {
		return nil, report.Malformed("balances."+token, "balance %q is not at %d decimal places", s, prec)
	}
	digits := s[:dot] + s[dot+1:]
	if strings.Trim(digits, "0123456789") != "" {
		return nil, report.Malformed("balances."+token, "balance %q contains non-digits", s)
	}
	v, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, report.Malformed("balances."+token, "malformed balance %q", s)
	}
	return v, nil
}

// scaleUnits rescales an integer between decimal precisions, rounding up
// on truncation so a liability is never understated.
func scaleUnits(value *big.Int, inputDecimals, outputDecimals int) *big.Int {
	diff := outputDecimals - inputDecimals
	if diff >= 0 {
		mul := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(diff)), nil)
		return new(big.Int).Mul(value, mul)
	}
	div := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(-diff)), nil)
	q, r := new(big.Int).QuoRem(value, div, new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

// AccountToProof rescales a balance from account precision to the proof
// precision committed inside the circuits. Unknown tokens pass through.
func AccountToProof(token string, value *big.Int) *big.Int {
	in, okIn := accountPrecision[token]
	out, okOut := proofPrecision[token]
	if !okIn || !okOut {
		return new(big.Int).Set(value)
	}
	return scaleUnits(value, in, out)
}

// SnapshotToProof rescales a snapshot balance to proof precision.
func SnapshotToProof(token string, value *big.Int) *big.Int {
	in, okIn := snapshotPrecision[token]
	out, okOut := proofPrecision[token]
	if !okIn || !okOut {
		return new(big.Int).Set(value)
	}
	return scaleUnits(value, in, out)
}

// PackBalances packs proof-precision balances into field elements, six
// 42-bit balances per element, lowest slot in the least significant bits.
func PackBalances(balances []*big.Int) ([]*big.Int, error) {
	limit := new(big.Int).Lsh(big.NewInt(1), BalanceBits)
	var packed []*big.Int
	for start := 0; start < len(balances); start += BalancesPerElement {
		acc := new(big.Int)
		shift := uint(0)
		for i := start; i < start+BalancesPerElement && i < len(balances); i++ {
			b := balances[i]
			if b.Sign() < 0 || b.Cmp(limit) >= 0 {
				return nil, report.Malformed("balances", "balance at slot %d does not fit %d bits", i, BalanceBits)
			}
			acc.Add(acc, new(big.Int).Lsh(b, shift))
			shift += BalanceBits
		}
		packed = append(packed, acc)
	}
	return packed, nil
}

// LeafElements assembles the leaf payload: the account ID followed by the
// packed balance elements.
func LeafElements(accountID *big.Int, packed []*big.Int) []*big.Int {
	out := make([]*big.Int, 0, 1+len(packed))
	out = append(out, accountID)
	return append(out, packed...)
}

// ReceiptLeafHash recomputes the liability leaf hash from a receipt.
// The account ID printed on the receipt must match the one derived from
// username and nonce; a forged ID is a schema violation, not a failed
// fold.
func ReceiptLeafHash(r *records.Receipt) ([]byte, error) {
	derived := AccountID(r.Username, r.Nonce)
	if derived.Cmp(r.AccountID) != 0 {
		return nil, report.Malformed("account_id",
			"account id %s does not match the id derived from username and nonce (%s)",
			r.AccountID.Text(16), derived.Text(16))
	}

	byToken := make(map[string]*big.Int, len(r.Balances))
	for _, b := range r.Balances {
		v, err := ParseAmount(b.Token, b.Amount)
		if err != nil {
			return nil, err
		}
		byToken[b.Token] = v
	}

	var scaled []*big.Int
	for _, token := range BalanceOrder() {
		v, ok := byToken[token]
		if !ok || v.Sign() == 0 {
			scaled = append(scaled, new(big.Int))
			continue
		}
		scaled = append(scaled, AccountToProof(token, v))
	}
	packed, err := PackBalances(scaled)
	if err != nil {
		return nil, err
	}
	return hashing.SumInts(hashing.DomainLeaf, LeafElements(derived, packed)...), nil
}
