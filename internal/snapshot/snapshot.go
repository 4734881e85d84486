// Package snapshot recomputes the hash of an asset snapshot (anonymity
// set) so it can be compared with the per-source snapshot hash the prover
// reveals in the public outputs. Spot-checking the snapshot's balances
// against real chain state belongs to an external collaborator; only its
// interface lives here.
package snapshot

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/mr-tron/base58"

	"github.com/zeknow-solv/verifier/internal/hashing"
	"github.com/zeknow-solv/verifier/internal/liability"
	"github.com/zeknow-solv/verifier/internal/report"
)

// AddressKind selects how snapshot addresses are mapped to field
// elements.
type AddressKind string

const (
	// KindETH maps a hex address to one register.
	KindETH AddressKind = "eth"
	// KindBTCPubKey maps a base58 address to one register.
	KindBTCPubKey AddressKind = "btc_pubkey"
	// KindBTCScript splits a 256-bit script hash into two 128-bit
	// registers, which is one more than a field element can carry.
	KindBTCScript AddressKind = "btc_script"
)

// AddressInfo is one public address and its owed-token balances, in the
// fixed balance order, at snapshot precision.
type AddressInfo struct {
	Address  string
	Balances []*big.Int
}

// Snapshot is one asset source's anonymity set.
type Snapshot struct {
	Source    string
	Kind      AddressKind
	Addresses []AddressInfo
}

// BalanceSpotChecker is the external collaborator that audits snapshot
// balances against real chain state. The core consumes this contract and
// never implements it.
type BalanceSpotChecker interface {
	// CheckSource audits one asset source's snapshot. A nil return means
	// the snapshot's balances look correct; the hash binding the
	// snapshot to the public outputs is checked separately.
	CheckSource(ctx context.Context, source string, snapshotHash []byte) error
}

// Hash computes the snapshot's anonymity-set hash: a chain hash over the
// proof-precision balances, a chain hash over the address registers, and
// a final pairwise hash of the two.
func Hash(s *Snapshot) ([]byte, error) {
	if len(s.Addresses) == 0 {
		return nil, report.Malformed("addresses", "empty anonymity set")
	}
	order := liability.BalanceOrder()

	var balances []*big.Int
	for i, info := range s.Addresses {
		if len(info.Balances) != len(order) {
			return nil, report.Malformed("addresses", "address %d carries %d balances, want %d", i, len(info.Balances), len(order))
		}
		for j, b := range info.Balances {
			if b == nil || b.Sign() < 0 {
				return nil, report.Malformed("addresses", "address %d balance %d is negative or missing", i, j)
			}
			balances = append(balances, liability.SnapshotToProof(order[j], b))
		}
	}
	balancesHash := hashing.SumInts(hashing.DomainSnapshot, balances...)

	var regs []*big.Int
	for i, info := range s.Addresses {
		r, err := AddressRegisters(info.Address, s.Kind)
		if err != nil {
			return nil, report.Malformed("addresses", "address %d: %v", i, err)
		}
		regs = append(regs, r...)
	}
	addrsHash := hashing.SumInts(hashing.DomainSnapshot, regs...)

	return hashing.Sum(hashing.DomainSnapshot, balancesHash, addrsHash), nil
}

// AddressRegisters maps one address to its integer registers.
func AddressRegisters(addr string, kind AddressKind) ([]*big.Int, error) {
	switch kind {
	case KindETH:
		v, err := ethAddrToInt(addr)
		if err != nil {
			return nil, err
		}
		return []*big.Int{v}, nil
	case KindBTCPubKey:
		v, err := btcAddrToInt(addr)
		if err != nil {
			return nil, err
		}
		if v.BitLen() > 160 {
			return nil, report.Malformed("address", "address %q carries a %d-bit hash, want a key hash", addr, v.BitLen())
		}
		return []*big.Int{v}, nil
	case KindBTCScript:
		v, err := btcAddrToInt(addr)
		if err != nil {
			return nil, err
		}
		mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
		lo := new(big.Int).And(v, mask)
		hi := new(big.Int).Rsh(v, 128)
		return []*big.Int{lo, hi}, nil
	default:
		return nil, report.Malformed("kind", "unknown address kind %q", kind)
	}
}

func ethAddrToInt(addr string) (*big.Int, error) {
	raw := strings.TrimPrefix(strings.TrimPrefix(addr, "0x"), "0X")
	v, ok := new(big.Int).SetString(raw, 16)
	if !ok || v.Sign() < 0 {
		return nil, report.Malformed("address", "malformed hex address %q", addr)
	}
	if v.BitLen() > 160 {
		return nil, report.Malformed("address", "address %q exceeds 160 bits", addr)
	}
	return v, nil
}

// btcAddrToInt extracts the hash part of a Bitcoin address as an integer.
// Legacy base58 addresses (P2PKH, P2SH) carry a 160-bit hash; bech32
// addresses carry a 160-bit (P2WPKH) or 256-bit (P2WSH) witness program.
func btcAddrToInt(addr string) (*big.Int, error) {
	switch {
	case addr == "":
		return nil, report.Malformed("address", "empty address")
	case addr[0] == '1' || addr[0] == '3':
		return btcB58ToInt(addr)
	case hasBech32Prefix(addr):
		return bech32AddrToInt(addr)
	default:
		return nil, report.Malformed("address", "unknown address form %q", addr)
	}
}

// btcB58ToInt decodes a base58 address, strips the 4-byte checksum, and
// keeps the trailing 20 payload bytes.
func btcB58ToInt(addr string) (*big.Int, error) {
	decoded, err := base58.Decode(addr)
	if err != nil {
		return nil, report.Malformed("address", "malformed base58 address %q", addr)
	}
	if len(decoded) <= 4 {
		return nil, report.Malformed("address", "address %q too short", addr)
	}
	payload := decoded[:len(decoded)-4]
	if len(payload) > 20 {
		if len(payload) != 21 {
			return nil, report.Malformed("address", "address %q payload is %d bytes, want at most 21", addr, len(payload))
		}
		payload = payload[len(payload)-20:]
	}
	return new(big.Int).SetBytes(payload), nil
}

const bech32Charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

func hasBech32Prefix(addr string) bool {
	lower := strings.ToLower(addr)
	return strings.HasPrefix(lower, "bc1") && (len(addr) == 42 || len(addr) == 62)
}

// bech32AddrToInt extracts the witness program from a bech32 address:
// 42 characters for P2WPKH (20-byte program), 62 for P2WSH (32-byte
// program). The hash is what ownership proofs commit to, so the checksum
// characters are stripped, not validated.
func bech32AddrToInt(addr string) (*big.Int, error) {
	if strings.ToLower(addr) != addr && strings.ToUpper(addr) != addr {
		return nil, report.Malformed("address", "mixed-case bech32 address %q", addr)
	}
	lower := strings.ToLower(addr)
	// Skip "bc1" plus the witness version character, drop the 6-character
	// checksum.
	program := lower[4 : len(lower)-6]
	values := make([]byte, len(program))
	for i := 0; i < len(program); i++ {
		idx := strings.IndexByte(bech32Charset, program[i])
		if idx < 0 {
			return nil, report.Malformed("address", "address %q has invalid bech32 character %q", addr, program[i])
		}
		values[i] = byte(idx)
	}
	decoded, err := convertBits(values, 5, 8)
	if err != nil {
		return nil, report.Malformed("address", "address %q: %v", addr, err)
	}
	v := new(big.Int).SetBytes(decoded)
	if v.Sign() == 0 {
		return nil, report.Malformed("address", "address %q decodes to a zero witness program", addr)
	}
	return v, nil
}

// convertBits regroups 5-bit bech32 values into bytes, strictly: no
// padding is added and leftover bits must be zero.
func convertBits(data []byte, fromBits, toBits uint) ([]byte, error) {
	var acc, bits uint
	maxv := uint(1)<<toBits - 1
	maxAcc := uint(1)<<(fromBits+toBits-1) - 1
	out := make([]byte, 0, len(data)*int(fromBits)/int(toBits))
	for _, value := range data {
		if uint(value)>>fromBits != 0 {
			return nil, fmt.Errorf("value %d exceeds %d bits", value, fromBits)
		}
		acc = (acc<<fromBits | uint(value)) & maxAcc
		bits += fromBits
		for bits >= toBits {
			bits -= toBits
			out = append(out, byte(acc>>bits&maxv))
		}
	}
	if bits >= fromBits || acc<<(toBits-bits)&maxv != 0 {
		return nil, fmt.Errorf("invalid trailing bits")
	}
	return out, nil
}
