package records

import (
	"math/big"

	"github.com/zeknow-solv/verifier/internal/report"
)

// Position of a sibling hash relative to the running hash.
type Position int

const (
	Left Position = iota
	Right
)

// PathEntry is one step of an ordered Merkle path, leaf to root.
type PathEntry struct {
	Sibling  []byte
	Position Position
}

// Balance is one owed token balance at account precision, as printed on
// the receipt ("1.00000000" for one BTC).
type Balance struct {
	Token  string
	Amount string
}

// Receipt is the inclusion proof issued to one liability holder.
// Immutable once issued; any edit breaks the Merkle fold.
type Receipt struct {
	ProtocolVersion string
	Username        string
	Nonce           string
	AccountID       *big.Int
	Balances        []Balance
	LeafIndex       uint64
	TreeDepth       int
	Path            []PathEntry
	ExpectedRoot    []byte
}

type receiptJSON struct {
	ProtocolVersion string          `json:"protocol_version"`
	Username        string          `json:"username"`
	Nonce           string          `json:"nonce"`
	AccountID       string          `json:"account_id"`
	Balances        []balanceJSON   `json:"balances"`
	LeafIndex       uint64          `json:"leaf_index"`
	TreeDepth       int             `json:"tree_depth"`
	Path            []pathEntryJSON `json:"merkle_path"`
	ExpectedRoot    string          `json:"expected_root"`
}

type balanceJSON struct {
	Token  string `json:"token"`
	Amount string `json:"balance"`
}

type pathEntryJSON struct {
	Sibling  string `json:"sibling"`
	Position string `json:"position"`
}

// LoadReceipt reads and validates a receipt file.
func LoadReceipt(path string) (*Receipt, error) {
	var raw receiptJSON
	if err := loadJSON(path, &raw); err != nil {
		return nil, err
	}
	return parseReceipt(&raw)
}

// ParseReceipt validates a decoded receipt document.
func ParseReceipt(data []byte) (*Receipt, error) {
	var raw receiptJSON
	if err := unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return parseReceipt(&raw)
}

func parseReceipt(raw *receiptJSON) (*Receipt, error) {
	if err := checkVersion("protocol_version", raw.ProtocolVersion); err != nil {
		return nil, err
	}
	if raw.Username == "" {
		return nil, report.Malformed("username", "missing username")
	}
	if raw.Nonce == "" {
		return nil, report.Malformed("nonce", "missing nonce")
	}
	accountID, err := parseHexBig("account_id", raw.AccountID)
	if err != nil {
		return nil, err
	}
	if len(raw.Balances) == 0 {
		return nil, report.Malformed("balances", "at least one balance is required")
	}
	r := &Receipt{
		ProtocolVersion: raw.ProtocolVersion,
		Username:        raw.Username,
		Nonce:           raw.Nonce,
		AccountID:       accountID,
		LeafIndex:       raw.LeafIndex,
		TreeDepth:       raw.TreeDepth,
	}
	seen := make(map[string]bool, len(raw.Balances))
	for i, b := range raw.Balances {
		if b.Token == "" {
			return nil, report.Malformed("balances", "entry %d: missing token", i)
		}
		if seen[b.Token] {
			return nil, report.Malformed("balances", "duplicate token %q", b.Token)
		}
		seen[b.Token] = true
		if b.Amount == "" {
			return nil, report.Malformed("balances", "entry %d (%s): missing balance", i, b.Token)
		}
		r.Balances = append(r.Balances, Balance{Token: b.Token, Amount: b.Amount})
	}
	if raw.TreeDepth < 0 || raw.TreeDepth > 64 {
		return nil, report.Malformed("tree_depth", "depth %d out of range [0,64]", raw.TreeDepth)
	}
	if raw.TreeDepth < 64 && raw.LeafIndex >= uint64(1)<<uint(raw.TreeDepth) {
		return nil, report.Malformed("leaf_index", "index %d does not fit a depth-%d tree", raw.LeafIndex, raw.TreeDepth)
	}
	for i, e := range raw.Path {
		sibling, err := parseHexDigest("merkle_path", e.Sibling)
		if err != nil {
			return nil, report.Malformed("merkle_path", "entry %d: %v", i, err)
		}
		var pos Position
		switch e.Position {
		case "left":
			pos = Left
		case "right":
			pos = Right
		default:
			return nil, report.Malformed("merkle_path", "entry %d: position %q must be \"left\" or \"right\"", i, e.Position)
		}
		r.Path = append(r.Path, PathEntry{Sibling: sibling, Position: pos})
	}
	root, err := parseHexDigest("expected_root", raw.ExpectedRoot)
	if err != nil {
		return nil, err
	}
	r.ExpectedRoot = root
	return r, nil
}
