package snapshot

import (
	"encoding/json"
	"math/big"
	"os"

	"github.com/zeknow-solv/verifier/internal/report"
)

type snapshotJSON struct {
	Source    string        `json:"source"`
	Kind      string        `json:"kind"`
	Addresses []addressJSON `json:"addresses"`
}

type addressJSON struct {
	Address  string   `json:"address"`
	Balances []string `json:"balances"`
}

// Load reads and validates a snapshot file.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, report.Wrap(report.KindMalformedInput, err, "reading %s", path)
	}
	return Parse(data)
}

// Parse validates a decoded snapshot document.
func Parse(data []byte) (*Snapshot, error) {
	var raw snapshotJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, report.Wrap(report.KindMalformedInput, err, "decoding snapshot")
	}
	if raw.Source == "" {
		return nil, report.Malformed("source", "missing source name")
	}
	kind := AddressKind(raw.Kind)
	switch kind {
	case KindETH, KindBTCPubKey, KindBTCScript:
	default:
		return nil, report.Malformed("kind", "unknown address kind %q", raw.Kind)
	}
	s := &Snapshot{Source: raw.Source, Kind: kind}
	for i, a := range raw.Addresses {
		if a.Address == "" {
			return nil, report.Malformed("addresses", "address %d: missing address", i)
		}
		info := AddressInfo{Address: a.Address}
		for j, b := range a.Balances {
			v, ok := new(big.Int).SetString(b, 10)
			if !ok || v.Sign() < 0 {
				return nil, report.Malformed("addresses", "address %d balance %d: malformed value %q", i, j, b)
			}
			info.Balances = append(info.Balances, v)
		}
		s.Addresses = append(s.Addresses, info)
	}
	return s, nil
}
