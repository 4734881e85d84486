package snapshot

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/zeknow-solv/verifier/internal/liability"
	"github.com/zeknow-solv/verifier/internal/report"
)

func sampleSnapshot() *Snapshot {
	dim := liability.BalanceDimension
	mkBalances := func(btc, eth int64) []*big.Int {
		out := make([]*big.Int, dim)
		out[0] = big.NewInt(btc)
		out[1] = big.NewInt(eth)
		for i := 2; i < dim; i++ {
			out[i] = new(big.Int)
		}
		return out
	}
	return &Snapshot{
		Source: "eth",
		Kind:   KindETH,
		Addresses: []AddressInfo{
			{Address: "0x52908400098527886e0f7030069857d2e4169ee7", Balances: mkBalances(0, 5_000_000_000_000_000_000)},
			{Address: "0x8617e340b3d01fa5f11f306f4090fd50e238070d", Balances: mkBalances(0, 1)},
		},
	}
}

func TestHashDeterministic(t *testing.T) {
	a, err := Hash(sampleSnapshot())
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	b, err := Hash(sampleSnapshot())
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("snapshot hash not deterministic: %x vs %x", a, b)
	}
}

func TestHashSensitivity(t *testing.T) {
	base, _ := Hash(sampleSnapshot())

	mutated := sampleSnapshot()
	mutated.Addresses[1].Balances[1] = big.NewInt(2)
	h, err := Hash(mutated)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if bytes.Equal(base, h) {
		t.Fatal("changing a balance did not change the snapshot hash")
	}

	mutated = sampleSnapshot()
	mutated.Addresses[0].Address = "0x52908400098527886e0f7030069857d2e4169ee8"
	h, err = Hash(mutated)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if bytes.Equal(base, h) {
		t.Fatal("changing an address did not change the snapshot hash")
	}
}

func TestAddressRegisters(t *testing.T) {
	regs, err := AddressRegisters("0xff", KindETH)
	if err != nil {
		t.Fatalf("AddressRegisters: %v", err)
	}
	if len(regs) != 1 || regs[0].Cmp(big.NewInt(255)) != 0 {
		t.Fatalf("eth regs = %v, want [255]", regs)
	}

	if _, err := AddressRegisters("not hex", KindETH); report.KindOf(err) != report.KindMalformedInput {
		t.Errorf("bad eth address: got %v, want MalformedInput", err)
	}
	if _, err := AddressRegisters("0x0l", KindBTCPubKey); report.KindOf(err) != report.KindMalformedInput {
		t.Errorf("bad base58 address: got %v, want MalformedInput", err)
	}
}

func TestParseSnapshot(t *testing.T) {
	doc := []byte(`{
		"source": "eth",
		"kind": "eth",
		"addresses": [
			{"address": "0xff", "balances": ["1", "2"]}
		]
	}`)
	s, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if s.Source != "eth" || len(s.Addresses) != 1 {
		t.Fatalf("unexpected snapshot: %+v", s)
	}

	bad := []byte(`{"source": "eth", "kind": "plasma", "addresses": []}`)
	if _, err := Parse(bad); report.KindOf(err) != report.KindMalformedInput {
		t.Errorf("unknown kind: got %v, want MalformedInput", err)
	}
}

func TestHashRejectsWrongDimension(t *testing.T) {
	s := &Snapshot{
		Source:    "eth",
		Kind:      KindETH,
		Addresses: []AddressInfo{{Address: "0xff", Balances: []*big.Int{big.NewInt(1)}}},
	}
	if _, err := Hash(s); report.KindOf(err) != report.KindMalformedInput {
		t.Errorf("wrong balance dimension: got %v, want MalformedInput", err)
	}
}

func TestAddressRegistersBech32WitnessPrograms(t *testing.T) {
	// BIP-173 test vectors: the P2WPKH program is
	// 751e76e8199196d454941c45d1b3a323f1433bd6, the P2WSH program is
	// 1863143c14c5166804bd19203356da136c985678cd4d27a1b8c6329604903262.
	p2wpkh := "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4"
	p2wsh := "bc1qrp33g0q5c5txsp9arysrx4k6zdkfs4nce4xj0gdcccefvpysxf3qccfmv3"

	regs, err := AddressRegisters(p2wpkh, KindBTCPubKey)
	if err != nil {
		t.Fatalf("AddressRegisters(p2wpkh): %v", err)
	}
	want, _ := new(big.Int).SetString("751e76e8199196d454941c45d1b3a323f1433bd6", 16)
	if len(regs) != 1 || regs[0].Cmp(want) != 0 {
		t.Fatalf("p2wpkh regs = %v, want [%s]", regs, want.Text(16))
	}

	regs, err = AddressRegisters(p2wsh, KindBTCScript)
	if err != nil {
		t.Fatalf("AddressRegisters(p2wsh): %v", err)
	}
	wantLo, _ := new(big.Int).SetString("6c985678cd4d27a1b8c6329604903262", 16)
	wantHi, _ := new(big.Int).SetString("1863143c14c5166804bd19203356da13", 16)
	if len(regs) != 2 || regs[0].Cmp(wantLo) != 0 || regs[1].Cmp(wantHi) != 0 {
		t.Fatalf("p2wsh regs = %v, want [%s %s]", regs, wantLo.Text(16), wantHi.Text(16))
	}
	// The split is the whole point of the script kind: the program does
	// not fit one 160-bit register.
	if regs[1].Sign() == 0 {
		t.Fatal("p2wsh high register is zero, the 256-bit program was truncated")
	}
}

func TestAddressRegistersBech32Rejects(t *testing.T) {
	cases := map[string]string{
		"mixed case":    "bc1QW508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4",
		"bad character": "bc1qw508d6qejxtdg4y5r3zbrvary0c5xw7kv8f3t4",
		"bad length":    "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3",
	}
	for name, addr := range cases {
		if _, err := AddressRegisters(addr, KindBTCPubKey); report.KindOf(err) != report.KindMalformedInput {
			t.Errorf("%s: got %v, want MalformedInput", name, err)
		}
	}
	// A 256-bit script program cannot ride in the single key-hash register.
	p2wsh := "bc1qrp33g0q5c5txsp9arysrx4k6zdkfs4nce4xj0gdcccefvpysxf3qccfmv3"
	if _, err := AddressRegisters(p2wsh, KindBTCPubKey); report.KindOf(err) != report.KindMalformedInput {
		t.Errorf("p2wsh as pubkey: got %v, want MalformedInput", err)
	}
}

func TestHashBTCScriptSnapshot(t *testing.T) {
	dim := liability.BalanceDimension
	balances := make([]*big.Int, dim)
	balances[0] = big.NewInt(300_000_000)
	for i := 1; i < dim; i++ {
		balances[i] = new(big.Int)
	}
	s := &Snapshot{
		Source: "btc",
		Kind:   KindBTCScript,
		Addresses: []AddressInfo{
			{
				Address:  "bc1qrp33g0q5c5txsp9arysrx4k6zdkfs4nce4xj0gdcccefvpysxf3qccfmv3",
				Balances: balances,
			},
		},
	}
	a, err := Hash(s)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	b, err := Hash(s)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("btc_script snapshot hash not deterministic: %x vs %x", a, b)
	}
}
