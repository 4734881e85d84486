// Package canonical produces the deterministic byte encoding of structured
// records that gets hashed into trust anchors and public inputs.
//
// Fields are sorted lexicographically by name before serialization, every
// name and value is length-prefixed with a fixed 4-byte big-endian length,
// and nested records are encoded recursively and embedded as opaque
// length-prefixed blobs. The encoding of a record is a pure function of
// its logical content, never of insertion or parse order.
package canonical

import (
	"encoding/binary"
	"math/big"
	"sort"

	"github.com/zeknow-solv/verifier/internal/report"
)

// numWidth is the fixed width of numeric values, matching the hash
// engine's 32-byte field-element encoding.
const numWidth = 32

type field struct {
	name  string
	value []byte
}

// Encoder accumulates named fields of one record. The zero value is not
// usable; call NewEncoder.
type Encoder struct {
	fields []field
	err    error
}

func NewEncoder() *Encoder {
	return &Encoder{}
}

// fail records the first error and poisons the encoder.
func (e *Encoder) fail(err *report.Error) {
	if e.err == nil {
		e.err = err
	}
}

func (e *Encoder) add(name string, value []byte) {
	if name == "" {
		e.fail(report.Malformed(name, "empty field name"))
		return
	}
	e.fields = append(e.fields, field{name: name, value: value})
}

// Bytes adds a raw byte-string field.
func (e *Encoder) Bytes(name string, v []byte) {
	e.add(name, append([]byte(nil), v...))
}

// String adds a UTF-8 string field.
func (e *Encoder) String(name, v string) {
	e.add(name, []byte(v))
}

// Uint64 adds an unsigned integer field in fixed 32-byte big-endian form.
func (e *Encoder) Uint64(name string, v uint64) {
	buf := make([]byte, numWidth)
	binary.BigEndian.PutUint64(buf[numWidth-8:], v)
	e.add(name, buf)
}

// Int64 adds a non-negative integer field. Negative values are rejected:
// no record in the protocol carries signed quantities.
func (e *Encoder) Int64(name string, v int64) {
	if v < 0 {
		e.fail(report.Malformed(name, "negative value %d", v))
		return
	}
	e.Uint64(name, uint64(v))
}

// BigInt adds an arbitrary-precision non-negative integer in fixed
// 32-byte big-endian form. Values above 32 bytes are out of range for
// every numeric the protocol defines.
func (e *Encoder) BigInt(name string, v *big.Int) {
	if v == nil {
		e.fail(report.Malformed(name, "missing value"))
		return
	}
	if v.Sign() < 0 {
		e.fail(report.Malformed(name, "negative value %s", v))
		return
	}
	if v.BitLen() > numWidth*8 {
		e.fail(report.Malformed(name, "value %s exceeds %d bytes", v, numWidth))
		return
	}
	e.add(name, v.FillBytes(make([]byte, numWidth)))
}

// Nested embeds a sub-record as an opaque length-prefixed blob.
func (e *Encoder) Nested(name string, sub *Encoder) {
	blob, err := sub.Encode()
	if err != nil {
		var re *report.Error
		if r, ok := err.(*report.Error); ok {
			re = report.Malformed(name+"."+r.Field, "%s", r.Msg)
		} else {
			re = report.Malformed(name, "%v", err)
		}
		e.fail(re)
		return
	}
	e.add(name, blob)
}

// Encode sorts the fields by name and emits
// len(name)|name|len(value)|value for each. Duplicate field names are a
// schema violation.
func (e *Encoder) Encode() ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	sorted := append([]field(nil), e.fields...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].name < sorted[j].name })
	var out []byte
	var lenBuf [4]byte
	for i, f := range sorted {
		if i > 0 && f.name == sorted[i-1].name {
			return nil, report.Malformed(f.name, "duplicate field")
		}
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(f.name)))
		out = append(out, lenBuf[:]...)
		out = append(out, f.name...)
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(f.value)))
		out = append(out, lenBuf[:]...)
		out = append(out, f.value...)
	}
	return out, nil
}
