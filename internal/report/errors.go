package report

import (
	"errors"
	"fmt"
)

// Kind classifies a verification failure. The consequence differs by kind:
// a HashMismatch or MerkleVerificationFailed points at fraud or stale data,
// a MalformedInput or AdapterError points at a tooling bug.
type Kind int

const (
	KindUnknown Kind = iota
	KindMalformedInput
	KindHashMismatch
	KindTrustAnchorMismatch
	KindMerkleVerificationFailed
	KindSnarkVerificationFailed
	KindAdapterError
)

// String returns the stable name of the kind, as printed in reports.
func (k Kind) String() string {
	switch k {
	case KindMalformedInput:
		return "MalformedInput"
	case KindHashMismatch:
		return "HashMismatch"
	case KindTrustAnchorMismatch:
		return "TrustAnchorMismatch"
	case KindMerkleVerificationFailed:
		return "MerkleVerificationFailed"
	case KindSnarkVerificationFailed:
		return "SnarkVerificationFailed"
	case KindAdapterError:
		return "AdapterError"
	default:
		return "Unknown"
	}
}

// Error is a classified verification error. Field carries the path of the
// offending field for MalformedInput, and is empty otherwise.
type Error struct {
	Kind  Kind
	Field string
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// Malformed builds a MalformedInput error for the given field path.
func Malformed(field, format string, args ...interface{}) *Error {
	return &Error{Kind: KindMalformedInput, Field: field, Msg: fmt.Sprintf(format, args...)}
}

// Errorf builds a classified error with no field path.
func Errorf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying error.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf extracts the Kind from an error chain, KindUnknown if unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
