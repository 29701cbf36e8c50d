// Package apierr implements the error taxonomy from spec.md §7: the
// coordinator classifies every failure into one of a handful of kinds and
// maps each to an HTTP status in internal/api.
package apierr

import (
	"errors"
	"fmt"
)

// Kind is one of the coordinator-visible error classes.
type Kind int

const (
	// KindAuthFailure maps to 401.
	KindAuthFailure Kind = iota
	// KindBadInput maps to 400 (URL parse, missing domain, bad sha256
	// path, invalid base64 input).
	KindBadInput
	// KindConflict maps to 409 (badge already on disk).
	KindConflict
	// KindNotFound maps to 404.
	KindNotFound
	// KindStoreTransient maps to 500; callers are expected to retry
	// idempotently.
	KindStoreTransient
)

func (k Kind) String() string {
	switch k {
	case KindAuthFailure:
		return "auth_failure"
	case KindBadInput:
		return "bad_input"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindStoreTransient:
		return "store_transient"
	default:
		return "unknown"
	}
}

// Error is a classified error the API layer can map to a status code
// without inspecting the underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func newf(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// AuthFailure builds a KindAuthFailure error.
func AuthFailure(format string, args ...any) *Error {
	return newf(KindAuthFailure, nil, format, args...)
}

// BadInput builds a KindBadInput error.
func BadInput(format string, args ...any) *Error {
	return newf(KindBadInput, nil, format, args...)
}

// Conflict builds a KindConflict error.
func Conflict(format string, args ...any) *Error {
	return newf(KindConflict, nil, format, args...)
}

// NotFound builds a KindNotFound error.
func NotFound(format string, args ...any) *Error {
	return newf(KindNotFound, nil, format, args...)
}

// StoreTransient wraps a store-layer error as KindStoreTransient.
func StoreTransient(err error, format string, args ...any) *Error {
	return newf(KindStoreTransient, err, format, args...)
}

// Is reports whether err (or something it wraps) is an *Error of kind k.
func Is(err error, k Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == k
}
