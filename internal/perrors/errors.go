// Package perrors defines the typed pipeline errors shared by every stage.
//
// The pipeline distinguishes three fatal error kinds: configuration errors
// (reference data must be fixed before any output is trustworthy), data
// completeness errors (an invariant over the whole batch was violated), and
// transport errors (the portal rejected or dropped a request). Per-record
// ambiguity is never an error; it is recorded as a match status on the row.
package perrors

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline error.
type Kind string

const (
	// KindConfig marks errors in reference data or settings. Fatal for the
	// whole run; never auto-recovered.
	KindConfig Kind = "config"

	// KindData marks batch completeness violations such as row count
	// mismatches or rows missing an expected field after a sync stage.
	KindData Kind = "data"

	// KindTransport marks failed portal requests (non-2xx or connection
	// failure). Fatal for the stage that issued the request.
	KindTransport Kind = "transport"
)

// Error is the failure variant of every stage outcome. Op names the
// operation that failed, in "package.Function" form.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a pipeline error without an underlying cause.
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches kind and op to an underlying error.
func Wrap(kind Kind, op string, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind from err, or "" when err is not a pipeline error.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// IsConfig reports whether err is a configuration error.
func IsConfig(err error) bool { return KindOf(err) == KindConfig }

// IsData reports whether err is a data completeness error.
func IsData(err error) bool { return KindOf(err) == KindData }

// IsTransport reports whether err is a transport error.
func IsTransport(err error) bool { return KindOf(err) == KindTransport }
