package payload

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed taxonomy of ways payload decoding can fail.
// The boundary adapter serializes the Error's message verbatim; the
// Kind is stable and machine-classifiable for callers that want to
// branch on the failure category.
type ErrorKind string

const (
	EmptyPath          ErrorKind = "EmptyPath"
	FileNotFound       ErrorKind = "FileNotFound"
	PermissionDenied   ErrorKind = "PermissionDenied"
	FileTooSmall       ErrorKind = "FileTooSmall"
	InvalidMagic       ErrorKind = "InvalidMagic"
	UnsupportedVersion ErrorKind = "UnsupportedVersion"
	ManifestTooLarge   ErrorKind = "ManifestTooLarge"
	ProtobufDecode     ErrorKind = "ProtobufDecode"
	UnexpectedEof      ErrorKind = "UnexpectedEof"
	Io                 ErrorKind = "Io"
	CodecFailure       ErrorKind = "CodecFailure"
	InvalidInput       ErrorKind = "InvalidInput"
)

// Error is the single typed error every fallible step in this package
// returns. It never escapes as a panic; every call site that can fail
// returns one of these (or wraps an *Error from a lower layer).
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind ErrorKind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// asError recovers an existing *Error if err already is one, otherwise
// classifies it as a generic Io failure. Used at boundaries where a
// lower-level error (os, io) needs to enter the closed taxonomy.
func asError(err error, context string) *Error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	return wrapError(Io, err, "%s: %v", context, err)
}
