// Package avroerr defines the error kinds produced while decoding Avro
// container files. Every decoder boundary (schema parse, decompression,
// record decode, block framing) returns an *Error so callers can match on
// the kind instead of the message text.
package avroerr

import (
	"errors"
	"fmt"
)

// Kind classifies a decode failure.
type Kind string

const (
	KindInvalidFormat       Kind = "InvalidFormatError"
	KindMissingSchema       Kind = "MissingSchemaError"
	KindParse               Kind = "ParseError"
	KindUnknownType         Kind = "UnknownTypeError"
	KindUnsupportedCodec    Kind = "UnsupportedCodecError"
	KindTruncatedData       Kind = "TruncatedDataError"
	KindUnknownUnionBranch  Kind = "UnknownUnionBranchError"
	KindBlockLengthMismatch Kind = "BlockLengthMismatchError"
	KindSyncMarkerMismatch  Kind = "SyncMarkerMismatchError"
	KindLimitExceeded       Kind = "LimitExceededError"
	KindCanceled            Kind = "CanceledError"
)

// Sentinels for errors.Is. They carry no message.
var (
	ErrInvalidFormat       = &Error{Kind: KindInvalidFormat}
	ErrMissingSchema       = &Error{Kind: KindMissingSchema}
	ErrParse               = &Error{Kind: KindParse}
	ErrUnknownType         = &Error{Kind: KindUnknownType}
	ErrUnsupportedCodec    = &Error{Kind: KindUnsupportedCodec}
	ErrTruncatedData       = &Error{Kind: KindTruncatedData}
	ErrUnknownUnionBranch  = &Error{Kind: KindUnknownUnionBranch}
	ErrBlockLengthMismatch = &Error{Kind: KindBlockLengthMismatch}
	ErrSyncMarkerMismatch  = &Error{Kind: KindSyncMarkerMismatch}
	ErrLimitExceeded       = &Error{Kind: KindLimitExceeded}
	ErrCanceled            = &Error{Kind: KindCanceled}
)

// noOffset marks an error whose input position is unknown.
const noOffset = -1

// Error is the structured error returned by every decoder package.
//
// Offset is a file position unless InBlock is set, in which case it is a
// position inside the decompressed payload of data block BlockIndex.
type Error struct {
	Kind       Kind
	Message    string
	Offset     int64
	InBlock    bool
	BlockIndex int
	Cause      error
}

// Error returns a formatted error string.
func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Offset >= 0 && e.Message != "" {
		if e.InBlock {
			msg += fmt.Sprintf(" at offset %d of block %d payload", e.Offset, e.BlockIndex)
		} else {
			msg += fmt.Sprintf(" at offset %d", e.Offset)
		}
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Offset: noOffset}
}

// Newf creates an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap creates an error of the given kind wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Offset: noOffset, Cause: cause}
}

// At returns a copy of e positioned at offset.
func (e *Error) At(offset int) *Error {
	cp := *e
	cp.Offset = int64(offset)
	return &cp
}

// WithOffset attaches an input offset to err when it is an *Error that
// does not have one yet. Other errors are returned unchanged.
func WithOffset(err error, offset int) error {
	var ae *Error
	if errors.As(err, &ae) && ae.Offset < 0 {
		return ae.At(offset)
	}
	return err
}

// RelativeToBlock marks the offset of err as a position inside the
// decompressed payload of data block index. Errors that are not an *Error
// are returned unchanged.
func RelativeToBlock(err error, index int) error {
	ae, ok := err.(*Error)
	if !ok {
		return err
	}
	cp := *ae
	cp.InBlock = true
	cp.BlockIndex = index
	return &cp
}

// KindOf extracts the kind from an error chain. It returns the empty kind
// for errors that did not originate in the decoder.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// IsDecodeError reports whether err originated in the decoder.
func IsDecodeError(err error) bool {
	return KindOf(err) != ""
}
