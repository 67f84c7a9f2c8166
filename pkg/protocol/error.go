package protocol

import (
	"errors"
	"fmt"
	"io"
)

// ErrorCode identifies the class of a decode failure.
type ErrorCode uint16

const (
	CodeUnknown                ErrorCode = 0x0000 // Unknown error
	CodeTruncated              ErrorCode = 0x0001 // Input ended mid-record
	CodeUnsupportedOpcode      ErrorCode = 0x0002 // Command opcode not modeled
	CodeUnsupportedGameCommand ErrorCode = 0x0003 // Game sub-opcode not modeled
	CodeUnsupportedAction      ErrorCode = 0x0004 // Action type not modeled
	CodeInvariant              ErrorCode = 0x0005 // Guard value mismatch
	CodeNarrowing              ErrorCode = 0x0006 // Value does not fit its domain
	CodeFrameTooLarge          ErrorCode = 0x0007 // Declared length over limit
	CodeIO                     ErrorCode = 0x0100 // Underlying reader failed
)

// String returns the string representation of the error code.
func (ec ErrorCode) String() string {
	switch ec {
	case CodeTruncated:
		return "Truncated"
	case CodeUnsupportedOpcode:
		return "UnsupportedOpcode"
	case CodeUnsupportedGameCommand:
		return "UnsupportedGameCommand"
	case CodeUnsupportedAction:
		return "UnsupportedAction"
	case CodeInvariant:
		return "Invariant"
	case CodeNarrowing:
		return "Narrowing"
	case CodeFrameTooLarge:
		return "FrameTooLarge"
	case CodeIO:
		return "IO"
	default:
		return "Unknown"
	}
}

// Sentinel errors wrapped by *DecodeError. Truncation wraps io.ErrUnexpectedEOF.
var (
	ErrUnsupportedOpcode      = errors.New("protocol: unsupported command opcode")
	ErrUnsupportedGameCommand = errors.New("protocol: unsupported game sub-command")
	ErrUnsupportedAction      = errors.New("protocol: unsupported action type")
	ErrInvariant              = errors.New("protocol: guard value mismatch")
	ErrNarrowing              = errors.New("protocol: value out of range")
	ErrFrameTooLarge          = errors.New("protocol: declared length exceeds limit")
)

// DecodeError describes where and why decoding failed.
type DecodeError struct {
	Code   ErrorCode
	Offset int64   // absolute byte offset in the stream
	Opcode *Opcode // command being decoded, if any
	Field  string  // field being read
	Err    error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("protocol: %s at offset %d", e.Code, e.Offset)
	if e.Opcode != nil {
		msg += fmt.Sprintf(" in %s", *e.Opcode)
	}
	if e.Field != "" {
		msg += fmt.Sprintf(" (%s)", e.Field)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsTruncated reports whether err is a short read.
func IsTruncated(err error) bool {
	return errors.Is(err, io.ErrUnexpectedEOF)
}

// CodeOf returns the code of the *DecodeError in err's chain, or CodeUnknown.
func CodeOf(err error) ErrorCode {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeUnknown
}

// narrowingError reports a value that does not fit its target domain.
func (d *Decoder) narrowingError(field string, v int64) error {
	return d.errorf(CodeNarrowing, field, fmt.Errorf("%w: %d", ErrNarrowing, v))
}

// invariantError reports a guard field that did not hold its fixed value.
func (d *Decoder) invariantError(field string, got, want uint32) error {
	return d.errorf(CodeInvariant, field, fmt.Errorf("%w: got %#x, want %#x", ErrInvariant, got, want))
}

// EncodeError reports a value that cannot be represented on the wire.
type EncodeError struct {
	Opcode *Opcode
	Field  string
	Err    error
}

// Error implements the error interface.
func (e *EncodeError) Error() string {
	if e.Opcode == nil {
		return fmt.Sprintf("protocol: encode (%s): %v", e.Field, e.Err)
	}
	return fmt.Sprintf("protocol: encode %s (%s): %v", *e.Opcode, e.Field, e.Err)
}

// Unwrap returns the underlying error.
func (e *EncodeError) Unwrap() error {
	return e.Err
}

func encodeRangeError(op Opcode, field string, v int) error {
	return &EncodeError{Opcode: &op, Field: field, Err: fmt.Errorf("%w: %d", ErrNarrowing, v)}
}
