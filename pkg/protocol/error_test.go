package protocol

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestErrorCodeString(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want string
	}{
		{CodeUnknown, "Unknown"},
		{CodeTruncated, "Truncated"},
		{CodeUnsupportedOpcode, "UnsupportedOpcode"},
		{CodeUnsupportedGameCommand, "UnsupportedGameCommand"},
		{CodeUnsupportedAction, "UnsupportedAction"},
		{CodeInvariant, "Invariant"},
		{CodeNarrowing, "Narrowing"},
		{CodeFrameTooLarge, "FrameTooLarge"},
		{CodeIO, "IO"},
		{ErrorCode(0xFFFF), "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.code.String(); got != tt.want {
			t.Errorf("ErrorCode(%d).String() = %q; want %q", tt.code, got, tt.want)
		}
	}
}

func TestDecodeErrorMessage(t *testing.T) {
	op := OpBuildWall
	err := &DecodeError{
		Code:   CodeInvariant,
		Offset: 128,
		Opcode: &op,
		Field:  "guard",
		Err:    ErrInvariant,
	}

	msg := err.Error()
	for _, want := range []string{"Invariant", "128", "BuildWall", "guard"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q; want it to contain %q", msg, want)
		}
	}
	if !errors.Is(err, ErrInvariant) {
		t.Error("errors.Is(err, ErrInvariant) = false; want true")
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(io.EOF); got != CodeUnknown {
		t.Errorf("CodeOf(io.EOF) = %v; want Unknown", got)
	}
	wrapped := errors.Join(errors.New("context"), &DecodeError{Code: CodeNarrowing})
	if got := CodeOf(wrapped); got != CodeNarrowing {
		t.Errorf("CodeOf(wrapped) = %v; want Narrowing", got)
	}
}

func TestEncodeErrorMessage(t *testing.T) {
	err := encodeRangeError(OpStop, "object count", 300)
	if !errors.Is(err, ErrNarrowing) {
		t.Error("errors.Is(err, ErrNarrowing) = false; want true")
	}
	if !strings.Contains(err.Error(), "Stop") {
		t.Errorf("Error() = %q; want it to name the command", err.Error())
	}

	noop := &EncodeError{Field: "command", Err: ErrUnsupportedOpcode}
	if !strings.Contains(noop.Error(), "command") {
		t.Errorf("Error() = %q; want it to name the field", noop.Error())
	}
}
