package protocol

import (
	"bytes"
	"fmt"
)

// Frame is a length-bounded command record.
//
//	┌──────────────┬────────┬──────────────────┬──────────┬────────────┐
//	│ Length       │ Opcode │ Fields           │ Trailing │ World Time │
//	│ (u32 LE)     │ (u8)   │                  │          │ (u32 LE)   │
//	└──────────────┴────────┴──────────────────┴──────────┴────────────┘
//
// A command never reads past Length bytes, even when it models fewer;
// the rest is kept in Trailing.
type Frame struct {
	// Length is the declared length, counting the opcode byte.
	Length uint32

	// Command is nil when the opcode is not supported.
	Command Command

	// WorldTime is the simulation time at which the command applies.
	WorldTime uint32

	// Trailing holds the bytes after the modeled fields.
	Trailing []byte

	// Raw holds the whole body of a frame whose opcode is not supported,
	// so it can be written back unchanged.
	Raw []byte
}

// Opcode returns the frame's opcode, or false if the body is empty.
func (f *Frame) Opcode() (Opcode, bool) {
	switch {
	case f.Command != nil:
		return f.Command.Opcode(), true
	case len(f.Raw) > 0:
		return Opcode(f.Raw[0]), true
	default:
		return 0, false
	}
}

// NewFrame frames a command with no trailing bytes.
func NewFrame(c Command, worldTime uint32) (*Frame, error) {
	body, err := EncodeCommand(c)
	if err != nil {
		return nil, err
	}
	return &Frame{Length: uint32(len(body)), Command: c, WorldTime: worldTime}, nil
}

// ReadFrame reads a command frame. The action discriminant must already
// have been consumed.
//
// A frame with an unsupported opcode is still consumed in full, so the
// returned *Frame is non-nil together with a CodeUnsupportedOpcode error
// and the stream stays aligned.
func (r *Reader) ReadFrame() (*Frame, error) {
	ld, err := r.read(4, "frame length")
	if err != nil {
		return nil, err
	}
	length, _ := ld.ReadUint32("frame length")
	if length > r.limits.MaxFrameLength {
		return nil, &DecodeError{
			Code:   CodeFrameTooLarge,
			Offset: ld.Offset() - 4,
			Field:  "frame length",
			Err:    fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, length, r.limits.MaxFrameLength),
		}
	}

	body, err := r.read(int(length), "frame body")
	if err != nil {
		return nil, err
	}
	f := &Frame{Length: length}
	cmd, cmdErr := DecodeCommandFrom(body)
	if cmdErr != nil && CodeOf(cmdErr) != CodeUnsupportedOpcode {
		return nil, cmdErr
	}
	if cmdErr == nil {
		f.Command = cmd
		if rest := body.Drain(); rest > 0 {
			f.Trailing = bytes.Clone(body.buf[len(body.buf)-rest:])
		}
	} else {
		f.Raw = bytes.Clone(body.buf)
	}

	wt, err := r.read(4, "world time")
	if err != nil {
		return nil, err
	}
	f.WorldTime, _ = wt.ReadUint32("world time")
	return f, cmdErr
}

// DecodeFrame decodes a single frame, starting at its length field.
func DecodeFrame(data []byte) (*Frame, error) {
	return NewReader(bytes.NewReader(data), ReaderOptions{}).ReadFrame()
}

// EncodeFrame encodes a frame, starting at its length field.
func EncodeFrame(f *Frame) ([]byte, error) {
	e := NewEncoderWithCap(64)
	if err := EncodeFrameTo(e, f); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

// EncodeFrameTo encodes a frame using the provided encoder. The length is
// derived from the encoded command and trailing bytes; f.Length is ignored.
func EncodeFrameTo(e *Encoder, f *Frame) error {
	start := e.Len()
	e.WriteUint32(0) // length, patched below
	switch {
	case f.Command != nil:
		if err := EncodeCommandTo(e, f.Command); err != nil {
			e.buf = e.buf[:start]
			return err
		}
		e.WriteBytes(f.Trailing)
	case len(f.Raw) > 0:
		e.WriteBytes(f.Raw)
	default:
		e.buf = e.buf[:start]
		return &EncodeError{Field: "command", Err: ErrUnsupportedOpcode}
	}
	length := uint32(e.Len() - start - 4)
	e.buf[start] = byte(length)
	e.buf[start+1] = byte(length >> 8)
	e.buf[start+2] = byte(length >> 16)
	e.buf[start+3] = byte(length >> 24)
	e.WriteUint32(f.WorldTime)
	return nil
}
