package protocol

import (
	"io"
	"math"
)

// Decoder is a little-endian binary decoder that reads from a byte buffer.
//
// A Decoder never reads past the end of its buffer. Short reads return a
// *DecodeError with CodeTruncated that wraps io.ErrUnexpectedEOF.
type Decoder struct {
	buf  []byte
	pos  int
	base int64 // absolute offset of buf[0] in the stream

	// opcode is attached to errors raised while decoding a command.
	opcode    Opcode
	hasOpcode bool
}

// NewDecoder creates a new decoder from the given byte slice.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// newDecoderAt creates a decoder whose error offsets start at base.
func newDecoderAt(buf []byte, base int64) *Decoder {
	return &Decoder{buf: buf, base: base}
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.pos
}

// EOF returns true if all bytes have been read.
func (d *Decoder) EOF() bool {
	return d.pos >= len(d.buf)
}

// Position returns the current read position relative to the buffer.
func (d *Decoder) Position() int {
	return d.pos
}

// Offset returns the absolute stream offset of the next unread byte.
func (d *Decoder) Offset() int64 {
	return d.base + int64(d.pos)
}

// Sub returns a decoder bounded to exactly the next n bytes and advances
// past them. The child inherits the parent's opcode context.
func (d *Decoder) Sub(n int, field string) (*Decoder, error) {
	if n < 0 || d.pos+n > len(d.buf) {
		return nil, d.truncated(field)
	}
	child := &Decoder{
		buf:       d.buf[d.pos : d.pos+n],
		base:      d.Offset(),
		opcode:    d.opcode,
		hasOpcode: d.hasOpcode,
	}
	d.pos += n
	return child, nil
}

// Skip advances the position by n bytes.
func (d *Decoder) Skip(n int) error {
	if n < 0 || d.pos+n > len(d.buf) {
		return d.truncated("padding")
	}
	d.pos += n
	return nil
}

// Drain discards every unread byte and returns how many were discarded.
func (d *Decoder) Drain() int {
	n := len(d.buf) - d.pos
	d.pos = len(d.buf)
	return n
}

// ReadBytes reads exactly n bytes and returns them.
// The returned slice references the decoder's buffer; do not modify.
func (d *Decoder) ReadBytes(n int, field string) ([]byte, error) {
	if n < 0 || d.pos+n > len(d.buf) {
		return nil, d.truncated(field)
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

// ReadUint8 reads a single byte.
func (d *Decoder) ReadUint8(field string) (uint8, error) {
	if d.pos >= len(d.buf) {
		return 0, d.truncated(field)
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

// ReadInt8 reads a signed byte.
func (d *Decoder) ReadInt8(field string) (int8, error) {
	v, err := d.ReadUint8(field)
	return int8(v), err
}

// ReadBool reads a byte where any non-zero value is true.
func (d *Decoder) ReadBool(field string) (bool, error) {
	v, err := d.ReadUint8(field)
	return v != 0, err
}

// ReadUint16 reads a uint16 in little-endian byte order.
func (d *Decoder) ReadUint16(field string) (uint16, error) {
	if d.pos+2 > len(d.buf) {
		return 0, d.truncated(field)
	}
	v := uint16(d.buf[d.pos]) | uint16(d.buf[d.pos+1])<<8
	d.pos += 2
	return v, nil
}

// ReadInt16 reads an int16 in little-endian byte order.
func (d *Decoder) ReadInt16(field string) (int16, error) {
	v, err := d.ReadUint16(field)
	return int16(v), err
}

// ReadUint32 reads a uint32 in little-endian byte order.
func (d *Decoder) ReadUint32(field string) (uint32, error) {
	if d.pos+4 > len(d.buf) {
		return 0, d.truncated(field)
	}
	v := uint32(d.buf[d.pos]) | uint32(d.buf[d.pos+1])<<8 |
		uint32(d.buf[d.pos+2])<<16 | uint32(d.buf[d.pos+3])<<24
	d.pos += 4
	return v, nil
}

// ReadInt32 reads an int32 in little-endian byte order.
func (d *Decoder) ReadInt32(field string) (int32, error) {
	v, err := d.ReadUint32(field)
	return int32(v), err
}

// ReadUint64 reads a uint64 in little-endian byte order.
func (d *Decoder) ReadUint64(field string) (uint64, error) {
	lo, err := d.ReadUint32(field)
	if err != nil {
		return 0, err
	}
	hi, err := d.ReadUint32(field)
	if err != nil {
		return 0, err
	}
	return uint64(hi)<<32 | uint64(lo), nil
}

// ReadFloat32 reads a float32 in IEEE 754 format (little-endian).
func (d *Decoder) ReadFloat32(field string) (float32, error) {
	v, err := d.ReadUint32(field)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// ReadLocation2 reads an (x, y) pair of float32s.
func (d *Decoder) ReadLocation2(field string) (Location2, error) {
	x, err := d.ReadFloat32(field)
	if err != nil {
		return Location2{}, err
	}
	y, err := d.ReadFloat32(field)
	if err != nil {
		return Location2{}, err
	}
	return Location2{X: x, Y: y}, nil
}

// ReadLocation3 reads an (x, y, z) triple of float32s.
func (d *Decoder) ReadLocation3(field string) (Location3, error) {
	x, err := d.ReadFloat32(field)
	if err != nil {
		return Location3{}, err
	}
	y, err := d.ReadFloat32(field)
	if err != nil {
		return Location3{}, err
	}
	z, err := d.ReadFloat32(field)
	if err != nil {
		return Location3{}, err
	}
	return Location3{X: x, Y: y, Z: z}, nil
}

// ReadTile reads a tile coordinate as two bytes.
func (d *Decoder) ReadTile(field string) (Tile, error) {
	x, err := d.ReadUint8(field)
	if err != nil {
		return Tile{}, err
	}
	y, err := d.ReadUint8(field)
	if err != nil {
		return Tile{}, err
	}
	return Tile{X: x, Y: y}, nil
}

// ReadOptLocation2 reads an (x, y) pair where (-1, -1) means "no location".
func (d *Decoder) ReadOptLocation2(field string) (*Location2, error) {
	loc, err := d.ReadLocation2(field)
	if err != nil {
		return nil, err
	}
	if loc.X == -1 && loc.Y == -1 {
		return nil, nil
	}
	return &loc, nil
}

// ReadOptUint32 reads a uint32 where 0xFFFFFFFF means "none".
func (d *Decoder) ReadOptUint32(field string) (*uint32, error) {
	v, err := d.ReadUint32(field)
	if err != nil {
		return nil, err
	}
	if v == NoneU32 {
		return nil, nil
	}
	return &v, nil
}

// ReadOptUint16 reads a uint16 where 0xFFFF means "none".
func (d *Decoder) ReadOptUint16(field string) (*uint16, error) {
	v, err := d.ReadUint16(field)
	if err != nil {
		return nil, err
	}
	if v == NoneU16 {
		return nil, nil
	}
	return &v, nil
}

// ReadOptObjectID reads an optional object identifier.
func (d *Decoder) ReadOptObjectID(field string) (*ObjectID, error) {
	v, err := d.ReadOptUint32(field)
	if err != nil || v == nil {
		return nil, err
	}
	id := ObjectID(*v)
	return &id, nil
}

// ReadObjectID reads a required object identifier.
func (d *Decoder) ReadObjectID(field string) (ObjectID, error) {
	v, err := d.ReadUint32(field)
	return ObjectID(v), err
}

// ReadPlayerID reads a one-byte player identifier.
func (d *Decoder) ReadPlayerID(field string) (PlayerID, error) {
	v, err := d.ReadUint8(field)
	return PlayerID(v), err
}

// ReadUnitTypeID reads a two-byte unit type identifier.
func (d *Decoder) ReadUnitTypeID(field string) (UnitTypeID, error) {
	v, err := d.ReadUint16(field)
	return UnitTypeID(v), err
}

// ReadTechID reads a two-byte technology identifier.
func (d *Decoder) ReadTechID(field string) (TechID, error) {
	v, err := d.ReadUint16(field)
	return TechID(v), err
}

// truncated builds the error returned for every short read.
func (d *Decoder) truncated(field string) error {
	return d.errorf(CodeTruncated, field, io.ErrUnexpectedEOF)
}

// errorf builds a *DecodeError at the current offset.
func (d *Decoder) errorf(code ErrorCode, field string, err error) *DecodeError {
	de := &DecodeError{
		Code:   code,
		Offset: d.Offset(),
		Field:  field,
		Err:    err,
	}
	if d.hasOpcode {
		op := d.opcode
		de.Opcode = &op
	}
	return de
}

// withOpcode tags subsequent errors with the command being decoded.
func (d *Decoder) withOpcode(op Opcode) *Decoder {
	d.opcode = op
	d.hasOpcode = true
	return d
}
