package protocol

import "math"

// Encoder is a little-endian binary encoder that appends data to an
// internal buffer. Writes never fail; range checks happen in the command
// encoders before any bytes are appended.
type Encoder struct {
	buf []byte
}

// NewEncoder creates a new encoder with a default initial capacity.
func NewEncoder() *Encoder {
	return &Encoder{
		buf: make([]byte, 0, 256),
	}
}

// NewEncoderWithCap creates a new encoder with the specified initial capacity.
func NewEncoderWithCap(cap int) *Encoder {
	return &Encoder{
		buf: make([]byte, 0, cap),
	}
}

// Reset resets the encoder to empty state, reusing the underlying buffer.
func (e *Encoder) Reset() {
	e.buf = e.buf[:0]
}

// Bytes returns the encoded bytes. The returned slice is valid until
// the next call to Reset or any Write method.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Len returns the number of bytes currently encoded.
func (e *Encoder) Len() int {
	return len(e.buf)
}

// WriteBytes appends raw bytes.
func (e *Encoder) WriteBytes(b []byte) {
	e.buf = append(e.buf, b...)
}

// WritePadding appends n zero bytes.
func (e *Encoder) WritePadding(n int) {
	for i := 0; i < n; i++ {
		e.buf = append(e.buf, 0)
	}
}

// WriteUint8 appends a single byte.
func (e *Encoder) WriteUint8(v uint8) {
	e.buf = append(e.buf, v)
}

// WriteInt8 appends a signed byte.
func (e *Encoder) WriteInt8(v int8) {
	e.buf = append(e.buf, byte(v))
}

// WriteBool appends 0x01 for true and 0x00 for false.
func (e *Encoder) WriteBool(v bool) {
	if v {
		e.buf = append(e.buf, 1)
	} else {
		e.buf = append(e.buf, 0)
	}
}

// WriteUint16 appends a uint16 in little-endian byte order.
func (e *Encoder) WriteUint16(v uint16) {
	e.buf = append(e.buf, byte(v), byte(v>>8))
}

// WriteInt16 appends an int16 in little-endian byte order.
func (e *Encoder) WriteInt16(v int16) {
	e.WriteUint16(uint16(v))
}

// WriteUint32 appends a uint32 in little-endian byte order.
func (e *Encoder) WriteUint32(v uint32) {
	e.buf = append(e.buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

// WriteInt32 appends an int32 in little-endian byte order.
func (e *Encoder) WriteInt32(v int32) {
	e.WriteUint32(uint32(v))
}

// WriteUint64 appends a uint64 in little-endian byte order.
func (e *Encoder) WriteUint64(v uint64) {
	e.WriteUint32(uint32(v))
	e.WriteUint32(uint32(v >> 32))
}

// WriteFloat32 appends a float32 in IEEE 754 format (little-endian).
func (e *Encoder) WriteFloat32(v float32) {
	e.WriteUint32(math.Float32bits(v))
}

// WriteLocation2 appends an (x, y) pair.
func (e *Encoder) WriteLocation2(loc Location2) {
	e.WriteFloat32(loc.X)
	e.WriteFloat32(loc.Y)
}

// WriteLocation3 appends an (x, y, z) triple.
func (e *Encoder) WriteLocation3(loc Location3) {
	e.WriteFloat32(loc.X)
	e.WriteFloat32(loc.Y)
	e.WriteFloat32(loc.Z)
}

// WriteTile appends a tile coordinate.
func (e *Encoder) WriteTile(t Tile) {
	e.buf = append(e.buf, t.X, t.Y)
}

// WriteOptLocation2 appends an (x, y) pair, or (-1, -1) for nil.
func (e *Encoder) WriteOptLocation2(loc *Location2) {
	if loc == nil {
		e.WriteLocation2(Location2{X: -1, Y: -1})
		return
	}
	e.WriteLocation2(*loc)
}

// WriteOptUint32 appends v, or 0xFFFFFFFF for nil.
func (e *Encoder) WriteOptUint32(v *uint32) {
	if v == nil {
		e.WriteUint32(NoneU32)
		return
	}
	e.WriteUint32(*v)
}

// WriteOptUint16 appends v, or 0xFFFF for nil.
func (e *Encoder) WriteOptUint16(v *uint16) {
	if v == nil {
		e.WriteUint16(NoneU16)
		return
	}
	e.WriteUint16(*v)
}

// WriteOptObjectID appends an object identifier, or 0xFFFFFFFF for nil.
func (e *Encoder) WriteOptObjectID(id *ObjectID) {
	if id == nil {
		e.WriteUint32(NoneU32)
		return
	}
	e.WriteUint32(uint32(*id))
}

// WriteObjectID appends a required object identifier.
func (e *Encoder) WriteObjectID(id ObjectID) {
	e.WriteUint32(uint32(id))
}
