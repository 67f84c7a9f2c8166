package protocol

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

func rawFrame(body []byte, worldTime uint32) []byte {
	e := NewEncoder()
	e.WriteUint32(uint32(len(body)))
	e.WriteBytes(body)
	e.WriteUint32(worldTime)
	return e.Bytes()
}

func TestFrameRoundTrip(t *testing.T) {
	cmd := &Move{Player: 1, Location: Location2{X: 4, Y: 5}, Objects: Objects(1, 2)}
	f, err := NewFrame(cmd, 12345)
	if err != nil {
		t.Fatalf("NewFrame() error = %v", err)
	}

	data, err := EncodeFrame(f)
	if err != nil {
		t.Fatalf("EncodeFrame() error = %v", err)
	}
	if len(data) != 4+int(f.Length)+4 {
		t.Errorf("len(EncodeFrame()) = %d; want %d", len(data), 4+f.Length+4)
	}

	got, err := DecodeFrame(data)
	if err != nil {
		t.Fatalf("DecodeFrame() error = %v", err)
	}
	if !reflect.DeepEqual(got, f) {
		t.Errorf("DecodeFrame() = %+v; want %+v", got, f)
	}
}

func TestFrameTrailingBytes(t *testing.T) {
	body, _ := EncodeCommand(&BackToWork{Building: 9})
	padded := append(append([]byte{}, body...), 0xAA, 0xBB, 0xCC)

	var stream []byte
	stream = append(stream, rawFrame(padded, 100)...)
	stream = append(stream, rawFrame(body, 200)...)

	r := NewBytesReader(stream, ReaderOptions{})
	first, err := r.ReadFrame()
	if err != nil {
		t.Fatalf("first ReadFrame() error = %v", err)
	}
	if !bytes.Equal(first.Trailing, []byte{0xAA, 0xBB, 0xCC}) {
		t.Errorf("Trailing = %x; want aabbcc", first.Trailing)
	}
	if first.WorldTime != 100 {
		t.Errorf("WorldTime = %d; want 100", first.WorldTime)
	}

	second, err := r.ReadFrame()
	if err != nil {
		t.Fatalf("second ReadFrame() error = %v", err)
	}
	if second.WorldTime != 200 || !reflect.DeepEqual(second.Command, &BackToWork{Building: 9}) {
		t.Errorf("second frame = %+v; want BackToWork at 200", second)
	}

	again, err := EncodeFrame(first)
	if err != nil {
		t.Fatalf("EncodeFrame() error = %v", err)
	}
	if !bytes.Equal(again, rawFrame(padded, 100)) {
		t.Errorf("EncodeFrame() = %x; want %x", again, rawFrame(padded, 100))
	}
}

func TestFrameBoundsCommand(t *testing.T) {
	// The declared length cuts the id list short; the command must not
	// read into the world time.
	body, _ := EncodeCommand(&Stop{Objects: Objects(1, 2)})
	data := rawFrame(body[:len(body)-4], 7)

	_, err := DecodeFrame(data)
	if !IsTruncated(err) {
		t.Fatalf("DecodeFrame() error = %v; want truncated", err)
	}
	var de *DecodeError
	if !errors.As(err, &de) || de.Opcode == nil || *de.Opcode != OpStop {
		t.Errorf("DecodeError = %+v; want opcode Stop", de)
	}
}

func TestFrameUnsupportedOpcode(t *testing.T) {
	body := []byte{0x99, 1, 2, 3, 4, 5}
	data := rawFrame(body, 50)

	r := NewBytesReader(data, ReaderOptions{})
	f, err := r.ReadFrame()
	if !errors.Is(err, ErrUnsupportedOpcode) {
		t.Fatalf("ReadFrame() error = %v; want ErrUnsupportedOpcode", err)
	}
	if f == nil || f.Command != nil {
		t.Fatalf("ReadFrame() frame = %+v; want frame with nil Command", f)
	}
	if f.WorldTime != 50 || !bytes.Equal(f.Raw, body) {
		t.Errorf("frame = %+v; want world time 50 and raw body", f)
	}
	if r.Offset() != int64(len(data)) {
		t.Errorf("Offset() = %d; want %d", r.Offset(), len(data))
	}
	if op, ok := f.Opcode(); !ok || op != 0x99 {
		t.Errorf("Opcode() = %v, %v; want 0x99, true", op, ok)
	}

	again, err := EncodeFrame(f)
	if err != nil || !bytes.Equal(again, data) {
		t.Errorf("EncodeFrame() = %x, %v; want %x", again, err, data)
	}
}

func TestFrameTooLarge(t *testing.T) {
	e := NewEncoder()
	e.WriteUint32(1 << 20)
	r := NewBytesReader(e.Bytes(), ReaderOptions{Limits: Limits{MaxFrameLength: 1024}})

	_, err := r.ReadFrame()
	if CodeOf(err) != CodeFrameTooLarge || !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("ReadFrame() error = %v; want FrameTooLarge", err)
	}
}

func TestFrameEmptyBody(t *testing.T) {
	_, err := DecodeFrame(rawFrame(nil, 1))
	if !IsTruncated(err) {
		t.Errorf("DecodeFrame() error = %v; want truncated opcode", err)
	}
}

func TestEncodeFrameWithoutCommand(t *testing.T) {
	if _, err := EncodeFrame(&Frame{}); !errors.Is(err, ErrUnsupportedOpcode) {
		t.Errorf("EncodeFrame(empty) error = %v; want ErrUnsupportedOpcode", err)
	}
}

func TestLimitsNormalize(t *testing.T) {
	got := Limits{MaxFrameLength: HardMaxFrameLength * 2}.normalize()
	if got.MaxFrameLength != HardMaxFrameLength {
		t.Errorf("MaxFrameLength = %d; want %d", got.MaxFrameLength, HardMaxFrameLength)
	}
	if got.MaxChatLength != DefaultMaxChatLength {
		t.Errorf("MaxChatLength = %d; want %d", got.MaxChatLength, DefaultMaxChatLength)
	}
	if DefaultLimits() != (Limits{}).normalize() {
		t.Error("DefaultLimits() differs from normalized zero Limits")
	}
}
