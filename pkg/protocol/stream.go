package protocol

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ReaderOptions configures a Reader.
type ReaderOptions struct {
	// Limits bounds declared lengths. Zero fields use DefaultLimits.
	Limits Limits

	// SkipUnsupported makes Next skip command frames whose opcode is not
	// supported instead of failing. Every other error still ends the stream.
	SkipUnsupported bool

	// OldRecord reads the two extra fields that early game versions append
	// to Time records.
	OldRecord bool

	// Logger receives a debug line for every skipped frame. Nil disables it.
	Logger *slog.Logger
}

// Reader decodes actions one at a time from a byte stream.
//
// A Reader never seeks. It keeps no state across records beyond its
// position and whether the last record was a Time record.
type Reader struct {
	r      *bufio.Reader
	off    int64
	opts   ReaderOptions
	limits Limits

	afterTime bool
	skipped   int
	scratch   []byte
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader, opts ReaderOptions) *Reader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Reader{
		r:      br,
		opts:   opts,
		limits: opts.Limits.normalize(),
	}
}

// NewBytesReader creates a Reader over an in-memory stream.
func NewBytesReader(data []byte, opts ReaderOptions) *Reader {
	return NewReader(bytes.NewReader(data), opts)
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int64 {
	return r.off
}

// Skipped returns how many unsupported frames were skipped.
func (r *Reader) Skipped() int {
	return r.skipped
}

// Next returns the next action. It returns io.EOF when the stream ends
// cleanly between two actions; input that ends inside an action is a
// CodeTruncated error.
func (r *Reader) Next() (Action, error) {
	for {
		start := r.off
		typ, err := r.readActionType()
		if err != nil {
			return nil, err
		}
		afterTime := r.afterTime
		r.afterTime = false

		switch ActionType(typ) {
		case ActionCommand:
			f, err := r.ReadFrame()
			if err != nil {
				if f != nil && r.opts.SkipUnsupported && CodeOf(err) == CodeUnsupportedOpcode {
					r.skipped++
					if r.opts.Logger != nil {
						op, _ := f.Opcode()
						r.opts.Logger.Debug("skipped unsupported frame",
							"offset", start, "opcode", op, "length", f.Length)
					}
					continue
				}
				return nil, err
			}
			return f, nil
		case ActionTime:
			t, err := r.readTime()
			if err != nil {
				return nil, err
			}
			r.afterTime = true
			return t, nil
		case ActionSync:
			if !afterTime {
				return nil, r.unsupportedAction(start, typ)
			}
			return r.readSync()
		case ActionViewLock:
			return r.readViewLock()
		case ActionChat:
			return r.readChat()
		default:
			return nil, r.unsupportedAction(start, typ)
		}
	}
}

// All reads every remaining action.
func (r *Reader) All() ([]Action, error) {
	var actions []Action
	for {
		a, err := r.Next()
		if errors.Is(err, io.EOF) {
			return actions, nil
		}
		if err != nil {
			return actions, err
		}
		actions = append(actions, a)
	}
}

func (r *Reader) unsupportedAction(offset int64, typ uint32) error {
	return &DecodeError{
		Code:   CodeUnsupportedAction,
		Offset: offset,
		Field:  "action type",
		Err:    fmt.Errorf("%w: %d", ErrUnsupportedAction, typ),
	}
}

// readActionType reads a discriminant, mapping a clean end of input to io.EOF.
func (r *Reader) readActionType() (uint32, error) {
	if _, err := r.r.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, io.EOF
		}
		return 0, &DecodeError{Code: CodeIO, Offset: r.off, Field: "action type", Err: err}
	}
	d, err := r.read(4, "action type")
	if err != nil {
		return 0, err
	}
	return d.ReadUint32("action type")
}

// read consumes exactly n bytes and returns a decoder over them. The
// decoder's buffer is reused by the next call.
func (r *Reader) read(n int, field string) (*Decoder, error) {
	if cap(r.scratch) < n {
		r.scratch = make([]byte, n)
	}
	b := r.scratch[:n]
	base := r.off
	got, err := io.ReadFull(r.r, b)
	r.off += int64(got)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, &DecodeError{Code: CodeTruncated, Offset: r.off, Field: field, Err: io.ErrUnexpectedEOF}
		}
		return nil, &DecodeError{Code: CodeIO, Offset: r.off, Field: field, Err: err}
	}
	return newDecoderAt(b, base), nil
}

func (r *Reader) readTime() (*Time, error) {
	n := 4
	if r.opts.OldRecord {
		n = 12
	}
	d, err := r.read(n, "time")
	if err != nil {
		return nil, err
	}
	t := &Time{}
	t.Elapsed, _ = d.ReadUint32("elapsed")
	if r.opts.OldRecord {
		t.OldWorldTime, _ = d.ReadUint32("old world time")
		t.Unknown, _ = d.ReadUint32("unknown")
	}
	return t, nil
}

// readSync reads a sync record after its leading zero field.
func (r *Reader) readSync() (*Sync, error) {
	d, err := r.read(12, "sync")
	if err != nil {
		return nil, err
	}
	s := &Sync{}
	s.Checksum, _ = d.ReadUint32("checksum")
	s.PositionChecksum, _ = d.ReadUint32("position checksum")
	s.ActionChecksum, _ = d.ReadUint32("action checksum")
	if s.ActionChecksum != 0 {
		extra, err := r.read(SyncExtraLength, "sync extra")
		if err != nil {
			return nil, err
		}
		s.Extra = bytes.Clone(extra.buf)
	}
	d, err = r.read(8, "sync trailer")
	if err != nil {
		return nil, err
	}
	_, _ = d.ReadUint32("zero")
	s.NextWorldTime, _ = d.ReadUint32("next world time")
	return s, nil
}

func (r *Reader) readViewLock() (*ViewLock, error) {
	d, err := r.read(12, "view lock")
	if err != nil {
		return nil, err
	}
	v := &ViewLock{}
	v.Location, _ = d.ReadLocation2("location")
	player, _ := d.ReadInt32("player")
	if v.Player, err = d.playerFromInt32("player", player); err != nil {
		return nil, err
	}
	return v, nil
}

func (r *Reader) readChat() (*Chat, error) {
	d, err := r.read(8, "chat")
	if err != nil {
		return nil, err
	}
	guard, _ := d.ReadInt32("guard")
	if guard != chatGuard {
		return nil, d.invariantError("guard", uint32(guard), NoneU32)
	}
	length, _ := d.ReadUint32("message length")
	if length > r.limits.MaxChatLength {
		return nil, &DecodeError{
			Code:   CodeFrameTooLarge,
			Offset: d.Offset() - 4,
			Field:  "message length",
			Err:    fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, length, r.limits.MaxChatLength),
		}
	}
	body, err := r.read(int(length), "message")
	if err != nil {
		return nil, err
	}
	msg := string(body.buf)
	if i := strings.IndexByte(msg, 0); i >= 0 {
		msg = msg[:i]
	}
	return &Chat{Message: msg}, nil
}

// WriterOptions configures a Writer.
type WriterOptions struct {
	// OldRecord writes the two extra Time fields of early game versions.
	OldRecord bool
}

// Writer encodes actions to a byte stream with the layout Reader expects.
type Writer struct {
	w    io.Writer
	e    *Encoder
	opts WriterOptions
	n    int64
}

// NewWriter creates a Writer over w.
func NewWriter(w io.Writer, opts WriterOptions) *Writer {
	return &Writer{w: w, e: NewEncoder(), opts: opts}
}

// WriteAction encodes a single action.
func (w *Writer) WriteAction(a Action) error {
	w.e.Reset()
	if err := a.encodeAction(w.e, w.opts); err != nil {
		return err
	}
	return w.flush()
}

// Written returns the number of bytes written so far.
func (w *Writer) Written() int64 {
	return w.n
}

func (w *Writer) flush() error {
	n, err := w.w.Write(w.e.Bytes())
	w.n += int64(n)
	return err
}
