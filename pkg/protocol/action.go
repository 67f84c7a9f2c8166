package protocol

import "fmt"

// ActionType is the discriminant that starts every action.
type ActionType uint32

const (
	// ActionSync is the always-zero field that opens a sync record. It is
	// only valid directly after an ActionTime record.
	ActionSync     ActionType = 0
	ActionCommand  ActionType = 1
	ActionTime     ActionType = 2
	ActionViewLock ActionType = 3
	ActionChat     ActionType = 4
)

// String returns the string representation of the action type.
func (t ActionType) String() string {
	switch t {
	case ActionSync:
		return "Sync"
	case ActionCommand:
		return "Command"
	case ActionTime:
		return "Time"
	case ActionViewLock:
		return "ViewLock"
	case ActionChat:
		return "Chat"
	default:
		return fmt.Sprintf("ActionType(%d)", uint32(t))
	}
}

// ParseActionType returns the action type with the given name.
func ParseActionType(name string) (ActionType, bool) {
	for t := ActionSync; t <= ActionChat; t++ {
		if t.String() == name {
			return t, true
		}
	}
	return 0, false
}

// Action is one record of the action stream: *Frame, *Time, *Sync,
// *ViewLock or *Chat.
type Action interface {
	ActionType() ActionType
	encodeAction(e *Encoder, opts WriterOptions) error
}

// Time advances the game clock.
type Time struct {
	// Elapsed is the number of milliseconds since the previous Time record.
	Elapsed uint32

	// OldWorldTime and Unknown are only present in records written by
	// early game versions; see ReaderOptions.OldRecord.
	OldWorldTime uint32
	Unknown      uint32
}

func (*Time) ActionType() ActionType { return ActionTime }

func (t *Time) encodeAction(e *Encoder, opts WriterOptions) error {
	e.WriteUint32(uint32(ActionTime))
	e.WriteUint32(t.Elapsed)
	if opts.OldRecord {
		e.WriteUint32(t.OldWorldTime)
		e.WriteUint32(t.Unknown)
	}
	return nil
}

// Sync carries checksums the players compare to detect desyncs.
type Sync struct {
	Checksum         uint32
	PositionChecksum uint32
	ActionChecksum   uint32

	// Extra is the SyncExtraLength-byte block present when ActionChecksum
	// is non-zero. Its layout is not modeled.
	Extra []byte

	NextWorldTime uint32
}

func (*Sync) ActionType() ActionType { return ActionSync }

func (s *Sync) encodeAction(e *Encoder, _ WriterOptions) error {
	if s.ActionChecksum != 0 && len(s.Extra) != SyncExtraLength {
		return &EncodeError{Field: "sync extra", Err: fmt.Errorf("%w: %d bytes", ErrNarrowing, len(s.Extra))}
	}
	e.WriteUint32(uint32(ActionSync))
	e.WriteUint32(s.Checksum)
	e.WriteUint32(s.PositionChecksum)
	e.WriteUint32(s.ActionChecksum)
	if s.ActionChecksum != 0 {
		e.WriteBytes(s.Extra)
	}
	e.WriteUint32(0)
	e.WriteUint32(s.NextWorldTime)
	return nil
}

// ViewLock records where the recording player is looking.
type ViewLock struct {
	Location Location2
	Player   PlayerID
}

func (*ViewLock) ActionType() ActionType { return ActionViewLock }

func (v *ViewLock) encodeAction(e *Encoder, _ WriterOptions) error {
	e.WriteUint32(uint32(ActionViewLock))
	e.WriteLocation2(v.Location)
	e.WriteInt32(int32(v.Player))
	return nil
}

// Chat is a chat message. On the wire it is NUL-terminated; Message stops
// at the first NUL.
type Chat struct {
	Message string
}

func (*Chat) ActionType() ActionType { return ActionChat }

const chatGuard = -1

func (c *Chat) encodeAction(e *Encoder, _ WriterOptions) error {
	e.WriteUint32(uint32(ActionChat))
	e.WriteInt32(chatGuard)
	e.WriteUint32(uint32(len(c.Message) + 1))
	e.WriteBytes([]byte(c.Message))
	e.WriteUint8(0)
	return nil
}

func (f *Frame) ActionType() ActionType { return ActionCommand }

func (f *Frame) encodeAction(e *Encoder, _ WriterOptions) error {
	start := e.Len()
	e.WriteUint32(uint32(ActionCommand))
	if err := EncodeFrameTo(e, f); err != nil {
		e.buf = e.buf[:start]
		return err
	}
	return nil
}

// EncodeAction encodes one action including its discriminant.
func EncodeAction(a Action, opts WriterOptions) ([]byte, error) {
	e := NewEncoderWithCap(64)
	if err := a.encodeAction(e, opts); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}
