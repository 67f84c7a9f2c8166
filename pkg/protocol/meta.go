package protocol

import (
	"errors"
	"fmt"
)

// ErrUnsupportedLogVersion is returned for mgx bodies whose log version
// is not 3, 4 or 5.
var ErrUnsupportedLogVersion = errors.New("protocol: unsupported log version")

// Meta is the block at the start of a recorded game body. It precedes the
// first action.
type Meta struct {
	// LogVersion is 3 for AoC 1.0, 4 for 1.0c and UserPatch, 5 for later
	// releases. It is nil for mgl bodies, which do not carry it.
	LogVersion *uint32

	ChecksumInterval uint32
	Multiplayer      bool
	LocalPlayer      PlayerID
	HeaderPosition   uint32
	SequenceNumbers  bool

	// NumChapters is the number of saved chapters. Log version 5 replaces
	// it with two fields of unknown meaning, kept in Unknown.
	NumChapters *uint32
	Unknown     [2]uint32

	// ExeSize and MglUnknown are only present in mgl bodies.
	ExeSize    uint64
	MglUnknown [2]float32
}

// Format returns "mgx" or "mgl".
func (m *Meta) Format() string {
	if m.LogVersion == nil {
		return "mgl"
	}
	return "mgx"
}

// readMetaInner reads the fields shared by every format.
func (r *Reader) readMetaInner(m *Meta) error {
	d, err := r.read(20, "meta")
	if err != nil {
		return err
	}
	m.ChecksumInterval, _ = d.ReadUint32("checksum interval")
	mp, _ := d.ReadUint32("multiplayer")
	m.Multiplayer = mp != 0
	local, _ := d.ReadInt32("local player")
	if m.LocalPlayer, err = d.playerFromInt32("local player", local); err != nil {
		return err
	}
	m.HeaderPosition, _ = d.ReadUint32("header position")
	seq, _ := d.ReadUint32("sequence numbers")
	m.SequenceNumbers = seq != 0
	return nil
}

// ReadMetaMgx reads body metadata in the mgx format used by The
// Conquerors and later. Call it before the first Next.
func (r *Reader) ReadMetaMgx() (*Meta, error) {
	d, err := r.read(4, "log version")
	if err != nil {
		return nil, err
	}
	version, _ := d.ReadUint32("log version")
	if version < 3 || version > 5 {
		return nil, d.errorf(CodeUnsupportedAction, "log version",
			fmt.Errorf("%w: %d", ErrUnsupportedLogVersion, version))
	}
	m := &Meta{LogVersion: &version}
	if err := r.readMetaInner(m); err != nil {
		return nil, err
	}
	if version == 5 {
		d, err := r.read(8, "meta unknown")
		if err != nil {
			return nil, err
		}
		m.Unknown[0], _ = d.ReadUint32("meta unknown")
		m.Unknown[1], _ = d.ReadUint32("meta unknown")
		return m, nil
	}
	d, err = r.read(4, "chapters")
	if err != nil {
		return nil, err
	}
	chapters, _ := d.ReadUint32("chapters")
	m.NumChapters = &chapters
	return m, nil
}

// ReadMetaMgl reads body metadata in the mgl format used by The Age of
// Kings. Call it before the first Next.
func (r *Reader) ReadMetaMgl() (*Meta, error) {
	m := &Meta{}
	if err := r.readMetaInner(m); err != nil {
		return nil, err
	}
	d, err := r.read(16, "mgl trailer")
	if err != nil {
		return nil, err
	}
	m.ExeSize, _ = d.ReadUint64("exe size")
	m.MglUnknown[0], _ = d.ReadFloat32("mgl unknown")
	m.MglUnknown[1], _ = d.ReadFloat32("mgl unknown")
	return m, nil
}

// ErrUnknownMetaFormat is returned by ReadMeta for a format other than
// "none", "mgx" or "mgl".
var ErrUnknownMetaFormat = errors.New("protocol: unknown meta format")

// ReadMeta reads body metadata in the named format. For "none" or "" it
// reads nothing and returns nil.
func (r *Reader) ReadMeta(format string) (*Meta, error) {
	switch format {
	case "", "none":
		return nil, nil
	case "mgx":
		return r.ReadMetaMgx()
	case "mgl":
		return r.ReadMetaMgl()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMetaFormat, format)
	}
}

// WriteMeta encodes body metadata in the format given by m.Format.
func (w *Writer) WriteMeta(m *Meta) error {
	w.e.Reset()
	e := w.e
	if m.LogVersion != nil {
		e.WriteUint32(*m.LogVersion)
	}
	e.WriteUint32(m.ChecksumInterval)
	e.WriteUint32(boolU32(m.Multiplayer))
	e.WriteUint32(uint32(m.LocalPlayer))
	e.WriteUint32(m.HeaderPosition)
	e.WriteUint32(boolU32(m.SequenceNumbers))
	switch {
	case m.LogVersion == nil:
		e.WriteUint64(m.ExeSize)
		e.WriteFloat32(m.MglUnknown[0])
		e.WriteFloat32(m.MglUnknown[1])
	case *m.LogVersion == 5:
		e.WriteUint32(m.Unknown[0])
		e.WriteUint32(m.Unknown[1])
	default:
		var chapters uint32
		if m.NumChapters != nil {
			chapters = *m.NumChapters
		}
		e.WriteUint32(chapters)
	}
	return w.flush()
}

func boolU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
