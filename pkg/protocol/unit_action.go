package protocol

// DefaultUnitActionStateCutoff is the save game version up to which unit
// action states are stored in one byte. Later versions use four. The value
// was found empirically and may be off for some builds, which is why
// callers can override it.
const DefaultUnitActionStateCutoff float32 = 11.76

// UnitActionStateWidth returns the width in bytes of a unit action state
// for the given save game version. A zero cutoff means the default.
func UnitActionStateWidth(version, cutoff float32) int {
	if cutoff == 0 {
		cutoff = DefaultUnitActionStateCutoff
	}
	if version <= cutoff {
		return 1
	}
	return 4
}

// ReadUnitActionState reads a unit action state of the width the version
// calls for.
func ReadUnitActionState(d *Decoder, version, cutoff float32) (uint32, error) {
	if UnitActionStateWidth(version, cutoff) == 1 {
		v, err := d.ReadUint8("unit action state")
		return uint32(v), err
	}
	return d.ReadUint32("unit action state")
}

// WriteUnitActionState writes a unit action state of the width the version
// calls for.
func WriteUnitActionState(e *Encoder, state uint32, version, cutoff float32) error {
	if UnitActionStateWidth(version, cutoff) == 1 {
		if state > 0xFF {
			return &EncodeError{Field: "unit action state", Err: ErrNarrowing}
		}
		e.WriteUint8(uint8(state))
		return nil
	}
	e.WriteUint32(state)
	return nil
}
