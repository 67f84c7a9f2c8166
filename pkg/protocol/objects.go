package protocol

import (
	"encoding/json"
	"fmt"
	"slices"
)

// ObjectList is the set of objects a command applies to.
//
// The game does not resend a selection that did not change: a count of
// SameAsLastCount or more means "the same objects as the previous command"
// and no identifiers follow. Resolving that marker needs the previous
// record; see replay.ObjectTracker.
type ObjectList struct {
	// SameAsLast is set for the reuse marker. Objects is nil when it is.
	SameAsLast bool

	// Objects are the selected objects in selection order.
	Objects []ObjectID

	// markerCount is the count a marker was read with when it was not
	// SameAsLastCount, so wide count fields re-encode unchanged.
	markerCount uint32
}

// Objects returns an explicit list. Called with no arguments it returns
// an explicit empty list, which is distinct from the reuse marker.
func Objects(ids ...ObjectID) ObjectList {
	return ObjectList{Objects: append([]ObjectID{}, ids...)}
}

// ReusePrevious returns the reuse marker.
func ReusePrevious() ObjectList {
	return ObjectList{SameAsLast: true}
}

// Len returns the number of explicit objects. It is 0 for the marker.
func (l ObjectList) Len() int {
	return len(l.Objects)
}

// WireCount returns the value the enclosing command writes into its count
// field.
func (l ObjectList) WireCount() uint32 {
	switch {
	case !l.SameAsLast:
		return uint32(len(l.Objects))
	case l.markerCount != 0:
		return l.markerCount
	}
	return SameAsLastCount
}

// Equal reports whether two lists are identical, including order. The
// wire count of a marker is not compared.
func (l ObjectList) Equal(o ObjectList) bool {
	if l.SameAsLast != o.SameAsLast {
		return false
	}
	return slices.Equal(l.Objects, o.Objects)
}

// ReadObjectList reads the identifiers that follow a count field.
//
// The count is taken as unsigned. Counts below SameAsLastCount read that
// many 32-bit identifiers; counts at or above it, 0xFFFFFFFF included,
// yield the marker and read nothing.
func ReadObjectList(d *Decoder, count uint32) (ObjectList, error) {
	if count >= SameAsLastCount {
		l := ReusePrevious()
		if count != SameAsLastCount {
			l.markerCount = count
		}
		return l, nil
	}
	if int(count)*4 > d.Remaining() {
		return ObjectList{}, d.truncated("object ids")
	}
	ids := make([]ObjectID, count)
	for i := range ids {
		id, err := d.ReadObjectID("object id")
		if err != nil {
			return ObjectList{}, err
		}
		ids[i] = id
	}
	return ObjectList{Objects: ids}, nil
}

// WriteTo appends the identifiers of an explicit list. The marker writes
// nothing; its meaning lives in the count field.
func (l ObjectList) WriteTo(e *Encoder) {
	if l.SameAsLast {
		return
	}
	for _, id := range l.Objects {
		e.WriteObjectID(id)
	}
}

// MarshalJSON renders the marker as the string "same_as_last" and explicit
// lists as arrays.
func (l ObjectList) MarshalJSON() ([]byte, error) {
	if l.SameAsLast {
		return json.Marshal("same_as_last")
	}
	ids := l.Objects
	if ids == nil {
		ids = []ObjectID{}
	}
	return json.Marshal(ids)
}

// UnmarshalJSON accepts the forms produced by MarshalJSON.
func (l *ObjectList) UnmarshalJSON(data []byte) error {
	var marker string
	if err := json.Unmarshal(data, &marker); err == nil {
		if marker != "same_as_last" {
			return fmt.Errorf("protocol: unknown object list marker %q", marker)
		}
		*l = ReusePrevious()
		return nil
	}
	var ids []ObjectID
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*l = Objects(ids...)
	return nil
}

// readByteCountList reads a list whose count is a single byte. The byte is
// taken as unsigned so 0xFF is the reuse marker.
func readByteCountList(d *Decoder, count uint8) (ObjectList, error) {
	return ReadObjectList(d, uint32(count))
}

// byteCount returns the single-byte count field for l.
func byteCount(op Opcode, l ObjectList) (uint8, error) {
	if l.SameAsLast {
		return SameAsLastCount, nil
	}
	if n := l.Len(); n >= SameAsLastCount {
		return 0, encodeRangeError(op, "object count", n)
	}
	return uint8(l.Len()), nil
}
