package replay

import (
	"errors"
	"slices"

	"github.com/vango-dev/mgxrec/pkg/protocol"
)

// ErrNoPreviousSelection is returned when a command reuses the previous
// object list but no command has selected objects yet.
var ErrNoPreviousSelection = errors.New("replay: object list reuses a selection that was never made")

// ObjectTracker remembers the most recently resolved object list.
//
// The zero value is ready to use. An ObjectTracker is not safe for
// concurrent use.
type ObjectTracker struct {
	last []protocol.ObjectID
	set  bool
}

// Resolve returns the objects l refers to. An explicit list becomes the new
// previous selection; the reuse marker returns the previous selection.
//
// The returned slice must not be modified.
func (t *ObjectTracker) Resolve(l protocol.ObjectList) ([]protocol.ObjectID, error) {
	if l.SameAsLast {
		if !t.set {
			return nil, ErrNoPreviousSelection
		}
		return t.last, nil
	}
	t.last = slices.Clone(l.Objects)
	if t.last == nil {
		t.last = []protocol.ObjectID{}
	}
	t.set = true
	return t.last, nil
}

// Last returns the previous selection and whether one was made.
func (t *ObjectTracker) Last() ([]protocol.ObjectID, bool) {
	return t.last, t.set
}

// Reset forgets the previous selection.
func (t *ObjectTracker) Reset() {
	t.last = nil
	t.set = false
}
