package replay

import "github.com/vango-dev/mgxrec/pkg/protocol"

// Record is the JSON view of a resolved action.
type Record struct {
	Index      int                 `json:"index"`
	Offset     int64               `json:"offset"`
	GameTimeMS int64               `json:"game_time_ms"`
	Type       string              `json:"type"`
	Command    string              `json:"command,omitempty"`
	WorldTime  *uint32             `json:"world_time,omitempty"`
	Objects    []protocol.ObjectID `json:"objects,omitempty"`
	Trailing   []byte              `json:"trailing,omitempty"`
	Raw        []byte              `json:"raw,omitempty"`

	// Data is the command of a frame, or the action itself.
	Data any `json:"data,omitempty"`
}

// Record returns the JSON view of rec.
func (r *Resolved) Record() Record {
	out := Record{
		Index:      r.Index,
		Offset:     r.Offset,
		GameTimeMS: r.GameTime.Milliseconds(),
		Type:       r.Action.ActionType().String(),
		Objects:    r.Objects,
		Data:       r.Action,
	}
	if f, ok := r.Frame(); ok {
		wt := f.WorldTime
		out.WorldTime = &wt
		out.Trailing = f.Trailing
		out.Raw = f.Raw
		out.Data = nil
		if op, ok := f.Opcode(); ok {
			out.Command = op.String()
		}
		if f.Command != nil {
			out.Data = f.Command
		}
	}
	return out
}
