package replay

import (
	"context"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/vango-dev/mgxrec/pkg/protocol"
)

// Stats counts what a stream contains.
type Stats struct {
	Actions      map[protocol.ActionType]int
	Commands     map[protocol.Opcode]int
	GameCommands map[protocol.GameOpcode]int

	// GameTime is the game time of the last observed action.
	GameTime time.Duration

	// Trailing counts frames with bytes after their modeled fields.
	Trailing int

	// Reused counts commands that reused the previous selection.
	Reused int

	// Objects holds every object id any command selected.
	Objects mapset.Set[protocol.ObjectID]

	// Skipped is the number of unsupported frames the reader skipped. Run
	// does not see them; set it from Reader.Skipped.
	Skipped int
}

// NewStats returns empty stats.
func NewStats() *Stats {
	return &Stats{
		Actions:      make(map[protocol.ActionType]int),
		Commands:     make(map[protocol.Opcode]int),
		GameCommands: make(map[protocol.GameOpcode]int),
		Objects:      mapset.NewThreadUnsafeSet[protocol.ObjectID](),
	}
}

// Observe counts one resolved action.
func (s *Stats) Observe(rec *Resolved) {
	s.Actions[rec.Action.ActionType()]++
	s.GameTime = rec.GameTime

	f, ok := rec.Frame()
	if !ok {
		return
	}
	if len(f.Trailing) > 0 {
		s.Trailing++
	}
	if f.Command == nil {
		return
	}
	s.Commands[f.Command.Opcode()]++
	if g, ok := f.Command.(*protocol.Game); ok && g.Command != nil {
		s.GameCommands[g.Command.GameOpcode()]++
	}
	if sel, ok := f.Command.(protocol.Selector); ok && sel.Selection().SameAsLast {
		s.Reused++
	}
	for _, id := range rec.Objects {
		s.Objects.Add(id)
	}
}

// Middleware observes every action before passing it on.
func (s *Stats) Middleware() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, rec *Resolved) error {
			s.Observe(rec)
			return next(ctx, rec)
		}
	}
}

// Total returns the number of observed actions.
func (s *Stats) Total() int {
	n := 0
	for _, c := range s.Actions {
		n += c
	}
	return n
}

// Summary is Stats keyed by name, for display and JSON.
type Summary struct {
	Actions         map[string]int `json:"actions"`
	Commands        map[string]int `json:"commands"`
	GameCommands    map[string]int `json:"game_commands,omitempty"`
	GameTimeMillis  int64          `json:"game_time_ms"`
	Trailing        int            `json:"frames_with_trailing"`
	Reused          int            `json:"reused_selections"`
	DistinctObjects int            `json:"distinct_objects"`
	Skipped         int            `json:"skipped"`
}

// Summary returns the stats keyed by action, command and sub-command name.
func (s *Stats) Summary() Summary {
	sum := Summary{
		Actions:         make(map[string]int, len(s.Actions)),
		Commands:        make(map[string]int, len(s.Commands)),
		GameTimeMillis:  s.GameTime.Milliseconds(),
		Trailing:        s.Trailing,
		Reused:          s.Reused,
		DistinctObjects: s.Objects.Cardinality(),
		Skipped:         s.Skipped,
	}
	for t, n := range s.Actions {
		sum.Actions[t.String()] = n
	}
	for op, n := range s.Commands {
		sum.Commands[op.String()] = n
	}
	if len(s.GameCommands) > 0 {
		sum.GameCommands = make(map[string]int, len(s.GameCommands))
		for op, n := range s.GameCommands {
			sum.GameCommands[op.String()] = n
		}
	}
	return sum
}
