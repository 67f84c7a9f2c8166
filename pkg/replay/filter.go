package replay

import (
	"context"
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/vango-dev/mgxrec/pkg/protocol"
)

// Filter selects actions by kind and by command opcode. An empty Filter
// matches everything.
type Filter struct {
	Actions mapset.Set[protocol.ActionType]
	Opcodes mapset.Set[protocol.Opcode]
}

// NewFilter returns an empty filter.
func NewFilter() *Filter {
	return &Filter{
		Actions: mapset.NewThreadUnsafeSet[protocol.ActionType](),
		Opcodes: mapset.NewThreadUnsafeSet[protocol.Opcode](),
	}
}

// ParseFilter builds a filter from action type names ("Time", "Chat", ...)
// and command names ("Move", "Resign", ...). Names are case-insensitive
// and may be comma-separated.
func ParseFilter(names ...string) (*Filter, error) {
	f := NewFilter()
	for _, arg := range names {
		for _, name := range strings.Split(arg, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if t, ok := parseFold(name, protocol.ParseActionType, actionTypeNames()); ok {
				f.Actions.Add(t)
				continue
			}
			if op, ok := parseFold(name, protocol.ParseOpcode, opcodeNames()); ok {
				f.Opcodes.Add(op)
				continue
			}
			return nil, fmt.Errorf("replay: unknown action or command %q", name)
		}
	}
	return f, nil
}

func parseFold[T any](name string, parse func(string) (T, bool), known []string) (T, bool) {
	for _, k := range known {
		if strings.EqualFold(k, name) {
			return parse(k)
		}
	}
	var zero T
	return zero, false
}

func actionTypeNames() []string {
	names := make([]string, 0, 5)
	for t := protocol.ActionSync; t <= protocol.ActionChat; t++ {
		names = append(names, t.String())
	}
	return names
}

func opcodeNames() []string {
	ops := protocol.Opcodes()
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = op.String()
	}
	return names
}

// Empty reports whether the filter matches everything.
func (f *Filter) Empty() bool {
	return f == nil || (isEmpty(f.Actions) && isEmpty(f.Opcodes))
}

func isEmpty[T comparable](s mapset.Set[T]) bool {
	return s == nil || s.Cardinality() == 0
}

// Match reports whether a passes the filter. A frame matches if its
// action type or its opcode is listed; other actions match by type.
func (f *Filter) Match(a protocol.Action) bool {
	if f.Empty() {
		return true
	}
	if !isEmpty(f.Actions) && f.Actions.Contains(a.ActionType()) {
		return true
	}
	if fr, ok := a.(*protocol.Frame); ok {
		if op, ok := fr.Opcode(); ok && !isEmpty(f.Opcodes) {
			return f.Opcodes.Contains(op)
		}
	}
	return false
}

// Middleware drops the actions the filter does not match. Dropped actions
// still update game time and selections, since Run resolves them before
// any handler runs.
func (f *Filter) Middleware() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, rec *Resolved) error {
			if !f.Match(rec.Action) {
				return nil
			}
			return next(ctx, rec)
		}
	}
}

// String lists the filter's names.
func (f *Filter) String() string {
	if f.Empty() {
		return "all"
	}
	var names []string
	for t := protocol.ActionSync; t <= protocol.ActionChat; t++ {
		if !isEmpty(f.Actions) && f.Actions.Contains(t) {
			names = append(names, t.String())
		}
	}
	for _, op := range protocol.Opcodes() {
		if !isEmpty(f.Opcodes) && f.Opcodes.Contains(op) {
			names = append(names, op.String())
		}
	}
	return strings.Join(names, ",")
}
