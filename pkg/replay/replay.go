package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/vango-dev/mgxrec/pkg/protocol"
)

// Resolved is one action together with the state Run tracks across
// records.
type Resolved struct {
	// Action is the decoded record.
	Action protocol.Action

	// Index is the position of the action in the stream, counting from 0.
	// Skipped frames are not counted.
	Index int

	// Offset is the stream offset at which the action starts.
	Offset int64

	// GameTime is the sum of every Time record up to and including this
	// action.
	GameTime time.Duration

	// Objects is the resolved object list of a selecting command. It is
	// nil for every other action, and for a command whose selection could
	// not be resolved (see AllowUnresolved).
	Objects []protocol.ObjectID

	// Selects reports whether the action is a command carrying an object
	// list.
	Selects bool
}

// Frame returns the action as a frame, if it is one.
func (r *Resolved) Frame() (*protocol.Frame, bool) {
	f, ok := r.Action.(*protocol.Frame)
	return f, ok
}

// Command returns the command of a frame action, or nil.
func (r *Resolved) Command() protocol.Command {
	if f, ok := r.Frame(); ok {
		return f.Command
	}
	return nil
}

// Handler consumes resolved actions. Returning an error stops Run.
type Handler func(ctx context.Context, rec *Resolved) error

// Middleware wraps a Handler.
type Middleware func(next Handler) Handler

// Chain wraps h with the given middleware. The first middleware is the
// outermost.
func Chain(h Handler, mws ...Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Option configures Run.
type Option func(*runConfig)

type runConfig struct {
	logger          *slog.Logger
	allowUnresolved bool
	tracker         *ObjectTracker
}

// WithLogger sets the logger for decode failures and unresolved
// selections. The default is slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *runConfig) {
		c.logger = logger
	}
}

// AllowUnresolved makes Run continue past a command that reuses a
// selection that was never made. The command is passed on with nil
// Objects.
func AllowUnresolved() Option {
	return func(c *runConfig) {
		c.allowUnresolved = true
	}
}

// WithTracker makes Run resolve object lists with t instead of a fresh
// tracker, so a selection can carry over from an earlier stream.
func WithTracker(t *ObjectTracker) Option {
	return func(c *runConfig) {
		c.tracker = t
	}
}

// Run reads every action from r and passes it to h. It returns nil at a
// clean end of stream, or the first error from the reader, the handler or
// ctx.
func Run(ctx context.Context, r *protocol.Reader, h Handler, opts ...Option) error {
	cfg := runConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.tracker == nil {
		cfg.tracker = &ObjectTracker{}
	}
	logger := cfg.logger.With("component", "replay")

	var gameTime time.Duration
	for index := 0; ; index++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		offset := r.Offset()
		action, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			logger.Error("decode failed", ErrorAttrs(err)...)
			return err
		}

		rec := &Resolved{Action: action, Index: index, Offset: offset}
		switch a := action.(type) {
		case *protocol.Time:
			gameTime += time.Duration(a.Elapsed) * time.Millisecond
		case *protocol.Frame:
			if sel, ok := a.Command.(protocol.Selector); ok {
				rec.Selects = true
				rec.Objects, err = cfg.tracker.Resolve(sel.Selection())
				if err != nil {
					if !cfg.allowUnresolved {
						return fmt.Errorf("%s at offset %d: %w", a.Command.Opcode(), offset, err)
					}
					logger.Warn("unresolved selection", "offset", offset, "opcode", a.Command.Opcode().String())
				}
			}
		}
		rec.GameTime = gameTime

		if err := h(ctx, rec); err != nil {
			return err
		}
	}
}

// ErrorAttrs returns slog key-value pairs describing err. A decode error
// contributes its offset, opcode, field and code.
func ErrorAttrs(err error) []any {
	attrs := []any{"error", err}
	var de *protocol.DecodeError
	if !errors.As(err, &de) {
		return attrs
	}
	attrs = append(attrs, "code", de.Code.String(), "offset", de.Offset)
	if de.Opcode != nil {
		attrs = append(attrs, "opcode", de.Opcode.String())
	}
	if de.Field != "" {
		attrs = append(attrs, "field", de.Field)
	}
	return attrs
}
