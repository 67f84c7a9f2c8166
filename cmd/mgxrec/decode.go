package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/sanity-io/litter"
	"github.com/spf13/cobra"
	"github.com/vango-dev/mgxrec/internal/errors"
	"github.com/vango-dev/mgxrec/pkg/protocol"
	"github.com/vango-dev/mgxrec/pkg/replay"
)

func decodeCmd(a *app) *cobra.Command {
	var (
		flags  decodeFlags
		format string
	)

	cmd := &cobra.Command{
		Use:   "decode FILE|-",
		Short: "Print the actions of a recording",
		Long: `Decode a recorded game body and print every action.

Formats:
  text   one line per action (default)
  json   one JSON object per line
  dump   Go literal dump of every decoded value

Examples:
  mgxrec decode game.mgx
  mgxrec decode --meta mgx --only Chat,Resign game.mgx
  cat body.bin | mgxrec decode --format json -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.applyDecodeFlags(cmd, &flags); err != nil {
				return err
			}
			filter, err := flags.filter()
			if err != nil {
				return err
			}
			p, err := newPrinter(format, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return a.runDecode(cmd, args[0], filter, p)
		},
	}

	flags.register(cmd, true)
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json or dump")

	return cmd
}

func (a *app) runDecode(cmd *cobra.Command, path string, filter *replay.Filter, p printer) error {
	in, err := openInput(cmd, path)
	if err != nil {
		return err
	}
	defer in.Close()

	r := a.reader(in)
	meta, err := r.ReadMeta(a.cfg.Decode.Meta)
	if err != nil {
		return in.decodeFailure(err)
	}
	if meta != nil {
		if err := p.meta(meta); err != nil {
			return err
		}
	}

	var mws []replay.Middleware
	if filter != nil {
		mws = append(mws, filter.Middleware())
	}
	err = replay.Run(cmd.Context(), r, replay.Chain(func(_ context.Context, rec *replay.Resolved) error {
		return p.action(rec)
	}, mws...), a.runOptions()...)
	if err != nil {
		return in.decodeFailure(err)
	}
	if n := r.Skipped(); n > 0 {
		a.logger.Warn("skipped unsupported frames", "file", in.name(), "count", n)
	}
	return nil
}

// printer writes decoded values in one output format.
type printer interface {
	meta(*protocol.Meta) error
	action(*replay.Resolved) error
}

func newPrinter(format string, w io.Writer) (printer, error) {
	switch format {
	case "text":
		return &textPrinter{w: w}, nil
	case "json":
		return &jsonPrinter{enc: json.NewEncoder(w)}, nil
	case "dump":
		return &dumpPrinter{w: w, opts: litter.Options{HidePrivateFields: true}}, nil
	default:
		return nil, errors.New("E140").WithDetail(fmt.Sprintf("--format must be text, json or dump, got %q", format))
	}
}

// textPrinter prints one line per action.
type textPrinter struct {
	w io.Writer
}

func (p *textPrinter) meta(m *protocol.Meta) error {
	version := "-"
	if m.LogVersion != nil {
		version = fmt.Sprint(*m.LogVersion)
	}
	_, err := fmt.Fprintf(p.w, "meta format=%s log_version=%s checksum_interval=%d multiplayer=%t local_player=%d\n",
		m.Format(), version, m.ChecksumInterval, m.Multiplayer, m.LocalPlayer)
	return err
}

func (p *textPrinter) action(rec *replay.Resolved) error {
	_, err := fmt.Fprintf(p.w, "%6d  %08x  %9s  %s\n", rec.Index, rec.Offset, formatGameTime(rec), describe(rec))
	return err
}

// describe returns a one-line summary of an action.
func describe(rec *replay.Resolved) string {
	var b strings.Builder
	switch a := rec.Action.(type) {
	case *protocol.Frame:
		if op, ok := a.Opcode(); ok {
			b.WriteString(op.String())
		}
		fmt.Fprintf(&b, " world_time=%d", a.WorldTime)
		if a.Command == nil {
			fmt.Fprintf(&b, " raw=%d bytes", len(a.Raw))
		}
		if game, ok := a.Command.(*protocol.Game); ok && game.Command != nil {
			fmt.Fprintf(&b, " game=%s", game.Command.GameOpcode())
		}
		if rec.Selects {
			fmt.Fprintf(&b, " objects=%v", rec.Objects)
		}
		if len(a.Trailing) > 0 {
			fmt.Fprintf(&b, " trailing=%d", len(a.Trailing))
		}
	case *protocol.Time:
		fmt.Fprintf(&b, "Time elapsed=%d", a.Elapsed)
	case *protocol.Sync:
		fmt.Fprintf(&b, "Sync checksum=%08x", a.Checksum)
	case *protocol.ViewLock:
		fmt.Fprintf(&b, "ViewLock %+v", *a)
	case *protocol.Chat:
		fmt.Fprintf(&b, "Chat %q", a.Message)
	default:
		b.WriteString(rec.Action.ActionType().String())
	}
	return b.String()
}

// formatGameTime returns the game time as m:ss.mmm.
func formatGameTime(rec *replay.Resolved) string {
	ms := rec.GameTime.Milliseconds()
	return fmt.Sprintf("%d:%02d.%03d", ms/60000, ms/1000%60, ms%1000)
}

// jsonPrinter prints one JSON object per line.
type jsonPrinter struct {
	enc *json.Encoder
}

func (p *jsonPrinter) meta(m *protocol.Meta) error {
	return p.enc.Encode(struct {
		Meta *protocol.Meta `json:"meta"`
	}{m})
}

func (p *jsonPrinter) action(rec *replay.Resolved) error {
	return p.enc.Encode(rec.Record())
}

// dumpPrinter prints Go literals of every decoded value.
type dumpPrinter struct {
	w    io.Writer
	opts litter.Options
}

func (p *dumpPrinter) meta(m *protocol.Meta) error {
	_, err := fmt.Fprintln(p.w, p.opts.Sdump(m))
	return err
}

func (p *dumpPrinter) action(rec *replay.Resolved) error {
	_, err := fmt.Fprintf(p.w, "// #%d @0x%x\n%s\n", rec.Index, rec.Offset, p.opts.Sdump(rec.Action))
	return err
}
