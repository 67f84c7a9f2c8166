package main

import (
	"bufio"
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/vango-dev/mgxrec/internal/errors"
	"github.com/vango-dev/mgxrec/pkg/protocol"
	"github.com/vango-dev/mgxrec/pkg/replay"
)

// decodeFlags are the decode flags shared by decode, stats and verify.
type decodeFlags struct {
	only            []string
	skipUnsupported bool
	oldRecord       bool
	meta            string
	allowUnresolved bool
}

func (f *decodeFlags) register(cmd *cobra.Command, withFilter bool) {
	if withFilter {
		cmd.Flags().StringSliceVar(&f.only, "only", nil, "Only output these actions or commands (e.g. Chat,Move)")
	}
	cmd.Flags().BoolVar(&f.skipUnsupported, "skip-unsupported", false, "Skip frames with unsupported opcodes instead of failing")
	cmd.Flags().BoolVar(&f.oldRecord, "old-record", false, "Read the legacy Time record layout")
	cmd.Flags().StringVar(&f.meta, "meta", "", "Body metadata before the first action: none, mgx or mgl")
	cmd.Flags().BoolVar(&f.allowUnresolved, "allow-unresolved", false, "Continue when a command reuses a selection that was never made")
}

// applyDecodeFlags copies the flags the user set into the decode configuration.
func (a *app) applyDecodeFlags(cmd *cobra.Command, f *decodeFlags) error {
	flags := cmd.Flags()
	d := &a.cfg.Decode
	if flags.Changed("skip-unsupported") {
		d.SkipUnsupported = f.skipUnsupported
	}
	if flags.Changed("old-record") {
		d.OldRecord = f.oldRecord
	}
	if flags.Changed("allow-unresolved") {
		d.AllowUnresolved = f.allowUnresolved
	}
	if flags.Changed("meta") {
		switch f.meta {
		case "none", "mgx", "mgl":
			d.Meta = f.meta
		default:
			return errors.New("E140").WithDetail(fmt.Sprintf("--meta must be none, mgx or mgl, got %q", f.meta))
		}
	}
	return nil
}

// filter parses --only, or returns nil when it was not given.
func (f *decodeFlags) filter() (*replay.Filter, error) {
	if len(f.only) == 0 {
		return nil, nil
	}
	filter, err := replay.ParseFilter(f.only...)
	if err != nil {
		return nil, errors.New("E140").WithDetail("--only: " + err.Error()).Wrap(err)
	}
	return filter, nil
}

// runOptions returns the replay options for the current configuration.
func (a *app) runOptions() []replay.Option {
	opts := []replay.Option{replay.WithLogger(a.logger)}
	if a.cfg.Decode.AllowUnresolved {
		opts = append(opts, replay.AllowUnresolved())
	}
	return opts
}

// input is an opened recording body.
type input struct {
	// path is empty for stdin.
	path string
	r    io.Reader
	c    io.Closer
}

// openInput opens path, or stdin for "-".
func openInput(cmd *cobra.Command, path string) (*input, error) {
	if path == "-" {
		return &input{r: bufio.NewReader(cmd.InOrStdin())}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New("E141").WithDetail(err.Error()).Wrap(err)
	}
	return &input{path: path, r: bufio.NewReader(f), c: f}, nil
}

func (in *input) Close() error {
	if in.c == nil {
		return nil
	}
	return in.c.Close()
}

func (in *input) name() string {
	if in.path == "" {
		return "<stdin>"
	}
	return in.path
}

// reader returns a protocol.Reader over the input.
func (a *app) reader(in *input) *protocol.Reader {
	return protocol.NewReader(in.r, a.cfg.ReaderOptions(a.logger))
}

// decodeFailure converts a decode or replay error into a coded error
// pointing into the input.
func (in *input) decodeFailure(err error) error {
	if stderrors.Is(err, replay.ErrNoPreviousSelection) {
		return errors.New("R021").WithDetail(err.Error()).Wrap(err)
	}
	re := errors.FromDecodeError(err)
	if re == nil {
		return err
	}
	if in.path != "" {
		re.WithLocation(in.path, re.Location.Offset)
	}
	return re
}
