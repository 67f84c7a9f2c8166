package main

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/vango-dev/mgxrec/internal/errors"
	"github.com/vango-dev/mgxrec/pkg/protocol"
)

func verifyCmd(a *app) *cobra.Command {
	var flags decodeFlags

	cmd := &cobra.Command{
		Use:   "verify FILE|-",
		Short: "Check that every action re-encodes to its input bytes",
		Long: `Decode a recorded game body, encode every action again and compare
the result with the input. The first difference is reported with the
bytes around it.

With --skip-unsupported, frames with unknown opcodes are passed over
and the remaining actions are still compared.

Examples:
  mgxrec verify game.mgx
  mgxrec verify --meta mgl game.mgl`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.applyDecodeFlags(cmd, &flags); err != nil {
				return err
			}
			in, err := openInput(cmd, args[0])
			if err != nil {
				return err
			}
			defer in.Close()

			data, err := io.ReadAll(in.r)
			if err != nil {
				return errors.New("E141").WithDetail(err.Error()).Wrap(err)
			}
			res, err := a.verify(data)
			if err != nil {
				var re *errors.RecError
				if stderrors.As(err, &re) && re.Location != nil && in.path != "" {
					re.Location.File = in.path
				}
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, errors.Success("%s: %d actions, %d bytes re-encoded identically", in.name(), res.actions, res.bytes))
			if res.skipped > 0 {
				fmt.Fprintln(out, errors.Warning("%d unsupported frames were skipped", res.skipped))
			}
			return nil
		},
	}

	flags.register(cmd, false)

	return cmd
}

type verifyResult struct {
	actions int
	skipped int
	bytes   int64
}

// verify decodes data and re-encodes each value, failing at the first
// value whose encoding differs from its input bytes.
func (a *app) verify(data []byte) (verifyResult, error) {
	var res verifyResult
	r := protocol.NewBytesReader(data, a.cfg.ReaderOptions(a.logger))
	var out bytes.Buffer
	w := protocol.NewWriter(&out, protocol.WriterOptions{OldRecord: a.cfg.Decode.OldRecord})

	meta, err := r.ReadMeta(a.cfg.Decode.Meta)
	if err != nil {
		return res, decodeFailureBytes(err, data)
	}
	if meta != nil {
		if err := w.WriteMeta(meta); err != nil {
			return res, err
		}
		if err := compare(data, 0, r.Offset(), out.Bytes(), "meta"); err != nil {
			return res, err
		}
	}

	for {
		start, skipped := r.Offset(), r.Skipped()
		action, err := r.Next()
		if stderrors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, decodeFailureBytes(err, data)
		}

		out.Reset()
		if err := w.WriteAction(action); err != nil {
			return res, err
		}
		got := out.Bytes()
		end := r.Offset()
		// Skipped frames sit between start and the action.
		if r.Skipped() > skipped && int64(len(got)) <= end-start {
			start = end - int64(len(got))
		}
		if err := compare(data, start, end, got, describeAction(action)); err != nil {
			return res, err
		}
		res.actions++
	}
	res.skipped = r.Skipped()
	res.bytes = r.Offset()
	return res, nil
}

// compare reports the first byte where got differs from data[start:end].
func compare(data []byte, start, end int64, got []byte, what string) error {
	want := data[start:end]
	if bytes.Equal(want, got) {
		return nil
	}
	i := 0
	for i < len(want) && i < len(got) && want[i] == got[i] {
		i++
	}
	offset := start + int64(i)
	detail := fmt.Sprintf("%s at 0x%x: input has %d bytes, re-encoding has %d", what, start, len(want), len(got))
	if i < len(want) && i < len(got) {
		detail += fmt.Sprintf("; first difference at 0x%x: input %02x, re-encoding %02x", offset, want[i], got[i])
	}
	return errors.New("R020").WithDetail(detail).WithBytes(data, offset)
}

func describeAction(a protocol.Action) string {
	if f, ok := a.(*protocol.Frame); ok {
		if op, ok := f.Opcode(); ok {
			return op.String()
		}
	}
	return a.ActionType().String()
}

// decodeFailureBytes converts a decode error into a coded error showing
// the bytes around its offset.
func decodeFailureBytes(err error, data []byte) error {
	re := errors.FromDecodeError(err)
	if re == nil {
		return err
	}
	return re.WithBytes(data, re.Location.Offset)
}
