package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/vango-dev/mgxrec/pkg/replay"
)

func statsCmd(a *app) *cobra.Command {
	var (
		flags  decodeFlags
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "stats FILE|-",
		Short: "Summarize the actions of a recording",
		Long: `Decode a recorded game body and print action and command counts,
total game time, reused selections and skipped frames.

Examples:
  mgxrec stats game.mgx
  mgxrec stats --json --skip-unsupported game.mgx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.applyDecodeFlags(cmd, &flags); err != nil {
				return err
			}
			filter, err := flags.filter()
			if err != nil {
				return err
			}
			summary, err := a.runStats(cmd, args[0], filter)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}
			printSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}

	flags.register(cmd, true)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the summary as JSON")

	return cmd
}

func (a *app) runStats(cmd *cobra.Command, path string, filter *replay.Filter) (replay.Summary, error) {
	in, err := openInput(cmd, path)
	if err != nil {
		return replay.Summary{}, err
	}
	defer in.Close()

	r := a.reader(in)
	if _, err := r.ReadMeta(a.cfg.Decode.Meta); err != nil {
		return replay.Summary{}, in.decodeFailure(err)
	}

	stats := replay.NewStats()
	mws := []replay.Middleware{stats.Middleware()}
	if filter != nil {
		mws = append([]replay.Middleware{filter.Middleware()}, mws...)
	}
	h := replay.Chain(func(context.Context, *replay.Resolved) error { return nil }, mws...)
	if err := replay.Run(cmd.Context(), r, h, a.runOptions()...); err != nil {
		return replay.Summary{}, in.decodeFailure(err)
	}
	stats.Skipped = r.Skipped()
	return stats.Summary(), nil
}

// printSummary prints s as an aligned table.
func printSummary(w io.Writer, s replay.Summary) {
	section := func(title string, counts map[string]int) {
		if len(counts) == 0 {
			return
		}
		fmt.Fprintf(w, "%s:\n", title)
		names := make([]string, 0, len(counts))
		for name := range counts {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "  %-22s %8d\n", name, counts[name])
		}
	}

	section("Actions", s.Actions)
	section("Commands", s.Commands)
	section("Game commands", s.GameCommands)
	fmt.Fprintf(w, "Game time:              %s\n", time.Duration(s.GameTimeMillis)*time.Millisecond)
	fmt.Fprintf(w, "Distinct objects:       %d\n", s.DistinctObjects)
	fmt.Fprintf(w, "Reused selections:      %d\n", s.Reused)
	fmt.Fprintf(w, "Frames with trailing:   %d\n", s.Trailing)
	fmt.Fprintf(w, "Skipped frames:         %d\n", s.Skipped)
}
