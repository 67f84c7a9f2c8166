package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/vango-dev/mgxrec/internal/config"
	"github.com/vango-dev/mgxrec/internal/errors"
)

func configCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage mgxrec.json",
	}
	cmd.AddCommand(configInitCmd(), configShowCmd(a))
	return cmd
}

func configInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [DIR]",
		Short: "Write a mgxrec.json with default settings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			path := filepath.Join(dir, config.ConfigFileName)
			if !force && config.Exists(dir) {
				return errors.New("C123").
					WithDetail(path + " already exists").
					WithSuggestion("Pass --force to overwrite it.")
			}
			if err := os.MkdirAll(dir, 0755); err != nil {
				return errors.New("C123").WithDetail(err.Error()).Wrap(err)
			}
			if err := config.New().SaveTo(path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), errors.Success("Wrote %s", path))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing mgxrec.json")

	return cmd
}

func configShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(a.cfg)
		},
	}
}

func stateWidthCmd(a *app) *cobra.Command {
	var cutoff float32

	cmd := &cobra.Command{
		Use:   "state-width VERSION",
		Short: "Print the unit action state width for a save version",
		Long: `Print how many bytes the unit action state of a saved unit takes for
the given save version: 1 up to the cutoff, 4 after it.

Examples:
  mgxrec state-width 11.76
  mgxrec state-width --cutoff 11.8 12.1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var version float32
			if _, err := fmt.Sscan(args[0], &version); err != nil {
				return errors.New("E140").WithDetail(fmt.Sprintf("VERSION %q is not a number", args[0]))
			}
			if cmd.Flags().Changed("cutoff") {
				a.cfg.Decode.UnitActionStateCutoff = cutoff
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.cfg.UnitActionStateWidth(version))
			return nil
		},
	}

	cmd.Flags().Float32Var(&cutoff, "cutoff", 0, "Last save version with a one-byte state (default from mgxrec.json)")

	return cmd
}
