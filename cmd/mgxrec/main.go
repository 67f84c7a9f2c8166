package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/vango-dev/mgxrec/internal/config"
	"github.com/vango-dev/mgxrec/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// app holds the state shared by every command.
type app struct {
	configPath string
	logLevel   string
	logFormat  string
	noColor    bool

	cfg    *config.Config
	logger *slog.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.PrintError(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "mgxrec",
		Short: "Decode and inspect recorded game action streams",
		Long: `mgxrec decodes the action stream of Age of Empires II recorded games
(.mgx, .mgl, .mgz bodies) and encodes it back byte for byte.

Settings are read from the nearest mgxrec.json above the working
directory, or from --config. Flags override the file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to mgxrec.json")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "Log format: text or json")
	rootCmd.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		decodeCmd(a),
		statsCmd(a),
		verifyCmd(a),
		serveCmd(a),
		configCmd(a),
		stateWidthCmd(a),
		versionCmd(),
	)

	return rootCmd
}

// setup loads the configuration, applies the global flags and builds the
// logger.
func (a *app) setup(stderr io.Writer) error {
	if a.noColor {
		errors.DisableColors()
	}

	var err error
	if a.configPath != "" {
		a.cfg, err = config.LoadFile(a.configPath)
	} else {
		a.cfg, err = config.LoadFromWorkingDir()
	}
	if err != nil {
		return err
	}

	if a.logLevel != "" {
		a.cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		a.cfg.Log.Format = a.logFormat
	}
	level, err := config.ParseLevel(a.cfg.Log.Level)
	if err != nil {
		return errors.New("E140").WithDetail("--log-level: " + err.Error())
	}

	opts := &slog.HandlerOptions{Level: level}
	switch a.cfg.Log.Format {
	case "text":
		a.logger = slog.New(slog.NewTextHandler(stderr, opts))
	case "json":
		a.logger = slog.New(slog.NewJSONHandler(stderr, opts))
	default:
		return errors.New("E140").WithDetail(fmt.Sprintf("--log-format must be text or json, got %q", a.cfg.Log.Format))
	}
	slog.SetDefault(a.logger)
	return nil
}
