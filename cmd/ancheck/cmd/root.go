// Package cmd provides the CLI commands for ancheck.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ancheck/internal/app"
	"github.com/Aman-CERP/ancheck/internal/config"
	apperrors "github.com/Aman-CERP/ancheck/internal/errors"
	"github.com/Aman-CERP/ancheck/internal/launcher"
	"github.com/Aman-CERP/ancheck/internal/logging"
	"github.com/Aman-CERP/ancheck/internal/profiling"
	"github.com/Aman-CERP/ancheck/pkg/version"
)

// ownsTerminal marks commands whose stdio is taken by a protocol or a
// full-screen UI, so debug logs must not be mirrored to stderr.
const ownsTerminal = "ancheck/owns-terminal"

// rootOptions holds persistent flags and state shared by subcommands.
type rootOptions struct {
	debug      bool
	configPath string
	dbPath     string
	profile    profiling.Options

	cfg            *config.Config
	loggingCleanup func()
	profiler       *profiling.Session

	// launcher replaces the platform launcher (tests).
	launcher launcher.Launcher
}

// NewRootCmd creates the root command for the ancheck CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&rootOptions{})
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ancheck",
		Short: "Local file and app launcher index",
		Long: `ancheck indexes the folders you launch things from (Desktop, Documents,
Downloads, Start Menus, Program Files) into a local SQLite database and
finds entries by name as you type.

Results rank exact, prefix and substring matches first, then fuzzy
matches, boosted by how often and how recently you opened them.
Arithmetic like '2+2*3' is evaluated inline.`,
		Version:           version.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: opts.setup,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return opts.teardown()
		},
	}

	cmd.SetVersionTemplate("ancheck version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a config file")
	cmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "Path to the index database (overrides storage.path)")
	cmd.PersistentFlags().StringVar(&opts.profile.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&opts.profile.Mem, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&opts.profile.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.AddCommand(newIndexCmd(opts))
	cmd.AddCommand(newSearchCmd(opts))
	cmd.AddCommand(newCalcCmd())
	cmd.AddCommand(newLaunchCmd(opts))
	cmd.AddCommand(newRevealCmd(opts))
	cmd.AddCommand(newStatusCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newMCPCmd(opts))
	cmd.AddCommand(newUICmd(opts))
	cmd.AddCommand(newConfigCmd(opts))
	cmd.AddCommand(newDoctorCmd(opts))
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command and reports a failure on stderr and in the
// log before returning it.
func Execute() error {
	opts := &rootOptions{}
	cmd := newRootCmd(opts)
	err := cmd.Execute()
	if err != nil {
		reportError(cmd.ErrOrStderr(), err, opts.debug)
		_ = opts.teardown()
	}
	return err
}

// reportError prints err with its hint and code. The cause is shown with
// --debug only.
func reportError(w io.Writer, err error, debug bool) {
	slog.Error("command_failed", apperrors.LogAttrs(err)...)
	_, _ = io.WriteString(w, apperrors.FormatForCLI(err, debug))
}

// setup loads configuration, installs the file logger and starts any
// requested profiles.
func (o *rootOptions) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.dbPath != "" {
		cfg.Storage.Path = o.dbPath
	}
	o.cfg = cfg

	logCfg := logging.Config{
		Level:     cfg.Logging.Level,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		MaxFiles:  cfg.Logging.MaxFiles,
	}
	if o.debug {
		logCfg.Level = "debug"
		logCfg.WriteToStderr = cmd.Annotations[ownsTerminal] == ""
	}

	cleanup, err := logging.SetupDefault(logCfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	o.loggingCleanup = cleanup
	slog.Debug("command_started",
		slog.String("command", cmd.CommandPath()),
		slog.String("version", version.Version))

	if o.profile.Enabled() {
		o.profiler, err = profiling.Start(o.profile)
		if err != nil {
			return err
		}
		slog.Debug("profiling_started",
			slog.String("cpu", o.profile.CPU),
			slog.String("mem", o.profile.Mem),
			slog.String("trace", o.profile.Trace))
	}
	return nil
}

func (o *rootOptions) teardown() error {
	err := o.profiler.Stop()
	o.profiler = nil
	if o.loggingCleanup != nil {
		o.loggingCleanup()
		o.loggingCleanup = nil
	}
	return err
}

// openApp opens the index described by the loaded configuration.
func (o *rootOptions) openApp(ctx context.Context) (*app.App, error) {
	return app.Open(ctx, o.cfg, app.WithLauncher(o.launcher))
}
