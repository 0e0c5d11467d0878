package cli

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/esqlite/internal/config"
	"github.com/roach88/esqlite/internal/engine"
	"github.com/roach88/esqlite/internal/ir"
	"github.com/roach88/esqlite/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	ConnName   string
	DB         string

	// Config is loaded from ConfigPath before any command runs.
	Config *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the esqlite CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "esqlite",
		Version: ir.Version,
		Short:   "esqlite - serialized SQLite access",
		Long:    "Run statements, scripts and scenarios against SQLite databases through a single serialized connection.",

		// main prints errors
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if opts.ConfigPath != "" {
				cfg, err := config.Load(opts.ConfigPath)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to load config", err)
				}
				opts.Config = cfg
			}
			configureLogging(cmd, opts)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (.cue, .yaml or .yml)")
	cmd.PersistentFlags().StringVar(&opts.ConnName, "conn", "", "connection name from the config file")
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "database path (overrides --config)")

	cmd.AddCommand(NewExecCommand(opts))
	cmd.AddCommand(NewScriptCommand(opts))
	cmd.AddCommand(NewTablesCommand(opts))
	cmd.AddCommand(NewSchemaCommand(opts))
	cmd.AddCommand(NewPortCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// configureLogging installs a text handler on stderr. --verbose wins over
// the config file's log_level; without either only warnings are shown.
func configureLogging(cmd *cobra.Command, opts *RootOptions) {
	level := slog.LevelWarn
	switch {
	case opts.Verbose:
		level = slog.LevelDebug
	case opts.Config != nil:
		level = opts.Config.SlogLevel()
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// target is the database a command runs against.
type target struct {
	name      string
	path      string
	storeOpts []store.Option
}

// resolveTarget picks the database from --db, or from the config file by
// --conn or the config's default connection.
func resolveTarget(opts *RootOptions) (target, error) {
	if opts.DB != "" {
		name := opts.ConnName
		if name == "" {
			name = engine.DefaultName
		}
		return target{name: name, path: opts.DB}, nil
	}
	if opts.Config == nil {
		return target{}, NewExitError(ExitCommandError, "no database: pass --db or --config")
	}

	name := opts.ConnName
	if name == "" {
		name = opts.Config.Default
	}
	conn, ok := opts.Config.Lookup(name)
	if !ok {
		return target{}, NewExitError(ExitCommandError, fmt.Sprintf("connection %q is not in %s", name, opts.ConfigPath))
	}
	return target{name: conn.Name, path: conn.Path, storeOpts: conn.StoreOptions()}, nil
}

// openConn opens the command's connection in a registry. Closing the
// registry closes the connection.
func openConn(ctx context.Context, opts *RootOptions) (*engine.Registry, *engine.Conn, error) {
	t, err := resolveTarget(opts)
	if err != nil {
		return nil, nil, err
	}

	reg := engine.NewRegistry()
	conn, err := reg.Open(ctx, t.name, t.path, engine.WithStoreOptions(t.storeOpts...))
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return reg, conn, nil
}
