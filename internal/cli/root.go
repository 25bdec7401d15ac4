package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/idilsaglam/todolist/internal/config"
	"github.com/idilsaglam/todolist/internal/datasource"
	"github.com/idilsaglam/todolist/internal/service"
	"github.com/idilsaglam/todolist/internal/tui"
	"github.com/idilsaglam/todolist/internal/ui"
)

// App carries root flag values and the resolved configuration to every
// subcommand.
type App struct {
	ConfigPath string
	Source     string
	Path       string
	Addr       string
	Latency    time.Duration
	Strict     bool
	Theme      string
	LogLevel   string

	cfg config.Config
	log *log.Logger

	// interactive reports whether the bare command may start the TUI.
	interactive func() bool
}

// Execute runs the CLI and returns an exit code (0 ok, 1 error, 2 usage).
func Execute(args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	err := cmd.Execute()
	if err == nil {
		return 0
	}
	ui.Fail(stderr, err.Error())
	if isUsage(err) {
		fmt.Fprintln(stderr, ui.Current().Muted.Render("Run `todo --help` for usage."))
		return 2
	}
	return 1
}

func NewRootCmd() *cobra.Command {
	app := &App{interactive: stdioIsTerminal}

	cmd := &cobra.Command{
		Use:           "todo",
		Short:         "todo - a tiny todo list with pluggable storage",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: strings.TrimSpace(`
  todo add "Buy milk"
  todo ls --group
  todo done 2
  todo edit 2 "Buy oat milk"
  todo rm 3
  todo --source sqlite --path todos.sqlite ls
  todo serve --listen 127.0.0.1:7070
  todo --source remote --addr 127.0.0.1:7070`),
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.interactive() {
				return app.runService(cmd, false, func(ctx context.Context, svc *service.TodoListService) error {
					return tui.Run(ctx, svc, app.log)
				})
			}
			return app.withService(cmd, func(ctx context.Context, svc *service.TodoListService) error {
				return doList(cmd.OutOrStdout(), svc.Items(), false)
			})
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.resolve(cmd)
	}

	f := cmd.PersistentFlags()
	f.StringVar(&app.ConfigPath, "config", "", "Path to config file (default ./"+config.DefaultFileName+")")
	f.StringVar(&app.Source, "source", "", "Data source: ephemeral|json|sqlite|bolt|remote")
	f.StringVar(&app.Path, "path", "", "Backing file for json/sqlite/bolt sources")
	f.StringVar(&app.Addr, "addr", "", "Server address for the remote source")
	f.DurationVar(&app.Latency, "latency", 0, "Simulated latency before each fetch (e.g. 500ms)")
	f.BoolVar(&app.Strict, "strict", false, "Fail updates that target an unknown id")
	f.StringVar(&app.Theme, "theme", "", "Theme: classic|neon|mono")
	f.StringVar(&app.LogLevel, "log-level", "", "Log level: debug|info|warn|error")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err.Error()}
	})

	cmd.AddCommand(newListCmd(app))
	cmd.AddCommand(newAddCmd(app))
	cmd.AddCommand(newDoneCmd(app))
	cmd.AddCommand(newEditCmd(app))
	cmd.AddCommand(newRemoveCmd(app))
	cmd.AddCommand(newServeCmd(app))

	return cmd
}

// resolve layers config file, environment and explicitly set flags.
func (app *App) resolve(cmd *cobra.Command) error {
	cfg, err := config.Load(app.ConfigPath)
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("source") {
		cfg.Source = app.Source
	}
	if flags.Changed("path") {
		cfg.Path = app.Path
	}
	if flags.Changed("addr") {
		cfg.Addr = app.Addr
	}
	if flags.Changed("latency") {
		cfg.LatencyMS = int(app.Latency / time.Millisecond)
	}
	if flags.Changed("strict") {
		cfg.StrictUpdate = app.Strict
	}
	if flags.Changed("theme") {
		cfg.Theme = app.Theme
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = app.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return usageError{err.Error()}
	}
	app.cfg = cfg
	ui.SetTheme(cfg.Theme)
	app.log = log.NewWithOptions(cmd.ErrOrStderr(), log.Options{
		Level:  cfg.Level(),
		Prefix: "todo",
	})
	return nil
}

func (app *App) openSource() (datasource.DataSource, error) {
	kind, err := app.cfg.Kind()
	if err != nil {
		return nil, err
	}
	opts, err := app.cfg.DataSourceOptions()
	if err != nil {
		return nil, err
	}
	app.log.Debug("opening data source", "kind", kind, "path", opts.Path, "addr", opts.Addr, "latency", opts.Latency)
	return datasource.New(kind, opts)
}

// withService opens the configured source, runs the initial fetch and hands
// the service to fn. The source is closed afterwards.
func (app *App) withService(cmd *cobra.Command, fn func(context.Context, *service.TodoListService) error) error {
	return app.runService(cmd, true, fn)
}

// runService is withService with the initial fetch optional; the TUI starts
// the service itself so it can show the loading state.
func (app *App) runService(cmd *cobra.Command, start bool, fn func(context.Context, *service.TodoListService) error) error {
	src, err := app.openSource()
	if err != nil {
		return err
	}
	defer func() {
		if err := src.Close(); err != nil {
			app.log.Warn("close data source", "err", err)
		}
	}()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	svc := service.New(src, service.WithLogger(app.log))
	if start {
		if err := svc.Start(ctx); err != nil {
			return fmt.Errorf("load: %w", err)
		}
	}
	return fn(ctx, svc)
}

func stdioIsTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) && isatty.IsTerminal(os.Stdin.Fd())
}

type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func isUsage(err error) bool {
	var u usageError
	if errors.As(err, &u) {
		return true
	}
	// cobra reports unknown subcommands with a plain error
	return strings.HasPrefix(err.Error(), "unknown command")
}

type notFoundError struct{ id string }

func (e notFoundError) Error() string { return "item not found: " + e.id }

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())
	}
	return nil
}

func exactArgs(n int, usage string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) != n {
			return usageError{"usage: " + usage}
		}
		return nil
	}
}

func minArgs(n int, usage string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) < n {
			return usageError{"usage: " + usage}
		}
		return nil
	}
}
