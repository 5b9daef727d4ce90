// Package cli is the tada command line: the TUI when run bare, scriptable
// subcommands otherwise.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Makepad-fr/tada/internal/config"
	"github.com/Makepad-fr/tada/internal/controller"
	"github.com/Makepad-fr/tada/internal/store/remote"
	"github.com/Makepad-fr/tada/internal/tui"
	"github.com/Makepad-fr/tada/internal/ui"
)

// Exit codes: 0 ok, 1 error, 2 usage.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// usageError marks bad arguments; Execute maps it to exit code 2.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

type App struct {
	v          *viper.Viper
	configFile string
	cfg        *config.Config
	logFile    io.Closer

	// configFiles and newStore are swapped in tests.
	configFiles func() []string
	newStore    func(cfg *config.Config) controller.Store
}

func newApp() *App {
	return &App{
		v:           viper.New(),
		configFiles: config.DefaultFiles,
		newStore: func(cfg *config.Config) controller.Store {
			return remote.New(cfg.BaseURL)
		},
	}
}

func NewRootCmd() *cobra.Command { return newRootCmd(newApp()) }

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tada",
		Short:         "A task list kept in sync with a remote collection",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  tada

  # Scriptable commands
  tada add "Buy milk"
  tada ls --filter uncompleted
  tada done 2
  tada rename 2 "Buy oat milk"
  tada rm 3

  # Run a local collection to talk to
  tada serve --driver sqlite --data tasks.db
`),
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), app)
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.setup()
	}
	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if app.logFile != nil {
			return app.logFile.Close()
		}
		return nil
	}
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return usageError{msg: err.Error()}
	})

	pf := cmd.PersistentFlags()
	pf.StringVar(&app.configFile, "config", "", "Extra config file, merged after ~/.tada and ./.tada")
	pf.String("base-url", "", "Task collection URL (default "+remote.DefaultBaseURL+")")
	pf.Duration("timeout", 0, "Per-request timeout (default 10s)")
	pf.String("theme", "", "Output theme: classic|neon|mono")
	pf.String("color", "", "Color output: auto|always|never")
	pf.String("log-file", "", "Append debug logs to this file")
	bindFlag(app.v, "base_url", pf.Lookup("base-url"))
	bindFlag(app.v, "timeout", pf.Lookup("timeout"))
	bindFlag(app.v, "theme", pf.Lookup("theme"))
	bindFlag(app.v, "color", pf.Lookup("color"))
	bindFlag(app.v, "log_file", pf.Lookup("log-file"))

	cmd.AddCommand(newListCmd(app))
	cmd.AddCommand(newAddCmd(app))
	cmd.AddCommand(newDoneCmd(app))
	cmd.AddCommand(newRenameCmd(app))
	cmd.AddCommand(newRemoveCmd(app))
	cmd.AddCommand(newServeCmd(app))
	return cmd
}

// Execute runs the root command against os.Args and returns the exit code.
func Execute() int {
	return run(NewRootCmd(), os.Args[1:], os.Stdout, os.Stderr)
}

func run(cmd *cobra.Command, args []string, stdout, stderr io.Writer) int {
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	err := cmd.ExecuteContext(context.Background())
	return exitCode(stderr, err)
}

func exitCode(stderr io.Writer, err error) int {
	if err == nil {
		return exitOK
	}
	ui.Fail(stderr, err.Error())
	var ue usageError
	if errors.As(err, &ue) {
		ui.Hint(stderr, "Run `tada --help` for usage.")
		return exitUsage
	}
	return exitError
}

// setup loads config, then applies theme, color and logging before any
// command runs.
func (app *App) setup() error {
	files := app.configFiles()
	if app.configFile != "" {
		if _, err := os.Stat(app.configFile); err != nil {
			return fmt.Errorf("config %s: %w", app.configFile, err)
		}
		files = append(files, app.configFile)
	}
	cfg, err := config.Load(app.v, files...)
	if err != nil {
		return err
	}
	app.cfg = cfg

	if err := ui.SetTheme(cfg.Theme); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	ui.SetColorMode(cfg.Color)

	if cfg.LogFile == "" {
		log.SetOutput(io.Discard)
		return nil
	}
	f, err := tea.LogToFile(cfg.LogFile, "tada")
	if err != nil {
		return fmt.Errorf("log file: %w", err)
	}
	app.logFile = f
	return nil
}

func (app *App) controllerOptions() []controller.Option {
	return []controller.Option{
		controller.WithTimeout(app.cfg.Timeout),
		controller.WithLogger(log.Default()),
	}
}

func runTUI(ctx context.Context, app *App) error {
	return tui.Run(ctx, app.newStore(app.cfg), app.controllerOptions()...)
}

// bindFlag binds a flag so viper only prefers it when it was set; the
// zero-valued flag defaults never shadow config files or env.
func bindFlag(v *viper.Viper, key string, f *pflag.Flag) {
	if f == nil {
		panic("cli: no flag for " + key)
	}
	if err := v.BindPFlag(key, f); err != nil {
		panic(err)
	}
}

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		if cmd.HasSubCommands() {
			return usagef("unknown command %q for %q", args[0], cmd.CommandPath())
		}
		return usagef("usage: %s", cmd.UseLine())
	}
	return nil
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return usagef("usage: %s", cmd.UseLine())
		}
		return nil
	}
}

func minArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < n {
			return usagef("usage: %s", cmd.UseLine())
		}
		return nil
	}
}
