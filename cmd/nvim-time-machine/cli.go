package main

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/Ghasak/nvimTimeMachine.v2/internal/capsule"
	"github.com/Ghasak/nvimTimeMachine.v2/internal/config"
	"github.com/Ghasak/nvimTimeMachine.v2/internal/errors"
	"github.com/Ghasak/nvimTimeMachine.v2/internal/journal"
	"github.com/Ghasak/nvimTimeMachine.v2/internal/mcp"
	"github.com/Ghasak/nvimTimeMachine.v2/internal/ops"
	"github.com/Ghasak/nvimTimeMachine.v2/internal/progress"
	"github.com/Ghasak/nvimTimeMachine.v2/internal/prompt"
	"github.com/Ghasak/nvimTimeMachine.v2/internal/schedule"
)

// env is everything a command needs from the process.
type env struct {
	root     capsule.RootContext
	cfg      *config.Config
	db       *sql.DB // nil when the journal could not be opened
	log      *slog.Logger
	stdout   io.Writer
	rich     bool // stdout is a terminal: add sizes and ages to listings
	selector prompt.Selector
	progress progress.Sink
	now      func() time.Time
}

func (e *env) paths() ops.Paths {
	return ops.ResolvePaths(e.root, e.cfg)
}

// newCLIApp creates the CLI application. The first set flag picks the
// action, in the order they are declared.
func newCLIApp(e *env) *cli.App {
	if e.cfg == nil {
		e.cfg = config.DefaultConfig()
	}
	if e.stdout == nil {
		e.stdout = os.Stdout
	}

	app := &cli.App{
		Name:    "nvim-time-machine",
		Usage:   "Archive and restore Neovim data, config and cache directories",
		Version: Version,
		Writer:  e.stdout,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "create-capsule", Aliases: []string{"c"}, Usage: "Create a new capsule"},
			&cli.BoolFlag{Name: "list-capsules", Aliases: []string{"l"}, Usage: "List available capsules"},
			&cli.BoolFlag{Name: "restore-capsule", Aliases: []string{"r"}, Usage: "Restore a capsule interactively"},
			&cli.BoolFlag{Name: "history", Usage: "Show recent builds and restores"},
			&cli.BoolFlag{Name: "schedule", Usage: "Create a capsule at every tick of a cron schedule"},
			&cli.StringFlag{Name: "cron", Usage: "Cron spec for --schedule (defaults to the config schedule)"},
			&cli.BoolFlag{Name: "mcp", Usage: "Serve capsule tools over MCP stdio"},
			&cli.BoolFlag{Name: "json", Usage: "Print --list-capsules and --history as JSON"},
			&cli.IntFlag{Name: "limit", Value: ops.DefaultHistoryLimit, Usage: "Number of --history events"},
		},
		Action: func(c *cli.Context) error {
			switch {
			case c.Bool("create-capsule"):
				return e.create()
			case c.Bool("list-capsules"):
				return e.list(c.Bool("json"))
			case c.Bool("restore-capsule"):
				return e.restore()
			case c.Bool("history"):
				return e.history(c.Int("limit"), c.Bool("json"))
			case c.Bool("schedule"):
				return e.schedule(c.Context, c.String("cron"))
			case c.Bool("mcp"):
				if err := mcp.Run(e.root, e.db, e.cfg, e.log, Version); err != nil {
					return outputError(err)
				}
				return nil
			}
			return cli.ShowAppHelp(c)
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func (e *env) build() (*ops.BuildOutput, error) {
	p := e.paths()
	return ops.Build(ops.BuildInput{
		Sources:    p.Sources,
		CapsuleDir: p.CapsuleDir,
		App:        p.App,
		Now:        e.now,
		Progress:   e.progress,
		Log:        e.log,
		Journal:    e.db,
	})
}

func (e *env) create() error {
	out, err := e.build()
	if err != nil {
		return outputError(err)
	}
	fmt.Fprintf(e.stdout, "Capsule created: %s\n", out.Capsule.Path)
	return nil
}

func (e *env) list(asJSON bool) error {
	out, err := ops.List(ops.ListInput{CapsuleDir: e.paths().CapsuleDir})
	if err != nil {
		return outputError(err)
	}
	if asJSON {
		return outputJSON(e.stdout, out)
	}
	if len(out.Capsules) == 0 {
		fmt.Fprintln(e.stdout, "No capsules found.")
		return nil
	}

	index := color.New(color.FgCyan, color.Bold)
	detail := color.New(color.Faint)
	for i, c := range out.Capsules {
		fmt.Fprint(e.stdout, index.Sprintf("[%d]", i+1), " ", c.Name)
		if e.rich {
			fmt.Fprint(e.stdout, "  ", detail.Sprintf("%s, %s", humanize.Bytes(uint64(c.Size)), humanize.Time(c.ModTime)))
		}
		fmt.Fprintln(e.stdout)
	}
	return nil
}

func (e *env) restore() error {
	p := e.paths()
	out, err := ops.SelectAndRestore(p.CapsuleDir, e.selector, ops.RestoreInput{
		Targets:  p.Sources,
		Now:      e.now,
		Progress: e.progress,
		Log:      e.log,
		Journal:  e.db,
	})
	if errors.Is(err, errors.ErrNoCapsules) {
		fmt.Fprintln(e.stdout, "No capsules found.")
		return nil
	}
	if err != nil {
		return outputError(err)
	}
	for _, d := range out.Displaced {
		if d.Removed {
			fmt.Fprintf(e.stdout, "Removed %s\n", d.Target)
		} else {
			fmt.Fprintf(e.stdout, "Moved %s to %s\n", d.Target, d.Backup)
		}
	}
	fmt.Fprintf(e.stdout, "Restored %s (%d files)\n", out.Capsule.Name, out.Files)
	return nil
}

func (e *env) history(limit int, asJSON bool) error {
	out, err := ops.History(e.db, ops.HistoryInput{Limit: limit})
	if err != nil {
		return outputError(err)
	}
	if asJSON {
		return outputJSON(e.stdout, out)
	}
	if len(out.Events) == 0 {
		fmt.Fprintln(e.stdout, "No history.")
		return nil
	}
	for _, ev := range out.Events {
		fmt.Fprintln(e.stdout, formatEvent(ev, e.rich))
	}
	return nil
}

func formatEvent(ev journal.Event, rich bool) string {
	line := fmt.Sprintf("%s  %-7s  %s  %d entries, %s",
		ev.CreatedAt.Format("2006-01-02 15:04:05"), ev.Kind, ev.Capsule,
		ev.Entries, humanize.Bytes(uint64(ev.Bytes)))
	if ev.Mode != "" {
		line += " (" + ev.Mode + ")"
	}
	if rich {
		line += "  " + humanize.Time(ev.CreatedAt)
	}
	return line
}

func (e *env) schedule(parent context.Context, spec string) error {
	if spec == "" {
		spec = e.cfg.Schedule
	}
	if spec == "" {
		return outputError(errors.NewInvalidRequest("no schedule: pass --cron or set schedule in config"))
	}
	s, err := schedule.New(spec, e.log)
	if err != nil {
		return outputError(err)
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(e.stdout, "Scheduling capsules: %s\n", spec)
	return s.Run(ctx, func(time.Time) error {
		out, err := e.build()
		if err != nil {
			return err
		}
		fmt.Fprintf(e.stdout, "Capsule created: %s\n", out.Capsule.Path)
		return nil
	})
}

// outputJSON writes v as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var cErr *errors.CapsuleError
	if stderrors.As(err, &cErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", cErr.Code, cErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
