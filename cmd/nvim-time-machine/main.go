package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/Ghasak/nvimTimeMachine.v2/internal/capsule"
	"github.com/Ghasak/nvimTimeMachine.v2/internal/config"
	"github.com/Ghasak/nvimTimeMachine.v2/internal/journal"
	"github.com/Ghasak/nvimTimeMachine.v2/internal/logging"
	"github.com/Ghasak/nvimTimeMachine.v2/internal/progress"
	"github.com/Ghasak/nvimTimeMachine.v2/internal/prompt"
)

// Version is set via -ldflags at build time.
var Version = "dev"

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func main() {
	root, err := capsule.ResolveRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(root.StateDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(os.Stderr, cfg.LogLevel)

	// The journal is optional: without it builds and restores still run.
	database, err := journal.Init(root.StateDir())
	if err != nil {
		log.Warn("journal unavailable", "error", err)
	}

	app := newCLIApp(&env{
		root:     root,
		cfg:      cfg,
		db:       database,
		log:      log,
		stdout:   os.Stdout,
		rich:     isTerminal(os.Stdout),
		selector: prompt.NewTerminal(),
		progress: progress.For(os.Stderr, cfg.ShowProgress()),
	})
	err = app.Run(os.Args)
	if database != nil {
		database.Close()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
