// Package schedule runs a job at every tick of a cron spec.
package schedule

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Ghasak/nvimTimeMachine.v2/internal/errors"
	"github.com/Ghasak/nvimTimeMachine.v2/internal/logging"
)

// Parse parses a standard 5-field cron spec or a descriptor such as @daily.
func Parse(spec string) (cron.Schedule, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, errors.NewInvalidRequest("invalid schedule " + spec + ": " + err.Error())
	}
	return sched, nil
}

// Scheduler fires a job at each tick, one run at a time.
type Scheduler struct {
	spec  string
	sched cron.Schedule
	log   *slog.Logger
}

// New returns a Scheduler for spec.
func New(spec string, log *slog.Logger) (*Scheduler, error) {
	sched, err := Parse(spec)
	if err != nil {
		return nil, err
	}
	return &Scheduler{
		spec:  spec,
		sched: sched,
		log:   logging.OrDiscard(log),
	}, nil
}

// Next returns the first tick strictly after from.
func (s *Scheduler) Next(from time.Time) time.Time {
	return s.sched.Next(from)
}

// Run calls job at every tick until ctx is done, then waits for a running
// job to finish. A failing job is logged and the schedule carries on. Runs
// never overlap: a tick that passes while a job is still running is skipped.
func (s *Scheduler) Run(ctx context.Context, job func(tick time.Time) error) error {
	if ctx.Err() != nil {
		return nil
	}
	if s.Next(time.Now()).IsZero() {
		return errors.NewInvalidRequest("schedule " + s.spec + " never fires")
	}

	logger := cronLogger{s.log}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	c.Schedule(s.sched, cron.FuncJob(func() {
		tick := time.Now()
		if err := job(tick); err != nil {
			s.log.Error("scheduled run failed", "at", tick.Format(time.RFC3339), "error", err)
		}
		s.log.Info("next capsule scheduled", "at", s.Next(time.Now()).Format(time.RFC3339))
	}))

	s.log.Info("next capsule scheduled", "at", s.Next(time.Now()).Format(time.RFC3339))
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// cronLogger routes the cron runner's own logging into slog.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
