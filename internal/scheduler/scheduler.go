package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/couchcryptid/kp-alert-service/internal/engine"
	"github.com/couchcryptid/kp-alert-service/internal/observability"
)

// Cycle is one evaluation pass.
type Cycle interface {
	EvaluateCycle(ctx context.Context) (engine.CycleReport, error)
}

// Scheduler triggers evaluation cycles on a cron schedule. A tick that fires
// while the previous cycle is still running is skipped.
type Scheduler struct {
	cycle      Cycle
	spec       string
	schedule   cron.Schedule
	runOnStart bool
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// New parses spec (standard five-field cron or a descriptor such as
// "@every 15m") and creates a Scheduler.
func New(cycle Cycle, spec string, runOnStart bool, logger *slog.Logger, metrics *observability.Metrics) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	return &Scheduler{
		cycle:      cycle,
		spec:       spec,
		schedule:   schedule,
		runOnStart: runOnStart,
		logger:     logger,
		metrics:    metrics,
	}, nil
}

// Run starts the schedule and blocks until ctx is cancelled, then waits for
// any in-flight cycle to return.
func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.New(cron.WithLocation(time.UTC), cron.WithLogger(cronLogger{s.logger}))
	job := s.job(ctx)
	c.Schedule(s.schedule, job)

	s.logger.Info("scheduler started", "schedule", s.spec, "run_on_start", s.runOnStart)
	s.metrics.SchedulerRunning.Set(1)
	defer s.metrics.SchedulerRunning.Set(0)

	c.Start()
	var initial sync.WaitGroup
	if s.runOnStart {
		initial.Add(1)
		go func() {
			defer initial.Done()
			job.Run()
		}()
	}

	<-ctx.Done()
	s.logger.Info("scheduler stopping", "reason", ctx.Err())
	<-c.Stop().Done()
	initial.Wait()
	return nil
}

// job wraps one cycle so overlapping ticks are skipped. The initial run
// shares the wrapper with scheduled ticks.
func (s *Scheduler) job(ctx context.Context) cron.Job {
	run := cron.FuncJob(func() {
		if ctx.Err() != nil {
			return
		}
		// Errors are already logged and counted by the engine; the next tick retries.
		_, _ = s.cycle.EvaluateCycle(ctx)
	})
	return cron.NewChain(cron.Recover(cronLogger{s.logger}), cron.SkipIfStillRunning(cronLogger{s.logger})).Then(run)
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
