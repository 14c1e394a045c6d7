package cron

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"cmms.GO/app"
	"cmms.GO/config"
	"cmms.GO/service/scheduler"
)

// loopJobs maps built-in job names to the scheduler loops they tick.
var loopJobs = map[string]string{
	config.JobPMScheduler:         scheduler.NamePM,
	config.JobCycleCountScheduler: scheduler.NameCycleCount,
}

// New builds the cron runner: one entry per scheduler loop on its configured
// spec, plus every job registered through Register. Overlapping firings of
// the same entry are dropped.
func New(a *app.App, schedules map[string]string) (*cron.Cron, error) {
	logger := cron.PrintfLogger(zap.NewStdLog(a.Log.Named("cron")))
	c := cron.New(
		cron.WithLocation(a.Config.Location()),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	for name, loopName := range loopJobs {
		spec := schedules[name]
		if spec == "" {
			continue
		}
		loop, ok := a.Schedulers.Get(loopName)
		if !ok {
			return nil, fmt.Errorf("cron: no scheduler loop %q", loopName)
		}
		if _, err := c.AddFunc(spec, tick(loop, a.Log)); err != nil {
			return nil, fmt.Errorf("cron: job %s: %w", name, err)
		}
	}
	for name, j := range Jobs() {
		name, run := name, j.Run
		job := func() {
			if err := run(context.Background(), a); err != nil {
				a.Log.Error("cron job failed", zap.String("job", name), zap.Error(err))
			}
		}
		if _, err := c.AddFunc(j.Schedule, job); err != nil {
			return nil, fmt.Errorf("cron: job %s: %w", name, err)
		}
	}
	return c, nil
}

// StartCron starts the runner with the schedules from AppConfig.
func StartCron(a *app.App) (*cron.Cron, error) {
	c, err := New(a, config.CronSchedules())
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}

// RunJob runs one job by name once: a scheduler loop or a registered job.
func RunJob(ctx context.Context, a *app.App, name string, args ...string) error {
	if loopName, ok := loopJobs[name]; ok {
		name = loopName
	}
	if loop, ok := a.Schedulers.Get(name); ok {
		_, err := loop.Tick(ctx)
		return err
	}
	if j, ok := Jobs()[name]; ok {
		return j.Run(ctx, a, args...)
	}
	return fmt.Errorf("unknown job: %s", name)
}

func tick(loop *scheduler.Loop, log *zap.Logger) func() {
	return func() {
		_, err := loop.Tick(context.Background())
		if err != nil && !errors.Is(err, scheduler.ErrSkipped) {
			log.Error("scheduler tick failed", zap.String("scheduler", loop.Name()), zap.Error(err))
		}
	}
}
