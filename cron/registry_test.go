package cron

import (
	"context"
	"testing"

	"cmms.GO/app"
	"cmms.GO/config"
)

func TestRegistry_Register_Jobs(t *testing.T) {
	var got []string
	Register("testregistryjob", "@every 1h", func(_ context.Context, _ *app.App, args ...string) error {
		got = args
		return nil
	})
	defer Unregister("testregistryjob")

	jobs := Jobs()
	j, ok := jobs["testregistryjob"]
	if !ok {
		t.Fatal("testregistryjob not in Jobs()")
	}
	if j.Schedule != "@every 1h" {
		t.Errorf("Schedule = %q, want @every 1h", j.Schedule)
	}
	if err := j.Run(context.Background(), nil, "a"); err != nil || len(got) != 1 {
		t.Errorf("Run: err=%v args=%v", err, got)
	}
}

func TestRegistry_Register_DuplicatePanics(t *testing.T) {
	noop := func(context.Context, *app.App, ...string) error { return nil }
	Register("dupjob", "@hourly", noop)
	defer Unregister("dupjob")
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on duplicate")
		}
	}()
	Register("dupjob", "@daily", noop)
}

func TestRegistry_Register_BuiltinNamePanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for scheduler job name")
		}
	}()
	Register(config.JobPMScheduler, "@daily", func(context.Context, *app.App, ...string) error { return nil })
}
