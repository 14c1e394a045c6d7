package scheduler

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"cmms.GO/core/apperr"
	"cmms.GO/model/dbtest"
)

func newControl(t *testing.T) (*Control, *Registry) {
	t.Helper()
	noop := func(context.Context, func() bool) (Result, error) { return Result{}, nil }
	reg := NewRegistry(
		NewLoop(NamePM, noop, nil, zap.NewNop()),
		NewLoop(NameCycleCount, noop, nil, zap.NewNop()),
	)
	return NewControl(dbtest.Open(t), reg, zap.NewNop()), reg
}

func TestControl_OrganizationPause(t *testing.T) {
	c, reg := newControl(t)
	ctx := context.Background()

	if err := c.SetPaused(ctx, NamePM, 7, true); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if p, _ := c.Paused(ctx, NamePM, 7); !p {
		t.Error("organization 7 not paused")
	}
	if p, _ := c.Paused(ctx, NamePM, 8); p {
		t.Error("organization 8 paused too")
	}
	if p, _ := c.Paused(ctx, NameCycleCount, 7); p {
		t.Error("cycle counts paused with pm")
	}
	if l, _ := reg.Get(NamePM); l.Paused() {
		t.Error("organization pause stopped the loop")
	}

	st, err := c.Status(ctx, 7)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if len(st) != 2 || !st[0].OrganizationPaused || !st[0].Effective || st[1].Effective {
		t.Errorf("status = %+v", st)
	}

	if err := c.SetPaused(ctx, NamePM, 7, false); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if p, _ := c.Paused(ctx, NamePM, 7); p {
		t.Error("organization 7 still paused")
	}
}

func TestControl_GlobalPause(t *testing.T) {
	c, reg := newControl(t)
	ctx := context.Background()
	if err := c.SetPaused(ctx, NameCycleCount, 0, true); err != nil {
		t.Fatalf("pause: %v", err)
	}
	l, _ := reg.Get(NameCycleCount)
	if !l.Paused() {
		t.Fatal("loop not paused")
	}
	st, _ := c.Status(ctx, 3)
	if !st[1].Paused || !st[1].Effective || st[1].OrganizationPaused {
		t.Errorf("status = %+v", st[1])
	}
	if err := c.SetPaused(ctx, NameCycleCount, 0, false); err != nil || l.Paused() {
		t.Errorf("resume: %v paused=%v", err, l.Paused())
	}
}

func TestControl_UnknownScheduler(t *testing.T) {
	c, _ := newControl(t)
	var ve *apperr.ValidationError
	if err := c.SetPaused(context.Background(), "reports", 1, true); !errors.As(err, &ve) {
		t.Errorf("got %v", err)
	}
}
