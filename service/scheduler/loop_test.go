package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

type denyLocker struct{}

func (denyLocker) Acquire(context.Context, string, time.Duration) (func(), bool, error) {
	return func() {}, false, nil
}

func TestTick_PausedSkips(t *testing.T) {
	var calls int32
	l := NewLoop(NamePM, func(context.Context, func() bool) (Result, error) {
		atomic.AddInt32(&calls, 1)
		return Result{}, nil
	}, nil, zap.NewNop())

	l.Pause()
	if _, err := l.Tick(context.Background()); !errors.Is(err, ErrSkipped) {
		t.Fatalf("paused tick: got %v", err)
	}
	if calls != 0 {
		t.Fatalf("run called %d times while paused", calls)
	}
	l.Resume()
	if _, err := l.Tick(context.Background()); err != nil {
		t.Fatalf("resumed tick: %v", err)
	}
	if calls != 1 {
		t.Errorf("run called %d times, want 1", calls)
	}
}

func TestTick_DoesNotOverlapRunningScan(t *testing.T) {
	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})
	l := NewLoop(NamePM, func(context.Context, func() bool) (Result, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
		}
		<-release
		return Result{Generated: 1}, nil
	}, nil, zap.NewNop())

	type outcome struct {
		res Result
		err error
	}
	first := make(chan outcome, 1)
	go func() {
		res, err := l.Tick(context.Background())
		first <- outcome{res, err}
	}()
	<-started
	if !l.Status().Running {
		t.Error("status does not report the running scan")
	}

	var wg sync.WaitGroup
	extra := make([]outcome, 4)
	for i := range extra {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := l.Tick(context.Background())
			extra[i] = outcome{res, err}
		}(i)
	}
	wg.Wait()
	for i, o := range extra {
		if !errors.Is(o.err, ErrSkipped) {
			t.Errorf("tick %d during scan: got %+v, %v; want ErrSkipped", i, o.res, o.err)
		}
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("run called %d times during the scan, want 1", n)
	}

	close(release)
	if o := <-first; o.err != nil || o.res.Generated != 1 {
		t.Errorf("first tick = %+v, %v", o.res, o.err)
	}
	if l.Status().Running {
		t.Error("still running after the scan returned")
	}
}

func TestTick_PauseStopsAfterCurrentItem(t *testing.T) {
	var l *Loop
	l = NewLoop(NameCycleCount, func(_ context.Context, paused func() bool) (Result, error) {
		var res Result
		for i := 0; i < 5; i++ {
			if paused() {
				res.Interrupted = true
				break
			}
			res.Scanned++
			if i == 1 {
				l.Pause()
			}
		}
		return res, nil
	}, nil, zap.NewNop())

	res, err := l.Tick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if !res.Interrupted || res.Scanned != 2 {
		t.Errorf("result = %+v, want interrupted after 2 items", res)
	}
	if !l.Paused() {
		t.Error("loop not paused")
	}
}

func TestTick_LeaseHeldElsewhere(t *testing.T) {
	var calls int32
	l := NewLoop(NamePM, func(context.Context, func() bool) (Result, error) {
		atomic.AddInt32(&calls, 1)
		return Result{}, nil
	}, denyLocker{}, zap.NewNop())

	if _, err := l.Tick(context.Background()); !errors.Is(err, ErrSkipped) {
		t.Fatalf("got %v, want ErrSkipped", err)
	}
	if calls != 0 || l.Status().Running {
		t.Errorf("calls=%d running=%v", calls, l.Status().Running)
	}
}

func TestStatus_RecordsLastRun(t *testing.T) {
	fail := errors.New("database unavailable")
	var n int32
	l := NewLoop(NamePM, func(context.Context, func() bool) (Result, error) {
		if atomic.AddInt32(&n, 1) == 2 {
			return Result{}, fail
		}
		return Result{Scanned: 3, Generated: 2, Skipped: 1}, nil
	}, nil, zap.NewNop())

	if _, err := l.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	st := l.Status()
	if st.LastResult == nil || st.LastResult.Generated != 2 || st.LastRunAt == nil || st.LastError != "" {
		t.Fatalf("status after success: %+v", st)
	}

	if _, err := l.Tick(context.Background()); !errors.Is(err, fail) {
		t.Fatalf("second tick: got %v", err)
	}
	if st := l.Status(); st.LastError != fail.Error() {
		t.Errorf("last error = %q", st.LastError)
	}
}

func TestRegistry_KeepsOrder(t *testing.T) {
	noop := func(context.Context, func() bool) (Result, error) { return Result{}, nil }
	pm := NewLoop(NamePM, noop, nil, zap.NewNop())
	cc := NewLoop(NameCycleCount, noop, nil, zap.NewNop())
	r := NewRegistry(pm, cc)

	all := r.All()
	if len(all) != 2 || all[0].Name() != NamePM || all[1].Name() != NameCycleCount {
		t.Fatalf("order = %v", all)
	}
	if got, ok := r.Get(NameCycleCount); !ok || got != cc {
		t.Error("lookup by name failed")
	}
	if _, ok := r.Get("nope"); ok {
		t.Error("unknown loop found")
	}
}
