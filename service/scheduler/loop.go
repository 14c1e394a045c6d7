// Package scheduler runs the periodic PM and cycle-count scans. A Loop owns
// the pause flag and the in-flight state of one scan under a single mutex.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"cmms.GO/core/apperr"
	"cmms.GO/core/lease"
)

const (
	NamePM         = "pm"
	NameCycleCount = "cycle_count"
)

// Result summarizes one scan.
type Result struct {
	Scanned     int       `json:"scanned"`
	Generated   int       `json:"generated"`
	Skipped     int       `json:"skipped"`
	Failed      int       `json:"failed"`
	Interrupted bool      `json:"interrupted"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// Fail records a per-item failure. The scan goes on.
func (r *Result) Fail(log *zap.Logger, scheduler string, itemID uint, err error) {
	r.Failed++
	ie := &apperr.SchedulerItemError{Scheduler: scheduler, ItemID: itemID, Err: err}
	log.Error("scheduler item failed", zap.String("scheduler", scheduler), zap.Uint("item_id", itemID), zap.Error(ie))
}

// RunFunc performs one scan. paused is polled between items; when it turns
// true the scan stops after the current item.
type RunFunc func(ctx context.Context, paused func() bool) (Result, error)

// ErrSkipped is returned by Tick when the loop is paused or already
// scanning, or when another process holds the lease.
var ErrSkipped = errors.New("scheduler: run skipped")

type Status struct {
	Name       string     `json:"name"`
	Paused     bool       `json:"paused"`
	Running    bool       `json:"running"`
	LastRunAt  *time.Time `json:"last_run_at,omitempty"`
	LastResult *Result    `json:"last_result,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
}

type Loop struct {
	name   string
	run    RunFunc
	locker lease.Locker
	ttl    time.Duration
	log    *zap.Logger
	group  singleflight.Group

	mu      sync.Mutex
	paused  bool
	running bool
	last    *Result
	lastErr error
}

func NewLoop(name string, run RunFunc, locker lease.Locker, log *zap.Logger) *Loop {
	if locker == nil {
		locker = lease.Local{}
	}
	return &Loop{name: name, run: run, locker: locker, ttl: 10 * time.Minute, log: log.Named("scheduler." + name)}
}

func (l *Loop) Name() string {
	return l.name
}

// Pause stops new scans and makes a running scan stop after its current
// item. Due dates are left as they are.
func (l *Loop) Pause() {
	l.mu.Lock()
	l.paused = true
	l.mu.Unlock()
	l.log.Info("paused")
}

// Resume re-enables scans; the next tick evaluates against the current time.
func (l *Loop) Resume() {
	l.mu.Lock()
	l.paused = false
	l.mu.Unlock()
	l.log.Info("resumed")
}

func (l *Loop) Paused() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.paused
}

func (l *Loop) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	st := Status{Name: l.name, Paused: l.paused, Running: l.running}
	if l.last != nil {
		r := *l.last
		st.LastResult = &r
		at := r.FinishedAt
		st.LastRunAt = &at
	}
	if l.lastErr != nil {
		st.LastError = l.lastErr.Error()
	}
	return st
}

// begin flips running under the same lock that guards paused.
func (l *Loop) begin() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.paused || l.running {
		return false
	}
	l.running = true
	return true
}

func (l *Loop) end(res *Result, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.running = false
	if res != nil {
		l.last = res
	}
	l.lastErr = err
}

// Tick runs one scan. A tick arriving while a scan is running is skipped;
// callers racing to start one share it.
func (l *Loop) Tick(ctx context.Context) (Result, error) {
	if l.Status().Running {
		return Result{}, ErrSkipped
	}
	v, err, _ := l.group.Do(l.name, func() (interface{}, error) {
		if !l.begin() {
			return Result{}, ErrSkipped
		}
		release, ok, err := l.locker.Acquire(ctx, l.name, l.ttl)
		if err != nil || !ok {
			l.end(nil, nil)
			if err != nil {
				l.log.Warn("lease acquire failed", zap.Error(err))
			}
			return Result{}, ErrSkipped
		}
		defer release()

		started := time.Now().UTC()
		res, err := l.run(ctx, l.Paused)
		res.StartedAt = started
		res.FinishedAt = time.Now().UTC()
		l.end(&res, err)
		if err != nil {
			l.log.Error("scan failed", zap.Error(err))
			return res, err
		}
		l.log.Info("scan finished",
			zap.Int("scanned", res.Scanned),
			zap.Int("generated", res.Generated),
			zap.Int("skipped", res.Skipped),
			zap.Int("failed", res.Failed),
			zap.Duration("took", res.FinishedAt.Sub(res.StartedAt)))
		return res, nil
	})
	res, _ := v.(Result)
	return res, err
}

// Registry holds the loops by name.
type Registry struct {
	loops map[string]*Loop
	order []string
}

func NewRegistry(loops ...*Loop) *Registry {
	r := &Registry{loops: make(map[string]*Loop)}
	for _, l := range loops {
		r.loops[l.name] = l
		r.order = append(r.order, l.name)
	}
	return r
}

func (r *Registry) Get(name string) (*Loop, bool) {
	l, ok := r.loops[name]
	return l, ok
}

func (r *Registry) All() []*Loop {
	out := make([]*Loop, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, r.loops[n])
	}
	return out
}
