// Package workorder owns the work order lifecycle: creation, the status
// state machine, labor, tasks and comments. Material charges live in the
// inventory ledger.
package workorder

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"cmms.GO/core/apperr"
	"cmms.GO/core/signal"
	woEntity "cmms.GO/model/entity/workorder"
)

type Options struct {
	RequireApproval bool
}

// CloseEvent describes a work order leaving the open states for good, or
// being completed.
type CloseEvent struct {
	WorkOrder *woEntity.WorkOrder
	Status    woEntity.Status
	At        time.Time
	Deleted   bool
}

// CloseHook runs inside the transaction that completes, cancels or deletes
// a work order. An error rolls the whole transition back.
type CloseHook func(tx *gorm.DB, ev CloseEvent) error

type Service struct {
	db    *gorm.DB
	sink  signal.Sink
	log   *zap.Logger
	opts  Options
	now   func() time.Time
	hooks []CloseHook
}

func NewService(db *gorm.DB, sink signal.Sink, log *zap.Logger, opts Options) *Service {
	if sink == nil {
		sink = signal.Nop{}
	}
	return &Service{db: db, sink: sink, log: log.Named("workorder"), opts: opts, now: time.Now}
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// OnClose registers a hook. Not safe to call once the service is in use.
func (s *Service) OnClose(h CloseHook) {
	s.hooks = append(s.hooks, h)
}

func (s *Service) RequireApproval() bool {
	return s.opts.RequireApproval
}

func (s *Service) run(ctx context.Context, fn func(tx *gorm.DB, buf *signal.Buffer) error) error {
	var buf signal.Buffer
	err := apperr.WithRetry(func() error {
		buf.Reset()
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(tx, &buf)
		})
	})
	if err != nil {
		return err
	}
	buf.Flush(ctx, s.sink)
	return nil
}

func (s *Service) fireClose(tx *gorm.DB, ev CloseEvent) error {
	for _, h := range s.hooks {
		if err := h(tx, ev); err != nil {
			return fmt.Errorf("close hook for %s: %w", ev.WorkOrder.WONumber, err)
		}
	}
	return nil
}

func statusSignal(wo *woEntity.WorkOrder, from woEntity.Status) signal.Signal {
	return signal.New(signal.WOStatusChanged, wo.OrganizationID, "work_order", wo.ID,
		fmt.Sprintf("%s moved from %s to %s", wo.WONumber, from, wo.Status)).
		With("wo_number", wo.WONumber).
		With("from", string(from)).
		With("to", string(wo.Status))
}
