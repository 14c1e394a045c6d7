// Package pm schedules preventive maintenance: it evaluates PM triggers,
// generates work orders from due definitions and advances their schedules.
package pm

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"cmms.GO/core/apperr"
	"cmms.GO/core/signal"
	woEntity "cmms.GO/model/entity/workorder"
	"cmms.GO/service/workorder"
)

// Meter baseline policies: when last_meter_reading is reset.
const (
	BaselineOnGeneration = "generation"
	BaselineOnCompletion = "completion"
)

type Options struct {
	// InitialStatus of generated work orders: DRAFT, WAITING_APPROVAL or APPROVED.
	InitialStatus woEntity.Status
	BaselineReset string
	Location      *time.Location
}

type Service struct {
	db   *gorm.DB
	wo   *workorder.Service
	sink signal.Sink
	log  *zap.Logger
	opts Options
	now  func() time.Time
}

// NewService wires the scheduler to the work order service and registers
// the completion hook that re-anchors floating schedules.
func NewService(db *gorm.DB, wo *workorder.Service, sink signal.Sink, log *zap.Logger, opts Options) *Service {
	if sink == nil {
		sink = signal.Nop{}
	}
	if opts.InitialStatus == "" {
		opts.InitialStatus = woEntity.StatusApproved
	}
	if opts.BaselineReset == "" {
		opts.BaselineReset = BaselineOnGeneration
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	s := &Service{db: db, wo: wo, sink: sink, log: log.Named("pm"), opts: opts, now: time.Now}
	wo.OnClose(s.onWorkOrderClosed)
	return s
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
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
