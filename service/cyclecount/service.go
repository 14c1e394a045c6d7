// Package cyclecount turns count plans into count sessions and reconciles
// recorded counts into the stock ledger.
package cyclecount

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"cmms.GO/core/apperr"
	"cmms.GO/core/signal"
	"cmms.GO/service/inventory"
	"cmms.GO/service/schedule"
)

type Options struct {
	Location *time.Location
}

type Service struct {
	db   *gorm.DB
	inv  *inventory.Service
	sink signal.Sink
	log  *zap.Logger
	opts Options
	now  func() time.Time
}

// NewService needs the inventory service: completed sessions post their
// corrections through the same ledger path as manual adjustments.
func NewService(db *gorm.DB, inv *inventory.Service, sink signal.Sink, log *zap.Logger, opts Options) *Service {
	if sink == nil {
		sink = signal.Nop{}
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Service{db: db, inv: inv, sink: sink, log: log.Named("cyclecount"), opts: opts, now: time.Now}
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

func (s *Service) today() time.Time {
	return schedule.Day(s.now(), s.opts.Location)
}
