// Package inventory is the stock ledger: balances per part and storeroom,
// material issue and return, reservations, adjustments and PO receipts.
package inventory

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"cmms.GO/core/apperr"
	"cmms.GO/core/cache"
	"cmms.GO/core/signal"
	invEntity "cmms.GO/model/entity/inventory"
	invRepo "cmms.GO/model/repository/inventory"
)

const epsilon = 1e-9

type Options struct {
	// AllowNegativeStock lets issues drive current_balance below zero
	// (backorder mode).
	AllowNegativeStock bool
}

type Service struct {
	db   *gorm.DB
	sink signal.Sink
	log  *zap.Logger
	opts Options
	now  func() time.Time
}

func NewService(db *gorm.DB, sink signal.Sink, log *zap.Logger, opts Options) *Service {
	if sink == nil {
		sink = signal.Nop{}
	}
	return &Service{db: db, sink: sink, log: log.Named("inventory"), opts: opts, now: time.Now}
}

// SetClock replaces the wall clock.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// run executes fn in a transaction, retrying once on a concurrency conflict,
// and emits buffered signals only after commit.
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

func (s *Service) lowStockSignal(sl *invEntity.StockLevel, partNumber string) signal.Signal {
	sig := signal.New(signal.LowStock, sl.OrganizationID, "stock_level", sl.ID,
		fmt.Sprintf("part %s at %s, reorder point %s", partNumber, qty(sl.CurrentBalance), qty(sl.ReorderPoint))).
		With("part_id", sl.PartID).
		With("storeroom_id", sl.StoreroomID).
		With("current_balance", sl.CurrentBalance).
		With("reorder_point", sl.ReorderPoint).
		With("reorder_quantity", sl.ReorderQuantity)
	sig.DedupeKey = cache.Key(signal.LowStock, sl.OrganizationID, sl.PartID, sl.StoreroomID)
	return sig
}

func qty(q float64) string {
	return decimal.NewFromFloat(q).String()
}

func lineCost(q float64, unit decimal.Decimal) decimal.Decimal {
	return unit.Mul(decimal.NewFromFloat(q)).Round(2)
}

func nearlyGE(a, b float64) bool {
	return a+epsilon >= b
}

func positive(field string, v float64) error {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return apperr.Validation(field, "must be a positive number, got %v", v)
	}
	return nil
}

// LowStock lists stock rows at or below their reorder point.
func (s *Service) LowStock(ctx context.Context, orgID uint, storeroomID *uint) ([]invEntity.StockLevel, error) {
	return invRepo.NewInventoryRepository(s.db.WithContext(ctx)).LowStock(orgID, storeroomID)
}

func (s *Service) StockLevel(ctx context.Context, orgID, partID, storeroomID uint) (*invEntity.StockLevel, error) {
	return invRepo.NewInventoryRepository(s.db.WithContext(ctx)).GetStockLevel(orgID, partID, storeroomID)
}

// Balances returns current balances for parts in one storeroom.
func (s *Service) Balances(ctx context.Context, orgID, storeroomID uint, partIDs []uint) (map[uint]float64, error) {
	return invRepo.NewInventoryRepository(s.db.WithContext(ctx)).BatchGetBalances(orgID, storeroomID, partIDs)
}

func (s *Service) Transactions(ctx context.Context, orgID, partID uint, limit int) ([]invEntity.PartTransaction, error) {
	return invRepo.NewInventoryRepository(s.db.WithContext(ctx)).Transactions(orgID, partID, limit)
}
