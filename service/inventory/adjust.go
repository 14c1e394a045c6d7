package inventory

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"cmms.GO/core/actor"
	"cmms.GO/core/apperr"
	"cmms.GO/core/signal"
	invEntity "cmms.GO/model/entity/inventory"
	invRepo "cmms.GO/model/repository/inventory"
)

// Adjustment corrects a balance outside of issue and receipt. Either Delta is
// applied, or, when Target is set, the balance is moved to exactly Target.
type Adjustment struct {
	OrganizationID uint                      `json:"-"`
	PartID         uint                      `json:"part_id"`
	StoreroomID    uint                      `json:"storeroom_id"`
	Delta          float64                   `json:"delta"`
	Target         *float64                  `json:"target,omitempty"`
	Type           invEntity.TransactionType `json:"-"`
	CycleCountID   *uint                     `json:"-"`
	Notes          string                    `json:"notes,omitempty"`
	CountedAt      *time.Time                `json:"-"`
}

// Adjust applies a manual ADJUSTMENT.
func (s *Service) Adjust(ctx context.Context, a Adjustment) (*invEntity.PartTransaction, error) {
	a.Type = invEntity.TxAdjustment
	a.CycleCountID = nil
	a.CountedAt = nil
	var out *invEntity.PartTransaction
	err := s.run(ctx, func(tx *gorm.DB, buf *signal.Buffer) error {
		pt, err := s.AdjustTx(ctx, tx, a, buf)
		out = pt
		return err
	})
	if err == nil && out != nil {
		s.log.Info("stock adjusted",
			zap.Uint("part_id", a.PartID),
			zap.Uint("storeroom_id", a.StoreroomID),
			zap.Float64("delta", out.Quantity),
			zap.Float64("balance", out.BalanceAfter))
	}
	return out, err
}

// AdjustTx applies a inside an existing transaction. A zero net change writes
// no journal row and returns nil.
func (s *Service) AdjustTx(ctx context.Context, tx *gorm.DB, a Adjustment, buf *signal.Buffer) (*invEntity.PartTransaction, error) {
	if a.Type == "" {
		a.Type = invEntity.TxAdjustment
	}
	if a.Target == nil && a.Delta == 0 {
		return nil, apperr.Validation("delta", "must not be zero")
	}
	if a.Target != nil && *a.Target < 0 {
		return nil, apperr.Validation("target", "must not be negative")
	}
	inv := invRepo.NewInventoryRepository(tx)
	part, err := inv.FindPart(a.OrganizationID, a.PartID)
	if err != nil {
		return nil, err
	}
	sl, err := inv.LockOrCreateStockLevel(a.OrganizationID, a.PartID, a.StoreroomID)
	if err != nil {
		return nil, err
	}

	delta := a.Delta
	if a.Target != nil {
		// computed under the row lock so concurrent movements are not lost
		delta = *a.Target - sl.CurrentBalance
	}
	if sl.CurrentBalance+delta < -epsilon && !s.opts.AllowNegativeStock {
		return nil, &apperr.InsufficientStockError{
			PartID: a.PartID, StoreroomID: a.StoreroomID,
			Available: sl.CurrentBalance, Requested: -delta,
		}
	}

	now := s.now().UTC()
	extra := map[string]interface{}{}
	if a.Type == invEntity.TxCycleCount {
		counted := now
		if a.CountedAt != nil {
			counted = a.CountedAt.UTC()
		}
		extra["last_count_date"] = counted
	}
	if delta > -epsilon && delta < epsilon {
		if len(extra) == 0 {
			return nil, nil
		}
		return nil, inv.SaveBalance(sl, extra)
	}
	sl.CurrentBalance += delta
	if err := inv.SaveBalance(sl, extra); err != nil {
		return nil, err
	}

	var pt *invEntity.PartTransaction
	err = journal(tx, sl, a.Type, delta, now, func(t *invEntity.PartTransaction) {
		t.CycleCountID = a.CycleCountID
		t.UserID = actor.UserID(ctx)
		t.Notes = a.Notes
		pt = t
	})
	if err != nil {
		return nil, err
	}
	if delta < 0 && sl.IsLow() {
		buf.Add(s.lowStockSignal(sl, part.PartNumber))
	}
	return pt, nil
}
