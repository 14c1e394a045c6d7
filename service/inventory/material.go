package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"cmms.GO/core/actor"
	"cmms.GO/core/apperr"
	"cmms.GO/core/signal"
	invEntity "cmms.GO/model/entity/inventory"
	woEntity "cmms.GO/model/entity/workorder"
	invRepo "cmms.GO/model/repository/inventory"
	woRepo "cmms.GO/model/repository/workorder"
)

type MaterialRequest struct {
	OrganizationID uint             `json:"-"`
	WorkOrderID    uint             `json:"work_order_id"`
	PartID         uint             `json:"part_id"`
	StoreroomID    uint             `json:"storeroom_id"`
	Quantity       float64          `json:"quantity"`
	UnitCost       *decimal.Decimal `json:"unit_cost,omitempty"`
	Notes          string           `json:"notes,omitempty"`
}

// IssueMaterial takes stock out of a storeroom against a work order. The
// material transaction, the balance change and the work order cost rollup
// commit together.
func (s *Service) IssueMaterial(ctx context.Context, req MaterialRequest) (*woEntity.MaterialTransaction, error) {
	if err := positive("quantity", req.Quantity); err != nil {
		return nil, err
	}
	var out *woEntity.MaterialTransaction
	err := s.run(ctx, func(tx *gorm.DB, buf *signal.Buffer) error {
		wos := woRepo.NewWorkOrderRepository(tx)
		inv := invRepo.NewInventoryRepository(tx)

		wo, err := lockChargeable(ctx, wos, req.OrganizationID, req.WorkOrderID, "issue material")
		if err != nil {
			return err
		}
		part, err := inv.FindPart(req.OrganizationID, req.PartID)
		if err != nil {
			return err
		}

		sl, err := inv.LockStockLevel(req.OrganizationID, req.PartID, req.StoreroomID)
		var nf *apperr.NotFoundError
		if errors.As(err, &nf) {
			if !s.opts.AllowNegativeStock {
				return &apperr.InsufficientStockError{PartID: req.PartID, StoreroomID: req.StoreroomID, Requested: req.Quantity}
			}
			sl, err = inv.LockOrCreateStockLevel(req.OrganizationID, req.PartID, req.StoreroomID)
		}
		if err != nil {
			return err
		}

		reservations, err := inv.OpenReservations(wo.ID, req.PartID, req.StoreroomID)
		if err != nil {
			return err
		}
		heldForThis := 0.0
		for _, r := range reservations {
			heldForThis += r.Quantity
		}
		// quantity reserved for this work order is available to it
		available := sl.CurrentBalance - (sl.ReservedQuantity - heldForThis)
		if req.Quantity > available+epsilon && !s.opts.AllowNegativeStock {
			if available < 0 {
				available = 0
			}
			return &apperr.InsufficientStockError{
				PartID: req.PartID, StoreroomID: req.StoreroomID,
				Available: available, Requested: req.Quantity,
			}
		}

		remaining := req.Quantity
		for i := range reservations {
			if remaining <= epsilon {
				break
			}
			r := &reservations[i]
			take := r.Quantity
			if take > remaining {
				take = remaining
			}
			r.Quantity -= take
			remaining -= take
			sl.ReservedQuantity -= take
			fields := map[string]interface{}{"quantity": r.Quantity}
			if r.Quantity <= epsilon {
				fields["status"] = invEntity.ReservationConsumed
			}
			if err := tx.Model(&invEntity.StockReservation{}).Where("id = ?", r.ID).Updates(fields).Error; err != nil {
				return err
			}
		}

		now := s.now().UTC()
		sl.CurrentBalance -= req.Quantity
		if err := inv.SaveBalance(sl, map[string]interface{}{"last_issue_date": now}); err != nil {
			return err
		}

		unit := part.UnitCost
		if req.UnitCost != nil {
			unit = *req.UnitCost
		}
		mt := &woEntity.MaterialTransaction{
			OrganizationID:  req.OrganizationID,
			WorkOrderID:     wo.ID,
			PartID:          req.PartID,
			StoreroomID:     req.StoreroomID,
			TransactionType: woEntity.MaterialIssue,
			Quantity:        req.Quantity,
			UnitCost:        unit,
			TotalCost:       lineCost(req.Quantity, unit),
			UserID:          actor.UserID(ctx),
			Notes:           req.Notes,
			CreatedAt:       now,
		}
		if err := tx.Create(mt).Error; err != nil {
			return err
		}
		if err := journal(tx, sl, invEntity.TxIssue, -req.Quantity, now, func(pt *invEntity.PartTransaction) {
			pt.WorkOrderID = &wo.ID
			pt.UserID = mt.UserID
			pt.Notes = fmt.Sprintf("issued to %s", wo.WONumber)
		}); err != nil {
			return err
		}
		if err := wos.AddCosts(wo, 0, decimal.Zero, mt.TotalCost); err != nil {
			return err
		}

		if sl.IsLow() {
			buf.Add(s.lowStockSignal(sl, part.PartNumber))
		}
		out = mt
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("material issued",
		zap.Uint("work_order_id", out.WorkOrderID),
		zap.Uint("part_id", out.PartID),
		zap.Float64("quantity", out.Quantity))
	return out, nil
}

// ReturnMaterial puts previously issued stock back. It cannot return more
// than was issued to the work order.
func (s *Service) ReturnMaterial(ctx context.Context, req MaterialRequest) (*woEntity.MaterialTransaction, error) {
	if err := positive("quantity", req.Quantity); err != nil {
		return nil, err
	}
	var out *woEntity.MaterialTransaction
	err := s.run(ctx, func(tx *gorm.DB, _ *signal.Buffer) error {
		wos := woRepo.NewWorkOrderRepository(tx)
		inv := invRepo.NewInventoryRepository(tx)

		wo, err := lockChargeable(ctx, wos, req.OrganizationID, req.WorkOrderID, "return material")
		if err != nil {
			return err
		}
		issued, err := inv.NetIssued(wo.ID, req.PartID, req.StoreroomID)
		if err != nil {
			return err
		}
		if req.Quantity > issued+epsilon {
			return apperr.Validation("quantity", "cannot return %s, only %s issued to this work order", qty(req.Quantity), qty(issued))
		}

		unit, err := s.returnCost(tx, inv, wo.ID, req)
		if err != nil {
			return err
		}

		sl, err := inv.LockOrCreateStockLevel(req.OrganizationID, req.PartID, req.StoreroomID)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		sl.CurrentBalance += req.Quantity
		if err := inv.SaveBalance(sl, nil); err != nil {
			return err
		}

		mt := &woEntity.MaterialTransaction{
			OrganizationID:  req.OrganizationID,
			WorkOrderID:     wo.ID,
			PartID:          req.PartID,
			StoreroomID:     req.StoreroomID,
			TransactionType: woEntity.MaterialReturn,
			Quantity:        req.Quantity,
			UnitCost:        unit,
			TotalCost:       lineCost(req.Quantity, unit),
			UserID:          actor.UserID(ctx),
			Notes:           req.Notes,
			CreatedAt:       now,
		}
		if err := tx.Create(mt).Error; err != nil {
			return err
		}
		if err := journal(tx, sl, invEntity.TxReturn, req.Quantity, now, func(pt *invEntity.PartTransaction) {
			pt.WorkOrderID = &wo.ID
			pt.UserID = mt.UserID
			pt.Notes = fmt.Sprintf("returned from %s", wo.WONumber)
		}); err != nil {
			return err
		}
		if err := wos.AddCosts(wo, 0, decimal.Zero, mt.TotalCost.Neg()); err != nil {
			return err
		}
		out = mt
		return nil
	})
	return out, err
}

// returnCost credits a return at the requested cost, else the cost of the
// last issue, else the part's standard cost.
func (s *Service) returnCost(tx *gorm.DB, inv *invRepo.InventoryRepository, woID uint, req MaterialRequest) (decimal.Decimal, error) {
	if req.UnitCost != nil {
		return *req.UnitCost, nil
	}
	var last woEntity.MaterialTransaction
	err := tx.Where("work_order_id = ? AND part_id = ? AND storeroom_id = ? AND transaction_type = ?",
		woID, req.PartID, req.StoreroomID, woEntity.MaterialIssue).
		Order("id DESC").First(&last).Error
	if err == nil {
		return last.UnitCost, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, err
	}
	part, err := inv.FindPart(req.OrganizationID, req.PartID)
	if err != nil {
		return decimal.Zero, err
	}
	return part.UnitCost, nil
}

// lockChargeable locks the work order and checks it accepts charges.
func lockChargeable(ctx context.Context, wos *woRepo.WorkOrderRepository, orgID, woID uint, action string) (*woEntity.WorkOrder, error) {
	wo, err := wos.Lock(orgID, woID)
	if err != nil {
		return nil, err
	}
	if wo.Status.CostsFrozen() {
		return nil, &apperr.InvalidTransitionError{
			Entity: "work order " + wo.WONumber,
			From:   string(wo.Status),
			To:     action,
			Reason: "costs are frozen once the work order is completed",
		}
	}
	if !wo.Status.IsChargeable() && !actor.IsAdmin(ctx) {
		return nil, &apperr.InvalidTransitionError{
			Entity: "work order " + wo.WONumber,
			From:   string(wo.Status),
			To:     action,
			Reason: "charges are accepted only while IN_PROGRESS or ON_HOLD",
		}
	}
	return wo, nil
}

// journal appends a PartTransaction describing a balance change already
// applied to sl.
func journal(tx *gorm.DB, sl *invEntity.StockLevel, kind invEntity.TransactionType, delta float64, at time.Time, opt func(*invEntity.PartTransaction)) error {
	pt := &invEntity.PartTransaction{
		OrganizationID:  sl.OrganizationID,
		PartID:          sl.PartID,
		StoreroomID:     sl.StoreroomID,
		TransactionType: kind,
		Quantity:        delta,
		BalanceAfter:    sl.CurrentBalance,
		CreatedAt:       at,
	}
	if opt != nil {
		opt(pt)
	}
	return tx.Create(pt).Error
}
