package inventory

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"cmms.GO/core/apperr"
	"cmms.GO/core/signal"
	invEntity "cmms.GO/model/entity/inventory"
	invRepo "cmms.GO/model/repository/inventory"
	woRepo "cmms.GO/model/repository/workorder"
)

type ReserveRequest struct {
	OrganizationID uint    `json:"-"`
	WorkOrderID    uint    `json:"work_order_id"`
	PartID         uint    `json:"part_id"`
	StoreroomID    uint    `json:"storeroom_id"`
	Quantity       float64 `json:"quantity"`
}

// Reserve holds stock for an open work order. Reserved quantity is removed
// from available but not from the balance.
func (s *Service) Reserve(ctx context.Context, req ReserveRequest) (*invEntity.StockReservation, error) {
	if err := positive("quantity", req.Quantity); err != nil {
		return nil, err
	}
	var out *invEntity.StockReservation
	err := s.run(ctx, func(tx *gorm.DB, _ *signal.Buffer) error {
		wo, err := woRepo.NewWorkOrderRepository(tx).Find(req.OrganizationID, req.WorkOrderID)
		if err != nil {
			return err
		}
		if !wo.Status.IsOpen() {
			return &apperr.InvalidTransitionError{
				Entity: "work order " + wo.WONumber,
				From:   string(wo.Status),
				To:     "reserve stock",
				Reason: "work order is no longer open",
			}
		}
		inv := invRepo.NewInventoryRepository(tx)
		sl, err := inv.LockStockLevel(req.OrganizationID, req.PartID, req.StoreroomID)
		if err != nil {
			return err
		}
		available := sl.CurrentBalance - sl.ReservedQuantity
		if req.Quantity > available+epsilon && !s.opts.AllowNegativeStock {
			if available < 0 {
				available = 0
			}
			return &apperr.InsufficientStockError{
				PartID: req.PartID, StoreroomID: req.StoreroomID,
				Available: available, Requested: req.Quantity,
			}
		}
		sl.ReservedQuantity += req.Quantity
		if err := inv.SaveBalance(sl, nil); err != nil {
			return err
		}
		r := &invEntity.StockReservation{
			OrganizationID: req.OrganizationID,
			WorkOrderID:    wo.ID,
			PartID:         req.PartID,
			StoreroomID:    req.StoreroomID,
			Quantity:       req.Quantity,
			Status:         invEntity.ReservationOpen,
		}
		if err := tx.Create(r).Error; err != nil {
			return err
		}
		out = r
		return nil
	})
	return out, err
}

// ReleaseReservation returns the held quantity of one reservation.
func (s *Service) ReleaseReservation(ctx context.Context, orgID, reservationID uint) error {
	return s.run(ctx, func(tx *gorm.DB, _ *signal.Buffer) error {
		var r invEntity.StockReservation
		err := tx.Where("organization_id = ? AND id = ?", orgID, reservationID).First(&r).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("reservation", reservationID)
		}
		if err != nil {
			return err
		}
		if r.Status != invEntity.ReservationOpen {
			return &apperr.InvalidTransitionError{
				Entity: "reservation", From: string(r.Status), To: string(invEntity.ReservationReleased),
			}
		}
		return release(tx, []invEntity.StockReservation{r})
	})
}

// ReleaseForWorkOrderTx releases every open reservation of a work order
// within tx. Called when the work order completes or is cancelled.
func ReleaseForWorkOrderTx(tx *gorm.DB, woID uint) error {
	open, err := invRepo.NewInventoryRepository(tx).OpenReservationsForWorkOrder(woID)
	if err != nil {
		return err
	}
	return release(tx, open)
}

func release(tx *gorm.DB, reservations []invEntity.StockReservation) error {
	inv := invRepo.NewInventoryRepository(tx)
	for _, r := range reservations {
		sl, err := inv.LockStockLevel(r.OrganizationID, r.PartID, r.StoreroomID)
		if err != nil {
			return err
		}
		sl.ReservedQuantity -= r.Quantity
		if sl.ReservedQuantity < epsilon {
			sl.ReservedQuantity = 0
		}
		if err := inv.SaveBalance(sl, nil); err != nil {
			return err
		}
		if err := tx.Model(&invEntity.StockReservation{}).Where("id = ?", r.ID).
			Update("status", invEntity.ReservationReleased).Error; err != nil {
			return err
		}
	}
	return nil
}
