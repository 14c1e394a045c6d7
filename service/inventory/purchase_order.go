package inventory

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"cmms.GO/core/apperr"
	"cmms.GO/core/signal"
	invEntity "cmms.GO/model/entity/inventory"
	invRepo "cmms.GO/model/repository/inventory"
	"cmms.GO/model/repository/sequence"
)

type POLineInput struct {
	PartID      uint            `json:"part_id"`
	StoreroomID *uint           `json:"storeroom_id,omitempty"`
	Quantity    float64         `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
}

type POInput struct {
	Vendor      string        `json:"vendor"`
	StoreroomID uint          `json:"storeroom_id"`
	Lines       []POLineInput `json:"lines"`
}

var poTransitions = map[invEntity.POStatus][]invEntity.POStatus{
	invEntity.PODraft:             {invEntity.POPendingApproval, invEntity.POApproved, invEntity.POCancelled},
	invEntity.POPendingApproval:   {invEntity.POApproved, invEntity.PODraft, invEntity.POCancelled},
	invEntity.POApproved:          {invEntity.POOrdered, invEntity.POCancelled},
	invEntity.POOrdered:           {invEntity.POCancelled},
	invEntity.POPartiallyReceived: {invEntity.POCancelled},
}

// CanTransitionPO reports whether a manual status change is allowed. The
// received statuses are reached only by booking receipts.
func CanTransitionPO(from, to invEntity.POStatus) bool {
	for _, s := range poTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (s *Service) CreatePO(ctx context.Context, orgID uint, in POInput) (*invEntity.PurchaseOrder, error) {
	if len(in.Lines) == 0 {
		return nil, apperr.Validation("lines", "a purchase order needs at least one line")
	}
	for i, l := range in.Lines {
		if err := positive(fmt.Sprintf("lines[%d].quantity", i), l.Quantity); err != nil {
			return nil, err
		}
		if l.UnitCost.IsNegative() {
			return nil, apperr.Validation(fmt.Sprintf("lines[%d].unit_cost", i), "must not be negative")
		}
	}
	var out *invEntity.PurchaseOrder
	err := s.run(ctx, func(tx *gorm.DB, _ *signal.Buffer) error {
		inv := invRepo.NewInventoryRepository(tx)
		if _, err := inv.FindStoreroom(orgID, in.StoreroomID); err != nil {
			return err
		}
		number, err := sequence.NextNumber(tx, orgID, sequence.PurchaseOrder)
		if err != nil {
			return err
		}
		po := &invEntity.PurchaseOrder{
			OrganizationID: orgID,
			PONumber:       number,
			Vendor:         in.Vendor,
			StoreroomID:    in.StoreroomID,
			Status:         invEntity.PODraft,
			Version:        1,
		}
		total := decimal.Zero
		for _, l := range in.Lines {
			total = total.Add(lineCost(l.Quantity, l.UnitCost))
		}
		po.TotalAmount = total
		if err := tx.Create(po).Error; err != nil {
			return err
		}
		for i, l := range in.Lines {
			if _, err := inv.FindPart(orgID, l.PartID); err != nil {
				return err
			}
			line := invEntity.POLine{
				OrganizationID:  orgID,
				PurchaseOrderID: po.ID,
				LineNumber:      i + 1,
				PartID:          l.PartID,
				StoreroomID:     l.StoreroomID,
				QuantityOrdered: l.Quantity,
				UnitCost:        l.UnitCost,
			}
			if err := tx.Create(&line).Error; err != nil {
				return err
			}
			po.Lines = append(po.Lines, line)
		}
		out = po
		return nil
	})
	return out, err
}

// TransitionPO applies a manual status change.
func (s *Service) TransitionPO(ctx context.Context, orgID, poID uint, to invEntity.POStatus) (*invEntity.PurchaseOrder, error) {
	var out *invEntity.PurchaseOrder
	err := s.run(ctx, func(tx *gorm.DB, _ *signal.Buffer) error {
		inv := invRepo.NewInventoryRepository(tx)
		po, err := inv.LockPurchaseOrder(orgID, poID)
		if err != nil {
			return err
		}
		if !CanTransitionPO(po.Status, to) {
			return &apperr.InvalidTransitionError{
				Entity: "purchase order " + po.PONumber,
				From:   string(po.Status),
				To:     string(to),
			}
		}
		res := tx.Model(&invEntity.PurchaseOrder{}).
			Where("id = ? AND version = ?", po.ID, po.Version).
			Updates(map[string]interface{}{"status": to, "version": po.Version + 1})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &apperr.ConcurrencyConflictError{Entity: "purchase order", ID: po.ID}
		}
		po.Status = to
		po.Version++
		po.Lines, err = inv.POLines(po.ID, false)
		out = po
		return err
	})
	return out, err
}

func (s *Service) GetPO(ctx context.Context, orgID, poID uint) (*invEntity.PurchaseOrder, error) {
	return invRepo.NewInventoryRepository(s.db.WithContext(ctx)).FindPurchaseOrder(orgID, poID)
}
