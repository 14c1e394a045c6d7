package inventory

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"cmms.GO/core/actor"
	"cmms.GO/core/apperr"
	"cmms.GO/core/signal"
	invEntity "cmms.GO/model/entity/inventory"
	invRepo "cmms.GO/model/repository/inventory"
)

type ReceiptLine struct {
	LineID   uint    `json:"line_id"`
	Quantity float64 `json:"quantity"`
	// StoreroomID overrides the line's and the order's storeroom.
	StoreroomID *uint `json:"storeroom_id,omitempty"`
}

// ReceivePOLines books a batch of receipts against one purchase order. The
// whole batch is validated before any line is applied: one bad line rejects
// all of them.
func (s *Service) ReceivePOLines(ctx context.Context, orgID, poID uint, receipts []ReceiptLine) (*invEntity.PurchaseOrder, error) {
	if len(receipts) == 0 {
		return nil, apperr.Validation("lines", "at least one receipt line is required")
	}
	var out *invEntity.PurchaseOrder
	err := s.run(ctx, func(tx *gorm.DB, _ *signal.Buffer) error {
		inv := invRepo.NewInventoryRepository(tx)
		po, err := inv.LockPurchaseOrder(orgID, poID)
		if err != nil {
			return err
		}
		if !po.Status.CanReceive() {
			return &apperr.InvalidTransitionError{
				Entity: "purchase order " + po.PONumber,
				From:   string(po.Status),
				To:     "receive",
				Reason: "only ORDERED or PARTIALLY_RECEIVED orders accept receipts",
			}
		}
		lines, err := inv.POLines(po.ID, true)
		if err != nil {
			return err
		}
		byID := make(map[uint]*invEntity.POLine, len(lines))
		for i := range lines {
			byID[lines[i].ID] = &lines[i]
		}

		pending := make(map[uint]float64, len(receipts))
		for i, r := range receipts {
			line, ok := byID[r.LineID]
			if !ok {
				return apperr.Validation(fmt.Sprintf("lines[%d].line_id", i), "line %d is not on %s", r.LineID, po.PONumber)
			}
			if err := positive(fmt.Sprintf("lines[%d].quantity", i), r.Quantity); err != nil {
				return err
			}
			if r.StoreroomID != nil {
				if _, err := inv.FindStoreroom(orgID, *r.StoreroomID); err != nil {
					return err
				}
			}
			pending[r.LineID] += r.Quantity
			if pending[r.LineID] > line.Remaining()+epsilon {
				return &apperr.OverReceiptError{
					LineID:    r.LineID,
					Requested: pending[r.LineID],
					Remaining: line.Remaining(),
				}
			}
		}

		now := s.now().UTC()
		for _, r := range receipts {
			line := byID[r.LineID]
			line.QuantityReceived += r.Quantity
			line.IsReceived = nearlyGE(line.QuantityReceived, line.QuantityOrdered)
			err := tx.Model(&invEntity.POLine{}).Where("id = ?", line.ID).Updates(map[string]interface{}{
				"quantity_received": line.QuantityReceived,
				"is_received":       line.IsReceived,
			}).Error
			if err != nil {
				return err
			}

			storeroomID := po.StoreroomID
			switch {
			case r.StoreroomID != nil:
				storeroomID = *r.StoreroomID
			case line.StoreroomID != nil:
				storeroomID = *line.StoreroomID
			}
			sl, err := inv.LockOrCreateStockLevel(orgID, line.PartID, storeroomID)
			if err != nil {
				return err
			}
			sl.CurrentBalance += r.Quantity
			if err := inv.SaveBalance(sl, map[string]interface{}{"last_receipt_date": now}); err != nil {
				return err
			}
			lineID := line.ID
			if err := journal(tx, sl, invEntity.TxReceipt, r.Quantity, now, func(pt *invEntity.PartTransaction) {
				pt.POLineID = &lineID
				pt.UserID = actor.UserID(ctx)
				pt.Notes = fmt.Sprintf("received on %s line %d", po.PONumber, line.LineNumber)
			}); err != nil {
				return err
			}
			if !line.UnitCost.IsZero() {
				if err := tx.Model(&invEntity.Part{}).Where("id = ?", line.PartID).
					Update("last_cost", line.UnitCost).Error; err != nil {
					return err
				}
			}
		}

		po.Status = receivedStatus(po.Status, lines)
		res := tx.Model(&invEntity.PurchaseOrder{}).
			Where("id = ? AND version = ?", po.ID, po.Version).
			Updates(map[string]interface{}{"status": po.Status, "version": po.Version + 1})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &apperr.ConcurrencyConflictError{Entity: "purchase order", ID: po.ID}
		}
		po.Version++
		po.Lines = lines
		out = po
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("purchase order received",
		zap.String("po_number", out.PONumber),
		zap.String("status", string(out.Status)),
		zap.Int("lines", len(receipts)))
	return out, nil
}

// receivedStatus recomputes the order status from its lines.
func receivedStatus(current invEntity.POStatus, lines []invEntity.POLine) invEntity.POStatus {
	all, some := true, false
	for _, l := range lines {
		if !l.IsReceived {
			all = false
		}
		if l.QuantityReceived > 0 {
			some = true
		}
	}
	switch {
	case all && len(lines) > 0:
		return invEntity.POReceived
	case some:
		return invEntity.POPartiallyReceived
	}
	return current
}
