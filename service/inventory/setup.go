package inventory

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"cmms.GO/core/apperr"
	invEntity "cmms.GO/model/entity/inventory"
	invRepo "cmms.GO/model/repository/inventory"
)

func (s *Service) CreatePart(ctx context.Context, p *invEntity.Part) error {
	p.PartNumber = strings.TrimSpace(p.PartNumber)
	if p.PartNumber == "" {
		return apperr.Validation("part_number", "is required")
	}
	if p.Name == "" {
		p.Name = p.PartNumber
	}
	if p.UnitCost.IsNegative() {
		return apperr.Validation("unit_cost", "must not be negative")
	}
	if p.LastCost.IsZero() {
		p.LastCost = p.UnitCost
	}
	return s.db.WithContext(ctx).Create(p).Error
}

// CreateStoreroom adds a storeroom. Flagging it default clears the flag on
// every other storeroom of the organization.
func (s *Service) CreateStoreroom(ctx context.Context, sr *invEntity.Storeroom) error {
	sr.Code = strings.TrimSpace(sr.Code)
	if sr.Code == "" {
		return apperr.Validation("code", "is required")
	}
	if sr.Name == "" {
		sr.Name = sr.Code
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if sr.IsDefault {
			if err := tx.Model(&invEntity.Storeroom{}).
				Where("organization_id = ?", sr.OrganizationID).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Create(sr).Error
	})
}

type StockSettings struct {
	ReorderPoint    float64 `json:"reorder_point"`
	ReorderQuantity float64 `json:"reorder_quantity"`
	MinLevel        float64 `json:"min_level"`
	MaxLevel        float64 `json:"max_level"`
	BinLocation     string  `json:"bin_location"`
}

// UpsertStockLevel creates the stock row if missing and sets its replenishment
// settings. Balances are changed only through ledger operations.
func (s *Service) UpsertStockLevel(ctx context.Context, orgID, partID, storeroomID uint, st StockSettings) (*invEntity.StockLevel, error) {
	if st.ReorderPoint < 0 || st.ReorderQuantity < 0 || st.MinLevel < 0 || st.MaxLevel < 0 {
		return nil, apperr.Validation("reorder_point", "stock settings must not be negative")
	}
	var out *invEntity.StockLevel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv := invRepo.NewInventoryRepository(tx)
		if _, err := inv.FindPart(orgID, partID); err != nil {
			return err
		}
		if _, err := inv.FindStoreroom(orgID, storeroomID); err != nil {
			return err
		}
		sl, err := inv.LockOrCreateStockLevel(orgID, partID, storeroomID)
		if err != nil {
			return err
		}
		err = tx.Model(&invEntity.StockLevel{}).Where("id = ?", sl.ID).Updates(map[string]interface{}{
			"reorder_point":    st.ReorderPoint,
			"reorder_quantity": st.ReorderQuantity,
			"min_level":        st.MinLevel,
			"max_level":        st.MaxLevel,
			"bin_location":     st.BinLocation,
		}).Error
		if err != nil {
			return err
		}
		out, err = inv.GetStockLevel(orgID, partID, storeroomID)
		return err
	})
	return out, err
}

// Seed sets an opening balance for a fresh stock row, journaled as a RECEIPT.
func (s *Service) Seed(ctx context.Context, orgID, partID, storeroomID uint, quantity float64) (*invEntity.StockLevel, error) {
	if quantity < 0 {
		return nil, apperr.Validation("quantity", "must not be negative")
	}
	var out *invEntity.StockLevel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv := invRepo.NewInventoryRepository(tx)
		sl, err := inv.LockOrCreateStockLevel(orgID, partID, storeroomID)
		if err != nil {
			return err
		}
		if quantity == 0 {
			out = sl
			return nil
		}
		now := s.now().UTC()
		sl.CurrentBalance += quantity
		if err := inv.SaveBalance(sl, map[string]interface{}{"last_receipt_date": now}); err != nil {
			return err
		}
		out = sl
		return journal(tx, sl, invEntity.TxReceipt, quantity, now, func(pt *invEntity.PartTransaction) {
			pt.Notes = "opening balance"
		})
	})
	return out, err
}
