package inventory

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cmms.GO/core/apperr"
	inventoryEntity "cmms.GO/model/entity/inventory"
)

type InventoryRepository struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

func (r *InventoryRepository) FindPart(orgID, id uint) (*inventoryEntity.Part, error) {
	var p inventoryEntity.Part
	err := r.db.Where("organization_id = ? AND id = ?", orgID, id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("part", id)
	}
	return &p, err
}

func (r *InventoryRepository) FindStoreroom(orgID, id uint) (*inventoryEntity.Storeroom, error) {
	var s inventoryEntity.Storeroom
	err := r.db.Where("organization_id = ? AND id = ?", orgID, id).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("storeroom", id)
	}
	return &s, err
}

// DefaultStoreroom returns the storeroom flagged default, else the first one.
func (r *InventoryRepository) DefaultStoreroom(orgID uint) (*inventoryEntity.Storeroom, error) {
	var s inventoryEntity.Storeroom
	err := r.db.Where("organization_id = ?", orgID).Order("is_default DESC, id").First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &s, err
}

func (r *InventoryRepository) GetStockLevel(orgID, partID, storeroomID uint) (*inventoryEntity.StockLevel, error) {
	var sl inventoryEntity.StockLevel
	err := r.db.Where("organization_id = ? AND part_id = ? AND storeroom_id = ?", orgID, partID, storeroomID).First(&sl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("stock level", partID)
	}
	return &sl, err
}

// LockStockLevel loads the row FOR UPDATE.
func (r *InventoryRepository) LockStockLevel(orgID, partID, storeroomID uint) (*inventoryEntity.StockLevel, error) {
	var sl inventoryEntity.StockLevel
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("organization_id = ? AND part_id = ? AND storeroom_id = ?", orgID, partID, storeroomID).
		First(&sl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("stock level", partID)
	}
	return &sl, err
}

// LockOrCreateStockLevel is LockStockLevel that inserts an empty row first
// when none exists. Receipts and count corrections may create balances.
func (r *InventoryRepository) LockOrCreateStockLevel(orgID, partID, storeroomID uint) (*inventoryEntity.StockLevel, error) {
	seed := inventoryEntity.StockLevel{OrganizationID: orgID, PartID: partID, StoreroomID: storeroomID}
	if err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return nil, err
	}
	return r.LockStockLevel(orgID, partID, storeroomID)
}

// SaveBalance writes balance fields (plus extra) guarded by the version column.
func (r *InventoryRepository) SaveBalance(sl *inventoryEntity.StockLevel, extra map[string]interface{}) error {
	fields := map[string]interface{}{
		"current_balance":    sl.CurrentBalance,
		"reserved_quantity":  sl.ReservedQuantity,
		"available_quantity": sl.CurrentBalance - sl.ReservedQuantity,
		"version":            sl.Version + 1,
	}
	for k, v := range extra {
		fields[k] = v
	}
	res := r.db.Model(&inventoryEntity.StockLevel{}).
		Where("id = ? AND version = ?", sl.ID, sl.Version).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &apperr.ConcurrencyConflictError{Entity: "stock level", ID: sl.ID}
	}
	sl.Version++
	sl.AvailableQuantity = sl.CurrentBalance - sl.ReservedQuantity
	return nil
}

// OpenReservations returns OPEN reservations of a work order for one stock row.
func (r *InventoryRepository) OpenReservations(woID, partID, storeroomID uint) ([]inventoryEntity.StockReservation, error) {
	var out []inventoryEntity.StockReservation
	err := r.db.Where("work_order_id = ? AND part_id = ? AND storeroom_id = ? AND status = ?",
		woID, partID, storeroomID, inventoryEntity.ReservationOpen).
		Order("id").Find(&out).Error
	return out, err
}

func (r *InventoryRepository) OpenReservationsForWorkOrder(woID uint) ([]inventoryEntity.StockReservation, error) {
	var out []inventoryEntity.StockReservation
	err := r.db.Where("work_order_id = ? AND status = ?", woID, inventoryEntity.ReservationOpen).
		Order("id").Find(&out).Error
	return out, err
}

func (r *InventoryRepository) LowStock(orgID uint, storeroomID *uint) ([]inventoryEntity.StockLevel, error) {
	q := r.db.Where("organization_id = ? AND reorder_point > 0 AND current_balance <= reorder_point", orgID)
	if storeroomID != nil {
		q = q.Where("storeroom_id = ?", *storeroomID)
	}
	var out []inventoryEntity.StockLevel
	err := q.Order("part_id").Find(&out).Error
	return out, err
}

// BatchGetBalances fetches current balances for many parts in one query.
func (r *InventoryRepository) BatchGetBalances(orgID, storeroomID uint, partIDs []uint) (map[uint]float64, error) {
	if len(partIDs) == 0 {
		return nil, nil
	}
	result := make(map[uint]float64, len(partIDs))
	rows, err := r.db.Model(&inventoryEntity.StockLevel{}).
		Select("part_id, current_balance").
		Where("organization_id = ? AND storeroom_id = ? AND part_id IN ?", orgID, storeroomID, partIDs).
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var partID uint
		var qty float64
		if err := rows.Scan(&partID, &qty); err != nil {
			return nil, err
		}
		result[partID] = qty
	}
	return result, rows.Err()
}

func (r *InventoryRepository) LockPurchaseOrder(orgID, id uint) (*inventoryEntity.PurchaseOrder, error) {
	var po inventoryEntity.PurchaseOrder
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("organization_id = ? AND id = ?", orgID, id).First(&po).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("purchase order", id)
	}
	return &po, err
}

func (r *InventoryRepository) FindPurchaseOrder(orgID, id uint) (*inventoryEntity.PurchaseOrder, error) {
	var po inventoryEntity.PurchaseOrder
	err := r.db.Where("organization_id = ? AND id = ?", orgID, id).First(&po).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("purchase order", id)
	}
	if err != nil {
		return nil, err
	}
	po.Lines, err = r.POLines(po.ID, false)
	return &po, err
}

func (r *InventoryRepository) POLines(poID uint, lock bool) ([]inventoryEntity.POLine, error) {
	q := r.db
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var out []inventoryEntity.POLine
	err := q.Where("purchase_order_id = ?", poID).Order("line_number, id").Find(&out).Error
	return out, err
}

// NetIssued returns issued minus returned quantity of a part on a work order.
func (r *InventoryRepository) NetIssued(woID, partID, storeroomID uint) (float64, error) {
	var net float64
	err := r.db.Table("material_transactions").
		Select("COALESCE(SUM(CASE WHEN transaction_type = 'ISSUE' THEN quantity ELSE -quantity END), 0)").
		Where("work_order_id = ? AND part_id = ? AND storeroom_id = ?", woID, partID, storeroomID).
		Scan(&net).Error
	return net, err
}

func (r *InventoryRepository) Transactions(orgID, partID uint, limit int) ([]inventoryEntity.PartTransaction, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []inventoryEntity.PartTransaction
	err := r.db.Where("organization_id = ? AND part_id = ?", orgID, partID).
		Order("id DESC").Limit(limit).Find(&out).Error
	return out, err
}

// PartIDsByNumber resolves part numbers to ids, querying batchSize numbers at a time.
func (r *InventoryRepository) PartIDsByNumber(orgID uint, numbers []string, batchSize int) (map[string]uint, error) {
	type row struct {
		ID         uint   `gorm:"column:id"`
		PartNumber string `gorm:"column:part_number"`
	}
	out := make(map[string]uint, len(numbers))
	for i := 0; i < len(numbers); i += batchSize {
		end := i + batchSize
		if end > len(numbers) {
			end = len(numbers)
		}
		var chunk []row
		err := r.db.Model(&inventoryEntity.Part{}).
			Select("id, part_number").
			Where("organization_id = ? AND part_number IN ?", orgID, numbers[i:end]).
			Find(&chunk).Error
		if err != nil {
			return nil, err
		}
		for _, c := range chunk {
			out[c.PartNumber] = c.ID
		}
	}
	return out, nil
}

// StoreroomsByCode returns the organization's storerooms keyed by code.
func (r *InventoryRepository) StoreroomsByCode(orgID uint) (map[string]inventoryEntity.Storeroom, error) {
	var rooms []inventoryEntity.Storeroom
	if err := r.db.Where("organization_id = ?", orgID).Find(&rooms).Error; err != nil {
		return nil, err
	}
	out := make(map[string]inventoryEntity.Storeroom, len(rooms))
	for _, sr := range rooms {
		out[sr.Code] = sr
	}
	return out, nil
}
