package workorder

import (
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cmms.GO/core/apperr"
	woEntity "cmms.GO/model/entity/workorder"
)

type WorkOrderRepository struct {
	db *gorm.DB
}

// NewWorkOrderRepository binds to db, usually a transaction handle.
func NewWorkOrderRepository(db *gorm.DB) *WorkOrderRepository {
	return &WorkOrderRepository{db: db}
}

func (r *WorkOrderRepository) Find(orgID, id uint) (*woEntity.WorkOrder, error) {
	var wo woEntity.WorkOrder
	err := r.db.Where("organization_id = ? AND id = ?", orgID, id).First(&wo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("work order", id)
	}
	return &wo, err
}

// Lock loads the row with SELECT ... FOR UPDATE. Call inside a transaction.
func (r *WorkOrderRepository) Lock(orgID, id uint) (*woEntity.WorkOrder, error) {
	var wo woEntity.WorkOrder
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("organization_id = ? AND id = ?", orgID, id).First(&wo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("work order", id)
	}
	return &wo, err
}

// Update writes fields guarded by the version column and bumps it.
func (r *WorkOrderRepository) Update(wo *woEntity.WorkOrder, fields map[string]interface{}) error {
	fields["version"] = wo.Version + 1
	res := r.db.Model(&woEntity.WorkOrder{}).
		Where("id = ? AND version = ?", wo.ID, wo.Version).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &apperr.ConcurrencyConflictError{Entity: "work order", ID: wo.ID}
	}
	wo.Version++
	return nil
}

// AddCosts rolls a labor or material charge into the running totals.
func (r *WorkOrderRepository) AddCosts(wo *woEntity.WorkOrder, laborHours float64, labor, material decimal.Decimal) error {
	wo.ActualLaborHours += laborHours
	wo.ActualLaborCost = wo.ActualLaborCost.Add(labor)
	wo.ActualMaterialCost = wo.ActualMaterialCost.Add(material)
	return r.Update(wo, map[string]interface{}{
		"actual_labor_hours":   wo.ActualLaborHours,
		"actual_labor_cost":    wo.ActualLaborCost,
		"actual_material_cost": wo.ActualMaterialCost,
	})
}

type ListFilter struct {
	Status  []woEntity.Status
	AssetID *uint
	PMID    *uint
	Limit   int
	Offset  int
}

func (r *WorkOrderRepository) List(orgID uint, f ListFilter) ([]woEntity.WorkOrder, int64, error) {
	q := r.db.Model(&woEntity.WorkOrder{}).Where("organization_id = ?", orgID)
	if len(f.Status) > 0 {
		q = q.Where("status IN ?", f.Status)
	}
	if f.AssetID != nil {
		q = q.Where("asset_id = ?", *f.AssetID)
	}
	if f.PMID != nil {
		q = q.Where("pm_id = ?", *f.PMID)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var out []woEntity.WorkOrder
	err := q.Order("id DESC").Limit(limit).Offset(f.Offset).Find(&out).Error
	return out, total, err
}

// CountOpenForPM counts outstanding work orders generated from a PM.
func (r *WorkOrderRepository) CountOpenForPM(pmID uint) (int64, error) {
	var n int64
	err := r.db.Model(&woEntity.WorkOrder{}).
		Where("pm_id = ? AND status IN ?", pmID, woEntity.OpenStatuses).
		Count(&n).Error
	return n, err
}

func (r *WorkOrderRepository) Labor(woID uint) ([]woEntity.LaborTransaction, error) {
	var out []woEntity.LaborTransaction
	err := r.db.Where("work_order_id = ?", woID).Order("id").Find(&out).Error
	return out, err
}

func (r *WorkOrderRepository) Materials(woID uint) ([]woEntity.MaterialTransaction, error) {
	var out []woEntity.MaterialTransaction
	err := r.db.Where("work_order_id = ?", woID).Order("id").Find(&out).Error
	return out, err
}

func (r *WorkOrderRepository) Tasks(woID uint) ([]woEntity.Task, error) {
	var out []woEntity.Task
	err := r.db.Where("work_order_id = ?", woID).Order("sequence, id").Find(&out).Error
	return out, err
}

func (r *WorkOrderRepository) Comments(woID uint) ([]woEntity.Comment, error) {
	var out []woEntity.Comment
	err := r.db.Where("work_order_id = ?", woID).Order("id").Find(&out).Error
	return out, err
}

func (r *WorkOrderRepository) History(woID uint) ([]woEntity.StatusHistory, error) {
	var out []woEntity.StatusHistory
	err := r.db.Where("work_order_id = ?", woID).Order("id").Find(&out).Error
	return out, err
}

func (r *WorkOrderRepository) SecondaryAssets(woID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&woEntity.WorkOrderAsset{}).Where("work_order_id = ?", woID).Order("asset_id").Pluck("asset_id", &ids).Error
	return ids, err
}

// DeleteCascade removes the work order and every child row.
func (r *WorkOrderRepository) DeleteCascade(woID uint) error {
	children := []interface{}{
		&woEntity.LaborTransaction{},
		&woEntity.MaterialTransaction{},
		&woEntity.Task{},
		&woEntity.Comment{},
		&woEntity.StatusHistory{},
		&woEntity.WorkOrderAsset{},
	}
	for _, model := range children {
		if err := r.db.Where("work_order_id = ?", woID).Delete(model).Error; err != nil {
			return err
		}
	}
	return r.db.Where("id = ?", woID).Delete(&woEntity.WorkOrder{}).Error
}
