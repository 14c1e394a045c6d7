package pm

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cmms.GO/core/apperr"
	pmEntity "cmms.GO/model/entity/pm"
	woEntity "cmms.GO/model/entity/workorder"
)

type PMRepository struct {
	db *gorm.DB
}

func NewPMRepository(db *gorm.DB) *PMRepository {
	return &PMRepository{db: db}
}

func (r *PMRepository) Find(orgID, id uint) (*pmEntity.Definition, error) {
	var d pmEntity.Definition
	err := r.db.Where("organization_id = ? AND id = ?", orgID, id).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("pm", id)
	}
	return &d, err
}

func (r *PMRepository) Lock(orgID, id uint) (*pmEntity.Definition, error) {
	var d pmEntity.Definition
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("organization_id = ? AND id = ?", orgID, id).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("pm", id)
	}
	return &d, err
}

func (r *PMRepository) Create(d *pmEntity.Definition) error {
	return r.db.Create(d).Error
}

func (r *PMRepository) Update(id uint, fields map[string]interface{}) error {
	return r.db.Model(&pmEntity.Definition{}).Where("id = ?", id).Updates(fields).Error
}

// ScanCandidates lists active, unpaused definitions outside the paused
// organizations. Trigger evaluation happens in the caller.
func (r *PMRepository) ScanCandidates(pausedOrgs map[uint]bool) ([]pmEntity.Definition, error) {
	q := r.db.Where("is_active = ? AND is_paused = ?", true, false)
	if len(pausedOrgs) > 0 {
		ids := make([]uint, 0, len(pausedOrgs))
		for id := range pausedOrgs {
			ids = append(ids, id)
		}
		q = q.Where("organization_id NOT IN ?", ids)
	}
	var out []pmEntity.Definition
	err := q.Order("organization_id, id").Find(&out).Error
	return out, err
}

type ListFilter struct {
	AssetID  *uint
	IsActive *bool
	Limit    int
	Offset   int
}

func (r *PMRepository) List(orgID uint, f ListFilter) ([]pmEntity.Definition, int64, error) {
	q := r.db.Model(&pmEntity.Definition{}).Where("organization_id = ?", orgID)
	if f.AssetID != nil {
		q = q.Where("asset_id = ?", *f.AssetID)
	}
	if f.IsActive != nil {
		q = q.Where("is_active = ?", *f.IsActive)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var out []pmEntity.Definition
	err := q.Order("id").Limit(limit).Offset(f.Offset).Find(&out).Error
	return out, total, err
}

// DueBy lists active definitions with a due date on or before until.
func (r *PMRepository) DueBy(orgID uint, until time.Time) ([]pmEntity.Definition, error) {
	var out []pmEntity.Definition
	err := r.db.Where("organization_id = ? AND is_active = ? AND next_due_date IS NOT NULL AND next_due_date <= ?",
		orgID, true, until).
		Order("next_due_date, id").Find(&out).Error
	return out, err
}

// Claim inserts the open-work-order claim for a definition. It returns false
// when another open work order already holds it.
func (r *PMRepository) Claim(d *pmEntity.Definition, at time.Time) (bool, error) {
	c := pmEntity.OpenClaim{PMDefinitionID: d.ID, OrganizationID: d.OrganizationID, ClaimedAt: at}
	res := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&c)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	// a claim whose work order is gone or no longer open is stale
	var held pmEntity.OpenClaim
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("pm_definition_id = ?", d.ID).First(&held).Error; err != nil {
		return false, err
	}
	if held.WorkOrderID != 0 {
		var n int64
		err := r.db.Model(&woEntity.WorkOrder{}).
			Where("id = ? AND status IN ?", held.WorkOrderID, woEntity.OpenStatuses).
			Count(&n).Error
		if err != nil || n > 0 {
			return false, err
		}
	}
	res = r.db.Model(&pmEntity.OpenClaim{}).
		Where("pm_definition_id = ? AND work_order_id = ?", d.ID, held.WorkOrderID).
		Updates(map[string]interface{}{"work_order_id": 0, "claimed_at": at})
	return res.RowsAffected > 0, res.Error
}

func (r *PMRepository) AttachClaim(pmID, woID uint) error {
	return r.db.Model(&pmEntity.OpenClaim{}).Where("pm_definition_id = ?", pmID).Update("work_order_id", woID).Error
}

func (r *PMRepository) OpenClaim(pmID uint) (*pmEntity.OpenClaim, error) {
	var c pmEntity.OpenClaim
	err := r.db.Where("pm_definition_id = ?", pmID).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &c, err
}

func (r *PMRepository) Delete(id uint) error {
	return r.db.Where("id = ?", id).Delete(&pmEntity.Definition{}).Error
}

func (r *PMRepository) FindJobPlan(orgID, id uint) (*pmEntity.JobPlan, error) {
	var jp pmEntity.JobPlan
	err := r.db.Where("organization_id = ? AND id = ?", orgID, id).First(&jp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("job plan", id)
	}
	return &jp, err
}

func (r *PMRepository) JobPlanTasks(jobPlanID uint) ([]pmEntity.JobPlanTask, error) {
	var out []pmEntity.JobPlanTask
	err := r.db.Where("job_plan_id = ?", jobPlanID).Order("sequence, id").Find(&out).Error
	return out, err
}
