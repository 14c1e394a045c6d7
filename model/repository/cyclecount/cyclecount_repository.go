package cyclecount

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cmms.GO/core/apperr"
	ccEntity "cmms.GO/model/entity/cyclecount"
	woEntity "cmms.GO/model/entity/workorder"
)

type CycleCountRepository struct {
	db *gorm.DB
}

func NewCycleCountRepository(db *gorm.DB) *CycleCountRepository {
	return &CycleCountRepository{db: db}
}

// StockFilter selects stock rows for a count. Usage bounds are absolute
// times resolved by the caller.
type StockFilter struct {
	StoreroomID         *uint
	CategoryIDs         []uint
	BinPrefix           string
	PartType            string
	UsageFrom           *time.Time
	UsageTo             *time.Time
	TransactedOnly      bool
	IncludeZeroMovement bool
	LineLimit           int
}

// Candidate is a stock row picked for counting.
type Candidate struct {
	StockLevelID   uint
	PartID         uint
	StoreroomID    uint
	CurrentBalance float64
	BinLocation    string
	PartNumber     string
}

// SelectStock returns the stock rows matching f, ordered by bin then part.
func (r *CycleCountRepository) SelectStock(orgID uint, f StockFilter) ([]Candidate, error) {
	fresh := r.db.Session(&gorm.Session{NewDB: true})
	q := fresh.Table("stock_levels AS sl").
		Select("sl.id AS stock_level_id, sl.part_id, sl.storeroom_id, sl.current_balance, sl.bin_location, p.part_number").
		Joins("JOIN parts p ON p.id = sl.part_id").
		Where("sl.organization_id = ?", orgID)
	if f.StoreroomID != nil {
		q = q.Where("sl.storeroom_id = ?", *f.StoreroomID)
	}
	if len(f.CategoryIDs) > 0 {
		q = q.Where("p.category_id IN ?", f.CategoryIDs)
	}
	if f.BinPrefix != "" {
		q = q.Where("sl.bin_location LIKE ?", f.BinPrefix+"%")
	}
	if f.PartType != "" {
		q = q.Where("p.part_type = ?", f.PartType)
	}

	switch {
	case f.UsageFrom != nil || f.UsageTo != nil:
		used := fresh.Table("material_transactions AS mt").Select("1").
			Where("mt.organization_id = sl.organization_id AND mt.part_id = sl.part_id AND mt.storeroom_id = sl.storeroom_id")
		if f.UsageFrom != nil {
			used = used.Where("mt.created_at >= ?", *f.UsageFrom)
		}
		if f.UsageTo != nil {
			used = used.Where("mt.created_at < ?", *f.UsageTo)
		}
		if f.TransactedOnly {
			used = used.Where("mt.transaction_type = ?", woEntity.MaterialIssue)
		}
		q = q.Where("EXISTS (?)", used)
	case f.TransactedOnly:
		q = q.Where("sl.last_issue_date IS NOT NULL")
	case !f.IncludeZeroMovement:
		q = q.Where("(sl.last_issue_date IS NOT NULL OR sl.last_receipt_date IS NOT NULL)")
	}

	q = q.Order("sl.bin_location, p.part_number")
	if f.LineLimit > 0 {
		q = q.Limit(f.LineLimit)
	}
	var out []Candidate
	err := q.Scan(&out).Error
	return out, err
}

func (r *CycleCountRepository) FindSession(orgID, id uint) (*ccEntity.Session, error) {
	var s ccEntity.Session
	err := r.db.Where("organization_id = ? AND id = ?", orgID, id).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("cycle count", id)
	}
	return &s, err
}

func (r *CycleCountRepository) LockSession(orgID, id uint) (*ccEntity.Session, error) {
	var s ccEntity.Session
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("organization_id = ? AND id = ?", orgID, id).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("cycle count", id)
	}
	return &s, err
}

// UpdateSession writes fields guarded by the version column.
func (r *CycleCountRepository) UpdateSession(s *ccEntity.Session, fields map[string]interface{}) error {
	fields["version"] = s.Version + 1
	res := r.db.Model(&ccEntity.Session{}).Where("id = ? AND version = ?", s.ID, s.Version).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &apperr.ConcurrencyConflictError{Entity: "cycle count", ID: s.ID}
	}
	s.Version++
	return nil
}

func (r *CycleCountRepository) Lines(sessionID uint) ([]ccEntity.Line, error) {
	var out []ccEntity.Line
	err := r.db.Where("cycle_count_id = ?", sessionID).Order("id").Find(&out).Error
	return out, err
}

func (r *CycleCountRepository) ListSessions(orgID uint, status []ccEntity.Status, limit int) ([]ccEntity.Session, error) {
	q := r.db.Where("organization_id = ?", orgID)
	if len(status) > 0 {
		q = q.Where("status IN ?", status)
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var out []ccEntity.Session
	err := q.Order("id DESC").Limit(limit).Find(&out).Error
	return out, err
}

func (r *CycleCountRepository) FindPlan(orgID, id uint) (*ccEntity.Plan, error) {
	var p ccEntity.Plan
	err := r.db.Where("organization_id = ? AND id = ?", orgID, id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("cycle count plan", id)
	}
	return &p, err
}

func (r *CycleCountRepository) LockPlan(orgID, id uint) (*ccEntity.Plan, error) {
	var p ccEntity.Plan
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("organization_id = ? AND id = ?", orgID, id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("cycle count plan", id)
	}
	return &p, err
}

func (r *CycleCountRepository) ListPlans(orgID uint) ([]ccEntity.Plan, error) {
	var out []ccEntity.Plan
	err := r.db.Where("organization_id = ?", orgID).Order("id").Find(&out).Error
	return out, err
}

// DuePlans lists active, unpaused plans whose next run is on or before day,
// skipping paused organizations. Plans never run before are due.
func (r *CycleCountRepository) DuePlans(pausedOrgs map[uint]bool, day time.Time) ([]ccEntity.Plan, error) {
	q := r.db.Where("is_active = ? AND is_paused = ? AND (next_run_date IS NULL OR next_run_date <= ?)", true, false, day)
	if len(pausedOrgs) > 0 {
		ids := make([]uint, 0, len(pausedOrgs))
		for id := range pausedOrgs {
			ids = append(ids, id)
		}
		q = q.Where("organization_id NOT IN ?", ids)
	}
	var out []ccEntity.Plan
	err := q.Order("organization_id, id").Find(&out).Error
	return out, err
}

func (r *CycleCountRepository) HasTemplatePlan(orgID uint, template string) (bool, error) {
	var n int64
	err := r.db.Model(&ccEntity.Plan{}).Where("organization_id = ? AND template_type = ?", orgID, template).Count(&n).Error
	return n > 0, err
}
