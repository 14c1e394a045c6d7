package scheduler

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	entity "cmms.GO/model/entity"
)

type Kind string

const (
	KindPM         Kind = "pm"
	KindCycleCount Kind = "cycle_count"
)

func (k Kind) column() string {
	if k == KindCycleCount {
		return "pause_cycle_counts"
	}
	return "pause_pm"
}

type ControlRepository struct {
	db *gorm.DB
}

func NewControlRepository(db *gorm.DB) *ControlRepository {
	return &ControlRepository{db: db}
}

// PausedOrganizations returns the set of organizations paused for kind.
func (r *ControlRepository) PausedOrganizations(kind Kind) (map[uint]bool, error) {
	var ids []uint
	err := r.db.Model(&entity.SchedulerControl{}).
		Where(kind.column()+" = ?", true).
		Pluck("organization_id", &ids).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uint]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func (r *ControlRepository) Get(orgID uint) (*entity.SchedulerControl, error) {
	ctl := entity.SchedulerControl{OrganizationID: orgID}
	err := r.db.Where("organization_id = ?", orgID).Limit(1).Find(&ctl).Error
	return &ctl, err
}

// SetPaused upserts the organization's flag for kind.
func (r *ControlRepository) SetPaused(orgID uint, kind Kind, paused bool) error {
	ctl := entity.SchedulerControl{OrganizationID: orgID}
	if err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&ctl).Error; err != nil {
		return err
	}
	return r.db.Model(&entity.SchedulerControl{}).
		Where("organization_id = ?", orgID).
		Update(kind.column(), paused).Error
}
