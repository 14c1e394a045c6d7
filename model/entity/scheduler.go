package entity

import "time"

// SchedulerControl pauses generation for one organization. The process-wide
// pause lives on the scheduler loop itself.
type SchedulerControl struct {
	OrganizationID   uint      `gorm:"column:organization_id;primaryKey;autoIncrement:false" json:"organization_id"`
	PausePM          bool      `gorm:"column:pause_pm;not null;default:false" json:"pause_pm"`
	PauseCycleCounts bool      `gorm:"column:pause_cycle_counts;not null;default:false" json:"pause_cycle_counts"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (SchedulerControl) TableName() string {
	return "scheduler_controls"
}

// Sequence issues human-readable numbers (WO-000001) per organization.
type Sequence struct {
	OrganizationID uint   `gorm:"column:organization_id;primaryKey;autoIncrement:false"`
	Name           string `gorm:"column:name;type:varchar(32);primaryKey"`
	Value          int64  `gorm:"column:value;not null;default:0"`
}

func (Sequence) TableName() string {
	return "sequences"
}
