package asset

import "time"

type Status string

const (
	StatusOperating      Status = "OPERATING"
	StatusNotOperating   Status = "NOT_OPERATING"
	StatusInRepair       Status = "IN_REPAIR"
	StatusStandby        Status = "STANDBY"
	StatusDecommissioned Status = "DECOMMISSIONED"
)

type Criticality string

const (
	CriticalityCritical Criticality = "CRITICAL"
	CriticalityHigh     Criticality = "HIGH"
	CriticalityMedium   Criticality = "MEDIUM"
	CriticalityLow      Criticality = "LOW"
)

// Asset is owned by an organization and referenced by work orders and PMs.
type Asset struct {
	ID             uint        `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OrganizationID uint        `gorm:"column:organization_id;not null;uniqueIndex:uq_asset_org_num,priority:1" json:"organization_id"`
	AssetNum       string      `gorm:"column:asset_num;type:varchar(64);not null;uniqueIndex:uq_asset_org_num,priority:2" json:"asset_num"`
	Name           string      `gorm:"column:name;type:varchar(255);not null" json:"name"`
	Status         Status      `gorm:"column:status;type:varchar(32);not null;default:OPERATING" json:"status"`
	Criticality    Criticality `gorm:"column:criticality;type:varchar(16);not null;default:MEDIUM" json:"criticality"`
	Category       string      `gorm:"column:category;type:varchar(64)" json:"category,omitempty"`
	CreatedAt      time.Time   `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time   `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Asset) TableName() string {
	return "assets"
}

// AssetMeter is the latest reading of a named meter. Readings never decrease.
type AssetMeter struct {
	ID             uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OrganizationID uint      `gorm:"column:organization_id;not null;index" json:"organization_id"`
	AssetID        uint      `gorm:"column:asset_id;not null;uniqueIndex:uq_asset_meter,priority:1" json:"asset_id"`
	Name           string    `gorm:"column:name;type:varchar(64);not null;uniqueIndex:uq_asset_meter,priority:2" json:"name"`
	Unit           string    `gorm:"column:unit;type:varchar(16)" json:"unit,omitempty"`
	Reading        float64   `gorm:"column:reading;type:decimal(16,4);not null;default:0" json:"reading"`
	ReadAt         time.Time `gorm:"column:read_at" json:"read_at"`
}

func (AssetMeter) TableName() string {
	return "asset_meters"
}

// AssetDowntime is written when a work order completes with the asset down.
type AssetDowntime struct {
	ID             uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OrganizationID uint      `gorm:"column:organization_id;not null;index" json:"organization_id"`
	AssetID        uint      `gorm:"column:asset_id;not null;index" json:"asset_id"`
	WorkOrderID    uint      `gorm:"column:work_order_id;not null;index" json:"work_order_id"`
	Hours          float64   `gorm:"column:hours;type:decimal(10,2);not null" json:"hours"`
	RecordedAt     time.Time `gorm:"column:recorded_at;not null" json:"recorded_at"`
}

func (AssetDowntime) TableName() string {
	return "asset_downtime"
}
