package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

type Part struct {
	ID             uint            `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OrganizationID uint            `gorm:"column:organization_id;not null;uniqueIndex:uq_part_org_number,priority:1" json:"organization_id"`
	PartNumber     string          `gorm:"column:part_number;type:varchar(64);not null;uniqueIndex:uq_part_org_number,priority:2" json:"part_number"`
	Name           string          `gorm:"column:name;type:varchar(255);not null" json:"name"`
	CategoryID     *uint           `gorm:"column:category_id;index" json:"category_id,omitempty"`
	PartType       string          `gorm:"column:part_type;type:varchar(32)" json:"part_type,omitempty"`
	UnitCost       decimal.Decimal `gorm:"column:unit_cost;type:decimal(12,4);not null;default:0" json:"unit_cost"`
	LastCost       decimal.Decimal `gorm:"column:last_cost;type:decimal(12,4);not null;default:0" json:"last_cost"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Part) TableName() string {
	return "parts"
}

type Storeroom struct {
	ID             uint   `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OrganizationID uint   `gorm:"column:organization_id;not null;uniqueIndex:uq_storeroom_org_code,priority:1" json:"organization_id"`
	Code           string `gorm:"column:code;type:varchar(32);not null;uniqueIndex:uq_storeroom_org_code,priority:2" json:"code"`
	Name           string `gorm:"column:name;type:varchar(255);not null" json:"name"`
	IsDefault      bool   `gorm:"column:is_default;not null;default:false" json:"is_default"`
}

func (Storeroom) TableName() string {
	return "storerooms"
}
