package workorder

import (
	"time"

	"github.com/shopspring/decimal"
)

// LaborTransaction is append-only.
type LaborTransaction struct {
	ID             uint            `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OrganizationID uint            `gorm:"column:organization_id;not null;index" json:"organization_id"`
	WorkOrderID    uint            `gorm:"column:work_order_id;not null;index" json:"work_order_id"`
	UserID         *uint           `gorm:"column:user_id" json:"user_id,omitempty"`
	CraftCode      string          `gorm:"column:craft_code;type:varchar(32)" json:"craft_code,omitempty"`
	Hours          float64         `gorm:"column:hours;type:decimal(10,2);not null" json:"hours"`
	HourlyRate     decimal.Decimal `gorm:"column:hourly_rate;type:decimal(12,2);not null" json:"hourly_rate"`
	TotalCost      decimal.Decimal `gorm:"column:total_cost;type:decimal(14,2);not null" json:"total_cost"`
	WorkDate       time.Time       `gorm:"column:work_date;not null" json:"work_date"`
	Notes          string          `gorm:"column:notes;type:text" json:"notes,omitempty"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (LaborTransaction) TableName() string {
	return "labor_transactions"
}

type MaterialType string

const (
	MaterialIssue  MaterialType = "ISSUE"
	MaterialReturn MaterialType = "RETURN"
)

// MaterialTransaction is append-only and written in the same DB transaction
// as the stock mutation it describes.
type MaterialTransaction struct {
	ID              uint            `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OrganizationID  uint            `gorm:"column:organization_id;not null;index:idx_mt_usage,priority:1" json:"organization_id"`
	WorkOrderID     uint            `gorm:"column:work_order_id;not null;index" json:"work_order_id"`
	PartID          uint            `gorm:"column:part_id;not null;index:idx_mt_usage,priority:2" json:"part_id"`
	StoreroomID     uint            `gorm:"column:storeroom_id;not null;index:idx_mt_usage,priority:3" json:"storeroom_id"`
	TransactionType MaterialType    `gorm:"column:transaction_type;type:varchar(16);not null" json:"transaction_type"`
	Quantity        float64         `gorm:"column:quantity;type:decimal(12,4);not null" json:"quantity"`
	UnitCost        decimal.Decimal `gorm:"column:unit_cost;type:decimal(12,4);not null" json:"unit_cost"`
	TotalCost       decimal.Decimal `gorm:"column:total_cost;type:decimal(14,2);not null" json:"total_cost"`
	UserID          *uint           `gorm:"column:user_id" json:"user_id,omitempty"`
	Notes           string          `gorm:"column:notes;type:text" json:"notes,omitempty"`
	CreatedAt       time.Time       `gorm:"column:created_at;index:idx_mt_usage,priority:4" json:"created_at"`
}

func (MaterialTransaction) TableName() string {
	return "material_transactions"
}

// SignedCost is the cost contribution to the work order: returns credit it.
func (m MaterialTransaction) SignedCost() decimal.Decimal {
	if m.TransactionType == MaterialReturn {
		return m.TotalCost.Neg()
	}
	return m.TotalCost
}
