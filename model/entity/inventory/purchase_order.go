package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

type POStatus string

const (
	PODraft             POStatus = "DRAFT"
	POPendingApproval   POStatus = "PENDING_APPROVAL"
	POApproved          POStatus = "APPROVED"
	POOrdered           POStatus = "ORDERED"
	POPartiallyReceived POStatus = "PARTIALLY_RECEIVED"
	POReceived          POStatus = "RECEIVED"
	POCancelled         POStatus = "CANCELLED"
)

// CanReceive reports whether receipts may be booked against the order.
func (s POStatus) CanReceive() bool {
	return s == POOrdered || s == POPartiallyReceived
}

type PurchaseOrder struct {
	ID             uint            `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OrganizationID uint            `gorm:"column:organization_id;not null;uniqueIndex:uq_po_org_number,priority:1" json:"organization_id"`
	PONumber       string          `gorm:"column:po_number;type:varchar(32);not null;uniqueIndex:uq_po_org_number,priority:2" json:"po_number"`
	Vendor         string          `gorm:"column:vendor;type:varchar(255)" json:"vendor,omitempty"`
	StoreroomID    uint            `gorm:"column:storeroom_id;not null" json:"storeroom_id"`
	Status         POStatus        `gorm:"column:status;type:varchar(32);not null" json:"status"`
	TotalAmount    decimal.Decimal `gorm:"column:total_amount;type:decimal(14,2);not null;default:0" json:"total_amount"`
	Version        uint            `gorm:"column:version;not null;default:1" json:"version"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	Lines          []POLine        `gorm:"-" json:"lines,omitempty"`
}

func (PurchaseOrder) TableName() string {
	return "purchase_orders"
}

type POLine struct {
	ID               uint            `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OrganizationID   uint            `gorm:"column:organization_id;not null;index" json:"organization_id"`
	PurchaseOrderID  uint            `gorm:"column:purchase_order_id;not null;index" json:"purchase_order_id"`
	LineNumber       int             `gorm:"column:line_number;not null" json:"line_number"`
	PartID           uint            `gorm:"column:part_id;not null" json:"part_id"`
	StoreroomID      *uint           `gorm:"column:storeroom_id" json:"storeroom_id,omitempty"`
	QuantityOrdered  float64         `gorm:"column:quantity_ordered;type:decimal(12,4);not null" json:"quantity_ordered"`
	QuantityReceived float64         `gorm:"column:quantity_received;type:decimal(12,4);not null;default:0" json:"quantity_received"`
	UnitCost         decimal.Decimal `gorm:"column:unit_cost;type:decimal(12,4);not null;default:0" json:"unit_cost"`
	IsReceived       bool            `gorm:"column:is_received;not null;default:false" json:"is_received"`
}

func (POLine) TableName() string {
	return "po_lines"
}

func (l POLine) Remaining() float64 {
	return l.QuantityOrdered - l.QuantityReceived
}
