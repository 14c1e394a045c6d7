package inventory

import "time"

// StockLevel is the balance of one part in one storeroom. Rows are never
// deleted, only zeroed.
type StockLevel struct {
	ID                uint       `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OrganizationID    uint       `gorm:"column:organization_id;not null;index" json:"organization_id"`
	PartID            uint       `gorm:"column:part_id;not null;uniqueIndex:uq_stock_part_storeroom,priority:1" json:"part_id"`
	StoreroomID       uint       `gorm:"column:storeroom_id;not null;uniqueIndex:uq_stock_part_storeroom,priority:2" json:"storeroom_id"`
	CurrentBalance    float64    `gorm:"column:current_balance;type:decimal(12,4);not null;default:0" json:"current_balance"`
	ReservedQuantity  float64    `gorm:"column:reserved_quantity;type:decimal(12,4);not null;default:0" json:"reserved_quantity"`
	AvailableQuantity float64    `gorm:"column:available_quantity;type:decimal(12,4);not null;default:0" json:"available_quantity"`
	ReorderPoint      float64    `gorm:"column:reorder_point;type:decimal(12,4);not null;default:0" json:"reorder_point"`
	ReorderQuantity   float64    `gorm:"column:reorder_quantity;type:decimal(12,4);not null;default:0" json:"reorder_quantity"`
	MinLevel          float64    `gorm:"column:min_level;type:decimal(12,4);not null;default:0" json:"min_level"`
	MaxLevel          float64    `gorm:"column:max_level;type:decimal(12,4);not null;default:0" json:"max_level"`
	BinLocation       string     `gorm:"column:bin_location;type:varchar(64)" json:"bin_location,omitempty"`
	LastReceiptDate   *time.Time `gorm:"column:last_receipt_date" json:"last_receipt_date,omitempty"`
	LastIssueDate     *time.Time `gorm:"column:last_issue_date" json:"last_issue_date,omitempty"`
	LastCountDate     *time.Time `gorm:"column:last_count_date" json:"last_count_date,omitempty"`
	Version           uint       `gorm:"column:version;not null;default:1" json:"version"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (StockLevel) TableName() string {
	return "stock_levels"
}

// IsLow reports a reorder-point crossing.
func (s StockLevel) IsLow() bool {
	return s.ReorderPoint > 0 && s.CurrentBalance <= s.ReorderPoint
}

type ReservationStatus string

const (
	ReservationOpen     ReservationStatus = "OPEN"
	ReservationConsumed ReservationStatus = "CONSUMED"
	ReservationReleased ReservationStatus = "RELEASED"
)

// StockReservation holds quantity for a work order. Only OPEN rows count
// against available quantity.
type StockReservation struct {
	ID             uint              `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OrganizationID uint              `gorm:"column:organization_id;not null;index" json:"organization_id"`
	WorkOrderID    uint              `gorm:"column:work_order_id;not null;index" json:"work_order_id"`
	PartID         uint              `gorm:"column:part_id;not null;index:idx_res_stock,priority:1" json:"part_id"`
	StoreroomID    uint              `gorm:"column:storeroom_id;not null;index:idx_res_stock,priority:2" json:"storeroom_id"`
	Quantity       float64           `gorm:"column:quantity;type:decimal(12,4);not null" json:"quantity"`
	Status         ReservationStatus `gorm:"column:status;type:varchar(16);not null;index:idx_res_stock,priority:3" json:"status"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (StockReservation) TableName() string {
	return "stock_reservations"
}

type TransactionType string

const (
	TxReceipt    TransactionType = "RECEIPT"
	TxIssue      TransactionType = "ISSUE"
	TxReturn     TransactionType = "RETURN"
	TxAdjustment TransactionType = "ADJUSTMENT"
	TxCycleCount TransactionType = "CYCLE_COUNT"
)

// PartTransaction journals every balance change.
type PartTransaction struct {
	ID              uint            `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OrganizationID  uint            `gorm:"column:organization_id;not null;index" json:"organization_id"`
	PartID          uint            `gorm:"column:part_id;not null;index" json:"part_id"`
	StoreroomID     uint            `gorm:"column:storeroom_id;not null;index" json:"storeroom_id"`
	TransactionType TransactionType `gorm:"column:transaction_type;type:varchar(16);not null" json:"transaction_type"`
	Quantity        float64         `gorm:"column:quantity;type:decimal(12,4);not null" json:"quantity"`
	BalanceAfter    float64         `gorm:"column:balance_after;type:decimal(12,4);not null" json:"balance_after"`
	WorkOrderID     *uint           `gorm:"column:work_order_id" json:"work_order_id,omitempty"`
	POLineID        *uint           `gorm:"column:po_line_id" json:"po_line_id,omitempty"`
	CycleCountID    *uint           `gorm:"column:cycle_count_id" json:"cycle_count_id,omitempty"`
	UserID          *uint           `gorm:"column:user_id" json:"user_id,omitempty"`
	Notes           string          `gorm:"column:notes;type:text" json:"notes,omitempty"`
	CreatedAt       time.Time       `gorm:"column:created_at" json:"created_at"`
}

func (PartTransaction) TableName() string {
	return "part_transactions"
}
