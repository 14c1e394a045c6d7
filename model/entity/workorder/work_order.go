package workorder

import (
	"time"

	"github.com/shopspring/decimal"
)

// WorkOrder is mutated only through the work order service.
type WorkOrder struct {
	ID             uint     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OrganizationID uint     `gorm:"column:organization_id;not null;uniqueIndex:uq_wo_org_number,priority:1;index:idx_wo_org_status,priority:1" json:"organization_id"`
	WONumber       string   `gorm:"column:wo_number;type:varchar(32);not null;uniqueIndex:uq_wo_org_number,priority:2" json:"wo_number"`
	Title          string   `gorm:"column:title;type:varchar(255);not null" json:"title"`
	Description    string   `gorm:"column:description;type:text" json:"description,omitempty"`
	Status         Status   `gorm:"column:status;type:varchar(32);not null;index:idx_wo_org_status,priority:2" json:"status"`
	Priority       Priority `gorm:"column:priority;type:varchar(16);not null;default:MEDIUM" json:"priority"`
	WorkType       Type     `gorm:"column:work_type;type:varchar(16);not null;default:CORRECTIVE" json:"work_type"`

	AssetID       *uint  `gorm:"column:asset_id;index" json:"asset_id,omitempty"`
	PMID          *uint  `gorm:"column:pm_id;index" json:"pm_id,omitempty"`
	AssignedTo    *uint  `gorm:"column:assigned_to" json:"assigned_to,omitempty"`
	AssignedGroup string `gorm:"column:assigned_group;type:varchar(64)" json:"assigned_group,omitempty"`

	DueDate        *time.Time `gorm:"column:due_date" json:"due_date,omitempty"`
	ScheduledStart *time.Time `gorm:"column:scheduled_start" json:"scheduled_start,omitempty"`
	ActualStart    *time.Time `gorm:"column:actual_start" json:"actual_start,omitempty"`
	ActualEnd      *time.Time `gorm:"column:actual_end" json:"actual_end,omitempty"`

	EstimatedHours     float64         `gorm:"column:estimated_hours;type:decimal(10,2);not null;default:0" json:"estimated_hours"`
	EstimatedCost      decimal.Decimal `gorm:"column:estimated_cost;type:decimal(14,2);not null;default:0" json:"estimated_cost"`
	ActualLaborHours   float64         `gorm:"column:actual_labor_hours;type:decimal(10,2);not null;default:0" json:"actual_labor_hours"`
	ActualLaborCost    decimal.Decimal `gorm:"column:actual_labor_cost;type:decimal(14,2);not null;default:0" json:"actual_labor_cost"`
	ActualMaterialCost decimal.Decimal `gorm:"column:actual_material_cost;type:decimal(14,2);not null;default:0" json:"actual_material_cost"`
	TotalCost          decimal.Decimal `gorm:"column:total_cost;type:decimal(14,2);not null;default:0" json:"total_cost"`

	CompletionNotes string  `gorm:"column:completion_notes;type:text" json:"completion_notes,omitempty"`
	FailureCode     string  `gorm:"column:failure_code;type:varchar(64)" json:"failure_code,omitempty"`
	FailureCause    string  `gorm:"column:failure_cause;type:text" json:"failure_cause,omitempty"`
	FailureRemedy   string  `gorm:"column:failure_remedy;type:text" json:"failure_remedy,omitempty"`
	DowntimeHours   float64 `gorm:"column:downtime_hours;type:decimal(10,2);not null;default:0" json:"downtime_hours"`
	AssetWasDown    bool    `gorm:"column:asset_was_down;not null;default:false" json:"asset_was_down"`
	CompletedBy     *uint   `gorm:"column:completed_by" json:"completed_by,omitempty"`

	Version   uint      `gorm:"column:version;not null;default:1" json:"version"`
	CreatedBy *uint     `gorm:"column:created_by" json:"created_by,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (WorkOrder) TableName() string {
	return "work_orders"
}

// WorkOrderAsset links secondary assets.
type WorkOrderAsset struct {
	WorkOrderID uint `gorm:"column:work_order_id;primaryKey" json:"work_order_id"`
	AssetID     uint `gorm:"column:asset_id;primaryKey" json:"asset_id"`
}

func (WorkOrderAsset) TableName() string {
	return "work_order_assets"
}

type Task struct {
	ID             uint       `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OrganizationID uint       `gorm:"column:organization_id;not null;index" json:"organization_id"`
	WorkOrderID    uint       `gorm:"column:work_order_id;not null;index" json:"work_order_id"`
	Sequence       int        `gorm:"column:sequence;not null;default:0" json:"sequence"`
	Description    string     `gorm:"column:description;type:text;not null" json:"description"`
	EstimatedHours float64    `gorm:"column:estimated_hours;type:decimal(10,2);not null;default:0" json:"estimated_hours"`
	IsCompleted    bool       `gorm:"column:is_completed;not null;default:false" json:"is_completed"`
	CompletedAt    *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CompletedBy    *uint      `gorm:"column:completed_by" json:"completed_by,omitempty"`
}

func (Task) TableName() string {
	return "work_order_tasks"
}

type Comment struct {
	ID             uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OrganizationID uint      `gorm:"column:organization_id;not null;index" json:"organization_id"`
	WorkOrderID    uint      `gorm:"column:work_order_id;not null;index" json:"work_order_id"`
	UserID         *uint     `gorm:"column:user_id" json:"user_id,omitempty"`
	Body           string    `gorm:"column:body;type:text;not null" json:"body"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Comment) TableName() string {
	return "work_order_comments"
}

type StatusHistory struct {
	ID             uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OrganizationID uint      `gorm:"column:organization_id;not null;index" json:"organization_id"`
	WorkOrderID    uint      `gorm:"column:work_order_id;not null;index" json:"work_order_id"`
	FromStatus     Status    `gorm:"column:from_status;type:varchar(32)" json:"from_status,omitempty"`
	ToStatus       Status    `gorm:"column:to_status;type:varchar(32);not null" json:"to_status"`
	ChangedBy      *uint     `gorm:"column:changed_by" json:"changed_by,omitempty"`
	Notes          string    `gorm:"column:notes;type:text" json:"notes,omitempty"`
	ChangedAt      time.Time `gorm:"column:changed_at;not null" json:"changed_at"`
}

func (StatusHistory) TableName() string {
	return "work_order_status_history"
}
