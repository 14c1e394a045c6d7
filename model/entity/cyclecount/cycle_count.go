package cyclecount

import (
	"time"

	"gorm.io/datatypes"
)

type FrequencyUnit string

const (
	UnitDays   FrequencyUnit = "DAYS"
	UnitWeeks  FrequencyUnit = "WEEKS"
	UnitMonths FrequencyUnit = "MONTHS"
)

const (
	TemplateWeeklyTransacted  = "WEEKLY_TRANSACTED"
	TemplateMonthlyTransacted = "MONTHLY_TRANSACTED"
)

// Plan is a recurring count definition.
type Plan struct {
	ID             uint   `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OrganizationID uint   `gorm:"column:organization_id;not null;index" json:"organization_id"`
	Name           string `gorm:"column:name;type:varchar(255);not null" json:"name"`
	Description    string `gorm:"column:description;type:text" json:"description,omitempty"`
	TemplateType   string `gorm:"column:template_type;type:varchar(32)" json:"template_type,omitempty"`

	StoreroomID         *uint                      `gorm:"column:storeroom_id" json:"storeroom_id,omitempty"`
	CategoryIDs         datatypes.JSONType[[]uint] `gorm:"column:category_ids" json:"category_ids"`
	BinPrefix           string                     `gorm:"column:bin_prefix;type:varchar(64)" json:"bin_prefix,omitempty"`
	PartType            string                     `gorm:"column:part_type;type:varchar(32)" json:"part_type,omitempty"`
	UsedInLastDays      int                        `gorm:"column:used_in_last_days;not null;default:0" json:"used_in_last_days"`
	UsageStartDate      *time.Time                 `gorm:"column:usage_start_date" json:"usage_start_date,omitempty"`
	UsageEndDate        *time.Time                 `gorm:"column:usage_end_date" json:"usage_end_date,omitempty"`
	TransactedOnly      bool                       `gorm:"column:transacted_only;not null;default:false" json:"transacted_only"`
	IncludeZeroMovement bool                       `gorm:"column:include_zero_movement;not null;default:false" json:"include_zero_movement"`
	LineLimit           int                        `gorm:"column:line_limit;not null;default:0" json:"line_limit"`

	FrequencyValue int           `gorm:"column:frequency_value;not null" json:"frequency_value"`
	FrequencyUnit  FrequencyUnit `gorm:"column:frequency_unit;type:varchar(16);not null" json:"frequency_unit"`
	IsActive       bool          `gorm:"column:is_active;not null" json:"is_active"`
	IsPaused       bool          `gorm:"column:is_paused;not null;default:false" json:"is_paused"`
	NextRunDate    *time.Time    `gorm:"column:next_run_date;index" json:"next_run_date,omitempty"`
	LastRunAt      *time.Time    `gorm:"column:last_run_at" json:"last_run_at,omitempty"`
	CreatedAt      time.Time     `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Plan) TableName() string {
	return "cycle_count_plans"
}

type Status string

const (
	StatusPlanned    Status = "PLANNED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type Session struct {
	ID             uint       `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OrganizationID uint       `gorm:"column:organization_id;not null;uniqueIndex:uq_cc_org_number,priority:1" json:"organization_id"`
	CountNumber    string     `gorm:"column:count_number;type:varchar(32);not null;uniqueIndex:uq_cc_org_number,priority:2" json:"count_number"`
	Name           string     `gorm:"column:name;type:varchar(255);not null" json:"name"`
	PlanID         *uint      `gorm:"column:plan_id;index" json:"plan_id,omitempty"`
	StoreroomID    *uint      `gorm:"column:storeroom_id" json:"storeroom_id,omitempty"`
	Status         Status     `gorm:"column:status;type:varchar(16);not null" json:"status"`
	ScheduledDate  time.Time  `gorm:"column:scheduled_date;not null" json:"scheduled_date"`
	TotalLines     int        `gorm:"column:total_lines;not null" json:"total_lines"`
	CountedLines   int        `gorm:"column:counted_lines;not null;default:0" json:"counted_lines"`
	StartedAt      *time.Time `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt    *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedBy      *uint      `gorm:"column:created_by" json:"created_by,omitempty"`
	Version        uint       `gorm:"column:version;not null;default:1" json:"version"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Session) TableName() string {
	return "cycle_counts"
}

// Line freezes ExpectedQuantity at session creation.
type Line struct {
	ID               uint       `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OrganizationID   uint       `gorm:"column:organization_id;not null;index" json:"organization_id"`
	CycleCountID     uint       `gorm:"column:cycle_count_id;not null;index" json:"cycle_count_id"`
	PartID           uint       `gorm:"column:part_id;not null" json:"part_id"`
	StoreroomID      uint       `gorm:"column:storeroom_id;not null" json:"storeroom_id"`
	StockLevelID     uint       `gorm:"column:stock_level_id;not null" json:"stock_level_id"`
	PartNumber       string     `gorm:"column:part_number;type:varchar(64)" json:"part_number"`
	BinLocation      string     `gorm:"column:bin_location;type:varchar(64)" json:"bin_location,omitempty"`
	ExpectedQuantity float64    `gorm:"column:expected_quantity;type:decimal(12,4);not null" json:"expected_quantity"`
	CountedQuantity  *float64   `gorm:"column:counted_quantity;type:decimal(12,4)" json:"counted_quantity,omitempty"`
	Variance         *float64   `gorm:"column:variance;type:decimal(12,4)" json:"variance,omitempty"`
	CountedBy        *uint      `gorm:"column:counted_by" json:"counted_by,omitempty"`
	CountedAt        *time.Time `gorm:"column:counted_at" json:"counted_at,omitempty"`
	Notes            string     `gorm:"column:notes;type:text" json:"notes,omitempty"`
}

func (Line) TableName() string {
	return "cycle_count_lines"
}
