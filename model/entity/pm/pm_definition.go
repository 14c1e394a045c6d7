package pm

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type TriggerType string

const (
	TriggerTime         TriggerType = "TIME"
	TriggerMeter        TriggerType = "METER"
	TriggerCondition    TriggerType = "CONDITION"
	TriggerTimeOrMeter  TriggerType = "TIME_OR_METER"
	TriggerTimeAndMeter TriggerType = "TIME_AND_METER"
)

// UsesTime reports whether the trigger has a calendar component.
func (t TriggerType) UsesTime() bool {
	return t == TriggerTime || t == TriggerTimeOrMeter || t == TriggerTimeAndMeter
}

// UsesMeter reports whether the trigger reads an asset meter.
func (t TriggerType) UsesMeter() bool {
	return t == TriggerMeter || t == TriggerTimeOrMeter || t == TriggerTimeAndMeter || t == TriggerCondition
}

type ScheduleType string

const (
	ScheduleFixed    ScheduleType = "FIXED"
	ScheduleFloating ScheduleType = "FLOATING"
)

type FrequencyUnit string

const (
	UnitDays   FrequencyUnit = "DAYS"
	UnitWeeks  FrequencyUnit = "WEEKS"
	UnitMonths FrequencyUnit = "MONTHS"
	UnitYears  FrequencyUnit = "YEARS"
)

// ExcludedDays is stored as JSON: {"weekdays":[6,7],"dates":["2024-12-25"]}.
// Weekdays use ISO numbering, Monday = 1.
type ExcludedDays struct {
	Weekdays []int    `json:"weekdays,omitempty"`
	Dates    []string `json:"dates,omitempty"`
}

type Definition struct {
	ID             uint   `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OrganizationID uint   `gorm:"column:organization_id;not null;uniqueIndex:uq_pm_org_number,priority:1;index:idx_pm_scan,priority:1" json:"organization_id"`
	PMNumber       string `gorm:"column:pm_number;type:varchar(32);not null;uniqueIndex:uq_pm_org_number,priority:2" json:"pm_number"`
	Name           string `gorm:"column:name;type:varchar(255);not null" json:"name"`
	Description    string `gorm:"column:description;type:text" json:"description,omitempty"`
	AssetID        *uint  `gorm:"column:asset_id;index" json:"asset_id,omitempty"`
	JobPlanID      *uint  `gorm:"column:job_plan_id" json:"job_plan_id,omitempty"`

	TriggerType    TriggerType   `gorm:"column:trigger_type;type:varchar(16);not null;default:TIME" json:"trigger_type"`
	ScheduleType   ScheduleType  `gorm:"column:schedule_type;type:varchar(16);not null;default:FIXED" json:"schedule_type"`
	FrequencyValue int           `gorm:"column:frequency_value;not null;default:0" json:"frequency_value"`
	FrequencyUnit  FrequencyUnit `gorm:"column:frequency_unit;type:varchar(16);not null;default:DAYS" json:"frequency_unit"`

	MeterName        string   `gorm:"column:meter_name;type:varchar(64)" json:"meter_name,omitempty"`
	MeterInterval    float64  `gorm:"column:meter_interval;type:decimal(16,4);not null;default:0" json:"meter_interval"`
	LastMeterReading *float64 `gorm:"column:last_meter_reading;type:decimal(16,4)" json:"last_meter_reading,omitempty"`
	NextMeterReading *float64 `gorm:"column:next_meter_reading;type:decimal(16,4)" json:"next_meter_reading,omitempty"`

	ConditionOperator string  `gorm:"column:condition_operator;type:varchar(4)" json:"condition_operator,omitempty"`
	ConditionValue    float64 `gorm:"column:condition_value;type:decimal(16,4);not null;default:0" json:"condition_value"`

	LeadTimeDays       int                              `gorm:"column:lead_time_days;not null;default:0" json:"lead_time_days"`
	WarningDays        int                              `gorm:"column:warning_days;not null;default:0" json:"warning_days"`
	SeasonalStartMonth *int                             `gorm:"column:seasonal_start_month" json:"seasonal_start_month,omitempty"`
	SeasonalEndMonth   *int                             `gorm:"column:seasonal_end_month" json:"seasonal_end_month,omitempty"`
	ExcludedDays       datatypes.JSONType[ExcludedDays] `gorm:"column:excluded_days" json:"excluded_days"`

	// FIXED schedules step from AnchorDate by Occurrence so month-end
	// clamping never accumulates.
	AnchorDate  *time.Time `gorm:"column:anchor_date" json:"anchor_date,omitempty"`
	Occurrence  int        `gorm:"column:occurrence;not null;default:0" json:"occurrence"`
	NextDueDate *time.Time `gorm:"column:next_due_date;index:idx_pm_scan,priority:3" json:"next_due_date,omitempty"`
	LastWODate  *time.Time `gorm:"column:last_wo_date" json:"last_wo_date,omitempty"`
	LastWOID    *uint      `gorm:"column:last_wo_id" json:"last_wo_id,omitempty"`

	IsActive bool `gorm:"column:is_active;not null;index:idx_pm_scan,priority:2" json:"is_active"`
	IsPaused bool `gorm:"column:is_paused;not null;default:false" json:"is_paused"`

	Priority       string          `gorm:"column:priority;type:varchar(16);not null;default:MEDIUM" json:"priority"`
	AssignedTo     *uint           `gorm:"column:assigned_to" json:"assigned_to,omitempty"`
	AssignedGroup  string          `gorm:"column:assigned_group;type:varchar(64)" json:"assigned_group,omitempty"`
	EstimatedHours float64         `gorm:"column:estimated_hours;type:decimal(10,2);not null;default:0" json:"estimated_hours"`
	EstimatedCost  decimal.Decimal `gorm:"column:estimated_cost;type:decimal(14,2);not null;default:0" json:"estimated_cost"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Definition) TableName() string {
	return "pm_definitions"
}

// OpenClaim holds one row per PM with an outstanding generated work order.
// The primary key makes claim insertion the atomic check-and-create.
type OpenClaim struct {
	PMDefinitionID uint      `gorm:"column:pm_definition_id;primaryKey;autoIncrement:false" json:"pm_definition_id"`
	OrganizationID uint      `gorm:"column:organization_id;not null;index" json:"organization_id"`
	WorkOrderID    uint      `gorm:"column:work_order_id;not null;default:0;index" json:"work_order_id"`
	ClaimedAt      time.Time `gorm:"column:claimed_at;not null" json:"claimed_at"`
}

func (OpenClaim) TableName() string {
	return "pm_open_claims"
}

type JobPlan struct {
	ID             uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OrganizationID uint      `gorm:"column:organization_id;not null;index" json:"organization_id"`
	Name           string    `gorm:"column:name;type:varchar(255);not null" json:"name"`
	Description    string    `gorm:"column:description;type:text" json:"description,omitempty"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (JobPlan) TableName() string {
	return "job_plans"
}

type JobPlanTask struct {
	ID             uint    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	JobPlanID      uint    `gorm:"column:job_plan_id;not null;index" json:"job_plan_id"`
	Sequence       int     `gorm:"column:sequence;not null;default:0" json:"sequence"`
	Description    string  `gorm:"column:description;type:text;not null" json:"description"`
	EstimatedHours float64 `gorm:"column:estimated_hours;type:decimal(10,2);not null;default:0" json:"estimated_hours"`
}

func (JobPlanTask) TableName() string {
	return "job_plan_tasks"
}
