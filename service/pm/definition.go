package pm

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"cmms.GO/core/apperr"
	"cmms.GO/core/signal"
	pmEntity "cmms.GO/model/entity/pm"
	woEntity "cmms.GO/model/entity/workorder"
	assetRepo "cmms.GO/model/repository/asset"
	pmRepo "cmms.GO/model/repository/pm"
	"cmms.GO/model/repository/sequence"
	"cmms.GO/service/schedule"
	"cmms.GO/service/workorder"
)

type DefinitionInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	AssetID     *uint  `json:"asset_id"`
	JobPlanID   *uint  `json:"job_plan_id"`

	TriggerType    pmEntity.TriggerType   `json:"trigger_type"`
	ScheduleType   pmEntity.ScheduleType  `json:"schedule_type"`
	FrequencyValue int                    `json:"frequency_value"`
	FrequencyUnit  pmEntity.FrequencyUnit `json:"frequency_unit"`

	MeterName         string   `json:"meter_name"`
	MeterInterval     float64  `json:"meter_interval"`
	LastMeterReading  *float64 `json:"last_meter_reading"`
	ConditionOperator string   `json:"condition_operator"`
	ConditionValue    float64  `json:"condition_value"`

	LeadTimeDays       int                   `json:"lead_time_days"`
	WarningDays        int                   `json:"warning_days"`
	SeasonalStartMonth *int                  `json:"seasonal_start_month"`
	SeasonalEndMonth   *int                  `json:"seasonal_end_month"`
	ExcludedDays       pmEntity.ExcludedDays `json:"excluded_days"`

	NextDueDate *time.Time `json:"next_due_date"`
	IsActive    *bool      `json:"is_active"`

	Priority       woEntity.Priority `json:"priority"`
	AssignedTo     *uint             `json:"assigned_to"`
	AssignedGroup  string            `json:"assigned_group"`
	EstimatedHours float64           `json:"estimated_hours"`
	EstimatedCost  decimal.Decimal   `json:"estimated_cost"`
}

func (in *DefinitionInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return apperr.Validation("name", "is required")
	}
	if in.TriggerType == "" {
		in.TriggerType = pmEntity.TriggerTime
	}
	if _, err := schedule.NewTrigger(schedule.TriggerType(in.TriggerType), in.ConditionOperator, in.ConditionValue); err != nil {
		return err
	}
	if in.ScheduleType == "" {
		in.ScheduleType = pmEntity.ScheduleFixed
	}
	if in.ScheduleType != pmEntity.ScheduleFixed && in.ScheduleType != pmEntity.ScheduleFloating {
		return apperr.Validation("schedule_type", "unknown schedule type %q", in.ScheduleType)
	}
	if in.TriggerType.UsesTime() {
		if in.FrequencyValue <= 0 {
			return apperr.Validation("frequency_value", "must be positive for %s triggers", in.TriggerType)
		}
		if !schedule.Unit(in.FrequencyUnit).Valid() {
			return apperr.Validation("frequency_unit", "unknown unit %q", in.FrequencyUnit)
		}
	}
	if in.TriggerType.UsesMeter() {
		if in.AssetID == nil {
			return apperr.Validation("asset_id", "required for %s triggers", in.TriggerType)
		}
		in.MeterName = strings.TrimSpace(in.MeterName)
		if in.MeterName == "" {
			return apperr.Validation("meter_name", "required for %s triggers", in.TriggerType)
		}
		if in.TriggerType != pmEntity.TriggerCondition && in.MeterInterval <= 0 {
			return apperr.Validation("meter_interval", "must be positive for %s triggers", in.TriggerType)
		}
	}
	if in.LeadTimeDays < 0 {
		return apperr.Validation("lead_time_days", "must not be negative")
	}
	if in.WarningDays < 0 {
		return apperr.Validation("warning_days", "must not be negative")
	}
	if in.Priority == "" {
		in.Priority = woEntity.PriorityMedium
	}
	if !in.Priority.Valid() {
		return apperr.Validation("priority", "unknown priority %q", in.Priority)
	}
	if in.EstimatedHours < 0 || in.EstimatedCost.IsNegative() {
		return apperr.Validation("estimated_hours", "estimates must not be negative")
	}
	return window(in.SeasonalStartMonth, in.SeasonalEndMonth, in.ExcludedDays).Validate()
}

func window(start, end *int, ex pmEntity.ExcludedDays) schedule.Window {
	return schedule.Window{
		StartMonth:       start,
		EndMonth:         end,
		ExcludedWeekdays: ex.Weekdays,
		ExcludedDates:    ex.Dates,
	}
}

func (s *Service) checkRefs(tx *gorm.DB, orgID uint, in DefinitionInput) error {
	if in.AssetID != nil {
		if _, err := assetRepo.NewAssetRepository(tx).Find(orgID, *in.AssetID); err != nil {
			return err
		}
	}
	if in.JobPlanID != nil {
		if _, err := pmRepo.NewPMRepository(tx).FindJobPlan(orgID, *in.JobPlanID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) today() time.Time {
	return schedule.Day(s.now(), s.opts.Location)
}

// apply copies input onto d. A changed due date or frequency restarts the
// fixed-schedule anchor.
func (s *Service) apply(d *pmEntity.Definition, in DefinitionInput) {
	reanchor := d.ID == 0 ||
		d.FrequencyValue != in.FrequencyValue ||
		d.FrequencyUnit != in.FrequencyUnit ||
		d.ScheduleType != in.ScheduleType ||
		!sameDay(d.NextDueDate, in.NextDueDate)

	d.Name = in.Name
	d.Description = in.Description
	d.AssetID = in.AssetID
	d.JobPlanID = in.JobPlanID
	d.TriggerType = in.TriggerType
	d.ScheduleType = in.ScheduleType
	d.FrequencyValue = in.FrequencyValue
	d.FrequencyUnit = in.FrequencyUnit
	d.MeterName = in.MeterName
	d.MeterInterval = in.MeterInterval
	d.ConditionOperator = in.ConditionOperator
	d.ConditionValue = in.ConditionValue
	d.LeadTimeDays = in.LeadTimeDays
	d.WarningDays = in.WarningDays
	d.SeasonalStartMonth = in.SeasonalStartMonth
	d.SeasonalEndMonth = in.SeasonalEndMonth
	d.ExcludedDays = datatypes.NewJSONType(in.ExcludedDays)
	d.Priority = string(in.Priority)
	d.AssignedTo = in.AssignedTo
	d.AssignedGroup = in.AssignedGroup
	d.EstimatedHours = in.EstimatedHours
	d.EstimatedCost = in.EstimatedCost
	if in.IsActive != nil {
		d.IsActive = *in.IsActive
	}

	if in.LastMeterReading != nil {
		last := *in.LastMeterReading
		d.LastMeterReading = &last
		d.NextMeterReading = nil
	}
	if d.TriggerType.UsesMeter() && d.TriggerType != pmEntity.TriggerCondition {
		d.NextMeterReading = schedule.MeterThreshold(d.LastMeterReading, nil, d.MeterInterval)
	}

	if !reanchor {
		return
	}
	due := in.NextDueDate
	if due == nil && d.TriggerType.UsesTime() {
		today := s.today()
		due = &today
	}
	if due != nil {
		day := schedule.Day(*due, s.opts.Location)
		due = &day
	}
	d.NextDueDate = due
	d.AnchorDate = due
	d.Occurrence = 0
}

func sameDay(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Format("2006-01-02") == b.Format("2006-01-02")
}

// Create adds a PM definition. Time-based definitions without a due date
// become due today.
func (s *Service) Create(ctx context.Context, orgID uint, in DefinitionInput) (*pmEntity.Definition, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.IsActive == nil {
		active := true
		in.IsActive = &active
	}
	var out *pmEntity.Definition
	err := s.run(ctx, func(tx *gorm.DB, _ *signal.Buffer) error {
		if err := s.checkRefs(tx, orgID, in); err != nil {
			return err
		}
		number, err := sequence.NextNumber(tx, orgID, sequence.PM)
		if err != nil {
			return err
		}
		d := &pmEntity.Definition{OrganizationID: orgID, PMNumber: number}
		s.apply(d, in)
		if err := pmRepo.NewPMRepository(tx).Create(d); err != nil {
			return err
		}
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("pm created", zap.String("pm_number", out.PMNumber), zap.Uint("organization_id", orgID))
	return out, nil
}

// Update replaces the editable fields of a definition.
func (s *Service) Update(ctx context.Context, orgID, id uint, in DefinitionInput) (*pmEntity.Definition, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var out *pmEntity.Definition
	err := s.run(ctx, func(tx *gorm.DB, _ *signal.Buffer) error {
		if err := s.checkRefs(tx, orgID, in); err != nil {
			return err
		}
		repo := pmRepo.NewPMRepository(tx)
		d, err := repo.Lock(orgID, id)
		if err != nil {
			return err
		}
		s.apply(d, in)
		if err := tx.Save(d).Error; err != nil {
			return err
		}
		out = d
		return nil
	})
	return out, err
}

func (s *Service) Get(ctx context.Context, orgID, id uint) (*pmEntity.Definition, error) {
	return pmRepo.NewPMRepository(s.db.WithContext(ctx)).Find(orgID, id)
}

func (s *Service) List(ctx context.Context, orgID uint, f pmRepo.ListFilter) ([]pmEntity.Definition, int64, error) {
	return pmRepo.NewPMRepository(s.db.WithContext(ctx)).List(orgID, f)
}

// SetPaused pauses or resumes one definition. Its due date is not touched.
func (s *Service) SetPaused(ctx context.Context, orgID, id uint, paused bool) (*pmEntity.Definition, error) {
	return s.setFlag(ctx, orgID, id, "is_paused", paused)
}

func (s *Service) SetActive(ctx context.Context, orgID, id uint, active bool) (*pmEntity.Definition, error) {
	return s.setFlag(ctx, orgID, id, "is_active", active)
}

func (s *Service) setFlag(ctx context.Context, orgID, id uint, column string, v bool) (*pmEntity.Definition, error) {
	repo := pmRepo.NewPMRepository(s.db.WithContext(ctx))
	if _, err := repo.Find(orgID, id); err != nil {
		return nil, err
	}
	if err := repo.Update(id, map[string]interface{}{column: v}); err != nil {
		return nil, err
	}
	return repo.Find(orgID, id)
}

// Delete removes a definition that has no open work order.
func (s *Service) Delete(ctx context.Context, orgID, id uint) error {
	return s.run(ctx, func(tx *gorm.DB, _ *signal.Buffer) error {
		repo := pmRepo.NewPMRepository(tx)
		d, err := repo.Lock(orgID, id)
		if err != nil {
			return err
		}
		claim, err := repo.OpenClaim(d.ID)
		if err != nil {
			return err
		}
		if claim != nil {
			return apperr.Validation("id", "%s still has an open work order", d.PMNumber)
		}
		return repo.Delete(d.ID)
	})
}

type JobPlanInput struct {
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Tasks       []workorder.TaskInput `json:"tasks"`
}

func (s *Service) CreateJobPlan(ctx context.Context, orgID uint, in JobPlanInput) (*pmEntity.JobPlan, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperr.Validation("name", "is required")
	}
	jp := &pmEntity.JobPlan{OrganizationID: orgID, Name: strings.TrimSpace(in.Name), Description: in.Description}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(jp).Error; err != nil {
			return err
		}
		for i, t := range in.Tasks {
			if strings.TrimSpace(t.Description) == "" {
				return apperr.Validation("tasks", "task %d has no description", i+1)
			}
			seq := t.Sequence
			if seq == 0 {
				seq = (i + 1) * 10
			}
			task := pmEntity.JobPlanTask{JobPlanID: jp.ID, Sequence: seq, Description: t.Description, EstimatedHours: t.EstimatedHours}
			if err := tx.Create(&task).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return jp, nil
}
