package cyclecount

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"cmms.GO/core/apperr"
	"cmms.GO/core/signal"
	ccEntity "cmms.GO/model/entity/cyclecount"
	ccRepo "cmms.GO/model/repository/cyclecount"
	invRepo "cmms.GO/model/repository/inventory"
)

type PlanInput struct {
	Name           string                 `json:"name"`
	Description    string                 `json:"description,omitempty"`
	Filters
	FrequencyValue int                    `json:"frequency_value"`
	FrequencyUnit  ccEntity.FrequencyUnit `json:"frequency_unit"`
	IsActive       *bool                  `json:"is_active,omitempty"`
	NextRunDate    *time.Time             `json:"next_run_date,omitempty"`
}

func (in PlanInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return apperr.Validation("name", "is required")
	}
	if in.FrequencyValue <= 0 {
		return apperr.Validation("frequency_value", "must be positive")
	}
	switch in.FrequencyUnit {
	case ccEntity.UnitDays, ccEntity.UnitWeeks, ccEntity.UnitMonths:
	default:
		return apperr.Validation("frequency_unit", "unknown unit %q", in.FrequencyUnit)
	}
	return in.Filters.validate()
}

func apply(p *ccEntity.Plan, in PlanInput) {
	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.StoreroomID = in.StoreroomID
	p.CategoryIDs = datatypes.NewJSONType(in.CategoryIDs)
	p.BinPrefix = in.BinPrefix
	p.PartType = in.PartType
	p.UsedInLastDays = in.UsedInLastDays
	p.UsageStartDate = in.UsageStartDate
	p.UsageEndDate = in.UsageEndDate
	p.TransactedOnly = in.TransactedOnly
	p.IncludeZeroMovement = in.IncludeZeroMovement
	p.LineLimit = in.LineLimit
	p.FrequencyValue = in.FrequencyValue
	p.FrequencyUnit = in.FrequencyUnit
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if in.NextRunDate != nil {
		p.NextRunDate = in.NextRunDate
	}
}

// filters rebuilds the session filters a plan run snapshots with.
func filters(p *ccEntity.Plan) Filters {
	return Filters{
		Name:                p.Name,
		StoreroomID:         p.StoreroomID,
		CategoryIDs:         p.CategoryIDs.Data(),
		BinPrefix:           p.BinPrefix,
		PartType:            p.PartType,
		UsedInLastDays:      p.UsedInLastDays,
		UsageStartDate:      p.UsageStartDate,
		UsageEndDate:        p.UsageEndDate,
		TransactedOnly:      p.TransactedOnly,
		IncludeZeroMovement: p.IncludeZeroMovement,
		LineLimit:           p.LineLimit,
	}
}

// CreatePlan stores a recurring count. Without a next run date the plan is
// due on the next scheduler pass.
func (s *Service) CreatePlan(ctx context.Context, orgID uint, in PlanInput) (*ccEntity.Plan, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.IsActive == nil {
		active := true
		in.IsActive = &active
	}
	p := &ccEntity.Plan{OrganizationID: orgID}
	apply(p, in)
	err := s.run(ctx, func(tx *gorm.DB, _ *signal.Buffer) error {
		if err := checkStoreroom(tx, orgID, in.StoreroomID); err != nil {
			return err
		}
		return tx.Create(p).Error
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("cycle count plan created", zap.Uint("organization_id", orgID), zap.Uint("plan_id", p.ID))
	return p, nil
}

func (s *Service) UpdatePlan(ctx context.Context, orgID, id uint, in PlanInput) (*ccEntity.Plan, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var out *ccEntity.Plan
	err := s.run(ctx, func(tx *gorm.DB, _ *signal.Buffer) error {
		if err := checkStoreroom(tx, orgID, in.StoreroomID); err != nil {
			return err
		}
		p, err := ccRepo.NewCycleCountRepository(tx).LockPlan(orgID, id)
		if err != nil {
			return err
		}
		apply(p, in)
		if err := tx.Save(p).Error; err != nil {
			return err
		}
		out = p
		return nil
	})
	return out, err
}

func checkStoreroom(tx *gorm.DB, orgID uint, id *uint) error {
	if id == nil {
		return nil
	}
	_, err := invRepo.NewInventoryRepository(tx).FindStoreroom(orgID, *id)
	return err
}

func (s *Service) GetPlan(ctx context.Context, orgID, id uint) (*ccEntity.Plan, error) {
	return ccRepo.NewCycleCountRepository(s.db.WithContext(ctx)).FindPlan(orgID, id)
}

func (s *Service) ListPlans(ctx context.Context, orgID uint) ([]ccEntity.Plan, error) {
	return ccRepo.NewCycleCountRepository(s.db.WithContext(ctx)).ListPlans(orgID)
}

func (s *Service) SetPlanPaused(ctx context.Context, orgID, id uint, paused bool) (*ccEntity.Plan, error) {
	return s.setPlanFlag(ctx, orgID, id, "is_paused", paused)
}

func (s *Service) SetPlanActive(ctx context.Context, orgID, id uint, active bool) (*ccEntity.Plan, error) {
	return s.setPlanFlag(ctx, orgID, id, "is_active", active)
}

func (s *Service) setPlanFlag(ctx context.Context, orgID, id uint, column string, v bool) (*ccEntity.Plan, error) {
	repo := ccRepo.NewCycleCountRepository(s.db.WithContext(ctx))
	p, err := repo.FindPlan(orgID, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(p).Update(column, v).Error; err != nil {
		return nil, err
	}
	return repo.FindPlan(orgID, id)
}

// DeletePlan removes a plan. Sessions it generated stay, detached.
func (s *Service) DeletePlan(ctx context.Context, orgID, id uint) error {
	return s.run(ctx, func(tx *gorm.DB, _ *signal.Buffer) error {
		p, err := ccRepo.NewCycleCountRepository(tx).LockPlan(orgID, id)
		if err != nil {
			return err
		}
		if err := tx.Model(&ccEntity.Session{}).Where("plan_id = ?", p.ID).Update("plan_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(p).Error
	})
}

var defaultPlans = []struct {
	template string
	name     string
	value    int
	unit     ccEntity.FrequencyUnit
	usedDays int
}{
	{ccEntity.TemplateWeeklyTransacted, "Weekly transacted parts", 7, ccEntity.UnitDays, 7},
	{ccEntity.TemplateMonthlyTransacted, "Monthly transacted parts", 1, ccEntity.UnitMonths, 30},
}

// EnsureDefaultPlans creates the weekly and monthly transacted-parts plans
// for the organization's default storeroom. Existing templates are left
// alone; an organization without a default storeroom gets nothing.
func (s *Service) EnsureDefaultPlans(ctx context.Context, orgID uint) ([]ccEntity.Plan, error) {
	var created []ccEntity.Plan
	err := s.run(ctx, func(tx *gorm.DB, _ *signal.Buffer) error {
		created = created[:0]
		room, err := invRepo.NewInventoryRepository(tx).DefaultStoreroom(orgID)
		if err != nil {
			return err
		}
		if room == nil {
			return nil
		}
		repo := ccRepo.NewCycleCountRepository(tx)
		for _, t := range defaultPlans {
			exists, err := repo.HasTemplatePlan(orgID, t.template)
			if err != nil {
				return err
			}
			if exists {
				continue
			}
			p := ccEntity.Plan{
				OrganizationID: orgID,
				Name:           t.name,
				TemplateType:   t.template,
				StoreroomID:    &room.ID,
				CategoryIDs:    datatypes.NewJSONType([]uint{}),
				UsedInLastDays: t.usedDays,
				TransactedOnly: true,
				FrequencyValue: t.value,
				FrequencyUnit:  t.unit,
				IsActive:       true,
			}
			if err := tx.Create(&p).Error; err != nil {
				return err
			}
			created = append(created, p)
		}
		return nil
	})
	return created, err
}
