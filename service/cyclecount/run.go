package cyclecount

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"cmms.GO/core/actor"
	"cmms.GO/core/signal"
	ccEntity "cmms.GO/model/entity/cyclecount"
	ccRepo "cmms.GO/model/repository/cyclecount"
	schedRepo "cmms.GO/model/repository/scheduler"
	"cmms.GO/service/schedule"
	"cmms.GO/service/scheduler"
)

var errNotDue = errors.New("plan not due")

// RunDue is one scheduler pass over the due plans of unpaused organizations.
// A plan whose filters match nothing still advances to its next run.
func (s *Service) RunDue(ctx context.Context, paused func() bool) (scheduler.Result, error) {
	var res scheduler.Result
	pausedOrgs, err := schedRepo.NewControlRepository(s.db.WithContext(ctx)).PausedOrganizations(schedRepo.KindCycleCount)
	if err != nil {
		return res, fmt.Errorf("load paused organizations: %w", err)
	}
	today := s.today()
	plans, err := ccRepo.NewCycleCountRepository(s.db.WithContext(ctx)).DuePlans(pausedOrgs, today)
	if err != nil {
		return res, fmt.Errorf("load due plans: %w", err)
	}

	sys := actor.System(ctx)
	for _, p := range plans {
		if paused != nil && paused() {
			res.Interrupted = true
			break
		}
		res.Scanned++
		d, err := s.runPlan(sys, p.OrganizationID, p.ID, today, false)
		switch {
		case err == nil:
			res.Generated++
			s.log.Info("cycle count generated",
				zap.Uint("plan_id", p.ID),
				zap.String("count_number", d.CountNumber),
				zap.Int("lines", d.TotalLines))
		case errors.Is(err, errNotDue), errors.Is(err, errNoStock):
			res.Skipped++
		default:
			res.Fail(s.log, scheduler.NameCycleCount, p.ID, err)
		}
	}
	return res, nil
}

// RunPlanNow creates a session from a plan immediately and restarts its
// schedule from today.
func (s *Service) RunPlanNow(ctx context.Context, orgID, planID uint) (*Detail, error) {
	return s.runPlan(ctx, orgID, planID, s.today(), true)
}

func (s *Service) runPlan(ctx context.Context, orgID, planID uint, today time.Time, manual bool) (*Detail, error) {
	var out *Detail
	empty := false
	err := s.run(ctx, func(tx *gorm.DB, _ *signal.Buffer) error {
		out, empty = nil, false
		p, err := ccRepo.NewCycleCountRepository(tx).LockPlan(orgID, planID)
		if err != nil {
			return err
		}
		if !manual && (!p.IsActive || p.IsPaused || (p.NextRunDate != nil && p.NextRunDate.After(today))) {
			return errNotDue
		}
		d, err := s.createTx(ctx, tx, orgID, filters(p), &p.ID)
		switch {
		case errors.Is(err, errNoStock) && !manual:
			empty = true
		case err != nil:
			return err
		}
		next, err := schedule.AddInterval(today, p.FrequencyValue, schedule.Unit(p.FrequencyUnit))
		if err != nil {
			return err
		}
		now := s.now().UTC()
		if err := tx.Model(&ccEntity.Plan{}).Where("id = ?", p.ID).
			Updates(map[string]interface{}{"next_run_date": next, "last_run_at": now}).Error; err != nil {
			return err
		}
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	if empty {
		return nil, errNoStock
	}
	return out, nil
}
