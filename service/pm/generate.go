package pm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"cmms.GO/core/actor"
	"cmms.GO/core/apperr"
	"cmms.GO/core/cache"
	"cmms.GO/core/signal"
	pmEntity "cmms.GO/model/entity/pm"
	woEntity "cmms.GO/model/entity/workorder"
	assetRepo "cmms.GO/model/repository/asset"
	pmRepo "cmms.GO/model/repository/pm"
	schedRepo "cmms.GO/model/repository/scheduler"
	"cmms.GO/service/schedule"
	"cmms.GO/service/scheduler"
	"cmms.GO/service/workorder"
)

var (
	errNotDue      = errors.New("pm not due")
	errAlreadyOpen = errors.New("pm already has an open work order")
)

// RunDue is one scheduler pass: every active PM of an unpaused organization
// whose trigger is due gets a work order.
func (s *Service) RunDue(ctx context.Context, paused func() bool) (scheduler.Result, error) {
	var res scheduler.Result
	pausedOrgs, err := schedRepo.NewControlRepository(s.db.WithContext(ctx)).PausedOrganizations(schedRepo.KindPM)
	if err != nil {
		return res, fmt.Errorf("load paused organizations: %w", err)
	}
	defs, err := pmRepo.NewPMRepository(s.db.WithContext(ctx)).ScanCandidates(pausedOrgs)
	if err != nil {
		return res, fmt.Errorf("load pm candidates: %w", err)
	}

	today := s.today()
	sys := actor.System(ctx)
	for _, d := range defs {
		if paused != nil && paused() {
			res.Interrupted = true
			break
		}
		res.Scanned++
		wo, err := s.generate(sys, d.OrganizationID, d.ID, today, false)
		switch {
		case err == nil:
			res.Generated++
			s.log.Info("pm work order generated",
				zap.String("pm_number", d.PMNumber),
				zap.String("wo_number", wo.WONumber))
		case errors.Is(err, errNotDue), errors.Is(err, errAlreadyOpen):
			res.Skipped++
		default:
			res.Fail(s.log, scheduler.NamePM, d.ID, err)
		}
	}
	if !res.Interrupted {
		s.emitDueSignals(ctx, pausedOrgs, today)
	}
	return res, nil
}

// GenerateNow creates the work order for a PM regardless of its trigger.
// The one-open-work-order rule still applies.
func (s *Service) GenerateNow(ctx context.Context, orgID, pmID uint) (*woEntity.WorkOrder, error) {
	wo, err := s.generate(ctx, orgID, pmID, s.today(), true)
	if errors.Is(err, errAlreadyOpen) {
		return nil, apperr.Validation("id", "pm %d already has an open work order", pmID)
	}
	return wo, err
}

func (s *Service) generate(ctx context.Context, orgID, pmID uint, today time.Time, manual bool) (*woEntity.WorkOrder, error) {
	var out *woEntity.WorkOrder
	err := s.run(ctx, func(tx *gorm.DB, _ *signal.Buffer) error {
		repo := pmRepo.NewPMRepository(tx)
		d, err := repo.Lock(orgID, pmID)
		if err != nil {
			return err
		}
		if !d.IsActive {
			if manual {
				return apperr.Validation("id", "%s is not active", d.PMNumber)
			}
			return errNotDue
		}
		reading, err := s.reading(tx, d)
		if err != nil {
			return err
		}
		if !manual {
			if d.IsPaused || !window(d.SeasonalStartMonth, d.SeasonalEndMonth, d.ExcludedDays.Data()).Allows(today) {
				return errNotDue
			}
			due, err := isDue(d, today, reading, s.opts.Location)
			if err != nil {
				return err
			}
			if !due {
				return errNotDue
			}
		}

		now := s.now().UTC()
		claimed, err := repo.Claim(d, now)
		if err != nil {
			return err
		}
		if !claimed {
			return errAlreadyOpen
		}

		in := workorder.CreateInput{
			Title:          d.Name,
			Description:    d.Description,
			Priority:       woEntity.Priority(d.Priority),
			WorkType:       woEntity.TypePreventive,
			AssetID:        d.AssetID,
			PMID:           &d.ID,
			AssignedTo:     d.AssignedTo,
			AssignedGroup:  d.AssignedGroup,
			DueDate:        d.NextDueDate,
			EstimatedHours: d.EstimatedHours,
			EstimatedCost:  d.EstimatedCost,
			Status:         s.opts.InitialStatus,
		}
		if in.DueDate == nil {
			in.DueDate = &today
		}
		if d.JobPlanID != nil {
			tasks, err := repo.JobPlanTasks(*d.JobPlanID)
			if err != nil {
				return err
			}
			for _, t := range tasks {
				in.Tasks = append(in.Tasks, workorder.TaskInput{Sequence: t.Sequence, Description: t.Description, EstimatedHours: t.EstimatedHours})
			}
		}
		wo, err := s.wo.CreateTx(ctx, tx, orgID, in)
		if err != nil {
			return err
		}
		if err := repo.AttachClaim(d.ID, wo.ID); err != nil {
			return err
		}

		fields, err := s.advance(d, today, reading)
		if err != nil {
			return err
		}
		fields["last_wo_date"] = now
		fields["last_wo_id"] = wo.ID
		if err := repo.Update(d.ID, fields); err != nil {
			return err
		}
		out = wo
		return nil
	})
	return out, err
}

func isDue(d *pmEntity.Definition, today time.Time, reading *float64, loc *time.Location) (bool, error) {
	trigger, err := schedule.NewTrigger(schedule.TriggerType(d.TriggerType), d.ConditionOperator, d.ConditionValue)
	if err != nil {
		return false, err
	}
	var next *time.Time
	if d.NextDueDate != nil {
		day := schedule.Day(*d.NextDueDate, loc)
		next = &day
	}
	return trigger.IsDue(schedule.DueContext{
		Today:        today,
		NextDue:      next,
		LeadTimeDays: d.LeadTimeDays,
		Reading:      reading,
		Threshold:    schedule.MeterThreshold(d.LastMeterReading, d.NextMeterReading, d.MeterInterval),
	}), nil
}

// reading returns the PM's meter value, nil when it has no meter or the
// meter was never read.
func (s *Service) reading(tx *gorm.DB, d *pmEntity.Definition) (*float64, error) {
	if !d.TriggerType.UsesMeter() || d.AssetID == nil || d.MeterName == "" {
		return nil, nil
	}
	m, err := assetRepo.NewAssetRepository(tx).Meter(*d.AssetID, d.MeterName)
	if err != nil || m == nil {
		return nil, err
	}
	v := m.Reading
	return &v, nil
}

// advance computes the schedule fields after a generation. FIXED steps to
// the next anchor occurrence, FLOATING provisionally counts from today and
// is re-anchored when the work order completes.
func (s *Service) advance(d *pmEntity.Definition, today time.Time, reading *float64) (map[string]interface{}, error) {
	fields := map[string]interface{}{}
	if d.TriggerType.UsesTime() {
		unit := schedule.Unit(d.FrequencyUnit)
		if d.ScheduleType == pmEntity.ScheduleFloating {
			next, err := schedule.ComputeNextDue(today, d.FrequencyValue, unit, schedule.Floating, &today)
			if err != nil {
				return nil, err
			}
			fields["next_due_date"] = next
			fields["anchor_date"] = next
			fields["occurrence"] = 0
		} else {
			anchor := today
			if d.AnchorDate != nil {
				anchor = schedule.Day(*d.AnchorDate, s.opts.Location)
			} else if d.NextDueDate != nil {
				anchor = schedule.Day(*d.NextDueDate, s.opts.Location)
			}
			if d.FrequencyValue <= 0 {
				return nil, apperr.Validation("frequency_value", "must be positive, got %d", d.FrequencyValue)
			}
			k := d.Occurrence + 1
			next, err := schedule.Occurrence(anchor, k, d.FrequencyValue, unit)
			if err != nil {
				return nil, err
			}
			fields["next_due_date"] = next
			fields["anchor_date"] = anchor
			fields["occurrence"] = k
		}
	}
	if s.opts.BaselineReset == BaselineOnGeneration {
		resetBaseline(d, reading, fields)
	}
	return fields, nil
}

func resetBaseline(d *pmEntity.Definition, reading *float64, fields map[string]interface{}) {
	if reading == nil || !d.TriggerType.UsesMeter() || d.TriggerType == pmEntity.TriggerCondition {
		return
	}
	fields["last_meter_reading"] = *reading
	fields["next_meter_reading"] = *reading + d.MeterInterval
}

// onWorkOrderClosed runs when a generated work order completes.
func (s *Service) onWorkOrderClosed(tx *gorm.DB, ev workorder.CloseEvent) error {
	wo := ev.WorkOrder
	if ev.Deleted || ev.Status != woEntity.StatusCompleted || wo.PMID == nil {
		return nil
	}
	repo := pmRepo.NewPMRepository(tx)
	d, err := repo.Lock(wo.OrganizationID, *wo.PMID)
	var nf *apperr.NotFoundError
	if errors.As(err, &nf) {
		return nil
	}
	if err != nil {
		return err
	}

	fields := map[string]interface{}{}
	if d.TriggerType.UsesTime() && d.ScheduleType == pmEntity.ScheduleFloating {
		completed := schedule.Day(ev.At, s.opts.Location)
		next, err := schedule.ComputeNextDue(completed, d.FrequencyValue, schedule.Unit(d.FrequencyUnit), schedule.Floating, &completed)
		if err != nil {
			return err
		}
		fields["next_due_date"] = next
		fields["anchor_date"] = next
		fields["occurrence"] = 0
	}
	if s.opts.BaselineReset == BaselineOnCompletion {
		reading, err := s.reading(tx, d)
		if err != nil {
			return err
		}
		resetBaseline(d, reading, fields)
	}
	if len(fields) == 0 {
		return nil
	}
	return repo.Update(d.ID, fields)
}

func (s *Service) emitDueSignals(ctx context.Context, pausedOrgs map[uint]bool, today time.Time) {
	defs, err := pmRepo.NewPMRepository(s.db.WithContext(ctx)).ScanCandidates(pausedOrgs)
	if err != nil {
		s.log.Warn("due signal scan failed", zap.Error(err))
		return
	}
	for _, d := range defs {
		if sig, ok := dueSignal(&d, today, s.opts.Location); ok {
			s.sink.Emit(ctx, sig)
		}
	}
}

func dueSignal(d *pmEntity.Definition, today time.Time, loc *time.Location) (signal.Signal, bool) {
	if d.NextDueDate == nil {
		return signal.Signal{}, false
	}
	due := schedule.Day(*d.NextDueDate, loc)
	dueStr := due.Format("2006-01-02")
	var sig signal.Signal
	switch {
	case due.Before(today):
		days := int(today.Sub(due).Hours() / 24)
		sig = signal.New(signal.PMOverdue, d.OrganizationID, "pm", d.ID,
			fmt.Sprintf("%s %s is %d days overdue", d.PMNumber, d.Name, days)).
			With("days_overdue", days)
	case d.WarningDays > 0 && !due.After(today.AddDate(0, 0, d.WarningDays)):
		sig = signal.New(signal.PMDueSoon, d.OrganizationID, "pm", d.ID,
			fmt.Sprintf("%s %s is due on %s", d.PMNumber, d.Name, dueStr))
	default:
		return signal.Signal{}, false
	}
	sig = sig.With("pm_number", d.PMNumber).With("next_due_date", dueStr)
	sig.DedupeKey = cache.Key(sig.Kind, d.OrganizationID, d.ID, dueStr)
	return sig, true
}

// ListDue returns active PMs due within daysAhead days, overdue ones first.
func (s *Service) ListDue(ctx context.Context, orgID uint, daysAhead int) ([]pmEntity.Definition, error) {
	if daysAhead < 0 {
		return nil, apperr.Validation("days", "must not be negative")
	}
	until := s.today().AddDate(0, 0, daysAhead)
	return pmRepo.NewPMRepository(s.db.WithContext(ctx)).DueBy(orgID, until)
}
