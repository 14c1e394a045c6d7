package workorder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"cmms.GO/core/actor"
	"cmms.GO/core/apperr"
	"cmms.GO/core/signal"
	assetEntity "cmms.GO/model/entity/asset"
	pmEntity "cmms.GO/model/entity/pm"
	woEntity "cmms.GO/model/entity/workorder"
	assetRepo "cmms.GO/model/repository/asset"
	woRepo "cmms.GO/model/repository/workorder"
	"cmms.GO/service/inventory"
)

// TransitionInput carries the optional payload of a status change. The
// completion fields are read only when moving to COMPLETED.
type TransitionInput struct {
	Notes           string     `json:"notes"`
	ScheduledStart  *time.Time `json:"scheduled_start"`
	CompletionNotes string     `json:"completion_notes"`
	FailureCode     string     `json:"failure_code"`
	FailureCause    string     `json:"failure_cause"`
	FailureRemedy   string     `json:"failure_remedy"`
	DowntimeHours   float64    `json:"downtime_hours"`
	AssetWasDown    bool       `json:"asset_was_down"`
}

// Transition moves a work order along one edge of the state machine. A
// rejected transition leaves the row untouched.
func (s *Service) Transition(ctx context.Context, orgID, woID uint, to woEntity.Status, in TransitionInput) (*woEntity.WorkOrder, error) {
	if !to.Valid() {
		return nil, apperr.Validation("status", "unknown status %q", to)
	}
	var (
		out  *woEntity.WorkOrder
		from woEntity.Status
	)
	err := s.run(ctx, func(tx *gorm.DB, buf *signal.Buffer) error {
		repo := woRepo.NewWorkOrderRepository(tx)
		wo, err := repo.Lock(orgID, woID)
		if err != nil {
			return err
		}
		from = wo.Status
		if !CanTransition(wo.Status, to, s.opts.RequireApproval) {
			return &apperr.InvalidTransitionError{
				Entity: "work order " + wo.WONumber,
				From:   string(wo.Status),
				To:     string(to),
			}
		}

		now := s.now().UTC()
		fields := map[string]interface{}{"status": to}
		switch to {
		case woEntity.StatusScheduled:
			if in.ScheduledStart != nil {
				fields["scheduled_start"] = *in.ScheduledStart
				wo.ScheduledStart = in.ScheduledStart
			}
		case woEntity.StatusInProgress:
			if wo.ActualStart == nil {
				fields["actual_start"] = now
				wo.ActualStart = &now
			}
		case woEntity.StatusCompleted:
			if err := s.complete(ctx, tx, wo, in, now, fields, buf); err != nil {
				return err
			}
		}

		if err := repo.Update(wo, fields); err != nil {
			return err
		}
		wo.Status = to

		hist := woEntity.StatusHistory{
			OrganizationID: orgID,
			WorkOrderID:    wo.ID,
			FromStatus:     from,
			ToStatus:       to,
			ChangedBy:      actor.UserID(ctx),
			Notes:          in.Notes,
			ChangedAt:      now,
		}
		if err := tx.Create(&hist).Error; err != nil {
			return err
		}

		if to == woEntity.StatusCompleted || to == woEntity.StatusCancelled {
			if err := releaseTx(tx, wo); err != nil {
				return err
			}
			if err := s.fireClose(tx, CloseEvent{WorkOrder: wo, Status: to, At: now}); err != nil {
				return err
			}
		}
		buf.Add(statusSignal(wo, from))
		out = wo
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("work order transitioned",
		zap.String("wo_number", out.WONumber),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	return out, nil
}

// complete freezes costs from the transaction rows and records downtime.
func (s *Service) complete(ctx context.Context, tx *gorm.DB, wo *woEntity.WorkOrder, in TransitionInput, now time.Time, fields map[string]interface{}, buf *signal.Buffer) error {
	if strings.TrimSpace(in.CompletionNotes) == "" {
		return apperr.Validation("completion_notes", "required to complete a work order")
	}
	if in.DowntimeHours < 0 {
		return apperr.Validation("downtime_hours", "must not be negative")
	}
	repo := woRepo.NewWorkOrderRepository(tx)
	labor, err := repo.Labor(wo.ID)
	if err != nil {
		return err
	}
	materials, err := repo.Materials(wo.ID)
	if err != nil {
		return err
	}
	hours, laborCost, materialCost := 0.0, decimal.Zero, decimal.Zero
	for _, l := range labor {
		hours += l.Hours
		laborCost = laborCost.Add(l.TotalCost)
	}
	for _, m := range materials {
		materialCost = materialCost.Add(m.SignedCost())
	}
	total := laborCost.Add(materialCost)

	wo.ActualLaborHours, wo.ActualLaborCost, wo.ActualMaterialCost, wo.TotalCost = hours, laborCost, materialCost, total
	wo.CompletionNotes = in.CompletionNotes
	wo.AssetWasDown = in.AssetWasDown
	wo.DowntimeHours = in.DowntimeHours
	wo.ActualEnd = &now
	wo.CompletedBy = actor.UserID(ctx)
	fields["actual_labor_hours"] = hours
	fields["actual_labor_cost"] = laborCost
	fields["actual_material_cost"] = materialCost
	fields["total_cost"] = total
	fields["completion_notes"] = in.CompletionNotes
	fields["failure_code"] = in.FailureCode
	fields["failure_cause"] = in.FailureCause
	fields["failure_remedy"] = in.FailureRemedy
	fields["downtime_hours"] = in.DowntimeHours
	fields["asset_was_down"] = in.AssetWasDown
	fields["actual_end"] = now
	fields["completed_by"] = wo.CompletedBy

	if in.AssetWasDown && wo.AssetID != nil {
		d := &assetEntity.AssetDowntime{
			OrganizationID: wo.OrganizationID,
			AssetID:        *wo.AssetID,
			WorkOrderID:    wo.ID,
			Hours:          in.DowntimeHours,
			RecordedAt:     now,
		}
		if err := assetRepo.NewAssetRepository(tx).RecordDowntime(d); err != nil {
			return err
		}
		buf.Add(signal.New(signal.DowntimeRecorded, wo.OrganizationID, "asset", *wo.AssetID,
			fmt.Sprintf("%s recorded %.2f hours of downtime", wo.WONumber, in.DowntimeHours)).
			With("work_order_id", wo.ID).
			With("hours", in.DowntimeHours))
	}
	return nil
}

// releaseTx frees the PM claim and any stock still held by the work order.
func releaseTx(tx *gorm.DB, wo *woEntity.WorkOrder) error {
	if err := tx.Where("work_order_id = ?", wo.ID).Delete(&pmEntity.OpenClaim{}).Error; err != nil {
		return err
	}
	return inventory.ReleaseForWorkOrderTx(tx, wo.ID)
}

// Delete removes a work order and its children. Administrators only.
func (s *Service) Delete(ctx context.Context, orgID, woID uint) error {
	if !actor.IsAdmin(ctx) {
		return &apperr.ForbiddenError{Action: "deleting a work order"}
	}
	var number string
	err := s.run(ctx, func(tx *gorm.DB, _ *signal.Buffer) error {
		repo := woRepo.NewWorkOrderRepository(tx)
		wo, err := repo.Lock(orgID, woID)
		if err != nil {
			return err
		}
		number = wo.WONumber
		if err := releaseTx(tx, wo); err != nil {
			return err
		}
		if err := s.fireClose(tx, CloseEvent{WorkOrder: wo, Status: wo.Status, At: s.now().UTC(), Deleted: true}); err != nil {
			return err
		}
		return repo.DeleteCascade(wo.ID)
	})
	if err == nil {
		s.log.Warn("work order deleted", zap.String("wo_number", number), zap.Uint("organization_id", orgID))
	}
	return err
}
