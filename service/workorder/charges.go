package workorder

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"cmms.GO/core/actor"
	"cmms.GO/core/apperr"
	"cmms.GO/core/signal"
	woEntity "cmms.GO/model/entity/workorder"
	woRepo "cmms.GO/model/repository/workorder"
)

type LaborInput struct {
	UserID     *uint           `json:"user_id"`
	CraftCode  string          `json:"craft_code"`
	Hours      float64         `json:"hours"`
	HourlyRate decimal.Decimal `json:"hourly_rate"`
	WorkDate   *time.Time      `json:"work_date"`
	Notes      string          `json:"notes"`
}

// AddLabor books hours against a work order and rolls the cost up.
func (s *Service) AddLabor(ctx context.Context, orgID, woID uint, in LaborInput) (*woEntity.LaborTransaction, error) {
	if in.Hours <= 0 {
		return nil, apperr.Validation("hours", "must be positive")
	}
	if in.HourlyRate.IsNegative() {
		return nil, apperr.Validation("hourly_rate", "must not be negative")
	}
	var out *woEntity.LaborTransaction
	err := s.run(ctx, func(tx *gorm.DB, _ *signal.Buffer) error {
		repo := woRepo.NewWorkOrderRepository(tx)
		wo, err := repo.Lock(orgID, woID)
		if err != nil {
			return err
		}
		if err := chargeable(ctx, wo, "book labor"); err != nil {
			return err
		}
		workDate := s.now().UTC()
		if in.WorkDate != nil {
			workDate = in.WorkDate.UTC()
		}
		user := in.UserID
		if user == nil {
			user = actor.UserID(ctx)
		}
		lt := &woEntity.LaborTransaction{
			OrganizationID: orgID,
			WorkOrderID:    wo.ID,
			UserID:         user,
			CraftCode:      in.CraftCode,
			Hours:          in.Hours,
			HourlyRate:     in.HourlyRate,
			TotalCost:      in.HourlyRate.Mul(decimal.NewFromFloat(in.Hours)).Round(2),
			WorkDate:       workDate,
			Notes:          in.Notes,
		}
		if err := tx.Create(lt).Error; err != nil {
			return err
		}
		if err := repo.AddCosts(wo, lt.Hours, lt.TotalCost, decimal.Zero); err != nil {
			return err
		}
		out = lt
		return nil
	})
	return out, err
}

func chargeable(ctx context.Context, wo *woEntity.WorkOrder, action string) error {
	if wo.Status.CostsFrozen() {
		return &apperr.InvalidTransitionError{
			Entity: "work order " + wo.WONumber,
			From:   string(wo.Status),
			To:     action,
			Reason: "costs are frozen once the work order is completed",
		}
	}
	if wo.Status.IsChargeable() || actor.IsAdmin(ctx) {
		return nil
	}
	return &apperr.InvalidTransitionError{
		Entity: "work order " + wo.WONumber,
		From:   string(wo.Status),
		To:     action,
		Reason: "charges are accepted only while IN_PROGRESS or ON_HOLD",
	}
}

func (s *Service) AddTask(ctx context.Context, orgID, woID uint, in TaskInput) (*woEntity.Task, error) {
	if strings.TrimSpace(in.Description) == "" {
		return nil, apperr.Validation("description", "is required")
	}
	var out *woEntity.Task
	err := s.run(ctx, func(tx *gorm.DB, _ *signal.Buffer) error {
		wo, err := woRepo.NewWorkOrderRepository(tx).Find(orgID, woID)
		if err != nil {
			return err
		}
		if wo.Status.IsTerminal() {
			return &apperr.InvalidTransitionError{Entity: "work order " + wo.WONumber, From: string(wo.Status), To: "add task"}
		}
		seq := in.Sequence
		if seq == 0 {
			var max int
			if err := tx.Model(&woEntity.Task{}).Where("work_order_id = ?", wo.ID).
				Select("COALESCE(MAX(sequence), 0)").Scan(&max).Error; err != nil {
				return err
			}
			seq = max + 10
		}
		t := &woEntity.Task{
			OrganizationID: orgID,
			WorkOrderID:    wo.ID,
			Sequence:       seq,
			Description:    strings.TrimSpace(in.Description),
			EstimatedHours: in.EstimatedHours,
		}
		out = t
		return tx.Create(t).Error
	})
	return out, err
}

func (s *Service) CompleteTask(ctx context.Context, orgID, woID, taskID uint) (*woEntity.Task, error) {
	var out woEntity.Task
	err := s.run(ctx, func(tx *gorm.DB, _ *signal.Buffer) error {
		wo, err := woRepo.NewWorkOrderRepository(tx).Find(orgID, woID)
		if err != nil {
			return err
		}
		if wo.Status.IsTerminal() {
			return &apperr.InvalidTransitionError{Entity: "work order " + wo.WONumber, From: string(wo.Status), To: "complete task"}
		}
		err = tx.Where("work_order_id = ? AND id = ?", wo.ID, taskID).First(&out).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("task", taskID)
		}
		if err != nil || out.IsCompleted {
			return err
		}
		now := s.now().UTC()
		out.IsCompleted = true
		out.CompletedAt = &now
		out.CompletedBy = actor.UserID(ctx)
		return tx.Model(&woEntity.Task{}).Where("id = ?", out.ID).Updates(map[string]interface{}{
			"is_completed": true,
			"completed_at": now,
			"completed_by": out.CompletedBy,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) AddComment(ctx context.Context, orgID, woID uint, body string) (*woEntity.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperr.Validation("body", "is required")
	}
	if _, err := woRepo.NewWorkOrderRepository(s.db.WithContext(ctx)).Find(orgID, woID); err != nil {
		return nil, err
	}
	c := &woEntity.Comment{
		OrganizationID: orgID,
		WorkOrderID:    woID,
		UserID:         actor.UserID(ctx),
		Body:           body,
	}
	return c, s.db.WithContext(ctx).Create(c).Error
}
