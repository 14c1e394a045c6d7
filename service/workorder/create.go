package workorder

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"cmms.GO/core/actor"
	"cmms.GO/core/apperr"
	"cmms.GO/core/signal"
	woEntity "cmms.GO/model/entity/workorder"
	assetRepo "cmms.GO/model/repository/asset"
	"cmms.GO/model/repository/sequence"
)

type TaskInput struct {
	Sequence       int     `json:"sequence"`
	Description    string  `json:"description"`
	EstimatedHours float64 `json:"estimated_hours"`
}

type CreateInput struct {
	Title             string            `json:"title"`
	Description       string            `json:"description"`
	Priority          woEntity.Priority `json:"priority"`
	WorkType          woEntity.Type     `json:"work_type"`
	AssetID           *uint             `json:"asset_id"`
	SecondaryAssetIDs []uint            `json:"secondary_asset_ids"`
	PMID              *uint             `json:"-"`
	AssignedTo        *uint             `json:"assigned_to"`
	AssignedGroup     string            `json:"assigned_group"`
	DueDate           *time.Time        `json:"due_date"`
	ScheduledStart    *time.Time        `json:"scheduled_start"`
	EstimatedHours    float64           `json:"estimated_hours"`
	EstimatedCost     decimal.Decimal   `json:"estimated_cost"`
	// Status is the initial status: DRAFT (default), WAITING_APPROVAL or APPROVED.
	Status woEntity.Status `json:"status"`
	Tasks  []TaskInput     `json:"tasks"`
}

func (in *CreateInput) normalize(requireApproval bool, admin bool) error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return apperr.Validation("title", "is required")
	}
	if in.Priority == "" {
		in.Priority = woEntity.PriorityMedium
	}
	if !in.Priority.Valid() {
		return apperr.Validation("priority", "unknown priority %q", in.Priority)
	}
	if in.WorkType == "" {
		in.WorkType = woEntity.TypeCorrective
	}
	if !in.WorkType.Valid() {
		return apperr.Validation("work_type", "unknown work type %q", in.WorkType)
	}
	switch in.Status {
	case "":
		in.Status = woEntity.StatusDraft
	case woEntity.StatusDraft, woEntity.StatusWaitingApproval:
	case woEntity.StatusApproved:
		// PM work orders start at the PM_WO_STATUS policy instead.
		if requireApproval && !admin && in.PMID == nil {
			return apperr.Validation("status", "work orders need approval before they can start APPROVED")
		}
	default:
		return apperr.Validation("status", "a work order cannot be created as %s", in.Status)
	}
	if in.EstimatedHours < 0 {
		return apperr.Validation("estimated_hours", "must not be negative")
	}
	if in.EstimatedCost.IsNegative() {
		return apperr.Validation("estimated_cost", "must not be negative")
	}
	for i, t := range in.Tasks {
		if strings.TrimSpace(t.Description) == "" {
			return apperr.Validation("tasks", "task %d has no description", i+1)
		}
	}
	return nil
}

// Create opens a work order by hand.
func (s *Service) Create(ctx context.Context, orgID uint, in CreateInput) (*woEntity.WorkOrder, error) {
	var out *woEntity.WorkOrder
	err := s.run(ctx, func(tx *gorm.DB, _ *signal.Buffer) error {
		wo, err := s.CreateTx(ctx, tx, orgID, in)
		out = wo
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("work order created",
		zap.String("wo_number", out.WONumber),
		zap.Uint("organization_id", orgID),
		zap.String("status", string(out.Status)))
	return out, nil
}

// CreateTx inserts the work order with its tasks and secondary assets inside
// tx. The number is drawn from the same transaction.
func (s *Service) CreateTx(ctx context.Context, tx *gorm.DB, orgID uint, in CreateInput) (*woEntity.WorkOrder, error) {
	if err := in.normalize(s.opts.RequireApproval, actor.IsAdmin(ctx)); err != nil {
		return nil, err
	}
	assets := assetRepo.NewAssetRepository(tx)
	if in.AssetID != nil {
		if _, err := assets.Find(orgID, *in.AssetID); err != nil {
			return nil, err
		}
	}
	secondary := dedupe(in.SecondaryAssetIDs, in.AssetID)
	if n, err := assets.CountExisting(orgID, secondary); err != nil {
		return nil, err
	} else if int(n) != len(secondary) {
		return nil, apperr.Validation("secondary_asset_ids", "unknown asset in list")
	}

	number, err := sequence.NextNumber(tx, orgID, sequence.WorkOrder)
	if err != nil {
		return nil, err
	}
	wo := &woEntity.WorkOrder{
		OrganizationID: orgID,
		WONumber:       number,
		Title:          in.Title,
		Description:    in.Description,
		Status:         in.Status,
		Priority:       in.Priority,
		WorkType:       in.WorkType,
		AssetID:        in.AssetID,
		PMID:           in.PMID,
		AssignedTo:     in.AssignedTo,
		AssignedGroup:  in.AssignedGroup,
		DueDate:        in.DueDate,
		ScheduledStart: in.ScheduledStart,
		EstimatedHours: in.EstimatedHours,
		EstimatedCost:  in.EstimatedCost,
		Version:        1,
		CreatedBy:      actor.UserID(ctx),
	}
	if err := tx.Create(wo).Error; err != nil {
		return nil, err
	}
	for _, id := range secondary {
		if err := tx.Create(&woEntity.WorkOrderAsset{WorkOrderID: wo.ID, AssetID: id}).Error; err != nil {
			return nil, err
		}
	}
	for i, t := range in.Tasks {
		seq := t.Sequence
		if seq == 0 {
			seq = (i + 1) * 10
		}
		task := woEntity.Task{
			OrganizationID: orgID,
			WorkOrderID:    wo.ID,
			Sequence:       seq,
			Description:    strings.TrimSpace(t.Description),
			EstimatedHours: t.EstimatedHours,
		}
		if err := tx.Create(&task).Error; err != nil {
			return nil, err
		}
	}
	hist := woEntity.StatusHistory{
		OrganizationID: orgID,
		WorkOrderID:    wo.ID,
		ToStatus:       wo.Status,
		ChangedBy:      actor.UserID(ctx),
		Notes:          "created",
		ChangedAt:      s.now().UTC(),
	}
	if err := tx.Create(&hist).Error; err != nil {
		return nil, err
	}
	return wo, nil
}

func dedupe(ids []uint, primary *uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if seen[id] || (primary != nil && *primary == id) {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
