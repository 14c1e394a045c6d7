package workorder

import (
	"context"

	woEntity "cmms.GO/model/entity/workorder"
	woRepo "cmms.GO/model/repository/workorder"
)

// Detail is a work order with its children.
type Detail struct {
	*woEntity.WorkOrder
	SecondaryAssetIDs []uint                         `json:"secondary_asset_ids"`
	Tasks             []woEntity.Task                `json:"tasks"`
	Comments          []woEntity.Comment             `json:"comments"`
	Labor             []woEntity.LaborTransaction    `json:"labor"`
	Materials         []woEntity.MaterialTransaction `json:"materials"`
	History           []woEntity.StatusHistory       `json:"history"`
	AllowedNext       []woEntity.Status              `json:"allowed_transitions"`
}

func (s *Service) Get(ctx context.Context, orgID, woID uint) (*woEntity.WorkOrder, error) {
	return woRepo.NewWorkOrderRepository(s.db.WithContext(ctx)).Find(orgID, woID)
}

func (s *Service) Detail(ctx context.Context, orgID, woID uint) (*Detail, error) {
	repo := woRepo.NewWorkOrderRepository(s.db.WithContext(ctx))
	wo, err := repo.Find(orgID, woID)
	if err != nil {
		return nil, err
	}
	d := &Detail{WorkOrder: wo, AllowedNext: AllowedTransitions(wo.Status, s.opts.RequireApproval)}
	if d.SecondaryAssetIDs, err = repo.SecondaryAssets(wo.ID); err != nil {
		return nil, err
	}
	if d.Tasks, err = repo.Tasks(wo.ID); err != nil {
		return nil, err
	}
	if d.Comments, err = repo.Comments(wo.ID); err != nil {
		return nil, err
	}
	if d.Labor, err = repo.Labor(wo.ID); err != nil {
		return nil, err
	}
	if d.Materials, err = repo.Materials(wo.ID); err != nil {
		return nil, err
	}
	if d.History, err = repo.History(wo.ID); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) List(ctx context.Context, orgID uint, f woRepo.ListFilter) ([]woEntity.WorkOrder, int64, error) {
	return woRepo.NewWorkOrderRepository(s.db.WithContext(ctx)).List(orgID, f)
}

func (s *Service) History(ctx context.Context, orgID, woID uint) ([]woEntity.StatusHistory, error) {
	repo := woRepo.NewWorkOrderRepository(s.db.WithContext(ctx))
	if _, err := repo.Find(orgID, woID); err != nil {
		return nil, err
	}
	return repo.History(woID)
}
