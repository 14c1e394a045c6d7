// Package asset manages assets and their meter readings.
package asset

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"cmms.GO/core/apperr"
	assetEntity "cmms.GO/model/entity/asset"
	assetRepo "cmms.GO/model/repository/asset"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger
	now func() time.Time
}

func NewService(db *gorm.DB, log *zap.Logger) *Service {
	return &Service{db: db, log: log.Named("asset"), now: time.Now}
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) Create(ctx context.Context, a *assetEntity.Asset) error {
	a.AssetNum = strings.TrimSpace(a.AssetNum)
	if a.AssetNum == "" {
		return apperr.Validation("asset_num", "is required")
	}
	if a.Name == "" {
		a.Name = a.AssetNum
	}
	if a.Status == "" {
		a.Status = assetEntity.StatusOperating
	}
	if a.Criticality == "" {
		a.Criticality = assetEntity.CriticalityMedium
	}
	return assetRepo.NewAssetRepository(s.db.WithContext(ctx)).Create(a)
}

func (s *Service) Get(ctx context.Context, orgID, id uint) (*assetEntity.Asset, error) {
	return assetRepo.NewAssetRepository(s.db.WithContext(ctx)).Find(orgID, id)
}

func (s *Service) Meters(ctx context.Context, orgID, assetID uint) ([]assetEntity.AssetMeter, error) {
	repo := assetRepo.NewAssetRepository(s.db.WithContext(ctx))
	if _, err := repo.Find(orgID, assetID); err != nil {
		return nil, err
	}
	return repo.Meters(assetID)
}

func (s *Service) Downtime(ctx context.Context, orgID, assetID uint) ([]assetEntity.AssetDowntime, error) {
	repo := assetRepo.NewAssetRepository(s.db.WithContext(ctx))
	if _, err := repo.Find(orgID, assetID); err != nil {
		return nil, err
	}
	return repo.Downtime(assetID)
}

// RecordMeterReading stores a new reading. Readings never go backwards; a
// lower value than the current one is rejected.
func (s *Service) RecordMeterReading(ctx context.Context, orgID, assetID uint, name string, reading float64, at *time.Time) (*assetEntity.AssetMeter, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("name", "meter name is required")
	}
	if reading < 0 {
		return nil, apperr.Validation("reading", "must not be negative")
	}
	readAt := s.now().UTC()
	if at != nil {
		readAt = at.UTC()
	}
	var out *assetEntity.AssetMeter
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := assetRepo.NewAssetRepository(tx)
		if _, err := repo.Find(orgID, assetID); err != nil {
			return err
		}
		m, err := repo.LockMeter(orgID, assetID, name)
		if err != nil {
			return err
		}
		if reading < m.Reading {
			return apperr.Validation("reading", "%v is below the current reading %v of meter %s", reading, m.Reading, name)
		}
		m.Reading = reading
		m.ReadAt = readAt
		out = m
		return tx.Model(&assetEntity.AssetMeter{}).Where("id = ?", m.ID).
			Updates(map[string]interface{}{"reading": reading, "read_at": readAt}).Error
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug("meter reading recorded",
		zap.Uint("asset_id", assetID), zap.String("meter", name), zap.Float64("reading", reading))
	return out, nil
}
