package asset

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cmms.GO/core/apperr"
	assetEntity "cmms.GO/model/entity/asset"
)

type AssetRepository struct {
	db *gorm.DB
}

func NewAssetRepository(db *gorm.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

func (r *AssetRepository) Find(orgID, id uint) (*assetEntity.Asset, error) {
	var a assetEntity.Asset
	err := r.db.Where("organization_id = ? AND id = ?", orgID, id).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("asset", id)
	}
	return &a, err
}

// CountExisting returns how many of ids belong to the organization.
func (r *AssetRepository) CountExisting(orgID uint, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var n int64
	err := r.db.Model(&assetEntity.Asset{}).Where("organization_id = ? AND id IN ?", orgID, ids).Count(&n).Error
	return n, err
}

func (r *AssetRepository) Create(a *assetEntity.Asset) error {
	return r.db.Create(a).Error
}

// Meter returns a meter's latest reading, nil when the meter was never read.
func (r *AssetRepository) Meter(assetID uint, name string) (*assetEntity.AssetMeter, error) {
	var m assetEntity.AssetMeter
	err := r.db.Where("asset_id = ? AND name = ?", assetID, name).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &m, err
}

// LockMeter loads a meter FOR UPDATE, creating it at reading 0 when missing.
func (r *AssetRepository) LockMeter(orgID, assetID uint, name string) (*assetEntity.AssetMeter, error) {
	seed := assetEntity.AssetMeter{OrganizationID: orgID, AssetID: assetID, Name: name}
	if err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return nil, err
	}
	var m assetEntity.AssetMeter
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("asset_id = ? AND name = ?", assetID, name).First(&m).Error
	return &m, err
}

func (r *AssetRepository) Meters(assetID uint) ([]assetEntity.AssetMeter, error) {
	var out []assetEntity.AssetMeter
	err := r.db.Where("asset_id = ?", assetID).Order("name").Find(&out).Error
	return out, err
}

// MeterReadings returns latest readings keyed by asset id for one meter name.
func (r *AssetRepository) MeterReadings(orgID uint, name string, assetIDs []uint) (map[uint]float64, error) {
	out := make(map[uint]float64, len(assetIDs))
	if len(assetIDs) == 0 {
		return out, nil
	}
	var meters []assetEntity.AssetMeter
	err := r.db.Where("organization_id = ? AND name = ? AND asset_id IN ?", orgID, name, assetIDs).Find(&meters).Error
	for _, m := range meters {
		out[m.AssetID] = m.Reading
	}
	return out, err
}

func (r *AssetRepository) RecordDowntime(d *assetEntity.AssetDowntime) error {
	return r.db.Create(d).Error
}

func (r *AssetRepository) Downtime(assetID uint) ([]assetEntity.AssetDowntime, error) {
	var out []assetEntity.AssetDowntime
	err := r.db.Where("asset_id = ?", assetID).Order("id").Find(&out).Error
	return out, err
}
