package auth

import (
	"time"

	"gorm.io/gorm"

	entity "cmms.GO/model/entity"
)

type AuthRepository struct {
	db *gorm.DB
}

func NewAuthRepository(db *gorm.DB) *AuthRepository {
	return &AuthRepository{db: db}
}

// FindActiveToken returns a non-revoked, unexpired token by its token string.
func (r *AuthRepository) FindActiveToken(token string) (*entity.ApiToken, error) {
	var t entity.ApiToken
	err := r.db.Where("token = ? AND revoked = ?", token, false).
		Where("expires_at IS NULL OR expires_at > ?", time.Now().UTC()).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *AuthRepository) Create(t *entity.ApiToken) error {
	return r.db.Create(t).Error
}

func (r *AuthRepository) Revoke(id uint) error {
	return r.db.Model(&entity.ApiToken{}).Where("id = ?", id).Update("revoked", true).Error
}
