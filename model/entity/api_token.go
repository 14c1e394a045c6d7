package entity

import "time"

const (
	RoleOperator = "operator"
	RoleAdmin    = "admin"
)

// ApiToken authenticates API callers when AUTH_TYPE=token.
type ApiToken struct {
	ID             uint       `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OrganizationID uint       `gorm:"column:organization_id;not null;index" json:"organization_id"`
	UserID         *uint      `gorm:"column:user_id" json:"user_id,omitempty"`
	Name           string     `gorm:"column:name;type:varchar(64)" json:"name"`
	Token          string     `gorm:"column:token;type:varchar(64);not null;uniqueIndex" json:"-"`
	Role           string     `gorm:"column:role;type:varchar(16);not null;default:operator" json:"role"`
	Revoked        bool       `gorm:"column:revoked;not null;default:false" json:"revoked"`
	ExpiresAt      *time.Time `gorm:"column:expires_at" json:"expires_at,omitempty"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (ApiToken) TableName() string {
	return "api_tokens"
}
