package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is scoped to at most one organization. OrganizationID stays nil while onboarding.
type User struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Username       string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"username"`
	Email          string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password       string         `gorm:"type:varchar(255);not null" json:"-"`
	OrganizationID *uuid.UUID     `gorm:"type:uuid;index" json:"organization_id"`
	ProfileID      *uuid.UUID     `gorm:"type:uuid;index" json:"profile_id"`
	Role           string         `gorm:"type:varchar(50);not null;default:'member'" json:"role"` // display tag only
	IsSuperAdmin   bool           `gorm:"not null;default:false" json:"is_super_admin"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}
