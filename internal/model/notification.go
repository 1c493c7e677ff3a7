package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	NotificationKindInfo    = "info"
	NotificationKindBilling = "billing"
	NotificationKindSystem  = "system"
)

// Notification targets a single user, or every user of an organization when UserID is nil.
type Notification struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrganizationID *uuid.UUID `gorm:"type:uuid;index" json:"organization_id"`
	UserID         *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	Kind           string     `gorm:"type:varchar(20);not null;default:'info'" json:"kind"`
	Title          string     `gorm:"type:varchar(255);not null" json:"title"`
	Body           string     `gorm:"type:text" json:"body"`
	ReadAt         *time.Time `gorm:"index" json:"read_at"`
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`
}
