package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Organization is the tenant boundary. Users, properties, units and tenants all hang off it.
type Organization struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name         string     `gorm:"type:varchar(255);not null" json:"name"`
	PlanID       *uuid.UUID `gorm:"type:uuid;index" json:"plan_id"`
	Plan         *Plan      `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
	IsConfigured bool       `gorm:"default:false" json:"is_configured"` // flips once setup completes
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Plan is a billing tier. The billing provider itself is opaque; only the price reference is kept.
type Plan struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name           string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"` // e.g. "starter"
	DisplayName    string          `gorm:"type:varchar(255)" json:"display_name"`
	MonthlyPrice   decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"monthly_price"`
	BillingPriceID string          `gorm:"type:varchar(255)" json:"billing_price_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Feature is a named capability that plans may enable.
type Feature struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Key         string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"key"` // e.g. "advanced_analytics"
	Category    string    `gorm:"type:varchar(50);not null;index" json:"category"`
	DisplayName string    `gorm:"type:varchar(255);not null" json:"display_name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// PlanFeature joins plans and features.
type PlanFeature struct {
	ID        uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PlanID    uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:uk_plan_feature,priority:1" json:"plan_id"`
	FeatureID uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:uk_plan_feature,priority:2" json:"feature_id"`
	Feature   *Feature           `gorm:"foreignKey:FeatureID" json:"feature,omitempty"`
	IsEnabled bool               `gorm:"not null;default:false" json:"is_enabled"`
	Limits    []PlanFeatureLimit `gorm:"foreignKey:PlanFeatureID;constraint:OnDelete:CASCADE;" json:"limits"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// PlanFeatureLimit is a numeric cap keyed by name, e.g. "max_units" = 50.
type PlanFeatureLimit struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PlanFeatureID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uk_plan_feature_limit,priority:1" json:"plan_feature_id"`
	Name          string          `gorm:"type:varchar(100);not null;uniqueIndex:uk_plan_feature_limit,priority:2" json:"name"`
	Value         decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"value"`
}
