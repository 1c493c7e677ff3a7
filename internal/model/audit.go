package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ActionCreateProfile            = "CREATE_PROFILE"
	ActionUpdateProfile            = "UPDATE_PROFILE"
	ActionDeleteProfile            = "DELETE_PROFILE"
	ActionReplaceObjectPermissions = "REPLACE_OBJECT_PERMISSIONS"
	ActionUpsertFieldPermission    = "UPSERT_FIELD_PERMISSION"
	ActionDeleteFieldPermission    = "DELETE_FIELD_PERMISSION"
	ActionAssignProfile            = "ASSIGN_PROFILE"
	ActionCreateFeature            = "CREATE_FEATURE"
	ActionSetPlanFeature           = "SET_PLAN_FEATURE"
	ActionCreateOrganization       = "CREATE_ORGANIZATION"
	ActionCompleteSetup            = "COMPLETE_ORGANIZATION_SETUP"
)

// AuditLog tracks who changed permission or entitlement data, and when.
type AuditLog struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID         *uuid.UUID     `gorm:"type:uuid;index" json:"user_id"`
	User           *User          `gorm:"foreignKey:UserID" json:"user"`
	OrganizationID *uuid.UUID     `gorm:"type:uuid;index" json:"organization_id"`
	Action         string         `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID       string         `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName     string         `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details        datatypes.JSON `gorm:"type:jsonb" json:"details"`
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`
}
