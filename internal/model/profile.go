package model

import (
	"time"

	"github.com/google/uuid"
)

// AccessLevel is the breadth of operations a profile has on an object type.
type AccessLevel string

const (
	AccessNone      AccessLevel = "None"
	AccessRead      AccessLevel = "Read"
	AccessReadWrite AccessLevel = "ReadWrite"
	AccessAll       AccessLevel = "All"
)

// Object types that profiles grant access to.
const (
	ObjectOrganization = "Organization"
	ObjectProperty     = "Property"
	ObjectUnit         = "Unit"
	ObjectTenant       = "Tenant"
	ObjectPayment      = "Payment"
	ObjectJournalEntry = "JournalEntry"
	ObjectProfile      = "Profile"
	ObjectAuditLog     = "AuditLog"
)

// ObjectTypes lists every object type a permission row may reference.
var ObjectTypes = []string{
	ObjectOrganization, ObjectProperty, ObjectUnit, ObjectTenant,
	ObjectPayment, ObjectJournalEntry, ObjectProfile, ObjectAuditLog,
}

// Profile is a named permission bundle shared by many users.
type Profile struct {
	ID                uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrganizationID    *uuid.UUID         `gorm:"type:uuid;index" json:"organization_id"` // nil = template
	Name              string             `gorm:"type:varchar(100);not null" json:"name"`
	Description       string             `gorm:"type:text" json:"description"`
	IsSystem          bool               `gorm:"default:false" json:"is_system"`
	ObjectPermissions []ObjectPermission `gorm:"foreignKey:ProfileID;constraint:OnDelete:CASCADE;" json:"object_permissions"`
	FieldPermissions  []FieldPermission  `gorm:"foreignKey:ProfileID;constraint:OnDelete:CASCADE;" json:"field_permissions"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// ObjectPermission grants CRUD flags on one object type. The flags decide access;
// AccessLevel is a projection of them kept for display and minimum-level comparisons.
type ObjectPermission struct {
	ID          uuid.UUID   `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProfileID   uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:uk_profile_object,priority:1" json:"profile_id"`
	ObjectType  string      `gorm:"type:varchar(50);not null;uniqueIndex:uk_profile_object,priority:2" json:"object_type"`
	AccessLevel AccessLevel `gorm:"type:varchar(20);not null;default:'None'" json:"access_level"`
	CanCreate   bool        `gorm:"not null;default:false" json:"can_create"`
	CanRead     bool        `gorm:"not null;default:false" json:"can_read"`
	CanEdit     bool        `gorm:"not null;default:false" json:"can_edit"`
	CanDelete   bool        `gorm:"not null;default:false" json:"can_delete"`
	CanViewAll  bool        `gorm:"not null;default:false" json:"can_view_all"` // all records vs own records
}

// FieldPermission narrows an object permission for a single field.
type FieldPermission struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProfileID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_profile_field,priority:1" json:"profile_id"`
	ObjectType string    `gorm:"type:varchar(50);not null;uniqueIndex:uk_profile_field,priority:2" json:"object_type"`
	FieldName  string    `gorm:"type:varchar(100);not null;uniqueIndex:uk_profile_field,priority:3" json:"field_name"`
	CanRead    bool      `gorm:"not null;default:false" json:"can_read"`
	CanEdit    bool      `gorm:"not null;default:false" json:"can_edit"`
}
