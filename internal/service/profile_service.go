package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"rentledger/internal/access"
	"rentledger/internal/auth"
	"rentledger/internal/model"
	"rentledger/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	TemplateAdministrator = "Administrator"
	TemplateStandardUser  = "Standard User"
)

// --- DTOs ---

// ObjectPermissionInput sets one object type. When AccessLevel is given together with
// flags they must agree; AccessLevel alone expands to its flags.
type ObjectPermissionInput struct {
	ObjectType  string `json:"object_type" binding:"required"`
	AccessLevel string `json:"access_level"`
	CanCreate   bool   `json:"can_create"`
	CanRead     bool   `json:"can_read"`
	CanEdit     bool   `json:"can_edit"`
	CanDelete   bool   `json:"can_delete"`
	CanViewAll  bool   `json:"can_view_all"`
}

type FieldPermissionInput struct {
	ObjectType string `json:"object_type" binding:"required"`
	FieldName  string `json:"field_name" binding:"required"`
	CanRead    bool   `json:"can_read"`
	CanEdit    bool   `json:"can_edit"`
}

type CreateProfileRequest struct {
	Name              string                  `json:"name" binding:"required"`
	Description       string                  `json:"description"`
	ObjectPermissions []ObjectPermissionInput `json:"object_permissions"`
}

type UpdateProfileRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type ReplaceObjectPermissionsRequest struct {
	ObjectPermissions []ObjectPermissionInput `json:"object_permissions"`
}

type AssignProfileRequest struct {
	ProfileID *string `json:"profile_id"` // null unassigns
}

type FieldPermissionResponse struct {
	ObjectType string `json:"object_type"`
	FieldName  string `json:"field_name"`
	CanRead    bool   `json:"can_read"`
	CanEdit    bool   `json:"can_edit"`
}

type ProfileResponse struct {
	ID                string                     `json:"id"`
	OrganizationID    *string                    `json:"organization_id"`
	Name              string                     `json:"name"`
	Description       string                     `json:"description"`
	IsSystem          bool                       `json:"is_system"`
	ObjectPermissions []ObjectPermissionResponse `json:"object_permissions"`
	FieldPermissions  []FieldPermissionResponse  `json:"field_permissions"`
	CreatedAt         string                     `json:"created_at"`
}

// --- Interface ---

type ProfileService interface {
	ListProfiles(ctx context.Context, id auth.Identity) ([]ProfileResponse, error)
	GetProfile(ctx context.Context, id auth.Identity, profileID string) (*ProfileResponse, error)
	CreateProfile(ctx context.Context, id auth.Identity, req CreateProfileRequest) (*ProfileResponse, error)
	UpdateProfile(ctx context.Context, id auth.Identity, profileID string, req UpdateProfileRequest) (*ProfileResponse, error)
	DeleteProfile(ctx context.Context, id auth.Identity, profileID string) error
	ReplaceObjectPermissions(ctx context.Context, id auth.Identity, profileID string, req ReplaceObjectPermissionsRequest) (*ProfileResponse, error)
	UpsertFieldPermission(ctx context.Context, id auth.Identity, profileID string, req FieldPermissionInput) (*ProfileResponse, error)
	DeleteFieldPermission(ctx context.Context, id auth.Identity, profileID, objectType, fieldName string) error
	AssignProfile(ctx context.Context, id auth.Identity, userID string, req AssignProfileRequest) error
	CloneTemplate(ctx context.Context, templateName string, orgID uuid.UUID) (*model.Profile, error)
	SeedTemplates(ctx context.Context) error
}

type profileService struct {
	profiles repository.ProfileRepository
	users    repository.UserRepository
	audit    repository.AuditRepository
	tx       repository.TransactionManager
	access   AccessService
	log      *zap.Logger
}

func NewProfileService(
	profiles repository.ProfileRepository,
	users repository.UserRepository,
	audit repository.AuditRepository,
	tx repository.TransactionManager,
	accessSvc AccessService,
	log *zap.Logger,
) ProfileService {
	return &profileService{profiles: profiles, users: users, audit: audit, tx: tx, access: accessSvc, log: log}
}

// --- Implementation ---

func (s *profileService) ListProfiles(ctx context.Context, id auth.Identity) ([]ProfileResponse, error) {
	caller, err := s.access.AuthorizeOrganizationAdmin(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller.OrganizationID == nil {
		return nil, ErrOrganizationNotFound
	}

	profiles, err := s.profiles.ListByOrganization(ctx, *caller.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profiles: %w", err)
	}
	res := make([]ProfileResponse, 0, len(profiles))
	for _, p := range profiles {
		res = append(res, toProfileResponse(p))
	}
	return res, nil
}

func (s *profileService) GetProfile(ctx context.Context, id auth.Identity, profileID string) (*ProfileResponse, error) {
	caller, err := s.access.AuthorizeOrganizationAdmin(ctx, id)
	if err != nil {
		return nil, err
	}
	profile, err := s.scopedProfile(ctx, caller, profileID)
	if err != nil {
		return nil, err
	}
	res := toProfileResponse(*profile)
	return &res, nil
}

func (s *profileService) CreateProfile(ctx context.Context, id auth.Identity, req CreateProfileRequest) (*ProfileResponse, error) {
	caller, err := s.access.AuthorizeOrganizationAdmin(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller.OrganizationID == nil {
		return nil, ErrOrganizationNotFound
	}
	perms, err := buildObjectPermissions(req.ObjectPermissions)
	if err != nil {
		return nil, err
	}

	profile := &model.Profile{
		OrganizationID: caller.OrganizationID,
		Name:           strings.TrimSpace(req.Name),
		Description:    req.Description,
	}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.profiles.Create(txCtx, profile); err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}
		if err := s.profiles.ReplaceObjectPermissions(txCtx, profile.ID, perms); err != nil {
			return fmt.Errorf("failed to save object permissions: %w", err)
		}
		return writeAudit(txCtx, s.audit, caller, caller.OrganizationID, model.ActionCreateProfile,
			profile.ID.String(), profile.Name, req.ObjectPermissions)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("profile created", zap.String("profile_id", profile.ID.String()), zap.String("name", profile.Name))
	return s.reload(ctx, profile.ID)
}

func (s *profileService) UpdateProfile(ctx context.Context, id auth.Identity, profileID string, req UpdateProfileRequest) (*ProfileResponse, error) {
	caller, err := s.access.AuthorizeOrganizationAdmin(ctx, id)
	if err != nil {
		return nil, err
	}
	profile, err := s.scopedProfile(ctx, caller, profileID)
	if err != nil {
		return nil, err
	}

	profile.Name = strings.TrimSpace(req.Name)
	profile.Description = req.Description
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.profiles.Update(txCtx, profile); err != nil {
			return fmt.Errorf("failed to update profile: %w", err)
		}
		return writeAudit(txCtx, s.audit, caller, profile.OrganizationID, model.ActionUpdateProfile,
			profile.ID.String(), profile.Name, req)
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, profile.ID)
}

func (s *profileService) DeleteProfile(ctx context.Context, id auth.Identity, profileID string) error {
	caller, err := s.access.AuthorizeOrganizationAdmin(ctx, id)
	if err != nil {
		return err
	}
	profile, err := s.scopedProfile(ctx, caller, profileID)
	if err != nil {
		return err
	}
	if profile.IsSystem {
		return fmt.Errorf("%w: cannot delete system profile '%s'", ErrConflict, profile.Name)
	}

	inUse, err := s.profiles.CountUsers(ctx, profile.ID)
	if err != nil {
		return fmt.Errorf("failed to count profile users: %w", err)
	}
	if inUse > 0 {
		return fmt.Errorf("%w: profile '%s' is assigned to %d user(s)", ErrConflict, profile.Name, inUse)
	}

	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.profiles.Delete(txCtx, profile.ID); err != nil {
			return fmt.Errorf("failed to delete profile: %w", err)
		}
		return writeAudit(txCtx, s.audit, caller, profile.OrganizationID, model.ActionDeleteProfile,
			profile.ID.String(), profile.Name, nil)
	})
}

func (s *profileService) ReplaceObjectPermissions(ctx context.Context, id auth.Identity, profileID string, req ReplaceObjectPermissionsRequest) (*ProfileResponse, error) {
	caller, err := s.access.AuthorizeOrganizationAdmin(ctx, id)
	if err != nil {
		return nil, err
	}
	profile, err := s.scopedProfile(ctx, caller, profileID)
	if err != nil {
		return nil, err
	}
	perms, err := buildObjectPermissions(req.ObjectPermissions)
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.profiles.ReplaceObjectPermissions(txCtx, profile.ID, perms); err != nil {
			return fmt.Errorf("failed to save object permissions: %w", err)
		}
		return writeAudit(txCtx, s.audit, caller, profile.OrganizationID, model.ActionReplaceObjectPermissions,
			profile.ID.String(), profile.Name, req.ObjectPermissions)
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, profile.ID)
}

func (s *profileService) UpsertFieldPermission(ctx context.Context, id auth.Identity, profileID string, req FieldPermissionInput) (*ProfileResponse, error) {
	caller, err := s.access.AuthorizeOrganizationAdmin(ctx, id)
	if err != nil {
		return nil, err
	}
	profile, err := s.scopedProfile(ctx, caller, profileID)
	if err != nil {
		return nil, err
	}
	if err := validateObjectType(req.ObjectType); err != nil {
		return nil, err
	}
	fieldName := strings.TrimSpace(req.FieldName)
	if fieldName == "" {
		return nil, fmt.Errorf("%w: field_name is required", access.ErrValidation)
	}
	if req.CanEdit && !req.CanRead {
		return nil, fmt.Errorf("%w: %s.%s grants edit without read", access.ErrValidation, req.ObjectType, fieldName)
	}

	perm := &model.FieldPermission{
		ProfileID:  profile.ID,
		ObjectType: req.ObjectType,
		FieldName:  fieldName,
		CanRead:    req.CanRead,
		CanEdit:    req.CanEdit,
	}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.profiles.UpsertFieldPermission(txCtx, perm); err != nil {
			return fmt.Errorf("failed to save field permission: %w", err)
		}
		return writeAudit(txCtx, s.audit, caller, profile.OrganizationID, model.ActionUpsertFieldPermission,
			profile.ID.String(), profile.Name, req)
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, profile.ID)
}

func (s *profileService) DeleteFieldPermission(ctx context.Context, id auth.Identity, profileID, objectType, fieldName string) error {
	caller, err := s.access.AuthorizeOrganizationAdmin(ctx, id)
	if err != nil {
		return err
	}
	profile, err := s.scopedProfile(ctx, caller, profileID)
	if err != nil {
		return err
	}

	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		err := s.profiles.DeleteFieldPermission(txCtx, profile.ID, objectType, fieldName)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: field permission %s.%s", ErrNotFound, objectType, fieldName)
		}
		if err != nil {
			return fmt.Errorf("failed to delete field permission: %w", err)
		}
		return writeAudit(txCtx, s.audit, caller, profile.OrganizationID, model.ActionDeleteFieldPermission,
			profile.ID.String(), profile.Name, map[string]string{"object_type": objectType, "field_name": fieldName})
	})
}

// AssignProfile points a user of the caller's organization at one of that organization's
// profiles. The change applies to the user's next request.
func (s *profileService) AssignProfile(ctx context.Context, id auth.Identity, userID string, req AssignProfileRequest) error {
	caller, err := s.access.AuthorizeOrganizationAdmin(ctx, id)
	if err != nil {
		return err
	}
	targetID, err := parseID(userID, "user")
	if err != nil {
		return err
	}
	target, err := s.users.GetByID(ctx, targetID)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: user", ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if !access.IsSuperAdmin(caller) && !sameOrganization(caller.OrganizationID, target.OrganizationID) {
		return fmt.Errorf("%w: user", ErrNotFound)
	}

	var profileID *uuid.UUID
	profileName := ""
	if req.ProfileID != nil {
		profile, err := s.scopedProfile(ctx, caller, *req.ProfileID)
		if err != nil {
			return err
		}
		if profile.OrganizationID == nil || !sameOrganization(profile.OrganizationID, target.OrganizationID) {
			return fmt.Errorf("%w: profile belongs to another organization", access.ErrValidation)
		}
		profileID = &profile.ID
		profileName = profile.Name
	}

	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		err := s.users.AssignProfile(txCtx, target.ID, profileID)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: user", ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to assign profile: %w", err)
		}
		return writeAudit(txCtx, s.audit, caller, target.OrganizationID, model.ActionAssignProfile,
			target.ID.String(), target.Username, map[string]string{"profile": profileName})
	})
}

// CloneTemplate copies a template profile, with its object and field permissions, into orgID.
func (s *profileService) CloneTemplate(ctx context.Context, templateName string, orgID uuid.UUID) (*model.Profile, error) {
	tmpl, err := s.profiles.FindTemplateByName(ctx, templateName)
	if err != nil {
		return nil, fmt.Errorf("failed to find template '%s': %w", templateName, err)
	}
	tmpl, err = s.profiles.FindProfileWithPermissions(ctx, tmpl.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load template '%s': %w", templateName, err)
	}

	clone := &model.Profile{
		OrganizationID: &orgID,
		Name:           tmpl.Name,
		Description:    tmpl.Description,
		IsSystem:       true,
	}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.profiles.Create(txCtx, clone); err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}
		if err := s.profiles.ReplaceObjectPermissions(txCtx, clone.ID, slices.Clone(tmpl.ObjectPermissions)); err != nil {
			return fmt.Errorf("failed to copy object permissions: %w", err)
		}
		for _, f := range tmpl.FieldPermissions {
			f.ID = uuid.Nil
			f.ProfileID = clone.ID
			if err := s.profiles.UpsertFieldPermission(txCtx, &f); err != nil {
				return fmt.Errorf("failed to copy field permission %s.%s: %w", f.ObjectType, f.FieldName, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return clone, nil
}

// SeedTemplates creates the organization-less template profiles if not already present.
// Existing templates keep whatever permissions an operator gave them.
func (s *profileService) SeedTemplates(ctx context.Context) error {
	level := func(objectType string, l model.AccessLevel, viewAll bool) model.ObjectPermission {
		p := model.ObjectPermission{ObjectType: objectType}
		access.ExpandLevel(&p, l, viewAll)
		return p
	}

	adminPerms := make([]model.ObjectPermission, 0, len(model.ObjectTypes))
	for _, ot := range model.ObjectTypes {
		adminPerms = append(adminPerms, level(ot, model.AccessAll, true))
	}

	templates := []struct {
		Name        string
		Description string
		Objects     []model.ObjectPermission
		Fields      []model.FieldPermission
	}{
		{
			Name:        TemplateAdministrator,
			Description: "Full access to every object of the organization",
			Objects:     adminPerms,
		},
		{
			Name:        TemplateStandardUser,
			Description: "Day-to-day property work without accounting or administration",
			Objects: []model.ObjectPermission{
				level(model.ObjectOrganization, model.AccessRead, false),
				level(model.ObjectProperty, model.AccessReadWrite, true),
				level(model.ObjectUnit, model.AccessReadWrite, true),
				level(model.ObjectTenant, model.AccessReadWrite, true),
				level(model.ObjectPayment, model.AccessReadWrite, false),
				level(model.ObjectJournalEntry, model.AccessRead, false),
			},
			Fields: []model.FieldPermission{
				{ObjectType: model.ObjectTenant, FieldName: "ssn"},
				{ObjectType: model.ObjectPayment, FieldName: "amount", CanRead: true},
			},
		},
	}

	for _, t := range templates {
		_, err := s.profiles.FindTemplateByName(ctx, t.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("failed to look up template '%s': %w", t.Name, err)
		}

		err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
			profile := &model.Profile{Name: t.Name, Description: t.Description, IsSystem: true}
			if err := s.profiles.Create(txCtx, profile); err != nil {
				return err
			}
			if err := s.profiles.ReplaceObjectPermissions(txCtx, profile.ID, t.Objects); err != nil {
				return err
			}
			for i := range t.Fields {
				t.Fields[i].ProfileID = profile.ID
				if err := s.profiles.UpsertFieldPermission(txCtx, &t.Fields[i]); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to seed template '%s': %w", t.Name, err)
		}
		s.log.Info("seeded profile template", zap.String("name", t.Name))
	}
	return nil
}

// --- Helpers ---

// scopedProfile loads a profile the caller may see. Profiles of other organizations and
// templates are reported as not found to everyone but super-admins.
func (s *profileService) scopedProfile(ctx context.Context, caller *model.User, profileID string) (*model.Profile, error) {
	pid, err := parseID(profileID, "profile")
	if err != nil {
		return nil, err
	}
	profile, err := s.profiles.FindProfileWithPermissions(ctx, pid)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: profile", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if access.IsSuperAdmin(caller) {
		return profile, nil
	}
	if profile.OrganizationID == nil || !sameOrganization(profile.OrganizationID, caller.OrganizationID) {
		return nil, fmt.Errorf("%w: profile", ErrNotFound)
	}
	return profile, nil
}

func (s *profileService) reload(ctx context.Context, id uuid.UUID) (*ProfileResponse, error) {
	profile, err := s.profiles.FindProfileWithPermissions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload profile: %w", err)
	}
	res := toProfileResponse(*profile)
	return &res, nil
}

// buildObjectPermissions validates inputs and turns them into rows whose AccessLevel
// matches their flags.
func buildObjectPermissions(inputs []ObjectPermissionInput) ([]model.ObjectPermission, error) {
	seen := make(map[string]bool, len(inputs))
	perms := make([]model.ObjectPermission, 0, len(inputs))
	for _, in := range inputs {
		if err := validateObjectType(in.ObjectType); err != nil {
			return nil, err
		}
		if seen[in.ObjectType] {
			return nil, fmt.Errorf("%w: %s listed twice", access.ErrValidation, in.ObjectType)
		}
		seen[in.ObjectType] = true

		p := model.ObjectPermission{
			ObjectType: in.ObjectType,
			CanCreate:  in.CanCreate,
			CanRead:    in.CanRead,
			CanEdit:    in.CanEdit,
			CanDelete:  in.CanDelete,
			CanViewAll: in.CanViewAll,
		}
		anyFlag := p.CanCreate || p.CanRead || p.CanEdit || p.CanDelete || p.CanViewAll

		if in.AccessLevel != "" {
			level, err := access.ParseLevel(in.AccessLevel)
			if err != nil {
				return nil, err
			}
			if !anyFlag {
				access.ExpandLevel(&p, level, false)
			} else if derived := access.DeriveLevel(p); derived != level {
				return nil, fmt.Errorf("%w: %s access level %s does not match its flags (%s)",
					access.ErrValidation, in.ObjectType, level, derived)
			}
		}
		if err := access.Normalize(&p); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, nil
}

func validateObjectType(objectType string) error {
	if !slices.Contains(model.ObjectTypes, objectType) {
		return fmt.Errorf("%w: unknown object type %q", access.ErrValidation, objectType)
	}
	return nil
}

func sameOrganization(a, b *uuid.UUID) bool {
	return a != nil && b != nil && *a == *b
}

func toProfileResponse(p model.Profile) ProfileResponse {
	objects := make([]ObjectPermissionResponse, 0, len(p.ObjectPermissions))
	for _, op := range p.ObjectPermissions {
		objects = append(objects, toObjectPermissionResponse(op))
	}
	fields := make([]FieldPermissionResponse, 0, len(p.FieldPermissions))
	for _, fp := range p.FieldPermissions {
		fields = append(fields, FieldPermissionResponse{
			ObjectType: fp.ObjectType,
			FieldName:  fp.FieldName,
			CanRead:    fp.CanRead,
			CanEdit:    fp.CanEdit,
		})
	}
	return ProfileResponse{
		ID:                p.ID.String(),
		OrganizationID:    optionalString(p.OrganizationID),
		Name:              p.Name,
		Description:       p.Description,
		IsSystem:          p.IsSystem,
		ObjectPermissions: objects,
		FieldPermissions:  fields,
		CreatedAt:         p.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
