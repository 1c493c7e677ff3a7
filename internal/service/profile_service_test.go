package service

import (
	"context"
	"testing"

	"rentledger/internal/auth"
	"rentledger/internal/model"
	"rentledger/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBuildObjectPermissions(t *testing.T) {
	tests := []struct {
		name    string
		in      ObjectPermissionInput
		want    model.ObjectPermission
		wantErr bool
	}{
		{
			name: "level expands to flags",
			in:   ObjectPermissionInput{ObjectType: model.ObjectUnit, AccessLevel: "ReadWrite"},
			want: model.ObjectPermission{ObjectType: model.ObjectUnit, AccessLevel: model.AccessReadWrite, CanCreate: true, CanRead: true, CanEdit: true},
		},
		{
			name: "flags derive level",
			in:   ObjectPermissionInput{ObjectType: model.ObjectPayment, CanRead: true, CanViewAll: true},
			want: model.ObjectPermission{ObjectType: model.ObjectPayment, AccessLevel: model.AccessRead, CanRead: true, CanViewAll: true},
		},
		{
			name: "matching level and flags",
			in:   ObjectPermissionInput{ObjectType: model.ObjectTenant, AccessLevel: "Read", CanRead: true},
			want: model.ObjectPermission{ObjectType: model.ObjectTenant, AccessLevel: model.AccessRead, CanRead: true},
		},
		{
			name:    "level contradicts flags",
			in:      ObjectPermissionInput{ObjectType: model.ObjectTenant, AccessLevel: "All", CanRead: true},
			wantErr: true,
		},
		{
			name:    "edit without read",
			in:      ObjectPermissionInput{ObjectType: model.ObjectTenant, CanEdit: true},
			wantErr: true,
		},
		{
			name:    "unknown object type",
			in:      ObjectPermissionInput{ObjectType: "Invoice", CanRead: true},
			wantErr: true,
		},
		{
			name:    "unknown level",
			in:      ObjectPermissionInput{ObjectType: model.ObjectUnit, AccessLevel: "Admin"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			perms, err := buildObjectPermissions([]ObjectPermissionInput{tt.in})
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
			require.Len(t, perms, 1)
			assert.Equal(t, tt.want, perms[0])
		})
	}
}

func TestBuildObjectPermissions_Duplicate(t *testing.T) {
	_, err := buildObjectPermissions([]ObjectPermissionInput{
		{ObjectType: model.ObjectUnit, CanRead: true},
		{ObjectType: model.ObjectUnit, AccessLevel: "All"},
	})
	assert.ErrorIs(t, err, ErrValidation)
}

type profileFixture struct {
	svc      ProfileService
	profiles *MockProfileRepository
	users    *MockUserRepository
	audit    *MockAuditRepository
	access   *MockAccessService
}

func setupProfileService(t *testing.T) *profileFixture {
	t.Helper()
	f := &profileFixture{
		profiles: new(MockProfileRepository),
		users:    new(MockUserRepository),
		audit:    new(MockAuditRepository),
		access:   new(MockAccessService),
	}
	f.svc = NewProfileService(f.profiles, f.users, f.audit, inlineTx{}, f.access, zap.NewNop())
	return f
}

func (f *profileFixture) admin() (*model.User, auth.Identity) {
	orgID := uuid.New()
	caller := &model.User{ID: uuid.New(), OrganizationID: &orgID}
	id := auth.Identity{UserID: caller.ID}
	f.access.On("AuthorizeOrganizationAdmin", mock.Anything, id).Return(caller, nil)
	return caller, id
}

func TestProfileService_GetProfile_OtherOrganizationIsHidden(t *testing.T) {
	f := setupProfileService(t)
	_, id := f.admin()
	otherOrg := uuid.New()
	profile := &model.Profile{ID: uuid.New(), OrganizationID: &otherOrg, Name: "Accountant"}
	f.profiles.On("FindProfileWithPermissions", mock.Anything, profile.ID).Return(profile, nil)

	_, err := f.svc.GetProfile(context.Background(), id, profile.ID.String())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProfileService_GetProfile_TemplateIsHidden(t *testing.T) {
	f := setupProfileService(t)
	_, id := f.admin()
	tmpl := &model.Profile{ID: uuid.New(), Name: TemplateAdministrator, IsSystem: true}
	f.profiles.On("FindProfileWithPermissions", mock.Anything, tmpl.ID).Return(tmpl, nil)

	_, err := f.svc.GetProfile(context.Background(), id, tmpl.ID.String())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProfileService_DeleteProfile_SystemProfile(t *testing.T) {
	f := setupProfileService(t)
	caller, id := f.admin()
	profile := &model.Profile{ID: uuid.New(), OrganizationID: caller.OrganizationID, Name: TemplateAdministrator, IsSystem: true}
	f.profiles.On("FindProfileWithPermissions", mock.Anything, profile.ID).Return(profile, nil)

	err := f.svc.DeleteProfile(context.Background(), id, profile.ID.String())
	assert.ErrorIs(t, err, ErrConflict)
	f.profiles.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestProfileService_DeleteProfile_InUse(t *testing.T) {
	f := setupProfileService(t)
	caller, id := f.admin()
	profile := &model.Profile{ID: uuid.New(), OrganizationID: caller.OrganizationID, Name: "Leasing Agent"}
	f.profiles.On("FindProfileWithPermissions", mock.Anything, profile.ID).Return(profile, nil)
	f.profiles.On("CountUsers", mock.Anything, profile.ID).Return(int64(2), nil)

	err := f.svc.DeleteProfile(context.Background(), id, profile.ID.String())
	assert.ErrorIs(t, err, ErrConflict)
}

func TestProfileService_ReplaceObjectPermissions_WritesAudit(t *testing.T) {
	f := setupProfileService(t)
	caller, id := f.admin()
	profile := &model.Profile{ID: uuid.New(), OrganizationID: caller.OrganizationID, Name: "Leasing Agent"}
	f.profiles.On("FindProfileWithPermissions", mock.Anything, profile.ID).Return(profile, nil)
	f.profiles.On("ReplaceObjectPermissions", mock.Anything, profile.ID, mock.MatchedBy(func(perms []model.ObjectPermission) bool {
		return len(perms) == 1 && perms[0].CanRead && perms[0].AccessLevel == model.AccessRead
	})).Return(nil)
	f.audit.On("Log", mock.Anything, mock.MatchedBy(func(e *model.AuditLog) bool {
		return e.Action == model.ActionReplaceObjectPermissions && e.UserID != nil && *e.UserID == caller.ID
	})).Return(nil)

	_, err := f.svc.ReplaceObjectPermissions(context.Background(), id, profile.ID.String(), ReplaceObjectPermissionsRequest{
		ObjectPermissions: []ObjectPermissionInput{{ObjectType: model.ObjectJournalEntry, AccessLevel: "Read"}},
	})
	require.NoError(t, err)
	f.profiles.AssertExpectations(t)
	f.audit.AssertExpectations(t)
}

func TestProfileService_UpsertFieldPermission_EditWithoutRead(t *testing.T) {
	f := setupProfileService(t)
	caller, id := f.admin()
	profile := &model.Profile{ID: uuid.New(), OrganizationID: caller.OrganizationID}
	f.profiles.On("FindProfileWithPermissions", mock.Anything, profile.ID).Return(profile, nil)

	_, err := f.svc.UpsertFieldPermission(context.Background(), id, profile.ID.String(), FieldPermissionInput{
		ObjectType: model.ObjectTenant, FieldName: "ssn", CanEdit: true,
	})
	assert.ErrorIs(t, err, ErrValidation)
	f.profiles.AssertNotCalled(t, "UpsertFieldPermission", mock.Anything, mock.Anything)
}

func TestProfileService_DeleteFieldPermission_Missing(t *testing.T) {
	f := setupProfileService(t)
	caller, id := f.admin()
	profile := &model.Profile{ID: uuid.New(), OrganizationID: caller.OrganizationID}
	f.profiles.On("FindProfileWithPermissions", mock.Anything, profile.ID).Return(profile, nil)
	f.profiles.On("DeleteFieldPermission", mock.Anything, profile.ID, model.ObjectTenant, "ssn").Return(repository.ErrNotFound)

	err := f.svc.DeleteFieldPermission(context.Background(), id, profile.ID.String(), model.ObjectTenant, "ssn")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProfileService_AssignProfile_CrossOrganization(t *testing.T) {
	f := setupProfileService(t)
	_, id := f.admin()
	otherOrg := uuid.New()
	target := &model.User{ID: uuid.New(), OrganizationID: &otherOrg}
	f.users.On("GetByID", mock.Anything, target.ID).Return(target, nil)

	pid := uuid.NewString()
	err := f.svc.AssignProfile(context.Background(), id, target.ID.String(), AssignProfileRequest{ProfileID: &pid})
	assert.ErrorIs(t, err, ErrNotFound)
	f.users.AssertNotCalled(t, "AssignProfile", mock.Anything, mock.Anything, mock.Anything)
}

func TestProfileService_AssignProfile_Success(t *testing.T) {
	f := setupProfileService(t)
	caller, id := f.admin()
	target := &model.User{ID: uuid.New(), OrganizationID: caller.OrganizationID, Username: "maria"}
	profile := &model.Profile{ID: uuid.New(), OrganizationID: caller.OrganizationID, Name: TemplateStandardUser}
	f.users.On("GetByID", mock.Anything, target.ID).Return(target, nil)
	f.profiles.On("FindProfileWithPermissions", mock.Anything, profile.ID).Return(profile, nil)
	f.users.On("AssignProfile", mock.Anything, target.ID, &profile.ID).Return(nil)
	f.audit.On("Log", mock.Anything, mock.AnythingOfType("*model.AuditLog")).Return(nil)

	pid := profile.ID.String()
	require.NoError(t, f.svc.AssignProfile(context.Background(), id, target.ID.String(), AssignProfileRequest{ProfileID: &pid}))
	f.users.AssertExpectations(t)
}

func TestProfileService_ListProfiles_Forbidden(t *testing.T) {
	f := setupProfileService(t)
	id := auth.Identity{UserID: uuid.New()}
	f.access.On("AuthorizeOrganizationAdmin", mock.Anything, id).Return(nil, ErrForbidden)

	_, err := f.svc.ListProfiles(context.Background(), id)
	assert.ErrorIs(t, err, ErrForbidden)
}
