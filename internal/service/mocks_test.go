package service

import (
	"context"
	"time"

	"rentledger/internal/access"
	"rentledger/internal/auth"
	"rentledger/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// --- Repositories ---

type MockUserRepository struct{ mock.Mock }

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if u, ok := args.Get(0).(*model.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if u, ok := args.Get(0).(*model.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	if u, ok := args.Get(0).(*model.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) ListByOrganization(ctx context.Context, orgID uuid.UUID, page, limit int) ([]model.User, int64, error) {
	args := m.Called(ctx, orgID, page, limit)
	users, _ := args.Get(0).([]model.User)
	return users, args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) Update(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) AssignProfile(ctx context.Context, userID uuid.UUID, profileID *uuid.UUID) error {
	return m.Called(ctx, userID, profileID).Error(0)
}

type MockOrganizationRepository struct{ mock.Mock }

func (m *MockOrganizationRepository) Create(ctx context.Context, org *model.Organization) error {
	return m.Called(ctx, org).Error(0)
}

func (m *MockOrganizationRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Organization, error) {
	args := m.Called(ctx, id)
	if o, ok := args.Get(0).(*model.Organization); ok {
		return o, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrganizationRepository) List(ctx context.Context, page, limit int) ([]model.Organization, int64, error) {
	args := m.Called(ctx, page, limit)
	orgs, _ := args.Get(0).([]model.Organization)
	return orgs, args.Get(1).(int64), args.Error(2)
}

func (m *MockOrganizationRepository) Update(ctx context.Context, org *model.Organization) error {
	return m.Called(ctx, org).Error(0)
}

type MockPlanRepository struct{ mock.Mock }

func (m *MockPlanRepository) FindPlanByName(ctx context.Context, name string) (*model.Plan, error) {
	args := m.Called(ctx, name)
	if p, ok := args.Get(0).(*model.Plan); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPlanRepository) FindPlanByID(ctx context.Context, id uuid.UUID) (*model.Plan, error) {
	args := m.Called(ctx, id)
	if p, ok := args.Get(0).(*model.Plan); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPlanRepository) ListPlans(ctx context.Context) ([]model.Plan, error) {
	args := m.Called(ctx)
	plans, _ := args.Get(0).([]model.Plan)
	return plans, args.Error(1)
}

func (m *MockPlanRepository) FindOrCreatePlan(ctx context.Context, plan *model.Plan) error {
	return m.Called(ctx, plan).Error(0)
}

func (m *MockPlanRepository) FindFeatureByKey(ctx context.Context, key string) (*model.Feature, error) {
	args := m.Called(ctx, key)
	if f, ok := args.Get(0).(*model.Feature); ok {
		return f, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPlanRepository) ListFeatures(ctx context.Context) ([]model.Feature, error) {
	args := m.Called(ctx)
	features, _ := args.Get(0).([]model.Feature)
	return features, args.Error(1)
}

func (m *MockPlanRepository) CreateFeature(ctx context.Context, feature *model.Feature) error {
	return m.Called(ctx, feature).Error(0)
}

func (m *MockPlanRepository) FindOrCreateFeature(ctx context.Context, feature *model.Feature) error {
	return m.Called(ctx, feature).Error(0)
}

func (m *MockPlanRepository) FindPlanFeature(ctx context.Context, planID uuid.UUID, featureKey string) (*model.PlanFeature, error) {
	args := m.Called(ctx, planID, featureKey)
	if pf, ok := args.Get(0).(*model.PlanFeature); ok {
		return pf, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPlanRepository) FindPlanFeatureWithLimits(ctx context.Context, planID uuid.UUID, featureKey string) (*model.PlanFeature, error) {
	args := m.Called(ctx, planID, featureKey)
	if pf, ok := args.Get(0).(*model.PlanFeature); ok {
		return pf, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPlanRepository) ListPlanFeatures(ctx context.Context, planID uuid.UUID) ([]model.PlanFeature, error) {
	args := m.Called(ctx, planID)
	pfs, _ := args.Get(0).([]model.PlanFeature)
	return pfs, args.Error(1)
}

func (m *MockPlanRepository) UpsertPlanFeature(ctx context.Context, pf *model.PlanFeature) error {
	return m.Called(ctx, pf).Error(0)
}

type MockProfileRepository struct{ mock.Mock }

func (m *MockProfileRepository) Create(ctx context.Context, profile *model.Profile) error {
	return m.Called(ctx, profile).Error(0)
}

func (m *MockProfileRepository) Update(ctx context.Context, profile *model.Profile) error {
	return m.Called(ctx, profile).Error(0)
}

func (m *MockProfileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockProfileRepository) FindProfile(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	args := m.Called(ctx, id)
	if p, ok := args.Get(0).(*model.Profile); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProfileRepository) FindProfileWithPermissions(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	args := m.Called(ctx, id)
	if p, ok := args.Get(0).(*model.Profile); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProfileRepository) FindTemplateByName(ctx context.Context, name string) (*model.Profile, error) {
	args := m.Called(ctx, name)
	if p, ok := args.Get(0).(*model.Profile); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProfileRepository) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]model.Profile, error) {
	args := m.Called(ctx, orgID)
	profiles, _ := args.Get(0).([]model.Profile)
	return profiles, args.Error(1)
}

func (m *MockProfileRepository) CountUsers(ctx context.Context, profileID uuid.UUID) (int64, error) {
	args := m.Called(ctx, profileID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProfileRepository) FindObjectPermission(ctx context.Context, profileID uuid.UUID, objectType string) (*model.ObjectPermission, error) {
	args := m.Called(ctx, profileID, objectType)
	if p, ok := args.Get(0).(*model.ObjectPermission); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProfileRepository) ListObjectPermissions(ctx context.Context, profileID uuid.UUID) ([]model.ObjectPermission, error) {
	args := m.Called(ctx, profileID)
	perms, _ := args.Get(0).([]model.ObjectPermission)
	return perms, args.Error(1)
}

func (m *MockProfileRepository) ReplaceObjectPermissions(ctx context.Context, profileID uuid.UUID, perms []model.ObjectPermission) error {
	return m.Called(ctx, profileID, perms).Error(0)
}

func (m *MockProfileRepository) FindFieldPermission(ctx context.Context, profileID uuid.UUID, objectType, fieldName string) (*model.FieldPermission, error) {
	args := m.Called(ctx, profileID, objectType, fieldName)
	if p, ok := args.Get(0).(*model.FieldPermission); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProfileRepository) UpsertFieldPermission(ctx context.Context, perm *model.FieldPermission) error {
	return m.Called(ctx, perm).Error(0)
}

func (m *MockProfileRepository) DeleteFieldPermission(ctx context.Context, profileID uuid.UUID, objectType, fieldName string) error {
	return m.Called(ctx, profileID, objectType, fieldName).Error(0)
}

type MockNotificationRepository struct{ mock.Mock }

func (m *MockNotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	return m.Called(ctx, n).Error(0)
}

func (m *MockNotificationRepository) ListForUser(ctx context.Context, userID uuid.UUID, orgID *uuid.UUID, page, limit int) ([]model.Notification, int64, error) {
	args := m.Called(ctx, userID, orgID, page, limit)
	items, _ := args.Get(0).([]model.Notification)
	return items, args.Get(1).(int64), args.Error(2)
}

func (m *MockNotificationRepository) CountUnreadForUser(ctx context.Context, userID uuid.UUID, orgID *uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID, orgID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationRepository) ListAll(ctx context.Context, page, limit int) ([]model.Notification, int64, error) {
	args := m.Called(ctx, page, limit)
	items, _ := args.Get(0).([]model.Notification)
	return items, args.Get(1).(int64), args.Error(2)
}

func (m *MockNotificationRepository) CountUnreadAll(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, id, userID uuid.UUID, orgID *uuid.UUID) error {
	return m.Called(ctx, id, userID, orgID).Error(0)
}

type MockAuditRepository struct{ mock.Mock }

func (m *MockAuditRepository) Log(ctx context.Context, entry *model.AuditLog) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockAuditRepository) ListByOrganization(ctx context.Context, orgID *uuid.UUID, page, limit int) ([]model.AuditLog, int64, error) {
	args := m.Called(ctx, orgID, page, limit)
	logs, _ := args.Get(0).([]model.AuditLog)
	return logs, args.Get(1).(int64), args.Error(2)
}

type MockRevocationStore struct{ mock.Mock }

func (m *MockRevocationStore) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	return m.Called(ctx, jti, ttl).Error(0)
}

func (m *MockRevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	args := m.Called(ctx, jti)
	return args.Bool(0), args.Error(1)
}

// inlineTx runs the function on the caller's context, without a database.
type inlineTx struct{}

func (inlineTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

// --- Services ---

type MockAccessService struct{ mock.Mock }

func (m *MockAccessService) Check(ctx context.Context, id auth.Identity, req CheckRequest) (access.Decision, error) {
	args := m.Called(ctx, id, req)
	return args.Get(0).(access.Decision), args.Error(1)
}

func (m *MockAccessService) CanPerformAction(ctx context.Context, id auth.Identity, objectType string, action access.Action) (access.Decision, error) {
	args := m.Called(ctx, id, objectType, action)
	return args.Get(0).(access.Decision), args.Error(1)
}

func (m *MockAccessService) HasMinimumAccess(ctx context.Context, id auth.Identity, objectType string, min model.AccessLevel) (bool, error) {
	args := m.Called(ctx, id, objectType, min)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccessService) ObjectPermissions(ctx context.Context, id auth.Identity) ([]ObjectPermissionResponse, error) {
	args := m.Called(ctx, id)
	perms, _ := args.Get(0).([]ObjectPermissionResponse)
	return perms, args.Error(1)
}

func (m *MockAccessService) FeatureLimits(ctx context.Context, id auth.Identity, featureKey string) (*FeatureLimitsResponse, error) {
	args := m.Called(ctx, id, featureKey)
	if res, ok := args.Get(0).(*FeatureLimitsResponse); ok {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccessService) IsSuperAdmin(ctx context.Context, id auth.Identity) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccessService) CurrentUser(ctx context.Context, id auth.Identity) (*model.User, error) {
	args := m.Called(ctx, id)
	if u, ok := args.Get(0).(*model.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccessService) AuthorizeOrganizationAdmin(ctx context.Context, id auth.Identity) (*model.User, error) {
	args := m.Called(ctx, id)
	if u, ok := args.Get(0).(*model.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

type MockNotifier struct{ mock.Mock }

func (m *MockNotifier) Notify(n model.Notification) {
	m.Called(n)
}
