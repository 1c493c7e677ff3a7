package service

import (
	"context"
	"errors"
	"fmt"

	"rentledger/internal/access"
	"rentledger/internal/auth"
	"rentledger/internal/model"
	"rentledger/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// --- DTOs ---

// CheckRequest is the JSON contract of POST /api/access/check. Identity fields are
// accepted for compatibility; the authenticated session always wins over them.
type CheckRequest struct {
	PlanName       string `json:"planName"`
	ProfileID      string `json:"profileId"`
	UserID         string `json:"userId"`
	OrganizationID string `json:"organizationId"`
	FeatureKey     string `json:"featureKey"`
	ObjectType     string `json:"objectType"`
	ObjectID       string `json:"objectId"`
	Action         string `json:"action"`
	FieldName      string `json:"fieldName"`
}

type ObjectPermissionResponse struct {
	ObjectType  string            `json:"object_type"`
	AccessLevel model.AccessLevel `json:"access_level"`
	CanCreate   bool              `json:"can_create"`
	CanRead     bool              `json:"can_read"`
	CanEdit     bool              `json:"can_edit"`
	CanDelete   bool              `json:"can_delete"`
	CanViewAll  bool              `json:"can_view_all"`
}

type MinimumAccessResponse struct {
	ObjectType string            `json:"object_type"`
	MinLevel   model.AccessLevel `json:"min_level"`
	Allowed    bool              `json:"allowed"`
}

type FeatureLimitsResponse struct {
	FeatureKey string                     `json:"feature_key"`
	PlanName   string                     `json:"plan_name"`
	Enabled    bool                       `json:"enabled"`
	Limits     map[string]decimal.Decimal `json:"limits"`
}

// --- Interface ---

type AccessService interface {
	Check(ctx context.Context, id auth.Identity, req CheckRequest) (access.Decision, error)
	CanPerformAction(ctx context.Context, id auth.Identity, objectType string, action access.Action) (access.Decision, error)
	HasMinimumAccess(ctx context.Context, id auth.Identity, objectType string, min model.AccessLevel) (bool, error)
	ObjectPermissions(ctx context.Context, id auth.Identity) ([]ObjectPermissionResponse, error)
	FeatureLimits(ctx context.Context, id auth.Identity, featureKey string) (*FeatureLimitsResponse, error)
	IsSuperAdmin(ctx context.Context, id auth.Identity) (bool, error)
	CurrentUser(ctx context.Context, id auth.Identity) (*model.User, error)
	AuthorizeOrganizationAdmin(ctx context.Context, id auth.Identity) (*model.User, error)
}

type accessService struct {
	resolver *access.Resolver
	users    repository.UserRepository
	orgs     repository.OrganizationRepository
	plans    repository.PlanRepository
	profiles repository.ProfileRepository
	log      *zap.Logger
}

func NewAccessService(
	resolver *access.Resolver,
	users repository.UserRepository,
	orgs repository.OrganizationRepository,
	plans repository.PlanRepository,
	profiles repository.ProfileRepository,
	log *zap.Logger,
) AccessService {
	return &accessService{resolver: resolver, users: users, orgs: orgs, plans: plans, profiles: profiles, log: log}
}

// --- Implementation ---

func (s *accessService) loadUser(ctx context.Context, id auth.Identity) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

// loadOrganization returns the user's organization. A user without one is mid-onboarding
// and is reported as ErrOrganizationNotFound.
func (s *accessService) loadOrganization(ctx context.Context, user *model.User) (*model.Organization, error) {
	if user.OrganizationID == nil {
		return nil, ErrOrganizationNotFound
	}
	org, err := s.orgs.FindByID(ctx, *user.OrganizationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrOrganizationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load organization: %w", err)
	}
	return org, nil
}

func (s *accessService) Check(ctx context.Context, id auth.Identity, req CheckRequest) (access.Decision, error) {
	shape := access.Request{
		FeatureKey: req.FeatureKey,
		ObjectType: req.ObjectType,
		ObjectID:   req.ObjectID,
		Action:     access.Action(req.Action),
		FieldName:  req.FieldName,
	}
	// reject malformed questions before touching the store
	if err := s.resolver.Validate(shape); err != nil {
		return access.Decision{}, err
	}

	user, err := s.loadUser(ctx, id)
	if err != nil {
		return access.Decision{}, err
	}
	org, err := s.loadOrganization(ctx, user)
	if err != nil {
		return access.Decision{}, err
	}

	planName := ""
	if org.Plan != nil {
		planName = org.Plan.Name
	}

	shape.UserID = user.ID
	shape.OrganizationID = user.OrganizationID
	shape.PlanName = planName
	shape.ProfileID = user.ProfileID

	decision, err := s.resolver.Resolve(ctx, shape)
	if err != nil {
		return access.Decision{}, err
	}

	if !decision.Allowed {
		s.log.Debug("access denied",
			zap.String("user_id", user.ID.String()),
			zap.String("organization_id", org.ID.String()),
			zap.String("feature", req.FeatureKey),
			zap.String("object_type", req.ObjectType),
			zap.String("action", req.Action),
			zap.String("reason", decision.Reason),
		)
	}
	return decision, nil
}

func (s *accessService) CanPerformAction(ctx context.Context, id auth.Identity, objectType string, action access.Action) (access.Decision, error) {
	return s.Check(ctx, id, CheckRequest{ObjectType: objectType, Action: string(action)})
}

// HasMinimumAccess compares the caller's flag-derived level on objectType with min.
// An unknown level or object type is a validation error, not a pass.
func (s *accessService) HasMinimumAccess(ctx context.Context, id auth.Identity, objectType string, min model.AccessLevel) (bool, error) {
	if _, err := access.ParseLevel(string(min)); err != nil {
		return false, err
	}
	if err := validateObjectType(objectType); err != nil {
		return false, err
	}
	user, err := s.loadUser(ctx, id)
	if err != nil {
		return false, err
	}
	if user.OrganizationID == nil || user.ProfileID == nil {
		return access.HasMinimumAccess(nil, min), nil
	}

	perm, err := s.profiles.FindObjectPermission(ctx, *user.ProfileID, objectType)
	if errors.Is(err, repository.ErrNotFound) {
		return access.HasMinimumAccess(nil, min), nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to fetch %s permission: %w", objectType, err)
	}
	return access.HasMinimumAccess(perm, min), nil
}

// ObjectPermissions lists the caller's object permissions. Users without an organization
// get none, whatever profile they carry.
func (s *accessService) ObjectPermissions(ctx context.Context, id auth.Identity) ([]ObjectPermissionResponse, error) {
	user, err := s.loadUser(ctx, id)
	if err != nil {
		return nil, err
	}
	res := make([]ObjectPermissionResponse, 0)
	if user.OrganizationID == nil || user.ProfileID == nil {
		return res, nil
	}

	perms, err := s.profiles.ListObjectPermissions(ctx, *user.ProfileID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch object permissions: %w", err)
	}
	for _, p := range perms {
		res = append(res, toObjectPermissionResponse(p))
	}
	return res, nil
}

func (s *accessService) FeatureLimits(ctx context.Context, id auth.Identity, featureKey string) (*FeatureLimitsResponse, error) {
	user, err := s.loadUser(ctx, id)
	if err != nil {
		return nil, err
	}
	org, err := s.loadOrganization(ctx, user)
	if err != nil {
		return nil, err
	}

	res := &FeatureLimitsResponse{FeatureKey: featureKey, Limits: map[string]decimal.Decimal{}}
	if org.Plan == nil {
		return res, nil
	}
	res.PlanName = org.Plan.Name

	pf, err := s.plans.FindPlanFeatureWithLimits(ctx, org.Plan.ID, featureKey)
	if errors.Is(err, repository.ErrNotFound) {
		return res, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feature %q: %w", featureKey, err)
	}

	res.Enabled = pf.IsEnabled
	if pf.IsEnabled {
		for _, l := range pf.Limits {
			res.Limits[l.Name] = l.Value
		}
	}
	return res, nil
}

// CurrentUser re-reads the caller so that profile and organization changes apply at once.
func (s *accessService) CurrentUser(ctx context.Context, id auth.Identity) (*model.User, error) {
	return s.loadUser(ctx, id)
}

func (s *accessService) IsSuperAdmin(ctx context.Context, id auth.Identity) (bool, error) {
	user, err := s.loadUser(ctx, id)
	if err != nil {
		return false, err
	}
	return access.IsSuperAdmin(user), nil
}

// AuthorizeOrganizationAdmin passes super-admins and users allowed to edit their
// Organization. It returns the caller for scoping.
func (s *accessService) AuthorizeOrganizationAdmin(ctx context.Context, id auth.Identity) (*model.User, error) {
	user, err := s.loadUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if access.IsSuperAdmin(user) {
		return user, nil
	}

	decision, err := s.CanPerformAction(ctx, id, model.ObjectOrganization, access.ActionEdit)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, fmt.Errorf("%w: %s", ErrForbidden, decision.Reason)
	}
	return user, nil
}

func toObjectPermissionResponse(p model.ObjectPermission) ObjectPermissionResponse {
	return ObjectPermissionResponse{
		ObjectType:  p.ObjectType,
		AccessLevel: access.DeriveLevel(p),
		CanCreate:   p.CanCreate,
		CanRead:     p.CanRead,
		CanEdit:     p.CanEdit,
		CanDelete:   p.CanDelete,
		CanViewAll:  p.CanViewAll,
	}
}

// parseID turns a path parameter into a uuid, reporting garbage as not found.
func parseID(raw, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s id", ErrNotFound, what)
	}
	return id, nil
}
