package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"rentledger/internal/access"
	"rentledger/internal/auth"
	"rentledger/internal/model"
	"rentledger/internal/repository"

	"go.uber.org/zap"
)

// --- DTOs ---

type CreateOrganizationRequest struct {
	Name string `json:"name" binding:"required"`
}

type CompleteSetupRequest struct {
	PlanName string `json:"plan_name" binding:"required"`
	Name     string `json:"name"`
}

type OrganizationResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	PlanName     string `json:"plan_name"`
	IsConfigured bool   `json:"is_configured"`
	CreatedAt    string `json:"created_at"`
}

// --- Interface ---

type OrganizationService interface {
	Current(ctx context.Context, id auth.Identity) (*OrganizationResponse, error)
	Create(ctx context.Context, id auth.Identity, req CreateOrganizationRequest) (*OrganizationResponse, error)
	CompleteSetup(ctx context.Context, id auth.Identity, req CompleteSetupRequest) (*OrganizationResponse, error)
	List(ctx context.Context, id auth.Identity, page, limit int) ([]OrganizationResponse, int64, error)
}

type organizationService struct {
	orgs     repository.OrganizationRepository
	users    repository.UserRepository
	plans    repository.PlanRepository
	audit    repository.AuditRepository
	tx       repository.TransactionManager
	profiles ProfileService
	access   AccessService
	log      *zap.Logger
}

func NewOrganizationService(
	orgs repository.OrganizationRepository,
	users repository.UserRepository,
	plans repository.PlanRepository,
	audit repository.AuditRepository,
	tx repository.TransactionManager,
	profiles ProfileService,
	accessSvc AccessService,
	log *zap.Logger,
) OrganizationService {
	return &organizationService{
		orgs: orgs, users: users, plans: plans, audit: audit, tx: tx,
		profiles: profiles, access: accessSvc, log: log,
	}
}

// --- Implementation ---

func (s *organizationService) Current(ctx context.Context, id auth.Identity) (*OrganizationResponse, error) {
	user, err := s.access.CurrentUser(ctx, id)
	if err != nil {
		return nil, err
	}
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
	res := toOrganizationResponse(*org)
	return &res, nil
}

// Create starts onboarding for a user without an organization. The organization gets its
// own copies of the template profiles and the caller becomes its Administrator.
func (s *organizationService) Create(ctx context.Context, id auth.Identity, req CreateOrganizationRequest) (*OrganizationResponse, error) {
	user, err := s.access.CurrentUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.OrganizationID != nil {
		return nil, fmt.Errorf("%w: user already belongs to an organization", ErrConflict)
	}

	org := &model.Organization{Name: strings.TrimSpace(req.Name)}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.orgs.Create(txCtx, org); err != nil {
			return fmt.Errorf("failed to create organization: %w", err)
		}
		admin, err := s.profiles.CloneTemplate(txCtx, TemplateAdministrator, org.ID)
		if err != nil {
			return err
		}
		if _, err := s.profiles.CloneTemplate(txCtx, TemplateStandardUser, org.ID); err != nil {
			return err
		}

		user.OrganizationID = &org.ID
		user.ProfileID = &admin.ID
		user.Role = "owner"
		if err := s.users.Update(txCtx, user); err != nil {
			return fmt.Errorf("failed to attach user: %w", err)
		}
		return writeAudit(txCtx, s.audit, user, &org.ID, model.ActionCreateOrganization, org.ID.String(), org.Name,
			map[string]string{"owner_profile_id": admin.ID.String()})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("organization created", zap.String("organization_id", org.ID.String()), zap.String("owner", user.ID.String()))
	res := toOrganizationResponse(*org)
	return &res, nil
}

func (s *organizationService) CompleteSetup(ctx context.Context, id auth.Identity, req CompleteSetupRequest) (*OrganizationResponse, error) {
	caller, err := s.access.AuthorizeOrganizationAdmin(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller.OrganizationID == nil {
		return nil, ErrOrganizationNotFound
	}
	org, err := s.orgs.FindByID(ctx, *caller.OrganizationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrOrganizationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load organization: %w", err)
	}

	plan, err := s.plans.FindPlanByName(ctx, req.PlanName)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown plan '%s'", access.ErrValidation, req.PlanName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch plan: %w", err)
	}

	org.PlanID = &plan.ID
	org.Plan = plan
	org.IsConfigured = true
	if name := strings.TrimSpace(req.Name); name != "" {
		org.Name = name
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.orgs.Update(txCtx, org); err != nil {
			return fmt.Errorf("failed to update organization: %w", err)
		}
		return writeAudit(txCtx, s.audit, caller, &org.ID, model.ActionCompleteSetup, org.ID.String(), org.Name,
			map[string]string{"plan": plan.Name})
	})
	if err != nil {
		return nil, err
	}

	res := toOrganizationResponse(*org)
	return &res, nil
}

func (s *organizationService) List(ctx context.Context, id auth.Identity, page, limit int) ([]OrganizationResponse, int64, error) {
	ok, err := s.access.IsSuperAdmin(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	if !ok {
		return nil, 0, fmt.Errorf("%w: super-admin only", ErrForbidden)
	}

	orgs, total, err := s.orgs.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list organizations: %w", err)
	}
	res := make([]OrganizationResponse, 0, len(orgs))
	for _, o := range orgs {
		res = append(res, toOrganizationResponse(o))
	}
	return res, total, nil
}

// --- Helpers ---

func toOrganizationResponse(o model.Organization) OrganizationResponse {
	res := OrganizationResponse{
		ID:           o.ID.String(),
		Name:         o.Name,
		IsConfigured: o.IsConfigured,
		CreatedAt:    o.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if o.Plan != nil {
		res.PlanName = o.Plan.Name
	}
	return res
}
