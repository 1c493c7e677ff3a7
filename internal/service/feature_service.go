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

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// --- DTOs ---

type CreateFeatureRequest struct {
	Key         string `json:"key" binding:"required"`
	Category    string `json:"category" binding:"required"`
	DisplayName string `json:"display_name" binding:"required"`
	Description string `json:"description"`
}

type SetPlanFeatureRequest struct {
	Enabled bool                       `json:"enabled"`
	Limits  map[string]decimal.Decimal `json:"limits" swaggertype:"object"`
}

type FeatureResponse struct {
	ID          string `json:"id"`
	Key         string `json:"key"`
	Category    string `json:"category"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
}

type PlanFeatureResponse struct {
	FeatureKey string                     `json:"feature_key"`
	Enabled    bool                       `json:"enabled"`
	Limits     map[string]decimal.Decimal `json:"limits" swaggertype:"object"`
}

type PlanResponse struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	DisplayName  string                `json:"display_name"`
	MonthlyPrice decimal.Decimal       `json:"monthly_price" swaggertype:"string"`
	Features     []PlanFeatureResponse `json:"features"`
}

// --- Interface ---

type FeatureService interface {
	ListPlans(ctx context.Context) ([]PlanResponse, error)
	ListFeatures(ctx context.Context) ([]FeatureResponse, error)
	CreateFeature(ctx context.Context, id auth.Identity, req CreateFeatureRequest) (*FeatureResponse, error)
	SetPlanFeature(ctx context.Context, id auth.Identity, planName, featureKey string, req SetPlanFeatureRequest) (*PlanFeatureResponse, error)
	SeedDefaults(ctx context.Context) error
}

type featureService struct {
	plans  repository.PlanRepository
	audit  repository.AuditRepository
	tx     repository.TransactionManager
	access AccessService
	log    *zap.Logger
}

func NewFeatureService(
	plans repository.PlanRepository,
	audit repository.AuditRepository,
	tx repository.TransactionManager,
	accessSvc AccessService,
	log *zap.Logger,
) FeatureService {
	return &featureService{plans: plans, audit: audit, tx: tx, access: accessSvc, log: log}
}

// --- Implementation ---

func (s *featureService) ListPlans(ctx context.Context) ([]PlanResponse, error) {
	plans, err := s.plans.ListPlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch plans: %w", err)
	}

	res := make([]PlanResponse, 0, len(plans))
	for _, p := range plans {
		pfs, err := s.plans.ListPlanFeatures(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch features of plan '%s': %w", p.Name, err)
		}
		features := make([]PlanFeatureResponse, 0, len(pfs))
		for _, pf := range pfs {
			features = append(features, toPlanFeatureResponse(pf))
		}
		res = append(res, PlanResponse{
			ID:           p.ID.String(),
			Name:         p.Name,
			DisplayName:  p.DisplayName,
			MonthlyPrice: p.MonthlyPrice,
			Features:     features,
		})
	}
	return res, nil
}

func (s *featureService) ListFeatures(ctx context.Context) ([]FeatureResponse, error) {
	features, err := s.plans.ListFeatures(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch features: %w", err)
	}
	res := make([]FeatureResponse, 0, len(features))
	for _, f := range features {
		res = append(res, toFeatureResponse(f))
	}
	return res, nil
}

func (s *featureService) CreateFeature(ctx context.Context, id auth.Identity, req CreateFeatureRequest) (*FeatureResponse, error) {
	actor, err := s.superAdmin(ctx, id)
	if err != nil {
		return nil, err
	}

	key := strings.TrimSpace(req.Key)
	if _, err := s.plans.FindFeatureByKey(ctx, key); err == nil {
		return nil, fmt.Errorf("%w: feature '%s' already exists", ErrConflict, key)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up feature: %w", err)
	}

	feature := &model.Feature{
		Key:         key,
		Category:    req.Category,
		DisplayName: req.DisplayName,
		Description: req.Description,
	}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.plans.CreateFeature(txCtx, feature); err != nil {
			return fmt.Errorf("failed to create feature: %w", err)
		}
		return writeAudit(txCtx, s.audit, actor, nil, model.ActionCreateFeature, feature.ID.String(), feature.Key, req)
	})
	if err != nil {
		return nil, err
	}

	res := toFeatureResponse(*feature)
	return &res, nil
}

// SetPlanFeature enables or disables a feature for a plan and replaces its limits.
// Organizations on that plan see the change on their next request.
func (s *featureService) SetPlanFeature(ctx context.Context, id auth.Identity, planName, featureKey string, req SetPlanFeatureRequest) (*PlanFeatureResponse, error) {
	actor, err := s.superAdmin(ctx, id)
	if err != nil {
		return nil, err
	}

	plan, err := s.plans.FindPlanByName(ctx, planName)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: plan '%s'", ErrNotFound, planName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch plan: %w", err)
	}
	feature, err := s.plans.FindFeatureByKey(ctx, featureKey)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: feature '%s'", ErrNotFound, featureKey)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feature: %w", err)
	}

	pf := &model.PlanFeature{PlanID: plan.ID, FeatureID: feature.ID, IsEnabled: req.Enabled}
	for name, value := range req.Limits {
		if value.IsNegative() {
			return nil, fmt.Errorf("%w: limit %s must not be negative", access.ErrValidation, name)
		}
		pf.Limits = append(pf.Limits, model.PlanFeatureLimit{Name: name, Value: value})
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.plans.UpsertPlanFeature(txCtx, pf); err != nil {
			return fmt.Errorf("failed to save plan feature: %w", err)
		}
		return writeAudit(txCtx, s.audit, actor, nil, model.ActionSetPlanFeature, pf.ID.String(),
			plan.Name+"/"+feature.Key, req)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("plan feature updated",
		zap.String("plan", plan.Name),
		zap.String("feature", feature.Key),
		zap.Bool("enabled", req.Enabled),
	)
	pf.Feature = feature
	res := toPlanFeatureResponse(*pf)
	return &res, nil
}

type seedFeature struct {
	model.Feature
	Plans  []string                   // plans that enable it
	Limits map[string]decimal.Decimal // per plan name
}

// SeedDefaults creates the built-in plans and features if not already present and
// enables each feature on its default plans. Operator changes to existing rows are kept.
func (s *featureService) SeedDefaults(ctx context.Context) error {
	plans := []model.Plan{
		{Name: "starter", DisplayName: "Starter", MonthlyPrice: decimal.NewFromInt(29)},
		{Name: "professional", DisplayName: "Professional", MonthlyPrice: decimal.NewFromInt(79)},
		{Name: "enterprise", DisplayName: "Enterprise", MonthlyPrice: decimal.NewFromInt(199)},
	}
	features := []seedFeature{
		{
			Feature: model.Feature{Key: "property_management", Category: "core", DisplayName: "Property management"},
			Plans:   []string{"starter", "professional", "enterprise"},
			Limits: map[string]decimal.Decimal{
				"starter":      decimal.NewFromInt(25),
				"professional": decimal.NewFromInt(250),
			},
		},
		{
			Feature: model.Feature{Key: "online_payments", Category: "payments", DisplayName: "Online rent payments"},
			Plans:   []string{"starter", "professional", "enterprise"},
		},
		{
			Feature: model.Feature{Key: "accounting", Category: "accounting", DisplayName: "General ledger"},
			Plans:   []string{"professional", "enterprise"},
		},
		{
			Feature: model.Feature{Key: "advanced_analytics", Category: "reporting", DisplayName: "Advanced analytics"},
			Plans:   []string{"professional", "enterprise"},
		},
		{
			Feature: model.Feature{Key: "custom_profiles", Category: "administration", DisplayName: "Custom profiles"},
			Plans:   []string{"enterprise"},
		},
		{
			Feature: model.Feature{Key: "audit_log", Category: "administration", DisplayName: "Audit log"},
			Plans:   []string{"enterprise"},
		},
	}

	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		planByName := make(map[string]*model.Plan, len(plans))
		for i := range plans {
			if err := s.plans.FindOrCreatePlan(txCtx, &plans[i]); err != nil {
				return fmt.Errorf("failed to seed plan '%s': %w", plans[i].Name, err)
			}
			planByName[plans[i].Name] = &plans[i]
		}

		for _, sf := range features {
			_, err := s.plans.FindFeatureByKey(txCtx, sf.Key)
			if err == nil {
				continue
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("failed to look up feature '%s': %w", sf.Key, err)
			}

			feature := sf.Feature
			if err := s.plans.CreateFeature(txCtx, &feature); err != nil {
				return fmt.Errorf("failed to seed feature '%s': %w", sf.Key, err)
			}
			for _, planName := range sf.Plans {
				pf := &model.PlanFeature{PlanID: planByName[planName].ID, FeatureID: feature.ID, IsEnabled: true}
				if limit, ok := sf.Limits[planName]; ok {
					pf.Limits = []model.PlanFeatureLimit{{Name: "max_units", Value: limit}}
				}
				if err := s.plans.UpsertPlanFeature(txCtx, pf); err != nil {
					return fmt.Errorf("failed to enable '%s' on '%s': %w", sf.Key, planName, err)
				}
			}
			s.log.Info("seeded feature", zap.String("key", sf.Key), zap.Strings("plans", sf.Plans))
		}
		return nil
	})
}

func (s *featureService) superAdmin(ctx context.Context, id auth.Identity) (*model.User, error) {
	user, err := s.access.CurrentUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if !access.IsSuperAdmin(user) {
		return nil, fmt.Errorf("%w: super-admin only", ErrForbidden)
	}
	return user, nil
}

// --- Helpers ---

func toFeatureResponse(f model.Feature) FeatureResponse {
	return FeatureResponse{
		ID:          f.ID.String(),
		Key:         f.Key,
		Category:    f.Category,
		DisplayName: f.DisplayName,
		Description: f.Description,
	}
}

func toPlanFeatureResponse(pf model.PlanFeature) PlanFeatureResponse {
	res := PlanFeatureResponse{Enabled: pf.IsEnabled, Limits: make(map[string]decimal.Decimal, len(pf.Limits))}
	if pf.Feature != nil {
		res.FeatureKey = pf.Feature.Key
	}
	for _, l := range pf.Limits {
		res.Limits[l.Name] = l.Value
	}
	return res
}
