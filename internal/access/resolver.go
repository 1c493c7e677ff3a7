package access

import (
	"context"
	"errors"
	"fmt"

	"rentledger/internal/model"
	"rentledger/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const ReasonGranted = "Access granted"

// PlanStore reads plan entitlements. Missing rows are reported as repository.ErrNotFound.
type PlanStore interface {
	FindPlanByName(ctx context.Context, name string) (*model.Plan, error)
	FindPlanFeature(ctx context.Context, planID uuid.UUID, featureKey string) (*model.PlanFeature, error)
}

// ProfileStore reads profile permissions. Missing rows are reported as repository.ErrNotFound.
type ProfileStore interface {
	FindProfile(ctx context.Context, id uuid.UUID) (*model.Profile, error)
	FindObjectPermission(ctx context.Context, profileID uuid.UUID, objectType string) (*model.ObjectPermission, error)
	FindFieldPermission(ctx context.Context, profileID uuid.UUID, objectType, fieldName string) (*model.FieldPermission, error)
}

// Request asks whether a user may use a feature and/or act on an object type or field.
// ObjectID is carried for callers but does not take part in the decision.
type Request struct {
	UserID         uuid.UUID
	OrganizationID *uuid.UUID
	PlanName       string
	ProfileID      *uuid.UUID
	FeatureKey     string
	ObjectType     string
	ObjectID       string
	Action         Action
	FieldName      string
}

// Decision is the outcome of a resolution. Reason is always set.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

func allow() Decision { return Decision{Allowed: true, Reason: ReasonGranted} }

func deny(reason string) Decision { return Decision{Allowed: false, Reason: reason} }

func denyf(format string, args ...any) Decision { return deny(fmt.Sprintf(format, args...)) }

// Resolver composes plan entitlement, object permission and field permission into one
// decision. It holds no state between calls.
type Resolver struct {
	plans    PlanStore
	profiles ProfileStore
}

func NewResolver(plans PlanStore, profiles ProfileStore) *Resolver {
	return &Resolver{plans: plans, profiles: profiles}
}

// Validate checks the shape of req without touching the store.
func (r *Resolver) Validate(req Request) error {
	if req.FeatureKey == "" && req.ObjectType == "" {
		return fmt.Errorf("%w: featureKey or objectType is required", ErrValidation)
	}
	if req.ObjectType != "" {
		if req.Action == "" {
			return fmt.Errorf("%w: action is required with objectType", ErrValidation)
		}
		if _, err := ParseAction(string(req.Action)); err != nil {
			return err
		}
	} else if req.Action != "" || req.FieldName != "" {
		return fmt.Errorf("%w: objectType is required with action or fieldName", ErrValidation)
	}
	return nil
}

type layerResult struct {
	decision *Decision // nil when the layer is inactive or passed
	err      error
}

// Resolve runs the active layers and returns the first denial in layer order
// (feature, object, field). Lookup faults are returned as errors, never as an allow.
func (r *Resolver) Resolve(ctx context.Context, req Request) (Decision, error) {
	if err := r.Validate(req); err != nil {
		return Decision{}, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var feature, object layerResult
	var g errgroup.Group
	if req.FeatureKey != "" {
		g.Go(func() error {
			feature.decision, feature.err = r.featureLayer(ctx, req)
			if feature.decision != nil || feature.err != nil {
				// the object layer can no longer change the outcome
				cancel()
			}
			return nil
		})
	}
	if req.ObjectType != "" {
		g.Go(func() error {
			object.decision, object.err = r.objectLayer(ctx, req)
			return nil
		})
	}
	_ = g.Wait()

	for _, layer := range []layerResult{feature, object} {
		if layer.err != nil {
			return Decision{}, layer.err
		}
		if layer.decision != nil {
			return *layer.decision, nil
		}
	}
	return allow(), nil
}

func (r *Resolver) featureLayer(ctx context.Context, req Request) (*Decision, error) {
	if req.PlanName == "" {
		d := deny("Failed to fetch plan")
		return &d, nil
	}
	plan, err := r.plans.FindPlanByName(ctx, req.PlanName)
	if errors.Is(err, repository.ErrNotFound) {
		d := deny("Failed to fetch plan")
		return &d, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch plan %q: %w", req.PlanName, err)
	}

	pf, err := r.plans.FindPlanFeature(ctx, plan.ID, req.FeatureKey)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to fetch feature %q: %w", req.FeatureKey, err)
	}
	if pf == nil || !pf.IsEnabled {
		d := denyf("Feature '%s' is not enabled for plan '%s'", req.FeatureKey, plan.Name)
		return &d, nil
	}
	return nil, nil
}

func (r *Resolver) objectLayer(ctx context.Context, req Request) (*Decision, error) {
	if req.ProfileID == nil {
		d := deny("No profile assigned")
		return &d, nil
	}
	profileID := *req.ProfileID

	if _, err := r.profiles.FindProfile(ctx, profileID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			d := deny("Profile not found")
			return &d, nil
		}
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}

	perm, err := r.profiles.FindObjectPermission(ctx, profileID, req.ObjectType)
	if errors.Is(err, repository.ErrNotFound) {
		d := denyf("No access to %s", req.ObjectType)
		return &d, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s permission: %w", req.ObjectType, err)
	}
	if !req.Action.Allows(*perm) {
		d := denyf("Permission denied: cannot %s %s", req.Action, req.ObjectType)
		return &d, nil
	}

	if req.FieldName == "" {
		return nil, nil
	}
	field, err := r.profiles.FindFieldPermission(ctx, profileID, req.ObjectType, req.FieldName)
	if errors.Is(err, repository.ErrNotFound) {
		// no field row: the object decision stands
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch field permission %s.%s: %w", req.ObjectType, req.FieldName, err)
	}
	if !req.Action.allowsField(*field) {
		d := denyf("Field-level permission denied: cannot %s %s.%s", req.Action, req.ObjectType, req.FieldName)
		return &d, nil
	}
	return nil, nil
}

// IsSuperAdmin is the platform-wide override. It never consults profiles or plans.
func IsSuperAdmin(u *model.User) bool {
	return u != nil && u.IsSuperAdmin
}
