package repository

import (
	"context"

	"rentledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PlanRepository interface {
	FindPlanByName(ctx context.Context, name string) (*model.Plan, error)
	FindPlanByID(ctx context.Context, id uuid.UUID) (*model.Plan, error)
	ListPlans(ctx context.Context) ([]model.Plan, error)
	FindOrCreatePlan(ctx context.Context, plan *model.Plan) error

	FindFeatureByKey(ctx context.Context, key string) (*model.Feature, error)
	ListFeatures(ctx context.Context) ([]model.Feature, error)
	CreateFeature(ctx context.Context, feature *model.Feature) error
	FindOrCreateFeature(ctx context.Context, feature *model.Feature) error

	FindPlanFeature(ctx context.Context, planID uuid.UUID, featureKey string) (*model.PlanFeature, error)
	FindPlanFeatureWithLimits(ctx context.Context, planID uuid.UUID, featureKey string) (*model.PlanFeature, error)
	ListPlanFeatures(ctx context.Context, planID uuid.UUID) ([]model.PlanFeature, error)
	UpsertPlanFeature(ctx context.Context, pf *model.PlanFeature) error
}

type planRepository struct {
	db *gorm.DB
}

func NewPlanRepository(db *gorm.DB) PlanRepository {
	return &planRepository{db: db}
}

func (r *planRepository) FindPlanByName(ctx context.Context, name string) (*model.Plan, error) {
	var plan model.Plan
	if err := GetDB(ctx, r.db).Where("name = ?", name).First(&plan).Error; err != nil {
		return nil, notFound(err)
	}
	return &plan, nil
}

func (r *planRepository) FindPlanByID(ctx context.Context, id uuid.UUID) (*model.Plan, error) {
	var plan model.Plan
	if err := GetDB(ctx, r.db).First(&plan, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &plan, nil
}

func (r *planRepository) ListPlans(ctx context.Context) ([]model.Plan, error) {
	var plans []model.Plan
	if err := GetDB(ctx, r.db).Order("monthly_price asc").Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *planRepository) FindOrCreatePlan(ctx context.Context, plan *model.Plan) error {
	return GetDB(ctx, r.db).Where("name = ?", plan.Name).FirstOrCreate(plan).Error
}

func (r *planRepository) FindFeatureByKey(ctx context.Context, key string) (*model.Feature, error) {
	var feature model.Feature
	if err := GetDB(ctx, r.db).Where("key = ?", key).First(&feature).Error; err != nil {
		return nil, notFound(err)
	}
	return &feature, nil
}

func (r *planRepository) ListFeatures(ctx context.Context) ([]model.Feature, error) {
	var features []model.Feature
	if err := GetDB(ctx, r.db).Order("category asc, key asc").Find(&features).Error; err != nil {
		return nil, err
	}
	return features, nil
}

func (r *planRepository) CreateFeature(ctx context.Context, feature *model.Feature) error {
	return GetDB(ctx, r.db).Create(feature).Error
}

func (r *planRepository) FindOrCreateFeature(ctx context.Context, feature *model.Feature) error {
	return GetDB(ctx, r.db).Where("key = ?", feature.Key).FirstOrCreate(feature).Error
}

func (r *planRepository) planFeatureQuery(ctx context.Context, planID uuid.UUID, featureKey string) *gorm.DB {
	return GetDB(ctx, r.db).
		Where("plan_id = ? AND feature_id = (SELECT id FROM features WHERE key = ?)", planID, featureKey)
}

func (r *planRepository) FindPlanFeature(ctx context.Context, planID uuid.UUID, featureKey string) (*model.PlanFeature, error) {
	var pf model.PlanFeature
	if err := r.planFeatureQuery(ctx, planID, featureKey).First(&pf).Error; err != nil {
		return nil, notFound(err)
	}
	return &pf, nil
}

func (r *planRepository) FindPlanFeatureWithLimits(ctx context.Context, planID uuid.UUID, featureKey string) (*model.PlanFeature, error) {
	var pf model.PlanFeature
	if err := r.planFeatureQuery(ctx, planID, featureKey).Preload("Limits").First(&pf).Error; err != nil {
		return nil, notFound(err)
	}
	return &pf, nil
}

func (r *planRepository) ListPlanFeatures(ctx context.Context, planID uuid.UUID) ([]model.PlanFeature, error) {
	var pfs []model.PlanFeature
	if err := GetDB(ctx, r.db).Preload("Feature").Preload("Limits").
		Where("plan_id = ?", planID).Find(&pfs).Error; err != nil {
		return nil, err
	}
	return pfs, nil
}

// UpsertPlanFeature writes the enablement flag and replaces the limits of (plan, feature).
// Callers wanting atomicity run it inside TransactionManager.RunInTx.
func (r *planRepository) UpsertPlanFeature(ctx context.Context, pf *model.PlanFeature) error {
	db := GetDB(ctx, r.db)
	limits := pf.Limits
	pf.Limits = nil

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "plan_id"}, {Name: "feature_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_enabled", "updated_at"}),
	}).Create(pf).Error
	if err != nil {
		return err
	}

	// the conflict path does not return the existing id
	var stored model.PlanFeature
	if err := db.Where("plan_id = ? AND feature_id = ?", pf.PlanID, pf.FeatureID).First(&stored).Error; err != nil {
		return notFound(err)
	}
	pf.ID = stored.ID

	if err := db.Where("plan_feature_id = ?", pf.ID).Delete(&model.PlanFeatureLimit{}).Error; err != nil {
		return err
	}
	for i := range limits {
		limits[i].ID = uuid.Nil
		limits[i].PlanFeatureID = pf.ID
	}
	if len(limits) > 0 {
		if err := db.Create(&limits).Error; err != nil {
			return err
		}
	}
	pf.Limits = limits
	return nil
}
