package repository

import (
	"context"

	"rentledger/internal/model"
	"rentledger/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrganizationRepository interface {
	Create(ctx context.Context, org *model.Organization) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Organization, error)
	List(ctx context.Context, page, limit int) ([]model.Organization, int64, error)
	Update(ctx context.Context, org *model.Organization) error
}

type organizationRepository struct {
	db *gorm.DB
}

func NewOrganizationRepository(db *gorm.DB) OrganizationRepository {
	return &organizationRepository{db: db}
}

func (r *organizationRepository) Create(ctx context.Context, org *model.Organization) error {
	return GetDB(ctx, r.db).Create(org).Error
}

// FindByID loads the organization together with its plan.
func (r *organizationRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Organization, error) {
	var org model.Organization
	if err := GetDB(ctx, r.db).Preload("Plan").First(&org, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &org, nil
}

func (r *organizationRepository) List(ctx context.Context, page, limit int) ([]model.Organization, int64, error) {
	var orgs []model.Organization
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Organization{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := pagination.Offset(page, limit)
	if err := db.Preload("Plan").Order("created_at desc").Offset(offset).Limit(limit).Find(&orgs).Error; err != nil {
		return nil, 0, err
	}
	return orgs, total, nil
}

func (r *organizationRepository) Update(ctx context.Context, org *model.Organization) error {
	return GetDB(ctx, r.db).Omit("Plan").Save(org).Error
}
