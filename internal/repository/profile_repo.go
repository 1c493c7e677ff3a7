package repository

import (
	"context"

	"rentledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProfileRepository interface {
	Create(ctx context.Context, profile *model.Profile) error
	Update(ctx context.Context, profile *model.Profile) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindProfile(ctx context.Context, id uuid.UUID) (*model.Profile, error)
	FindProfileWithPermissions(ctx context.Context, id uuid.UUID) (*model.Profile, error)
	FindTemplateByName(ctx context.Context, name string) (*model.Profile, error)
	ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]model.Profile, error)
	CountUsers(ctx context.Context, profileID uuid.UUID) (int64, error)

	FindObjectPermission(ctx context.Context, profileID uuid.UUID, objectType string) (*model.ObjectPermission, error)
	ListObjectPermissions(ctx context.Context, profileID uuid.UUID) ([]model.ObjectPermission, error)
	ReplaceObjectPermissions(ctx context.Context, profileID uuid.UUID, perms []model.ObjectPermission) error

	FindFieldPermission(ctx context.Context, profileID uuid.UUID, objectType, fieldName string) (*model.FieldPermission, error)
	UpsertFieldPermission(ctx context.Context, perm *model.FieldPermission) error
	DeleteFieldPermission(ctx context.Context, profileID uuid.UUID, objectType, fieldName string) error
}

type profileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) Create(ctx context.Context, profile *model.Profile) error {
	return GetDB(ctx, r.db).Create(profile).Error
}

func (r *profileRepository) Update(ctx context.Context, profile *model.Profile) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(profile).Error
}

func (r *profileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("profile_id = ?", id).Delete(&model.ObjectPermission{}).Error; err != nil {
		return err
	}
	if err := db.Where("profile_id = ?", id).Delete(&model.FieldPermission{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&model.Profile{}).Error
}

func (r *profileRepository) FindProfile(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	var profile model.Profile
	if err := GetDB(ctx, r.db).First(&profile, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &profile, nil
}

func (r *profileRepository) FindProfileWithPermissions(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	var profile model.Profile
	if err := GetDB(ctx, r.db).
		Preload("ObjectPermissions", func(db *gorm.DB) *gorm.DB { return db.Order("object_type asc") }).
		Preload("FieldPermissions", func(db *gorm.DB) *gorm.DB { return db.Order("object_type asc, field_name asc") }).
		First(&profile, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &profile, nil
}

func (r *profileRepository) FindTemplateByName(ctx context.Context, name string) (*model.Profile, error) {
	var profile model.Profile
	if err := GetDB(ctx, r.db).Where("organization_id IS NULL AND name = ?", name).First(&profile).Error; err != nil {
		return nil, notFound(err)
	}
	return &profile, nil
}

func (r *profileRepository) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]model.Profile, error) {
	var profiles []model.Profile
	if err := GetDB(ctx, r.db).Preload("ObjectPermissions").
		Where("organization_id = ?", orgID).Order("name asc").Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

func (r *profileRepository) CountUsers(ctx context.Context, profileID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.User{}).Where("profile_id = ?", profileID).Count(&count).Error
	return count, err
}

func (r *profileRepository) FindObjectPermission(ctx context.Context, profileID uuid.UUID, objectType string) (*model.ObjectPermission, error) {
	var perm model.ObjectPermission
	if err := GetDB(ctx, r.db).
		Where("profile_id = ? AND object_type = ?", profileID, objectType).
		First(&perm).Error; err != nil {
		return nil, notFound(err)
	}
	return &perm, nil
}

func (r *profileRepository) ListObjectPermissions(ctx context.Context, profileID uuid.UUID) ([]model.ObjectPermission, error) {
	var perms []model.ObjectPermission
	if err := GetDB(ctx, r.db).Where("profile_id = ?", profileID).Order("object_type asc").Find(&perms).Error; err != nil {
		return nil, err
	}
	return perms, nil
}

func (r *profileRepository) ReplaceObjectPermissions(ctx context.Context, profileID uuid.UUID, perms []model.ObjectPermission) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("profile_id = ?", profileID).Delete(&model.ObjectPermission{}).Error; err != nil {
		return err
	}
	if len(perms) == 0 {
		return nil
	}
	for i := range perms {
		perms[i].ID = uuid.Nil
		perms[i].ProfileID = profileID
	}
	return db.Create(&perms).Error
}

func (r *profileRepository) FindFieldPermission(ctx context.Context, profileID uuid.UUID, objectType, fieldName string) (*model.FieldPermission, error) {
	var perm model.FieldPermission
	if err := GetDB(ctx, r.db).
		Where("profile_id = ? AND object_type = ? AND field_name = ?", profileID, objectType, fieldName).
		First(&perm).Error; err != nil {
		return nil, notFound(err)
	}
	return &perm, nil
}

func (r *profileRepository) UpsertFieldPermission(ctx context.Context, perm *model.FieldPermission) error {
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "profile_id"}, {Name: "object_type"}, {Name: "field_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"can_read", "can_edit"}),
	}).Create(perm).Error
}

func (r *profileRepository) DeleteFieldPermission(ctx context.Context, profileID uuid.UUID, objectType, fieldName string) error {
	res := GetDB(ctx, r.db).
		Where("profile_id = ? AND object_type = ? AND field_name = ?", profileID, objectType, fieldName).
		Delete(&model.FieldPermission{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
