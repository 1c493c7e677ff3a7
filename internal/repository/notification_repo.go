package repository

import (
	"context"
	"time"

	"rentledger/internal/model"
	"rentledger/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	ListForUser(ctx context.Context, userID uuid.UUID, orgID *uuid.UUID, page, limit int) ([]model.Notification, int64, error)
	CountUnreadForUser(ctx context.Context, userID uuid.UUID, orgID *uuid.UUID) (int64, error)
	ListAll(ctx context.Context, page, limit int) ([]model.Notification, int64, error)
	CountUnreadAll(ctx context.Context) (int64, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID, orgID *uuid.UUID) error
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	return GetDB(ctx, r.db).Create(n).Error
}

// visibleTo matches notifications addressed to the user, broadcast to the user's organization,
// or broadcast to the whole platform.
func visibleTo(db *gorm.DB, userID uuid.UUID, orgID *uuid.UUID) *gorm.DB {
	if orgID == nil {
		return db.Where("user_id = ? OR (user_id IS NULL AND organization_id IS NULL)", userID)
	}
	return db.Where("user_id = ? OR (user_id IS NULL AND (organization_id = ? OR organization_id IS NULL))", userID, *orgID)
}

func (r *notificationRepository) ListForUser(ctx context.Context, userID uuid.UUID, orgID *uuid.UUID, page, limit int) ([]model.Notification, int64, error) {
	var items []model.Notification
	var total int64

	db := visibleTo(GetDB(ctx, r.db).Model(&model.Notification{}), userID, orgID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := pagination.Offset(page, limit)
	if err := db.Order("created_at desc").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *notificationRepository) CountUnreadForUser(ctx context.Context, userID uuid.UUID, orgID *uuid.UUID) (int64, error) {
	var count int64
	db := visibleTo(GetDB(ctx, r.db).Model(&model.Notification{}), userID, orgID)
	err := db.Where("read_at IS NULL").Count(&count).Error
	return count, err
}

func (r *notificationRepository) ListAll(ctx context.Context, page, limit int) ([]model.Notification, int64, error) {
	var items []model.Notification
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Notification{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := pagination.Offset(page, limit)
	if err := db.Order("created_at desc").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *notificationRepository) CountUnreadAll(ctx context.Context) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Notification{}).Where("read_at IS NULL").Count(&count).Error
	return count, err
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, userID uuid.UUID, orgID *uuid.UUID) error {
	db := visibleTo(GetDB(ctx, r.db).Model(&model.Notification{}).Where("id = ?", id), userID, orgID)
	res := db.Update("read_at", time.Now())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
