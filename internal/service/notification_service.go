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
	"go.uber.org/zap"
)

// Notifier pushes a stored notification to connected clients. Delivery is best effort.
type Notifier interface {
	Notify(n model.Notification)
}

// --- DTOs ---

type CreateNotificationRequest struct {
	OrganizationID *string `json:"organization_id"`
	UserID         *string `json:"user_id"`
	Kind           string  `json:"kind"`
	Title          string  `json:"title" binding:"required"`
	Body           string  `json:"body"`
}

type NotificationResponse struct {
	ID             string  `json:"id"`
	OrganizationID *string `json:"organization_id"`
	UserID         *string `json:"user_id"`
	Kind           string  `json:"kind"`
	Title          string  `json:"title"`
	Body           string  `json:"body"`
	Read           bool    `json:"read"`
	CreatedAt      string  `json:"created_at"`
}

// --- Interface ---

type NotificationService interface {
	ListMine(ctx context.Context, id auth.Identity, page, limit int) ([]NotificationResponse, int64, error)
	UnreadCount(ctx context.Context, id auth.Identity) (int64, error)
	MarkRead(ctx context.Context, id auth.Identity, notificationID string) error
	AdminList(ctx context.Context, id auth.Identity, page, limit int) ([]NotificationResponse, int64, error)
	AdminUnreadCount(ctx context.Context, id auth.Identity) (int64, error)
	Create(ctx context.Context, id auth.Identity, req CreateNotificationRequest) (*NotificationResponse, error)
}

type notificationService struct {
	repo     repository.NotificationRepository
	access   AccessService
	notifier Notifier
	log      *zap.Logger
}

func NewNotificationService(repo repository.NotificationRepository, accessSvc AccessService, notifier Notifier, log *zap.Logger) NotificationService {
	return &notificationService{repo: repo, access: accessSvc, notifier: notifier, log: log}
}

// --- Implementation ---

func (s *notificationService) ListMine(ctx context.Context, id auth.Identity, page, limit int) ([]NotificationResponse, int64, error) {
	user, err := s.access.CurrentUser(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	items, total, err := s.repo.ListForUser(ctx, user.ID, user.OrganizationID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	return toNotificationResponses(items), total, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, id auth.Identity) (int64, error) {
	user, err := s.access.CurrentUser(ctx, id)
	if err != nil {
		return 0, err
	}
	count, err := s.repo.CountUnreadForUser(ctx, user.ID, user.OrganizationID)
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

func (s *notificationService) MarkRead(ctx context.Context, id auth.Identity, notificationID string) error {
	user, err := s.access.CurrentUser(ctx, id)
	if err != nil {
		return err
	}
	nid, err := parseID(notificationID, "notification")
	if err != nil {
		return err
	}
	err = s.repo.MarkRead(ctx, nid, user.ID, user.OrganizationID)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: notification", ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

// AdminList is super-admin only and refuses everyone else with ErrForbidden.
func (s *notificationService) AdminList(ctx context.Context, id auth.Identity, page, limit int) ([]NotificationResponse, int64, error) {
	if err := s.requireSuperAdmin(ctx, id); err != nil {
		return nil, 0, err
	}
	items, total, err := s.repo.ListAll(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	return toNotificationResponses(items), total, nil
}

// AdminUnreadCount answers 0 to non super-admins instead of refusing, so that a shared
// header badge can poll it for every user.
func (s *notificationService) AdminUnreadCount(ctx context.Context, id auth.Identity) (int64, error) {
	if err := s.requireSuperAdmin(ctx, id); err != nil {
		if errors.Is(err, ErrForbidden) {
			return 0, nil
		}
		return 0, err
	}
	count, err := s.repo.CountUnreadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

// Create stores and pushes a notification. With neither organization_id nor user_id it is
// addressed to the whole platform.
func (s *notificationService) Create(ctx context.Context, id auth.Identity, req CreateNotificationRequest) (*NotificationResponse, error) {
	if err := s.requireSuperAdmin(ctx, id); err != nil {
		return nil, err
	}

	n := model.Notification{Kind: req.Kind, Title: req.Title, Body: req.Body}
	switch n.Kind {
	case "":
		n.Kind = model.NotificationKindInfo
	case model.NotificationKindInfo, model.NotificationKindBilling, model.NotificationKindSystem:
	default:
		return nil, fmt.Errorf("%w: unknown notification kind %q", access.ErrValidation, req.Kind)
	}

	var err error
	if n.OrganizationID, err = optionalID(req.OrganizationID, "organization_id"); err != nil {
		return nil, err
	}
	if n.UserID, err = optionalID(req.UserID, "user_id"); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, &n); err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}
	if s.notifier != nil {
		s.notifier.Notify(n)
	}
	s.log.Info("notification created", zap.String("id", n.ID.String()), zap.String("kind", n.Kind))

	res := toNotificationResponse(n)
	return &res, nil
}

func (s *notificationService) requireSuperAdmin(ctx context.Context, id auth.Identity) error {
	ok, err := s.access.IsSuperAdmin(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: super-admin only", ErrForbidden)
	}
	return nil
}

// --- Helpers ---

func optionalID(raw *string, field string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s", access.ErrValidation, field)
	}
	return &id, nil
}

func optionalString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func toNotificationResponse(n model.Notification) NotificationResponse {
	return NotificationResponse{
		ID:             n.ID.String(),
		OrganizationID: optionalString(n.OrganizationID),
		UserID:         optionalString(n.UserID),
		Kind:           n.Kind,
		Title:          n.Title,
		Body:           n.Body,
		Read:           n.ReadAt != nil,
		CreatedAt:      n.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func toNotificationResponses(items []model.Notification) []NotificationResponse {
	res := make([]NotificationResponse, 0, len(items))
	for _, n := range items {
		res = append(res, toNotificationResponse(n))
	}
	return res
}
