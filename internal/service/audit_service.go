package service

import (
	"context"
	"encoding/json"
	"fmt"

	"rentledger/internal/access"
	"rentledger/internal/auth"
	"rentledger/internal/model"
	"rentledger/internal/repository"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AuditLogResponse struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id"`
	Username   string         `json:"username"`
	Action     string         `json:"action"`
	EntityID   string         `json:"entity_id"`
	EntityName string         `json:"entity_name"`
	Details    datatypes.JSON `json:"details" swaggertype:"object"`
	CreatedAt  string         `json:"created_at"`
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, id auth.Identity, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	repo   repository.AuditRepository
	access AccessService
}

func NewAuditService(repo repository.AuditRepository, accessSvc AccessService) AuditService {
	return &auditService{repo: repo, access: accessSvc}
}

// GetAuditLogs pages through the audit trail. Super-admins see every organization;
// other callers need read access on AuditLog and only see their own organization.
func (s *auditService) GetAuditLogs(ctx context.Context, id auth.Identity, page, limit int) ([]AuditLogResponse, int64, error) {
	user, err := s.access.CurrentUser(ctx, id)
	if err != nil {
		return nil, 0, err
	}

	var orgID *uuid.UUID
	if !access.IsSuperAdmin(user) {
		if user.OrganizationID == nil {
			return nil, 0, ErrOrganizationNotFound
		}
		decision, err := s.access.CanPerformAction(ctx, id, model.ObjectAuditLog, access.ActionRead)
		if err != nil {
			return nil, 0, err
		}
		if !decision.Allowed {
			return nil, 0, fmt.Errorf("%w: %s", ErrForbidden, decision.Reason)
		}
		orgID = user.OrganizationID
	}

	logs, total, err := s.repo.ListByOrganization(ctx, orgID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		username := "System"
		userID := ""
		if l.User != nil {
			username = l.User.Username
		}
		if l.UserID != nil {
			userID = l.UserID.String()
		}

		res = append(res, AuditLogResponse{
			ID:         l.ID.String(),
			UserID:     userID,
			Username:   username,
			Action:     l.Action,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			Details:    l.Details,
			CreatedAt:  l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return res, total, nil
}

// writeAudit records a privileged change. It runs on whatever transaction ctx carries.
func writeAudit(ctx context.Context, repo repository.AuditRepository, actor *model.User, orgID *uuid.UUID, action, entityID, entityName string, details any) error {
	raw, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}
	entry := &model.AuditLog{
		OrganizationID: orgID,
		Action:         action,
		EntityID:       entityID,
		EntityName:     entityName,
		Details:        datatypes.JSON(raw),
	}
	if actor != nil {
		entry.UserID = &actor.ID
	}
	if err := repo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}
