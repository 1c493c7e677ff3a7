package handler

import (
	"net/http"

	"rentledger/internal/middleware"
	"rentledger/internal/service"
	"rentledger/pkg/pagination"
	"rentledger/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
	authn        *middleware.Authenticator
}

func NewAuditHandler(auditService service.AuditService, authn *middleware.Authenticator) *AuditHandler {
	return &AuditHandler{auditService: auditService, authn: authn}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/audit-logs")
	group.Use(h.authn.RequireAuth())
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs pages through permission and entitlement changes
// @Summary      Get audit logs
// @Description  Super-admins see every organization; others need AuditLog read access and see their own organization
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Failure      403    {object}  response.Response
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)
	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), id, p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"logs":       logs,
		"pagination": p.Meta(total),
	}))
}
