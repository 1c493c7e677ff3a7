package handler

import (
	"net/http"

	"rentledger/internal/middleware"
	"rentledger/internal/service"
	"rentledger/pkg/pagination"
	"rentledger/pkg/response"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notificationService service.NotificationService
	authn               *middleware.Authenticator
}

func NewNotificationHandler(notificationService service.NotificationService, authn *middleware.Authenticator) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService, authn: authn}
}

// RegisterRoutes binds the user and admin notification endpoints. Admin endpoints are
// not behind RequireSuperAdmin: each one applies its own policy for non super-admins.
func (h *NotificationHandler) RegisterRoutes(router *gin.RouterGroup) {
	mine := router.Group("/api/notifications")
	mine.Use(h.authn.RequireAuth())
	{
		mine.GET("", h.ListMine)
		mine.GET("/unread-count", h.UnreadCount)
		mine.PUT("/:id/read", h.MarkRead)
	}

	admin := router.Group("/api/admin/notifications")
	admin.Use(h.authn.RequireAuth())
	{
		admin.GET("", h.AdminList)
		admin.GET("/unread-count", h.AdminUnreadCount)
		admin.POST("", h.Create)
	}
}

// ListMine lists notifications addressed to the caller or the caller's organization
// @Summary      My notifications
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Router       /api/notifications [get]
func (h *NotificationHandler) ListMine(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)
	items, total, err := h.notificationService.ListMine(c.Request.Context(), id, p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"notifications": items,
		"pagination":    p.Meta(total),
	}))
}

// UnreadCount counts the caller's unread notifications
// @Summary      My unread count
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/notifications/unread-count [get]
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}
	count, err := h.notificationService.UnreadCount(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"unread_count": count}))
}

// MarkRead marks one of the caller's notifications as read
// @Summary      Mark notification read
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Notification ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/notifications/{id}/read [put]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}
	if err := h.notificationService.MarkRead(c.Request.Context(), id, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Notification marked as read"}))
}

// AdminList lists notifications across organizations. Non super-admins get 403.
// @Summary      All notifications
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Failure      403    {object}  response.Response
// @Router       /api/admin/notifications [get]
func (h *NotificationHandler) AdminList(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)
	items, total, err := h.notificationService.AdminList(c.Request.Context(), id, p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"notifications": items,
		"pagination":    p.Meta(total),
	}))
}

// AdminUnreadCount counts unread notifications platform-wide. Non super-admins get 0, not 403.
// @Summary      All unread count
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/admin/notifications/unread-count [get]
func (h *NotificationHandler) AdminUnreadCount(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}
	count, err := h.notificationService.AdminUnreadCount(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"unread_count": count}))
}

// Create stores a notification and pushes it to connected clients. Non super-admins get 403.
// @Summary      Create notification
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateNotificationRequest  true  "Notification"
// @Success      201      {object}  response.Response{data=service.NotificationResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/admin/notifications [post]
func (h *NotificationHandler) Create(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}
	var req service.CreateNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	n, err := h.notificationService.Create(c.Request.Context(), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, n))
}
