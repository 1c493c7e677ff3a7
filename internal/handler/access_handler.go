package handler

import (
	"net/http"

	"rentledger/internal/middleware"
	"rentledger/internal/model"
	"rentledger/internal/service"
	"rentledger/pkg/response"

	"github.com/gin-gonic/gin"
)

type AccessHandler struct {
	accessService service.AccessService
	authn         *middleware.Authenticator
}

func NewAccessHandler(accessService service.AccessService, authn *middleware.Authenticator) *AccessHandler {
	return &AccessHandler{accessService: accessService, authn: authn}
}

func (h *AccessHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/access")
	group.Use(h.authn.RequireAuth())
	{
		group.POST("/check", h.Check)
		group.GET("/permissions", h.ObjectPermissions)
		group.GET("/permissions/:objectType", h.MinimumAccess)
		group.GET("/features/:key/limits", h.FeatureLimits)
	}
}

// Check resolves one access question for the caller
// @Summary      Check access
// @Description  Resolves plan feature, object and field permissions for the authenticated user. Identity fields in the body are ignored in favour of the session.
// @Tags         access
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CheckRequest  true  "Access question"
// @Success      200      {object}  access.Decision
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      500      {object}  response.Response
// @Router       /api/access/check [post]
func (h *AccessHandler) Check(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req service.CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	decision, err := h.accessService.Check(c.Request.Context(), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, decision)
}

// ObjectPermissions lists the caller's object permissions
// @Summary      My object permissions
// @Tags         access
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.ObjectPermissionResponse}
// @Failure      401  {object}  response.Response
// @Router       /api/access/permissions [get]
func (h *AccessHandler) ObjectPermissions(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}
	perms, err := h.accessService.ObjectPermissions(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, perms))
}

// MinimumAccess reports whether the caller reaches a minimum access level on an object type
// @Summary      Minimum access
// @Description  Compares the caller's access level on the object type, derived from the permission flags, with min.
// @Tags         access
// @Produce      json
// @Security     BearerAuth
// @Param        objectType  path      string  true  "Object type, e.g. Tenant"
// @Param        min         query     string  true  "None, Read, ReadWrite or All"
// @Success      200         {object}  response.Response{data=service.MinimumAccessResponse}
// @Failure      400         {object}  response.Response
// @Failure      401         {object}  response.Response
// @Router       /api/access/permissions/{objectType} [get]
func (h *AccessHandler) MinimumAccess(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}
	objectType := c.Param("objectType")
	level := model.AccessLevel(c.Query("min"))
	allowed, err := h.accessService.HasMinimumAccess(c.Request.Context(), id, objectType, level)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, service.MinimumAccessResponse{
		ObjectType: objectType,
		MinLevel:   level,
		Allowed:    allowed,
	}))
}

// FeatureLimits returns the numeric limits the caller's plan sets for a feature
// @Summary      Feature limits
// @Tags         access
// @Produce      json
// @Security     BearerAuth
// @Param        key  path      string  true  "Feature key"
// @Success      200  {object}  response.Response{data=service.FeatureLimitsResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/access/features/{key}/limits [get]
func (h *AccessHandler) FeatureLimits(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}
	limits, err := h.accessService.FeatureLimits(c.Request.Context(), id, c.Param("key"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, limits))
}
