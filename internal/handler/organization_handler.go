package handler

import (
	"net/http"

	"rentledger/internal/middleware"
	"rentledger/internal/service"
	"rentledger/pkg/pagination"
	"rentledger/pkg/response"

	"github.com/gin-gonic/gin"
)

type OrganizationHandler struct {
	organizationService service.OrganizationService
	accessService       service.AccessService
	authn               *middleware.Authenticator
}

func NewOrganizationHandler(organizationService service.OrganizationService, accessService service.AccessService, authn *middleware.Authenticator) *OrganizationHandler {
	return &OrganizationHandler{organizationService: organizationService, accessService: accessService, authn: authn}
}

func (h *OrganizationHandler) RegisterRoutes(router *gin.RouterGroup) {
	org := router.Group("/api/organization")
	org.Use(h.authn.RequireAuth())
	{
		org.GET("", h.Current)
		org.POST("", h.Create)
		org.POST("/complete-setup", h.CompleteSetup)
	}

	router.GET("/api/admin/organizations", h.authn.RequireAuth(), middleware.RequireSuperAdmin(h.accessService), h.List)
}

// Current returns the caller's organization
// @Summary      Current organization
// @Tags         organization
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.OrganizationResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/organization [get]
func (h *OrganizationHandler) Current(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}
	org, err := h.organizationService.Current(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, org))
}

// Create starts onboarding: a new organization owned by the caller
// @Summary      Create organization
// @Tags         organization
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateOrganizationRequest  true  "Organization"
// @Success      201      {object}  response.Response{data=service.OrganizationResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/organization [post]
func (h *OrganizationHandler) Create(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}
	var req service.CreateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	org, err := h.organizationService.Create(c.Request.Context(), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, org))
}

// CompleteSetup picks the plan and marks the organization configured
// @Summary      Complete setup
// @Tags         organization
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CompleteSetupRequest  true  "Setup"
// @Success      200      {object}  response.Response{data=service.OrganizationResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/organization/complete-setup [post]
func (h *OrganizationHandler) CompleteSetup(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}
	var req service.CompleteSetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	org, err := h.organizationService.CompleteSetup(c.Request.Context(), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, org))
}

// List pages through every organization
// @Summary      List organizations
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Failure      403    {object}  response.Response
// @Router       /api/admin/organizations [get]
func (h *OrganizationHandler) List(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)
	orgs, total, err := h.organizationService.List(c.Request.Context(), id, p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"organizations": orgs,
		"pagination":    p.Meta(total),
	}))
}
