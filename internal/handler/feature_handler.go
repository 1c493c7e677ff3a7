package handler

import (
	"net/http"

	"rentledger/internal/middleware"
	"rentledger/internal/service"
	"rentledger/pkg/response"

	"github.com/gin-gonic/gin"
)

type FeatureHandler struct {
	featureService service.FeatureService
	accessService  service.AccessService
	authn          *middleware.Authenticator
}

func NewFeatureHandler(featureService service.FeatureService, accessService service.AccessService, authn *middleware.Authenticator) *FeatureHandler {
	return &FeatureHandler{featureService: featureService, accessService: accessService, authn: authn}
}

func (h *FeatureHandler) RegisterRoutes(router *gin.RouterGroup) {
	admin := router.Group("/api/admin")
	admin.Use(h.authn.RequireAuth(), middleware.RequireSuperAdmin(h.accessService))
	{
		admin.GET("/plans", h.ListPlans)
		admin.GET("/features", h.ListFeatures)
		admin.POST("/features", h.CreateFeature)
		admin.PUT("/plans/:plan/features/:feature", h.SetPlanFeature)
	}
}

// ListPlans returns every plan with its feature matrix
// @Summary      List plans
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.PlanResponse}
// @Failure      403  {object}  response.Response
// @Router       /api/admin/plans [get]
func (h *FeatureHandler) ListPlans(c *gin.Context) {
	plans, err := h.featureService.ListPlans(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, plans))
}

// ListFeatures returns the feature catalogue
// @Summary      List features
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.FeatureResponse}
// @Router       /api/admin/features [get]
func (h *FeatureHandler) ListFeatures(c *gin.Context) {
	features, err := h.featureService.ListFeatures(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, features))
}

// CreateFeature adds a feature to the catalogue, disabled on every plan
// @Summary      Create feature
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateFeatureRequest  true  "Feature"
// @Success      201      {object}  response.Response{data=service.FeatureResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/admin/features [post]
func (h *FeatureHandler) CreateFeature(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}
	var req service.CreateFeatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	feature, err := h.featureService.CreateFeature(c.Request.Context(), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, feature))
}

// SetPlanFeature enables or disables a feature on a plan
// @Summary      Set plan feature
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        plan     path      string                         true  "Plan name"
// @Param        feature  path      string                         true  "Feature key"
// @Param        payload  body      service.SetPlanFeatureRequest  true  "Enablement and limits"
// @Success      200      {object}  response.Response{data=service.PlanFeatureResponse}
// @Failure      404      {object}  response.Response
// @Router       /api/admin/plans/{plan}/features/{feature} [put]
func (h *FeatureHandler) SetPlanFeature(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}
	var req service.SetPlanFeatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	pf, err := h.featureService.SetPlanFeature(c.Request.Context(), id, c.Param("plan"), c.Param("feature"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, pf))
}
