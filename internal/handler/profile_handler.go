package handler

import (
	"net/http"

	"rentledger/internal/middleware"
	"rentledger/internal/service"
	"rentledger/pkg/response"

	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	profileService service.ProfileService
	authn          *middleware.Authenticator
}

func NewProfileHandler(profileService service.ProfileService, authn *middleware.Authenticator) *ProfileHandler {
	return &ProfileHandler{profileService: profileService, authn: authn}
}

// RegisterRoutes binds profile administration. Authorization (super-admin or
// Organization:edit) is decided by the service, which also scopes to the caller's organization.
func (h *ProfileHandler) RegisterRoutes(router *gin.RouterGroup) {
	profiles := router.Group("/api/profiles")
	profiles.Use(h.authn.RequireAuth())
	{
		profiles.GET("", h.ListProfiles)
		profiles.GET("/:id", h.GetProfile)
		profiles.POST("", h.CreateProfile)
		profiles.PUT("/:id", h.UpdateProfile)
		profiles.DELETE("/:id", h.DeleteProfile)
		profiles.PUT("/:id/object-permissions", h.ReplaceObjectPermissions)
		profiles.PUT("/:id/field-permissions", h.UpsertFieldPermission)
		profiles.DELETE("/:id/field-permissions/:object/:field", h.DeleteFieldPermission)
	}

	router.PUT("/api/users/:id/profile", h.authn.RequireAuth(), h.AssignProfile)
}

// ListProfiles returns the profiles of the caller's organization
// @Summary      List profiles
// @Tags         profiles
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.ProfileResponse}
// @Failure      403  {object}  response.Response
// @Router       /api/profiles [get]
func (h *ProfileHandler) ListProfiles(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}
	profiles, err := h.profileService.ListProfiles(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, profiles))
}

// GetProfile returns a single profile with its permissions
// @Summary      Get profile
// @Tags         profiles
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Profile ID"
// @Success      200  {object}  response.Response{data=service.ProfileResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/profiles/{id} [get]
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}
	profile, err := h.profileService.GetProfile(c.Request.Context(), id, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, profile))
}

// CreateProfile creates a custom profile
// @Summary      Create profile
// @Tags         profiles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateProfileRequest  true  "Profile"
// @Success      201      {object}  response.Response{data=service.ProfileResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/profiles [post]
func (h *ProfileHandler) CreateProfile(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}
	var req service.CreateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	profile, err := h.profileService.CreateProfile(c.Request.Context(), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, profile))
}

// UpdateProfile renames a profile
// @Summary      Update profile
// @Tags         profiles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                        true  "Profile ID"
// @Param        payload  body      service.UpdateProfileRequest  true  "Profile"
// @Success      200      {object}  response.Response{data=service.ProfileResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/profiles/{id} [put]
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}
	var req service.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	profile, err := h.profileService.UpdateProfile(c.Request.Context(), id, c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, profile))
}

// DeleteProfile deletes an unused, non-system profile
// @Summary      Delete profile
// @Tags         profiles
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Profile ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/profiles/{id} [delete]
func (h *ProfileHandler) DeleteProfile(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}
	if err := h.profileService.DeleteProfile(c.Request.Context(), id, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Profile deleted successfully"}))
}

// ReplaceObjectPermissions replaces every object permission of a profile
// @Summary      Replace object permissions
// @Tags         profiles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                                   true  "Profile ID"
// @Param        payload  body      service.ReplaceObjectPermissionsRequest  true  "Permissions"
// @Success      200      {object}  response.Response{data=service.ProfileResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/profiles/{id}/object-permissions [put]
func (h *ProfileHandler) ReplaceObjectPermissions(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}
	var req service.ReplaceObjectPermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	profile, err := h.profileService.ReplaceObjectPermissions(c.Request.Context(), id, c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, profile))
}

// UpsertFieldPermission sets the field-level override for one field
// @Summary      Set field permission
// @Tags         profiles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                        true  "Profile ID"
// @Param        payload  body      service.FieldPermissionInput  true  "Field permission"
// @Success      200      {object}  response.Response{data=service.ProfileResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/profiles/{id}/field-permissions [put]
func (h *ProfileHandler) UpsertFieldPermission(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}
	var req service.FieldPermissionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	profile, err := h.profileService.UpsertFieldPermission(c.Request.Context(), id, c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, profile))
}

// DeleteFieldPermission removes a field override; the object permission applies again
// @Summary      Delete field permission
// @Tags         profiles
// @Produce      json
// @Security     BearerAuth
// @Param        id      path      string  true  "Profile ID"
// @Param        object  path      string  true  "Object type"
// @Param        field   path      string  true  "Field name"
// @Success      200     {object}  response.Response
// @Failure      404     {object}  response.Response
// @Router       /api/profiles/{id}/field-permissions/{object}/{field} [delete]
func (h *ProfileHandler) DeleteFieldPermission(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}
	err := h.profileService.DeleteFieldPermission(c.Request.Context(), id, c.Param("id"), c.Param("object"), c.Param("field"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Field permission deleted successfully"}))
}

// AssignProfile assigns (or clears) a user's profile
// @Summary      Assign profile
// @Tags         profiles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                        true  "User ID"
// @Param        payload  body      service.AssignProfileRequest  true  "Profile"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/users/{id}/profile [put]
func (h *ProfileHandler) AssignProfile(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}
	var req service.AssignProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	if err := h.profileService.AssignProfile(c.Request.Context(), id, c.Param("id"), req); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Profile assigned successfully"}))
}
