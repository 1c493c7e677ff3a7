package handler

import (
	"errors"
	"net/http"
	"time"

	"rentledger/internal/middleware"
	"rentledger/internal/service"
	"rentledger/pkg/pagination"
	"rentledger/pkg/response"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService service.UserService
	authn       *middleware.Authenticator
}

func NewUserHandler(userService service.UserService, authn *middleware.Authenticator) *UserHandler {
	return &UserHandler{userService: userService, authn: authn}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	// Public routes
	router.POST("/register", h.Register)
	router.POST("/login", h.Login)

	router.POST("/logout", h.authn.RequireAuth(), h.Logout)
	router.GET("/me", h.authn.RequireAuth(), h.GetMe)
	router.GET("/api/users", h.authn.RequireAuth(), h.ListUsers)
}

// Register creates an account without organization
// @Summary      Register
// @Description  Creates a user. The user has no access until an organization is created or joined.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RegisterUserRequest  true  "Registration"
// @Success      201      {object}  response.Response{data=service.UserResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /register [post]
func (h *UserHandler) Register(c *gin.Context) {
	var req service.RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	user, err := h.userService.Register(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, user))
}

// Login handles user authentication
// @Summary      Login user
// @Description  Authenticates a user by email and password, returning a JWT token and setting it as a cookie
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LoginUserRequest   true  "Login Credentials"
// @Success      200      {object}  response.Response{data=service.LoginResponse}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Router       /login [post]
func (h *UserHandler) Login(c *gin.Context) {
	var req service.LoginUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload"))
		return
	}

	res, err := h.userService.Login(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
			return
		}
		writeError(c, err)
		return
	}

	expiresAt, _ := time.Parse(time.RFC3339, res.ExpiresAt)
	h.authn.SetTokenCookie(c, res.Token, expiresAt)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// Logout revokes the current token
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Failure      401  {object}  response.Response
// @Router       /logout [post]
func (h *UserHandler) Logout(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}
	if err := h.userService.Logout(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	h.authn.ClearTokenCookie(c)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Logged out"))
}

// GetMe returns the current user with the resolved object permissions
// @Summary      Get current user
// @Description  Get the currently authenticated user and its object permissions
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200      {object}  response.Response{data=service.MeResponse}
// @Failure      401      {object}  response.Response
// @Router       /me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}
	me, err := h.userService.Me(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, me))
}

// ListUsers lists the users of the caller's organization
// @Summary      List users
// @Description  Retrieves a paginated list of the organization's users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Failure      403    {object}  response.Response
// @Router       /api/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)
	users, total, err := h.userService.ListOrganizationUsers(c.Request.Context(), id, p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"users":      users,
		"pagination": p.Meta(total),
	}))
}
