package handler

import (
	"errors"
	"net/http"

	"rentledger/internal/auth"
	"rentledger/internal/middleware"
	"rentledger/internal/service"
	"rentledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// writeError maps service errors onto status codes. Unexpected faults are attached to
// the gin context for the request logger and answered with a generic message.
func writeError(c *gin.Context, err error) {
	status, msg := http.StatusInternalServerError, "Internal server error"
	switch {
	case errors.Is(err, service.ErrValidation):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrUnauthenticated), errors.Is(err, service.ErrInvalidCredentials):
		status, msg = http.StatusUnauthorized, err.Error()
	case errors.Is(err, service.ErrForbidden):
		status, msg = http.StatusForbidden, err.Error()
	case errors.Is(err, service.ErrOrganizationNotFound):
		status, msg = http.StatusNotFound, "Organization not found"
	case errors.Is(err, service.ErrNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrConflict):
		status, msg = http.StatusConflict, err.Error()
	default:
		_ = c.Error(err)
	}
	c.JSON(status, response.Error(status, msg))
}

// currentIdentity answers 401 itself when the route was not behind RequireAuth.
func currentIdentity(c *gin.Context) (auth.Identity, bool) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
	}
	return id, ok
}
