package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"rentledger/internal/access"
	"rentledger/internal/auth"
	"rentledger/internal/repository"
	"rentledger/internal/service"
	"rentledger/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	identityKey     = "identity"
	accessTokenName = "access_token"
)

// ErrTokenRevoked is returned for tokens logged out before expiry.
var ErrTokenRevoked = fmt.Errorf("%w: revoked", auth.ErrInvalidToken)

// Authenticator verifies access tokens and keeps the session cookie.
type Authenticator struct {
	tokens        *auth.TokenIssuer
	revoked       repository.RevocationStore
	secureCookies bool
	log           *zap.Logger
}

func NewAuthenticator(tokens *auth.TokenIssuer, revoked repository.RevocationStore, secureCookies bool, log *zap.Logger) *Authenticator {
	return &Authenticator{tokens: tokens, revoked: revoked, secureCookies: secureCookies, log: log}
}

// Authenticate parses the token and checks it against the revocation store. A store
// failure is returned as is, never as a valid identity.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*auth.Identity, error) {
	id, err := a.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	revoked, err := a.revoked.IsRevoked(ctx, id.TokenID)
	if err != nil {
		return nil, fmt.Errorf("failed to check token revocation: %w", err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	return id, nil
}

// RequireAuth accepts the access_token cookie, falling back to an Authorization: Bearer header.
func (a *Authenticator) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, cookieErr := c.Cookie(accessTokenName)
		if cookieErr != nil || tokenString == "" {
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				response.Abort(c, http.StatusUnauthorized, "Authorization is missing")
				return
			}
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				response.Abort(c, http.StatusUnauthorized, "Invalid authorization format. Expected 'Bearer <token>'")
				return
			}
			tokenString = parts[1]
		}

		id, err := a.Authenticate(c.Request.Context(), tokenString)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				response.Abort(c, http.StatusUnauthorized, "Invalid or expired token")
				return
			}
			a.log.Error("authentication failed", zap.Error(err))
			response.Abort(c, http.StatusInternalServerError, "Failed to verify session")
			return
		}

		c.Set(identityKey, *id)
		c.Next()
	}
}

// SetTokenCookie stores the access token as an HttpOnly cookie that expires with the token.
func (a *Authenticator) SetTokenCookie(c *gin.Context, token string, expiresAt time.Time) {
	// cross-origin deployments need SameSite=None, which browsers only accept with Secure
	sameSite := http.SameSiteLaxMode
	if a.secureCookies {
		sameSite = http.SameSiteNoneMode
	}
	c.SetSameSite(sameSite)
	maxAge := int(time.Until(expiresAt).Seconds())
	c.SetCookie(accessTokenName, token, maxAge, "/", "", a.secureCookies, true)
}

func (a *Authenticator) ClearTokenCookie(c *gin.Context) {
	sameSite := http.SameSiteLaxMode
	if a.secureCookies {
		sameSite = http.SameSiteNoneMode
	}
	c.SetSameSite(sameSite)
	c.SetCookie(accessTokenName, "", -1, "/", "", a.secureCookies, true)
}

// IdentityFrom returns the identity RequireAuth stored on the context.
func IdentityFrom(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return auth.Identity{}, false
	}
	id, ok := v.(auth.Identity)
	return id, ok
}

// RequireSuperAdmin re-reads the user on every request so that revoking the flag
// takes effect immediately. It must run after RequireAuth.
func RequireSuperAdmin(accessSvc service.AccessService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok {
			response.Abort(c, http.StatusUnauthorized, "Authorization is missing")
			return
		}
		isAdmin, err := accessSvc.IsSuperAdmin(c.Request.Context(), id)
		if err != nil {
			abortWithServiceError(c, err)
			return
		}
		if !isAdmin {
			response.Abort(c, http.StatusForbidden, "Access denied: super-admin only")
			return
		}
		c.Next()
	}
}

// RequireAccess guards a route with an object permission. Super-admins pass without
// consulting profiles. It must run after RequireAuth.
func RequireAccess(accessSvc service.AccessService, objectType string, action access.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok {
			response.Abort(c, http.StatusUnauthorized, "Authorization is missing")
			return
		}
		ctx := c.Request.Context()

		isAdmin, err := accessSvc.IsSuperAdmin(ctx, id)
		if err != nil {
			abortWithServiceError(c, err)
			return
		}
		if isAdmin {
			c.Next()
			return
		}

		decision, err := accessSvc.CanPerformAction(ctx, id, objectType, action)
		if err != nil {
			abortWithServiceError(c, err)
			return
		}
		if !decision.Allowed {
			response.Abort(c, http.StatusForbidden, decision.Reason)
			return
		}
		c.Next()
	}
}

func abortWithServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		response.Abort(c, http.StatusUnauthorized, "User no longer exists")
	case errors.Is(err, service.ErrOrganizationNotFound):
		response.Abort(c, http.StatusNotFound, "Organization not found")
	default:
		_ = c.Error(err)
		response.Abort(c, http.StatusInternalServerError, "Failed to verify permissions")
	}
}
