package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rentledger/internal/access"
	"rentledger/internal/auth"
	"rentledger/internal/model"
	"rentledger/internal/repository"
	"rentledger/internal/service"
	"rentledger/pkg/response"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockAccessService struct {
	service.AccessService
	mock.Mock
}

func (m *mockAccessService) IsSuperAdmin(ctx context.Context, id auth.Identity) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockAccessService) CanPerformAction(ctx context.Context, id auth.Identity, objectType string, action access.Action) (access.Decision, error) {
	args := m.Called(ctx, id, objectType, action)
	return args.Get(0).(access.Decision), args.Error(1)
}

type authFixture struct {
	authn  *Authenticator
	tokens *auth.TokenIssuer
	store  repository.RevocationStore
	mr     *miniredis.Miniredis
}

func setupAuth(t *testing.T) *authFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	tokens := auth.NewTokenIssuer([]byte("test-secret"), time.Hour)
	store := repository.NewRevocationStore(rdb)
	return &authFixture{
		authn:  NewAuthenticator(tokens, store, false, zap.NewNop()),
		tokens: tokens,
		store:  store,
		mr:     mr,
	}
}

func (f *authFixture) router(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	chain := append([]gin.HandlerFunc{f.authn.RequireAuth()}, handlers...)
	chain = append(chain, func(c *gin.Context) {
		id, _ := IdentityFrom(c)
		c.JSON(http.StatusOK, gin.H{"user_id": id.UserID.String()})
	})
	r.GET("/protected", chain...)
	return r
}

func do(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error
}

func TestRequireAuth_MissingToken(t *testing.T) {
	f := setupAuth(t)
	w := do(f.router(), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Authorization is missing", decodeError(t, w))
}

func TestRequireAuth_MalformedHeader(t *testing.T) {
	f := setupAuth(t)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Token abc")
	w := httptest.NewRecorder()
	f.router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuth_ValidBearer(t *testing.T) {
	f := setupAuth(t)
	userID := uuid.New()
	token, _, err := f.tokens.Issue(userID)
	require.NoError(t, err)

	w := do(f.router(), token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), userID.String())
}

func TestRequireAuth_Cookie(t *testing.T) {
	f := setupAuth(t)
	token, _, err := f.tokens.Issue(uuid.New())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: accessTokenName, Value: token})
	w := httptest.NewRecorder()
	f.router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireAuth_RevokedToken(t *testing.T) {
	f := setupAuth(t)
	token, id, err := f.tokens.Issue(uuid.New())
	require.NoError(t, err)
	require.NoError(t, f.store.Revoke(context.Background(), id.TokenID, time.Hour))

	w := do(f.router(), token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid or expired token", decodeError(t, w))
}

func TestRequireAuth_RevocationStoreDown(t *testing.T) {
	f := setupAuth(t)
	token, _, err := f.tokens.Issue(uuid.New())
	require.NoError(t, err)
	f.mr.Close()

	w := do(f.router(), token)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to verify session", decodeError(t, w))
}

func TestRequireSuperAdmin_Member(t *testing.T) {
	f := setupAuth(t)
	svc := new(mockAccessService)
	svc.On("IsSuperAdmin", mock.Anything, mock.Anything).Return(false, nil)
	token, _, err := f.tokens.Issue(uuid.New())
	require.NoError(t, err)

	w := do(f.router(RequireSuperAdmin(svc)), token)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireSuperAdmin_UserDeleted(t *testing.T) {
	f := setupAuth(t)
	svc := new(mockAccessService)
	svc.On("IsSuperAdmin", mock.Anything, mock.Anything).Return(false, service.ErrUnauthenticated)
	token, _, err := f.tokens.Issue(uuid.New())
	require.NoError(t, err)

	w := do(f.router(RequireSuperAdmin(svc)), token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAccess_SuperAdminSkipsProfile(t *testing.T) {
	f := setupAuth(t)
	svc := new(mockAccessService)
	svc.On("IsSuperAdmin", mock.Anything, mock.Anything).Return(true, nil)
	token, _, err := f.tokens.Issue(uuid.New())
	require.NoError(t, err)

	w := do(f.router(RequireAccess(svc, model.ObjectAuditLog, access.ActionRead)), token)
	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertNotCalled(t, "CanPerformAction", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRequireAccess_DeniedWithReason(t *testing.T) {
	f := setupAuth(t)
	svc := new(mockAccessService)
	svc.On("IsSuperAdmin", mock.Anything, mock.Anything).Return(false, nil)
	svc.On("CanPerformAction", mock.Anything, mock.Anything, model.ObjectJournalEntry, access.ActionCreate).
		Return(access.Decision{Allowed: false, Reason: "Permission denied: cannot create JournalEntry"}, nil)
	token, _, err := f.tokens.Issue(uuid.New())
	require.NoError(t, err)

	w := do(f.router(RequireAccess(svc, model.ObjectJournalEntry, access.ActionCreate)), token)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Permission denied: cannot create JournalEntry", decodeError(t, w))
}

func TestRequireAccess_NoOrganization(t *testing.T) {
	f := setupAuth(t)
	svc := new(mockAccessService)
	svc.On("IsSuperAdmin", mock.Anything, mock.Anything).Return(false, nil)
	svc.On("CanPerformAction", mock.Anything, mock.Anything, model.ObjectUnit, access.ActionRead).
		Return(access.Decision{}, service.ErrOrganizationNotFound)
	token, _, err := f.tokens.Issue(uuid.New())
	require.NoError(t, err)

	w := do(f.router(RequireAccess(svc, model.ObjectUnit, access.ActionRead)), token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
