package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"rentledger/internal/auth"
	"rentledger/internal/model"
	"rentledger/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var emailRegex = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)

// ErrInvalidCredentials hides whether the email or the password was wrong.
var ErrInvalidCredentials = errors.New("invalid email or password")

// --- DTOs ---

type RegisterUserRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UserResponse is a User without sensitive data.
type UserResponse struct {
	ID             uuid.UUID `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	OrganizationID *string   `json:"organization_id"`
	ProfileID      *string   `json:"profile_id"`
	Role           string    `json:"role"`
	IsSuperAdmin   bool      `json:"is_super_admin"`
	CreatedAt      string    `json:"created_at"`
}

type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt string       `json:"expires_at"`
	User      UserResponse `json:"user"`
}

type MeResponse struct {
	User              UserResponse               `json:"user"`
	ObjectPermissions []ObjectPermissionResponse `json:"object_permissions"`
}

// --- Interface ---

type UserService interface {
	Register(ctx context.Context, req RegisterUserRequest) (*UserResponse, error)
	Login(ctx context.Context, req LoginUserRequest) (*LoginResponse, error)
	Logout(ctx context.Context, id auth.Identity) error
	Me(ctx context.Context, id auth.Identity) (*MeResponse, error)
	ListOrganizationUsers(ctx context.Context, id auth.Identity, page, limit int) ([]UserResponse, int64, error)
	EnsureSuperAdmin(ctx context.Context, email, password string) error
}

type userService struct {
	repo    repository.UserRepository
	revoked repository.RevocationStore
	tokens  *auth.TokenIssuer
	access  AccessService
	log     *zap.Logger
	now     func() time.Time
}

func NewUserService(
	repo repository.UserRepository,
	revoked repository.RevocationStore,
	tokens *auth.TokenIssuer,
	accessSvc AccessService,
	log *zap.Logger,
) UserService {
	return &userService{repo: repo, revoked: revoked, tokens: tokens, access: accessSvc, log: log, now: time.Now}
}

// --- Implementation ---

// Register creates a user without organization or profile. Until onboarding finishes
// every resolution for that user is denied.
func (s *userService) Register(ctx context.Context, req RegisterUserRequest) (*UserResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !emailRegex.MatchString(email) {
		return nil, fmt.Errorf("%w: invalid email format", ErrValidation)
	}

	if _, err := s.repo.GetByUsername(ctx, req.Username); err == nil {
		return nil, fmt.Errorf("%w: username already exists", ErrConflict)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: email already exists", ErrConflict)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username: req.Username,
		Email:    email,
		Password: string(hashedPassword),
		Role:     "member",
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return mapToResponse(user), nil
}

func (s *userService) Login(ctx context.Context, req LoginUserRequest) (*LoginResponse, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, id, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	s.log.Info("user logged in", zap.String("user_id", user.ID.String()), zap.String("jti", id.TokenID))

	return &LoginResponse{
		Token:     token,
		ExpiresAt: id.ExpiresAt.Format(time.RFC3339),
		User:      *mapToResponse(user),
	}, nil
}

// Logout revokes the current token until it would have expired anyway.
func (s *userService) Logout(ctx context.Context, id auth.Identity) error {
	ttl := id.ExpiresAt.Sub(s.now())
	if err := s.revoked.Revoke(ctx, id.TokenID, ttl); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (s *userService) Me(ctx context.Context, id auth.Identity) (*MeResponse, error) {
	user, err := s.access.CurrentUser(ctx, id)
	if err != nil {
		return nil, err
	}
	perms, err := s.access.ObjectPermissions(ctx, id)
	if err != nil {
		return nil, err
	}
	return &MeResponse{User: *mapToResponse(user), ObjectPermissions: perms}, nil
}

func (s *userService) ListOrganizationUsers(ctx context.Context, id auth.Identity, page, limit int) ([]UserResponse, int64, error) {
	caller, err := s.access.AuthorizeOrganizationAdmin(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	if caller.OrganizationID == nil {
		return nil, 0, ErrOrganizationNotFound
	}

	users, total, err := s.repo.ListByOrganization(ctx, *caller.OrganizationID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	res := make([]UserResponse, 0, len(users))
	for _, u := range users {
		res = append(res, *mapToResponse(&u))
	}
	return res, total, nil
}

// EnsureSuperAdmin creates the platform operator account, or flags an existing account
// with that email. The password of an existing account is left alone.
func (s *userService) EnsureSuperAdmin(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		if user.IsSuperAdmin {
			return nil
		}
		user.IsSuperAdmin = true
		if err := s.repo.Update(ctx, user); err != nil {
			return fmt.Errorf("failed to promote super-admin: %w", err)
		}
		s.log.Info("promoted existing user to super-admin", zap.String("user_id", user.ID.String()))
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to look up super-admin: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user = &model.User{
		Username:     strings.SplitN(email, "@", 2)[0],
		Email:        email,
		Password:     string(hashedPassword),
		Role:         "operator",
		IsSuperAdmin: true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return fmt.Errorf("failed to create super-admin: %w", err)
	}
	s.log.Info("created super-admin", zap.String("user_id", user.ID.String()))
	return nil
}

// --- Helpers ---

func mapToResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:             user.ID,
		Username:       user.Username,
		Email:          user.Email,
		OrganizationID: optionalString(user.OrganizationID),
		ProfileID:      optionalString(user.ProfileID),
		Role:           user.Role,
		IsSuperAdmin:   user.IsSuperAdmin,
		CreatedAt:      user.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
