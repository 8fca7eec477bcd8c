// Package identity provides credential authentication, registration and
// bearer token verification.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bissquit/fleet-garden/internal/domain"
	"github.com/bissquit/fleet-garden/internal/identity/jwt"
	"github.com/bissquit/fleet-garden/internal/pkg/ctxlog"
	"github.com/bissquit/fleet-garden/internal/pkg/metrics"
	"golang.org/x/crypto/bcrypt"
)

// Authenticator issues and verifies bearer tokens.
type Authenticator interface {
	Issue(p *domain.Principal, now time.Time) (string, error)
	Verify(tokenString string, now time.Time) (*jwt.Claims, error)
}

// AuthResponse is the full login (and registration) response.
type AuthResponse struct {
	Token     string      `json:"token"`
	TokenType string      `json:"token_type"`
	ID        int64       `json:"id"`
	Email     string      `json:"email"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Role      domain.Role `json:"role"`
}

// RegisterInput contains registration parameters. LicenseNumber is
// mandatory when the resolved role is DRIVER.
type RegisterInput struct {
	FirstName     string
	LastName      string
	Email         string
	Password      string
	Role          string
	LicenseNumber string
}

// Service provides identity business logic.
type Service struct {
	repo Repository
	auth Authenticator
}

// NewService creates a new identity service.
func NewService(repo Repository, auth Authenticator) *Service {
	return &Service{
		repo: repo,
		auth: auth,
	}
}

// Login validates an email and password pair and mints a bearer token.
// Lookup misses and password mismatches surface the same error.
func (s *Service) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			metrics.LoginAttempts.WithLabelValues("invalid_credentials").Inc()
			return nil, ErrInvalidCredentials
		}
		metrics.LoginAttempts.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		metrics.LoginAttempts.WithLabelValues("invalid_credentials").Inc()
		return nil, ErrInvalidCredentials
	}

	if !user.Enabled {
		metrics.LoginAttempts.WithLabelValues("disabled").Inc()
		return nil, ErrAccountDisabled
	}

	principal, err := domain.NewPrincipal(user)
	if err != nil {
		return nil, fmt.Errorf("build principal: %w", err)
	}

	now := time.Now().UTC()

	// Best effort: a failed timestamp write must not fail the login.
	if err := s.repo.RecordLogin(ctx, user.ID, now); err != nil {
		ctxlog.FromContext(ctx).Warn("record last login failed", "user_id", user.ID, "error", err)
	}

	token, err := s.auth.Issue(principal, now)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	metrics.LoginAttempts.WithLabelValues("success").Inc()

	return &AuthResponse{
		Token:     token,
		TokenType: "Bearer",
		ID:        principal.ID,
		Email:     principal.Email,
		FirstName: principal.FirstName,
		LastName:  principal.LastName,
		Role:      principal.Role,
	}, nil
}

// Register creates a user account and, for DRIVER registrations, the
// driver profile in the same transaction, then logs the new user in so
// registration always returns a usable bearer token.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*AuthResponse, error) {
	// Fast-path check; the unique constraint on users.email is the
	// authoritative guard against concurrent registrations.
	taken, err := s.repo.UserExistsByEmail(ctx, input.Email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return nil, ErrEmailTaken
	}

	role, err := domain.ParseRole(input.Role)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     input.Email,
		Password:  string(hash),
		Role:      role,
		Enabled:   true,
	}

	if role == domain.RoleDriver {
		if err := s.registerDriver(ctx, user, input.LicenseNumber); err != nil {
			return nil, err
		}
	} else {
		if err := s.repo.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
	}

	return s.Login(ctx, input.Email, input.Password)
}

func (s *Service) registerDriver(ctx context.Context, user *domain.User, licenseNumber string) error {
	license := strings.TrimSpace(licenseNumber)
	if license == "" {
		return ErrLicenseRequired
	}

	exists, err := s.repo.DriverExistsByLicense(ctx, license)
	if err != nil {
		return fmt.Errorf("check license: %w", err)
	}
	if exists {
		return ErrLicenseTaken
	}

	// A driver profile may already hold the email even when no user
	// account does, e.g. a profile created by an admin ahead of time.
	exists, err = s.repo.DriverExistsByEmail(ctx, user.Email)
	if err != nil {
		return fmt.Errorf("check driver email: %w", err)
	}
	if exists {
		return ErrEmailTaken
	}

	driver := &domain.Driver{
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		Email:         user.Email,
		LicenseNumber: license,
		Status:        domain.DriverStatusActive,
	}

	if err := s.repo.CreateUserWithDriver(ctx, user, driver); err != nil {
		return fmt.Errorf("create driver user: %w", err)
	}
	return nil
}

// VerifyBearer reconstructs the authenticated principal from a bearer
// token. Any failure, for any reason, means "no principal" and is reported
// as ErrInvalidToken; the specific cause stays in the logs.
func (s *Service) VerifyBearer(ctx context.Context, tokenString string) (*domain.Principal, error) {
	claims, err := s.auth.Verify(tokenString, time.Now().UTC())
	if err != nil {
		ctxlog.FromContext(ctx).Debug("token verification failed", "error", err)
		return nil, ErrInvalidToken
	}

	user, err := s.repo.GetUserByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	principal, err := domain.NewPrincipal(user)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return principal, nil
}

// ChangePassword replaces the password of an authenticated user after
// verifying the old one.
func (s *Service) ChangePassword(ctx context.Context, email, oldPassword, newPassword string) error {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("get user by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.repo.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}
