// Package admin provides user account administration.
package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/bissquit/fleet-garden/internal/domain"
	"github.com/bissquit/fleet-garden/internal/pkg/ctxlog"
	"golang.org/x/crypto/bcrypt"
)

// ErrSelfDisable is returned when an admin tries to disable their own account.
var ErrSelfDisable = errors.New("cannot disable your own account")

// Repository defines the interface for user administration data operations.
type Repository interface {
	ListUsers(ctx context.Context, filter Filter) ([]domain.User, error)
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	CreateUser(ctx context.Context, user *domain.User) error
	UpdateUser(ctx context.Context, user *domain.User) error
	DeleteUser(ctx context.Context, id int64) error
	SetEnabled(ctx context.Context, id int64, enabled bool) error
}

// Filter represents filter criteria for listing users.
type Filter struct {
	Role    *domain.Role
	Enabled *bool
}

// Service contains user administration logic.
type Service struct {
	repo Repository
}

// NewService creates a new admin service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns user accounts matching the filter.
func (s *Service) List(ctx context.Context, filter Filter) ([]domain.User, error) {
	return s.repo.ListUsers(ctx, filter)
}

// ListOwners returns all accounts with the owner role.
func (s *Service) ListOwners(ctx context.Context) ([]domain.User, error) {
	role := domain.RoleOwner
	return s.repo.ListUsers(ctx, Filter{Role: &role})
}

// Get returns a single user account.
func (s *Service) Get(ctx context.Context, id int64) (*domain.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// CreateInput describes a user account to create.
type CreateInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      string
	Enabled   *bool
}

// Create provisions a user account. Unlike self-registration, any known
// role may be assigned and no driver profile is created.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.User, error) {
	role, err := domain.ParseRole(input.Role)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	// New accounts are enabled unless the request says otherwise.
	enabled := true
	if input.Enabled != nil {
		enabled = *input.Enabled
	}

	user := &domain.User{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     input.Email,
		Password:  string(hash),
		Role:      role,
		Enabled:   enabled,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	ctxlog.FromContext(ctx).Info("user created by admin", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// UpdateInput describes mutable user account fields.
type UpdateInput struct {
	FirstName string
	LastName  string
	Email     string
	Role      string
	Enabled   *bool
}

// Update modifies a user account. The password is managed through the
// reset and change-password flows, not here.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (*domain.User, error) {
	role, err := domain.ParseRole(input.Role)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	user.FirstName = input.FirstName
	user.LastName = input.LastName
	user.Email = input.Email
	user.Role = role
	if input.Enabled != nil {
		user.Enabled = *input.Enabled
	}

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, err
	}

	ctxlog.FromContext(ctx).Info("user updated by admin", "user_id", user.ID)
	return user, nil
}

// Delete removes a user account.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return err
	}

	ctxlog.FromContext(ctx).Info("user deleted by admin", "user_id", id)
	return nil
}

// SetEnabled toggles an account. Admins cannot lock themselves out.
func (s *Service) SetEnabled(ctx context.Context, caller *domain.Principal, id int64, enabled bool) error {
	if !enabled && caller != nil && caller.ID == id {
		return ErrSelfDisable
	}

	if err := s.repo.SetEnabled(ctx, id, enabled); err != nil {
		return err
	}

	ctxlog.FromContext(ctx).Info("user enabled flag changed", "user_id", id, "enabled", enabled)
	return nil
}
