// Package drivers provides business logic for driver profile management.
package drivers

import (
	"context"
	"errors"
	"fmt"

	"github.com/bissquit/fleet-garden/internal/access"
	"github.com/bissquit/fleet-garden/internal/domain"
	"github.com/bissquit/fleet-garden/internal/pkg/ctxlog"
)

var (
	// ErrDriverNotFound is returned when no driver matches the lookup.
	ErrDriverNotFound = errors.New("driver not found")
	// ErrLicenseTaken is returned when the license number is already registered.
	ErrLicenseTaken = errors.New("license number is already registered")
	// ErrEmailTaken is returned when the driver email is already registered.
	ErrEmailTaken = errors.New("driver email is already registered")
	// ErrInvalidStatus is returned for an unknown driver status value.
	ErrInvalidStatus = errors.New("invalid driver status")
)

// Repository defines the interface for driver data operations.
type Repository interface {
	CreateDriver(ctx context.Context, driver *domain.Driver) error
	GetDriverByID(ctx context.Context, id int64) (*domain.Driver, error)
	GetDriverByEmail(ctx context.Context, email string) (*domain.Driver, error)
	ListDrivers(ctx context.Context, filter Filter) ([]domain.Driver, error)
	UpdateDriver(ctx context.Context, driver *domain.Driver) error
	DeleteDriver(ctx context.Context, id int64) error
}

// Filter represents filter criteria for listing drivers.
type Filter struct {
	Status *domain.DriverStatus
}

// Service contains driver profile business logic.
type Service struct {
	repo Repository
}

// NewService creates a new drivers service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a new driver profile. Admin only; the handler enforces
// the role, the repository enforces uniqueness.
func (s *Service) Create(ctx context.Context, driver *domain.Driver) error {
	if driver.Status == "" {
		driver.Status = domain.DriverStatusActive
	}
	if !driver.Status.IsValid() {
		return ErrInvalidStatus
	}

	if err := s.repo.CreateDriver(ctx, driver); err != nil {
		return err
	}

	ctxlog.FromContext(ctx).Info("driver created", "driver_id", driver.ID)
	return nil
}

// Get returns a driver profile, applying access rules: admins see any
// profile, drivers see their own.
func (s *Service) Get(ctx context.Context, principal *domain.Principal, id int64) (*domain.Driver, error) {
	driver, err := s.repo.GetDriverByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := access.CanAccessDriver(principal, access.OpRead, access.DriverFacts{Email: driver.Email}); err != nil {
		return nil, err
	}
	return driver, nil
}

// Me returns the caller's own driver profile, matched by account email.
func (s *Service) Me(ctx context.Context, principal *domain.Principal) (*domain.Driver, error) {
	if principal == nil || principal.Role != domain.RoleDriver {
		return nil, access.ErrForbidden
	}
	return s.repo.GetDriverByEmail(ctx, principal.Email)
}

// List returns driver profiles matching the filter. Admin only.
func (s *Service) List(ctx context.Context, filter Filter) ([]domain.Driver, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, ErrInvalidStatus
	}
	return s.repo.ListDrivers(ctx, filter)
}

// Update modifies a driver profile. Admin only.
func (s *Service) Update(ctx context.Context, driver *domain.Driver) error {
	if !driver.Status.IsValid() {
		return ErrInvalidStatus
	}

	if err := s.repo.UpdateDriver(ctx, driver); err != nil {
		return fmt.Errorf("update driver: %w", err)
	}

	ctxlog.FromContext(ctx).Info("driver updated", "driver_id", driver.ID)
	return nil
}

// Delete removes a driver profile. Admin only.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeleteDriver(ctx, id); err != nil {
		return err
	}

	ctxlog.FromContext(ctx).Info("driver deleted", "driver_id", id)
	return nil
}
