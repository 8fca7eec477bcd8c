// Package vehicles provides business logic for fleet vehicle management
// with ownership-scoped access.
package vehicles

import (
	"context"
	"errors"
	"fmt"

	"github.com/bissquit/fleet-garden/internal/access"
	"github.com/bissquit/fleet-garden/internal/domain"
	"github.com/bissquit/fleet-garden/internal/drivers"
	"github.com/bissquit/fleet-garden/internal/pkg/ctxlog"
)

var (
	// ErrVehicleNotFound is returned when no vehicle matches the lookup.
	ErrVehicleNotFound = errors.New("vehicle not found")
	// ErrRegistrationTaken is returned when the registration number is already in use.
	ErrRegistrationTaken = errors.New("registration number is already in use")
	// ErrVINTaken is returned when the VIN is already in use.
	ErrVINTaken = errors.New("vin is already in use")
	// ErrDriverAlreadyAssigned is returned when the driver is assigned to another vehicle.
	ErrDriverAlreadyAssigned = errors.New("driver is already assigned to a vehicle")
	// ErrInvalidFilter is returned for unknown enum values in list filters.
	ErrInvalidFilter = errors.New("invalid filter value")
)

// Repository defines the interface for vehicle data operations.
type Repository interface {
	CreateVehicle(ctx context.Context, vehicle *domain.Vehicle) error
	GetVehicleByID(ctx context.Context, id int64) (*domain.Vehicle, error)
	GetVehicleByRegistration(ctx context.Context, registration string) (*domain.Vehicle, error)
	ListVehicles(ctx context.Context, filter Filter) ([]domain.Vehicle, error)
	UpdateVehicle(ctx context.Context, vehicle *domain.Vehicle) error
	DeleteVehicle(ctx context.Context, id int64) error
	AssignDriver(ctx context.Context, vehicleID, driverID int64) error
	RemoveDriver(ctx context.Context, vehicleID int64) error
}

// DriverDirectory resolves driver profiles for access decisions and
// assignment checks. Satisfied by the drivers repository.
type DriverDirectory interface {
	GetDriverByID(ctx context.Context, id int64) (*domain.Driver, error)
	GetDriverByEmail(ctx context.Context, email string) (*domain.Driver, error)
}

// Filter represents filter criteria for listing vehicles. OwnerID and
// DriverID scope the result set; the service fills them from the caller's
// principal, handlers never set them directly.
type Filter struct {
	Status   *domain.VehicleStatus
	OwnerID  *int64
	DriverID *int64
}

// Service contains vehicle business logic.
type Service struct {
	repo    Repository
	drivers DriverDirectory
}

// NewService creates a new vehicles service.
func NewService(repo Repository, driverDir DriverDirectory) *Service {
	return &Service{repo: repo, drivers: driverDir}
}

// Create registers a new vehicle. Owners may only create vehicles they
// own; the owner id is forced to the caller for the OWNER role.
func (s *Service) Create(ctx context.Context, principal *domain.Principal, vehicle *domain.Vehicle) error {
	switch principal.Role {
	case domain.RoleAdmin:
		// owner id comes from the request
	case domain.RoleOwner:
		vehicle.OwnerID = principal.ID
	default:
		return access.ErrForbidden
	}

	if vehicle.Status == "" {
		vehicle.Status = domain.VehicleStatusActive
	}

	if err := s.repo.CreateVehicle(ctx, vehicle); err != nil {
		return err
	}

	ctxlog.FromContext(ctx).Info("vehicle created",
		"vehicle_id", vehicle.ID,
		"registration", vehicle.RegistrationNumber,
		"owner_id", vehicle.OwnerID,
	)
	return nil
}

// Get returns a vehicle the caller is allowed to see.
func (s *Service) Get(ctx context.Context, principal *domain.Principal, id int64) (*domain.Vehicle, error) {
	vehicle, err := s.repo.GetVehicleByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(ctx, principal, access.OpRead, vehicle); err != nil {
		return nil, err
	}
	return vehicle, nil
}

// List returns vehicles visible to the caller. Admins see the whole
// fleet, owners their own vehicles, drivers the vehicle assigned to them.
// Scoping happens in the query, not by filtering afterwards.
func (s *Service) List(ctx context.Context, principal *domain.Principal, filter Filter) ([]domain.Vehicle, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, ErrInvalidFilter
	}

	switch principal.Role {
	case domain.RoleAdmin:
		// unscoped
	case domain.RoleOwner:
		filter.OwnerID = &principal.ID
	case domain.RoleDriver:
		profile, err := s.drivers.GetDriverByEmail(ctx, principal.Email)
		if err != nil {
			if errors.Is(err, drivers.ErrDriverNotFound) {
				return []domain.Vehicle{}, nil
			}
			return nil, fmt.Errorf("resolve driver profile: %w", err)
		}
		filter.DriverID = &profile.ID
	default:
		return nil, access.ErrForbidden
	}

	return s.repo.ListVehicles(ctx, filter)
}

// Update modifies a vehicle the caller controls. The owner id is
// immutable here; reassignment of ownership is an admin user operation.
func (s *Service) Update(ctx context.Context, principal *domain.Principal, vehicle *domain.Vehicle) error {
	existing, err := s.repo.GetVehicleByID(ctx, vehicle.ID)
	if err != nil {
		return err
	}

	if err := s.authorize(ctx, principal, access.OpUpdate, existing); err != nil {
		return err
	}

	vehicle.OwnerID = existing.OwnerID
	vehicle.DriverID = existing.DriverID
	if err := s.repo.UpdateVehicle(ctx, vehicle); err != nil {
		return err
	}

	ctxlog.FromContext(ctx).Info("vehicle updated", "vehicle_id", vehicle.ID)
	return nil
}

// Delete removes a vehicle the caller controls.
func (s *Service) Delete(ctx context.Context, principal *domain.Principal, id int64) error {
	existing, err := s.repo.GetVehicleByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.authorize(ctx, principal, access.OpDelete, existing); err != nil {
		return err
	}

	if err := s.repo.DeleteVehicle(ctx, id); err != nil {
		return err
	}

	ctxlog.FromContext(ctx).Info("vehicle deleted", "vehicle_id", id)
	return nil
}

// AssignDriver puts a driver behind the wheel of a vehicle. A driver
// drives at most one vehicle at a time.
func (s *Service) AssignDriver(ctx context.Context, principal *domain.Principal, vehicleID, driverID int64) (*domain.Vehicle, error) {
	vehicle, err := s.repo.GetVehicleByID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(ctx, principal, access.OpUpdate, vehicle); err != nil {
		return nil, err
	}

	if _, err := s.drivers.GetDriverByID(ctx, driverID); err != nil {
		return nil, err
	}

	if err := s.repo.AssignDriver(ctx, vehicleID, driverID); err != nil {
		return nil, err
	}

	ctxlog.FromContext(ctx).Info("driver assigned",
		"vehicle_id", vehicleID,
		"driver_id", driverID,
	)
	return s.repo.GetVehicleByID(ctx, vehicleID)
}

// RemoveDriver clears the vehicle's driver assignment.
func (s *Service) RemoveDriver(ctx context.Context, principal *domain.Principal, vehicleID int64) (*domain.Vehicle, error) {
	vehicle, err := s.repo.GetVehicleByID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(ctx, principal, access.OpUpdate, vehicle); err != nil {
		return nil, err
	}

	if err := s.repo.RemoveDriver(ctx, vehicleID); err != nil {
		return nil, err
	}

	ctxlog.FromContext(ctx).Info("driver removed", "vehicle_id", vehicleID)
	return s.repo.GetVehicleByID(ctx, vehicleID)
}

// authorize evaluates vehicle access for the principal, resolving the
// caller's driver profile only when the role needs it.
func (s *Service) authorize(ctx context.Context, principal *domain.Principal, op access.Operation, vehicle *domain.Vehicle) error {
	facts := access.VehicleFacts{
		OwnerID:          vehicle.OwnerID,
		AssignedDriverID: vehicle.DriverID,
	}

	var callerDriverID *int64
	if principal != nil && principal.Role == domain.RoleDriver {
		profile, err := s.drivers.GetDriverByEmail(ctx, principal.Email)
		if err != nil && !errors.Is(err, drivers.ErrDriverNotFound) {
			return fmt.Errorf("resolve driver profile: %w", err)
		}
		if profile != nil {
			callerDriverID = &profile.ID
		}
	}

	return access.CanAccessVehicle(principal, op, facts, callerDriverID)
}
