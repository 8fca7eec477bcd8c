// Package access implements ownership-scoped authorization decisions.
//
// Decisions are pure functions of the caller's principal and facts about
// the target resource. Repositories never see authorization logic; callers
// gather the facts and ask the evaluator before acting.
package access

import (
	"errors"

	"github.com/bissquit/fleet-garden/internal/domain"
)

// ErrForbidden is returned when the principal is not allowed to perform
// the operation on the target resource.
var ErrForbidden = errors.New("operation not permitted")

// Operation describes what the caller wants to do with a resource.
type Operation string

const (
	OpRead   Operation = "read"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// VehicleFacts carries the resource attributes an authorization decision
// on a vehicle depends on.
type VehicleFacts struct {
	OwnerID          int64
	AssignedDriverID *int64
}

// DriverFacts carries the resource attributes an authorization decision
// on a driver profile depends on.
type DriverFacts struct {
	Email string
}

// CanAccessVehicle reports whether the principal may perform op on the
// vehicle described by facts. callerDriverID is the id of the caller's
// driver profile, nil when the caller has none. Unknown roles are denied.
func CanAccessVehicle(p *domain.Principal, op Operation, facts VehicleFacts, callerDriverID *int64) error {
	if p == nil {
		return ErrForbidden
	}

	switch p.Role {
	case domain.RoleAdmin:
		return nil
	case domain.RoleOwner:
		if facts.OwnerID == p.ID {
			return nil
		}
		return ErrForbidden
	case domain.RoleDriver:
		// Drivers see only the vehicle they are assigned to, read-only.
		if op != OpRead {
			return ErrForbidden
		}
		if callerDriverID != nil && facts.AssignedDriverID != nil && *callerDriverID == *facts.AssignedDriverID {
			return nil
		}
		return ErrForbidden
	default:
		return ErrForbidden
	}
}

// CanAccessDriver reports whether the principal may perform op on the
// driver profile described by facts. Drivers may read their own profile,
// matched by email.
func CanAccessDriver(p *domain.Principal, op Operation, facts DriverFacts) error {
	if p == nil {
		return ErrForbidden
	}

	switch p.Role {
	case domain.RoleAdmin:
		return nil
	case domain.RoleDriver:
		if op == OpRead && facts.Email == p.Email {
			return nil
		}
		return ErrForbidden
	default:
		return ErrForbidden
	}
}
