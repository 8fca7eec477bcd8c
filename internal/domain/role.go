package domain

import (
	"errors"
	"strings"
)

// Role is the canonical representation of a user role: the "ROLE_" prefix
// followed by the uppercase role name. All role comparison happens on this
// canonical form, never on display names.
type Role string

// RolePrefix is prepended to every canonical role name.
const RolePrefix = "ROLE_"

// The fixed role set. Every user has exactly one role.
const (
	RoleDriver    Role = "ROLE_DRIVER"
	RoleOwner     Role = "ROLE_OWNER"
	RoleAdmin     Role = "ROLE_ADMIN"
	RoleAPIClient Role = "ROLE_API_CLIENT"
)

// Role errors.
var (
	ErrEmptyRole    = errors.New("role name cannot be empty")
	ErrRoleNotFound = errors.New("role not found")
)

// NormalizeRole converts external role-name input into canonical form:
// trimmed, uppercased, prefixed. "driver", "ROLE_driver" and "  Driver  "
// all normalize to "ROLE_DRIVER". The result is not guaranteed to be one
// of the known roles; use ParseRole for that.
func NormalizeRole(input string) (Role, error) {
	r := strings.ToUpper(strings.TrimSpace(input))
	if r == "" {
		return "", ErrEmptyRole
	}
	if !strings.HasPrefix(r, RolePrefix) {
		r = RolePrefix + r
	}
	return Role(r), nil
}

// ParseRole normalizes input and maps it to one of the known roles.
// Returns ErrRoleNotFound when the canonical form is not a known role.
func ParseRole(input string) (Role, error) {
	r, err := NormalizeRole(input)
	if err != nil {
		return "", err
	}
	if !r.IsKnown() {
		return "", ErrRoleNotFound
	}
	return r, nil
}

// IsKnown reports whether the role is one of the four first-class roles.
// Unknown canonical strings are kept opaque for comparison but are never
// treated as a fifth role.
func (r Role) IsKnown() bool {
	switch r {
	case RoleDriver, RoleOwner, RoleAdmin, RoleAPIClient:
		return true
	}
	return false
}

// Name returns the role name without the canonical prefix, e.g. "DRIVER".
func (r Role) Name() string {
	return strings.TrimPrefix(string(r), RolePrefix)
}
