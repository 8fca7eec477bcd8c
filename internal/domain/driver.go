package domain

import "time"

// DriverStatus represents the employment status of a driver.
type DriverStatus string

// Driver statuses.
const (
	DriverStatusActive    DriverStatus = "ACTIVE"
	DriverStatusInactive  DriverStatus = "INACTIVE"
	DriverStatusOnLeave   DriverStatus = "ON_LEAVE"
	DriverStatusSuspended DriverStatus = "SUSPENDED"
)

// IsValid checks if the driver status is valid.
func (s DriverStatus) IsValid() bool {
	switch s {
	case DriverStatusActive, DriverStatusInactive, DriverStatusOnLeave, DriverStatusSuspended:
		return true
	}
	return false
}

// Driver is a driver profile. The email links the profile to the user
// account carrying the DRIVER role; the license number is unique across
// all profiles.
type Driver struct {
	ID            int64        `json:"id"`
	FirstName     string       `json:"first_name"`
	LastName      string       `json:"last_name"`
	Email         string       `json:"email"`
	Phone         string       `json:"phone,omitempty"`
	LicenseNumber string       `json:"license_number"`
	LicenseExpiry *time.Time   `json:"license_expiry,omitempty"`
	EcoScore      float64      `json:"eco_score"`
	Status        DriverStatus `json:"status"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}
