package domain

import "time"

// FuelType represents the fuel type of a vehicle.
type FuelType string

// Fuel types.
const (
	FuelTypePetrol   FuelType = "PETROL"
	FuelTypeDiesel   FuelType = "DIESEL"
	FuelTypeElectric FuelType = "ELECTRIC"
	FuelTypeHybrid   FuelType = "HYBRID"
	FuelTypeLPG      FuelType = "LPG"
)

// IsValid checks if the fuel type is valid.
func (f FuelType) IsValid() bool {
	switch f {
	case FuelTypePetrol, FuelTypeDiesel, FuelTypeElectric, FuelTypeHybrid, FuelTypeLPG:
		return true
	}
	return false
}

// TransmissionType represents the transmission of a vehicle.
type TransmissionType string

// Transmission types.
const (
	TransmissionManual    TransmissionType = "MANUAL"
	TransmissionAutomatic TransmissionType = "AUTOMATIC"
)

// IsValid checks if the transmission type is valid.
func (t TransmissionType) IsValid() bool {
	switch t {
	case TransmissionManual, TransmissionAutomatic:
		return true
	}
	return false
}

// VehicleStatus represents the operational status of a vehicle.
type VehicleStatus string

// Vehicle statuses.
const (
	VehicleStatusActive       VehicleStatus = "ACTIVE"
	VehicleStatusMaintenance  VehicleStatus = "MAINTENANCE"
	VehicleStatusOutOfService VehicleStatus = "OUT_OF_SERVICE"
	VehicleStatusRetired      VehicleStatus = "RETIRED"
)

// IsValid checks if the vehicle status is valid.
func (s VehicleStatus) IsValid() bool {
	switch s {
	case VehicleStatusActive, VehicleStatusMaintenance,
		VehicleStatusOutOfService, VehicleStatusRetired:
		return true
	}
	return false
}

// Vehicle is a fleet vehicle. OwnerID references the owning user; DriverID
// references the assigned driver profile, if any. Both are the ownership
// facts consumed by authorization.
type Vehicle struct {
	ID                  int64            `json:"id"`
	RegistrationNumber  string           `json:"registration_number"`
	Brand               string           `json:"brand"`
	Model               string           `json:"model"`
	Year                int              `json:"year"`
	Color               string           `json:"color,omitempty"`
	VIN                 *string          `json:"vin,omitempty"`
	FuelType            FuelType         `json:"fuel_type,omitempty"`
	Transmission        TransmissionType `json:"transmission,omitempty"`
	Status              VehicleStatus    `json:"status"`
	Mileage             float64          `json:"mileage"`
	LastMaintenanceDate *time.Time       `json:"last_maintenance_date,omitempty"`
	NextMaintenanceDate *time.Time       `json:"next_maintenance_date,omitempty"`
	OwnerID             int64            `json:"owner_id"`
	DriverID            *int64           `json:"driver_id,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}
