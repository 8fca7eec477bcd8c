// Package postgres provides the PostgreSQL implementation of the vehicles
// repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bissquit/fleet-garden/internal/domain"
	"github.com/bissquit/fleet-garden/internal/vehicles"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// Repository implements vehicles.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const vehicleColumns = `id, registration_number, brand, model, year, color, vin, fuel_type, transmission,
	status, mileage, last_maintenance_date, next_maintenance_date, owner_id, driver_id, created_at, updated_at`

func scanVehicle(row pgx.Row) (*domain.Vehicle, error) {
	var v domain.Vehicle
	err := row.Scan(
		&v.ID,
		&v.RegistrationNumber,
		&v.Brand,
		&v.Model,
		&v.Year,
		&v.Color,
		&v.VIN,
		&v.FuelType,
		&v.Transmission,
		&v.Status,
		&v.Mileage,
		&v.LastMaintenanceDate,
		&v.NextMaintenanceDate,
		&v.OwnerID,
		&v.DriverID,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// CreateVehicle inserts a vehicle.
func (r *Repository) CreateVehicle(ctx context.Context, vehicle *domain.Vehicle) error {
	query := `
		INSERT INTO vehicles (registration_number, brand, model, year, color, vin, fuel_type,
			transmission, status, mileage, last_maintenance_date, next_maintenance_date, owner_id, driver_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		vehicle.RegistrationNumber,
		vehicle.Brand,
		vehicle.Model,
		vehicle.Year,
		vehicle.Color,
		vehicle.VIN,
		vehicle.FuelType,
		vehicle.Transmission,
		vehicle.Status,
		vehicle.Mileage,
		vehicle.LastMaintenanceDate,
		vehicle.NextMaintenanceDate,
		vehicle.OwnerID,
		vehicle.DriverID,
	).Scan(&vehicle.ID, &vehicle.CreatedAt, &vehicle.UpdatedAt)

	if err != nil {
		return classifyUnique(err, "create vehicle")
	}
	return nil
}

// GetVehicleByID retrieves a vehicle by id.
func (r *Repository) GetVehicleByID(ctx context.Context, id int64) (*domain.Vehicle, error) {
	vehicle, err := scanVehicle(r.db.QueryRow(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, vehicles.ErrVehicleNotFound
		}
		return nil, fmt.Errorf("get vehicle by id: %w", err)
	}
	return vehicle, nil
}

// GetVehicleByRegistration retrieves a vehicle by registration number.
func (r *Repository) GetVehicleByRegistration(ctx context.Context, registration string) (*domain.Vehicle, error) {
	vehicle, err := scanVehicle(r.db.QueryRow(ctx,
		`SELECT `+vehicleColumns+` FROM vehicles WHERE registration_number = $1`, registration))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, vehicles.ErrVehicleNotFound
		}
		return nil, fmt.Errorf("get vehicle by registration: %w", err)
	}
	return vehicle, nil
}

// ListVehicles returns vehicles matching the filter, ordered by id.
func (r *Repository) ListVehicles(ctx context.Context, filter vehicles.Filter) ([]domain.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles`
	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, "status = $"+strconv.Itoa(len(args)))
	}
	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		conditions = append(conditions, "owner_id = $"+strconv.Itoa(len(args)))
	}
	if filter.DriverID != nil {
		args = append(args, *filter.DriverID)
		conditions = append(conditions, "driver_id = $"+strconv.Itoa(len(args)))
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	defer rows.Close()

	var result []domain.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vehicle: %w", err)
		}
		result = append(result, *v)
	}
	return result, rows.Err()
}

// UpdateVehicle updates a vehicle record.
func (r *Repository) UpdateVehicle(ctx context.Context, vehicle *domain.Vehicle) error {
	query := `
		UPDATE vehicles
		SET registration_number = $1, brand = $2, model = $3, year = $4, color = $5, vin = $6,
		    fuel_type = $7, transmission = $8, status = $9, mileage = $10,
		    last_maintenance_date = $11, next_maintenance_date = $12, updated_at = now()
		WHERE id = $13
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query,
		vehicle.RegistrationNumber,
		vehicle.Brand,
		vehicle.Model,
		vehicle.Year,
		vehicle.Color,
		vehicle.VIN,
		vehicle.FuelType,
		vehicle.Transmission,
		vehicle.Status,
		vehicle.Mileage,
		vehicle.LastMaintenanceDate,
		vehicle.NextMaintenanceDate,
		vehicle.ID,
	).Scan(&vehicle.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return vehicles.ErrVehicleNotFound
		}
		return classifyUnique(err, "update vehicle")
	}
	return nil
}

// DeleteVehicle removes a vehicle.
func (r *Repository) DeleteVehicle(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM vehicles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete vehicle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return vehicles.ErrVehicleNotFound
	}
	return nil
}

// AssignDriver sets the vehicle's driver. The partial unique index on
// driver_id enforces one vehicle per driver.
func (r *Repository) AssignDriver(ctx context.Context, vehicleID, driverID int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE vehicles SET driver_id = $1, updated_at = now() WHERE id = $2`,
		driverID, vehicleID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return vehicles.ErrDriverAlreadyAssigned
		}
		return fmt.Errorf("assign driver: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return vehicles.ErrVehicleNotFound
	}
	return nil
}

// RemoveDriver clears the vehicle's driver assignment.
func (r *Repository) RemoveDriver(ctx context.Context, vehicleID int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE vehicles SET driver_id = NULL, updated_at = now() WHERE id = $1`,
		vehicleID,
	)
	if err != nil {
		return fmt.Errorf("remove driver: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return vehicles.ErrVehicleNotFound
	}
	return nil
}

func classifyUnique(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch {
		case strings.Contains(pgErr.ConstraintName, "registration"):
			return vehicles.ErrRegistrationTaken
		case strings.Contains(pgErr.ConstraintName, "vin"):
			return vehicles.ErrVINTaken
		case strings.Contains(pgErr.ConstraintName, "driver"):
			return vehicles.ErrDriverAlreadyAssigned
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
