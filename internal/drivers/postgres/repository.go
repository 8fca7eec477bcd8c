// Package postgres provides the PostgreSQL implementation of the drivers
// repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bissquit/fleet-garden/internal/domain"
	"github.com/bissquit/fleet-garden/internal/drivers"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// Repository implements drivers.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const driverColumns = `id, first_name, last_name, email, phone, license_number, license_expiry, eco_score, status, created_at, updated_at`

func scanDriver(row pgx.Row) (*domain.Driver, error) {
	var d domain.Driver
	err := row.Scan(
		&d.ID,
		&d.FirstName,
		&d.LastName,
		&d.Email,
		&d.Phone,
		&d.LicenseNumber,
		&d.LicenseExpiry,
		&d.EcoScore,
		&d.Status,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// CreateDriver inserts a driver profile.
func (r *Repository) CreateDriver(ctx context.Context, driver *domain.Driver) error {
	query := `
		INSERT INTO drivers (first_name, last_name, email, phone, license_number, license_expiry, eco_score, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		driver.FirstName,
		driver.LastName,
		driver.Email,
		driver.Phone,
		driver.LicenseNumber,
		driver.LicenseExpiry,
		driver.EcoScore,
		driver.Status,
	).Scan(&driver.ID, &driver.CreatedAt, &driver.UpdatedAt)

	if err != nil {
		return classifyUnique(err, "create driver")
	}
	return nil
}

// GetDriverByID retrieves a driver by id.
func (r *Repository) GetDriverByID(ctx context.Context, id int64) (*domain.Driver, error) {
	driver, err := scanDriver(r.db.QueryRow(ctx, `SELECT `+driverColumns+` FROM drivers WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, drivers.ErrDriverNotFound
		}
		return nil, fmt.Errorf("get driver by id: %w", err)
	}
	return driver, nil
}

// GetDriverByEmail retrieves a driver by email.
func (r *Repository) GetDriverByEmail(ctx context.Context, email string) (*domain.Driver, error) {
	driver, err := scanDriver(r.db.QueryRow(ctx, `SELECT `+driverColumns+` FROM drivers WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, drivers.ErrDriverNotFound
		}
		return nil, fmt.Errorf("get driver by email: %w", err)
	}
	return driver, nil
}

// ListDrivers returns drivers matching the filter, ordered by id.
func (r *Repository) ListDrivers(ctx context.Context, filter drivers.Filter) ([]domain.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers`
	var args []interface{}

	if filter.Status != nil {
		query += ` WHERE status = $1`
		args = append(args, *filter.Status)
	}
	query += ` ORDER BY id`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list drivers: %w", err)
	}
	defer rows.Close()

	var result []domain.Driver
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, fmt.Errorf("scan driver: %w", err)
		}
		result = append(result, *d)
	}
	return result, rows.Err()
}

// UpdateDriver updates a driver profile.
func (r *Repository) UpdateDriver(ctx context.Context, driver *domain.Driver) error {
	query := `
		UPDATE drivers
		SET first_name = $1, last_name = $2, email = $3, phone = $4,
		    license_number = $5, license_expiry = $6, eco_score = $7, status = $8,
		    updated_at = now()
		WHERE id = $9
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query,
		driver.FirstName,
		driver.LastName,
		driver.Email,
		driver.Phone,
		driver.LicenseNumber,
		driver.LicenseExpiry,
		driver.EcoScore,
		driver.Status,
		driver.ID,
	).Scan(&driver.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return drivers.ErrDriverNotFound
		}
		return classifyUnique(err, "update driver")
	}
	return nil
}

// DeleteDriver removes a driver profile.
func (r *Repository) DeleteDriver(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM drivers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete driver: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return drivers.ErrDriverNotFound
	}
	return nil
}

// classifyUnique maps unique constraint violations onto domain errors by
// the violated constraint name.
func classifyUnique(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch {
		case strings.Contains(pgErr.ConstraintName, "license"):
			return drivers.ErrLicenseTaken
		case strings.Contains(pgErr.ConstraintName, "email"):
			return drivers.ErrEmailTaken
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
