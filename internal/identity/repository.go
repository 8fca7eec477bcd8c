package identity

import (
	"context"
	"time"

	"github.com/bissquit/fleet-garden/internal/domain"
)

// Repository defines the interface for identity data operations.
type Repository interface {
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	UserExistsByEmail(ctx context.Context, email string) (bool, error)

	// CreateUser inserts a user record.
	CreateUser(ctx context.Context, user *domain.User) error

	// CreateUserWithDriver inserts the user and its driver profile in one
	// transaction; partial success must not occur.
	CreateUserWithDriver(ctx context.Context, user *domain.User, driver *domain.Driver) error

	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error

	// RecordLogin stores the last-login timestamp. Callers treat failure
	// as best-effort.
	RecordLogin(ctx context.Context, userID int64, at time.Time) error

	DriverExistsByEmail(ctx context.Context, email string) (bool, error)
	DriverExistsByLicense(ctx context.Context, licenseNumber string) (bool, error)
}
