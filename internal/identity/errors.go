package identity

import "errors"

// Service errors. Credential failures are deliberately indistinct so the
// login endpoint cannot be used as an account-existence oracle.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrEmailTaken         = errors.New("email is already in use")
	ErrLicenseRequired    = errors.New("license number is required for driver registration")
	ErrLicenseTaken       = errors.New("license number already exists")
	ErrInvalidToken       = errors.New("invalid or expired token")
)
