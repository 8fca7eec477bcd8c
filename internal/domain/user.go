// Package domain contains the entities shared across feature packages.
package domain

import "time"

// User is a stored identity record. Password holds the bcrypt hash and is
// never serialized.
type User struct {
	ID          int64      `json:"id"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Email       string     `json:"email"`
	Password    string     `json:"-"`
	Role        Role       `json:"role"`
	Enabled     bool       `json:"enabled"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Principal is the authenticated caller as seen by authorization logic.
// It is built fresh from a user record on every login or token
// verification and is never persisted.
type Principal struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      Role   `json:"role"`
	Enabled   bool   `json:"enabled"`
}

// NewPrincipal derives a Principal from a user record, normalizing the
// stored role so downstream comparisons always see the canonical form.
func NewPrincipal(u *User) (*Principal, error) {
	role, err := NormalizeRole(string(u.Role))
	if err != nil {
		return nil, err
	}
	return &Principal{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      role,
		Enabled:   u.Enabled,
	}, nil
}
