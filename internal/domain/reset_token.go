package domain

import "time"

// PasswordResetToken is a single-use, time-bounded secret permitting one
// password change. At most one token exists per user; creating a new one
// replaces any prior token. Used flips false to true exactly once, at
// redemption.
type PasswordResetToken struct {
	ID        int64
	Token     string
	UserID    int64
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// IsExpired reports whether the token is past its expiry at the given
// instant. Expiry is checked lazily at redemption; expired tokens are
// never redeemable regardless of the used flag.
func (t *PasswordResetToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
