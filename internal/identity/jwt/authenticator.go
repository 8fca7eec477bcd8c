// Package jwt implements bearer token issuance and verification.
//
// Tokens are self-contained HS256 JWTs carrying the caller's identity
// claims. Verification needs only the static signing key, so request
// handling stays stateless and there is no server-side token registry;
// the flip side is that tokens cannot be revoked before expiry.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/bissquit/fleet-garden/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// minKeyBytes is the minimum signing key length for HS256 (256 bits).
const minKeyBytes = 32

// Token errors. A verification failure of any kind means "no authenticated
// principal"; callers convert it to an authorization-denied outcome and
// never let it escape the request boundary.
var (
	ErrWeakKey          = errors.New("jwt signing key must be at least 32 bytes for HS256")
	ErrTokenMalformed   = errors.New("token is malformed")
	ErrTokenExpired     = errors.New("token is expired")
	ErrTokenUnsupported = errors.New("token is unsupported")
	ErrTokenInvalid     = errors.New("token is invalid")
)

// Claims is the claim set carried by an issued token.
type Claims struct {
	UserID    int64       `json:"id"`
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Role      domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Config contains token codec configuration.
type Config struct {
	SecretKey     string
	TokenLifetime time.Duration
}

// Authenticator issues and verifies bearer tokens.
type Authenticator struct {
	key      []byte
	lifetime time.Duration
}

// NewAuthenticator creates a token authenticator. A key shorter than the
// HS256 minimum is a startup-time configuration error, never a per-request
// one.
func NewAuthenticator(cfg Config) (*Authenticator, error) {
	if len(cfg.SecretKey) < minKeyBytes {
		return nil, ErrWeakKey
	}
	if cfg.TokenLifetime <= 0 {
		return nil, fmt.Errorf("token lifetime must be positive, got %s", cfg.TokenLifetime)
	}
	return &Authenticator{
		key:      []byte(cfg.SecretKey),
		lifetime: cfg.TokenLifetime,
	}, nil
}

// Issue mints a signed token for the principal. The subject is the email;
// expiry is now plus the configured lifetime.
func (a *Authenticator) Issue(p *domain.Principal, now time.Time) (string, error) {
	claims := Claims{
		UserID:    p.ID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Role:      p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.lifetime)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Verify checks the signature and expiry of a token string against the
// given instant and returns its claims.
func (a *Authenticator) Verify(tokenString string, now time.Time) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrTokenInvalid
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) { return a.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, classify(err)
	}
	return claims, nil
}

// Subject extracts the email claim from a token that already passed Verify.
func (a *Authenticator) Subject(tokenString string) (string, error) {
	claims, err := a.Verify(tokenString, time.Now().UTC())
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Lifetime returns the configured token validity window.
func (a *Authenticator) Lifetime() time.Duration {
	return a.lifetime
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrTokenUnsupported
	default:
		return ErrTokenInvalid
	}
}
