package jwt

import (
	"strings"
	"testing"
	"time"

	"github.com/bissquit/fleet-garden/internal/domain"
	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "test-secret-key-with-32-bytes-ok!!"

func newTestAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	auth, err := NewAuthenticator(Config{
		SecretKey:     testKey,
		TokenLifetime: time.Hour,
	})
	require.NoError(t, err)
	return auth
}

func testPrincipal() *domain.Principal {
	return &domain.Principal{
		ID:        42,
		Email:     "driver@example.com",
		FirstName: "Jan",
		LastName:  "Novak",
		Role:      domain.RoleDriver,
		Enabled:   true,
	}
}

func TestNewAuthenticator_WeakKey(t *testing.T) {
	_, err := NewAuthenticator(Config{SecretKey: "short", TokenLifetime: time.Hour})
	assert.ErrorIs(t, err, ErrWeakKey)

	_, err = NewAuthenticator(Config{SecretKey: strings.Repeat("a", 31), TokenLifetime: time.Hour})
	assert.ErrorIs(t, err, ErrWeakKey)

	_, err = NewAuthenticator(Config{SecretKey: strings.Repeat("a", 32), TokenLifetime: time.Hour})
	assert.NoError(t, err)
}

func TestIssueAndVerify(t *testing.T) {
	auth := newTestAuthenticator(t)
	now := time.Now().UTC().Truncate(time.Second)

	token, err := auth.Issue(testPrincipal(), now)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := auth.Verify(token, now.Add(time.Minute))
	require.NoError(t, err)

	assert.Equal(t, "driver@example.com", claims.Subject)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "Jan", claims.FirstName)
	assert.Equal(t, "Novak", claims.LastName)
	assert.Equal(t, domain.RoleDriver, claims.Role)
	assert.True(t, claims.IssuedAt.Time.Equal(now), "iat %s != %s", claims.IssuedAt.Time, now)
	assert.True(t, claims.ExpiresAt.Time.Equal(now.Add(time.Hour)), "exp %s != %s", claims.ExpiresAt.Time, now.Add(time.Hour))
}

func TestVerify_Expired(t *testing.T) {
	auth := newTestAuthenticator(t)
	now := time.Now().UTC()

	token, err := auth.Issue(testPrincipal(), now)
	require.NoError(t, err)

	_, err = auth.Verify(token, now.Add(2*time.Hour))
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerify_Malformed(t *testing.T) {
	auth := newTestAuthenticator(t)
	now := time.Now().UTC()

	_, err := auth.Verify("not-a-jwt", now)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestVerify_TamperedSignature(t *testing.T) {
	auth := newTestAuthenticator(t)
	now := time.Now().UTC()

	token, err := auth.Issue(testPrincipal(), now)
	require.NoError(t, err)

	// Flip a character in the signature segment.
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = auth.Verify(tampered, now)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestVerify_WrongKey(t *testing.T) {
	auth := newTestAuthenticator(t)
	other, err := NewAuthenticator(Config{
		SecretKey:     strings.Repeat("x", 32),
		TokenLifetime: time.Hour,
	})
	require.NoError(t, err)

	now := time.Now().UTC()
	token, err := other.Issue(testPrincipal(), now)
	require.NoError(t, err)

	_, err = auth.Verify(token, now)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestVerify_RejectsUnexpectedAlgorithm(t *testing.T) {
	auth := newTestAuthenticator(t)
	now := time.Now().UTC()

	// Token signed with "none" must never verify.
	unsigned := gojwt.NewWithClaims(gojwt.SigningMethodNone, gojwt.MapClaims{
		"sub": "driver@example.com",
		"exp": now.Add(time.Hour).Unix(),
	})
	token, err := unsigned.SignedString(gojwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = auth.Verify(token, now)
	assert.Error(t, err)
}

func TestSubject(t *testing.T) {
	auth := newTestAuthenticator(t)
	now := time.Now().UTC()

	token, err := auth.Issue(testPrincipal(), now)
	require.NoError(t, err)

	subject, err := auth.Subject(token)
	require.NoError(t, err)
	assert.Equal(t, "driver@example.com", subject)
}
