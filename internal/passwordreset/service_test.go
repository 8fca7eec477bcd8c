package passwordreset

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bissquit/fleet-garden/internal/domain"
	"github.com/bissquit/fleet-garden/internal/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// mockRepository implements Repository for testing.
type mockRepository struct {
	tokens       map[string]*domain.PasswordResetToken
	replaceErr   error
	redeemCalled bool
	redeemedHash string
	redeemedUser int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{tokens: make(map[string]*domain.PasswordResetToken)}
}

func (m *mockRepository) ReplaceToken(_ context.Context, token *domain.PasswordResetToken) error {
	if m.replaceErr != nil {
		return m.replaceErr
	}
	for value, t := range m.tokens {
		if t.UserID == token.UserID {
			delete(m.tokens, value)
		}
	}
	token.ID = int64(len(m.tokens) + 1)
	m.tokens[token.Token] = token
	return nil
}

func (m *mockRepository) GetToken(_ context.Context, value string) (*domain.PasswordResetToken, error) {
	if t, ok := m.tokens[value]; ok {
		return t, nil
	}
	return nil, ErrTokenInvalid
}

func (m *mockRepository) RedeemToken(_ context.Context, tokenID int64, userID int64, passwordHash string) error {
	m.redeemCalled = true
	m.redeemedUser = userID
	m.redeemedHash = passwordHash
	for _, t := range m.tokens {
		if t.ID == tokenID {
			t.Used = true
		}
	}
	return nil
}

// mockUserRepo implements the subset of identity.Repository the service uses.
type mockUserRepo struct {
	identity.Repository
	users map[string]*domain.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*domain.User)}
}

func (m *mockUserRepo) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	if u, ok := m.users[email]; ok {
		return u, nil
	}
	return nil, identity.ErrUserNotFound
}

// mockMailer implements MailSender for testing.
type mockMailer struct {
	sentTo   []string
	sentLink string
	sendErr  error
}

func (m *mockMailer) SendPasswordReset(_ context.Context, to, link string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sentTo = append(m.sentTo, to)
	m.sentLink = link
	return nil
}

func newTestService() (*Service, *mockRepository, *mockUserRepo, *mockMailer) {
	repo := newMockRepository()
	users := newMockUserRepo()
	mailer := &mockMailer{}
	svc := NewService(repo, users, mailer, Config{
		ResetURL: "https://fleet.example.com/reset",
		TokenTTL: 15 * time.Minute,
	})
	return svc, repo, users, mailer
}

func TestService_Request(t *testing.T) {
	svc, repo, users, mailer := newTestService()
	users.users["driver@example.com"] = &domain.User{ID: 5, Email: "driver@example.com"}

	err := svc.Request(context.Background(), "driver@example.com")
	require.NoError(t, err)

	require.Len(t, repo.tokens, 1)
	require.Len(t, mailer.sentTo, 1)
	assert.Equal(t, "driver@example.com", mailer.sentTo[0])
	assert.True(t, strings.HasPrefix(mailer.sentLink, "https://fleet.example.com/reset?token="))

	for _, token := range repo.tokens {
		assert.Equal(t, int64(5), token.UserID)
		assert.False(t, token.Used)
		assert.WithinDuration(t, time.Now().UTC().Add(15*time.Minute), token.ExpiresAt, 5*time.Second)
		assert.Contains(t, mailer.sentLink, token.Token)
	}
}

func TestService_Request_UnknownEmailSilent(t *testing.T) {
	svc, repo, _, mailer := newTestService()

	err := svc.Request(context.Background(), "nobody@example.com")
	require.NoError(t, err, "unknown email must not surface an error")

	assert.Empty(t, repo.tokens)
	assert.Empty(t, mailer.sentTo)
}

func TestService_Request_ReplacesPreviousToken(t *testing.T) {
	svc, repo, users, _ := newTestService()
	users.users["driver@example.com"] = &domain.User{ID: 5, Email: "driver@example.com"}

	require.NoError(t, svc.Request(context.Background(), "driver@example.com"))
	require.NoError(t, svc.Request(context.Background(), "driver@example.com"))

	assert.Len(t, repo.tokens, 1, "a user holds at most one active token")
}

func TestService_Request_MailFailureDoesNotLeak(t *testing.T) {
	svc, repo, users, mailer := newTestService()
	users.users["driver@example.com"] = &domain.User{ID: 5, Email: "driver@example.com"}
	mailer.sendErr = errors.New("smtp down")

	err := svc.Request(context.Background(), "driver@example.com")
	assert.NoError(t, err, "mail failure must look the same as success to the caller")
	assert.Len(t, repo.tokens, 1)
}

func TestService_Redeem(t *testing.T) {
	svc, repo, users, mailer := newTestService()
	users.users["driver@example.com"] = &domain.User{ID: 5, Email: "driver@example.com"}
	require.NoError(t, svc.Request(context.Background(), "driver@example.com"))

	tokenValue := strings.TrimPrefix(mailer.sentLink, "https://fleet.example.com/reset?token=")

	err := svc.Redeem(context.Background(), tokenValue, "new-password-123")
	require.NoError(t, err)

	assert.True(t, repo.redeemCalled)
	assert.Equal(t, int64(5), repo.redeemedUser)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.redeemedHash), []byte("new-password-123")))
}

func TestService_Redeem_InvalidToken(t *testing.T) {
	svc, _, _, _ := newTestService()

	err := svc.Redeem(context.Background(), "no-such-token", "new-password-123")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestService_Redeem_UsedToken(t *testing.T) {
	svc, repo, _, _ := newTestService()
	repo.tokens["used-token"] = &domain.PasswordResetToken{
		ID:        1,
		Token:     "used-token",
		UserID:    5,
		ExpiresAt: time.Now().UTC().Add(10 * time.Minute),
		Used:      true,
	}

	err := svc.Redeem(context.Background(), "used-token", "new-password-123")
	assert.ErrorIs(t, err, ErrTokenUsed)
}

func TestService_Redeem_ExpiredToken(t *testing.T) {
	svc, repo, _, _ := newTestService()
	repo.tokens["old-token"] = &domain.PasswordResetToken{
		ID:        1,
		Token:     "old-token",
		UserID:    5,
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	}

	err := svc.Redeem(context.Background(), "old-token", "new-password-123")
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.False(t, repo.redeemCalled)
}

func TestService_Redeem_SingleUse(t *testing.T) {
	svc, repo, users, mailer := newTestService()
	users.users["driver@example.com"] = &domain.User{ID: 5, Email: "driver@example.com"}
	require.NoError(t, svc.Request(context.Background(), "driver@example.com"))

	tokenValue := strings.TrimPrefix(mailer.sentLink, "https://fleet.example.com/reset?token=")

	require.NoError(t, svc.Redeem(context.Background(), tokenValue, "new-password-123"))

	err := svc.Redeem(context.Background(), tokenValue, "another-password")
	assert.ErrorIs(t, err, ErrTokenUsed)
	assert.True(t, repo.redeemCalled)
}
