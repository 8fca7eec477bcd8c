package identity

import (
	"context"
	"testing"
	"time"

	"github.com/bissquit/fleet-garden/internal/domain"
	"github.com/bissquit/fleet-garden/internal/identity/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// mockRepository implements Repository for testing.
type mockRepository struct {
	users          map[string]*domain.User
	drivers        map[string]*domain.Driver // keyed by license number
	lastLogin      map[int64]time.Time
	recordLoginErr error
	nextUserID     int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		users:      make(map[string]*domain.User),
		drivers:    make(map[string]*domain.Driver),
		lastLogin:  make(map[int64]time.Time),
		nextUserID: 1,
	}
}

func (m *mockRepository) addUser(email, password string, role domain.Role, enabled bool) *domain.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	u := &domain.User{
		ID:       m.nextUserID,
		Email:    email,
		Password: string(hash),
		Role:     role,
		Enabled:  enabled,
	}
	m.nextUserID++
	m.users[email] = u
	return u
}

func (m *mockRepository) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	if u, ok := m.users[email]; ok {
		return u, nil
	}
	return nil, ErrUserNotFound
}

func (m *mockRepository) GetUserByID(_ context.Context, id int64) (*domain.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *mockRepository) UserExistsByEmail(_ context.Context, email string) (bool, error) {
	_, ok := m.users[email]
	return ok, nil
}

func (m *mockRepository) CreateUser(_ context.Context, user *domain.User) error {
	if _, ok := m.users[user.Email]; ok {
		return ErrEmailTaken
	}
	user.ID = m.nextUserID
	m.nextUserID++
	m.users[user.Email] = user
	return nil
}

func (m *mockRepository) CreateUserWithDriver(ctx context.Context, user *domain.User, driver *domain.Driver) error {
	if _, ok := m.drivers[driver.LicenseNumber]; ok {
		return ErrLicenseTaken
	}
	if err := m.CreateUser(ctx, user); err != nil {
		return err
	}
	driver.ID = user.ID
	m.drivers[driver.LicenseNumber] = driver
	return nil
}

func (m *mockRepository) UpdatePassword(_ context.Context, userID int64, hash string) error {
	for _, u := range m.users {
		if u.ID == userID {
			u.Password = hash
			return nil
		}
	}
	return ErrUserNotFound
}

func (m *mockRepository) RecordLogin(_ context.Context, userID int64, at time.Time) error {
	if m.recordLoginErr != nil {
		return m.recordLoginErr
	}
	m.lastLogin[userID] = at
	return nil
}

func (m *mockRepository) DriverExistsByEmail(_ context.Context, email string) (bool, error) {
	for _, d := range m.drivers {
		if d.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepository) DriverExistsByLicense(_ context.Context, license string) (bool, error) {
	_, ok := m.drivers[license]
	return ok, nil
}

func newTestService(t *testing.T) (*Service, *mockRepository) {
	t.Helper()
	repo := newMockRepository()
	auth, err := jwt.NewAuthenticator(jwt.Config{
		SecretKey:     "test-secret-key-with-32-bytes-ok!!",
		TokenLifetime: time.Hour,
	})
	require.NoError(t, err)
	return NewService(repo, auth), repo
}

func TestService_Login(t *testing.T) {
	svc, repo := newTestService(t)
	repo.addUser("owner@example.com", "secret-password", domain.RoleOwner, true)

	resp, err := svc.Login(context.Background(), "owner@example.com", "secret-password")
	require.NoError(t, err)

	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, "owner@example.com", resp.Email)
	assert.Equal(t, domain.RoleOwner, resp.Role)
	assert.Contains(t, repo.lastLogin, resp.ID, "login timestamp recorded")
}

func TestService_Login_WrongPassword(t *testing.T) {
	svc, repo := newTestService(t)
	repo.addUser("owner@example.com", "secret-password", domain.RoleOwner, true)

	_, err := svc.Login(context.Background(), "owner@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_Login_UnknownEmailSameError(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Login(context.Background(), "nobody@example.com", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials,
		"unknown account and bad password must be indistinguishable")
}

func TestService_Login_DisabledAccount(t *testing.T) {
	svc, repo := newTestService(t)
	repo.addUser("owner@example.com", "secret-password", domain.RoleOwner, false)

	_, err := svc.Login(context.Background(), "owner@example.com", "secret-password")
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestService_Login_RecordLoginFailureIgnored(t *testing.T) {
	svc, repo := newTestService(t)
	repo.addUser("owner@example.com", "secret-password", domain.RoleOwner, true)
	repo.recordLoginErr = assert.AnError

	_, err := svc.Login(context.Background(), "owner@example.com", "secret-password")
	assert.NoError(t, err, "timestamp write failure must not fail login")
}

func TestService_Register_AutoLogin(t *testing.T) {
	svc, _ := newTestService(t)

	resp, err := svc.Register(context.Background(), RegisterInput{
		FirstName: "Anna",
		LastName:  "Berg",
		Email:     "anna@example.com",
		Password:  "secret-password",
		Role:      "owner",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.Token, "registration returns a usable token")
	assert.Equal(t, domain.RoleOwner, resp.Role, "role stored in canonical form")
}

func TestService_Register_EmailTaken(t *testing.T) {
	svc, repo := newTestService(t)
	repo.addUser("anna@example.com", "whatever", domain.RoleOwner, true)

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "anna@example.com",
		Password: "secret-password",
		Role:     "owner",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestService_Register_UnknownRole(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "x@example.com",
		Password: "secret-password",
		Role:     "auditor",
	})
	assert.ErrorIs(t, err, domain.ErrRoleNotFound)
}

func TestService_Register_Driver(t *testing.T) {
	svc, repo := newTestService(t)

	resp, err := svc.Register(context.Background(), RegisterInput{
		FirstName:     "Jan",
		LastName:      "Novak",
		Email:         "jan@example.com",
		Password:      "secret-password",
		Role:          "driver",
		LicenseNumber: " DL-123456 ",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleDriver, resp.Role)

	driver, ok := repo.drivers["DL-123456"]
	require.True(t, ok, "driver profile stored with trimmed license")
	assert.Equal(t, "jan@example.com", driver.Email)
	assert.Equal(t, domain.DriverStatusActive, driver.Status)
}

func TestService_Register_DriverLicenseRequired(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "jan@example.com",
		Password: "secret-password",
		Role:     "driver",
	})
	assert.ErrorIs(t, err, ErrLicenseRequired)

	_, err = svc.Register(context.Background(), RegisterInput{
		Email:         "jan@example.com",
		Password:      "secret-password",
		Role:          "driver",
		LicenseNumber: "   ",
	})
	assert.ErrorIs(t, err, ErrLicenseRequired)
}

func TestService_Register_DriverLicenseTaken(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:         "jan@example.com",
		Password:      "secret-password",
		Role:          "driver",
		LicenseNumber: "DL-1",
	})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), RegisterInput{
		Email:         "petra@example.com",
		Password:      "secret-password",
		Role:          "driver",
		LicenseNumber: "DL-1",
	})
	assert.ErrorIs(t, err, ErrLicenseTaken)
}

func TestService_VerifyBearer(t *testing.T) {
	svc, repo := newTestService(t)
	repo.addUser("owner@example.com", "secret-password", domain.RoleOwner, true)

	resp, err := svc.Login(context.Background(), "owner@example.com", "secret-password")
	require.NoError(t, err)

	principal, err := svc.VerifyBearer(context.Background(), resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", principal.Email)
	assert.Equal(t, domain.RoleOwner, principal.Role)
}

func TestService_VerifyBearer_GarbageToken(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.VerifyBearer(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_VerifyBearer_DeletedUser(t *testing.T) {
	svc, repo := newTestService(t)
	repo.addUser("owner@example.com", "secret-password", domain.RoleOwner, true)

	resp, err := svc.Login(context.Background(), "owner@example.com", "secret-password")
	require.NoError(t, err)

	delete(repo.users, "owner@example.com")

	_, err = svc.VerifyBearer(context.Background(), resp.Token)
	assert.ErrorIs(t, err, ErrInvalidToken, "token subject must still resolve to an account")
}

func TestService_ChangePassword(t *testing.T) {
	svc, repo := newTestService(t)
	repo.addUser("owner@example.com", "old-password-1", domain.RoleOwner, true)

	err := svc.ChangePassword(context.Background(), "owner@example.com", "old-password-1", "new-password-1")
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "owner@example.com", "new-password-1")
	assert.NoError(t, err)

	_, err = svc.Login(context.Background(), "owner@example.com", "old-password-1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_ChangePassword_WrongOldPassword(t *testing.T) {
	svc, repo := newTestService(t)
	repo.addUser("owner@example.com", "old-password-1", domain.RoleOwner, true)

	err := svc.ChangePassword(context.Background(), "owner@example.com", "not-the-old-one", "new-password-1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
