// Package passwordreset implements the password reset token lifecycle:
// request, email delivery, and redemption.
package passwordreset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bissquit/fleet-garden/internal/domain"
	"github.com/bissquit/fleet-garden/internal/identity"
	"github.com/bissquit/fleet-garden/internal/pkg/ctxlog"
	"github.com/bissquit/fleet-garden/internal/pkg/metrics"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrTokenInvalid is returned when the presented token does not exist.
	ErrTokenInvalid = errors.New("reset token is invalid")
	// ErrTokenUsed is returned when the token was already redeemed.
	ErrTokenUsed = errors.New("reset token has already been used")
	// ErrTokenExpired is returned when the token is past its expiry.
	ErrTokenExpired = errors.New("reset token has expired")
)

// Repository defines storage operations for reset tokens.
type Repository interface {
	// ReplaceToken removes any existing token for the user and stores the
	// new one, atomically. A user holds at most one active token.
	ReplaceToken(ctx context.Context, token *domain.PasswordResetToken) error
	// GetToken retrieves a token by its value.
	GetToken(ctx context.Context, token string) (*domain.PasswordResetToken, error)
	// RedeemToken updates the user's password and marks the token used in
	// a single transaction.
	RedeemToken(ctx context.Context, tokenID int64, userID int64, passwordHash string) error
}

// MailSender delivers the reset link to the user.
type MailSender interface {
	SendPasswordReset(ctx context.Context, to, resetLink string) error
}

// Config holds reset flow settings.
type Config struct {
	// ResetURL is the frontend page the emailed link points at. The token
	// is appended as a query parameter.
	ResetURL string
	// TokenTTL is how long an issued token stays valid.
	TokenTTL time.Duration
}

// Service orchestrates the reset flow.
type Service struct {
	repo   Repository
	users  identity.Repository
	mailer MailSender
	config Config
}

// NewService creates a password reset service.
func NewService(repo Repository, users identity.Repository, mailer MailSender, config Config) *Service {
	if config.TokenTTL <= 0 {
		config.TokenTTL = 15 * time.Minute
	}
	return &Service{
		repo:   repo,
		users:  users,
		mailer: mailer,
		config: config,
	}
}

// Request issues a reset token for the account with the given email and
// mails the reset link. Unknown emails are silently ignored so the
// endpoint does not leak account existence.
func (s *Service) Request(ctx context.Context, email string) error {
	logger := ctxlog.FromContext(ctx)

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			logger.Debug("password reset requested for unknown email")
			metrics.PasswordResetRequests.WithLabelValues("unknown_email").Inc()
			return nil
		}
		metrics.PasswordResetRequests.WithLabelValues("error").Inc()
		return fmt.Errorf("lookup user: %w", err)
	}

	now := time.Now().UTC()
	token := &domain.PasswordResetToken{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: now.Add(s.config.TokenTTL),
	}

	if err := s.repo.ReplaceToken(ctx, token); err != nil {
		metrics.PasswordResetRequests.WithLabelValues("error").Inc()
		return fmt.Errorf("store reset token: %w", err)
	}

	link := fmt.Sprintf("%s?token=%s", s.config.ResetURL, token.Token)
	if err := s.mailer.SendPasswordReset(ctx, user.Email, link); err != nil {
		// The token is already stored; delivery failure must not surface
		// account existence to the caller.
		logger.Error("failed to send password reset email", "user_id", user.ID, "error", err)
		metrics.PasswordResetRequests.WithLabelValues("mail_failed").Inc()
		return nil
	}

	logger.Info("password reset token issued", "user_id", user.ID)
	metrics.PasswordResetRequests.WithLabelValues("issued").Inc()
	return nil
}

// Redeem validates the token and sets the new password. The token is
// consumed on success.
func (s *Service) Redeem(ctx context.Context, tokenValue, newPassword string) error {
	token, err := s.repo.GetToken(ctx, tokenValue)
	if err != nil {
		if errors.Is(err, ErrTokenInvalid) {
			return ErrTokenInvalid
		}
		return fmt.Errorf("lookup reset token: %w", err)
	}

	if token.Used {
		return ErrTokenUsed
	}
	if token.IsExpired(time.Now().UTC()) {
		return ErrTokenExpired
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.repo.RedeemToken(ctx, token.ID, token.UserID, string(hash)); err != nil {
		return fmt.Errorf("redeem reset token: %w", err)
	}

	ctxlog.FromContext(ctx).Info("password reset completed", "user_id", token.UserID)
	return nil
}
