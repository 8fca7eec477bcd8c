// Package postgres provides the PostgreSQL implementation of the password
// reset token repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/bissquit/fleet-garden/internal/domain"
	"github.com/bissquit/fleet-garden/internal/passwordreset"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements passwordreset.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// ReplaceToken deletes any existing token for the user and inserts the new
// one in a single transaction. Together with the unique constraint on
// user_id this guarantees at most one active token per user.
func (r *Repository) ReplaceToken(ctx context.Context, token *domain.PasswordResetToken) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM password_reset_tokens WHERE user_id = $1`, token.UserID); err != nil {
		return fmt.Errorf("delete previous token: %w", err)
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO password_reset_tokens (token, user_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, used, created_at
	`, token.Token, token.UserID, token.ExpiresAt).Scan(&token.ID, &token.Used, &token.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert token: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetToken retrieves a token by its value.
func (r *Repository) GetToken(ctx context.Context, tokenValue string) (*domain.PasswordResetToken, error) {
	var t domain.PasswordResetToken
	err := r.db.QueryRow(ctx, `
		SELECT id, token, user_id, expires_at, used, created_at
		FROM password_reset_tokens
		WHERE token = $1
	`, tokenValue).Scan(&t.ID, &t.Token, &t.UserID, &t.ExpiresAt, &t.Used, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, passwordreset.ErrTokenInvalid
		}
		return nil, fmt.Errorf("get token: %w", err)
	}
	return &t, nil
}

// RedeemToken updates the user's password and marks the token used in one
// transaction.
func (r *Repository) RedeemToken(ctx context.Context, tokenID int64, userID int64, passwordHash string) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`UPDATE users SET password = $1, updated_at = now() WHERE id = $2`,
		passwordHash, userID,
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update password: user %d not found", userID)
	}

	tag, err = tx.Exec(ctx,
		`UPDATE password_reset_tokens SET used = true WHERE id = $1 AND used = false`,
		tokenID,
	)
	if err != nil {
		return fmt.Errorf("mark token used: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Concurrent redemption of the same token loses here.
		return passwordreset.ErrTokenUsed
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
