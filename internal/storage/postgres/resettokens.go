package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/campusfix/campusfix/internal/passreset"
	"github.com/campusfix/campusfix/pkg/pg"
)

// InvalidateAndCreate marks every unused token of the user as used and
// inserts the new token in one transaction, so at most one token per
// user is live at any time.
func (r *Repository) InvalidateAndCreate(ctx context.Context, token *passreset.Token) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			UPDATE password_reset_tokens SET used = true WHERE user_id = $1 AND used = false`,
			token.UserID,
		); err != nil {
			return fmt.Errorf("failed to invalidate previous tokens: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO password_reset_tokens (id, user_id, token, created_at, used)
			VALUES ($1, $2, $3, $4, false)`,
			token.ID, token.UserID, token.Token, token.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert reset token: %w", err)
		}
		return nil
	})
}

func (r *Repository) GetByToken(ctx context.Context, raw string) (*passreset.Token, error) {
	var t passreset.Token
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, token, created_at, used
		FROM password_reset_tokens WHERE token = $1`,
		raw,
	).Scan(&t.ID, &t.UserID, &t.Token, &t.CreatedAt, &t.Used)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, passreset.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to load reset token: %w", err)
	}
	return &t, nil
}

// Consume flips the used flag and updates the password hash in one
// transaction. The conditional update guards against double spending:
// if another request already consumed the token, zero rows match and
// the password is left untouched.
func (r *Repository) Consume(ctx context.Context, token *passreset.Token, passwordHash []byte) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE password_reset_tokens SET used = true WHERE id = $1 AND used = false`,
			token.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to mark token used: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return passreset.ErrTokenAlreadyUsed
		}

		if _, err := tx.Exec(ctx, `
			UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`,
			token.UserID, passwordHash,
		); err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}
		return nil
	})
}
