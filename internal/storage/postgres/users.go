package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/campusfix/campusfix/internal/accounts"
	"github.com/campusfix/campusfix/pkg/pg"
)

const userColumns = `id, email, first_name, last_name, student_id, phone, role, avatar_url,
	password_hash, two_factor_enabled, two_factor_secret, created_at, updated_at`

func scanUser(row interface{ Scan(dest ...any) error }) (*accounts.User, error) {
	var u accounts.User
	err := row.Scan(
		&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.StudentID, &u.Phone, &u.Role, &u.AvatarURL,
		&u.PasswordHash, &u.TwoFactorEnabled, &u.TwoFactorSecret, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, accounts.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &u, nil
}

func (r *Repository) CreateUser(ctx context.Context, user *accounts.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, email, first_name, last_name, student_id, phone, role, avatar_url,
			password_hash, two_factor_enabled, two_factor_secret, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		user.ID, user.Email, user.FirstName, user.LastName, user.StudentID, user.Phone, user.Role,
		user.AvatarURL, user.PasswordHash, user.TwoFactorEnabled, user.TwoFactorSecret,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return accounts.ErrEmailAlreadyExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (r *Repository) GetUserByID(ctx context.Context, id uuid.UUID) (*accounts.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*accounts.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (r *Repository) UpdateUser(ctx context.Context, user *accounts.User) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET first_name = $2, last_name = $3, student_id = $4, phone = $5, avatar_url = $6,
			updated_at = $7
		WHERE id = $1`,
		user.ID, user.FirstName, user.LastName, user.StudentID, user.Phone, user.AvatarURL,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return accounts.ErrUserNotFound
	}
	return nil
}

func (r *Repository) UpdatePasswordHash(ctx context.Context, userID uuid.UUID, hash []byte) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`,
		userID, hash,
	)
	if err != nil {
		return fmt.Errorf("failed to update password hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return accounts.ErrUserNotFound
	}
	return nil
}

// ListAdmins returns all staff and admin accounts.
func (r *Repository) ListAdmins(ctx context.Context) ([]accounts.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE role IN ($1, $2)`,
		accounts.RoleAdmin, accounts.RoleStaff,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list staff: %w", err)
	}
	defer rows.Close()

	var out []accounts.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// SaveTwoFactorSecret stores a pending secret without enabling
// two-factor authentication.
func (r *Repository) SaveTwoFactorSecret(ctx context.Context, userID uuid.UUID, secret string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET two_factor_secret = $2, updated_at = now() WHERE id = $1`,
		userID, secret,
	)
	if err != nil {
		return fmt.Errorf("failed to save two-factor secret: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return accounts.ErrUserNotFound
	}
	return nil
}

func (r *Repository) EnableTwoFactor(ctx context.Context, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET two_factor_enabled = true, updated_at = now()
		WHERE id = $1 AND two_factor_secret <> ''`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to enable two-factor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return accounts.ErrUserNotFound
	}
	return nil
}

// DisableTwoFactor clears the flag and the secret in one statement.
func (r *Repository) DisableTwoFactor(ctx context.Context, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET two_factor_enabled = false, two_factor_secret = '', updated_at = now()
		WHERE id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to disable two-factor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return accounts.ErrUserNotFound
	}
	return nil
}
