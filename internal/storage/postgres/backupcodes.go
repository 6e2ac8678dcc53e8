package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ReplaceBackupCodes swaps the user's backup code hashes atomically so
// old codes stop working the moment new ones exist.
func (r *Repository) ReplaceBackupCodes(ctx context.Context, userID uuid.UUID, hashes []string) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM backup_codes WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("failed to delete old backup codes: %w", err)
		}
		for _, hash := range hashes {
			if _, err := tx.Exec(ctx, `
				INSERT INTO backup_codes (id, user_id, code_hash, created_at)
				VALUES ($1, $2, $3, now())`,
				uuid.New(), userID, hash,
			); err != nil {
				return fmt.Errorf("failed to insert backup code: %w", err)
			}
		}
		return nil
	})
}

// ConsumeBackupCode deletes the matching hash and reports whether a
// row was removed. The single DELETE makes each code single-use even
// under concurrent verification attempts.
func (r *Repository) ConsumeBackupCode(ctx context.Context, userID uuid.UUID, hash string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM backup_codes WHERE user_id = $1 AND code_hash = $2`,
		userID, hash,
	)
	if err != nil {
		return false, fmt.Errorf("failed to consume backup code: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) CountBackupCodes(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM backup_codes WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count backup codes: %w", err)
	}
	return count, nil
}

func (r *Repository) DeleteBackupCodes(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM backup_codes WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete backup codes: %w", err)
	}
	return nil
}
