package passreset

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultTokenTTL is how long a reset token stays usable after issue.
const DefaultTokenTTL = time.Hour

// tokenBytes is the entropy of a raw reset token before encoding.
const tokenBytes = 32

var (
	// ErrInvalidOrExpiredToken covers every token failure mode. Expired,
	// unknown and already-used tokens are deliberately indistinguishable
	// to the caller; the distinction is only logged.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired reset token")

	ErrTokenNotFound    = errors.New("reset token not found")
	ErrTokenAlreadyUsed = errors.New("reset token already used")
)

// Token is a single-use password reset token. The raw value is only
// ever held in memory and in the email link; storage keeps it verbatim
// because it already carries 256 bits of entropy.
type Token struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Token     string
	CreatedAt time.Time
	Used      bool
}

// ExpiresAt returns the moment the token stops being valid.
func (t *Token) ExpiresAt(ttl time.Duration) time.Time {
	return t.CreatedAt.Add(ttl)
}

// Store persists reset tokens. InvalidateAndCreate and Consume must
// run their statements in a single transaction.
type Store interface {
	// InvalidateAndCreate marks every unused token of token.UserID as
	// used and inserts the new token atomically.
	InvalidateAndCreate(ctx context.Context, token *Token) error

	// GetByToken loads a token by its raw value. Returns
	// ErrTokenNotFound when no row matches.
	GetByToken(ctx context.Context, raw string) (*Token, error)

	// Consume marks the token used and updates the owner's password
	// hash in one transaction. The used flag must be flipped with a
	// conditional update; a token that is already used returns
	// ErrTokenAlreadyUsed and leaves the password untouched.
	Consume(ctx context.Context, token *Token, passwordHash []byte) error
}

// generateToken returns a URL-safe random token.
func generateToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
