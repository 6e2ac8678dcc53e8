package accounts

import (
	"time"

	"github.com/google/uuid"
)

// Roles assignable to an account. Staff and admin accounts can manage
// issues reported by students.
const (
	RoleStudent = "student"
	RoleStaff   = "staff"
	RoleAdmin   = "admin"
)

// Token subjects embedded in JWT claims to prevent cross-use of
// access and refresh tokens.
const (
	SubjectAccess  = "access"
	SubjectRefresh = "refresh"
)

// User represents a campus account. PasswordHash is never serialized
// and two-factor fields are only touched by the twofactor service.
type User struct {
	ID               uuid.UUID `json:"id"`
	Email            string    `json:"email"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	StudentID        string    `json:"student_id,omitempty"`
	Phone            string    `json:"phone,omitempty"`
	Role             string    `json:"role"`
	AvatarURL        string    `json:"avatar_url,omitempty"`
	PasswordHash     []byte    `json:"-"`
	TwoFactorEnabled bool      `json:"two_factor_enabled"`
	TwoFactorSecret  string    `json:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// FullName returns the display name used in notifications and emails.
func (u *User) FullName() string {
	switch {
	case u.FirstName == "" && u.LastName == "":
		return u.Email
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

// IsAdmin reports whether the account can access management endpoints.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.Role == RoleStaff
}

// TokenPair holds the JWT pair issued after a completed login.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Claims is the payload encoded into both access and refresh tokens.
type Claims struct {
	UserID    string `json:"uid"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Subject   string `json:"sub"`
	ExpiresAt int64  `json:"exp"`
	IssuedAt  int64  `json:"iat"`
}

// Valid implements the claims validation hook of the jwt service.
func (c Claims) Valid() error {
	if c.UserID == "" || c.Subject == "" {
		return ErrTokenInvalid
	}
	if time.Now().Unix() > c.ExpiresAt {
		return ErrTokenExpired
	}
	return nil
}

// LoginResult is returned by Login. When the account has two-factor
// authentication enabled, Tokens is nil and TwoFactorRequired is set;
// the caller must complete the code check before tokens are issued.
type LoginResult struct {
	User              *User
	TwoFactorRequired bool
	Tokens            *TokenPair
}

// RegisterParams carries the fields accepted at signup.
type RegisterParams struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	StudentID string
	Phone     string
}

// UpdateProfileParams carries optional profile updates. Nil fields are
// left unchanged.
type UpdateProfileParams struct {
	FirstName *string
	LastName  *string
	Phone     *string
	StudentID *string
}
