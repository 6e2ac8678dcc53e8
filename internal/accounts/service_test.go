package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusfix/campusfix/pkg/jwt"
)

func newTestJWT(t *testing.T) *jwt.Service {
	t.Helper()
	svc, err := jwt.New("test-signing-key")
	require.NoError(t, err)
	return svc
}

func newTestUser(t *testing.T, password string) *User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &User{
		ID:           uuid.New(),
		Email:        "student@campus.edu",
		FirstName:    "Alex",
		LastName:     "Rivera",
		Role:         RoleStudent,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
}

func TestRegister(t *testing.T) {
	t.Parallel()

	t.Run("creates student account", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		storage.On("GetUserByEmail", mock.Anything, "new@campus.edu").Return(nil, ErrUserNotFound)
		storage.On("CreateUser", mock.Anything, mock.AnythingOfType("*accounts.User")).Return(nil)

		svc := NewService(storage, newTestJWT(t), WithBcryptCost(bcrypt.MinCost))
		user, err := svc.Register(context.Background(), RegisterParams{
			Email:     "New@Campus.EDU",
			Password:  "correct-horse-7",
			FirstName: "Sam",
		})
		require.NoError(t, err)

		assert.Equal(t, "new@campus.edu", user.Email)
		assert.Equal(t, RoleStudent, user.Role)
		assert.NoError(t, bcrypt.CompareHashAndPassword(user.PasswordHash, []byte("correct-horse-7")))
		storage.AssertExpectations(t)
	})

	t.Run("rejects duplicate email", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		storage.On("GetUserByEmail", mock.Anything, "taken@campus.edu").Return(newTestUser(t, "x"), nil)

		svc := NewService(storage, newTestJWT(t))
		_, err := svc.Register(context.Background(), RegisterParams{
			Email:    "taken@campus.edu",
			Password: "correct-horse-7",
		})
		assert.ErrorIs(t, err, ErrEmailAlreadyExists)
	})

	t.Run("rejects weak password", func(t *testing.T) {
		t.Parallel()

		svc := NewService(&MockStorage{}, newTestJWT(t))
		_, err := svc.Register(context.Background(), RegisterParams{
			Email:    "new@campus.edu",
			Password: "short",
		})
		assert.ErrorIs(t, err, ErrWeakPassword)
	})

	t.Run("rejects malformed email", func(t *testing.T) {
		t.Parallel()

		svc := NewService(&MockStorage{}, newTestJWT(t))
		_, err := svc.Register(context.Background(), RegisterParams{
			Email:    "not-an-email",
			Password: "correct-horse-7",
		})
		assert.ErrorIs(t, err, ErrInvalidEmail)
	})
}

func TestLogin(t *testing.T) {
	t.Parallel()

	t.Run("issues tokens without two-factor", func(t *testing.T) {
		t.Parallel()

		user := newTestUser(t, "correct-horse-7")
		storage := &MockStorage{}
		storage.On("GetUserByEmail", mock.Anything, user.Email).Return(user, nil)

		svc := NewService(storage, newTestJWT(t))
		result, err := svc.Login(context.Background(), user.Email, "correct-horse-7")
		require.NoError(t, err)

		assert.False(t, result.TwoFactorRequired)
		require.NotNil(t, result.Tokens)
		assert.NotEmpty(t, result.Tokens.AccessToken)
		assert.NotEmpty(t, result.Tokens.RefreshToken)
	})

	t.Run("defers tokens when two-factor enabled", func(t *testing.T) {
		t.Parallel()

		user := newTestUser(t, "correct-horse-7")
		user.TwoFactorEnabled = true
		storage := &MockStorage{}
		storage.On("GetUserByEmail", mock.Anything, user.Email).Return(user, nil)

		svc := NewService(storage, newTestJWT(t))
		result, err := svc.Login(context.Background(), user.Email, "correct-horse-7")
		require.NoError(t, err)

		assert.True(t, result.TwoFactorRequired)
		assert.Nil(t, result.Tokens)
	})

	t.Run("wrong password returns generic error", func(t *testing.T) {
		t.Parallel()

		user := newTestUser(t, "correct-horse-7")
		storage := &MockStorage{}
		storage.On("GetUserByEmail", mock.Anything, user.Email).Return(user, nil)

		svc := NewService(storage, newTestJWT(t))
		_, err := svc.Login(context.Background(), user.Email, "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email returns generic error", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		storage.On("GetUserByEmail", mock.Anything, "ghost@campus.edu").Return(nil, ErrUserNotFound)

		svc := NewService(storage, newTestJWT(t))
		_, err := svc.Login(context.Background(), "ghost@campus.edu", "whatever")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestRefresh(t *testing.T) {
	t.Parallel()

	t.Run("exchanges refresh token for new pair", func(t *testing.T) {
		t.Parallel()

		user := newTestUser(t, "correct-horse-7")
		storage := &MockStorage{}
		storage.On("GetUserByID", mock.Anything, user.ID).Return(user, nil)

		svc := NewService(storage, newTestJWT(t))
		pair, err := svc.IssueTokens(user)
		require.NoError(t, err)

		next, err := svc.Refresh(context.Background(), pair.RefreshToken)
		require.NoError(t, err)
		assert.NotEmpty(t, next.AccessToken)
	})

	t.Run("rejects access token used as refresh", func(t *testing.T) {
		t.Parallel()

		user := newTestUser(t, "correct-horse-7")
		svc := NewService(&MockStorage{}, newTestJWT(t))
		pair, err := svc.IssueTokens(user)
		require.NoError(t, err)

		_, err = svc.Refresh(context.Background(), pair.AccessToken)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})
}

func TestVerifyAccessToken(t *testing.T) {
	t.Parallel()

	t.Run("loads account from valid token", func(t *testing.T) {
		t.Parallel()

		user := newTestUser(t, "correct-horse-7")
		storage := &MockStorage{}
		storage.On("GetUserByID", mock.Anything, user.ID).Return(user, nil)

		svc := NewService(storage, newTestJWT(t))
		pair, err := svc.IssueTokens(user)
		require.NoError(t, err)

		got, err := svc.VerifyAccessToken(context.Background(), pair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("rejects expired token", func(t *testing.T) {
		t.Parallel()

		user := newTestUser(t, "correct-horse-7")
		svc := NewService(&MockStorage{}, newTestJWT(t),
			WithClock(func() time.Time { return time.Now().Add(-time.Hour) }),
		)
		pair, err := svc.IssueTokens(user)
		require.NoError(t, err)

		_, err = svc.VerifyAccessToken(context.Background(), pair.AccessToken)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})
}

func TestChangePassword(t *testing.T) {
	t.Parallel()

	t.Run("updates hash after verifying current", func(t *testing.T) {
		t.Parallel()

		user := newTestUser(t, "old-password-1")
		storage := &MockStorage{}
		storage.On("GetUserByID", mock.Anything, user.ID).Return(user, nil)
		storage.On("UpdatePasswordHash", mock.Anything, user.ID, mock.AnythingOfType("[]uint8")).Return(nil)

		svc := NewService(storage, newTestJWT(t), WithBcryptCost(bcrypt.MinCost))
		err := svc.ChangePassword(context.Background(), user.ID, "old-password-1", "new-password-2")
		require.NoError(t, err)
		storage.AssertExpectations(t)
	})

	t.Run("rejects wrong current password", func(t *testing.T) {
		t.Parallel()

		user := newTestUser(t, "old-password-1")
		storage := &MockStorage{}
		storage.On("GetUserByID", mock.Anything, user.ID).Return(user, nil)

		svc := NewService(storage, newTestJWT(t))
		err := svc.ChangePassword(context.Background(), user.ID, "wrong", "new-password-2")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		storage.AssertNotCalled(t, "UpdatePasswordHash", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"letters and digits", "abcdef12", false},
		{"mixed case", "Abcdefgh", false},
		{"too short", "ab1", true},
		{"single class", "abcdefgh", true},
		{"symbols count as a class", "abcdef!!", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrWeakPassword)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
