package accounts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusfix/campusfix/pkg/filestore"
	"github.com/campusfix/campusfix/pkg/jwt"
	"github.com/campusfix/campusfix/pkg/logger"
)

// Storage defines the persistence operations required by the service.
// Implementations must return ErrUserNotFound when no row matches.
type Storage interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUser(ctx context.Context, user *User) error
	UpdatePasswordHash(ctx context.Context, userID uuid.UUID, hash []byte) error
}

// Service provides registration, password login and profile management.
type Service struct {
	storage    Storage
	jwt        *jwt.Service
	files      filestore.Storage
	log        *slog.Logger
	bcryptCost int
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithBcryptCost sets the bcrypt cost for password hashing.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.bcryptCost = cost }
}

// WithTokenTTLs overrides the access and refresh token lifetimes.
func WithTokenTTLs(access, refresh time.Duration) Option {
	return func(s *Service) {
		s.accessTTL = access
		s.refreshTTL = refresh
	}
}

// WithFileStorage enables avatar uploads.
func WithFileStorage(files filestore.Storage) Option {
	return func(s *Service) { s.files = files }
}

// WithClock overrides the time source, used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates an account service backed by the given storage
// and JWT signer.
func NewService(storage Storage, jwtSvc *jwt.Service, opts ...Option) *Service {
	s := &Service{
		storage:    storage,
		jwt:        jwtSvc,
		log:        slog.New(slog.DiscardHandler),
		bcryptCost: bcrypt.DefaultCost,
		accessTTL:  15 * time.Minute,
		refreshTTL: 7 * 24 * time.Hour,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a new student account with a hashed password.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*User, error) {
	email := NormalizeEmail(params.Email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidatePassword(params.Password); err != nil {
		return nil, err
	}

	_, err := s.storage.GetUserByEmail(ctx, email)
	if err == nil {
		return nil, ErrEmailAlreadyExists
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := &User{
		ID:           uuid.New(),
		Email:        email,
		FirstName:    params.FirstName,
		LastName:     params.LastName,
		StudentID:    params.StudentID,
		Phone:        params.Phone,
		Role:         RoleStudent,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.storage.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.log.InfoContext(ctx, "account registered",
		logger.UserID(user.ID.String()),
		logger.Component("accounts"),
	)
	return user, nil
}

// Login verifies email and password. If the account has two-factor
// authentication enabled, no tokens are issued and the caller must
// complete the code verification step first. Any credential failure
// returns ErrInvalidCredentials to prevent user enumeration.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if user.TwoFactorEnabled {
		return &LoginResult{User: user, TwoFactorRequired: true}, nil
	}

	tokens, err := s.IssueTokens(user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: user, Tokens: tokens}, nil
}

// Authenticate checks the password for the given email and returns
// the account without issuing tokens.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.storage.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// IssueTokens signs a fresh access and refresh token pair for the user.
func (s *Service) IssueTokens(user *User) (*TokenPair, error) {
	now := s.now()

	access, err := s.jwt.Generate(Claims{
		UserID:    user.ID.String(),
		Email:     user.Email,
		Role:      user.Role,
		Subject:   SubjectAccess,
		ExpiresAt: now.Add(s.accessTTL).Unix(),
		IssuedAt:  now.Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refresh, err := s.jwt.Generate(Claims{
		UserID:    user.ID.String(),
		Subject:   SubjectRefresh,
		ExpiresAt: now.Add(s.refreshTTL).Unix(),
		IssuedAt:  now.Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh exchanges a valid refresh token for a new token pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var claims Claims
	if err := s.jwt.Parse(refreshToken, &claims); err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if claims.Subject != SubjectRefresh {
		return nil, ErrTokenInvalid
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	user, err := s.storage.GetUserByID(ctx, userID)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	return s.IssueTokens(user)
}

// VerifyAccessToken parses an access token and loads the account it
// belongs to. Used by the HTTP auth middleware.
func (s *Service) VerifyAccessToken(ctx context.Context, accessToken string) (*User, error) {
	var claims Claims
	if err := s.jwt.Parse(accessToken, &claims); err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if claims.Subject != SubjectAccess {
		return nil, ErrTokenInvalid
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	user, err := s.storage.GetUserByID(ctx, userID)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	return user, nil
}

// ChangePassword updates the password after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	user, err := s.storage.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(current)); err != nil {
		return ErrInvalidCredentials
	}
	if err := ValidatePassword(next); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.storage.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.log.InfoContext(ctx, "password changed",
		logger.UserID(userID.String()),
		logger.Component("accounts"),
	)
	return nil
}

// GetUser loads an account by ID.
func (s *Service) GetUser(ctx context.Context, userID uuid.UUID) (*User, error) {
	return s.storage.GetUserByID(ctx, userID)
}

// UpdateProfile applies the non-nil fields of params to the account.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, params UpdateProfileParams) (*User, error) {
	user, err := s.storage.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if params.FirstName != nil {
		user.FirstName = *params.FirstName
	}
	if params.LastName != nil {
		user.LastName = *params.LastName
	}
	if params.Phone != nil {
		user.Phone = *params.Phone
	}
	if params.StudentID != nil {
		user.StudentID = *params.StudentID
	}
	user.UpdatedAt = s.now()

	if err := s.storage.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}

// UpdateAvatar stores the uploaded image and records its URL on the
// account. Requires file storage to be configured.
func (s *Service) UpdateAvatar(ctx context.Context, userID uuid.UUID, filename, contentType string, r io.Reader) (*User, error) {
	if s.files == nil {
		return nil, errors.New("file storage is not configured")
	}

	user, err := s.storage.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	path := filepath.ToSlash(filepath.Join("avatars", userID.String(), filestore.SanitizeFilename(filename)))
	file, err := s.files.Save(ctx, path, contentType, r)
	if err != nil {
		return nil, fmt.Errorf("failed to store avatar: %w", err)
	}

	user.AvatarURL = file.URL
	user.UpdatedAt = s.now()
	if err := s.storage.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update avatar: %w", err)
	}
	return user, nil
}
