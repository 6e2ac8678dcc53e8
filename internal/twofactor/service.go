package twofactor

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusfix/campusfix/internal/accounts"
	"github.com/campusfix/campusfix/pkg/logger"
	"github.com/campusfix/campusfix/pkg/qrcode"
	"github.com/campusfix/campusfix/pkg/totp"
)

// UserStore defines the account operations the service needs. The
// write methods must be atomic per user row.
type UserStore interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*accounts.User, error)
	GetUserByEmail(ctx context.Context, email string) (*accounts.User, error)
	SaveTwoFactorSecret(ctx context.Context, userID uuid.UUID, secret string) error
	EnableTwoFactor(ctx context.Context, userID uuid.UUID) error
	DisableTwoFactor(ctx context.Context, userID uuid.UUID) error
}

// BackupCodeStore persists hashed backup codes. ConsumeBackupCode must
// delete the matched hash in the same statement so each code is
// single-use even under concurrent attempts.
type BackupCodeStore interface {
	ReplaceBackupCodes(ctx context.Context, userID uuid.UUID, hashes []string) error
	ConsumeBackupCode(ctx context.Context, userID uuid.UUID, hash string) (bool, error)
	CountBackupCodes(ctx context.Context, userID uuid.UUID) (int, error)
	DeleteBackupCodes(ctx context.Context, userID uuid.UUID) error
}

// SetupResult is returned by InitiateSetup. The secret, QR code and
// backup codes are shown to the user exactly once during enrollment.
type SetupResult struct {
	AlreadyEnabled bool     `json:"already_enabled,omitempty"`
	Secret         string   `json:"secret,omitempty"`
	KeyURI         string   `json:"key_uri,omitempty"`
	QRCode         string   `json:"qr_code,omitempty"`
	BackupCodes    []string `json:"backup_codes,omitempty"`
	Instructions   string   `json:"instructions,omitempty"`
}

const setupInstructions = "Scan the QR code with your authenticator app, " +
	"then confirm with a 6-digit code. Store the backup codes somewhere safe; " +
	"each works once if you lose access to the app."

// Status reports the two-factor state of an account.
type Status struct {
	Enabled              bool `json:"enabled"`
	PendingSetup         bool `json:"pending_setup"`
	BackupCodesRemaining int  `json:"backup_codes_remaining"`
}

var backupCodeShape = regexp.MustCompile(fmt.Sprintf(`^\d{%d}$`, totp.BackupCodeDigits))

// Service manages two-factor enrollment and login verification.
type Service struct {
	users   UserStore
	codes   BackupCodeStore
	markers MarkerStore
	issuer  string
	log     *slog.Logger
	now     func() time.Time
}

type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithClock overrides the time source used for code validation, used
// in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a two-factor service. The issuer is the label
// shown in authenticator apps.
func NewService(users UserStore, codes BackupCodeStore, markers MarkerStore, issuer string, opts ...Option) *Service {
	s := &Service{
		users:   users,
		codes:   codes,
		markers: markers,
		issuer:  issuer,
		log:     slog.New(slog.DiscardHandler),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InitiateSetup issues a fresh secret for the account and returns the
// provisioning QR code plus a new set of backup codes. Calling it
// again before verification replaces the pending secret and codes.
// Accounts that already have two-factor enabled get AlreadyEnabled
// instead of a new secret.
func (s *Service) InitiateSetup(ctx context.Context, userID uuid.UUID) (*SetupResult, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.TwoFactorEnabled {
		return &SetupResult{AlreadyEnabled: true}, nil
	}

	secret, err := totp.GenerateSecret()
	if err != nil {
		return nil, err
	}
	if err := s.users.SaveTwoFactorSecret(ctx, userID, secret); err != nil {
		return nil, fmt.Errorf("failed to save pending secret: %w", err)
	}

	keyURI, err := totp.KeyURI(s.issuer, user.Email, secret)
	if err != nil {
		return nil, err
	}
	qr, err := qrcode.DataURI(keyURI, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to render provisioning code: %w", err)
	}

	backupCodes, err := s.issueBackupCodes(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "two-factor setup initiated",
		logger.UserID(userID.String()),
		logger.Component("twofactor"),
	)
	return &SetupResult{
		Secret:       secret,
		KeyURI:       keyURI,
		QRCode:       qr,
		BackupCodes:  backupCodes,
		Instructions: setupInstructions,
	}, nil
}

// VerifySetup confirms the pending secret with a code from the
// authenticator app and flips two-factor on. An invalid code leaves
// the pending secret in place so the user can retry.
func (s *Service) VerifySetup(ctx context.Context, userID uuid.UUID, code string) error {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.TwoFactorEnabled {
		return ErrAlreadyEnabled
	}
	if user.TwoFactorSecret == "" {
		return ErrSetupNotInitiated
	}

	ok, err := totp.ValidateAt(user.TwoFactorSecret, code, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCode
	}

	if err := s.users.EnableTwoFactor(ctx, userID); err != nil {
		return fmt.Errorf("failed to enable two-factor: %w", err)
	}

	s.log.InfoContext(ctx, "two-factor enabled",
		logger.UserID(userID.String()),
		logger.Component("twofactor"),
	)
	return nil
}

// Disable turns off two-factor authentication after verifying the
// account password. A wrong password leaves the account unchanged.
func (s *Service) Disable(ctx context.Context, userID uuid.UUID, password string) error {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return ErrInvalidPassword
	}
	if !user.TwoFactorEnabled {
		return ErrNotEnabled
	}

	if err := s.users.DisableTwoFactor(ctx, userID); err != nil {
		return fmt.Errorf("failed to disable two-factor: %w", err)
	}
	if err := s.codes.DeleteBackupCodes(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete backup codes: %w", err)
	}

	s.log.InfoContext(ctx, "two-factor disabled",
		logger.UserID(userID.String()),
		logger.Component("twofactor"),
	)
	return nil
}

// VerifyLogin completes a login for an account with two-factor
// enabled. It re-checks the password, then accepts either a current
// TOTP code or an unused backup code. On success the account is
// marked verified for DefaultMarkerTTL.
func (s *Service) VerifyLogin(ctx context.Context, email, password, code string) (*accounts.User, error) {
	user, err := s.users.GetUserByEmail(ctx, accounts.NormalizeEmail(email))
	if err != nil {
		return nil, accounts.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, accounts.ErrInvalidCredentials
	}
	if !user.TwoFactorEnabled {
		return nil, ErrNotEnabled
	}

	ok, err := totp.ValidateAt(user.TwoFactorSecret, code, s.now())
	if err != nil {
		return nil, err
	}
	if !ok && backupCodeShape.MatchString(code) {
		ok, err = s.codes.ConsumeBackupCode(ctx, user.ID, totp.HashBackupCode(code))
		if err != nil {
			return nil, fmt.Errorf("failed to check backup code: %w", err)
		}
		if ok {
			s.log.InfoContext(ctx, "backup code consumed",
				logger.UserID(user.ID.String()),
				logger.Component("twofactor"),
			)
		}
	}
	if !ok {
		return nil, ErrInvalidCode
	}

	if err := s.markers.MarkVerified(ctx, user.ID.String()); err != nil {
		// Login still succeeds; the user will just be asked to verify
		// again when the marker is checked.
		s.log.ErrorContext(ctx, "failed to mark account verified",
			logger.UserID(user.ID.String()),
			logger.Error(err),
			logger.Component("twofactor"),
		)
	}
	return user, nil
}

// ClearVerification drops the verified marker, called at logout.
func (s *Service) ClearVerification(ctx context.Context, userID uuid.UUID) error {
	return s.markers.Clear(ctx, userID.String())
}

// IsVerified reports whether the account completed the code check
// within the marker TTL. Best-effort state: a false answer only means
// the user has to enter a code again.
func (s *Service) IsVerified(ctx context.Context, userID uuid.UUID) (bool, error) {
	return s.markers.IsVerified(ctx, userID.String())
}

// Status returns the two-factor state for an account.
func (s *Service) Status(ctx context.Context, userID uuid.UUID) (*Status, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	st := &Status{
		Enabled:      user.TwoFactorEnabled,
		PendingSetup: !user.TwoFactorEnabled && user.TwoFactorSecret != "",
	}
	if user.TwoFactorEnabled {
		remaining, err := s.codes.CountBackupCodes(ctx, userID)
		if err != nil {
			return nil, err
		}
		st.BackupCodesRemaining = remaining
	}
	return st, nil
}

// RegenerateBackupCodes replaces all backup codes after verifying the
// account password. Previously issued codes stop working immediately.
func (s *Service) RegenerateBackupCodes(ctx context.Context, userID uuid.UUID, password string) ([]string, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidPassword
	}
	if !user.TwoFactorEnabled {
		return nil, ErrNotEnabled
	}
	return s.issueBackupCodes(ctx, userID)
}

func (s *Service) issueBackupCodes(ctx context.Context, userID uuid.UUID) ([]string, error) {
	codes, err := totp.GenerateBackupCodes()
	if err != nil {
		return nil, err
	}
	hashes := make([]string, len(codes))
	for i, code := range codes {
		hashes[i] = totp.HashBackupCode(code)
	}
	if err := s.codes.ReplaceBackupCodes(ctx, userID, hashes); err != nil {
		return nil, fmt.Errorf("failed to store backup codes: %w", err)
	}
	return codes, nil
}
