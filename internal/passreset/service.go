package passreset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusfix/campusfix/internal/accounts"
	"github.com/campusfix/campusfix/pkg/logger"
	"github.com/campusfix/campusfix/pkg/mailer"
)

// UserStore defines the account lookups the service needs.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*accounts.User, error)
}

// RequestResult is returned by Request. Token is always populated for
// known accounts; the HTTP layer decides whether to expose it (dev
// environments only).
type RequestResult struct {
	Token string
}

// Service issues and consumes password reset tokens.
type Service struct {
	store      Store
	users      UserStore
	mail       mailer.EmailSender
	log        *slog.Logger
	ttl        time.Duration
	bcryptCost int
	resetURL   string
	now        func() time.Time
}

type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithTokenTTL overrides the token lifetime.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) { s.ttl = ttl }
}

// WithBcryptCost sets the bcrypt cost for the new password hash.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.bcryptCost = cost }
}

// WithMailer enables reset emails. Without it tokens are issued but
// delivery is skipped.
func WithMailer(mail mailer.EmailSender, resetURL string) Option {
	return func(s *Service) {
		s.mail = mail
		s.resetURL = resetURL
	}
}

// WithClock overrides the time source, used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a password reset service.
func NewService(store Store, users UserStore, opts ...Option) *Service {
	s := &Service{
		store:      store,
		users:      users,
		log:        slog.New(slog.DiscardHandler),
		ttl:        DefaultTokenTTL,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Request issues a reset token for the account behind email and mails
// the reset link. Any previously issued unused tokens are invalidated
// in the same transaction. Unknown addresses return an empty result
// with no error so responses cannot be used to enumerate accounts.
func (s *Service) Request(ctx context.Context, email string) (*RequestResult, error) {
	email = accounts.NormalizeEmail(email)

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, accounts.ErrUserNotFound) {
			s.log.InfoContext(ctx, "reset requested for unknown email",
				logger.Component("passreset"),
			)
			return &RequestResult{}, nil
		}
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}

	raw, err := generateToken()
	if err != nil {
		return nil, err
	}
	token := &Token{
		ID:        uuid.New(),
		UserID:    user.ID,
		Token:     raw,
		CreatedAt: s.now(),
	}
	if err := s.store.InvalidateAndCreate(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to store reset token: %w", err)
	}

	s.sendResetEmail(ctx, user, raw)

	s.log.InfoContext(ctx, "reset token issued",
		logger.UserID(user.ID.String()),
		logger.Component("passreset"),
	)
	return &RequestResult{Token: raw}, nil
}

// Consume validates the raw token and sets the new password. The used
// flag and the password hash change in one transaction, so a token can
// never be spent twice even under concurrent requests.
func (s *Service) Consume(ctx context.Context, raw, newPassword string) error {
	if err := accounts.ValidatePassword(newPassword); err != nil {
		return err
	}

	token, err := s.store.GetByToken(ctx, raw)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return ErrInvalidOrExpiredToken
		}
		return fmt.Errorf("failed to load reset token: %w", err)
	}

	if token.Used {
		s.log.WarnContext(ctx, "reset token already used",
			logger.UserID(token.UserID.String()),
			logger.Component("passreset"),
		)
		return ErrInvalidOrExpiredToken
	}
	if s.now().After(token.ExpiresAt(s.ttl)) {
		s.log.InfoContext(ctx, "reset token expired",
			logger.UserID(token.UserID.String()),
			logger.Component("passreset"),
		)
		return ErrInvalidOrExpiredToken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.store.Consume(ctx, token, hash); err != nil {
		if errors.Is(err, ErrTokenAlreadyUsed) {
			return ErrInvalidOrExpiredToken
		}
		return fmt.Errorf("failed to consume reset token: %w", err)
	}

	s.log.InfoContext(ctx, "password reset completed",
		logger.UserID(token.UserID.String()),
		logger.Component("passreset"),
	)
	return nil
}

func (s *Service) sendResetEmail(ctx context.Context, user *accounts.User, raw string) {
	if s.mail == nil {
		return
	}

	link := s.resetURL + "?token=" + raw
	err := s.mail.SendEmail(ctx, mailer.SendEmailParams{
		SendTo:  user.Email,
		Subject: "Reset your CampusFix password",
		BodyHTML: fmt.Sprintf(
			"<p>Hi %s,</p><p>Follow the link below to choose a new password. The link is valid for one hour and can be used once.</p><p><a href=%q>Reset password</a></p><p>If you did not request this, you can ignore this email.</p>",
			user.FullName(), link,
		),
		Tag: "password-reset",
	})
	if err != nil {
		// Delivery failures are not surfaced to the requester.
		s.log.ErrorContext(ctx, "failed to send reset email",
			logger.UserID(user.ID.String()),
			logger.Error(err),
			logger.Component("passreset"),
		)
	}
}
