package passreset

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/campusfix/campusfix/internal/accounts"
	"github.com/campusfix/campusfix/pkg/mailer"
)

// MockStore is a mock implementation of Store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) InvalidateAndCreate(ctx context.Context, token *Token) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockStore) GetByToken(ctx context.Context, raw string) (*Token, error) {
	args := m.Called(ctx, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Token), args.Error(1)
}

func (m *MockStore) Consume(ctx context.Context, token *Token, passwordHash []byte) error {
	args := m.Called(ctx, token, passwordHash)
	return args.Error(0)
}

// MockUserStore is a mock implementation of UserStore.
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetUserByEmail(ctx context.Context, email string) (*accounts.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounts.User), args.Error(1)
}

// MockEmailSender is a mock implementation of mailer.EmailSender.
type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) SendEmail(ctx context.Context, params mailer.SendEmailParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}
