package auth

import (
	"context"

	"github.com/Rrens/chat-archive/internal/backend"
	"github.com/Rrens/chat-archive/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockBackend mocks the Backend interface
type MockBackend struct {
	mock.Mock
	listener backend.AuthListener
}

func (m *MockBackend) GetSession(ctx context.Context) (*domain.AuthResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuthResponse), args.Error(1)
}

func (m *MockBackend) OnAuthStateChange(fn backend.AuthListener) func() {
	m.listener = fn
	m.Called()
	return func() { m.listener = nil }
}

func (m *MockBackend) SignInWithPassword(ctx context.Context, email, password string) (*domain.AuthResponse, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuthResponse), args.Error(1)
}

func (m *MockBackend) SignUp(ctx context.Context, email, password string, opts backend.SignUpOptions) (*domain.AuthResponse, error) {
	args := m.Called(ctx, email, password, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuthResponse), args.Error(1)
}

func (m *MockBackend) SignInWithOAuth(ctx context.Context, provider string, opts backend.OAuthOptions) (*domain.OAuthResponse, error) {
	args := m.Called(ctx, provider, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OAuthResponse), args.Error(1)
}

func (m *MockBackend) SignOut(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockGate mocks the Gate interface
type MockGate struct {
	mock.Mock
}

func (m *MockGate) Precheck(ctx context.Context) (bool, string) {
	args := m.Called(ctx)
	return args.Bool(0), args.String(1)
}

func (m *MockGate) MarkDisconnected(message string) {
	m.Called(message)
}
