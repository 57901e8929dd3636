package service

import (
	"context"
	"sync"
	"time"

	"github.com/Rrens/chat-archive/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockUserRepository mocks the UserRepository interface
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) ConfirmEmail(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

// MockProfileRepository mocks the ProfileRepository interface
type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *MockProfileRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *MockProfileRepository) Update(ctx context.Context, userID uuid.UUID, update *domain.ProfileUpdate) error {
	args := m.Called(ctx, userID, update)
	return args.Error(0)
}

// MockServiceConnectionRepository mocks the ServiceConnectionRepository interface
type MockServiceConnectionRepository struct {
	mock.Mock
}

func (m *MockServiceConnectionRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.ServiceConnection, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.ServiceConnection), args.Error(1)
}

func (m *MockServiceConnectionRepository) Upsert(ctx context.Context, conn *domain.ServiceConnection) error {
	args := m.Called(ctx, conn)
	return args.Error(0)
}

// MockChatRepository mocks the ChatRepository interface
type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) Create(ctx context.Context, chat *domain.Chat) error {
	args := m.Called(ctx, chat)
	return args.Error(0)
}

func (m *MockChatRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Chat, error) {
	args := m.Called(ctx, userID, limit)
	return args.Get(0).([]domain.Chat), args.Error(1)
}

// memoryRevoker is an in-memory TokenRevoker
type memoryRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
}

func newMemoryRevoker() *memoryRevoker {
	return &memoryRevoker{revoked: make(map[string]time.Duration)}
}

func (r *memoryRevoker) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked[jti] = ttl
	return nil
}

func (r *memoryRevoker) IsRevoked(_ context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.revoked[jti]
	return ok, nil
}

// captureMailer records confirmation links
type captureMailer struct {
	mu    sync.Mutex
	links map[string]string
	err   error
}

func (c *captureMailer) SendConfirmation(_ context.Context, to, link string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	if c.links == nil {
		c.links = make(map[string]string)
	}
	c.links[to] = link
	return nil
}
