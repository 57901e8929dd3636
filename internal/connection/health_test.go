package connection

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/Rrens/chat-archive/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockHealthBackend struct {
	mock.Mock
}

func (m *MockHealthBackend) GetSession(ctx context.Context) (*domain.AuthResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuthResponse), args.Error(1)
}

func (m *MockHealthBackend) CountRows(ctx context.Context, table string) (int64, error) {
	args := m.Called(ctx, table)
	return args.Get(0).(int64), args.Error(1)
}

func newChecker(b HealthBackend, online bool) *HealthChecker {
	return NewHealthChecker(b, NewStaticNetwork(online), 30*time.Millisecond, 30*time.Millisecond, zerolog.Nop())
}

func TestHealthChecker_Offline(t *testing.T) {
	backend := new(MockHealthBackend)

	res := newChecker(backend, false).Check(context.Background())

	assert.False(t, res.Connected)
	assert.False(t, res.Partial)
	assert.Equal(t, ReasonOffline, res.Reason)
	assert.Equal(t, MsgOffline, res.Message)
	backend.AssertNotCalled(t, "GetSession", mock.Anything)
}

func TestHealthChecker_Connected(t *testing.T) {
	backend := new(MockHealthBackend)
	backend.On("GetSession", mock.Anything).Return(&domain.AuthResponse{}, nil)
	backend.On("CountRows", mock.Anything, domain.TableServiceConnections).Return(int64(4), nil)

	res := newChecker(backend, true).Check(context.Background())

	assert.True(t, res.Connected)
	assert.False(t, res.Partial)
	assert.Empty(t, res.Message)
	backend.AssertExpectations(t)
}

func TestHealthChecker_SessionTimeoutIsPartial(t *testing.T) {
	backend := new(MockHealthBackend)
	backend.On("GetSession", mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.Canceled)

	res := newChecker(backend, true).Check(context.Background())

	assert.False(t, res.Connected)
	assert.True(t, res.Partial)
	assert.Equal(t, ReasonTimeout, res.Reason)
	assert.Equal(t, MsgSlow, res.Message)
	backend.AssertNotCalled(t, "CountRows", mock.Anything, mock.Anything)
}

func TestHealthChecker_NetworkError(t *testing.T) {
	backend := new(MockHealthBackend)
	backend.On("GetSession", mock.Anything).
		Return(nil, &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")})

	res := newChecker(backend, true).Check(context.Background())

	assert.False(t, res.Connected)
	assert.False(t, res.Partial)
	assert.Equal(t, ReasonNetwork, res.Reason)
	assert.Equal(t, MsgNetwork, res.Message)
}

func TestHealthChecker_BackendError(t *testing.T) {
	backend := new(MockHealthBackend)
	backend.On("GetSession", mock.Anything).Return(nil, errors.New("Invalid API key"))

	res := newChecker(backend, true).Check(context.Background())

	assert.False(t, res.Connected)
	assert.False(t, res.Partial)
	assert.Equal(t, ReasonBackend, res.Reason)
	assert.Equal(t, "Invalid API key", res.Message)
}

func TestHealthChecker_TableFailureIsDegraded(t *testing.T) {
	backend := new(MockHealthBackend)
	backend.On("GetSession", mock.Anything).Return(&domain.AuthResponse{}, nil)
	backend.On("CountRows", mock.Anything, domain.TableServiceConnections).Return(int64(0), errors.New("relation does not exist"))

	res := newChecker(backend, true).Check(context.Background())

	assert.False(t, res.Connected)
	assert.True(t, res.Partial)
	assert.Equal(t, ReasonDegraded, res.Reason)
	assert.Equal(t, MsgDegraded, res.Message)
}
