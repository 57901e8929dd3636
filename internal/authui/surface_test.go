package authui

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Rrens/chat-archive/internal/connection"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type stubProber bool

func (p stubProber) Probe(context.Context, time.Duration) bool { return bool(p) }

type stubChecker struct {
	result  connection.CheckResult
	release chan struct{}
}

func (c *stubChecker) Check(ctx context.Context) connection.CheckResult {
	if c.release != nil {
		<-c.release
	}
	return c.result
}

type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) SignIn(ctx context.Context, email, password string) error {
	return m.Called(ctx, email, password).Error(0)
}

func (m *MockAuthenticator) SignUp(ctx context.Context, email, password string) error {
	return m.Called(ctx, email, password).Error(0)
}

func newSurface(t *testing.T, reachable bool, checker *stubChecker) (*Surface, *MockAuthenticator) {
	t.Helper()
	cfg := connection.Config{
		ProbeTimeout:    10 * time.Millisecond,
		CheckTimeout:    time.Second,
		CycleTimeout:    2 * time.Second,
		RecheckInterval: time.Hour,
	}
	machine := connection.NewMachine(cfg, connection.NewStaticNetwork(true), stubProber(reachable), checker, zerolog.Nop())
	auth := new(MockAuthenticator)
	s := NewSurface(machine, auth, zerolog.Nop())
	t.Cleanup(s.Close)
	return s, auth
}

func waitFor(t *testing.T, s *Surface, status connection.Status) ViewState {
	t.Helper()
	require.Eventually(t, func() bool { return s.View().Status == status }, 2*time.Second, 5*time.Millisecond)
	return s.View()
}

func TestSurface_ConnectedFormEnabled(t *testing.T) {
	s, auth := newSurface(t, true, &stubChecker{result: connection.CheckResult{Connected: true}})
	s.Open(context.Background())

	v := waitFor(t, s, connection.StatusConnected)
	assert.True(t, v.FormEnabled)
	assert.False(t, v.ShowRetry)
	assert.Equal(t, "Connected to server", v.Headline)
	assert.Equal(t, "Sign in", v.Title)

	auth.On("SignIn", mock.Anything, "a@example.com", "secret1").Return(nil)
	require.NoError(t, s.Submit(context.Background(), "a@example.com", "secret1"))
	auth.AssertExpectations(t)
}

func TestSurface_PartialAllowsSubmit(t *testing.T) {
	checker := &stubChecker{result: connection.CheckResult{Partial: true, Message: connection.MsgSlow}}
	s, auth := newSurface(t, true, checker)
	s.Open(context.Background())

	v := waitFor(t, s, connection.StatusPartial)
	assert.True(t, v.FormEnabled)
	assert.True(t, v.ShowRetry)
	assert.Equal(t, connection.MsgSlow, v.Headline)

	assert.Equal(t, ModeSignUp, s.ToggleMode())
	auth.On("SignUp", mock.Anything, "a@example.com", "secret12").Return(nil)
	require.NoError(t, s.Submit(context.Background(), "a@example.com", "secret12"))
	auth.AssertExpectations(t)
}

func TestSurface_DisconnectedDisablesForm(t *testing.T) {
	s, auth := newSurface(t, false, &stubChecker{})
	s.Open(context.Background())

	v := waitFor(t, s, connection.StatusDisconnected)
	assert.False(t, v.FormEnabled)
	assert.True(t, v.ShowRetry)
	assert.Equal(t, "Retry", v.RetryLabel)
	assert.Equal(t, connection.MsgUnreachable, v.Headline)

	err := s.Submit(context.Background(), "a@example.com", "secret1")
	assert.ErrorIs(t, err, ErrFormDisabled)
	auth.AssertNotCalled(t, "SignIn", mock.Anything, mock.Anything, mock.Anything)
}

func TestSurface_CancelWhileTesting(t *testing.T) {
	checker := &stubChecker{result: connection.CheckResult{Connected: true}, release: make(chan struct{})}
	defer close(checker.release)

	s, _ := newSurface(t, true, checker)
	s.Open(context.Background())

	v := s.View()
	assert.Equal(t, connection.StatusTesting, v.Status)
	assert.Equal(t, "Cancel", v.RetryLabel)
	assert.Equal(t, "Testing connection...", v.Headline)

	s.Retry()

	v = s.View()
	assert.Equal(t, connection.StatusDisconnected, v.Status)
	assert.Equal(t, connection.MsgCanceled, v.Message)
	assert.False(t, v.FormEnabled)
}

func TestSurface_ReopenRetestsConnection(t *testing.T) {
	checker := &stubChecker{result: connection.CheckResult{Connected: true}}
	s, _ := newSurface(t, true, checker)

	s.Open(context.Background())
	waitFor(t, s, connection.StatusConnected)
	s.Close()

	checker.result = connection.CheckResult{Reason: connection.ReasonBackend, Message: "Service unavailable"}

	var mu sync.Mutex
	var statuses []connection.Status
	s.Subscribe(func(v ViewState) {
		mu.Lock()
		statuses = append(statuses, v.Status)
		mu.Unlock()
	})

	s.Open(context.Background())
	v := waitFor(t, s, connection.StatusDisconnected)
	assert.False(t, v.FormEnabled)
	assert.Equal(t, "Service unavailable", v.Headline)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, statuses)
	assert.Equal(t, connection.StatusTesting, statuses[0])
}

func TestSurface_ToggleMode(t *testing.T) {
	s, _ := newSurface(t, true, &stubChecker{result: connection.CheckResult{Connected: true}})

	var views []ViewState
	s.Subscribe(func(v ViewState) { views = append(views, v) })

	assert.Equal(t, ModeSignUp, s.ToggleMode())
	assert.Equal(t, "Create an account", s.View().Title)
	assert.Equal(t, "Already have an account? Sign in", s.View().ToggleLabel)
	assert.Equal(t, ModeSignIn, s.ToggleMode())
	assert.Len(t, views, 2)
}
