// Package auth keeps the signed-in user and runs sign-in, sign-up and
// sign-out against the backend, translating failures into notifications.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Rrens/chat-archive/internal/backend"
	"github.com/Rrens/chat-archive/internal/browser"
	"github.com/Rrens/chat-archive/internal/domain"
	"github.com/Rrens/chat-archive/internal/notify"
	"github.com/Rrens/chat-archive/internal/retry"
	"github.com/rs/zerolog"
)

var (
	// ErrNotConnected is returned when the pre-flight connectivity check fails
	// and the backend was not called.
	ErrNotConnected = errors.New("not connected to authentication service")
	// ErrNetwork wraps backend calls that failed for connectivity reasons.
	ErrNetwork = errors.New("authentication service unreachable")
)

const (
	TitleConnectionError = "Connection Error"
	TitleSignInFailed    = "Sign in failed"
	TitleSignUpFailed    = "Sign up failed"
	TitleProviderFailed  = "Provider sign in failed"
	TitleSignOutFailed   = "Sign out failed"

	MsgConnectivity       = "Unable to connect to authentication service. Please check your internet connection and try again."
	MsgAuthUnreachable    = "Unable to reach authentication servers. Please check your internet connection and try again."
	MsgCheckEmail         = "Please check your email to confirm your account."
	MsgCanSignIn          = "You can now sign in with your account."
	MsgSignedOut          = "You have been successfully signed out."
	defaultProviderPrompt = "Continue signing in with %s in your browser."
)

const defaultCallTimeout = 10 * time.Second

// Backend is the part of the backend client the manager uses
type Backend interface {
	GetSession(ctx context.Context) (*domain.AuthResponse, error)
	OnAuthStateChange(fn backend.AuthListener) (unsubscribe func())
	SignInWithPassword(ctx context.Context, email, password string) (*domain.AuthResponse, error)
	SignUp(ctx context.Context, email, password string, opts backend.SignUpOptions) (*domain.AuthResponse, error)
	SignInWithOAuth(ctx context.Context, provider string, opts backend.OAuthOptions) (*domain.OAuthResponse, error)
	SignOut(ctx context.Context) error
}

// Gate is the connection check consulted before each operation and told
// about network failures. *connection.Machine implements it.
type Gate interface {
	Precheck(ctx context.Context) (bool, string)
	MarkDisconnected(message string)
}

// Session is a snapshot of the auth state
type Session struct {
	User        *domain.User
	Loading     bool
	IsConnected bool
}

// Options configures a Manager
type Options struct {
	// Policy defaults to retry.DefaultPolicy.
	Policy      *retry.Policy
	CallTimeout time.Duration
	// RedirectTo is passed to sign-up confirmation links and provider sign-in.
	RedirectTo string
}

// Manager owns the auth session for the lifetime of the client
type Manager struct {
	backend  Backend
	gate     Gate
	notifier notify.Notifier
	opener   browser.Opener
	policy   retry.Policy
	timeout  time.Duration
	redirect string
	logger   zerolog.Logger

	mu          sync.Mutex
	session     Session
	initialized bool
	disposed    bool
	unsubAuth   func()
	subs        map[int]func(Session)
	nextSub     int
}

// NewManager creates a session manager. Call Init before use.
func NewManager(b Backend, gate Gate, notifier notify.Notifier, opener browser.Opener, opts Options, logger zerolog.Logger) *Manager {
	policy := retry.DefaultPolicy()
	if opts.Policy != nil {
		policy = *opts.Policy
	}
	if policy.ShouldRetry == nil {
		policy.ShouldRetry = retry.IsNetworkError
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = defaultCallTimeout
	}
	if notifier == nil {
		notifier = notify.NewLogNotifier(logger)
	}

	return &Manager{
		backend:  b,
		gate:     gate,
		notifier: notifier,
		opener:   opener,
		policy:   policy,
		timeout:  opts.CallTimeout,
		redirect: opts.RedirectTo,
		logger:   logger,
		session:  Session{Loading: true, IsConnected: true},
		subs:     make(map[int]func(Session)),
	}
}

// Init subscribes to auth changes and fetches the current session once.
// Loading is false afterwards whatever the outcome.
func (m *Manager) Init(ctx context.Context) {
	m.mu.Lock()
	if m.initialized || m.disposed {
		m.mu.Unlock()
		return
	}
	m.initialized = true
	m.mu.Unlock()

	unsub := m.backend.OnAuthStateChange(m.onAuthChange)

	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		unsub()
		return
	}
	m.unsubAuth = unsub
	m.mu.Unlock()

	resp, err := call(ctx, m, m.backend.GetSession)
	if err != nil {
		m.logger.Warn().Err(err).Msg("Failed to fetch session")
		m.update(func(s *Session) {
			s.User = nil
			s.Loading = false
			s.IsConnected = false
		})
		return
	}

	m.update(func(s *Session) {
		s.User = resp.User
		s.Loading = false
		s.IsConnected = true
	})
}

// Dispose releases the auth subscription. The session is frozen afterwards.
func (m *Manager) Dispose() {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return
	}
	m.disposed = true
	unsub := m.unsubAuth
	m.unsubAuth = nil
	m.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// Session returns the current snapshot
func (m *Manager) Session() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Subscribe registers fn for every session change
func (m *Manager) Subscribe(fn func(Session)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

// SignIn signs in with email and password
func (m *Manager) SignIn(ctx context.Context, email, password string) error {
	if err := m.precheck(ctx); err != nil {
		return err
	}

	resp, err := call(ctx, m, func(ctx context.Context) (*domain.AuthResponse, error) {
		return m.backend.SignInWithPassword(ctx, email, password)
	})
	if err != nil {
		return m.fail(TitleSignInFailed, err)
	}

	m.update(func(s *Session) {
		s.User = resp.User
		s.IsConnected = true
	})

	welcome := "Welcome back!"
	if resp.User != nil && resp.User.Email != "" {
		welcome = fmt.Sprintf("Welcome back, %s!", resp.User.Email)
	}
	m.notifier.Notify(notify.Info("Sign in successful", welcome))
	m.logger.Info().Str("email", email).Msg("Signed in")
	return nil
}

// SignUp creates an account. The user is only signed in when the backend
// issued a session, which it does not while email confirmation is pending.
func (m *Manager) SignUp(ctx context.Context, email, password string) error {
	if err := m.precheck(ctx); err != nil {
		return err
	}

	resp, err := call(ctx, m, func(ctx context.Context) (*domain.AuthResponse, error) {
		return m.backend.SignUp(ctx, email, password, backend.SignUpOptions{EmailRedirectTo: m.redirect})
	})
	if err != nil {
		return m.fail(TitleSignUpFailed, err)
	}

	m.update(func(s *Session) {
		if resp.Session != nil {
			s.User = resp.User
		}
		s.IsConnected = true
	})

	msg := MsgCheckEmail
	if resp.User.IsConfirmed() {
		msg = MsgCanSignIn
	}
	m.notifier.Notify(notify.Info("Account created", msg))
	m.logger.Info().Str("email", email).Bool("confirmed", resp.User.IsConfirmed()).Msg("Account created")
	return nil
}

// SignInWithProvider asks the backend for the provider's authorization URL
// and opens it.
func (m *Manager) SignInWithProvider(ctx context.Context, provider string) error {
	if err := m.precheck(ctx); err != nil {
		return err
	}

	resp, err := call(ctx, m, func(ctx context.Context) (*domain.OAuthResponse, error) {
		return m.backend.SignInWithOAuth(ctx, provider, backend.OAuthOptions{RedirectTo: m.redirect})
	})
	if err != nil {
		return m.fail(TitleProviderFailed, err)
	}
	m.update(func(s *Session) { s.IsConnected = true })

	if m.opener != nil {
		if err := m.opener.Open(resp.URL); err != nil {
			m.logger.Error().Err(err).Msg("Failed to open provider URL")
			m.notifier.Notify(notify.Error(TitleProviderFailed, err.Error()))
			return err
		}
	}
	m.notifier.Notify(notify.Info("Redirecting", fmt.Sprintf(defaultProviderPrompt, resp.Provider)))
	return nil
}

// SignOut ends the session
func (m *Manager) SignOut(ctx context.Context) error {
	if err := m.precheck(ctx); err != nil {
		return err
	}

	_, err := call(ctx, m, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, m.backend.SignOut(ctx)
	})
	if err != nil {
		return m.fail(TitleSignOutFailed, err)
	}

	m.update(func(s *Session) {
		s.User = nil
		s.IsConnected = true
	})
	m.notifier.Notify(notify.Info("Signed out", MsgSignedOut))
	return nil
}

func (m *Manager) precheck(ctx context.Context) error {
	if m.gate == nil {
		return nil
	}
	ok, msg := m.gate.Precheck(ctx)
	if ok {
		return nil
	}

	m.update(func(s *Session) { s.IsConnected = false })
	m.notifier.Notify(notify.Error(TitleConnectionError, msg))
	return ErrNotConnected
}

// fail turns a backend failure into state and a notification. Network
// failures mark the connection down; anything else means the backend
// answered and its message is shown as is.
func (m *Manager) fail(title string, err error) error {
	if retry.IsNetworkError(err) {
		m.logger.Warn().Err(err).Str("operation", title).Msg("Auth request failed on network")
		if m.gate != nil {
			m.gate.MarkDisconnected(MsgAuthUnreachable)
		}
		m.update(func(s *Session) { s.IsConnected = false })
		m.notifier.Notify(notify.Error(TitleConnectionError, MsgConnectivity))
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}

	var apiErr *backend.APIError
	var domainErr *domain.Error
	if !errors.As(err, &apiErr) && !errors.As(err, &domainErr) {
		m.logger.Error().Err(err).Str("operation", title).Msg("Unexpected auth error")
	}

	m.update(func(s *Session) { s.IsConnected = true })
	m.notifier.Notify(notify.Error(title, err.Error()))
	return err
}

func (m *Manager) onAuthChange(event backend.AuthEvent, session *domain.AuthSession) {
	// The initial session is resolved by Init's own fetch.
	if event == backend.EventInitialSession {
		return
	}

	var user *domain.User
	if session != nil {
		user = session.User
	}
	m.logger.Debug().Str("event", string(event)).Msg("Auth state changed")
	m.update(func(s *Session) { s.User = user })
}

func (m *Manager) update(fn func(*Session)) {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return
	}
	fn(&m.session)
	snap := m.session
	subs := make([]func(Session), 0, len(m.subs))
	for _, sub := range m.subs {
		subs = append(subs, sub)
	}
	m.mu.Unlock()

	for _, sub := range subs {
		sub(snap)
	}
}

func call[T any](ctx context.Context, m *Manager, op func(context.Context) (T, error)) (T, error) {
	return retry.Do(ctx, m.policy, func(ctx context.Context) (T, error) {
		return retry.WithTimeout(ctx, m.timeout, op)
	})
}
