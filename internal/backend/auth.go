package backend

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/Rrens/chat-archive/internal/domain"
)

// AuthEvent names a change of the signed-in session
type AuthEvent string

const (
	EventInitialSession AuthEvent = "INITIAL_SESSION"
	EventSignedIn       AuthEvent = "SIGNED_IN"
	EventSignedOut      AuthEvent = "SIGNED_OUT"
	EventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
)

// AuthListener receives auth changes. session is nil after sign-out.
type AuthListener func(event AuthEvent, session *domain.AuthSession)

// SignUpOptions tunes account creation
type SignUpOptions struct {
	EmailRedirectTo string
}

// OAuthOptions tunes provider sign-in
type OAuthOptions struct {
	RedirectTo string
}

// Session returns the locally held session, if any
func (c *Client) Session() *domain.AuthSession {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// OnAuthStateChange registers fn and immediately reports the current
// session as INITIAL_SESSION.
func (c *Client) OnAuthStateChange(fn AuthListener) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	current := c.session
	c.mu.Unlock()

	fn(EventInitialSession, current)

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

func (c *Client) setSession(session *domain.AuthSession, event AuthEvent) {
	c.mu.Lock()
	c.session = session
	listeners := make([]AuthListener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	var err error
	if session == nil {
		err = c.store.Clear()
	} else {
		err = c.store.Save(session)
	}
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to persist session")
	}

	for _, fn := range listeners {
		fn(event, session)
	}
}

// accessToken returns a valid access token, refreshing an expired one.
// It returns an empty token when there is no usable session.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	session := c.Session()
	if session == nil {
		return "", nil
	}
	if !session.Expired(c.now(), refreshSkew) {
		return session.AccessToken, nil
	}

	v, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		return c.refresh(ctx, session.RefreshToken)
	})
	if err != nil {
		return "", err
	}
	refreshed, _ := v.(*domain.AuthSession)
	if refreshed == nil {
		return "", nil
	}
	return refreshed.AccessToken, nil
}

func (c *Client) refresh(ctx context.Context, refreshToken string) (*domain.AuthSession, error) {
	// Another caller may have refreshed already.
	if current := c.Session(); current != nil && !current.Expired(c.now(), refreshSkew) {
		return current, nil
	}

	var session domain.AuthSession
	err := c.do(ctx, http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": refreshToken}, &session, authNone)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.NetworkFailure() {
			c.logger.Info().Str("code", apiErr.Code).Msg("Refresh token rejected, signing out")
			c.setSession(nil, EventSignedOut)
			return nil, nil
		}
		return nil, err
	}

	if session.User == nil {
		if current := c.Session(); current != nil {
			session.User = current.User
		}
	}
	c.setSession(&session, EventTokenRefreshed)
	return &session, nil
}

// GetSession validates the local session against the server. The returned
// response has a nil Session when nobody is signed in.
func (c *Client) GetSession(ctx context.Context) (*domain.AuthResponse, error) {
	var resp domain.AuthResponse
	if err := c.do(ctx, http.MethodGet, "/auth/session", nil, &resp, authOptional); err != nil {
		return nil, err
	}

	local := c.Session()
	if resp.User == nil {
		if local != nil {
			c.setSession(nil, EventSignedOut)
		}
		return &domain.AuthResponse{}, nil
	}
	if local == nil {
		return &domain.AuthResponse{User: resp.User}, nil
	}
	session := *local
	session.User = resp.User
	return &domain.AuthResponse{User: resp.User, Session: &session}, nil
}

// SignInWithPassword exchanges credentials for a session
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*domain.AuthResponse, error) {
	var resp domain.AuthResponse
	body := domain.UserLogin{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/auth/token", body, &resp, authNone); err != nil {
		return nil, err
	}
	if resp.Session != nil {
		if resp.Session.User == nil {
			resp.Session.User = resp.User
		}
		c.setSession(resp.Session, EventSignedIn)
	}
	return &resp, nil
}

// SignUp creates an account. The response carries a session only when the
// server does not require email confirmation.
func (c *Client) SignUp(ctx context.Context, email, password string, opts SignUpOptions) (*domain.AuthResponse, error) {
	var resp domain.AuthResponse
	body := domain.UserCreate{Email: email, Password: password, EmailRedirectTo: opts.EmailRedirectTo}
	if err := c.do(ctx, http.MethodPost, "/auth/signup", body, &resp, authNone); err != nil {
		return nil, err
	}
	if resp.Session != nil {
		if resp.Session.User == nil {
			resp.Session.User = resp.User
		}
		c.setSession(resp.Session, EventSignedIn)
	}
	return &resp, nil
}

// SignInWithOAuth returns the provider authorization URL
func (c *Client) SignInWithOAuth(ctx context.Context, provider string, opts OAuthOptions) (*domain.OAuthResponse, error) {
	var resp domain.OAuthResponse
	body := domain.OAuthRequest{Provider: provider, RedirectTo: opts.RedirectTo}
	if err := c.do(ctx, http.MethodPost, "/auth/oauth", body, &resp, authNone); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SignOut revokes the access token and forgets the local session. An
// already invalid token still signs the client out.
func (c *Client) SignOut(ctx context.Context) error {
	if c.Session() == nil {
		return nil
	}

	err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, authOptional)
	if err != nil {
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
			return err
		}
	}

	c.setSession(nil, EventSignedOut)
	return nil
}
