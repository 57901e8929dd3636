package service

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/Rrens/chat-archive/internal/domain"
	"github.com/Rrens/chat-archive/internal/security"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-key-that-is-long-enough"

type authFixture struct {
	users    *MockUserRepository
	profiles *MockProfileRepository
	mailer   *captureMailer
	revoker  *memoryRevoker
	jwt      *security.JWTManager
	svc      *AuthService
}

func newAuthFixture(requireConfirm bool) *authFixture {
	f := &authFixture{
		users:    new(MockUserRepository),
		profiles: new(MockProfileRepository),
		mailer:   &captureMailer{},
		revoker:  newMemoryRevoker(),
		jwt:      security.NewJWTManager(testSecret, time.Hour, 24*time.Hour, time.Hour),
	}
	f.svc = NewAuthService(f.users, f.profiles, f.jwt, f.mailer, f.revoker, AuthOptions{
		RequireEmailConfirmation: requireConfirm,
		PublicURL:                "https://archive.example.com/",
	}, zerolog.Nop())
	return f
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestAuthService_SignUp(t *testing.T) {
	ctx := context.Background()

	t.Run("pending confirmation", func(t *testing.T) {
		f := newAuthFixture(true)
		f.users.On("EmailExists", ctx, "new@example.com").Return(false, nil)
		f.users.On("Create", ctx, mock.AnythingOfType("*domain.User")).Return(nil)
		f.profiles.On("Create", ctx, mock.AnythingOfType("*domain.Profile")).Return(nil)

		resp, err := f.svc.SignUp(ctx, domain.UserCreate{
			Email:           " New@Example.com ",
			Password:        "password1",
			EmailRedirectTo: "https://app.example.com/welcome",
		})
		require.NoError(t, err)
		assert.Nil(t, resp.Session)
		assert.False(t, resp.User.IsConfirmed())
		assert.Equal(t, "new@example.com", resp.User.Email)

		link, ok := f.mailer.links["new@example.com"]
		require.True(t, ok)
		u, err := url.Parse(link)
		require.NoError(t, err)
		assert.Equal(t, "/api/v1/auth/confirm", u.Path)

		claims, err := f.jwt.ValidateConfirmToken(u.Query().Get("token"))
		require.NoError(t, err)
		assert.Equal(t, resp.User.ID, claims.UserID)
		assert.Equal(t, "https://app.example.com/welcome", claims.RedirectTo)
	})

	t.Run("confirmed immediately", func(t *testing.T) {
		f := newAuthFixture(false)
		f.users.On("EmailExists", ctx, "fast@example.com").Return(false, nil)
		f.users.On("Create", ctx, mock.AnythingOfType("*domain.User")).Return(nil)
		f.profiles.On("Create", ctx, mock.AnythingOfType("*domain.Profile")).Return(nil)

		resp, err := f.svc.SignUp(ctx, domain.UserCreate{Email: "fast@example.com", Password: "password1"})
		require.NoError(t, err)
		require.NotNil(t, resp.Session)
		assert.True(t, resp.User.IsConfirmed())
		assert.Empty(t, f.mailer.links)
	})

	t.Run("email taken", func(t *testing.T) {
		f := newAuthFixture(true)
		f.users.On("EmailExists", ctx, "dup@example.com").Return(true, nil)

		_, err := f.svc.SignUp(ctx, domain.UserCreate{Email: "dup@example.com", Password: "password1"})
		assert.ErrorIs(t, err, domain.ErrEmailTaken)
		f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("weak password", func(t *testing.T) {
		f := newAuthFixture(true)
		_, err := f.svc.SignUp(ctx, domain.UserCreate{Email: "weak@example.com", Password: "short"})
		assert.ErrorIs(t, err, domain.ErrWeakPassword)
		f.users.AssertNotCalled(t, "EmailExists", mock.Anything, mock.Anything)
	})

	t.Run("mail failure", func(t *testing.T) {
		f := newAuthFixture(true)
		f.mailer.err = errors.New("smtp down")
		f.users.On("EmailExists", ctx, "m@example.com").Return(false, nil)
		f.users.On("Create", ctx, mock.AnythingOfType("*domain.User")).Return(nil)
		f.profiles.On("Create", ctx, mock.AnythingOfType("*domain.Profile")).Return(nil)

		_, err := f.svc.SignUp(ctx, domain.UserCreate{Email: "m@example.com", Password: "password1"})
		assert.ErrorContains(t, err, "smtp down")
	})
}

func TestAuthService_SignIn(t *testing.T) {
	ctx := context.Background()
	confirmedAt := time.Now()

	t.Run("success", func(t *testing.T) {
		f := newAuthFixture(true)
		user := &domain.User{ID: uuid.New(), Email: "a@example.com", PasswordHash: hashed(t, "password1"), EmailConfirmedAt: &confirmedAt}
		f.users.On("GetByEmail", ctx, "a@example.com").Return(user, nil)

		resp, err := f.svc.SignIn(ctx, domain.UserLogin{Email: "a@example.com", Password: "password1"})
		require.NoError(t, err)
		require.NotNil(t, resp.Session)

		claims, err := f.jwt.ValidateAccessToken(resp.Session.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
	})

	t.Run("unknown email", func(t *testing.T) {
		f := newAuthFixture(true)
		f.users.On("GetByEmail", ctx, "x@example.com").Return(nil, domain.ErrNotFound)

		_, err := f.svc.SignIn(ctx, domain.UserLogin{Email: "x@example.com", Password: "password1"})
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
		assert.Equal(t, "Invalid login credentials", err.Error())
	})

	t.Run("wrong password", func(t *testing.T) {
		f := newAuthFixture(true)
		user := &domain.User{ID: uuid.New(), Email: "a@example.com", PasswordHash: hashed(t, "password1"), EmailConfirmedAt: &confirmedAt}
		f.users.On("GetByEmail", ctx, "a@example.com").Return(user, nil)

		_, err := f.svc.SignIn(ctx, domain.UserLogin{Email: "a@example.com", Password: "nope"})
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("unconfirmed", func(t *testing.T) {
		f := newAuthFixture(true)
		user := &domain.User{ID: uuid.New(), Email: "u@example.com", PasswordHash: hashed(t, "password1")}
		f.users.On("GetByEmail", ctx, "u@example.com").Return(user, nil)

		_, err := f.svc.SignIn(ctx, domain.UserLogin{Email: "u@example.com", Password: "password1"})
		assert.ErrorIs(t, err, domain.ErrEmailNotConfirmed)
	})

	t.Run("repository failure", func(t *testing.T) {
		f := newAuthFixture(true)
		f.users.On("GetByEmail", ctx, "e@example.com").Return(nil, errors.New("connection reset"))

		_, err := f.svc.SignIn(ctx, domain.UserLogin{Email: "e@example.com", Password: "password1"})
		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrInvalidCredentials)
	})
}

func TestAuthService_Refresh(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(true)
	user := &domain.User{ID: uuid.New(), Email: "r@example.com"}

	refresh, err := f.jwt.GenerateRefreshToken(user.ID)
	require.NoError(t, err)
	f.users.On("GetByID", ctx, user.ID).Return(user, nil).Once()

	session, err := f.svc.Refresh(ctx, refresh)
	require.NoError(t, err)
	assert.Equal(t, user, session.User)

	// second lookup is served by the cache
	_, err = f.svc.Refresh(ctx, refresh)
	require.NoError(t, err)
	f.users.AssertNumberOfCalls(t, "GetByID", 1)

	t.Run("access token is not a refresh token", func(t *testing.T) {
		access, _, err := f.jwt.GenerateAccessToken(user.ID, user.Email)
		require.NoError(t, err)
		_, err = f.svc.Refresh(ctx, access)
		assert.ErrorIs(t, err, domain.ErrInvalidToken)
	})
}

func TestAuthService_ConfirmEmail(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(true)
	userID := uuid.New()

	token, err := f.jwt.GenerateConfirmToken(userID, "c@example.com", "https://app.example.com")
	require.NoError(t, err)
	f.users.On("ConfirmEmail", ctx, userID, mock.AnythingOfType("time.Time")).Return(nil)

	redirect, err := f.svc.ConfirmEmail(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "https://app.example.com", redirect)

	_, err = f.svc.ConfirmEmail(ctx, "garbage")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestAuthService_SignOut(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(true)

	_, claims, err := f.jwt.GenerateAccessToken(uuid.New(), "o@example.com")
	require.NoError(t, err)

	require.NoError(t, f.svc.SignOut(ctx, claims))
	revoked, err := f.svc.IsRevoked(ctx, claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.True(t, f.revoker.revoked[claims.ID] > 0)

	assert.NoError(t, f.svc.SignOut(ctx, nil))
}
