package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Rrens/chat-archive/internal/domain"
	"github.com/Rrens/chat-archive/internal/mailer"
	"github.com/Rrens/chat-archive/internal/security"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// TokenRevoker remembers signed-out access tokens
type TokenRevoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// AuthOptions tunes the auth service
type AuthOptions struct {
	RequireEmailConfirmation bool
	PublicURL                string
	UserCacheTTL             time.Duration
	PasswordPolicy           security.PasswordPolicy
}

// AuthService handles authentication operations
type AuthService struct {
	users      domain.UserRepository
	profiles   domain.ProfileRepository
	jwtManager *security.JWTManager
	mailer     mailer.Mailer
	revoker    TokenRevoker
	userCache  *gocache.Cache
	opts       AuthOptions
	logger     zerolog.Logger
	now        func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(
	users domain.UserRepository,
	profiles domain.ProfileRepository,
	jwtManager *security.JWTManager,
	m mailer.Mailer,
	revoker TokenRevoker,
	opts AuthOptions,
	logger zerolog.Logger,
) *AuthService {
	if opts.UserCacheTTL <= 0 {
		opts.UserCacheTTL = time.Minute
	}
	if opts.PasswordPolicy.MinLength == 0 {
		opts.PasswordPolicy = security.DefaultPasswordPolicy()
	}
	return &AuthService{
		users:      users,
		profiles:   profiles,
		jwtManager: jwtManager,
		mailer:     m,
		revoker:    revoker,
		userCache:  gocache.New(opts.UserCacheTTL, 2*opts.UserCacheTTL),
		opts:       opts,
		logger:     logger,
		now:        time.Now,
	}
}

// SignUp creates an account and its profile. When email confirmation is
// required the response has no session and a confirmation link is mailed.
func (s *AuthService) SignUp(ctx context.Context, input domain.UserCreate) (*domain.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	if err := s.opts.PasswordPolicy.Validate(input.Password); err != nil {
		return nil, err
	}

	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, domain.ErrEmailTaken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hashedPassword),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if !s.opts.RequireEmailConfirmation {
		user.EmailConfirmedAt = &now
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	profile := &domain.Profile{ID: uuid.New(), UserID: user.ID, CreatedAt: now, UpdatedAt: now}
	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	if s.opts.RequireEmailConfirmation {
		if err := s.sendConfirmation(ctx, user, input.EmailRedirectTo); err != nil {
			return nil, err
		}
		s.logger.Info().Str("user_id", user.ID.String()).Msg("User registered, confirmation pending")
		return &domain.AuthResponse{User: user}, nil
	}

	session, err := s.jwtManager.GenerateSession(user)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", user.ID.String()).Msg("User registered")
	return &domain.AuthResponse{User: user, Session: session}, nil
}

func (s *AuthService) sendConfirmation(ctx context.Context, user *domain.User, redirectTo string) error {
	token, err := s.jwtManager.GenerateConfirmToken(user.ID, user.Email, redirectTo)
	if err != nil {
		return fmt.Errorf("failed to generate confirmation token: %w", err)
	}

	link := strings.TrimRight(s.opts.PublicURL, "/") + "/api/v1/auth/confirm?token=" + url.QueryEscape(token)
	if err := s.mailer.SendConfirmation(ctx, user.Email, link); err != nil {
		return fmt.Errorf("failed to send confirmation email: %w", err)
	}
	return nil
}

// SignIn authenticates with email and password
func (s *AuthService) SignIn(ctx context.Context, input domain.UserLogin) (*domain.AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	if s.opts.RequireEmailConfirmation && !user.IsConfirmed() {
		return nil, domain.ErrEmailNotConfirmed
	}

	session, err := s.jwtManager.GenerateSession(user)
	if err != nil {
		return nil, err
	}
	return &domain.AuthResponse{User: user, Session: session}, nil
}

// Refresh issues a new session for a valid refresh token
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.AuthSession, error) {
	userID, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, domain.ErrInvalidToken.WithMessage("Invalid refresh token")
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidToken.WithMessage("User not found")
		}
		return nil, err
	}

	return s.jwtManager.GenerateSession(user)
}

// ConfirmEmail verifies a confirmation token and returns where to send the
// user afterwards (empty when the sign-up gave no redirect).
func (s *AuthService) ConfirmEmail(ctx context.Context, token string) (string, error) {
	claims, err := s.jwtManager.ValidateConfirmToken(token)
	if err != nil {
		return "", domain.ErrInvalidToken.WithMessage("Email link is invalid or has expired")
	}

	if err := s.users.ConfirmEmail(ctx, claims.UserID, s.now().UTC()); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.ErrInvalidToken.WithMessage("Email link is invalid or has expired")
		}
		return "", fmt.Errorf("failed to confirm email: %w", err)
	}
	s.userCache.Delete(claims.UserID.String())

	s.logger.Info().Str("user_id", claims.UserID.String()).Msg("Email confirmed")
	return claims.RedirectTo, nil
}

// GetUser returns a user, served from a short-lived cache
func (s *AuthService) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	if cached, ok := s.userCache.Get(userID.String()); ok {
		return cached.(*domain.User), nil
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.userCache.SetDefault(userID.String(), user)
	return user, nil
}

// SignOut revokes the access token until it would have expired
func (s *AuthService) SignOut(ctx context.Context, claims *security.Claims) error {
	if claims == nil {
		return nil
	}
	ttl := time.Duration(0)
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Time.Sub(s.now())
	}
	if err := s.revoker.Revoke(ctx, claims.ID, ttl); err != nil {
		return err
	}
	s.userCache.Delete(claims.UserID.String())

	s.logger.Info().Str("user_id", claims.UserID.String()).Msg("Signed out")
	return nil
}

// IsRevoked reports whether the token with jti was signed out
func (s *AuthService) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return s.revoker.IsRevoked(ctx, jti)
}
