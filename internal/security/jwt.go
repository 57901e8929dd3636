package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/Rrens/chat-archive/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "chat-archive"

// TokenKind separates access, refresh and email confirmation tokens so one
// cannot be replayed as another.
type TokenKind string

const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
	TokenConfirm TokenKind = "confirm"
)

// Claims represents JWT claims
type Claims struct {
	UserID     uuid.UUID `json:"uid"`
	Email      string    `json:"email,omitempty"`
	Kind       TokenKind `json:"kind"`
	RedirectTo string    `json:"redirect_to,omitempty"`
	jwt.RegisteredClaims
}

// JWTManager handles JWT token operations
type JWTManager struct {
	secret          []byte
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	confirmTokenTTL time.Duration
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(secret string, accessTTL, refreshTTL, confirmTTL time.Duration) *JWTManager {
	return &JWTManager{
		secret:          []byte(secret),
		accessTokenTTL:  accessTTL,
		refreshTokenTTL: refreshTTL,
		confirmTokenTTL: confirmTTL,
	}
}

func (m *JWTManager) sign(kind TokenKind, userID uuid.UUID, email, redirectTo string, ttl time.Duration) (string, *Claims, error) {
	now := time.Now()
	claims := &Claims{
		UserID:     userID,
		Email:      email,
		Kind:       kind,
		RedirectTo: redirectTo,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// GenerateAccessToken generates a new access token
func (m *JWTManager) GenerateAccessToken(userID uuid.UUID, email string) (string, *Claims, error) {
	return m.sign(TokenAccess, userID, email, "", m.accessTokenTTL)
}

// GenerateRefreshToken generates a new refresh token
func (m *JWTManager) GenerateRefreshToken(userID uuid.UUID) (string, error) {
	token, _, err := m.sign(TokenRefresh, userID, "", "", m.refreshTokenTTL)
	return token, err
}

// GenerateConfirmToken generates a token for the email confirmation link
func (m *JWTManager) GenerateConfirmToken(userID uuid.UUID, email, redirectTo string) (string, error) {
	token, _, err := m.sign(TokenConfirm, userID, email, redirectTo, m.confirmTokenTTL)
	return token, err
}

// GenerateSession issues a full token bundle for user
func (m *JWTManager) GenerateSession(user *domain.User) (*domain.AuthSession, error) {
	accessToken, claims, err := m.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := m.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &domain.AuthSession{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int64(m.accessTokenTTL.Seconds()),
		ExpiresAt:    claims.ExpiresAt.Unix(),
		User:         user,
	}, nil
}

func (m *JWTManager) parse(tokenString string, kind TokenKind) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(issuer))

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("unexpected token kind %q", claims.Kind)
	}

	return claims, nil
}

// ValidateAccessToken validates an access token and returns the claims
func (m *JWTManager) ValidateAccessToken(tokenString string) (*Claims, error) {
	return m.parse(tokenString, TokenAccess)
}

// ValidateRefreshToken validates a refresh token and returns the user ID
func (m *JWTManager) ValidateRefreshToken(tokenString string) (uuid.UUID, error) {
	claims, err := m.parse(tokenString, TokenRefresh)
	if err != nil {
		return uuid.Nil, err
	}
	return claims.UserID, nil
}

// ValidateConfirmToken validates an email confirmation token
func (m *JWTManager) ValidateConfirmToken(tokenString string) (*Claims, error) {
	return m.parse(tokenString, TokenConfirm)
}

// AccessTokenTTL returns the access token TTL
func (m *JWTManager) AccessTokenTTL() time.Duration {
	return m.accessTokenTTL
}
