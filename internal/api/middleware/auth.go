package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Rrens/chat-archive/internal/api/response"
	"github.com/Rrens/chat-archive/internal/security"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type contextKey string

const (
	ClaimsKey contextKey = "claims"
)

// RevocationChecker reports signed-out tokens
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// AuthMiddleware handles JWT authentication
type AuthMiddleware struct {
	jwtManager *security.JWTManager
	revocation RevocationChecker
}

// NewAuthMiddleware creates a new auth middleware. revocation may be nil.
func NewAuthMiddleware(jwtManager *security.JWTManager, revocation RevocationChecker) *AuthMiddleware {
	return &AuthMiddleware{jwtManager: jwtManager, revocation: revocation}
}

// Authenticate rejects requests without a valid, unrevoked access token
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			response.ErrorWithCode(w, http.StatusUnauthorized, "not_authenticated", "missing authorization header")
			return
		}

		claims, err := m.validate(r.Context(), token)
		if err != nil {
			response.ErrorWithCode(w, http.StatusUnauthorized, "invalid_token", "invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// OptionalAuth attaches claims when a valid token is present and passes
// anonymous or invalid callers through unchanged.
func (m *AuthMiddleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := m.validate(r.Context(), token)
		if err != nil {
			log.Ctx(r.Context()).Debug().Err(err).Msg("Ignoring invalid bearer token")
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

func (m *AuthMiddleware) validate(ctx context.Context, token string) (*security.Claims, error) {
	claims, err := m.jwtManager.ValidateAccessToken(token)
	if err != nil {
		return nil, err
	}
	if m.revocation != nil {
		revoked, err := m.revocation.IsRevoked(ctx, claims.ID)
		if err != nil {
			// fail open while the revocation store is unreachable
			log.Warn().Err(err).Msg("Revocation check failed")
		} else if revoked {
			return nil, errTokenRevoked
		}
	}
	return claims, nil
}

var errTokenRevoked = errors.New("token revoked")

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// WithClaims stores claims in ctx
func WithClaims(ctx context.Context, claims *security.Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}

// GetClaims gets the validated token claims from context
func GetClaims(ctx context.Context) (*security.Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*security.Claims)
	return claims, ok && claims != nil
}

// GetUserID gets the user ID from context
func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	claims, ok := GetClaims(ctx)
	if !ok {
		return uuid.Nil, false
	}
	return claims.UserID, true
}
