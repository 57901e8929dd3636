package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Rrens/chat-archive/internal/api/middleware"
	"github.com/Rrens/chat-archive/internal/api/response"
	"github.com/Rrens/chat-archive/internal/domain"
	"github.com/Rrens/chat-archive/internal/service"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService  *service.AuthService
	oauthService *service.OAuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, oauthService *service.OAuthService) *AuthHandler {
	return &AuthHandler{authService: authService, oauthService: oauthService}
}

// SignUp handles user registration
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var input domain.UserCreate
	if !decode(w, r, &input) {
		return
	}

	resp, err := h.authService.SignUp(r.Context(), input)
	if err != nil {
		response.DomainError(w, err)
		return
	}

	response.Created(w, resp)
}

// Token handles sign-in with email and password
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var input domain.UserLogin
	if !decode(w, r, &input) {
		return
	}

	resp, err := h.authService.SignIn(r.Context(), input)
	if err != nil {
		response.DomainError(w, err)
		return
	}

	response.OK(w, resp)
}

// Refresh handles token refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var input struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}
	if !decode(w, r, &input) {
		return
	}

	session, err := h.authService.Refresh(r.Context(), input.RefreshToken)
	if err != nil {
		response.DomainError(w, err)
		return
	}

	response.OK(w, session)
}

// Session describes the caller. Anonymous callers and unknown users get a
// null user rather than an error.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		response.OK(w, domain.AuthResponse{})
		return
	}

	user, err := h.authService.GetUser(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			response.OK(w, domain.AuthResponse{})
			return
		}
		response.DomainError(w, err)
		return
	}

	session := &domain.AuthSession{
		AccessToken: strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer")),
		TokenType:   "bearer",
		User:        user,
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Unix()
		session.ExpiresIn = int64(time.Until(claims.ExpiresAt.Time).Seconds())
	}

	response.OK(w, domain.AuthResponse{User: user, Session: session})
}

// OAuth returns the provider authorization URL
func (h *AuthHandler) OAuth(w http.ResponseWriter, r *http.Request) {
	var input domain.OAuthRequest
	if !decode(w, r, &input) {
		return
	}

	resp, err := h.oauthService.AuthURL(input.Provider, input.RedirectTo)
	if err != nil {
		response.DomainError(w, err)
		return
	}

	response.OK(w, resp)
}

// Logout revokes the caller's access token
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	if err := h.authService.SignOut(r.Context(), claims); err != nil {
		response.DomainError(w, err)
		return
	}

	response.NoContent(w)
}

// Confirm verifies the emailed confirmation link
func (h *AuthHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		response.ErrorWithCode(w, http.StatusBadRequest, "invalid_token", "missing token")
		return
	}

	redirectTo, err := h.authService.ConfirmEmail(r.Context(), token)
	if err != nil {
		response.DomainError(w, err)
		return
	}

	if redirectTo != "" {
		http.Redirect(w, r, redirectTo, http.StatusFound)
		return
	}
	response.OK(w, map[string]any{"confirmed": true})
}
