package domain

import "time"

// AuthSession is the token bundle handed to a signed-in client
type AuthSession struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         *User  `json:"user"`
}

// Expired reports whether the access token is past its expiry, allowing for skew
func (s *AuthSession) Expired(now time.Time, skew time.Duration) bool {
	if s == nil || s.ExpiresAt == 0 {
		return true
	}
	return now.Add(skew).Unix() >= s.ExpiresAt
}

// AuthResponse is returned by sign-up, sign-in and session lookups.
// Session is nil when no session was established (for example sign-up
// pending email confirmation, or an anonymous session lookup).
type AuthResponse struct {
	User    *User        `json:"user"`
	Session *AuthSession `json:"session"`
}

// OAuthRequest asks the backend for a provider authorization URL
type OAuthRequest struct {
	Provider   string `json:"provider" validate:"required"`
	RedirectTo string `json:"redirect_to" validate:"omitempty,url"`
}

// OAuthResponse carries the provider authorization URL
type OAuthResponse struct {
	Provider string `json:"provider"`
	URL      string `json:"url"`
}
