package service

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/Rrens/chat-archive/internal/config"
	"github.com/Rrens/chat-archive/internal/domain"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

// OAuthService builds provider authorization URLs. The callback and token
// exchange are handled outside this server.
type OAuthService struct {
	providers map[string]*oauth2.Config
}

// NewOAuthService registers every provider that has a client ID
func NewOAuthService(cfg config.OAuthConfig) *OAuthService {
	providers := make(map[string]*oauth2.Config)
	if cfg.GitHub.Enabled() {
		providers["github"] = newOAuthConfig(cfg.GitHub, endpoints.GitHub)
	}
	if cfg.Google.Enabled() {
		providers["google"] = newOAuthConfig(cfg.Google, endpoints.Google)
	}
	return &OAuthService{providers: providers}
}

func newOAuthConfig(p config.OAuthProviderConfig, endpoint oauth2.Endpoint) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
		RedirectURL:  p.RedirectURL,
		Scopes:       p.Scopes,
		Endpoint:     endpoint,
	}
}

// Providers lists the enabled provider names
func (s *OAuthService) Providers() []string {
	names := make([]string, 0, len(s.providers))
	for name := range s.providers {
		names = append(names, name)
	}
	return names
}

// AuthURL returns the authorization URL for provider. redirectTo, when set,
// overrides the configured callback.
func (s *OAuthService) AuthURL(provider, redirectTo string) (*domain.OAuthResponse, error) {
	name := strings.ToLower(strings.TrimSpace(provider))
	conf, ok := s.providers[name]
	if !ok {
		return nil, domain.ErrUnsupportedProvider.WithMessage("Unsupported provider: " + provider)
	}

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}
	state := base64.URLEncoding.EncodeToString(b)

	var opts []oauth2.AuthCodeOption
	if redirectTo != "" {
		opts = append(opts, oauth2.SetAuthURLParam("redirect_uri", redirectTo))
	}

	return &domain.OAuthResponse{Provider: name, URL: conf.AuthCodeURL(state, opts...)}, nil
}
