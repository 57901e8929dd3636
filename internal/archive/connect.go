package archive

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/Rrens/chat-archive/internal/domain"
)

// ProviderLink configures the page a user is sent to when connecting a
// provider. ClientID and RedirectURL are optional.
type ProviderLink struct {
	AuthURL     string
	ClientID    string
	RedirectURL string
	Scopes      []string
}

// DefaultProviderLinks returns the public sign-in pages of each provider
func DefaultProviderLinks() map[domain.ServiceName]ProviderLink {
	return map[domain.ServiceName]ProviderLink{
		domain.ServiceChatGPT:    {AuthURL: "https://auth.openai.com/authorize"},
		domain.ServiceClaude:     {AuthURL: "https://claude.ai/login"},
		domain.ServiceGemini:     {AuthURL: endpoints.Google.AuthURL, Scopes: []string{"openid", "email"}},
		domain.ServicePerplexity: {AuthURL: "https://www.perplexity.ai/auth/signin"},
	}
}

var providerAccounts = map[domain.ServiceName]string{
	domain.ServiceChatGPT:    "OpenAI",
	domain.ServiceClaude:     "Anthropic",
	domain.ServiceGemini:     "Google",
	domain.ServicePerplexity: "Perplexity",
}

// AccountName returns the account vendor the user signs in with
func AccountName(name domain.ServiceName) string {
	return providerAccounts[name]
}

// ConnectLinks builds provider connect URLs
type ConnectLinks struct {
	configs map[domain.ServiceName]*oauth2.Config
}

// NewConnectLinks merges overrides on top of the defaults. Unknown provider
// names in overrides are rejected.
func NewConnectLinks(overrides map[string]ProviderLink) (*ConnectLinks, error) {
	links := DefaultProviderLinks()
	for raw, link := range overrides {
		name, err := domain.ParseServiceName(raw)
		if err != nil {
			return nil, err
		}
		base := links[name]
		if link.AuthURL != "" {
			base.AuthURL = link.AuthURL
		}
		if link.ClientID != "" {
			base.ClientID = link.ClientID
		}
		if link.RedirectURL != "" {
			base.RedirectURL = link.RedirectURL
		}
		if len(link.Scopes) > 0 {
			base.Scopes = link.Scopes
		}
		links[name] = base
	}

	configs := make(map[domain.ServiceName]*oauth2.Config, len(links))
	for name, link := range links {
		configs[name] = &oauth2.Config{
			ClientID:    link.ClientID,
			RedirectURL: link.RedirectURL,
			Scopes:      link.Scopes,
			Endpoint:    oauth2.Endpoint{AuthURL: link.AuthURL},
		}
	}
	return &ConnectLinks{configs: configs}, nil
}

// URL returns the connect URL for name with a fresh random state
func (l *ConnectLinks) URL(name domain.ServiceName) (string, error) {
	conf, ok := l.configs[name]
	if !ok {
		return "", domain.ErrUnknownService.WithMessage("Unknown AI service: " + string(name))
	}

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return conf.AuthCodeURL(base64.RawURLEncoding.EncodeToString(b)), nil
}
