package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Rrens/chat-archive/internal/domain"
)

type countResponse struct {
	Table string `json:"table"`
	Count int64  `json:"count"`
}

// CountRows counts rows visible to the caller in a whitelisted table
func (c *Client) CountRows(ctx context.Context, table string) (int64, error) {
	var resp countResponse
	if err := c.do(ctx, http.MethodGet, "/tables/"+url.PathEscape(table)+"/count", nil, &resp, authOptional); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// ListServices returns every provider with the caller's connection flag
func (c *Client) ListServices(ctx context.Context) ([]domain.AIService, error) {
	var services []domain.AIService
	if err := c.do(ctx, http.MethodGet, "/services", nil, &services, authRequired); err != nil {
		return nil, err
	}
	return services, nil
}

// UpsertService stores the connection flag for one provider
func (c *Client) UpsertService(ctx context.Context, name domain.ServiceName, connected bool) (*domain.ServiceConnection, error) {
	var conn domain.ServiceConnection
	body := domain.ServiceConnectionUpdate{IsConnected: &connected}
	if err := c.do(ctx, http.MethodPut, "/services/"+url.PathEscape(string(name)), body, &conn, authRequired); err != nil {
		return nil, err
	}
	return &conn, nil
}

// GetProfile returns the signed-in user's profile
func (c *Client) GetProfile(ctx context.Context) (*domain.Profile, error) {
	var profile domain.Profile
	if err := c.do(ctx, http.MethodGet, "/profile", nil, &profile, authRequired); err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateProfile changes the signed-in user's profile
func (c *Client) UpdateProfile(ctx context.Context, update *domain.ProfileUpdate) (*domain.Profile, error) {
	var profile domain.Profile
	if err := c.do(ctx, http.MethodPut, "/profile", update, &profile, authRequired); err != nil {
		return nil, err
	}
	return &profile, nil
}

// ListChats returns archived chats, filtered by title or tag when query is set
func (c *Client) ListChats(ctx context.Context, query string) ([]domain.Chat, error) {
	path := "/chats"
	if query != "" {
		path += "?q=" + url.QueryEscape(query)
	}
	var chats []domain.Chat
	if err := c.do(ctx, http.MethodGet, path, nil, &chats, authRequired); err != nil {
		return nil, err
	}
	return chats, nil
}

// ListFolders returns the tag folders derived from the caller's chats
func (c *Client) ListFolders(ctx context.Context, query string) ([]domain.TopicFolder, error) {
	path := "/chats/folders"
	if query != "" {
		path += "?q=" + url.QueryEscape(query)
	}
	var folders []domain.TopicFolder
	if err := c.do(ctx, http.MethodGet, path, nil, &folders, authRequired); err != nil {
		return nil, err
	}
	return folders, nil
}

// CreateChat imports a captured conversation
func (c *Client) CreateChat(ctx context.Context, chat *domain.ChatCreate) (*domain.Chat, error) {
	var created domain.Chat
	if err := c.do(ctx, http.MethodPost, "/chats", chat, &created, authRequired); err != nil {
		return nil, err
	}
	return &created, nil
}
