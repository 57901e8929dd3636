package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Rrens/chat-archive/internal/archive"
	"github.com/Rrens/chat-archive/internal/config"
	"github.com/Rrens/chat-archive/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestServiceConnectionService(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("list merges defaults", func(t *testing.T) {
		repo := new(MockServiceConnectionRepository)
		repo.On("ListByUser", ctx, userID).Return([]domain.ServiceConnection{
			{ServiceName: domain.ServiceGemini, IsConnected: true},
		}, nil)

		services, err := NewServiceConnectionService(repo).List(ctx, userID)
		require.NoError(t, err)
		require.Len(t, services, 4)
		assert.Equal(t, domain.ServiceChatGPT, services[0].Name)
		assert.True(t, services[2].IsConnected)
	})

	t.Run("set normalizes name", func(t *testing.T) {
		repo := new(MockServiceConnectionRepository)
		repo.On("Upsert", ctx, mock.MatchedBy(func(c *domain.ServiceConnection) bool {
			return c.ServiceName == domain.ServiceClaude && c.IsConnected && c.UserID == userID
		})).Return(nil)

		conn, err := NewServiceConnectionService(repo).Set(ctx, userID, "claude", true)
		require.NoError(t, err)
		assert.Equal(t, domain.ServiceClaude, conn.ServiceName)
		repo.AssertExpectations(t)
	})

	t.Run("unknown service", func(t *testing.T) {
		repo := new(MockServiceConnectionRepository)
		_, err := NewServiceConnectionService(repo).Set(ctx, userID, "bard", true)
		assert.ErrorIs(t, err, domain.ErrUnknownService)
	})
}

func TestProfileService(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("creates missing profile", func(t *testing.T) {
		repo := new(MockProfileRepository)
		repo.On("GetByUserID", ctx, userID).Return(nil, domain.ErrNotFound)
		repo.On("Create", ctx, mock.AnythingOfType("*domain.Profile")).Return(nil)

		profile, err := NewProfileService(repo).Get(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, userID, profile.UserID)
	})

	t.Run("update", func(t *testing.T) {
		name := "Grace"
		stored := &domain.Profile{UserID: userID, FullName: &name}
		update := &domain.ProfileUpdate{FullName: &name}

		repo := new(MockProfileRepository)
		repo.On("GetByUserID", ctx, userID).Return(stored, nil)
		repo.On("Update", ctx, userID, update).Return(nil)

		profile, err := NewProfileService(repo).Update(ctx, userID, update)
		require.NoError(t, err)
		assert.Equal(t, "Grace", *profile.FullName)
	})

	t.Run("storage failure", func(t *testing.T) {
		repo := new(MockProfileRepository)
		repo.On("GetByUserID", ctx, userID).Return(nil, errors.New("boom"))

		_, err := NewProfileService(repo).Get(ctx, userID)
		assert.ErrorContains(t, err, "failed to get profile")
	})
}

func TestChatService(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	repo := new(MockChatRepository)
	repo.On("ListByUser", ctx, userID, chatListLimit).Return(archive.SampleChats(), nil)
	svc := NewChatService(repo)

	folders, err := svc.Folders(ctx, userID, "")
	require.NoError(t, err)
	require.NotEmpty(t, folders)
	assert.Equal(t, "Technology", folders[0].Name)
	assert.Len(t, folders[0].Chats, 2)

	chats, err := svc.List(ctx, userID, "physics")
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, "1", chats[0].ID)

	none, err := svc.Folders(ctx, userID, "cooking")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	t.Run("create", func(t *testing.T) {
		repo.On("Create", ctx, mock.AnythingOfType("*domain.Chat")).Return(nil).Once()
		chat, err := svc.Create(ctx, userID, domain.ChatCreate{
			Title:  " Rust vs Go ",
			Source: "claude",
			Tags:   []string{"Programming", " "},
		})
		require.NoError(t, err)
		assert.Equal(t, "Rust vs Go", chat.Title)
		assert.Equal(t, domain.ServiceClaude, chat.Source)
		assert.Equal(t, []string{"Programming"}, chat.Tags)
		assert.NotEmpty(t, chat.Date)
	})
}

func TestOAuthService(t *testing.T) {
	svc := NewOAuthService(config.OAuthConfig{
		GitHub: config.OAuthProviderConfig{ClientID: "gh-client", RedirectURL: "https://api.example.com/cb", Scopes: []string{"user:email"}},
	})
	assert.Equal(t, []string{"github"}, svc.Providers())

	resp, err := svc.AuthURL("GitHub", "")
	require.NoError(t, err)
	assert.Equal(t, "github", resp.Provider)
	assert.Contains(t, resp.URL, "https://github.com/login/oauth/authorize?")
	assert.Contains(t, resp.URL, "client_id=gh-client")
	assert.Contains(t, resp.URL, "state=")

	custom, err := svc.AuthURL("github", "https://app.example.com/done")
	require.NoError(t, err)
	assert.Contains(t, custom.URL, "redirect_uri=https%3A%2F%2Fapp.example.com%2Fdone")

	_, err = svc.AuthURL("google", "")
	assert.ErrorIs(t, err, domain.ErrUnsupportedProvider)
}
