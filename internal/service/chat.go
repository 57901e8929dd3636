package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Rrens/chat-archive/internal/archive"
	"github.com/Rrens/chat-archive/internal/domain"
	"github.com/google/uuid"
)

const chatListLimit = 500

// ChatService handles the archived chats of a user
type ChatService struct {
	repo domain.ChatRepository
}

// NewChatService creates a new chat service
func NewChatService(repo domain.ChatRepository) *ChatService {
	return &ChatService{repo: repo}
}

// List returns the caller's chats, filtered by title or tag
func (s *ChatService) List(ctx context.Context, userID uuid.UUID, query string) ([]domain.Chat, error) {
	chats, err := s.repo.ListByUser(ctx, userID, chatListLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	return nonNil(archive.FilterChats(chats, query)), nil
}

// Folders groups the caller's chats by tag, filtered by folder name or chat title
func (s *ChatService) Folders(ctx context.Context, userID uuid.UUID, query string) ([]domain.TopicFolder, error) {
	chats, err := s.repo.ListByUser(ctx, userID, chatListLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	folders := archive.FilterFolders(archive.DeriveFolders(chats), query)
	if folders == nil {
		folders = []domain.TopicFolder{}
	}
	return folders, nil
}

// Create imports a captured conversation
func (s *ChatService) Create(ctx context.Context, userID uuid.UUID, input domain.ChatCreate) (*domain.Chat, error) {
	source, err := domain.ParseServiceName(input.Source)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	date := input.Date
	if date == "" {
		date = now.Format("2006-01-02")
	}

	tags := make([]string, 0, len(input.Tags))
	for _, tag := range input.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}

	chat := &domain.Chat{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     strings.TrimSpace(input.Title),
		Preview:   input.Preview,
		Date:      date,
		Source:    source,
		Tags:      tags,
		CreatedAt: now,
	}
	if err := s.repo.Create(ctx, chat); err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}
	return chat, nil
}

func nonNil(chats []domain.Chat) []domain.Chat {
	if chats == nil {
		return []domain.Chat{}
	}
	return chats
}
