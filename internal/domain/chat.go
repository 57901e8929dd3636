package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Chat is an archived conversation captured from an AI provider
type Chat struct {
	ID        string      `json:"id"`
	UserID    uuid.UUID   `json:"-"`
	Title     string      `json:"title"`
	Preview   string      `json:"preview"`
	Date      string      `json:"date"`
	Source    ServiceName `json:"source"`
	Tags      []string    `json:"tags"`
	CreatedAt time.Time   `json:"created_at"`
}

// ChatCreate represents an imported conversation
type ChatCreate struct {
	Title   string   `json:"title" validate:"required,max=255"`
	Preview string   `json:"preview" validate:"max=2000"`
	Date    string   `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Source  string   `json:"source" validate:"required,oneof=ChatGPT Claude Gemini Perplexity"`
	Tags    []string `json:"tags" validate:"max=20,dive,required,max=64"`
}

// TopicFolder groups chats sharing a tag
type TopicFolder struct {
	Name    string `json:"name"`
	Chats   []Chat `json:"chats"`
	Summary string `json:"summary"`
}

// ChatRepository defines the interface for chat storage
type ChatRepository interface {
	Create(ctx context.Context, chat *Chat) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]Chat, error)
}
