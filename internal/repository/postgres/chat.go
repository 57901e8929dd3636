package postgres

import (
	"context"
	"fmt"

	"github.com/Rrens/chat-archive/internal/domain"
	"github.com/google/uuid"
)

// ChatRepository handles archived chat data access
type ChatRepository struct {
	db *DB
}

// NewChatRepository creates a new chat repository
func NewChatRepository(db *DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// Create inserts a chat. chat.ID must be a UUID string.
func (r *ChatRepository) Create(ctx context.Context, chat *domain.Chat) error {
	id, err := uuid.Parse(chat.ID)
	if err != nil {
		return fmt.Errorf("failed to create chat: invalid id: %w", err)
	}

	tags := chat.Tags
	if tags == nil {
		tags = []string{}
	}

	query := `
		INSERT INTO chats (id, user_id, title, preview, chat_date, source, tags, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.db.Pool.Exec(ctx, query,
		id,
		chat.UserID,
		chat.Title,
		chat.Preview,
		chat.Date,
		chat.Source,
		tags,
		chat.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create chat: %w", err)
	}
	return nil
}

// ListByUser returns the newest chats of a user first
func (r *ChatRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Chat, error) {
	query := `
		SELECT id, user_id, title, preview, chat_date, source, tags, created_at
		FROM chats
		WHERE user_id = $1
		ORDER BY chat_date DESC, created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	defer rows.Close()

	var chats []domain.Chat
	for rows.Next() {
		var c domain.Chat
		var id uuid.UUID
		if err := rows.Scan(
			&id,
			&c.UserID,
			&c.Title,
			&c.Preview,
			&c.Date,
			&c.Source,
			&c.Tags,
			&c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan chat: %w", err)
		}
		c.ID = id.String()
		chats = append(chats, c)
	}

	return chats, rows.Err()
}
