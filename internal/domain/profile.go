package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Profile holds display details for a user
type Profile struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	FullName  *string   `json:"full_name"`
	AvatarURL *string   `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProfileUpdate represents profile update data
type ProfileUpdate struct {
	FullName  *string `json:"full_name,omitempty" validate:"omitempty,max=255"`
	AvatarURL *string `json:"avatar_url,omitempty" validate:"omitempty,url,max=2048"`
}

// ProfileRepository defines the interface for profile storage
type ProfileRepository interface {
	Create(ctx context.Context, profile *Profile) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Profile, error)
	Update(ctx context.Context, userID uuid.UUID, update *ProfileUpdate) error
}

// Tables that clients may count rows in
const (
	TableProfiles           = "profiles"
	TableServiceConnections = "service_connections"
	TableChats              = "chats"
)

// CountableTables is the whitelist for row counting
var CountableTables = map[string]bool{
	TableProfiles:           true,
	TableServiceConnections: true,
	TableChats:              true,
}

// RowCounter counts rows in a whitelisted table, scoped to a user when one is given
type RowCounter interface {
	CountRows(ctx context.Context, table string, userID *uuid.UUID) (int64, error)
}
